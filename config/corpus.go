package config

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ByLCY/textforge/corpus"
	"github.com/ByLCY/textforge/layout"
)

// Corpus 是任务的语料字段：要么是单个描述符，要么是有序的描述符序列（每个版式槽位一个）。
type Corpus struct {
	items []corpus.Descriptor
	seq   bool
}

// Single 包装单个语料。
func Single(d corpus.Descriptor) Corpus {
	return Corpus{items: []corpus.Descriptor{d.Clone()}}
}

// Sequence 包装有序语料序列，供多语料版式使用。
func Sequence(ds ...corpus.Descriptor) Corpus {
	items := make([]corpus.Descriptor, len(ds))
	for i, d := range ds {
		items[i] = d.Clone()
	}
	return Corpus{items: items, seq: true}
}

// IsSequence 表示该字段是否为序列形态。
func (c Corpus) IsSequence() bool { return c.seq }

// Len 返回语料数量。
func (c Corpus) Len() int { return len(c.items) }

// Items 返回语料的深拷贝。
func (c Corpus) Items() []corpus.Descriptor {
	out := make([]corpus.Descriptor, len(c.items))
	for i, d := range c.items {
		out[i] = d.Clone()
	}
	return out
}

// Validate 校验每个语料；序列不能为空。
func (c Corpus) Validate() error {
	if len(c.items) == 0 {
		if c.seq {
			return fmt.Errorf("%w: corpus sequence is empty", layout.ErrStructuralMismatch)
		}
		return errors.New("config: corpus is required")
	}
	for i, d := range c.items {
		if err := d.Validate(); err != nil {
			return fmt.Errorf("config: corpus[%d]: %w", i, err)
		}
	}
	return nil
}

func (c Corpus) mapItems(fn func(corpus.Descriptor) corpus.Descriptor) Corpus {
	out := Corpus{items: make([]corpus.Descriptor, len(c.items)), seq: c.seq}
	for i, d := range c.items {
		out.items[i] = fn(d.Clone())
	}
	return out
}

func (c Corpus) plain() any {
	if !c.seq && len(c.items) == 1 {
		return c.items[0]
	}
	return c.items
}

// MarshalJSON 单个语料输出为对象，序列输出为数组。
func (c Corpus) MarshalJSON() ([]byte, error) { return json.Marshal(c.plain()) }

// MarshalYAML 与 MarshalJSON 形态一致。
func (c Corpus) MarshalYAML() (any, error) { return c.plain(), nil }

// CheckShape 校验语料形态与版式是否一致：
// 无版式时必须是单个语料；有版式时必须是序列且数量满足版式槽位。
func CheckShape(c Corpus, l *layout.Descriptor) error {
	if l == nil {
		if c.seq {
			return fmt.Errorf("%w: corpus sequence of %d requires a layout", layout.ErrStructuralMismatch, len(c.items))
		}
		return nil
	}
	if !c.seq {
		return fmt.Errorf("%w: %s layout requires a corpus sequence", layout.ErrStructuralMismatch, l.Kind)
	}
	return l.Accepts(len(c.items))
}
