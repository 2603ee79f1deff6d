package layout

// 该文件定义多语料版式描述：多个语料的渲染结果如何拼到同一张图里。

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ByLCY/textforge/param"
)

// ErrStructuralMismatch 表示语料序列的长度与版式要求的槽位数不一致，
// 或者没有版式却给了语料序列（反之亦然）。
var ErrStructuralMismatch = errors.New("layout: corpus shape does not match layout")

// Kind 是版式的种类。
type Kind int

const (
	// SameLine 把所有语料的文字放在同一行依次拼接。
	SameLine Kind = iota
	// ExtraTextLine 在主文字行之外追加一行文字。
	ExtraTextLine
)

func (k Kind) String() string {
	switch k {
	case SameLine:
		return "same_line"
	case ExtraTextLine:
		return "extra_text_line"
	default:
		return fmt.Sprintf("layout(%d)", int(k))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Descriptor 描述一种版式。BottomProb 仅对 ExtraTextLine 有意义：追加行放在下方的概率。
type Descriptor struct {
	Kind       Kind
	BottomProb float64
}

// wireDescriptor 是写入清单的形态：ExtraTextLine 总是带 bottom_prob（包括 0），SameLine 不带。
type wireDescriptor struct {
	Kind       Kind     `json:"kind" yaml:"kind"`
	BottomProb *float64 `json:"bottom_prob,omitempty" yaml:"bottom_prob,omitempty"`
}

func (d Descriptor) wire() wireDescriptor {
	w := wireDescriptor{Kind: d.Kind}
	if d.Kind == ExtraTextLine {
		p := d.BottomProb
		w.BottomProb = &p
	}
	return w
}

// MarshalJSON implements json.Marshaler.
func (d Descriptor) MarshalJSON() ([]byte, error) { return json.Marshal(d.wire()) }

// MarshalYAML mirrors MarshalJSON for gopkg.in/yaml.v3.
func (d Descriptor) MarshalYAML() (any, error) { return d.wire(), nil }

// NewSameLine 返回同行拼接版式。
func NewSameLine() Descriptor { return Descriptor{Kind: SameLine} }

// NewExtraTextLine 返回追加行版式，bottomProb 必须位于 [0,1]。
func NewExtraTextLine(bottomProb float64) (Descriptor, error) {
	d := Descriptor{Kind: ExtraTextLine, BottomProb: bottomProb}
	return d, d.Validate()
}

// Validate 校验版式自身的参数。
func (d Descriptor) Validate() error {
	switch d.Kind {
	case SameLine:
		if d.BottomProb != 0 {
			return fmt.Errorf("layout: same_line does not take bottom_prob")
		}
		return nil
	case ExtraTextLine:
		if err := param.ValidateProbability(d.BottomProb); err != nil {
			return fmt.Errorf("layout: bottom_prob: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("layout: unknown kind %d", int(d.Kind))
	}
}

// Slots 返回该版式可接受的语料数量区间 [lo, hi]；hi < 0 表示不设上限。
func (d Descriptor) Slots() (lo, hi int) {
	switch d.Kind {
	case ExtraTextLine:
		return 2, 2
	default:
		return 2, -1
	}
}

// Accepts 校验 n 个语料能否填满该版式的槽位。
func (d Descriptor) Accepts(n int) error {
	lo, hi := d.Slots()
	if n < lo || (hi >= 0 && n > hi) {
		if lo == hi {
			return fmt.Errorf("%w: %s expects exactly %d corpora, got %d", ErrStructuralMismatch, d.Kind, lo, n)
		}
		return fmt.Errorf("%w: %s expects at least %d corpora, got %d", ErrStructuralMismatch, d.Kind, lo, n)
	}
	return nil
}
