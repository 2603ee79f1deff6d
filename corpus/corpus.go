// Package corpus describes a text source together with the font parameters
// the renderer needs to lay it out.
package corpus

import (
	"errors"
	"fmt"
	"slices"

	"github.com/ByLCY/textforge/param"
)

// ErrNoText is returned when a descriptor has no text source.
var ErrNoText = errors.New("corpus: at least one text path is required")

// Kind 区分语料的取词方式。
type Kind int

const (
	// Word 从文本中按词采样，num_word 表示词数。
	Word Kind = iota
	// Char 按字符采样，num_word 表示字符数。
	Char
	// Enum 每行是一个完整样本，按行随机取。
	Enum
)

var kindNames = map[Kind]string{
	Word: "word",
	Char: "char",
	Enum: "enum",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalText writes the kind name; used by both JSON and YAML encoders.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// ParseKind accepts the names produced by Kind.String.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return Word, fmt.Errorf("corpus: unknown kind %q", s)
}

// Descriptor 是单个语料来源的完整描述。
// 字符过滤（filter_by_chars）由渲染器执行，这里只记录前置条件。
type Descriptor struct {
	Kind          Kind             `json:"kind" yaml:"kind"`
	TextPaths     []string         `json:"text_paths" yaml:"text_paths"`
	FontDir       string           `json:"font_dir" yaml:"font_dir"`
	FontListFile  string           `json:"font_list_file" yaml:"font_list_file"`
	FontSize      param.Range[int] `json:"font_size" yaml:"font_size"`
	NumWord       param.Range[int] `json:"num_word" yaml:"num_word"`
	FilterByChars bool             `json:"filter_by_chars" yaml:"filter_by_chars"`
	CharsFile     string           `json:"chars_file,omitempty" yaml:"chars_file,omitempty"`
	CharSpacing   *float64         `json:"char_spacing,omitempty" yaml:"char_spacing,omitempty"`
}

// Font groups the font parameters shared by most corpora of one experiment.
type Font struct {
	Dir      string
	ListFile string
	Size     param.Range[int]
	NumWord  param.Range[int]
}

// Option adjusts a descriptor before it is validated.
type Option func(*Descriptor)

// WithKind overrides the default Word kind.
func WithKind(k Kind) Option { return func(d *Descriptor) { d.Kind = k } }

// WithCharFilter restricts every emitted character to the set listed in path.
func WithCharFilter(path string) Option {
	return func(d *Descriptor) {
		d.FilterByChars = path != ""
		d.CharsFile = path
	}
}

// WithCharSpacing sets the spacing ratio: negative is compact, positive expanded.
func WithCharSpacing(v float64) Option {
	return func(d *Descriptor) { d.CharSpacing = &v }
}

// New builds and validates a descriptor. textPaths is copied.
func New(textPaths []string, font Font, opts ...Option) (Descriptor, error) {
	d := Descriptor{
		Kind:         Word,
		TextPaths:    slices.Clone(textPaths),
		FontDir:      font.Dir,
		FontListFile: font.ListFile,
		FontSize:     font.Size,
		NumWord:      font.NumWord,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&d)
		}
	}
	if err := d.Validate(); err != nil {
		return Descriptor{}, err
	}
	return d, nil
}

// Validate checks the structural invariants. File existence is left to the renderer.
func (d Descriptor) Validate() error {
	if len(d.TextPaths) == 0 {
		return ErrNoText
	}
	for i, p := range d.TextPaths {
		if p == "" {
			return fmt.Errorf("corpus: text path %d is empty", i)
		}
	}
	if err := d.FontSize.Validate(); err != nil {
		return fmt.Errorf("corpus: font_size: %w", err)
	}
	if d.FontSize.Low <= 0 {
		return fmt.Errorf("corpus: font_size: %w: must be positive", param.ErrInvalidRange)
	}
	if err := d.NumWord.Validate(); err != nil {
		return fmt.Errorf("corpus: num_word: %w", err)
	}
	if d.NumWord.Low <= 0 {
		return fmt.Errorf("corpus: num_word: %w: must be positive", param.ErrInvalidRange)
	}
	if d.FilterByChars && d.CharsFile == "" {
		return fmt.Errorf("corpus: filter_by_chars requires chars_file")
	}
	if d.CharSpacing != nil {
		if err := param.Fixed(*d.CharSpacing).Validate(); err != nil {
			return fmt.Errorf("corpus: char_spacing: %w", err)
		}
	}
	return nil
}

// Clone returns a deep copy so callers can never alias another descriptor.
func (d Descriptor) Clone() Descriptor {
	out := d
	out.TextPaths = slices.Clone(d.TextPaths)
	if d.CharSpacing != nil {
		v := *d.CharSpacing
		out.CharSpacing = &v
	}
	return out
}

// SpacedBy returns a copy with CharSpacing set to v.
func (d Descriptor) SpacedBy(v float64) Descriptor {
	out := d.Clone()
	out.CharSpacing = &v
	return out
}
