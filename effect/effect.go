// Package effect describes the visual corruption operations applied to
// rendered text and how they are chained. The pixel work itself is done by
// the external renderer; this package only validates and composes.
package effect

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ByLCY/textforge/param"
)

// ErrEmptyPipeline is returned when a pipeline would contain no effect.
var ErrEmptyPipeline = errors.New("effect: pipeline must contain at least one effect")

// Kind identifies an effect type.
type Kind int

const (
	KindDropoutRand Kind = iota
	KindDropoutHorizontal
	KindDropoutVertical
	KindLine
	KindPadding
	KindCurve
	KindAugment
)

var kindNames = [...]string{
	KindDropoutRand:       "dropout_rand",
	KindDropoutHorizontal: "dropout_horizontal",
	KindDropoutVertical:   "dropout_vertical",
	KindLine:              "line",
	KindPadding:           "padding",
	KindCurve:             "curve",
	KindAugment:           "augment",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("effect(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Effect is one probabilistic, parameterized transformation.
type Effect interface {
	Kind() Kind
	// Probability is the chance the renderer applies the effect to a sample.
	Probability() float64
	Validate() error
}

// Pipeline is an ordered, non-empty chain of effects applied left to right.
// The same kind may appear more than once.
type Pipeline struct {
	effects []Effect
}

// NewPipeline validates every effect and freezes the order.
func NewPipeline(effects ...Effect) (Pipeline, error) {
	if len(effects) == 0 {
		return Pipeline{}, ErrEmptyPipeline
	}
	out := make([]Effect, 0, len(effects))
	for i, e := range effects {
		if e == nil {
			return Pipeline{}, fmt.Errorf("effect: pipeline entry %d is nil", i)
		}
		if err := e.Validate(); err != nil {
			return Pipeline{}, fmt.Errorf("effect: pipeline entry %d (%s): %w", i, e.Kind(), err)
		}
		out = append(out, e)
	}
	return Pipeline{effects: out}, nil
}

// MustPipeline is NewPipeline for fixed, known-good parameter sets.
func MustPipeline(effects ...Effect) Pipeline {
	p, err := NewPipeline(effects...)
	if err != nil {
		panic(err)
	}
	return p
}

// Len returns the number of effects.
func (p Pipeline) Len() int { return len(p.effects) }

// At returns the i-th effect.
func (p Pipeline) At(i int) Effect { return p.effects[i] }

// Effects returns a copy of the chain.
func (p Pipeline) Effects() []Effect {
	out := make([]Effect, len(p.effects))
	copy(out, p.effects)
	return out
}

// Kinds lists the effect kinds in application order.
func (p Pipeline) Kinds() []Kind {
	out := make([]Kind, len(p.effects))
	for i, e := range p.effects {
		out[i] = e.Kind()
	}
	return out
}

// Validate re-checks every effect; a zero Pipeline is invalid.
func (p Pipeline) Validate() error {
	if len(p.effects) == 0 {
		return ErrEmptyPipeline
	}
	for i, e := range p.effects {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("effect: pipeline entry %d (%s): %w", i, e.Kind(), err)
		}
	}
	return nil
}

// entry is the serialized shape {kind, params}.
type entry struct {
	Kind   Kind   `json:"kind" yaml:"kind"`
	Params Effect `json:"params" yaml:"params"`
}

func (p Pipeline) entries() []entry {
	out := make([]entry, len(p.effects))
	for i, e := range p.effects {
		out[i] = entry{Kind: e.Kind(), Params: e}
	}
	return out
}

// MarshalJSON writes the chain as [{kind, params}, ...].
func (p Pipeline) MarshalJSON() ([]byte, error) { return json.Marshal(p.entries()) }

// MarshalYAML writes the same shape as MarshalJSON.
func (p Pipeline) MarshalYAML() (any, error) { return p.entries(), nil }

func checkProbability(p float64) error {
	if err := param.ValidateProbability(p); err != nil {
		return fmt.Errorf("p: %w", err)
	}
	return nil
}

func checkRatio(name string, r param.Range[float64]) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if !r.Within(0, 1) {
		return fmt.Errorf("%s: %w: %s outside [0, 1]", name, param.ErrInvalidRange, r)
	}
	return nil
}

func checkNonNegative(name string, r param.Range[float64]) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if r.Low < 0 {
		return fmt.Errorf("%s: %w: %s is negative", name, param.ErrInvalidRange, r)
	}
	return nil
}

func checkPositive(name string, v int) error {
	if v <= 0 {
		return fmt.Errorf("%s: %w: must be positive, got %d", name, param.ErrInvalidRange, v)
	}
	return nil
}
