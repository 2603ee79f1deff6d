package effect

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/ByLCY/textforge/param"
)

// Augment wraps an augmentation primitive of the external renderer (for
// example an imgaug augmenter). Name and Params are passed through untouched.
type Augment struct {
	P      float64                         `json:"p" yaml:"p"`
	Name   string                          `json:"name" yaml:"name"`
	Params map[string]param.Range[float64] `json:"params,omitempty" yaml:"params,omitempty"`
}

// NewAugment copies params and validates every range.
func NewAugment(p float64, name string, params map[string]param.Range[float64]) (Augment, error) {
	e := Augment{P: p, Name: name, Params: maps.Clone(params)}
	return e, e.Validate()
}

func (e Augment) Kind() Kind           { return KindAugment }
func (e Augment) Probability() float64 { return e.P }

func (e Augment) Validate() error {
	if err := checkProbability(e.P); err != nil {
		return err
	}
	if e.Name == "" {
		return errors.New("augment: name is required")
	}
	for _, key := range slices.Sorted(maps.Keys(e.Params)) {
		if err := e.Params[key].Validate(); err != nil {
			return fmt.Errorf("augment %s: %s: %w", e.Name, key, err)
		}
	}
	return nil
}
