// Package param holds the numeric primitives shared by every descriptor:
// a value that is either fixed or drawn per sample from an inclusive range.
package param

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// ErrInvalidRange reports a range with low > high, a non-finite end, or a probability outside [0,1].
var ErrInvalidRange = errors.New("param: invalid range")

// Number is the set of scalar types a Range can carry.
type Number interface {
	~int | ~float64
}

// Drawer is the random source used at draw time. *math/rand.Rand satisfies it.
type Drawer interface {
	Intn(n int) int
}

// floatSteps 是浮点区间抽样的精度：在 [Low, High] 上取 floatSteps+1 个等距点，两端都可取到。
const floatSteps = 1 << 30

// Range is either a fixed scalar (Low == High) or an inclusive [Low, High] span.
type Range[T Number] struct {
	Low  T
	High T
}

// Fixed returns a range that always resolves to v.
func Fixed[T Number](v T) Range[T] { return Range[T]{Low: v, High: v} }

// Between returns the inclusive range [low, high]. Call Validate before use.
func Between[T Number](low, high T) Range[T] { return Range[T]{Low: low, High: high} }

// IsFixed reports whether the range has a single value.
func (r Range[T]) IsFixed() bool { return r.Low == r.High }

// Validate rejects inverted ranges and NaN/Inf ends.
func (r Range[T]) Validate() error {
	if !finite(float64(r.Low)) || !finite(float64(r.High)) {
		return fmt.Errorf("%w: non-finite range (%v, %v)", ErrInvalidRange, r.Low, r.High)
	}
	if r.Low > r.High {
		return fmt.Errorf("%w: low %v > high %v", ErrInvalidRange, r.Low, r.High)
	}
	return nil
}

// Within reports whether both ends lie in [min, max].
func (r Range[T]) Within(min, max T) bool {
	return r.Low >= min && r.High <= max
}

// Resolve draws a concrete value. Fixed ranges never touch d.
// Both ends are reachable for integer and float ranges.
func (r Range[T]) Resolve(d Drawer) T {
	if r.IsFixed() || d == nil {
		return r.Low
	}
	switch any(r.Low).(type) {
	case int:
		span := int(r.High) - int(r.Low) + 1
		return r.Low + T(d.Intn(span))
	default:
		u := float64(d.Intn(floatSteps+1)) / floatSteps
		return r.Low + T(u*float64(r.High-r.Low))
	}
}

func (r Range[T]) String() string {
	if r.IsFixed() {
		return fmt.Sprint(r.Low)
	}
	return fmt.Sprintf("(%v, %v)", r.Low, r.High)
}

// MarshalJSON writes a scalar for fixed ranges and [low, high] otherwise.
func (r Range[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.plain())
}

// UnmarshalJSON accepts either form written by MarshalJSON.
func (r *Range[T]) UnmarshalJSON(data []byte) error {
	var pair []T
	if err := json.Unmarshal(data, &pair); err == nil {
		return r.fromSlice(pair)
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("param: range must be a number or [low, high]: %w", err)
	}
	*r = Fixed(v)
	return nil
}

// MarshalYAML mirrors MarshalJSON for gopkg.in/yaml.v3.
func (r Range[T]) MarshalYAML() (any, error) {
	return r.plain(), nil
}

func (r Range[T]) plain() any {
	if r.IsFixed() {
		return r.Low
	}
	return []T{r.Low, r.High}
}

func (r *Range[T]) fromSlice(pair []T) error {
	switch len(pair) {
	case 1:
		*r = Fixed(pair[0])
	case 2:
		*r = Between(pair[0], pair[1])
	default:
		return fmt.Errorf("%w: expected 1 or 2 values, got %d", ErrInvalidRange, len(pair))
	}
	return r.Validate()
}

// ValidateProbability rejects NaN and p outside [0,1].
func ValidateProbability(p float64) error {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return fmt.Errorf("%w: probability %v outside [0, 1]", ErrInvalidRange, p)
	}
	return nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
