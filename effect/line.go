package effect

import (
	"fmt"
	"slices"

	"github.com/ByLCY/textforge/param"
)

// Position is an anchor where the ruled-line effect can draw.
type Position int

const (
	Top Position = iota
	Bottom
	TopLeft
	TopRight
	BottomLeft
	BottomRight
	HorizontalMiddle
	VerticalMiddle

	// NumPositions is the length of a position probability vector.
	NumPositions = int(VerticalMiddle) + 1
)

var positionNames = [NumPositions]string{
	Top:              "top",
	Bottom:           "bottom",
	TopLeft:          "top_left",
	TopRight:         "top_right",
	BottomLeft:       "bottom_left",
	BottomRight:      "bottom_right",
	HorizontalMiddle: "horizontal_middle",
	VerticalMiddle:   "vertical_middle",
}

// Positions lists every anchor in vector order.
func Positions() []Position {
	out := make([]Position, NumPositions)
	for i := range out {
		out[i] = Position(i)
	}
	return out
}

func (p Position) String() string {
	if p >= 0 && int(p) < NumPositions {
		return positionNames[p]
	}
	return fmt.Sprintf("position(%d)", int(p))
}

// ParsePosition accepts the names produced by Position.String.
func ParsePosition(s string) (Position, error) {
	for i, name := range positionNames {
		if name == s {
			return Position(i), nil
		}
	}
	return Top, fmt.Errorf("effect: unknown line position %q", s)
}

// OneHot returns a position vector that selects only pos.
func OneHot(pos Position) []float64 {
	v := make([]float64, NumPositions)
	v[pos] = 1
	return v
}

// Line 在文字周围绘制一条直线。PosP 按 Positions() 顺序给出每个位置被选中的权重。
type Line struct {
	P         float64          `json:"p" yaml:"p"`
	Thickness param.Range[int] `json:"thickness" yaml:"thickness"`
	PosP      []float64        `json:"line_pos_p" yaml:"line_pos_p"`
}

// NewLine copies posP and validates it.
func NewLine(p float64, thickness param.Range[int], posP []float64) (Line, error) {
	e := Line{P: p, Thickness: thickness, PosP: slices.Clone(posP)}
	return e, e.Validate()
}

func (e Line) Kind() Kind           { return KindLine }
func (e Line) Probability() float64 { return e.P }

func (e Line) Validate() error {
	if err := checkProbability(e.P); err != nil {
		return err
	}
	if err := e.Thickness.Validate(); err != nil {
		return fmt.Errorf("thickness: %w", err)
	}
	if err := checkPositive("thickness", e.Thickness.Low); err != nil {
		return err
	}
	if len(e.PosP) != NumPositions {
		return fmt.Errorf("line_pos_p: %w: expected %d weights, got %d", param.ErrInvalidRange, NumPositions, len(e.PosP))
	}
	var sum float64
	for i, w := range e.PosP {
		if err := param.ValidateProbability(w); err != nil {
			return fmt.Errorf("line_pos_p[%s]: %w", Position(i), err)
		}
		sum += w
	}
	if sum == 0 {
		return fmt.Errorf("line_pos_p: %w: all weights are zero", param.ErrInvalidRange)
	}
	return nil
}

// Active returns the selected anchor when PosP is one-hot.
func (e Line) Active() (Position, bool) {
	found := -1
	for i, w := range e.PosP {
		switch w {
		case 0:
		case 1:
			if found >= 0 {
				return Top, false
			}
			found = i
		default:
			return Top, false
		}
	}
	if found < 0 {
		return Top, false
	}
	return Position(found), true
}
