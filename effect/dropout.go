package effect

import "github.com/ByLCY/textforge/param"

// DefaultDropoutThickness is used when a line dropout does not set a thickness.
const DefaultDropoutThickness = 3

// DropoutRand 随机丢弃文字区域的像素，Ratio 为丢弃比例。
type DropoutRand struct {
	P     float64              `json:"p" yaml:"p"`
	Ratio param.Range[float64] `json:"dropout_p" yaml:"dropout_p"`
}

// NewDropoutRand validates p and the dropout ratio range.
func NewDropoutRand(p float64, ratio param.Range[float64]) (DropoutRand, error) {
	e := DropoutRand{P: p, Ratio: ratio}
	return e, e.Validate()
}

func (e DropoutRand) Kind() Kind           { return KindDropoutRand }
func (e DropoutRand) Probability() float64 { return e.P }

func (e DropoutRand) Validate() error {
	if err := checkProbability(e.P); err != nil {
		return err
	}
	return checkRatio("dropout_p", e.Ratio)
}

// DropoutHorizontal 丢弃若干条水平像素行。
type DropoutHorizontal struct {
	P         float64 `json:"p" yaml:"p"`
	NumLine   int     `json:"num_line" yaml:"num_line"`
	Thickness int     `json:"thickness" yaml:"thickness"`
}

// NewDropoutHorizontal validates the line count and thickness.
func NewDropoutHorizontal(p float64, numLine, thickness int) (DropoutHorizontal, error) {
	e := DropoutHorizontal{P: p, NumLine: numLine, Thickness: thickness}
	return e, e.Validate()
}

func (e DropoutHorizontal) Kind() Kind           { return KindDropoutHorizontal }
func (e DropoutHorizontal) Probability() float64 { return e.P }

func (e DropoutHorizontal) Validate() error {
	return validateLineDropout(e.P, e.NumLine, e.Thickness)
}

// DropoutVertical 丢弃若干条竖直像素列。
type DropoutVertical struct {
	P         float64 `json:"p" yaml:"p"`
	NumLine   int     `json:"num_line" yaml:"num_line"`
	Thickness int     `json:"thickness" yaml:"thickness"`
}

// NewDropoutVertical validates the line count and thickness.
func NewDropoutVertical(p float64, numLine, thickness int) (DropoutVertical, error) {
	e := DropoutVertical{P: p, NumLine: numLine, Thickness: thickness}
	return e, e.Validate()
}

func (e DropoutVertical) Kind() Kind           { return KindDropoutVertical }
func (e DropoutVertical) Probability() float64 { return e.P }

func (e DropoutVertical) Validate() error {
	return validateLineDropout(e.P, e.NumLine, e.Thickness)
}

func validateLineDropout(p float64, numLine, thickness int) error {
	if err := checkProbability(p); err != nil {
		return err
	}
	if err := checkPositive("num_line", numLine); err != nil {
		return err
	}
	return checkPositive("thickness", thickness)
}
