package effect

import (
	"fmt"

	"github.com/ByLCY/textforge/param"
)

// Padding 在文字四周补白。WRatio/HRatio 是相对文字尺寸的补白比例，
// Center 为 true 时内容居中，否则随机偏移。
type Padding struct {
	P      float64              `json:"p" yaml:"p"`
	WRatio param.Range[float64] `json:"w_ratio" yaml:"w_ratio"`
	HRatio param.Range[float64] `json:"h_ratio" yaml:"h_ratio"`
	Center bool                 `json:"center" yaml:"center"`
}

// NewPadding validates both ratio ranges.
func NewPadding(p float64, wRatio, hRatio param.Range[float64], center bool) (Padding, error) {
	e := Padding{P: p, WRatio: wRatio, HRatio: hRatio, Center: center}
	return e, e.Validate()
}

func (e Padding) Kind() Kind           { return KindPadding }
func (e Padding) Probability() float64 { return e.P }

func (e Padding) Validate() error {
	if err := checkProbability(e.P); err != nil {
		return err
	}
	if err := checkNonNegative("w_ratio", e.WRatio); err != nil {
		return err
	}
	return checkNonNegative("h_ratio", e.HRatio)
}

// Curve 以正弦曲线扭曲文字。通常放在 Padding 之后，让扭曲有边距可用。
type Curve struct {
	P         float64          `json:"p" yaml:"p"`
	Period    int              `json:"period" yaml:"period"`
	Amplitude param.Range[int] `json:"amplitude" yaml:"amplitude"`
}

// NewCurve validates the period and amplitude range.
func NewCurve(p float64, period int, amplitude param.Range[int]) (Curve, error) {
	e := Curve{P: p, Period: period, Amplitude: amplitude}
	return e, e.Validate()
}

func (e Curve) Kind() Kind           { return KindCurve }
func (e Curve) Probability() float64 { return e.P }

func (e Curve) Validate() error {
	if err := checkProbability(e.P); err != nil {
		return err
	}
	if err := checkPositive("period", e.Period); err != nil {
		return err
	}
	if err := e.Amplitude.Validate(); err != nil {
		return fmt.Errorf("amplitude: %w", err)
	}
	if e.Amplitude.Low < 0 {
		return fmt.Errorf("amplitude: %w: %s is negative", param.ErrInvalidRange, e.Amplitude)
	}
	return nil
}
