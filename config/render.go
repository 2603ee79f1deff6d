package config

import (
	"errors"
	"fmt"
	"math"

	"github.com/ByLCY/textforge/corpus"
	"github.com/ByLCY/textforge/effect"
	"github.com/ByLCY/textforge/layout"
	"github.com/ByLCY/textforge/param"
)

// ColorMode 决定输出图片是灰度还是彩色。
type ColorMode int

const (
	Gray ColorMode = iota
	Color
)

func (m ColorMode) String() string {
	if m == Color {
		return "color"
	}
	return "gray"
}

// MarshalText implements encoding.TextMarshaler.
func (m ColorMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// PerspectiveMode 区分随机（正态分布）与固定参数的透视变换。
type PerspectiveMode int

const (
	// PerspectiveNorm 中 X/Y/Z 是各轴旋转角度的标准差，每个样本随机抽取。
	PerspectiveNorm PerspectiveMode = iota
	// PerspectiveFixed 中 X/Y/Z 是固定的旋转角度。
	PerspectiveFixed
)

func (m PerspectiveMode) String() string {
	if m == PerspectiveFixed {
		return "fixed"
	}
	return "norm"
}

// MarshalText implements encoding.TextMarshaler.
func (m PerspectiveMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// 透视变换的默认缩放与视场角。
const (
	DefaultPerspectiveScale = 1.0
	DefaultPerspectiveFovY  = 50.0
)

// Perspective 描述透视变换（单位：度）。
type Perspective struct {
	Mode  PerspectiveMode `json:"mode" yaml:"mode"`
	X     float64         `json:"x" yaml:"x"`
	Y     float64         `json:"y" yaml:"y"`
	Z     float64         `json:"z" yaml:"z"`
	Scale float64         `json:"scale" yaml:"scale"`
	FovY  float64         `json:"fovy" yaml:"fovy"`
}

// NormPerspective 返回按正态分布随机的透视变换。
func NormPerspective(x, y, z float64) Perspective {
	return Perspective{Mode: PerspectiveNorm, X: x, Y: y, Z: z, Scale: DefaultPerspectiveScale, FovY: DefaultPerspectiveFovY}
}

// FixedPerspective 返回固定参数的透视变换。
func FixedPerspective(x, y, z float64) Perspective {
	return Perspective{Mode: PerspectiveFixed, X: x, Y: y, Z: z, Scale: DefaultPerspectiveScale, FovY: DefaultPerspectiveFovY}
}

// Validate 校验透视参数。
func (p Perspective) Validate() error {
	for _, v := range []float64{p.X, p.Y, p.Z, p.Scale, p.FovY} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("config: perspective: %w: non-finite value %v", param.ErrInvalidRange, v)
		}
	}
	if p.Mode == PerspectiveNorm && (p.X < 0 || p.Y < 0 || p.Z < 0) {
		return fmt.Errorf("config: perspective: %w: standard deviations must be non-negative", param.ErrInvalidRange)
	}
	if p.Scale <= 0 {
		return fmt.Errorf("config: perspective: %w: scale must be positive", param.ErrInvalidRange)
	}
	if p.FovY <= 0 || p.FovY >= 180 {
		return fmt.Errorf("config: perspective: %w: fovy %v outside (0, 180)", param.ErrInvalidRange, p.FovY)
	}
	return nil
}

// RenderCfg 是单个任务的完整渲染配方。
type RenderCfg struct {
	BgDir         string             `json:"bg_dir" yaml:"bg_dir"`
	Corpus        Corpus             `json:"corpus" yaml:"corpus"`
	CorpusEffects *effect.Pipeline   `json:"corpus_effects,omitempty" yaml:"corpus_effects,omitempty"`
	LayoutEffects *effect.Pipeline   `json:"layout_effects,omitempty" yaml:"layout_effects,omitempty"`
	Layout        *layout.Descriptor `json:"layout,omitempty" yaml:"layout,omitempty"`
	Color         ColorMode          `json:"color_mode" yaml:"color_mode"`
	Perspective   Perspective        `json:"perspective" yaml:"perspective"`
	Height        *int               `json:"height,omitempty" yaml:"height,omitempty"`
}

// Validate 校验渲染配方，包括语料形态与版式的一致性。
func (r RenderCfg) Validate() error {
	if r.BgDir == "" {
		return errors.New("config: bg_dir is required")
	}
	if err := r.Corpus.Validate(); err != nil {
		return err
	}
	if r.Layout != nil {
		if err := r.Layout.Validate(); err != nil {
			return err
		}
	}
	if err := CheckShape(r.Corpus, r.Layout); err != nil {
		return err
	}
	if r.CorpusEffects != nil {
		if err := r.CorpusEffects.Validate(); err != nil {
			return fmt.Errorf("config: corpus_effects: %w", err)
		}
	}
	if r.LayoutEffects != nil {
		if err := r.LayoutEffects.Validate(); err != nil {
			return fmt.Errorf("config: layout_effects: %w", err)
		}
	}
	if err := r.Perspective.Validate(); err != nil {
		return err
	}
	if r.Height != nil && *r.Height <= 0 {
		return fmt.Errorf("config: height: %w: must be positive, got %d", param.ErrInvalidRange, *r.Height)
	}
	return nil
}

// Gray 表示是否输出灰度图。
func (r RenderCfg) Gray() bool { return r.Color == Gray }

// Clone 返回不与原值共享任何可变状态的副本。
func (r RenderCfg) Clone() RenderCfg {
	out := r
	out.Corpus = r.Corpus.mapItems(func(d corpus.Descriptor) corpus.Descriptor { return d })
	if r.CorpusEffects != nil {
		p := *r.CorpusEffects
		out.CorpusEffects = &p
	}
	if r.LayoutEffects != nil {
		p := *r.LayoutEffects
		out.LayoutEffects = &p
	}
	if r.Layout != nil {
		l := *r.Layout
		out.Layout = &l
	}
	if r.Height != nil {
		h := *r.Height
		out.Height = &h
	}
	return out
}
