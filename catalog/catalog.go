// Package catalog 提供实验中使用的具名任务构造函数（各类效果、版式、颜色、透视与字间距），
// 每个构造函数都绑定到同一个 Env，并以自己的名字命名输出目录。
package catalog

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ByLCY/textforge/config"
	"github.com/ByLCY/textforge/corpus"
	"github.com/ByLCY/textforge/effect"
	"github.com/ByLCY/textforge/layout"
	"github.com/ByLCY/textforge/param"
	"github.com/ByLCY/textforge/registry"
)

// ErrUnknownBuilder 表示按名字找不到构造函数。
var ErrUnknownBuilder = errors.New("catalog: unknown builder")

// 构造函数名，同时也是输出目录名（line 会追加位置后缀）。
const (
	NameFijiWordData         = "fiji_word_data"
	NameDropoutRand          = "dropout_rand"
	NameDropoutHorizontal    = "dropout_horizontal"
	NameDropoutVertical      = "dropout_vertical"
	NameLine                 = "line"
	NamePadding              = "padding"
	NameCurve                = "curve"
	NameEmboss               = "emboss"
	NameExtraTextLineLayout  = "extra_text_line_layout"
	NameColorImage           = "color_image"
	NamePerspectiveTransform = "perspective_transform"
	NameCompactCharSpacing   = "compact_char_spacing"
	NameLargeCharSpacing     = "large_char_spacing"
)

// aliases 兼容旧实验文件中出现过的写法，解析到同一个构造函数。
var aliases = map[string]string{
	"char_spacing_compact": NameCompactCharSpacing,
	"char_spacing_large":   NameLargeCharSpacing,
}

// Catalog 持有解析后的 Env 与共享默认值。
type Catalog struct {
	env      Env
	defaults config.Defaults
	builders map[string]registry.Builder
	order    []string
}

// New 解析 env 中的路径并注册全部构造函数。
func New(env Env) (*Catalog, error) {
	resolved, err := env.Resolve()
	if err != nil {
		return nil, err
	}
	c := &Catalog{
		env: resolved,
		defaults: config.Defaults{
			OutputDir:   resolved.OutputDir,
			BgDir:       resolved.BgDir,
			NumImage:    resolved.NumImage,
			Perspective: resolved.Perspective,
		},
	}
	c.register(NameFijiWordData, c.FijiWordData)
	c.register(NameDropoutRand, c.DropoutRand)
	c.register(NameDropoutHorizontal, c.DropoutHorizontal)
	c.register(NameDropoutVertical, c.DropoutVertical)
	c.register(NameLine, c.Line)
	c.register(NamePadding, c.Padding)
	c.register(NameCurve, c.Curve)
	c.register(NameEmboss, c.Emboss)
	c.register(NameExtraTextLineLayout, c.ExtraTextLineLayout)
	c.register(NameColorImage, c.ColorImage)
	c.register(NamePerspectiveTransform, c.PerspectiveTransform)
	c.register(NameCompactCharSpacing, c.CompactCharSpacing)
	c.register(NameLargeCharSpacing, c.LargeCharSpacing)
	return c, nil
}

func (c *Catalog) register(name string, b registry.Builder) {
	if c.builders == nil {
		c.builders = map[string]registry.Builder{}
	}
	c.builders[name] = b
	c.order = append(c.order, name)
}

// Env 返回解析后的环境。
func (c *Catalog) Env() Env { return c.env }

// Defaults 返回共享默认值，供自定义任务复用。
func (c *Catalog) Defaults() config.Defaults { return c.defaults }

// Names 按注册顺序列出全部构造函数名。
func (c *Catalog) Names() []string { return append([]string(nil), c.order...) }

// Aliases 列出兼容别名，按字母排序。
func Aliases() []string {
	out := make([]string, 0, len(aliases))
	for name := range aliases {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Lookup 按名字（或兼容别名）返回构造函数，Entry.Name 总是规范名。
func (c *Catalog) Lookup(name string) (registry.Entry, error) {
	if canonical, ok := aliases[name]; ok {
		name = canonical
	}
	b, ok := c.builders[name]
	if !ok {
		return registry.Entry{}, fmt.Errorf("%w: %q", ErrUnknownBuilder, name)
	}
	return registry.Entry{Name: name, Build: b}, nil
}

// Entries 按注册顺序返回全部构造函数。
func (c *Catalog) Entries() []registry.Entry {
	out := make([]registry.Entry, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, registry.Entry{Name: name, Build: c.builders[name]})
	}
	return out
}

// Standard 返回标准效果实验的构造函数序列（line 展开为 8 个任务，共 17 个任务）。
func (c *Catalog) Standard() []registry.Entry {
	names := []string{
		NameEmboss,
		NameExtraTextLineLayout,
		NameCompactCharSpacing,
		NameLargeCharSpacing,
		NameLine,
		NamePerspectiveTransform,
		NameDropoutRand,
		NameDropoutHorizontal,
		NameDropoutVertical,
		NamePadding,
	}
	out := make([]registry.Entry, 0, len(names))
	for _, name := range names {
		out = append(out, registry.Entry{Name: name, Build: c.builders[name]})
	}
	return out
}

// WordCorpus 在 TextDir 下构造一个按词采样的语料，使用共享字体参数。
func (c *Catalog) WordCorpus(file string, opts ...corpus.Option) (corpus.Descriptor, error) {
	return corpus.New([]string{c.env.TextPath(file)}, c.env.Font(), opts...)
}

// Base 用默认语料为 name 构造默认任务。
func (c *Catalog) Base(name string, opts ...config.Option) (config.Job, error) {
	d, err := c.WordCorpus(c.env.WordCorpus)
	if err != nil {
		return config.Job{}, err
	}
	return c.defaults.Job(name, config.Single(d), opts...)
}

func (c *Catalog) single(name string, opts ...config.Option) ([]config.Job, error) {
	job, err := c.Base(name, opts...)
	if err != nil {
		return nil, err
	}
	return []config.Job{job}, nil
}

// withEffects 构造效果链后作为 corpus_effects 应用到默认任务上。
func (c *Catalog) withEffects(name string, build func() ([]effect.Effect, error), opts ...config.Option) ([]config.Job, error) {
	effects, err := build()
	if err != nil {
		return nil, fmt.Errorf("catalog: %s: %w", name, err)
	}
	pipeline, err := effect.NewPipeline(effects...)
	if err != nil {
		return nil, fmt.Errorf("catalog: %s: %w", name, err)
	}
	return c.single(name, append([]config.Option{config.WithCorpusEffects(pipeline)}, opts...)...)
}

// FijiWordData 使用默认的斐济语词语料，不附加任何效果。
func (c *Catalog) FijiWordData() ([]config.Job, error) {
	return c.single(NameFijiWordData)
}

// DropoutRand 以 (0.3, 0.5) 的比例随机丢弃像素。
func (c *Catalog) DropoutRand() ([]config.Job, error) {
	return c.withEffects(NameDropoutRand, func() ([]effect.Effect, error) {
		e, err := effect.NewDropoutRand(1, param.Between(0.3, 0.5))
		return []effect.Effect{e}, err
	})
}

// DropoutHorizontal 丢弃 2 条粗 3 像素的水平线。
func (c *Catalog) DropoutHorizontal() ([]config.Job, error) {
	return c.withEffects(NameDropoutHorizontal, func() ([]effect.Effect, error) {
		e, err := effect.NewDropoutHorizontal(1, 2, 3)
		return []effect.Effect{e}, err
	})
}

// DropoutVertical 丢弃 15 条竖线。
func (c *Catalog) DropoutVertical() ([]config.Job, error) {
	return c.withEffects(NameDropoutVertical, func() ([]effect.Effect, error) {
		e, err := effect.NewDropoutVertical(1, 15, effect.DefaultDropoutThickness)
		return []effect.Effect{e}, err
	})
}

// Line 为每个位置生成一个任务（line_<位置>），每个任务只激活一个位置。
func (c *Catalog) Line() ([]config.Job, error) {
	positions := effect.Positions()
	jobs := make([]config.Job, 0, len(positions))
	for _, pos := range positions {
		name := fmt.Sprintf("%s_%s", NameLine, pos)
		built, err := c.withEffects(name, func() ([]effect.Effect, error) {
			e, err := effect.NewLine(1, param.Between(3, 4), effect.OneHot(pos))
			return []effect.Effect{e}, err
		})
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, built...)
	}
	return jobs, nil
}

func centeredPadding() (effect.Padding, error) {
	return effect.NewPadding(1, param.Between(0.2, 0.21), param.Between(0.7, 0.71), true)
}

// Padding 居中补白，宽度比例 (0.2, 0.21)，高度比例 (0.7, 0.71)。
func (c *Catalog) Padding() ([]config.Job, error) {
	return c.withEffects(NamePadding, func() ([]effect.Effect, error) {
		e, err := centeredPadding()
		return []effect.Effect{e}, err
	})
}

// Curve 先补白再做曲线扭曲，顺序不能颠倒：扭曲需要补白留出的边距。
func (c *Catalog) Curve() ([]config.Job, error) {
	return c.withEffects(NameCurve, func() ([]effect.Effect, error) {
		pad, err := centeredPadding()
		if err != nil {
			return nil, err
		}
		curve, err := effect.NewCurve(1, 180, param.Between(4, 5))
		if err != nil {
			return nil, err
		}
		return []effect.Effect{pad, curve}, nil
	})
}

// Emboss 固定输出高度 48，补白后交给外部增强库做浮雕效果。
func (c *Catalog) Emboss() ([]config.Job, error) {
	return c.withEffects(NameEmboss, func() ([]effect.Effect, error) {
		pad, err := centeredPadding()
		if err != nil {
			return nil, err
		}
		emboss, err := effect.NewAugment(1, "Emboss", map[string]param.Range[float64]{
			"alpha":    param.Between(0.9, 1.0),
			"strength": param.Between(1.5, 1.6),
		})
		if err != nil {
			return nil, err
		}
		return []effect.Effect{pad, emboss}, nil
	}, config.WithHeight(48))
}

// ExtraTextLineLayout 追加一行文字（总在下方），两个槽位都使用按英文字符集过滤的英文语料。
func (c *Catalog) ExtraTextLineLayout() ([]config.Job, error) {
	l, err := layout.NewExtraTextLine(1.0)
	if err != nil {
		return nil, err
	}
	slots := make([]corpus.Descriptor, 0, 2)
	for i := 0; i < 2; i++ {
		d, err := c.WordCorpus("eng_text.txt", corpus.WithCharFilter(c.env.CharPath("eng.txt")))
		if err != nil {
			return nil, err
		}
		slots = append(slots, d)
	}
	return c.single(NameExtraTextLineLayout,
		config.WithLayout(l),
		config.WithCorpus(config.Sequence(slots...)),
	)
}

// ColorImage 输出彩色图片。
func (c *Catalog) ColorImage() ([]config.Job, error) {
	return c.single(NameColorImage, config.WithGray(false))
}

// PerspectiveTransform 用固定参数 (30, 30, 1.5) 替换随机透视变换。
func (c *Catalog) PerspectiveTransform() ([]config.Job, error) {
	return c.single(NamePerspectiveTransform, config.WithPerspective(config.FixedPerspective(30, 30, 1.5)))
}

// CompactCharSpacing 字间距 -0.3。
func (c *Catalog) CompactCharSpacing() ([]config.Job, error) {
	return c.spaced(NameCompactCharSpacing, -0.3)
}

// LargeCharSpacing 字间距 0.5。
func (c *Catalog) LargeCharSpacing() ([]config.Job, error) {
	return c.spaced(NameLargeCharSpacing, 0.5)
}

// spaced 先构造默认任务，再只更新语料的字间距字段。
func (c *Catalog) spaced(name string, spacing float64) ([]config.Job, error) {
	base, err := c.Base(name)
	if err != nil {
		return nil, err
	}
	job, err := base.WithCharSpacing(spacing)
	if err != nil {
		return nil, err
	}
	return []config.Job{job}, nil
}
