// Package config 组合各类描述符，生成外部渲染器消费的任务配置。
//
// 所有任务都按"构造默认值 → 应用覆盖 → 冻结"的顺序产生：
// Defaults.Job 每次返回全新的值，Option 只作用于这份新值，
// 返回后的 Job 不再被修改；需要调整时通过 Job.With 得到新的 Job。
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ByLCY/textforge/corpus"
	"github.com/ByLCY/textforge/effect"
	"github.com/ByLCY/textforge/layout"
	"github.com/ByLCY/textforge/param"
)

// ErrInvalidName 表示任务名不能直接作为输出路径的一段。
var ErrInvalidName = errors.New("config: invalid job name")

// DefaultNumImage 是未指定时每个任务生成的图片数量。
const DefaultNumImage = 5

// Job 是一个完整、自洽的生成任务：在 SaveDir 下生成 NumImage 张图片。
type Job struct {
	Name     string    `json:"name" yaml:"name"`
	NumImage int       `json:"num_image" yaml:"num_image"`
	SaveDir  string    `json:"save_dir" yaml:"save_dir"`
	Render   RenderCfg `json:"render_cfg" yaml:"render_cfg"`
}

// Validate 校验任务本身与其渲染配方。
func (j Job) Validate() error {
	if err := ValidateName(j.Name); err != nil {
		return err
	}
	if j.NumImage <= 0 {
		return fmt.Errorf("config: job %s: %w: num_image must be positive, got %d", j.Name, param.ErrInvalidRange, j.NumImage)
	}
	if j.SaveDir == "" {
		return fmt.Errorf("config: job %s: save_dir is empty", j.Name)
	}
	if err := j.Render.Validate(); err != nil {
		return fmt.Errorf("config: job %s: %w", j.Name, err)
	}
	return nil
}

// Clone 返回深拷贝。
func (j Job) Clone() Job {
	out := j
	out.Render = j.Render.Clone()
	return out
}

// With 在副本上应用覆盖并重新校验，原任务保持不变。
func (j Job) With(opts ...Option) (Job, error) {
	out := j.Clone()
	for _, opt := range opts {
		if opt != nil {
			opt(&out)
		}
	}
	if err := out.Validate(); err != nil {
		return Job{}, err
	}
	return out, nil
}

// WithCharSpacing 返回只改动了字间距的新任务。
func (j Job) WithCharSpacing(v float64) (Job, error) { return j.With(WithCharSpacing(v)) }

// ValidateName 校验任务名：非空、不是 "." 或 ".."，且不含路径分隔符。
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: name is empty", ErrInvalidName)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, filepath.Separator):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	}
	return nil
}

// Defaults 是所有任务共享的默认值：输出根目录、背景目录、数量与透视变换。
type Defaults struct {
	OutputDir   string
	BgDir       string
	NumImage    int
	Perspective Perspective
}

// Option 在冻结前调整一份新构造的任务。
type Option func(*Job)

// Job 为 name 构造默认任务：输出目录为 OutputDir/name，默认灰度、无效果、无版式。
// 不会创建任何目录，目录由渲染器负责。
func (d Defaults) Job(name string, c Corpus, opts ...Option) (Job, error) {
	if err := ValidateName(name); err != nil {
		return Job{}, err
	}
	numImage := d.NumImage
	if numImage == 0 {
		numImage = DefaultNumImage
	}
	job := Job{
		Name:     name,
		NumImage: numImage,
		SaveDir:  filepath.Join(d.OutputDir, name),
		Render: RenderCfg{
			BgDir:       d.BgDir,
			Corpus:      c.mapItems(func(cd corpus.Descriptor) corpus.Descriptor { return cd }),
			Color:       Gray,
			Perspective: d.Perspective,
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&job)
		}
	}
	if err := job.Validate(); err != nil {
		return Job{}, err
	}
	return job, nil
}

// WithCorpus 替换语料字段（例如换成多语料序列）。
func WithCorpus(c Corpus) Option {
	return func(j *Job) { j.Render.Corpus = c.mapItems(func(d corpus.Descriptor) corpus.Descriptor { return d }) }
}

// WithCorpusEffects 设置作用于文字的效果链。
func WithCorpusEffects(p effect.Pipeline) Option {
	return func(j *Job) { j.Render.CorpusEffects = &p }
}

// WithLayoutEffects 设置作用于版式拼接结果的效果链。
func WithLayoutEffects(p effect.Pipeline) Option {
	return func(j *Job) { j.Render.LayoutEffects = &p }
}

// WithLayout 设置多语料版式；语料需同时是匹配长度的序列。
func WithLayout(l layout.Descriptor) Option {
	return func(j *Job) { j.Render.Layout = &l }
}

// WithGray 设置灰度（true）或彩色（false）输出。
func WithGray(gray bool) Option {
	return func(j *Job) {
		if gray {
			j.Render.Color = Gray
		} else {
			j.Render.Color = Color
		}
	}
}

// WithPerspective 替换默认透视变换。
func WithPerspective(p Perspective) Option {
	return func(j *Job) { j.Render.Perspective = p }
}

// WithHeight 固定输出图片高度（像素）。
func WithHeight(h int) Option {
	return func(j *Job) { j.Render.Height = &h }
}

// WithNumImage 覆盖生成数量。
func WithNumImage(n int) Option {
	return func(j *Job) { j.NumImage = n }
}

// WithCharSpacing 设置每个语料的字间距（负数更紧凑，正数更松散）。
// 重复应用同一个值与应用一次结果相同。
func WithCharSpacing(v float64) Option {
	return func(j *Job) {
		j.Render.Corpus = j.Render.Corpus.mapItems(func(d corpus.Descriptor) corpus.Descriptor {
			return d.SpacedBy(v)
		})
	}
}
