package plan

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ByLCY/textforge/catalog"
	"github.com/ByLCY/textforge/config"
	"github.com/ByLCY/textforge/corpus"
	"github.com/ByLCY/textforge/dsl"
	"github.com/ByLCY/textforge/effect"
	"github.com/ByLCY/textforge/layout"
	"github.com/ByLCY/textforge/param"
)

// customJob 是 job 段编译后的结果。语句在编译期全部解析完，
// build 只负责按固定顺序把覆盖项应用到新构造的默认任务上。
type customJob struct {
	name     string
	defaults config.Defaults
	corpora  []corpus.Descriptor
	corpusFx []effect.Effect
	layoutFx []effect.Effect
	layout   *layout.Descriptor
	opts     []config.Option
	spacing  *float64
}

func (j *customJob) build() ([]config.Job, error) {
	var c config.Corpus
	switch {
	case j.layout != nil || len(j.corpora) > 1:
		c = config.Sequence(j.corpora...)
	default:
		c = config.Single(j.corpora[0])
	}

	opts := append([]config.Option(nil), j.opts...)
	if j.layout != nil {
		opts = append(opts, config.WithLayout(*j.layout))
	}
	if len(j.corpusFx) > 0 {
		p, err := effect.NewPipeline(j.corpusFx...)
		if err != nil {
			return nil, err
		}
		opts = append(opts, config.WithCorpusEffects(p))
	}
	if len(j.layoutFx) > 0 {
		p, err := effect.NewPipeline(j.layoutFx...)
		if err != nil {
			return nil, err
		}
		opts = append(opts, config.WithLayoutEffects(p))
	}
	// 字间距作用于最终的语料，必须最后应用
	if j.spacing != nil {
		opts = append(opts, config.WithCharSpacing(*j.spacing))
	}

	job, err := j.defaults.Job(j.name, c, opts...)
	if err != nil {
		return nil, err
	}
	return []config.Job{job}, nil
}

func compileJob(section *dsl.JobSection, cat *catalog.Catalog, s scope) (*customJob, error) {
	if err := config.ValidateName(section.Name); err != nil {
		return nil, fmt.Errorf("%s: %w", section.Pos, err)
	}
	job := &customJob{name: section.Name, defaults: cat.Defaults()}
	env := cat.Env()

	// 语料按文档顺序收集：版式的槽位顺序取决于它
	if section.Block == nil {
		return nil, invalid(section.Pos, "job %s has no body", section.Name)
	}
	for _, st := range section.Block.Statements {
		switch {
		case st.Assignment != nil:
			if err := job.assign(st.Assignment, cat, s); err != nil {
				return nil, err
			}
		case st.Command != nil:
			if err := job.command(st.Command, env, s); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("%w: %s: unexpected text literal in job %s", ErrInvalidStatement, section.Pos, section.Name)
		}
	}

	if len(job.corpora) == 0 {
		d, err := cat.WordCorpus(env.WordCorpus)
		if err != nil {
			return nil, err
		}
		job.corpora = append(job.corpora, d)
	}
	return job, nil
}

func (j *customJob) assign(a *dsl.Assignment, cat *catalog.Catalog, s scope) error {
	switch normalizeKey(a.Key) {
	case "count", "num_image":
		n, err := s.integer(a.Pos, a.Value)
		if err != nil {
			return err
		}
		j.opts = append(j.opts, config.WithNumImage(n))
	case "gray":
		gray, err := s.flag(a.Pos, a.Value)
		if err != nil {
			return err
		}
		j.opts = append(j.opts, config.WithGray(gray))
	case "height":
		h, err := s.integer(a.Pos, a.Value)
		if err != nil {
			return err
		}
		j.opts = append(j.opts, config.WithHeight(h))
	case "char_spacing":
		v, err := s.number(a.Pos, a.Value)
		if err != nil {
			return err
		}
		j.spacing = &v
	case "perspective":
		p, err := s.perspective(a.Pos, a.Value)
		if err != nil {
			return err
		}
		j.opts = append(j.opts, config.WithPerspective(p))
	case "corpus":
		file, err := s.str(a.Pos, a.Value)
		if err != nil {
			return err
		}
		d, err := cat.WordCorpus(file)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidStatement, a.Pos, err)
		}
		j.corpora = append(j.corpora, d)
	default:
		return invalid(a.Pos, "unknown job key %q", a.Key)
	}
	return nil
}

func (j *customJob) command(cmd *dsl.Command, env catalog.Env, s scope) error {
	switch normalizeKey(cmd.Name) {
	case "effect":
		e, err := s.effect(cmd)
		if err != nil {
			return err
		}
		j.corpusFx = append(j.corpusFx, e)
	case "layout_effect":
		e, err := s.effect(cmd)
		if err != nil {
			return err
		}
		j.layoutFx = append(j.layoutFx, e)
	case "layout":
		if j.layout != nil {
			return invalid(cmd.Pos, "layout declared twice")
		}
		l, err := s.layout(cmd)
		if err != nil {
			return err
		}
		j.layout = &l
	case "corpus":
		d, err := s.corpus(cmd, env)
		if err != nil {
			return err
		}
		j.corpora = append(j.corpora, d)
	default:
		return invalid(cmd.Pos, "unknown job command %q", cmd.Name)
	}
	return nil
}

// params 把命令块中的赋值按规范化键名收集起来，重复的键视为错误。
func params(cmd *dsl.Command) (map[string]*dsl.Assignment, error) {
	as, err := assignments(cmd.Block)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*dsl.Assignment, len(as))
	for _, a := range as {
		key := normalizeKey(a.Key)
		if _, dup := out[key]; dup {
			return nil, invalid(a.Pos, "duplicate key %q", a.Key)
		}
		out[key] = a
	}
	return out, nil
}

// reader 按键读取参数，缺省时返回默认值；读取过的键会被移出 map，
// 剩下的键在 done 中报告为未知键。
type reader struct {
	s   scope
	cmd *dsl.Command
	m   map[string]*dsl.Assignment
	err error
}

func (r *reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *reader) take(key string) *dsl.Assignment {
	a, ok := r.m[key]
	if !ok {
		return nil
	}
	delete(r.m, key)
	return a
}

func (r *reader) number(key string, def float64) float64 {
	a := r.take(key)
	if a == nil {
		return def
	}
	v, err := r.s.number(a.Pos, a.Value)
	r.fail(err)
	return v
}

func (r *reader) integer(key string, def int) int {
	a := r.take(key)
	if a == nil {
		return def
	}
	v, err := r.s.integer(a.Pos, a.Value)
	r.fail(err)
	return v
}

func (r *reader) flag(key string, def bool) bool {
	a := r.take(key)
	if a == nil {
		return def
	}
	v, err := r.s.flag(a.Pos, a.Value)
	r.fail(err)
	return v
}

func (r *reader) floatRange(key string, def param.Range[float64]) param.Range[float64] {
	a := r.take(key)
	if a == nil {
		return def
	}
	v, err := r.s.floatRange(a.Pos, a.Value)
	r.fail(err)
	return v
}

func (r *reader) intRange(key string, def param.Range[int]) param.Range[int] {
	a := r.take(key)
	if a == nil {
		return def
	}
	v, err := r.s.intRange(a.Pos, a.Value)
	r.fail(err)
	return v
}

func (r *reader) required(key string) bool {
	if _, ok := r.m[key]; !ok {
		r.fail(invalid(r.cmd.Pos, "%s requires %q", r.cmd.Name, key))
		return false
	}
	return true
}

func (r *reader) done() error {
	if r.err != nil {
		return r.err
	}
	if len(r.m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(r.m))
	for key := range r.m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return invalid(r.m[keys[0]].Pos, "unknown parameter %q for %s", keys[0], r.cmd.Name)
}

// effect 解析 `effect <kind> [name] { ... }`。p 缺省为 1。
func (s scope) effect(cmd *dsl.Command) (effect.Effect, error) {
	if len(cmd.Args) == 0 {
		return nil, invalid(cmd.Pos, "%s requires a kind", cmd.Name)
	}
	kind := normalizeKey(cmd.Args[0].Value)
	m, err := params(cmd)
	if err != nil {
		return nil, err
	}
	r := &reader{s: s, cmd: cmd, m: m}
	if kind != "augment" && len(cmd.Args) > 1 {
		return nil, invalid(cmd.Pos, "effect %s takes no name", kind)
	}

	var e effect.Effect
	var buildErr error
	switch kind {
	case "dropout_rand":
		r.required("ratio")
		p := r.number("p", 1)
		e, buildErr = effect.NewDropoutRand(p, r.floatRange("ratio", param.Range[float64]{}))
	case "dropout_horizontal", "dropout_vertical":
		r.required("num_line")
		p := r.number("p", 1)
		numLine := r.integer("num_line", 0)
		thickness := r.integer("thickness", effect.DefaultDropoutThickness)
		if kind == "dropout_horizontal" {
			e, buildErr = effect.NewDropoutHorizontal(p, numLine, thickness)
		} else {
			e, buildErr = effect.NewDropoutVertical(p, numLine, thickness)
		}
	case "line":
		p := r.number("p", 1)
		thickness := r.intRange("thickness", param.Between(3, 4))
		weights, err := s.lineWeights(r)
		if err != nil {
			return nil, err
		}
		e, buildErr = effect.NewLine(p, thickness, weights)
	case "padding":
		p := r.number("p", 1)
		w := r.floatRange("w_ratio", param.Fixed(0.0))
		h := r.floatRange("h_ratio", param.Fixed(0.0))
		e, buildErr = effect.NewPadding(p, w, h, r.flag("center", false))
	case "curve":
		r.required("period")
		r.required("amplitude")
		p := r.number("p", 1)
		e, buildErr = effect.NewCurve(p, r.integer("period", 0), r.intRange("amplitude", param.Range[int]{}))
	case "augment":
		if len(cmd.Args) != 2 {
			return nil, invalid(cmd.Pos, "augment requires exactly one augmenter name")
		}
		p := r.number("p", 1)
		extra := map[string]param.Range[float64]{}
		for key := range r.m {
			extra[key] = r.floatRange(key, param.Range[float64]{})
		}
		e, buildErr = effect.NewAugment(p, cmd.Args[1].Value, extra)
	default:
		return nil, invalid(cmd.Pos, "unknown effect %q", cmd.Args[0].Value)
	}
	if err := r.done(); err != nil {
		return nil, err
	}
	if buildErr != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidStatement, cmd.Pos, buildErr)
	}
	return e, nil
}

// lineWeights 接受 position（单个位置）或 weights（8 个权重），两者只能选一；都缺省时只画在下方。
func (s scope) lineWeights(r *reader) ([]float64, error) {
	pos := r.take("position")
	weights := r.take("weights")
	switch {
	case pos != nil && weights != nil:
		return nil, invalid(pos.Pos, "position and weights are mutually exclusive")
	case weights != nil:
		return s.floats(weights.Pos, weights.Value)
	case pos != nil:
		name, err := s.str(pos.Pos, pos.Value)
		if err != nil {
			return nil, err
		}
		p, err := effect.ParsePosition(normalizeKey(name))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidStatement, pos.Pos, err)
		}
		return effect.OneHot(p), nil
	default:
		return effect.OneHot(effect.Bottom), nil
	}
}

// layout 解析 `layout same-line` 或 `layout extra-text-line { bottom-prob: p }`。
func (s scope) layout(cmd *dsl.Command) (layout.Descriptor, error) {
	if len(cmd.Args) != 1 {
		return layout.Descriptor{}, invalid(cmd.Pos, "layout requires exactly one kind")
	}
	m, err := params(cmd)
	if err != nil {
		return layout.Descriptor{}, err
	}
	r := &reader{s: s, cmd: cmd, m: m}

	var d layout.Descriptor
	var buildErr error
	switch normalizeKey(cmd.Args[0].Value) {
	case "same_line":
		d = layout.NewSameLine()
	case "extra_text_line":
		d, buildErr = layout.NewExtraTextLine(r.number("bottom_prob", 0.5))
	default:
		return layout.Descriptor{}, invalid(cmd.Pos, "unknown layout %q", cmd.Args[0].Value)
	}
	if err := r.done(); err != nil {
		return layout.Descriptor{}, err
	}
	if buildErr != nil {
		return layout.Descriptor{}, fmt.Errorf("%w: %s: %w", ErrInvalidStatement, cmd.Pos, buildErr)
	}
	return d, nil
}

// corpus 解析 `corpus { text; chars; kind; font-size; words; char-spacing }`，
// 相对路径分别相对于语料目录与字符集目录。
func (s scope) corpus(cmd *dsl.Command, env catalog.Env) (corpus.Descriptor, error) {
	if len(cmd.Args) > 0 {
		return corpus.Descriptor{}, invalid(cmd.Pos, "corpus takes no arguments")
	}
	m, err := params(cmd)
	if err != nil {
		return corpus.Descriptor{}, err
	}
	r := &reader{s: s, cmd: cmd, m: m}
	if !r.required("text") {
		return corpus.Descriptor{}, r.err
	}

	textAssign := r.take("text")
	files, err := s.strs(textAssign.Pos, textAssign.Value)
	if err != nil {
		return corpus.Descriptor{}, err
	}
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = env.TextPath(f)
	}

	font := env.Font()
	font.Size = r.intRange("font_size", font.Size)
	font.NumWord = r.intRange("words", font.NumWord)

	var opts []corpus.Option
	if a := r.take("chars"); a != nil {
		name, err := s.str(a.Pos, a.Value)
		if err != nil {
			return corpus.Descriptor{}, err
		}
		opts = append(opts, corpus.WithCharFilter(env.CharPath(name)))
	}
	if a := r.take("kind"); a != nil {
		name, err := s.str(a.Pos, a.Value)
		if err != nil {
			return corpus.Descriptor{}, err
		}
		k, err := corpus.ParseKind(strings.ToLower(name))
		if err != nil {
			return corpus.Descriptor{}, fmt.Errorf("%w: %s: %w", ErrInvalidStatement, a.Pos, err)
		}
		opts = append(opts, corpus.WithKind(k))
	}
	if _, ok := r.m["char_spacing"]; ok {
		opts = append(opts, corpus.WithCharSpacing(r.number("char_spacing", 0)))
	}
	if err := r.done(); err != nil {
		return corpus.Descriptor{}, err
	}

	d, err := corpus.New(paths, font, opts...)
	if err != nil {
		return corpus.Descriptor{}, fmt.Errorf("%w: %s: %w", ErrInvalidStatement, cmd.Pos, err)
	}
	return d, nil
}
