// Package plan 把解析后的实验文件编译为经过校验的任务清单。
package plan

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
	"go.uber.org/zap"

	"github.com/ByLCY/textforge/binding"
	"github.com/ByLCY/textforge/catalog"
	"github.com/ByLCY/textforge/config"
	"github.com/ByLCY/textforge/dsl"
	"github.com/ByLCY/textforge/registry"
)

// ErrInvalidStatement 表示实验文件中的语句无法被理解（未知键、类型错误等）。
var ErrInvalidStatement = errors.New("plan: invalid statement")

// StandardRun 是 run 段中展开为标准效果实验的特殊名字。
const StandardRun = "standard"

// Options 配置编译阶段的依赖。
type Options struct {
	// BaseDir 是相对路径 paths.data 的基准目录，为空时使用当前工作目录。
	BaseDir string
	// DataDir 在实验文件没有声明 paths.data 时使用。
	DataDir string
	Logger  *zap.Logger
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// Plan 是编译结果：实验信息、解析后的环境与组装好的任务清单。
type Plan struct {
	Name     string
	Version  string
	Meta     registry.Meta
	Env      catalog.Env
	Registry *registry.Registry
}

// Manifest 为本次运行生成清单。
func (p *Plan) Manifest() registry.Manifest {
	return registry.NewManifest(p.Registry, p.Meta)
}

// CompileFile 读取并编译实验文件；未设置 BaseDir 时以文件所在目录为基准。
func CompileFile(path string, vars binding.Vars, opts Options) (*Plan, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开实验文件失败: %w", err)
	}
	defer f.Close()

	doc, err := dsl.Parse(path, f)
	if err != nil {
		return nil, fmt.Errorf("解析实验文件失败: %w", err)
	}
	if opts.BaseDir == "" {
		opts.BaseDir = filepath.Dir(path)
	}
	return Compile(doc, vars, opts)
}

// Compile 根据 AST 生成任务清单。meta/paths/defaults 可以出现在任意位置，
// run 与 job 段按文档顺序组装。
func Compile(doc *dsl.Document, vars binding.Vars, opts Options) (*Plan, error) {
	if doc == nil {
		return nil, fmt.Errorf("文档为空")
	}
	log := opts.logger().With(zap.String("experiment", doc.Name))
	s := scope{vars: vars}

	meta, err := collectMeta(doc, s)
	if err != nil {
		return nil, err
	}
	env, err := collectEnv(doc, s, opts)
	if err != nil {
		return nil, err
	}
	cat, err := catalog.New(env)
	if err != nil {
		return nil, err
	}

	var entries []registry.Entry
	for _, section := range doc.Sections {
		switch {
		case section.Run != nil:
			run, err := runEntries(section.Run, cat)
			if err != nil {
				return nil, err
			}
			entries = append(entries, run...)
		case section.Job != nil:
			job, err := compileJob(section.Job, cat, s)
			if err != nil {
				return nil, err
			}
			log.Debug("custom job compiled", zap.String("job", section.Job.Name))
			entries = append(entries, registry.Entry{Name: section.Job.Name, Build: job.build})
		}
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("plan: experiment %s has no run or job section", doc.Name)
	}

	reg, err := registry.Assemble(entries...)
	if err != nil {
		return nil, err
	}
	log.Info("plan compiled",
		zap.Int("builders", len(entries)),
		zap.Int("jobs", reg.Len()),
		zap.Int("images", reg.TotalImages()),
		zap.String("output", cat.Env().OutputDir),
	)

	return &Plan{
		Name:     doc.Name,
		Version:  doc.Version,
		Meta:     meta,
		Env:      cat.Env(),
		Registry: reg,
	}, nil
}

func collectMeta(doc *dsl.Document, s scope) (registry.Meta, error) {
	meta := registry.Meta{Title: doc.Name}
	for _, section := range doc.Sections {
		if section.Meta == nil {
			continue
		}
		as, err := assignments(section.Meta.Block)
		if err != nil {
			return meta, err
		}
		for _, a := range as {
			var err error
			switch normalizeKey(a.Key) {
			case "title":
				meta.Title, err = s.str(a.Pos, a.Value)
			case "author":
				meta.Author, err = s.str(a.Pos, a.Value)
			case "subject":
				meta.Subject, err = s.str(a.Pos, a.Value)
			case "keywords":
				meta.Keywords, err = s.strs(a.Pos, a.Value)
			default:
				err = invalid(a.Pos, "unknown meta key %q", a.Key)
			}
			if err != nil {
				return meta, err
			}
		}
	}
	return meta, nil
}

// collectEnv 先确定数据根目录，再套用其余路径与共享默认值。
// 除 data 外的相对路径都相对于数据根目录。
func collectEnv(doc *dsl.Document, s scope, opts Options) (catalog.Env, error) {
	var pathAssignments []*dsl.Assignment
	var defaultAssignments []*dsl.Assignment
	for _, section := range doc.Sections {
		switch {
		case section.Paths != nil:
			as, err := assignments(section.Paths.Block)
			if err != nil {
				return catalog.Env{}, err
			}
			pathAssignments = append(pathAssignments, as...)
		case section.Defaults != nil:
			as, err := assignments(section.Defaults.Block)
			if err != nil {
				return catalog.Env{}, err
			}
			defaultAssignments = append(defaultAssignments, as...)
		}
	}

	dataDir := opts.DataDir
	if dataDir == "" {
		dataDir = opts.BaseDir
	}
	for _, a := range pathAssignments {
		if normalizeKey(a.Key) != "data" {
			continue
		}
		v, err := s.str(a.Pos, a.Value)
		if err != nil {
			return catalog.Env{}, err
		}
		dataDir = within(opts.BaseDir, v)
	}

	env := catalog.NewEnv(dataDir)
	for _, a := range pathAssignments {
		key := normalizeKey(a.Key)
		if key == "data" {
			continue
		}
		v, err := s.str(a.Pos, a.Value)
		if err != nil {
			return catalog.Env{}, err
		}
		p := within(dataDir, v)
		switch key {
		case "output":
			env.OutputDir = p
		case "background", "bg":
			env.BgDir = p
		case "font":
			env.FontDir = p
		case "font_list":
			env.FontListFile = p
		case "text", "corpus":
			env.TextDir = p
		case "chars", "char":
			env.CharDir = p
		default:
			return catalog.Env{}, invalid(a.Pos, "unknown path %q", a.Key)
		}
	}

	for _, a := range defaultAssignments {
		var err error
		switch normalizeKey(a.Key) {
		case "count", "num_image":
			env.NumImage, err = s.integer(a.Pos, a.Value)
		case "font_size":
			env.FontSize, err = s.intRange(a.Pos, a.Value)
		case "words", "num_word":
			env.NumWord, err = s.intRange(a.Pos, a.Value)
		case "corpus":
			env.WordCorpus, err = s.str(a.Pos, a.Value)
		case "perspective":
			env.Perspective, err = s.perspective(a.Pos, a.Value)
		default:
			err = invalid(a.Pos, "unknown default %q", a.Key)
		}
		if err != nil {
			return catalog.Env{}, err
		}
	}
	if env.NumImage <= 0 {
		return catalog.Env{}, fmt.Errorf("%w: count must be positive, got %d", ErrInvalidStatement, env.NumImage)
	}
	return env, nil
}

// perspective 解析 { mode: norm|fixed; x; y; z; scale; fovy }。
func (s scope) perspective(pos lexer.Position, val *dsl.Value) (config.Perspective, error) {
	entries, err := objectEntries(pos, val)
	if err != nil {
		return config.Perspective{}, err
	}
	mode := config.PerspectiveNorm
	var x, y, z float64
	var scale, fovy *float64
	for _, e := range entries {
		key := normalizeKey(e.Key)
		if key == "mode" {
			m, err := s.str(e.Pos, e.Value)
			if err != nil {
				return config.Perspective{}, err
			}
			switch strings.ToLower(m) {
			case "norm", "normal", "random":
				mode = config.PerspectiveNorm
			case "fixed":
				mode = config.PerspectiveFixed
			default:
				return config.Perspective{}, invalid(e.Pos, "unknown perspective mode %q", m)
			}
			continue
		}
		f, err := s.number(e.Pos, e.Value)
		if err != nil {
			return config.Perspective{}, err
		}
		switch key {
		case "x":
			x = f
		case "y":
			y = f
		case "z":
			z = f
		case "scale":
			scale = &f
		case "fovy":
			fovy = &f
		default:
			return config.Perspective{}, invalid(e.Pos, "unknown perspective key %q", e.Key)
		}
	}
	p := config.NormPerspective(x, y, z)
	if mode == config.PerspectiveFixed {
		p = config.FixedPerspective(x, y, z)
	}
	if scale != nil {
		p.Scale = *scale
	}
	if fovy != nil {
		p.FovY = *fovy
	}
	if err := p.Validate(); err != nil {
		return config.Perspective{}, fmt.Errorf("%w: %s: %w", ErrInvalidStatement, pos, err)
	}
	return p, nil
}

func runEntries(section *dsl.RunSection, cat *catalog.Catalog) ([]registry.Entry, error) {
	var out []registry.Entry
	for _, st := range section.Block.Statements {
		if st.Command == nil {
			return nil, fmt.Errorf("%w: run section only accepts builder names", ErrInvalidStatement)
		}
		cmd := st.Command
		if len(cmd.Args) > 0 || cmd.Block != nil {
			return nil, invalid(cmd.Pos, "builder %q takes no arguments", cmd.Name)
		}
		if cmd.Name == StandardRun {
			out = append(out, cat.Standard()...)
			continue
		}
		entry, err := cat.Lookup(cmd.Name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", cmd.Pos, err)
		}
		out = append(out, entry)
	}
	return out, nil
}

func within(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// Standard 不读实验文件，直接以 env 组装标准效果实验。
func Standard(env catalog.Env, opts Options) (*Plan, error) {
	cat, err := catalog.New(env)
	if err != nil {
		return nil, err
	}
	reg, err := registry.Assemble(cat.Standard()...)
	if err != nil {
		return nil, err
	}
	opts.logger().Info("standard plan assembled",
		zap.Int("jobs", reg.Len()),
		zap.Int("images", reg.TotalImages()),
		zap.String("output", cat.Env().OutputDir),
	)
	return &Plan{
		Name:     StandardRun,
		Version:  "v1",
		Meta:     registry.Meta{Title: "Standard effect experiments"},
		Env:      cat.Env(),
		Registry: reg,
	}, nil
}
