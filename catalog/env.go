package catalog

import (
	"fmt"
	"path/filepath"

	"github.com/ByLCY/textforge/config"
	"github.com/ByLCY/textforge/corpus"
	"github.com/ByLCY/textforge/param"
)

// Env 汇总一次实验用到的目录与共享参数。构造 Catalog 时所有路径都会被转换为绝对路径，
// 但不会检查文件是否存在：缺失文件由渲染器在执行阶段报告。
type Env struct {
	DataDir      string
	OutputDir    string
	BgDir        string
	FontDir      string
	FontListFile string
	TextDir      string
	CharDir      string

	// WordCorpus 是默认语料文件名（位于 TextDir 下）。
	WordCorpus string
	// NumImage 是每个任务生成的图片数量。
	NumImage    int
	FontSize    param.Range[int]
	NumWord     param.Range[int]
	Perspective config.Perspective
}

// NewEnv 以 dataDir 为根目录返回默认布局：
// bg/、font/、font_list/font_list.txt、corpus/、char/ 与 output/。
func NewEnv(dataDir string) Env {
	return Env{
		DataDir:      dataDir,
		OutputDir:    filepath.Join(dataDir, "output"),
		BgDir:        filepath.Join(dataDir, "bg"),
		FontDir:      filepath.Join(dataDir, "font"),
		FontListFile: filepath.Join(dataDir, "font_list", "font_list.txt"),
		TextDir:      filepath.Join(dataDir, "corpus"),
		CharDir:      filepath.Join(dataDir, "char"),
		WordCorpus:   "fiji_text.txt",
		NumImage:     config.DefaultNumImage,
		FontSize:     param.Between(30, 31),
		NumWord:      param.Between(1, 3),
		Perspective:  config.NormPerspective(20, 20, 1.5),
	}
}

// Resolve 返回所有路径都为绝对路径的副本，并校验共享参数。
func (e Env) Resolve() (Env, error) {
	out := e
	for _, p := range []*string{
		&out.DataDir, &out.OutputDir, &out.BgDir, &out.FontDir,
		&out.FontListFile, &out.TextDir, &out.CharDir,
	} {
		if *p == "" {
			continue
		}
		abs, err := filepath.Abs(*p)
		if err != nil {
			return Env{}, fmt.Errorf("catalog: resolve %s: %w", *p, err)
		}
		*p = abs
	}
	if out.OutputDir == "" || out.BgDir == "" {
		return Env{}, fmt.Errorf("catalog: output and background directories are required")
	}
	if out.WordCorpus == "" {
		return Env{}, fmt.Errorf("catalog: default word corpus is required")
	}
	if err := out.FontSize.Validate(); err != nil {
		return Env{}, fmt.Errorf("catalog: font size: %w", err)
	}
	if err := out.NumWord.Validate(); err != nil {
		return Env{}, fmt.Errorf("catalog: num word: %w", err)
	}
	if err := out.Perspective.Validate(); err != nil {
		return Env{}, err
	}
	return out, nil
}

// Font 返回共享的字体参数。
func (e Env) Font() corpus.Font {
	return corpus.Font{
		Dir:      e.FontDir,
		ListFile: e.FontListFile,
		Size:     e.FontSize,
		NumWord:  e.NumWord,
	}
}

// TextPath 返回语料文件的路径；绝对路径原样返回。
func (e Env) TextPath(name string) string { return within(e.TextDir, name) }

// CharPath 返回字符集文件的路径；绝对路径原样返回。
func (e Env) CharPath(name string) string { return within(e.CharDir, name) }

func within(dir, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}
