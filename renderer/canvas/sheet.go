package canvasrenderer

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ByLCY/textforge/config"
	"github.com/ByLCY/textforge/effect"
	"github.com/ByLCY/textforge/layout"
	"github.com/ByLCY/textforge/plan"
)

// Block 是审阅页上的一个信息块：一行标题加若干正文行。
type Block struct {
	Title string
	Lines []string
}

// Blocks 生成审阅页内容：第一块是实验摘要，之后每个任务一块，顺序即渲染顺序。
func Blocks(p *plan.Plan) []Block {
	if p == nil || p.Registry == nil {
		return nil
	}
	title := p.Meta.Title
	if title == "" {
		title = p.Name
	}
	summary := Block{
		Title: title,
		Lines: []string{
			fmt.Sprintf("experiment: %s %s", p.Name, p.Version),
			fmt.Sprintf("jobs: %d  images: %d", p.Registry.Len(), p.Registry.TotalImages()),
			fmt.Sprintf("output: %s", p.Env.OutputDir),
			fmt.Sprintf("background: %s", p.Env.BgDir),
		},
	}
	if p.Meta.Author != "" {
		summary.Lines = append(summary.Lines, "author: "+p.Meta.Author)
	}
	if p.Meta.Subject != "" {
		summary.Lines = append(summary.Lines, "subject: "+p.Meta.Subject)
	}
	if len(p.Meta.Keywords) > 0 {
		summary.Lines = append(summary.Lines, "keywords: "+strings.Join(p.Meta.Keywords, ", "))
	}

	out := []Block{summary}
	for i, job := range p.Registry.Jobs() {
		out = append(out, Block{
			Title: fmt.Sprintf("%d. %s", i+1, job.Name),
			Lines: describeJob(job),
		})
	}
	return out
}

func describeJob(job config.Job) []string {
	r := job.Render
	head := fmt.Sprintf("num_image: %d  color: %s", job.NumImage, r.Color)
	if r.Height != nil {
		head += fmt.Sprintf("  height: %d", *r.Height)
	}
	lines := []string{
		"save_dir: " + job.SaveDir,
		head,
		describePerspective(r.Perspective),
	}

	items := r.Corpus.Items()
	for i, d := range items {
		names := make([]string, len(d.TextPaths))
		for j, p := range d.TextPaths {
			names[j] = filepath.Base(p)
		}
		line := fmt.Sprintf("corpus[%d]: %s %s font_size=%s num_word=%s",
			i, d.Kind, strings.Join(names, ","), d.FontSize, d.NumWord)
		if d.FilterByChars {
			line += " chars=" + filepath.Base(d.CharsFile)
		}
		if d.CharSpacing != nil {
			line += fmt.Sprintf(" char_spacing=%g", *d.CharSpacing)
		}
		lines = append(lines, line)
	}

	if r.Layout != nil {
		line := "layout: " + r.Layout.Kind.String()
		if r.Layout.Kind == layout.ExtraTextLine {
			line += fmt.Sprintf(" bottom_prob=%g", r.Layout.BottomProb)
		}
		lines = append(lines, line)
	}
	if r.CorpusEffects != nil {
		lines = append(lines, describePipeline("corpus_effects", *r.CorpusEffects)...)
	}
	if r.LayoutEffects != nil {
		lines = append(lines, describePipeline("layout_effects", *r.LayoutEffects)...)
	}
	return lines
}

func describePerspective(p config.Perspective) string {
	return fmt.Sprintf("perspective: %s (%g, %g, %g) scale=%g fovy=%g", p.Mode, p.X, p.Y, p.Z, p.Scale, p.FovY)
}

// describePipeline 每个效果一行，参数沿用清单中的 JSON 写法。
func describePipeline(label string, p effect.Pipeline) []string {
	lines := make([]string, 0, p.Len())
	for i, e := range p.Effects() {
		params, err := json.Marshal(e)
		if err != nil {
			params = []byte("?")
		}
		lines = append(lines, fmt.Sprintf("%s[%d]: %s %s", label, i, e.Kind(), params))
	}
	return lines
}
