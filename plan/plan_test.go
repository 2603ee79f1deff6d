package plan

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/textforge/binding"
	"github.com/ByLCY/textforge/catalog"
	"github.com/ByLCY/textforge/config"
	"github.com/ByLCY/textforge/dsl"
	"github.com/ByLCY/textforge/effect"
	"github.com/ByLCY/textforge/layout"
	"github.com/ByLCY/textforge/param"
	"github.com/ByLCY/textforge/registry"
)

func compile(t *testing.T, src string, vars binding.Vars) (*Plan, error) {
	t.Helper()
	doc, err := dsl.ParseString(src)
	require.NoError(t, err)
	return Compile(doc, vars, Options{BaseDir: "/base"})
}

const standardDSL = `
experiment fiji v1 {
  meta {
    title: "Fiji effects"
    author: "ocr team"
    keywords: ["fiji", "effects"]
  }
  paths {
    data: "${root}/example_data"
    output: "out"
  }
  run { standard }
}
`

func TestCompileStandard(t *testing.T) {
	p, err := compile(t, standardDSL, binding.Vars{"root": "/srv"})
	require.NoError(t, err)

	assert.Equal(t, "fiji", p.Name)
	assert.Equal(t, "v1", p.Version)
	assert.Equal(t, "Fiji effects", p.Meta.Title)
	assert.Equal(t, []string{"fiji", "effects"}, p.Meta.Keywords)
	assert.Equal(t, "/srv/example_data", p.Env.DataDir)
	assert.Equal(t, "/srv/example_data/out", p.Env.OutputDir)
	assert.Equal(t, "/srv/example_data/bg", p.Env.BgDir)

	require.Equal(t, 17, p.Registry.Len())
	for _, dir := range p.Registry.SaveDirs() {
		assert.Equal(t, "/srv/example_data/out", filepath.Dir(dir))
	}

	m := p.Manifest()
	assert.Equal(t, 17*config.DefaultNumImage, m.Total)
	assert.NotEmpty(t, m.RunID)
}

func TestCompileUnresolvedVariable(t *testing.T) {
	_, err := compile(t, standardDSL, nil)
	assert.ErrorIs(t, err, ErrInvalidStatement)
	assert.ErrorIs(t, err, binding.ErrUnresolved)
}

func TestCompileDefaults(t *testing.T) {
	p, err := compile(t, `
experiment d v1 {
  paths { data: "/data" }
  defaults {
    count: 3
    font-size: [20, 24]
    words: 2
    corpus: "eng_text.txt"
    perspective: { mode: fixed; x: 10; y: 5; z: 1; fovy: 40 }
  }
  run { fiji_word_data }
}
`, nil)
	require.NoError(t, err)
	job := p.Registry.At(0)
	assert.Equal(t, 3, job.NumImage)
	assert.Equal(t, "/data/output/fiji_word_data", job.SaveDir)

	d := job.Render.Corpus.Items()[0]
	assert.Equal(t, param.Between(20, 24), d.FontSize)
	assert.Equal(t, param.Fixed(2), d.NumWord)
	assert.Equal(t, []string{"/data/corpus/eng_text.txt"}, d.TextPaths)

	persp := job.Render.Perspective
	assert.Equal(t, config.PerspectiveFixed, persp.Mode)
	assert.Equal(t, 10.0, persp.X)
	assert.Equal(t, 40.0, persp.FovY)
	assert.Equal(t, config.DefaultPerspectiveScale, persp.Scale)
}

func TestCompileCustomJob(t *testing.T) {
	p, err := compile(t, `
experiment custom v1 {
  paths { data: "/data" }
  run { padding }
  job two_lines {
    count: 10
    gray: false
    height: 48
    char-spacing: -0.3
    effect padding { w-ratio: [0.2, 0.21]; h-ratio: [0.7, 0.71]; center: true }
    effect line { position: bottom-right; thickness: [3, 4] }
    effect augment Emboss { alpha: [0.9, 1.0]; strength: [1.5, 1.6] }
    layout-effect dropout-vertical { num-line: 15 }
    layout extra-text-line { bottom-prob: 1.0 }
    corpus { text: "eng_text.txt"; chars: "eng.txt" }
    corpus { text: ["a.txt", "b.txt"]; kind: char; words: [2, 5] }
  }
}
`, nil)
	require.NoError(t, err)
	require.Equal(t, 2, p.Registry.Len())
	assert.Equal(t, "padding", p.Registry.At(0).Name)

	job := p.Registry.At(1)
	assert.Equal(t, "two_lines", job.Name)
	assert.Equal(t, 10, job.NumImage)
	assert.False(t, job.Render.Gray())
	require.NotNil(t, job.Render.Height)
	assert.Equal(t, 48, *job.Render.Height)

	require.NotNil(t, job.Render.CorpusEffects)
	assert.Equal(t, []effect.Kind{effect.KindPadding, effect.KindLine, effect.KindAugment}, job.Render.CorpusEffects.Kinds())
	line := job.Render.CorpusEffects.At(1).(effect.Line)
	pos, ok := line.Active()
	require.True(t, ok)
	assert.Equal(t, effect.BottomRight, pos)
	aug := job.Render.CorpusEffects.At(2).(effect.Augment)
	assert.Equal(t, "Emboss", aug.Name)
	assert.Equal(t, param.Between(1.5, 1.6), aug.Params["strength"])

	require.NotNil(t, job.Render.LayoutEffects)
	dv := job.Render.LayoutEffects.At(0).(effect.DropoutVertical)
	assert.Equal(t, 15, dv.NumLine)
	assert.Equal(t, effect.DefaultDropoutThickness, dv.Thickness)

	require.NotNil(t, job.Render.Layout)
	assert.Equal(t, layout.ExtraTextLine, job.Render.Layout.Kind)

	items := job.Render.Corpus.Items()
	require.Len(t, items, 2)
	assert.True(t, items[0].FilterByChars)
	assert.Equal(t, "/data/char/eng.txt", items[0].CharsFile)
	assert.Equal(t, []string{"/data/corpus/a.txt", "/data/corpus/b.txt"}, items[1].TextPaths)
	assert.Equal(t, param.Between(2, 5), items[1].NumWord)
	for _, d := range items {
		require.NotNil(t, d.CharSpacing)
		assert.Equal(t, -0.3, *d.CharSpacing)
	}
}

func TestCompileErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want error
	}{
		{
			name: "unknown builder",
			src:  `experiment e v1 { run { sparkle } }`,
			want: catalog.ErrUnknownBuilder,
		},
		{
			name: "unknown job key",
			src:  `experiment e v1 { job a { colour: red } }`,
			want: ErrInvalidStatement,
		},
		{
			name: "unknown effect parameter",
			src:  `experiment e v1 { job a { effect padding { wratio: 0.2 } } }`,
			want: ErrInvalidStatement,
		},
		{
			name: "missing required parameter",
			src:  `experiment e v1 { job a { effect curve { period: 180 } } }`,
			want: ErrInvalidStatement,
		},
		{
			name: "probability out of range",
			src:  `experiment e v1 { job a { effect dropout-rand { p: 1.5; ratio: [0.3, 0.5] } } }`,
			want: param.ErrInvalidRange,
		},
		{
			name: "inverted range",
			src:  `experiment e v1 { job a { effect dropout-rand { ratio: [0.5, 0.3] } } }`,
			want: param.ErrInvalidRange,
		},
		{
			name: "nan probability",
			src:  `experiment e v1 { job a { effect dropout-rand { p: NaN; ratio: [0.3, 0.5] } } }`,
			want: param.ErrInvalidRange,
		},
		{
			name: "nan range end",
			src:  `experiment e v1 { job a { effect padding { w-ratio: [0, NaN] } } }`,
			want: param.ErrInvalidRange,
		},
		{
			name: "infinite perspective",
			src:  `experiment e v1 { defaults { perspective: { x: Inf } } run { padding } }`,
			want: param.ErrInvalidRange,
		},
		{
			name: "layout without sequence",
			src:  `experiment e v1 { job a { layout extra-text-line { bottom-prob: 1 } } }`,
			want: layout.ErrStructuralMismatch,
		},
		{
			name: "duplicate output",
			src:  "experiment e v1 {\n run { padding }\n job padding { gray: false }\n}",
			want: registry.ErrOutputCollision,
		},
		{
			name: "run with arguments",
			src:  `experiment e v1 { run { padding twice } }`,
			want: ErrInvalidStatement,
		},
		{
			name: "unknown path",
			src:  `experiment e v1 { paths { fonts: "x" } run { padding } }`,
			want: ErrInvalidStatement,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := compile(t, tc.src, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestCompileRequiresJobs(t *testing.T) {
	_, err := compile(t, `experiment empty v1 { meta { title: "x" } }`, nil)
	assert.Error(t, err)
}

func TestCompileAliasedBuilder(t *testing.T) {
	p, err := compile(t, `experiment e v1 { run { char_spacing_compact; char_spacing_large } }`, nil)
	require.NoError(t, err)
	assert.Equal(t, catalog.NameCompactCharSpacing, p.Registry.At(0).Name)
	assert.Equal(t, catalog.NameLargeCharSpacing, p.Registry.At(1).Name)
	assert.Equal(t, "/base/output/compact_char_spacing", p.Registry.At(0).SaveDir)
}

func TestCompileFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fiji.tf")
	src := "experiment fiji v1 {\n  paths { data: \"data\" }\n  run { dropout_rand; line }\n}\n"
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	p, err := CompileFile(path, nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "data"), p.Env.DataDir)
	assert.Equal(t, 1+effect.NumPositions, p.Registry.Len())

	_, err = CompileFile(filepath.Join(dir, "missing.tf"), nil, Options{})
	assert.Error(t, err)
}

func TestStandardWithoutFile(t *testing.T) {
	p, err := Standard(catalog.NewEnv("/data"), Options{})
	require.NoError(t, err)
	assert.Equal(t, StandardRun, p.Name)
	assert.Equal(t, 17, p.Registry.Len())
	assert.Equal(t, "/data/output/emboss", p.Registry.At(0).SaveDir)
}

func TestCompileCorpusOrderFollowsDocument(t *testing.T) {
	p, err := compile(t, `
experiment e v1 {
  paths { data: "/data" }
  job mixed {
    corpus { text: "main.txt" }
    corpus: "extra.txt"
    layout extra-text-line { bottom-prob: 1 }
  }
}
`, nil)
	require.NoError(t, err)
	items := p.Registry.At(0).Render.Corpus.Items()
	require.Len(t, items, 2)
	assert.Equal(t, []string{"/data/corpus/main.txt"}, items[0].TextPaths)
	assert.Equal(t, []string{"/data/corpus/extra.txt"}, items[1].TextPaths)
}

func TestManifestKeepsZeroBottomProb(t *testing.T) {
	p, err := compile(t, `
experiment e v1 {
  paths { data: "/data" }
  job two {
    layout extra-text-line { bottom-prob: 0 }
    corpus: "a.txt"
    corpus: "b.txt"
  }
}
`, nil)
	require.NoError(t, err)

	data, err := p.Manifest().Encode(registry.FormatJSON)
	require.NoError(t, err)
	var decoded struct {
		Jobs []struct {
			Render struct {
				Layout map[string]any `json:"layout"`
			} `json:"render_cfg"`
		} `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded.Jobs, 1)
	assert.Equal(t, map[string]any{"kind": "extra_text_line", "bottom_prob": 0.0}, decoded.Jobs[0].Render.Layout)
}
