package catalog

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/textforge/config"
	"github.com/ByLCY/textforge/effect"
	"github.com/ByLCY/textforge/layout"
	"github.com/ByLCY/textforge/param"
	"github.com/ByLCY/textforge/registry"
)

func newCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := New(NewEnv("/data"))
	require.NoError(t, err)
	return c
}

func build(t *testing.T, b registry.Builder) []config.Job {
	t.Helper()
	jobs, err := b()
	require.NoError(t, err)
	require.NotEmpty(t, jobs)
	return jobs
}

func TestDropoutRand(t *testing.T) {
	c := newCatalog(t)
	jobs := build(t, c.DropoutRand)
	require.Len(t, jobs, 1)

	job := jobs[0]
	assert.Equal(t, filepath.Join("/data/output", NameDropoutRand), job.SaveDir)
	require.NotNil(t, job.Render.CorpusEffects)
	require.Equal(t, 1, job.Render.CorpusEffects.Len())

	e, ok := job.Render.CorpusEffects.At(0).(effect.DropoutRand)
	require.True(t, ok)
	assert.Equal(t, 1.0, e.P)
	assert.Equal(t, param.Between(0.3, 0.5), e.Ratio)
	assert.True(t, job.Render.Gray())
	assert.Nil(t, job.Render.Layout)
}

func TestPadding(t *testing.T) {
	c := newCatalog(t)
	jobs := build(t, c.Padding)
	e, ok := jobs[0].Render.CorpusEffects.At(0).(effect.Padding)
	require.True(t, ok)
	assert.True(t, e.Center)
	assert.Equal(t, param.Between(0.2, 0.21), e.WRatio)
	assert.Equal(t, param.Between(0.7, 0.71), e.HRatio)
}

func TestLineCyclesEveryPosition(t *testing.T) {
	c := newCatalog(t)
	jobs := build(t, c.Line)
	require.Len(t, jobs, effect.NumPositions)

	for i, job := range jobs {
		pos := effect.Position(i)
		assert.Equal(t, "line_"+pos.String(), job.Name)
		e, ok := job.Render.CorpusEffects.At(0).(effect.Line)
		require.True(t, ok)
		assert.Equal(t, param.Between(3, 4), e.Thickness)
		active, ok := e.Active()
		require.True(t, ok, job.Name)
		assert.Equal(t, pos, active)
	}
}

func TestCurveOrder(t *testing.T) {
	c := newCatalog(t)
	jobs := build(t, c.Curve)
	assert.Equal(t, []effect.Kind{effect.KindPadding, effect.KindCurve}, jobs[0].Render.CorpusEffects.Kinds())
}

func TestEmboss(t *testing.T) {
	c := newCatalog(t)
	job := build(t, c.Emboss)[0]
	require.NotNil(t, job.Render.Height)
	assert.Equal(t, 48, *job.Render.Height)
	assert.Equal(t, []effect.Kind{effect.KindPadding, effect.KindAugment}, job.Render.CorpusEffects.Kinds())

	aug := job.Render.CorpusEffects.At(1).(effect.Augment)
	assert.Equal(t, "Emboss", aug.Name)
	assert.Equal(t, param.Between(0.9, 1.0), aug.Params["alpha"])
	assert.Equal(t, param.Between(1.5, 1.6), aug.Params["strength"])
}

func TestExtraTextLineLayout(t *testing.T) {
	c := newCatalog(t)
	job := build(t, c.ExtraTextLineLayout)[0]
	require.NotNil(t, job.Render.Layout)
	assert.Equal(t, layout.ExtraTextLine, job.Render.Layout.Kind)
	assert.Equal(t, 1.0, job.Render.Layout.BottomProb)

	assert.True(t, job.Render.Corpus.IsSequence())
	items := job.Render.Corpus.Items()
	require.Len(t, items, 2)
	for _, d := range items {
		assert.True(t, d.FilterByChars)
		assert.Equal(t, filepath.Join("/data/char", "eng.txt"), d.CharsFile)
		assert.Equal(t, []string{filepath.Join("/data/corpus", "eng_text.txt")}, d.TextPaths)
	}
}

func TestColorAndPerspective(t *testing.T) {
	c := newCatalog(t)
	assert.False(t, build(t, c.ColorImage)[0].Render.Gray())

	p := build(t, c.PerspectiveTransform)[0].Render.Perspective
	assert.Equal(t, config.FixedPerspective(30, 30, 1.5), p)
	assert.Equal(t, config.NormPerspective(20, 20, 1.5), build(t, c.FijiWordData)[0].Render.Perspective)
}

func TestCharSpacing(t *testing.T) {
	c := newCatalog(t)
	compact := build(t, c.CompactCharSpacing)[0]
	large := build(t, c.LargeCharSpacing)[0]

	d := compact.Render.Corpus.Items()[0]
	require.NotNil(t, d.CharSpacing)
	assert.Equal(t, -0.3, *d.CharSpacing)
	d = large.Render.Corpus.Items()[0]
	require.NotNil(t, d.CharSpacing)
	assert.Equal(t, 0.5, *d.CharSpacing)

	// 再次应用相同字间距结果不变
	again, err := compact.With(config.WithCharSpacing(-0.3))
	require.NoError(t, err)
	assert.Equal(t, compact, again)
}

func TestBuildersAreDeterministic(t *testing.T) {
	c := newCatalog(t)
	for _, entry := range c.Entries() {
		first := build(t, entry.Build)
		second := build(t, entry.Build)
		assert.Equal(t, first, second, entry.Name)
	}
}

func TestRebuildDoesNotAlias(t *testing.T) {
	c := newCatalog(t)
	first := build(t, c.FijiWordData)[0]
	second := build(t, c.FijiWordData)[0]
	items := first.Render.Corpus.Items()
	items[0].TextPaths[0] = "mutated"
	assert.NotEqual(t, "mutated", second.Render.Corpus.Items()[0].TextPaths[0])
}

func TestAssembleSubset(t *testing.T) {
	c := newCatalog(t)
	reg, err := registry.Assemble(
		registry.Entry{Name: NameDropoutRand, Build: c.DropoutRand},
		registry.Entry{Name: NamePadding, Build: c.Padding},
		registry.Entry{Name: NameLine, Build: c.Line},
	)
	require.NoError(t, err)
	assert.Equal(t, 10, reg.Len())

	seen := map[string]bool{}
	for _, dir := range reg.SaveDirs() {
		assert.False(t, seen[dir], dir)
		seen[dir] = true
	}
}

func TestStandardRun(t *testing.T) {
	c := newCatalog(t)
	reg, err := registry.Assemble(c.Standard()...)
	require.NoError(t, err)
	require.Equal(t, 17, reg.Len())
	assert.Equal(t, NameEmboss, reg.At(0).Name)
	assert.Equal(t, NamePadding, reg.At(16).Name)
	assert.Equal(t, 17*config.DefaultNumImage, reg.TotalImages())
}

func TestEveryBuilderAssembles(t *testing.T) {
	c := newCatalog(t)
	reg, err := registry.Assemble(c.Entries()...)
	require.NoError(t, err)
	assert.Equal(t, len(c.Names())-1+effect.NumPositions, reg.Len())
}

func TestDuplicateBuilderCollides(t *testing.T) {
	c := newCatalog(t)
	_, err := registry.Assemble(
		registry.Entry{Name: NamePadding, Build: c.Padding},
		registry.Entry{Name: NamePadding, Build: c.Padding},
	)
	assert.ErrorIs(t, err, registry.ErrOutputCollision)
}

func TestLookup(t *testing.T) {
	c := newCatalog(t)
	entry, err := c.Lookup("char_spacing_compact")
	require.NoError(t, err)
	assert.Equal(t, NameCompactCharSpacing, entry.Name)

	_, err = c.Lookup("nope")
	assert.ErrorIs(t, err, ErrUnknownBuilder)

	assert.Equal(t, []string{"char_spacing_compact", "char_spacing_large"}, Aliases())
}

func TestAliasAndCanonicalCollide(t *testing.T) {
	c := newCatalog(t)
	a, err := c.Lookup(NameLargeCharSpacing)
	require.NoError(t, err)
	b, err := c.Lookup("char_spacing_large")
	require.NoError(t, err)
	_, err = registry.Assemble(a, b)
	assert.ErrorIs(t, err, registry.ErrOutputCollision)
}

func TestEnvOverrides(t *testing.T) {
	env := NewEnv("/data")
	env.NumImage = 2
	env.OutputDir = "/elsewhere"
	c, err := New(env)
	require.NoError(t, err)
	job := build(t, c.Padding)[0]
	assert.Equal(t, 2, job.NumImage)
	assert.Equal(t, filepath.Join("/elsewhere", NamePadding), job.SaveDir)
}

func TestEnvRejectsInvalid(t *testing.T) {
	env := NewEnv("/data")
	env.FontSize = param.Between(31, 30)
	_, err := New(env)
	assert.ErrorIs(t, err, param.ErrInvalidRange)

	env = NewEnv("/data")
	env.BgDir = ""
	_, err = New(env)
	assert.Error(t, err)
}
