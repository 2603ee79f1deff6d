package registry

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ByLCY/textforge/config"
	"github.com/ByLCY/textforge/corpus"
	"github.com/ByLCY/textforge/layout"
	"github.com/ByLCY/textforge/param"
)

var defaults = config.Defaults{
	OutputDir:   "/data/output",
	BgDir:       "/data/bg",
	NumImage:    5,
	Perspective: config.NormPerspective(20, 20, 1.5),
}

func mustCorpus(t *testing.T) config.Corpus {
	t.Helper()
	d, err := corpus.New([]string{"/data/corpus/fiji_text.txt"}, corpus.Font{
		Dir:      "/data/font",
		ListFile: "/data/font_list/font_list.txt",
		Size:     param.Between(30, 31),
		NumWord:  param.Between(1, 3),
	})
	require.NoError(t, err)
	return config.Single(d)
}

func named(t *testing.T, names ...string) Entry {
	t.Helper()
	c := mustCorpus(t)
	return Entry{
		Name: names[0],
		Build: func() ([]config.Job, error) {
			jobs := make([]config.Job, 0, len(names))
			for _, name := range names {
				job, err := defaults.Job(name, c)
				if err != nil {
					return nil, err
				}
				jobs = append(jobs, job)
			}
			return jobs, nil
		},
	}
}

func TestAssembleFlattensInOrder(t *testing.T) {
	reg, err := Assemble(
		named(t, "a"),
		named(t, "b_1", "b_2", "b_3"),
		named(t, "c"),
	)
	require.NoError(t, err)
	require.Equal(t, 5, reg.Len())

	var names []string
	for _, job := range reg.Jobs() {
		names = append(names, job.Name)
	}
	assert.Equal(t, []string{"a", "b_1", "b_2", "b_3", "c"}, names)
	assert.Equal(t, 25, reg.TotalImages())
	assert.Equal(t, filepath.Join("/data/output", "b_2"), reg.At(2).SaveDir)
}

func TestAssembleRejectsCollision(t *testing.T) {
	_, err := Assemble(named(t, "padding"), named(t, "other", "padding"))
	require.ErrorIs(t, err, ErrOutputCollision)
	assert.Contains(t, err.Error(), "padding")
}

func TestAssembleCollisionAfterClean(t *testing.T) {
	c := mustCorpus(t)
	a, err := defaults.Job("x", c)
	require.NoError(t, err)
	b := a.Clone()
	b.Name = "y"
	b.SaveDir = "/data/output/./x/"

	_, err = Assemble(Entry{Name: "pair", Build: func() ([]config.Job, error) {
		return []config.Job{a, b}, nil
	}})
	assert.ErrorIs(t, err, ErrOutputCollision)
}

func TestAssembleFailsFast(t *testing.T) {
	boom := errors.New("boom")
	called := false
	_, err := Assemble(
		named(t, "a"),
		Entry{Name: "broken", Build: func() ([]config.Job, error) { return nil, boom }},
		Entry{Name: "after", Build: func() ([]config.Job, error) { called = true; return nil, nil }},
	)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "broken")
	assert.False(t, called)
}

func TestAssembleRejectsEmptyAndNil(t *testing.T) {
	_, err := Assemble(Entry{Name: "empty", Build: func() ([]config.Job, error) { return nil, nil }})
	assert.Error(t, err)

	_, err = Assemble(Entry{Name: "nil"})
	assert.Error(t, err)
}

func TestAssembleRevalidatesShape(t *testing.T) {
	extra, err := layout.NewExtraTextLine(1)
	require.NoError(t, err)
	job, err := defaults.Job("shape", mustCorpus(t))
	require.NoError(t, err)
	job.Render.Layout = &extra

	_, err = Assemble(Entry{Name: "shape", Build: func() ([]config.Job, error) { return []config.Job{job}, nil }})
	assert.ErrorIs(t, err, layout.ErrStructuralMismatch)
}

func TestRegistryReturnsCopies(t *testing.T) {
	reg, err := Assemble(named(t, "a"))
	require.NoError(t, err)
	jobs := reg.Jobs()
	jobs[0].Name = "mutated"
	assert.Equal(t, "a", reg.At(0).Name)
}

func TestManifestJSONAndYAML(t *testing.T) {
	reg, err := Assemble(named(t, "a", "b"))
	require.NoError(t, err)
	m := NewManifest(reg, Meta{Title: "fiji"})
	require.NotEmpty(t, m.RunID)
	assert.Equal(t, 10, m.Total)

	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "out", "manifest.json")
	require.NoError(t, m.WriteManifest(jsonPath))
	raw, err := os.ReadFile(jsonPath)
	require.NoError(t, err)

	var decoded struct {
		RunID string `json:"run_id"`
		Jobs  []struct {
			Name    string `json:"name"`
			SaveDir string `json:"save_dir"`
			Render  struct {
				ColorMode string `json:"color_mode"`
			} `json:"render_cfg"`
		} `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, m.RunID, decoded.RunID)
	require.Len(t, decoded.Jobs, 2)
	assert.Equal(t, "b", decoded.Jobs[1].Name)
	assert.Equal(t, "gray", decoded.Jobs[0].Render.ColorMode)

	yamlPath := filepath.Join(dir, "manifest.yaml")
	require.NoError(t, m.WriteManifest(yamlPath))
	raw, err = os.ReadFile(yamlPath)
	require.NoError(t, err)
	var generic map[string]any
	require.NoError(t, yaml.Unmarshal(raw, &generic))
	assert.Equal(t, m.RunID, generic["run_id"])
	assert.Len(t, generic["jobs"], 2)
}

func TestFormatFor(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatFor("a.YML"))
	assert.Equal(t, FormatYAML, FormatFor("a.yaml"))
	assert.Equal(t, FormatJSON, FormatFor("a.json"))
	assert.Equal(t, FormatJSON, FormatFor("manifest"))
}
