package fonts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestReadList(t *testing.T) {
	dir := t.TempDir()
	list := filepath.Join(dir, "font_list.txt")
	writeFile(t, list, "# fiji fonts\nNotoSans-Regular.ttf\n\n  Arial.ttf  \n")

	names, err := ReadList(list)
	require.NoError(t, err)
	assert.Equal(t, []string{"NotoSans-Regular.ttf", "Arial.ttf"}, names)

	_, err = ReadList(filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}

func TestFirstAndMissing(t *testing.T) {
	dir := t.TempDir()
	fontDir := filepath.Join(dir, "font")
	list := filepath.Join(dir, "font_list", "font_list.txt")
	writeFile(t, list, "absent.ttf\npresent.ttf\n")
	writeFile(t, filepath.Join(fontDir, "present.ttf"), "fake-font-bytes")

	name, data, err := First(fontDir, list)
	require.NoError(t, err)
	assert.Equal(t, "present.ttf", name)
	assert.Equal(t, []byte("fake-font-bytes"), data)

	missing, err := Missing(fontDir, list)
	require.NoError(t, err)
	assert.Equal(t, []string{"absent.ttf"}, missing)
}

func TestFirstWithoutFonts(t *testing.T) {
	dir := t.TempDir()
	list := filepath.Join(dir, "font_list.txt")
	writeFile(t, list, "absent.ttf\n")

	_, _, err := First(dir, list)
	assert.ErrorIs(t, err, ErrNoFont)
}

func TestFallback(t *testing.T) {
	assert.NotEmpty(t, Fallback())
}
