package provenance

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWritePNGWithProvenance_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	sourcePath := filepath.Join(dir, "source.jpg")
	require.NoError(t, os.WriteFile(sourcePath, []byte("not a real jpeg, just bytes"), 0644))

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(0, 0, color.RGBA{255, 0, 0, 255})

	thumbPath := filepath.Join(dir, "thumb.png")
	require.NoError(t, WritePNGWithProvenance(thumbPath, img, sourcePath, "thumbnailify-go"))

	texts, err := ReadTextChunks(thumbPath)
	require.NoError(t, err)

	assert.Equal(t, "thumbnailify-go", texts[KeywordSoftware])
	assert.Contains(t, texts[KeywordURI], "source.jpg")
	assert.NotEmpty(t, texts[KeywordMTime])
	assert.NotEmpty(t, texts[KeywordSize])
}

func TestWritePNGWithProvenance_MissingSourceFails(t *testing.T) {
	dir := t.TempDir()
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	err := WritePNGWithProvenance(filepath.Join(dir, "out.png"), img, filepath.Join(dir, "missing.jpg"), "thumbnailify-go")
	assert.Error(t, err)
}

func TestReadTextChunks_NonPNGFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "not-a-png.png")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0644))

	_, err := ReadTextChunks(path)
	assert.Error(t, err)
}

func TestWritePNGWithProvenance_MTimeMatchesSource(t *testing.T) {
	dir := t.TempDir()
	sourcePath := filepath.Join(dir, "source.jpg")
	require.NoError(t, os.WriteFile(sourcePath, []byte("x"), 0644))

	mtime := time.Now().Add(-time.Hour).Truncate(time.Second)
	require.NoError(t, os.Chtimes(sourcePath, mtime, mtime))

	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	thumbPath := filepath.Join(dir, "thumb.png")
	require.NoError(t, WritePNGWithProvenance(thumbPath, img, sourcePath, "thumbnailify-go"))

	texts, err := ReadTextChunks(thumbPath)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("%d", mtime.Unix()), texts[KeywordMTime])
}
