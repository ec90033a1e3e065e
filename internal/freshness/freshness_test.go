package freshness

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thumbnailify/internal/provenance"
)

func writeThumb(t *testing.T, dir, sourcePath string) string {
	t.Helper()
	thumbPath := filepath.Join(dir, "thumb.png")
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	require.NoError(t, provenance.WritePNGWithProvenance(thumbPath, img, sourcePath, "thumbnailify-go"))
	return thumbPath
}

func TestIsFresh_TrueRightAfterGeneration(t *testing.T) {
	dir := t.TempDir()
	sourcePath := filepath.Join(dir, "source.jpg")
	require.NoError(t, os.WriteFile(sourcePath, []byte("hello"), 0644))

	thumbPath := writeThumb(t, dir, sourcePath)
	assert.True(t, IsFresh(thumbPath, sourcePath))
}

func TestIsFresh_FalseAfterSourceModified(t *testing.T) {
	dir := t.TempDir()
	sourcePath := filepath.Join(dir, "source.jpg")
	require.NoError(t, os.WriteFile(sourcePath, []byte("hello"), 0644))

	thumbPath := writeThumb(t, dir, sourcePath)
	require.True(t, IsFresh(thumbPath, sourcePath))

	// Modifying the source rewrites its mtime and size, invalidating the
	// cached provenance.
	require.NoError(t, os.WriteFile(sourcePath, []byte("hello world, longer now"), 0644))
	assert.False(t, IsFresh(thumbPath, sourcePath))
}

func TestIsFresh_FalseWhenSourceMissing(t *testing.T) {
	dir := t.TempDir()
	sourcePath := filepath.Join(dir, "source.jpg")
	require.NoError(t, os.WriteFile(sourcePath, []byte("hello"), 0644))

	thumbPath := writeThumb(t, dir, sourcePath)
	require.NoError(t, os.Remove(sourcePath))

	assert.False(t, IsFresh(thumbPath, sourcePath))
}

func TestIsFresh_FalseForUnparseableThumb(t *testing.T) {
	dir := t.TempDir()
	sourcePath := filepath.Join(dir, "source.jpg")
	require.NoError(t, os.WriteFile(sourcePath, []byte("hello"), 0644))

	badThumb := filepath.Join(dir, "bad.png")
	require.NoError(t, os.WriteFile(badThumb, []byte("not a png"), 0644))

	assert.False(t, IsFresh(badThumb, sourcePath))
}
