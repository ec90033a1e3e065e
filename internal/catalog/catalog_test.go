package catalog

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thumbnailify/internal/cacheroot"
	"thumbnailify/internal/config"
	"thumbnailify/internal/thumbnail"
)

func writeSourcePNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 40; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 10, 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestDiscover_SkipsHiddenAndSystemFiles(t *testing.T) {
	dir := t.TempDir()
	writeSourcePNG(t, filepath.Join(dir, "a.png"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden.png"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Thumbs.db"), []byte("x"), 0644))

	paths := Discover([]string{dir})
	require.Len(t, paths, 1)
	assert.Equal(t, filepath.Join(dir, "a.png"), paths[0])
}

func TestLedger_UpsertAndStatus(t *testing.T) {
	dir := t.TempDir()
	ledger, err := Open(dir)
	require.NoError(t, err)
	defer ledger.Close()

	_, ok, err := ledger.Status("/a.png")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, ledger.Upsert("/a.png", StatusDone, ""))
	status, ok, err := ledger.Status("/a.png")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, StatusDone, status)

	require.NoError(t, ledger.Upsert("/a.png", StatusFailed, "boom"))
	status, _, err = ledger.Status("/a.png")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, status)
}

func TestLedger_Counts(t *testing.T) {
	dir := t.TempDir()
	ledger, err := Open(dir)
	require.NoError(t, err)
	defer ledger.Close()

	require.NoError(t, ledger.Upsert("/a.png", StatusDone, ""))
	require.NoError(t, ledger.Upsert("/b.png", StatusFailed, "x"))
	require.NoError(t, ledger.Upsert("/c.png", StatusPending, ""))

	done, failed, pending, err := ledger.Counts()
	require.NoError(t, err)
	assert.Equal(t, 1, done)
	assert.Equal(t, 1, failed)
	assert.Equal(t, 1, pending)
}

func TestRunBatch_GeneratesAndRecords(t *testing.T) {
	sourceDir := t.TempDir()
	writeSourcePNG(t, filepath.Join(sourceDir, "one.png"))
	writeSourcePNG(t, filepath.Join(sourceDir, "two.png"))

	cacheDir := t.TempDir()
	cfg := config.Default()
	cfg.Cache.Dir = cacheDir
	cfg.Helper.DisableSandbox = true
	cfg.Catalog = config.CatalogConfig{
		Paths:       []string{sourceDir},
		BatchSize:   1,
		Concurrency: 2,
	}

	gen := thumbnail.New(cfg)
	ledger, err := Open(cacheDir)
	require.NoError(t, err)
	defer ledger.Close()

	results := RunBatch(context.Background(), gen, ledger, cfg.Catalog, []cacheroot.Size{cacheroot.Small})
	require.Len(t, results, 2)
	for _, r := range results {
		for _, sr := range r.Sizes {
			assert.NoError(t, sr.Err)
		}
	}

	done, failed, _, err := ledger.Counts()
	require.NoError(t, err)
	assert.Equal(t, 2, done)
	assert.Equal(t, 0, failed)
}
