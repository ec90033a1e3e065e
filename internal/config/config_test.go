package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_MatchesPinnedSizePresets(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 64, cfg.Thumbnail.SmallSize)
	assert.Equal(t, 128, cfg.Thumbnail.NormalSize)
	assert.Equal(t, 256, cfg.Thumbnail.LargeSize)
	assert.Equal(t, "thumbnailify-go", cfg.Thumbnail.ProducerID)
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("THUMBNAILIFY_CACHE_DIR", "/tmp/custom-cache")
	t.Setenv("THUMBNAILIFY_SMALL_SIZE", "48")
	t.Setenv("THUMBNAILIFY_DISABLE_SANDBOX", "true")
	t.Setenv("THUMBNAILIFY_CATALOG_PATHS", "/photos,/videos")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/tmp/custom-cache", cfg.Cache.Dir)
	assert.Equal(t, 48, cfg.Thumbnail.SmallSize)
	assert.True(t, cfg.Helper.DisableSandbox)
	assert.Equal(t, []string{"/photos", "/videos"}, cfg.Catalog.Paths)
}

func TestLoad_InvalidSizeEnvIsIgnored(t *testing.T) {
	t.Setenv("THUMBNAILIFY_SMALL_SIZE", "not-a-number")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Thumbnail.SmallSize)
}

func TestLoad_MissingYAMLFileIsIgnored(t *testing.T) {
	cfg, err := Load("/nonexistent/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, Default().Thumbnail, cfg.Thumbnail)
}
