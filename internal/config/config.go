// Package config loads thumbnailify's configuration: sensible defaults,
// optionally overlaid by a YAML file, optionally overlaid by a .env
// file, and finally overlaid by environment variables, in that order.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Cache     CacheConfig     `yaml:"cache"`
	Thumbnail ThumbnailConfig `yaml:"thumbnail"`
	Helper    HelperConfig    `yaml:"helper"`
	Catalog   CatalogConfig   `yaml:"catalog"`
}

// CacheConfig controls where the thumbnail tree lives. Dir is
// conventionally left empty so cacheroot.Root() applies the
// XDG_CACHE_HOME / OS-default / $HOME/.cache / ./.cache chain from
// spec.md §3; set it to pin the cache root explicitly (tests do this).
type CacheConfig struct {
	Dir string `yaml:"dir"`
}

// ThumbnailConfig pins the per-size target max dimension (OQ-2) and the
// producer id embedded in fail markers and the Software chunk (OQ-3).
type ThumbnailConfig struct {
	SmallSize  int    `yaml:"small_size"`
	NormalSize int    `yaml:"normal_size"`
	LargeSize  int    `yaml:"large_size"`
	ProducerID string `yaml:"producer_id"`
}

// HelperConfig tunes external-thumbnailer dispatch.
type HelperConfig struct {
	// DisableSandbox forces direct exec even when bwrap is on PATH.
	DisableSandbox bool          `yaml:"disable_sandbox"`
	Timeout        time.Duration `yaml:"timeout"`
	// CompatBasename substitutes %i with the source's basename instead
	// of its absolute path (OQ-1 compatibility flag).
	CompatBasename bool `yaml:"compat_basename"`
}

// CatalogConfig configures the batch/pregeneration sqlite ledger.
type CatalogConfig struct {
	Paths       []string      `yaml:"paths"`
	BatchSize   int           `yaml:"batch_size"`
	BatchDelay  time.Duration `yaml:"batch_delay"`
	Concurrency int           `yaml:"concurrency"`
}

// Default returns configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Cache: CacheConfig{Dir: ""},
		Thumbnail: ThumbnailConfig{
			SmallSize:  64,
			NormalSize: 128,
			LargeSize:  256,
			ProducerID: "thumbnailify-go",
		},
		Helper: HelperConfig{
			DisableSandbox: false,
			Timeout:        60 * time.Second,
			CompatBasename: false,
		},
		Catalog: CatalogConfig{
			BatchSize:   10,
			BatchDelay:  2 * time.Second,
			Concurrency: 4,
		},
	}
}

// Load reads config from an optional YAML path, then overlays a .env
// file (if present in the working directory), then overlays recognized
// environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		}
	}

	// godotenv.Load is a no-op (returns an error we ignore) when no
	// .env file exists; this only ever adds process env vars, it never
	// overwrites ones already set.
	_ = godotenv.Load()

	if dir := os.Getenv("THUMBNAILIFY_CACHE_DIR"); dir != "" {
		cfg.Cache.Dir = dir
	}
	if v := os.Getenv("THUMBNAILIFY_PRODUCER_ID"); v != "" {
		cfg.Thumbnail.ProducerID = v
	}
	if v := os.Getenv("THUMBNAILIFY_SMALL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Thumbnail.SmallSize = n
		}
	}
	if v := os.Getenv("THUMBNAILIFY_NORMAL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Thumbnail.NormalSize = n
		}
	}
	if v := os.Getenv("THUMBNAILIFY_LARGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Thumbnail.LargeSize = n
		}
	}
	if v := os.Getenv("THUMBNAILIFY_DISABLE_SANDBOX"); v != "" {
		cfg.Helper.DisableSandbox = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("THUMBNAILIFY_CATALOG_PATHS"); v != "" {
		cfg.Catalog.Paths = strings.Split(v, ",")
	}

	return cfg, nil
}
