// Package cacheroot derives the cache-root directory and the hash-keyed
// paths under it. Every function here is pure aside from reading the
// process environment — no filesystem writes, no state.
package cacheroot

import (
	"os"
	"path/filepath"
)

// Size is a thumbnail size preset. The directory name is the lowercase
// form of the constant's value.
type Size string

const (
	Small  Size = "small"
	Normal Size = "normal"
	Large  Size = "large"
)

// Root returns the process-wide cache root directory, resolved in
// priority order: $XDG_CACHE_HOME, then the OS-appropriate per-user
// cache directory, then $HOME/.cache, then ./.cache. Override takes
// precedence over all of these when non-empty (used to pin the root
// from config.CacheConfig.Dir).
func Root(override string) string {
	if override != "" {
		return override
	}
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return dir
	}
	if dir, err := os.UserCacheDir(); err == nil && dir != "" {
		return dir
	}
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".cache")
	}
	return ".cache"
}

// thumbsDir is the subtree this library owns under the cache root.
func thumbsDir(root string) string {
	return filepath.Join(root, "thumbnails")
}

// ThumbPath returns the final on-disk path of a positive thumbnail
// artifact: {root}/thumbnails/{size}/{fingerprint}.png.
func ThumbPath(root string, fingerprint string, size Size) string {
	return filepath.Join(thumbsDir(root), string(size), fingerprint+".png")
}

// FailPath returns the on-disk path of a negative-cache (fail marker)
// artifact: {root}/thumbnails/fail/{producerID}/{fingerprint}.png.
func FailPath(root string, producerID string, fingerprint string) string {
	return filepath.Join(thumbsDir(root), "fail", producerID, fingerprint+".png")
}

// HelperDirs returns the ordered list of directories to scan for
// .thumbnailer descriptors: $HOME/.local/share/thumbnailers, each
// $XDG_DATA_DIRS entry suffixed with /thumbnailers, then
// /usr/share/thumbnailers. First match in this order wins.
func HelperDirs() []string {
	var dirs []string

	if home := os.Getenv("HOME"); home != "" {
		dirs = append(dirs, filepath.Join(home, ".local", "share", "thumbnailers"))
	}

	if dataDirs := os.Getenv("XDG_DATA_DIRS"); dataDirs != "" {
		for _, d := range filepath.SplitList(dataDirs) {
			if d == "" {
				continue
			}
			dirs = append(dirs, filepath.Join(d, "thumbnailers"))
		}
	}

	dirs = append(dirs, "/usr/share/thumbnailers")
	return dirs
}
