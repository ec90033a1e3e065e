// Package fingerprint computes the 128-bit content-addressing key used
// to name cache artifacts: MD5 of the canonical file:// URI's UTF-8
// bytes, serialized as 32 lowercase hex characters.
//
// MD5 is mandated by spec.md §4.2 for wire-compatibility with the
// established freedesktop thumbnail cache, not for cryptographic
// strength — it must never be swapped for a stronger digest.
package fingerprint

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/url"
	"path/filepath"
)

// CanonicalURI returns the file:// URL form of the absolute,
// symlink-resolved form of path. If symlink resolution fails (e.g. the
// source is missing), the raw path is used verbatim (a relative path is
// first made absolute) — this fallback is only observable when
// producing a fail marker for a nonexistent source, per spec.md §3.
func CanonicalURI(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		resolved = path
	}
	if !filepath.IsAbs(resolved) {
		abs, err := filepath.Abs(resolved)
		if err != nil {
			return "", err
		}
		resolved = abs
	}
	return toFileURI(resolved), nil
}

func toFileURI(absPath string) string {
	u := url.URL{
		Scheme: "file",
		Path:   filepath.ToSlash(absPath),
	}
	return u.String()
}

// Of computes the fingerprint (32 lowercase hex chars) of a canonical
// file URI's UTF-8 bytes.
func Of(canonicalURI string) string {
	sum := md5.Sum([]byte(canonicalURI))
	return hex.EncodeToString(sum[:])
}

// OfPath is a convenience wrapper: CanonicalURI(path) then Of(uri).
func OfPath(path string) (string, error) {
	uri, err := CanonicalURI(path)
	if err != nil {
		return "", fmt.Errorf("fingerprint: canonicalize %q: %w", path, err)
	}
	return Of(uri), nil
}

