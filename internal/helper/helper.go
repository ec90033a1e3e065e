// Package helper discovers and parses .thumbnailer descriptors: the
// INI-style files that register an external program able to produce a
// preview for a given MIME type.
package helper

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"

	"thumbnailify/internal/cacheroot"
	"thumbnailify/internal/thumberr"
)

// Config is a parsed .thumbnailer descriptor.
type Config struct {
	// MimeTypes is the semicolon-separated MimeType list, blanks
	// stripped.
	MimeTypes []string
	// Exec is the raw command template (tokens substituted later by
	// package template).
	Exec string
	// TryExec, if set, names an executable whose presence on PATH is a
	// precondition for using this descriptor.
	TryExec string
	// SourcePath is the descriptor file this Config was parsed from,
	// kept for diagnostics.
	SourcePath string
}

// Find scans the discovery directories in order (user dir, each
// XDG_DATA_DIRS entry, /usr/share/thumbnailers) and returns the first
// descriptor whose MimeType list contains an exact, case-sensitive
// match for mimeType. Returns (nil, nil) if no descriptor matches. If
// every matching candidate for mimeType turned out to be malformed, the
// last such parse error is returned instead of a silent no-match.
func Find(mimeType string) (*Config, error) {
	var badConfigErr error

	for _, dir := range cacheroot.HelperDirs() {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, thumberr.New(thumberr.KindIO, dir, err)
		}

		for _, entry := range entries {
			if entry.IsDir() || filepath.Ext(entry.Name()) != ".thumbnailer" {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			cfg, err := parseDescriptor(path)
			if err != nil {
				// A malformed descriptor is skipped during scan, not
				// fatal — unless its MimeType list is known (parsing got
				// far enough to read it) and it matches mimeType, in
				// which case we remember the error so it can surface if
				// it turns out to be the only candidate for this MIME.
				if cfg != nil && containsMime(cfg.MimeTypes, mimeType) {
					badConfigErr = err
				}
				continue
			}
			if containsMime(cfg.MimeTypes, mimeType) {
				return cfg, nil
			}
		}
	}
	return nil, badConfigErr
}

func containsMime(mimes []string, want string) bool {
	for _, m := range mimes {
		if m == want {
			return true
		}
	}
	return false
}

func parseDescriptor(path string) (*Config, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, thumberr.New(thumberr.KindBadConfig, path, err)
	}

	section, err := file.GetSection("Thumbnailer Entry")
	if err != nil {
		return nil, thumberr.New(thumberr.KindBadConfig, path, fmt.Errorf("missing [Thumbnailer Entry] section"))
	}

	mimeKey := section.Key("MimeType").String()
	if mimeKey == "" {
		return nil, thumberr.New(thumberr.KindBadConfig, path, fmt.Errorf("missing MimeType key"))
	}

	var mimes []string
	for _, m := range strings.Split(mimeKey, ";") {
		m = strings.TrimSpace(m)
		if m != "" {
			mimes = append(mimes, m)
		}
	}

	exec := section.Key("Exec").String()
	if exec == "" {
		// MimeTypes is already known at this point, so return it alongside
		// the error: Find can still attribute this failure to a matching
		// MIME type even though the descriptor itself is unusable.
		return &Config{MimeTypes: mimes, SourcePath: path}, thumberr.New(thumberr.KindBadConfig, path, fmt.Errorf("missing Exec key"))
	}

	return &Config{
		MimeTypes:  mimes,
		Exec:       exec,
		TryExec:    section.Key("TryExec").String(),
		SourcePath: path,
	}, nil
}
