package helper

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDescriptor = `[Thumbnailer Entry]
TryExec=gs
Exec=gs -sDEVICE=png16m -o %o %i
MimeType=application/pdf;application/postscript;
`

func TestParseDescriptor(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ps.thumbnailer")
	require.NoError(t, os.WriteFile(path, []byte(sampleDescriptor), 0644))

	cfg, err := parseDescriptor(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"application/pdf", "application/postscript"}, cfg.MimeTypes)
	assert.Equal(t, "gs -sDEVICE=png16m -o %o %i", cfg.Exec)
	assert.Equal(t, "gs", cfg.TryExec)
}

func TestParseDescriptor_MissingExecFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.thumbnailer")
	require.NoError(t, os.WriteFile(path, []byte("[Thumbnailer Entry]\nMimeType=image/x-foo\n"), 0644))

	_, err := parseDescriptor(path)
	assert.Error(t, err)
}

func TestParseDescriptor_MissingSectionFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.thumbnailer")
	require.NoError(t, os.WriteFile(path, []byte("[Wrong Section]\n"), 0644))

	_, err := parseDescriptor(path)
	assert.Error(t, err)
}

func TestFind_FirstMatchWins(t *testing.T) {
	// HelperDirs reads $HOME/.local/share/thumbnailers first, so point
	// HOME at a fresh temp dir with that exact structure.
	home := t.TempDir()
	thumbDir := filepath.Join(home, ".local", "share", "thumbnailers")
	require.NoError(t, os.MkdirAll(thumbDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(thumbDir, "ps.thumbnailer"), []byte(sampleDescriptor), 0644))
	t.Setenv("HOME", home)

	// A second descriptor for the same MIME in a later XDG_DATA_DIRS
	// directory must lose to the user-directory one.
	dataDir := t.TempDir()
	laterDir := filepath.Join(dataDir, "thumbnailers")
	require.NoError(t, os.MkdirAll(laterDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(laterDir, "other.thumbnailer"),
		[]byte("[Thumbnailer Entry]\nTryExec=other\nExec=other %i %o\nMimeType=application/pdf;\n"), 0644))
	t.Setenv("XDG_DATA_DIRS", dataDir)

	cfg, err := Find("application/pdf")
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "gs", cfg.TryExec)
}

func TestFind_NoMatchReturnsNil(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_DATA_DIRS", "")

	cfg, err := Find("application/x-definitely-not-registered")
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestFind_BadConfigSurfacesWhenOnlyCandidateIsMalformed(t *testing.T) {
	home := t.TempDir()
	thumbDir := filepath.Join(home, ".local", "share", "thumbnailers")
	require.NoError(t, os.MkdirAll(thumbDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(thumbDir, "bad.thumbnailer"),
		[]byte("[Thumbnailer Entry]\nMimeType=image/x-foo\n"), 0644))
	t.Setenv("HOME", home)
	t.Setenv("XDG_DATA_DIRS", "")

	cfg, err := Find("image/x-foo")
	assert.Nil(t, cfg)
	assert.Error(t, err)
}

func TestFind_MalformedNonMatchingDescriptorStillYieldsNoMatch(t *testing.T) {
	home := t.TempDir()
	thumbDir := filepath.Join(home, ".local", "share", "thumbnailers")
	require.NoError(t, os.MkdirAll(thumbDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(thumbDir, "bad.thumbnailer"),
		[]byte("[Thumbnailer Entry]\nMimeType=image/x-foo\n"), 0644))
	t.Setenv("HOME", home)
	t.Setenv("XDG_DATA_DIRS", "")

	cfg, err := Find("image/x-bar")
	assert.Nil(t, cfg)
	require.NoError(t, err)
}

func TestContainsMime(t *testing.T) {
	assert.True(t, containsMime([]string{"image/png", "image/jpeg"}, "image/png"))
	assert.False(t, containsMime([]string{"image/png"}, "image/PNG"))
}
