// Package thumbnail implements the generation orchestrator: the
// top-level state machine of spec.md §4.9 that combines path
// resolution, fingerprinting, fail/positive cache checks, MIME
// dispatch, the in-process and external generation paths, and the
// atomic-commit / fail-marker discipline.
//
// The state graph itself is modeled with github.com/looplab/fsm, in
// the same shape sjperalta-fintera-api-go's PaymentFSM/ContractFSM use:
// one fsm.FSM per request, built fresh for each call, an explicit
// Events table with named transitions, and an empty Callbacks map —
// the side effects live in the surrounding Go code, the FSM exists to
// name and validate the legal transition graph. The machine is local to
// each Generate call and is not exposed to callers.
package thumbnail

import (
	"context"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/looplab/fsm"

	"thumbnailify/internal/cacheroot"
	"thumbnailify/internal/config"
	"thumbnailify/internal/fingerprint"
	"thumbnailify/internal/freshness"
	"thumbnailify/internal/helper"
	"thumbnailify/internal/provenance"
	"thumbnailify/internal/resize"
	"thumbnailify/internal/sandbox"
	"thumbnailify/internal/template"
	"thumbnailify/internal/thumberr"
)

// States of the generation state machine, one per node in spec.md §4.9.
const (
	StateStart       = "start"
	StateResolved    = "resolved"
	StateFingerprint = "fingerprinted"
	StateCheckedFail = "checked_fail"
	StateCheckedPos  = "checked_pos"
	StateMimeProbed  = "mime_probed"
	StateInternal    = "internal"
	StateExternal    = "external"
	StateHitNeg      = "hit_neg"
	StateHitPos      = "hit_pos"
	StateDoneOK      = "done_ok"
	StateDoneErr     = "done_err"
)

func transitions() fsm.Events {
	return fsm.Events{
		{Name: "resolve", Src: []string{StateStart}, Dst: StateResolved},
		{Name: "fingerprint", Src: []string{StateResolved}, Dst: StateFingerprint},
		{Name: "check_fail", Src: []string{StateFingerprint}, Dst: StateCheckedFail},
		{Name: "hit_negative", Src: []string{StateCheckedFail}, Dst: StateHitNeg},
		{Name: "check_pos", Src: []string{StateCheckedFail}, Dst: StateCheckedPos},
		{Name: "hit_positive", Src: []string{StateCheckedPos}, Dst: StateHitPos},
		{Name: "probe_mime", Src: []string{StateCheckedPos}, Dst: StateMimeProbed},
		{Name: "go_internal", Src: []string{StateMimeProbed}, Dst: StateInternal},
		{Name: "go_external", Src: []string{StateMimeProbed}, Dst: StateExternal},
		{Name: "commit", Src: []string{StateInternal, StateExternal}, Dst: StateDoneOK},
		{Name: "write_fail", Src: []string{StateInternal, StateExternal}, Dst: StateDoneErr},
	}
}

// Entry describes the outcome of a successful (or negatively cached)
// generation request.
type Entry struct {
	Path  string
	Fresh bool // true when served from an existing, validated cache hit
}

// Result pairs an Entry with its error for GenerateMany's per-size
// fan-out.
type Result struct {
	Entry Entry
	Err   error
}

// Generator is the stateless (aside from config) entry point for the
// generation orchestrator. It holds no in-memory cache — every call
// re-derives state from the filesystem, so it is trivially reentrant
// and safe to call concurrently for different sources (spec.md §5).
type Generator struct {
	cfg *config.Config
}

// New builds a Generator from the given configuration. A nil cfg uses
// config.Default().
func New(cfg *config.Config) *Generator {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Generator{cfg: cfg}
}

func (g *Generator) root() string {
	return cacheroot.Root(g.cfg.Cache.Dir)
}

func (g *Generator) maxDimension(size cacheroot.Size) int {
	switch size {
	case cacheroot.Small:
		return g.cfg.Thumbnail.SmallSize
	case cacheroot.Large:
		return g.cfg.Thumbnail.LargeSize
	default:
		return g.cfg.Thumbnail.NormalSize
	}
}

// CachePath returns the path a thumbnail for sourcePath at size would
// live at, without generating it. Read-only: it canonicalizes and
// fingerprints sourcePath (which may stat it to resolve symlinks) but
// performs no writes.
func (g *Generator) CachePath(sourcePath string, size cacheroot.Size) (string, error) {
	fp, err := fingerprint.OfPath(sourcePath)
	if err != nil {
		return "", thumberr.New(thumberr.KindIO, sourcePath, err)
	}
	return cacheroot.ThumbPath(g.root(), fp, size), nil
}

// GenerateMany generates thumbnails for sourcePath at every requested
// size, driving the full state machine independently per size. The
// freshness checks inside Generate mean repeat calls for an
// already-fresh size are cheap no-op stats rather than re-decodes.
func (g *Generator) GenerateMany(ctx context.Context, sourcePath string, sizes []cacheroot.Size) []Result {
	results := make([]Result, len(sizes))
	for i, size := range sizes {
		entry, err := g.Generate(ctx, sourcePath, size)
		results[i] = Result{Entry: entry, Err: err}
	}
	return results
}

// Generate runs the full generation state machine for one (source,
// size) request per spec.md §4.9.
func (g *Generator) Generate(ctx context.Context, sourcePath string, size cacheroot.Size) (Entry, error) {
	machine := fsm.NewFSM(StateStart, transitions(), fsm.Callbacks{})

	// RESOLVE
	absPath, err := filepath.Abs(sourcePath)
	if err != nil {
		return Entry{}, thumberr.New(thumberr.KindMissingSource, sourcePath, err)
	}
	if err := machine.Event(ctx, "resolve"); err != nil {
		return Entry{}, thumberr.New(thumberr.KindIO, sourcePath, err)
	}

	// FINGERPRINT
	uri, err := fingerprint.CanonicalURI(absPath)
	if err != nil {
		return Entry{}, thumberr.New(thumberr.KindMissingSource, sourcePath, err)
	}
	fp := fingerprint.Of(uri)
	if err := machine.Event(ctx, "fingerprint"); err != nil {
		return Entry{}, thumberr.New(thumberr.KindIO, sourcePath, err)
	}

	failPath := cacheroot.FailPath(g.root(), g.cfg.Thumbnail.ProducerID, fp)
	thumbPath := cacheroot.ThumbPath(g.root(), fp, size)

	// CHECK_FAIL
	if err := machine.Event(ctx, "check_fail"); err != nil {
		return Entry{}, thumberr.New(thumberr.KindIO, sourcePath, err)
	}
	if fileExists(failPath) && freshness.IsFresh(failPath, absPath) {
		_ = machine.Event(ctx, "hit_negative")
		return Entry{Path: failPath}, thumberr.Of(thumberr.KindNegativeCached)
	}

	// CHECK_POS
	if err := machine.Event(ctx, "check_pos"); err != nil {
		return Entry{}, thumberr.New(thumberr.KindIO, sourcePath, err)
	}
	if fileExists(thumbPath) && freshness.IsFresh(thumbPath, absPath) {
		_ = machine.Event(ctx, "hit_positive")
		return Entry{Path: thumbPath, Fresh: true}, nil
	}

	// MIME probe + SELECT
	if err := machine.Event(ctx, "probe_mime"); err != nil {
		return Entry{}, thumberr.New(thumberr.KindIO, sourcePath, err)
	}
	mimeType, err := detectMIME(absPath)
	if err != nil {
		return Entry{}, thumberr.New(thumberr.KindMissingSource, sourcePath, err)
	}

	helperCfg, err := helper.Find(mimeType)
	if err != nil {
		return Entry{}, err
	}

	if helperCfg != nil {
		if err := machine.Event(ctx, "go_external"); err != nil {
			return Entry{}, thumberr.New(thumberr.KindIO, sourcePath, err)
		}
		return g.generateExternal(ctx, machine, externalRequest{
			absPath: absPath, uri: uri, size: size,
			failPath: failPath, thumbPath: thumbPath,
		}, helperCfg)
	}

	// No registered helper. Only fall back to the in-process codec when
	// it actually supports this MIME type — otherwise this is KindNoHelper,
	// which is never negatively cached, so a helper installed later can
	// still recover the source.
	if !resize.SupportsMIME(mimeType) {
		return Entry{}, thumberr.New(thumberr.KindNoHelper, mimeType, nil)
	}

	if err := machine.Event(ctx, "go_internal"); err != nil {
		return Entry{}, thumberr.New(thumberr.KindIO, sourcePath, err)
	}
	return g.generateInternal(ctx, machine, absPath, size, failPath, thumbPath)
}

func (g *Generator) generateInternal(ctx context.Context, machine *fsm.FSM, absPath string, size cacheroot.Size, failPath, thumbPath string) (Entry, error) {
	img, err := resize.DecodeSource(absPath)
	if err != nil {
		g.writeFailBestEffort(ctx, machine, failPath, absPath)
		return Entry{}, err
	}

	thumb, err := resize.Resize(img, g.maxDimension(size))
	if err != nil {
		g.writeFailBestEffort(ctx, machine, failPath, absPath)
		return Entry{}, err
	}

	if err := g.commit(thumbPath, thumb, absPath); err != nil {
		return Entry{}, err
	}
	_ = machine.Event(ctx, "commit")
	return Entry{Path: thumbPath}, nil
}

// externalRequest carries the state needed to drive the EXTERNAL path
// of the orchestrator for one request.
type externalRequest struct {
	absPath             string
	uri                 string
	size                cacheroot.Size
	failPath, thumbPath string
}

func (g *Generator) generateExternal(ctx context.Context, machine *fsm.FSM, req externalRequest, h *helper.Config) (Entry, error) {
	if h.TryExec != "" {
		if _, err := exec.LookPath(h.TryExec); err != nil {
			return Entry{}, thumberr.New(thumberr.KindHelperMissing, h.TryExec, err)
		}
	}

	thumbDir := filepath.Dir(req.thumbPath)
	if err := os.MkdirAll(thumbDir, 0755); err != nil {
		return Entry{}, thumberr.New(thumberr.KindIO, thumbDir, err)
	}

	rawTemp := filepath.Join(thumbDir, "thumb-"+uuid.NewString()+".raw.tmp")
	defer os.Remove(rawTemp)

	argv, err := template.Build(h.Exec, template.Args{
		SizePixels:     g.maxDimension(req.size),
		SourceURI:      req.uri,
		SourcePath:     req.absPath,
		OutputPath:     rawTemp,
		CompatBasename: g.cfg.Helper.CompatBasename,
	})
	if err != nil {
		return Entry{}, err
	}

	runCtx := ctx
	if g.cfg.Helper.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, g.cfg.Helper.Timeout)
		defer cancel()
	}

	if err := sandbox.Dispatch(runCtx, argv, thumbDir, req.absPath, g.cfg.Helper.DisableSandbox); err != nil {
		g.writeFailBestEffort(ctx, machine, req.failPath, req.absPath)
		return Entry{}, thumberr.New(thumberr.KindHelperFailed, h.Exec, err)
	}

	img, err := decodeHelperOutput(rawTemp)
	if err != nil {
		g.writeFailBestEffort(ctx, machine, req.failPath, req.absPath)
		return Entry{}, thumberr.New(thumberr.KindHelperFailed, rawTemp, err)
	}

	if err := g.commit(req.thumbPath, img, req.absPath); err != nil {
		return Entry{}, err
	}
	_ = machine.Event(ctx, "commit")
	return Entry{Path: req.thumbPath}, nil
}

// writeFailBestEffort writes a 1x1 transparent fail marker and
// advances the state machine to done_err. A failure writing the
// marker itself is swallowed — the caller already has the real error.
func (g *Generator) writeFailBestEffort(ctx context.Context, machine *fsm.FSM, failPath, sourcePath string) {
	marker := image.NewRGBA(image.Rect(0, 0, 1, 1))
	_ = g.commit(failPath, marker, sourcePath)
	_ = machine.Event(ctx, "write_fail")
}

// commit writes img with provenance chunks to a temp file beside
// finalPath and atomically renames it into place.
func (g *Generator) commit(finalPath string, img image.Image, sourcePath string) error {
	dir := filepath.Dir(finalPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return thumberr.New(thumberr.KindIO, dir, err)
	}

	tempPath := filepath.Join(dir, "thumb-"+uuid.NewString()+".png.tmp")
	defer os.Remove(tempPath)

	if err := provenance.WritePNGWithProvenance(tempPath, img, sourcePath, g.cfg.Thumbnail.ProducerID); err != nil {
		return err
	}
	if err := os.Rename(tempPath, finalPath); err != nil {
		return thumberr.New(thumberr.KindCommit, finalPath, err)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func detectMIME(path string) (string, error) {
	m, err := mimetype.DetectFile(path)
	if err != nil {
		return "", err
	}
	s := m.String()
	if idx := strings.Index(s, ";"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s), nil
}

func decodeHelperOutput(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}
