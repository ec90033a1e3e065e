// Package catalog provides a SQLite-backed ledger of generation
// requests, for batch and pre-generation workflows that need to walk a
// tree of source files and drive the orchestrator across many of them
// without redoing work across runs.
//
// The SQLite schema/migration/connection-pragma shape and the
// WalkDir + skip-rule discovery idiom are generalized away from
// photo-library semantics into a generic path/fingerprint/status
// ledger; the batch run itself fans out with
// golang.org/x/sync/errgroup — the core orchestrator in
// internal/thumbnail stays synchronous and lock-free per request,
// only this outer layer runs requests concurrently.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/sync/errgroup"

	"thumbnailify/internal/cacheroot"
	"thumbnailify/internal/config"
	"thumbnailify/internal/thumbnail"
)

// Status values recorded for each catalog entry.
const (
	StatusPending = "pending"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// shouldSkip excludes hidden (dot-prefixed) files and the Thumbs.db and
// desktop.ini system files from catalog candidates.
func shouldSkip(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	switch strings.ToLower(name) {
	case "thumbs.db", "desktop.ini":
		return true
	}
	return false
}

// Ledger wraps the SQLite connection backing the catalog.
type Ledger struct {
	conn *sql.DB
}

// Open creates or opens the catalog database under cacheDir.
func Open(cacheDir string) (*Ledger, error) {
	dbPath := filepath.Join(cacheDir, "catalog.db")
	conn, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open catalog db: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(2)

	l := &Ledger{conn: conn}
	if err := l.migrate(); err != nil {
		return nil, fmt.Errorf("migrate catalog db: %w", err)
	}
	return l, nil
}

func (l *Ledger) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS entries (
		path TEXT PRIMARY KEY,
		status TEXT NOT NULL DEFAULT 'pending',
		last_error TEXT NOT NULL DEFAULT '',
		updated_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_entries_status ON entries(status);
	`
	_, err := l.conn.Exec(schema)
	return err
}

// Upsert records the outcome of a generation attempt for path.
func (l *Ledger) Upsert(path, status, lastError string) error {
	_, err := l.conn.Exec(`
		INSERT INTO entries (path, status, last_error, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			status=excluded.status,
			last_error=excluded.last_error,
			updated_at=excluded.updated_at
	`, path, status, lastError, time.Now())
	return err
}

// Status returns the last recorded status for path, and whether an
// entry exists at all.
func (l *Ledger) Status(path string) (status string, ok bool, err error) {
	err = l.conn.QueryRow("SELECT status FROM entries WHERE path = ?", path).Scan(&status)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return status, true, nil
}

// Counts returns the number of entries per status, for progress
// reporting.
func (l *Ledger) Counts() (done, failed, pending int, err error) {
	rows, err := l.conn.Query("SELECT status, COUNT(*) FROM entries GROUP BY status")
	if err != nil {
		return 0, 0, 0, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			continue
		}
		switch status {
		case StatusDone:
			done = n
		case StatusFailed:
			failed = n
		case StatusPending:
			pending = n
		}
	}
	return done, failed, pending, nil
}

// Close closes the underlying database connection.
func (l *Ledger) Close() error {
	return l.conn.Close()
}

// Discover walks roots and returns every regular file not excluded by
// shouldSkip.
func Discover(roots []string) []string {
	var paths []string
	for _, root := range roots {
		filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			if shouldSkip(d.Name()) {
				return nil
			}
			paths = append(paths, path)
			return nil
		})
	}
	return paths
}

// Result summarizes the outcome of one catalog entry's generation.
type Result struct {
	Path  string
	Sizes []thumbnail.Result
	Err   error
}

// RunBatch drives the orchestrator across every discovered path at the
// given sizes, bounded to cfg.Concurrency concurrent generations via
// errgroup, pausing cfg.BatchDelay between batches of cfg.BatchSize
// entries. The ledger is only written to, never consulted for skipping:
// every path is always handed to GenerateMany, whose freshness checks
// avoid regenerating entries that are still up to date. An entry's
// Result.Err is the first per-size error, if any.
func RunBatch(ctx context.Context, gen *thumbnail.Generator, ledger *Ledger, cfg config.CatalogConfig, sizes []cacheroot.Size) []Result {
	paths := Discover(cfg.Paths)
	results := make([]Result, len(paths))

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = len(paths)
		if batchSize == 0 {
			batchSize = 1
		}
	}

	for start := 0; start < len(paths); start += batchSize {
		end := start + batchSize
		if end > len(paths) {
			end = len(paths)
		}
		batch := paths[start:end]

		group, groupCtx := errgroup.WithContext(ctx)
		group.SetLimit(concurrency)

		for offset, path := range batch {
			idx := start + offset
			path := path
			group.Go(func() error {
				sizeResults := gen.GenerateMany(groupCtx, path, sizes)
				status, lastErr := summarize(sizeResults)
				if ledger != nil {
					_ = ledger.Upsert(path, status, lastErr)
				}
				var entryErr error
				for _, sr := range sizeResults {
					if sr.Err != nil {
						entryErr = sr.Err
						break
					}
				}
				results[idx] = Result{Path: path, Sizes: sizeResults, Err: entryErr}
				return nil
			})
		}

		if err := group.Wait(); err != nil {
			log.Printf("catalog: batch error: %v", err)
		}

		if end < len(paths) && cfg.BatchDelay > 0 {
			select {
			case <-ctx.Done():
				return results
			case <-time.After(cfg.BatchDelay):
			}
		}
	}

	return results
}

func summarize(results []thumbnail.Result) (status, lastErr string) {
	for _, r := range results {
		if r.Err != nil {
			return StatusFailed, r.Err.Error()
		}
	}
	return StatusDone, ""
}
