// Package watcher periodically re-runs a catalog batch so new and
// changed source files pick up thumbnails without a manual scan, using
// the same ticker-driven Start/Stop shape as a plain time.Ticker loop.
package watcher

import (
	"context"
	"log"
	"time"

	"thumbnailify/internal/cacheroot"
	"thumbnailify/internal/catalog"
	"thumbnailify/internal/config"
	"thumbnailify/internal/thumbnail"
)

// Watcher triggers a catalog batch scan on a fixed interval.
type Watcher struct {
	gen      *thumbnail.Generator
	ledger   *catalog.Ledger
	cfg      config.CatalogConfig
	sizes    []cacheroot.Size
	interval time.Duration
	stop     chan struct{}
	running  bool
}

// New creates a watcher that re-runs a catalog batch every interval.
func New(gen *thumbnail.Generator, ledger *catalog.Ledger, cfg config.CatalogConfig, sizes []cacheroot.Size, interval time.Duration) *Watcher {
	return &Watcher{
		gen:      gen,
		ledger:   ledger,
		cfg:      cfg,
		sizes:    sizes,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start begins the periodic scan loop in a background goroutine.
func (w *Watcher) Start() {
	go w.loop()
}

// Stop signals the watcher to stop.
func (w *Watcher) Stop() {
	close(w.stop)
}

func (w *Watcher) loop() {
	log.Printf("watcher: periodic catalog scan every %s", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			log.Println("watcher: stopped")
			return
		case <-ticker.C:
			w.runScan()
		}
	}
}

func (w *Watcher) runScan() {
	if w.running {
		log.Println("watcher: skipping scan, previous scan still running")
		return
	}
	w.running = true
	defer func() { w.running = false }()

	log.Println("watcher: starting periodic catalog scan...")
	results := catalog.RunBatch(context.Background(), w.gen, w.ledger, w.cfg, w.sizes)

	var done, failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
			continue
		}
		done++
	}
	log.Printf("watcher: periodic scan complete (%d ok, %d failed)", done, failed)
}
