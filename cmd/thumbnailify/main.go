// Command thumbnailify is the single-shot and batch CLI front end for
// the thumbnail cache manager: a single Generate call by default, or a
// catalog.RunBatch scan (optionally with a periodic watcher) via the
// "scan" subcommand.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"thumbnailify/internal/cacheroot"
	"thumbnailify/internal/catalog"
	"thumbnailify/internal/config"
	"thumbnailify/internal/thumbnail"
	"thumbnailify/internal/thumberr"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if len(os.Args) > 1 && os.Args[1] == "scan" {
		runScan(os.Args[2:])
		return
	}
	runSingle(os.Args[1:])
}

// runSingle implements the default <input> <output> --size contract
// from SPEC_FULL.md §6: generate one thumbnail, copy it to the
// requested output path, and exit 0 on success or 1 otherwise. --size
// takes a preset name (small, normal or large); numeric pixel values
// are rejected.
func runSingle(args []string) {
	fs := flag.NewFlagSet("thumbnailify", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config.yaml (optional)")
	size := fs.String("size", "normal", "thumbnail size: small, normal, or large")
	fs.Parse(args)

	rest := fs.Args()
	if len(rest) != 2 {
		fmt.Fprintln(os.Stderr, "usage: thumbnailify [--size small|normal|large] <input> <output>")
		os.Exit(1)
	}
	input, output := rest[0], rest[1]

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	sz, err := parseSize(*size)
	if err != nil {
		log.Fatalf("%v", err)
	}

	gen := thumbnail.New(cfg)
	entry, err := gen.Generate(context.Background(), input, sz)
	if err != nil {
		if thumberr.Is(err, thumberr.KindNegativeCached) {
			fmt.Fprintf(os.Stderr, "%s: previously failed to generate, not retrying\n", input)
		} else {
			fmt.Fprintf(os.Stderr, "%s: %v\n", input, err)
		}
		os.Exit(1)
	}

	if err := copyFile(entry.Path, output); err != nil {
		fmt.Fprintf(os.Stderr, "copy thumbnail to %s: %v\n", output, err)
		os.Exit(1)
	}
}

// runScan implements the "scan" subcommand: a one-shot or continuously
// watched catalog batch over cfg.Catalog.Paths.
func runScan(args []string) {
	fs := flag.NewFlagSet("thumbnailify scan", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config.yaml (optional)")
	watchInterval := fs.Duration("watch-interval", 0, "re-scan every interval (0 = scan once and exit)")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if len(cfg.Catalog.Paths) == 0 {
		log.Fatalf("no catalog paths configured (set THUMBNAILIFY_CATALOG_PATHS or catalog.paths in config.yaml)")
	}

	ledger, err := catalog.Open(cacheroot.Root(cfg.Cache.Dir))
	if err != nil {
		log.Fatalf("failed to open catalog: %v", err)
	}
	defer ledger.Close()

	gen := thumbnail.New(cfg)
	sizes := []cacheroot.Size{cacheroot.Small, cacheroot.Normal, cacheroot.Large}

	log.Printf("scanning %v", cfg.Catalog.Paths)
	runOnce := func() {
		results := catalog.RunBatch(context.Background(), gen, ledger, cfg.Catalog, sizes)
		done, failed, pending, _ := ledger.Counts()
		log.Printf("scan complete: %d entries this pass, catalog totals done=%d failed=%d pending=%d",
			len(results), done, failed, pending)
	}
	runOnce()

	if *watchInterval <= 0 {
		return
	}

	stop := make(chan struct{})
	ticker := time.NewTicker(*watchInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-sigCh:
			log.Println("shutting down...")
			close(stop)
			return
		case <-ticker.C:
			runOnce()
		}
	}
}

func parseSize(s string) (cacheroot.Size, error) {
	switch s {
	case "small":
		return cacheroot.Small, nil
	case "normal":
		return cacheroot.Normal, nil
	case "large":
		return cacheroot.Large, nil
	default:
		return "", fmt.Errorf("invalid size %q: must be small, normal, or large", s)
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := out.ReadFrom(in); err != nil {
		return err
	}
	return out.Close()
}
