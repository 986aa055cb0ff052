package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/hazyhaar/nutrimatch/pkg/catalog"
	"github.com/hazyhaar/nutrimatch/pkg/foodstore"
	"github.com/hazyhaar/nutrimatch/pkg/importer"
)

func cmdImport(args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	path := fs.String("path", "", "nutrition table to import (CSV/TSV)")
	url := fs.String("url", "", "download the table from this URL (zip or csv)")
	dbPath := fs.String("db", "", "food database (default: foods_db from config)")
	dryRun := fs.Bool("dry-run", false, "parse and count without writing")
	limit := fs.Int("limit", 0, "import at most this many rows")
	progress := fs.Int("progress-every", 1000, "log progress every n rows")
	snapshot := fs.String("snapshot", "", "also write a catalog snapshot (.gob) here")
	history := fs.Bool("history", false, "list recent import runs and exit")
	cfg, logger := setup(fs, args)

	if *dbPath == "" {
		*dbPath = cfg.FoodsDB
	}
	store, err := foodstore.Open(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open food db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 2*time.Hour)
	defer cancel()

	if *history {
		runs, err := store.ListImports(ctx, 20)
		if err != nil {
			fmt.Fprintf(os.Stderr, "list imports: %v\n", err)
			os.Exit(1)
		}
		for _, r := range runs {
			fmt.Printf("%-4d %s  seen=%d created=%d updated=%d skipped=%d dry_run=%t  %s\n",
				r.ID, time.Unix(r.StartedAt, 0).Format(time.DateTime),
				r.Seen, r.Created, r.Updated, r.Skipped, r.DryRun, r.Source)
		}
		return
	}

	src := *path
	switch {
	case *url != "":
		dir := filepath.Join(filepath.Dir(*dbPath), "downloads")
		logger.Info("downloading table", "url", *url, "dir", dir)
		src, err = importer.FetchTable(ctx, *url, dir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "download: %v\n", err)
			os.Exit(1)
		}
	case src == "":
		src = catalog.ResolvePath(cfg.CatalogPath, cfg.BaseDir)
	}
	if src == "" {
		fmt.Fprintln(os.Stderr, "Usage: nutrimatch import --path <table.csv> | --url <url> [--dry-run] [--limit n] [--snapshot out.gob]")
		os.Exit(1)
	}

	f, err := os.Open(src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open table: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	copts := cfg.Catalog
	copts.Logger = logger
	stats, err := importer.Import(ctx, f, store, importer.Options{
		DryRun:        *dryRun,
		Limit:         *limit,
		ProgressEvery: *progress,
		Catalog:       copts,
		Source:        src,
		Logger:        logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "import: %v\n", err)
		os.Exit(1)
	}

	if *snapshot != "" {
		cat, err := catalog.Load(src, copts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "snapshot: %v\n", err)
			os.Exit(1)
		}
		if err := catalog.WriteSnapshot(cat, *snapshot); err != nil {
			fmt.Fprintf(os.Stderr, "snapshot: %v\n", err)
			os.Exit(1)
		}
		logger.Info("snapshot written", "path", *snapshot, "rows", cat.Len())
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(stats)
}
