// Package importer loads a nutrition table into the first-party food table.
package importer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/hazyhaar/nutrimatch/pkg/catalog"
	"github.com/hazyhaar/nutrimatch/pkg/foodstore"
)

// Options controls an import run.
type Options struct {
	DryRun        bool            // parse and upsert, then roll back
	Limit         int             // stop after this many parsed rows, 0 = all
	ProgressEvery int             // log every n rows, 0 = never
	Catalog       catalog.Options // encoding, delimiter
	Source        string          // recorded in the run history
	Logger        *slog.Logger
}

// Stats summarizes an import run.
type Stats struct {
	Seen    int  `json:"seen"`
	Created int  `json:"created"`
	Updated int  `json:"updated"`
	Skipped int  `json:"skipped"`
	DryRun  bool `json:"dry_run"`
}

// Import parses src with the catalog header resolution and upserts every row
// by name inside one transaction.
func Import(ctx context.Context, src io.Reader, store *foodstore.Store, opts Options) (Stats, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	copts := opts.Catalog
	if copts.Logger == nil {
		copts.Logger = logger
	}
	stats := Stats{DryRun: opts.DryRun}
	started := time.Now()

	cat, err := catalog.Parse(src, copts)
	if err != nil {
		return stats, fmt.Errorf("parse table: %w", err)
	}
	stats.Skipped = cat.Stats.Skipped

	rows := cat.Rows
	if opts.Limit > 0 && len(rows) > opts.Limit {
		rows = rows[:opts.Limit]
	}

	batch, err := store.BeginBatch(ctx)
	if err != nil {
		return stats, err
	}
	defer batch.Rollback()

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Seen++

		created, err := batch.Upsert(ctx, foodstore.Food{
			Name:    row.Label,
			NameEn:  row.NameEn,
			Per100g: row.Per100g,
		})
		if err != nil {
			return stats, err
		}
		if created {
			stats.Created++
		} else {
			stats.Updated++
		}

		if opts.ProgressEvery > 0 && stats.Seen%opts.ProgressEvery == 0 {
			logger.Info("import progress", "seen", stats.Seen, "created", stats.Created, "updated", stats.Updated)
		}
	}

	if opts.DryRun {
		if err := batch.Rollback(); err != nil {
			return stats, err
		}
		logger.Info("dry run, changes rolled back", "seen", stats.Seen)
	} else if err := batch.Commit(); err != nil {
		return stats, err
	}

	run := foodstore.ImportRun{
		Source:     opts.Source,
		StartedAt:  started.Unix(),
		FinishedAt: time.Now().Unix(),
		Seen:       stats.Seen,
		Created:    stats.Created,
		Updated:    stats.Updated,
		Skipped:    stats.Skipped,
		DryRun:     stats.DryRun,
	}
	if err := store.RecordImport(ctx, run); err != nil {
		logger.Warn("import history not recorded", "error", err)
	}

	logger.Info("import complete",
		"seen", stats.Seen,
		"created", stats.Created,
		"updated", stats.Updated,
		"skipped", stats.Skipped,
		"dry_run", stats.DryRun,
		"duration", time.Since(started).Round(time.Millisecond),
	)
	return stats, nil
}
