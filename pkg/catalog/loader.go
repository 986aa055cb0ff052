package catalog

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// DefaultFileName is the conventional catalog file name.
const DefaultFileName = "mfds_foods.csv"

// Loader builds the catalog on first use and hands out the same immutable
// value afterwards. It never rebuilds; a new process picks up file changes.
type Loader struct {
	path   string
	opts   Options
	logger *slog.Logger

	once sync.Once
	cat  *Catalog
}

// NewLoader returns a loader for path. An empty path yields an empty catalog.
func NewLoader(path string, opts Options) *Loader {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{path: path, opts: opts, logger: logger}
}

// NewStaticLoader wraps an already built catalog, for tests and embedding.
func NewStaticLoader(c *Catalog) *Loader {
	if c == nil {
		c = Empty()
	}
	l := &Loader{cat: c, logger: slog.Default()}
	l.once.Do(func() {})
	return l
}

// Catalog returns the catalog, building it on the first call. Load failures
// are logged and produce an empty catalog.
func (l *Loader) Catalog() *Catalog {
	l.once.Do(l.load)
	return l.cat
}

func (l *Loader) load() {
	if l.path == "" {
		l.logger.Warn("no nutrition catalog configured, lookups will not match")
		l.cat = Empty()
		return
	}
	c, err := Load(l.path, l.opts)
	if err != nil {
		l.logger.Warn("nutrition catalog unavailable", "path", l.path, "error", err)
		l.cat = Empty()
		return
	}
	l.logger.Info("nutrition catalog loaded",
		"path", l.path,
		"rows", c.Stats.Rows,
		"skipped", c.Stats.Skipped,
		"duplicates", c.Stats.Duplicates,
	)
	l.cat = c
}

// Load reads a catalog file. Paths ending in .gob are read as snapshots.
func Load(path string, opts Options) (*Catalog, error) {
	if strings.EqualFold(filepath.Ext(path), ".gob") {
		return ReadSnapshot(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	c, err := Parse(f, opts)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	c.Path = path
	return c, nil
}

// ResolvePath picks the catalog file: the explicit path if it exists, then
// <baseDir>/intakes/data/mfds_foods.csv, then ./mfds_foods.csv. It returns ""
// when none exists.
func ResolvePath(explicit, baseDir string) string {
	candidates := []string{explicit}
	if baseDir != "" {
		candidates = append(candidates, filepath.Join(baseDir, "intakes", "data", DefaultFileName))
	}
	candidates = append(candidates, DefaultFileName)

	for _, p := range candidates {
		if p == "" {
			continue
		}
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p
		}
	}
	return ""
}
