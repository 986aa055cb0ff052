// Package resolve maps a noisy food label onto a catalog row through an
// ordered chain of match tiers: exact alias, synonym column, substring, fuzzy.
package resolve

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/hazyhaar/nutrimatch/pkg/catalog"
	"github.com/hazyhaar/nutrimatch/pkg/nutrition"
)

// Defaults for Options zero values.
const (
	DefaultFuzzyThreshold = 88.0
	DefaultFuzzyLimit     = 5
	DefaultMinQueryRunes  = 2
)

// CatalogSource hands out the catalog to search. *catalog.Loader satisfies it.
type CatalogSource interface {
	Catalog() *catalog.Catalog
}

// Options configures a Resolver.
type Options struct {
	Synonyms       *SynonymTable // nil: built-in table
	Fuzzy          FuzzyMatcher  // nil: fuzzy tier disabled
	FuzzyThreshold float64       // 0: DefaultFuzzyThreshold
	FuzzyLimit     int           // 0: DefaultFuzzyLimit
	MinQueryRunes  int           // 0: DefaultMinQueryRunes
	Logger         *slog.Logger
}

// Resolver is stateless per call and safe for concurrent use.
type Resolver struct {
	src       CatalogSource
	synonyms  *SynonymTable
	fuzzy     FuzzyMatcher
	threshold float64
	limit     int
	minRunes  int
	logger    *slog.Logger
}

// New creates a resolver over src.
func New(src CatalogSource, opts Options) *Resolver {
	r := &Resolver{
		src:       src,
		synonyms:  opts.Synonyms,
		fuzzy:     opts.Fuzzy,
		threshold: opts.FuzzyThreshold,
		limit:     opts.FuzzyLimit,
		minRunes:  opts.MinQueryRunes,
		logger:    opts.Logger,
	}
	if r.synonyms == nil {
		r.synonyms = DefaultSynonyms()
	}
	if r.fuzzy == nil {
		r.fuzzy = NopMatcher{}
	}
	if r.threshold <= 0 {
		r.threshold = DefaultFuzzyThreshold
	}
	if r.limit <= 0 {
		r.limit = DefaultFuzzyLimit
	}
	if r.minRunes <= 0 {
		r.minRunes = DefaultMinQueryRunes
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Catalog returns the catalog the resolver searches.
func (r *Resolver) Catalog() *catalog.Catalog {
	return r.src.Catalog()
}

// query is one label prepared for the tiers.
type query struct {
	label       string // caller label
	key         string // normalized caller label
	term        string // label used by tiers after exact: the Korean term when substituted
	termKey     string
	substituted bool
}

func (r *Resolver) prepare(label string) (query, bool) {
	key := nutrition.Normalize(label)
	if key == "" {
		return query{}, false
	}
	q := query{label: label, key: key, term: label, termKey: key}
	if ko, ok := r.synonyms.Substitute(key); ok {
		if k := nutrition.Normalize(ko); k != "" {
			q.term, q.termKey, q.substituted = ko, k, true
		}
	}
	return q, true
}

// Resolve returns the best catalog entry for label, or nil when no tier
// matches. An empty or punctuation-only label is not looked up.
func (r *Resolver) Resolve(label string) *Entry {
	q, ok := r.prepare(label)
	if !ok {
		return nil
	}
	cat := r.src.Catalog()

	if e := r.exact(cat, q); e != nil {
		return e
	}
	if e := r.synonymColumn(cat, q); e != nil {
		return e
	}
	if e := r.substring(cat, q); e != nil {
		return e
	}
	return r.fuzzyMatch(cat, q)
}

// exact tries the caller key first, then the substituted key.
func (r *Resolver) exact(cat *catalog.Catalog, q query) *Entry {
	keys := []string{q.key}
	if q.substituted && q.termKey != q.key {
		keys = append(keys, q.termKey)
	}
	for _, k := range keys {
		if row, foreign, ok := cat.LookupKey(k); ok {
			via := TierExactNative
			if foreign {
				via = TierExactForeign
			}
			return entryFromRow(row, q.label, via)
		}
	}
	return nil
}

func (r *Resolver) synonymColumn(cat *catalog.Catalog, q query) *Entry {
	for i := range cat.Rows {
		row := &cat.Rows[i]
		for _, a := range row.Aliases {
			if nutrition.Normalize(a) == q.termKey {
				return entryFromRow(row, q.label, TierSynonym)
			}
		}
	}
	return nil
}

// substring matches when either side contains the other. The contained side
// must be at least minRunes long so one-character keys cannot sweep the
// catalog.
func (r *Resolver) substring(cat *catalog.Catalog, q query) *Entry {
	if utf8.RuneCountInString(q.termKey) < r.minRunes {
		return nil
	}
	for i := range cat.Rows {
		row := &cat.Rows[i]
		for _, n := range rowNames(row) {
			if r.contains(nutrition.Normalize(n), q.termKey) {
				return entryFromRow(row, q.label, TierSubstring)
			}
		}
	}
	return nil
}

func (r *Resolver) contains(name, key string) bool {
	if name == "" {
		return false
	}
	if strings.Contains(name, key) {
		return true
	}
	return utf8.RuneCountInString(name) >= r.minRunes && strings.Contains(key, name)
}

func (r *Resolver) fuzzyMatch(cat *catalog.Catalog, q query) *Entry {
	names := cat.Names()
	if len(names) == 0 || utf8.RuneCountInString(q.termKey) < r.minRunes {
		return nil
	}
	for _, s := range r.fuzzy.Rank(q.term, names, r.limit) {
		if s.Score < r.threshold {
			continue
		}
		if s.Name.Row < 0 || s.Name.Row >= len(cat.Rows) {
			continue
		}
		e := entryFromRow(&cat.Rows[s.Name.Row], q.label, TierFuzzy)
		e.Score = s.Score
		r.logger.Debug("fuzzy match", "label", q.label, "candidate", s.Name.Text, "score", s.Score)
		return e
	}
	return nil
}

// rowNames lists the foreign name first, then the native names.
func rowNames(row *catalog.Row) []string {
	out := make([]string, 0, len(row.Names)+1)
	if row.NameEn != "" {
		out = append(out, row.NameEn)
	}
	return append(out, row.Names...)
}
