// Package catalog loads the nutrition table into an immutable, indexed row set.
//
// A Catalog is built once (see Loader) and only read afterwards, so it is safe
// for concurrent use without locking.
package catalog

import (
	"math"
	"strings"
	"unicode"

	"github.com/hazyhaar/nutrimatch/pkg/nutrition"
)

// Row is one nutrition-table record after header resolution.
type Row struct {
	Label        string           // display name, native name first
	NameEn       string           // foreign-language name, may be empty
	Names        []string         // native name-column values in priority order
	Synonyms     []string         // index aliases, derived from Names/NameEn when nil
	Aliases      []string         // secondary synonym column values
	ServingGrams float64          // declared serving, 100 when absent
	Per100g      nutrition.Macros // macros per 100 g
}

// Name is one fuzzy-match candidate: a raw name value and the first row that
// carries it.
type Name struct {
	Text string
	Row  int
}

// Stats describes what happened while building a catalog.
type Stats struct {
	Rows       int `json:"rows"`
	Skipped    int `json:"skipped"`
	Duplicates int `json:"duplicates"`
}

type indexEntry struct {
	row     int
	foreign bool
}

// Catalog is the in-memory nutrition table. Rows keep file order; the index
// maps each normalized alias to the first row that produced it.
type Catalog struct {
	Path  string
	Rows  []Row
	Stats Stats

	index map[string]indexEntry
	names []Name
}

// New builds a catalog from typed rows. Rows without a usable label are
// dropped and counted as skipped.
func New(rows []Row) *Catalog {
	c := &Catalog{
		Rows:  make([]Row, 0, len(rows)),
		index: make(map[string]indexEntry),
	}
	for _, r := range rows {
		r.complete()
		if r.Label == "" {
			c.Stats.Skipped++
			continue
		}
		c.Rows = append(c.Rows, r)
	}
	c.Stats.Rows = len(c.Rows)

	seen := make(map[string]bool)
	for i := range c.Rows {
		r := &c.Rows[i]
		native := nativeKeys(r)
		for _, s := range r.Synonyms {
			key := nutrition.Normalize(s)
			if key == "" {
				continue
			}
			if e, exists := c.index[key]; exists {
				if e.row != i {
					c.Stats.Duplicates++
				}
				continue
			}
			c.index[key] = indexEntry{row: i, foreign: !native[key]}
		}

		for _, n := range append(append([]string(nil), r.Names...), r.NameEn) {
			if n == "" || seen[n] {
				continue
			}
			seen[n] = true
			c.names = append(c.names, Name{Text: n, Row: i})
		}
	}
	return c
}

// Empty returns a catalog with no rows.
func Empty() *Catalog {
	return New(nil)
}

// Len returns the number of rows.
func (c *Catalog) Len() int {
	return len(c.Rows)
}

// Names returns the distinct name values across all rows, in catalog order.
// The slice is shared and must not be modified.
func (c *Catalog) Names() []Name {
	return c.names
}

// LookupKey finds the row indexed under an already-normalized key. foreign is
// true when the alias came only from the foreign-name column.
func (c *Catalog) LookupKey(key string) (row *Row, foreign bool, ok bool) {
	if key == "" {
		return nil, false, false
	}
	e, ok := c.index[key]
	if !ok {
		return nil, false, false
	}
	return &c.Rows[e.row], e.foreign, true
}

// complete fills the derived fields of a row and clamps its numbers.
func (r *Row) complete() {
	r.Label = strings.TrimSpace(r.Label)
	r.NameEn = strings.TrimSpace(r.NameEn)
	r.Names = uniqueNonEmpty(r.Names)

	if r.Label == "" && len(r.Names) > 0 {
		r.Label = r.Names[0]
	}
	if r.Label == "" {
		r.Label = r.NameEn
	}
	if len(r.Names) == 0 && r.Label != "" && r.Label != r.NameEn {
		r.Names = []string{r.Label}
	}
	if r.Synonyms == nil {
		r.Synonyms = synonymsOf(append(append([]string(nil), r.Names...), r.NameEn)...)
	}
	if r.ServingGrams <= 0 || math.IsNaN(r.ServingGrams) || math.IsInf(r.ServingGrams, 0) {
		r.ServingGrams = nutrition.DefaultServingGrams
	}
	r.Per100g = nutrition.Macros{
		Calories: nutrition.Sanitize(r.Per100g.Calories),
		Protein:  nutrition.Sanitize(r.Per100g.Protein),
		Carb:     nutrition.Sanitize(r.Per100g.Carb),
		Fat:      nutrition.Sanitize(r.Per100g.Fat),
	}
}

// nativeKeys returns the normalized aliases a row derives from its native
// names, including their split tokens.
func nativeKeys(r *Row) map[string]bool {
	foreign := make(map[string]bool)
	if r.NameEn != "" {
		for _, s := range synonymsOf(r.NameEn) {
			foreign[nutrition.Normalize(s)] = true
		}
	}
	keys := make(map[string]bool)
	for _, s := range synonymsOf(r.Names...) {
		keys[nutrition.Normalize(s)] = true
	}
	for _, s := range r.Synonyms {
		if k := nutrition.Normalize(s); !foreign[k] {
			keys[k] = true
		}
	}
	return keys
}

// synonymsOf expands each value into itself followed by its whitespace and
// underscore separated tokens, de-duplicated in order.
func synonymsOf(values ...string) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(s string) {
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}
	for _, v := range values {
		v = strings.TrimSpace(v)
		add(v)
		tokens := strings.FieldsFunc(v, func(r rune) bool {
			return r == '_' || unicode.IsSpace(r)
		})
		if len(tokens) > 1 {
			for _, tok := range tokens {
				add(tok)
			}
		}
	}
	return out
}

func uniqueNonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		dup := false
		for _, o := range out {
			if o == s {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, s)
		}
	}
	return out
}
