package resolve

import (
	"fmt"
	"strings"

	"github.com/hazyhaar/nutrimatch/pkg/catalog"
	"github.com/hazyhaar/nutrimatch/pkg/nutrition"
)

// Tier identifies which match strategy produced an entry.
type Tier int

const (
	TierNone Tier = iota
	TierExactForeign
	TierExactNative
	TierSynonym
	TierSubstring
	TierFuzzy
)

var tierNames = [...]string{"none", "exact_foreign", "exact_native", "synonym", "substring", "fuzzy"}

func (t Tier) String() string {
	if t < 0 || int(t) >= len(tierNames) {
		return fmt.Sprintf("tier(%d)", int(t))
	}
	return tierNames[t]
}

func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Tier) UnmarshalText(b []byte) error {
	for i, n := range tierNames {
		if n == string(b) {
			*t = Tier(i)
			return nil
		}
	}
	return fmt.Errorf("unknown tier %q", b)
}

// Source is the provenance of a resolved result.
type Source int

const (
	SourceCatalog Source = iota
	SourceFallback
	SourceDefault
)

var sourceNames = [...]string{"catalog", "fallback", "default"}

func (s Source) String() string {
	if s < 0 || int(s) >= len(sourceNames) {
		return fmt.Sprintf("source(%d)", int(s))
	}
	return sourceNames[s]
}

func (s Source) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Source) UnmarshalText(b []byte) error {
	for i, n := range sourceNames {
		if n == string(b) {
			*s = Source(i)
			return nil
		}
	}
	return fmt.Errorf("unknown source %q", b)
}

// Entry is a resolved nutrition result at both scales. It is built fresh per
// call and never shared.
type Entry struct {
	LabelKo     string           `json:"label_ko"`
	WeightGrams float64          `json:"weight_g"`
	Per100g     nutrition.Macros `json:"per100g"`
	Total       nutrition.Macros `json:"total"`
	MatchedVia  Tier             `json:"matched_via"`
	Source      Source           `json:"source"`
	Score       float64          `json:"score,omitempty"`
}

// entryFromRow scales a catalog row to its declared serving.
func entryFromRow(row *catalog.Row, label string, via Tier) *Entry {
	weight := row.ServingGrams
	if weight <= 0 {
		weight = nutrition.DefaultServingGrams
	}
	name := row.Label
	if name == "" {
		name = strings.TrimSpace(label)
	}
	return &Entry{
		LabelKo:     name,
		WeightGrams: weight,
		Per100g:     row.Per100g,
		Total:       nutrition.ScaleServing(row.Per100g, row.ServingGrams),
		MatchedVia:  via,
		Source:      SourceCatalog,
	}
}
