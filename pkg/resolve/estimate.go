package resolve

import (
	"strings"
	"unicode/utf8"

	"github.com/hazyhaar/nutrimatch/pkg/catalog"
	"github.com/hazyhaar/nutrimatch/pkg/nutrition"
)

// EstimateAverage returns the mean per-100g macros over rows whose label
// equals the normalized query, or failing that, rows whose label contains
// it or is contained by it. It returns nil when nothing matches.
func (r *Resolver) EstimateAverage(label string) *nutrition.Macros {
	q, ok := r.prepare(label)
	if !ok {
		return nil
	}
	cat := r.src.Catalog()
	partialOK := utf8.RuneCountInString(q.termKey) >= r.minRunes

	var exact, partial []*catalog.Row
	for i := range cat.Rows {
		row := &cat.Rows[i]
		name := nutrition.Normalize(row.Label)
		switch {
		case name == "":
		case name == q.termKey:
			exact = append(exact, row)
		case partialOK && r.contains(name, q.termKey):
			partial = append(partial, row)
		}
	}
	if len(exact) > 0 {
		return mean(exact)
	}
	return mean(partial)
}

// CorpusMean is the mean per-100g macros over every row with nonzero
// calories. It returns nil for a catalog without such rows.
func (r *Resolver) CorpusMean() *nutrition.Macros {
	cat := r.src.Catalog()
	var rows []*catalog.Row
	for i := range cat.Rows {
		if cat.Rows[i].Per100g.Calories > 0 {
			rows = append(rows, &cat.Rows[i])
		}
	}
	return mean(rows)
}

// Estimate is the fallback chain for labels the tiers could not resolve:
// the label average, then the curated table, then the corpus mean. It
// returns nil when all three come up empty.
func (r *Resolver) Estimate(label string) *Entry {
	name := strings.TrimSpace(label)
	if q, ok := r.prepare(label); ok && q.substituted {
		name = q.term
	}
	if m := r.EstimateAverage(label); m != nil {
		return estimateEntry(name, *m)
	}
	if e := Curated(label); e != nil {
		return e
	}
	if m := r.CorpusMean(); m != nil {
		return estimateEntry(name, *m)
	}
	return nil
}

func estimateEntry(label string, per100g nutrition.Macros) *Entry {
	return &Entry{
		LabelKo:     label,
		WeightGrams: nutrition.DefaultServingGrams,
		Per100g:     per100g,
		Total:       nutrition.ProjectTotal(per100g, nutrition.DefaultServingGrams),
		MatchedVia:  TierNone,
		Source:      SourceFallback,
	}
}

func mean(rows []*catalog.Row) *nutrition.Macros {
	if len(rows) == 0 {
		return nil
	}
	var sum nutrition.Macros
	for _, r := range rows {
		sum.Calories += r.Per100g.Calories
		sum.Protein += r.Per100g.Protein
		sum.Carb += r.Per100g.Carb
		sum.Fat += r.Per100g.Fat
	}
	n := float64(len(rows))
	return &nutrition.Macros{
		Calories: nutrition.Round(sum.Calories/n, 2),
		Protein:  nutrition.Round(sum.Protein/n, 2),
		Carb:     nutrition.Round(sum.Carb/n, 2),
		Fat:      nutrition.Round(sum.Fat/n, 2),
	}
}
