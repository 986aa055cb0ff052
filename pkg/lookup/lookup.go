// Package lookup composes the first-party food table, the catalog resolver
// and the confidence gate into one analysis call.
package lookup

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/hazyhaar/nutrimatch/pkg/foodstore"
	"github.com/hazyhaar/nutrimatch/pkg/gate"
	"github.com/hazyhaar/nutrimatch/pkg/nutrition"
	"github.com/hazyhaar/nutrimatch/pkg/resolve"
)

// ErrNoPredictions is returned by Analyze for an empty prediction list.
var ErrNoPredictions = errors.New("no predictions")

// Prediction is one classifier guess.
type Prediction struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// FoodFinder is the first-party table lookup. *foodstore.Store satisfies it.
type FoodFinder interface {
	FindByLabel(ctx context.Context, label string) (*foodstore.Food, error)
}

// SavePayload is what a caller persists when the decision allows saving.
// Macros are serving totals.
type SavePayload struct {
	LabelKo string           `json:"label_ko"`
	Macros  nutrition.Macros `json:"macros"`
	Source  string           `json:"source"`
	FoodID  *int64           `json:"food_id"`
}

// Analysis is the full answer for a prediction list.
type Analysis struct {
	Label        string         `json:"label"`
	LabelKo      string         `json:"label_ko"`
	Origin       gate.Origin    `json:"origin"`
	Entry        *resolve.Entry `json:"entry,omitempty"`
	Alternatives []Prediction   `json:"alternatives,omitempty"`
	Decision     gate.Decision  `json:"decision"`
	Save         *SavePayload   `json:"save_payload,omitempty"`
}

// Service is safe for concurrent use.
type Service struct {
	res    *resolve.Resolver
	foods  FoodFinder
	policy gate.Policy
	logger *slog.Logger
}

// NewService wires the pipeline. foods may be nil when no first-party table
// is configured.
func NewService(res *resolve.Resolver, foods FoodFinder, policy gate.Policy, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{res: res, foods: foods, policy: policy, logger: logger}
}

// Resolve runs the catalog tiers for one label.
func (s *Service) Resolve(label string) *resolve.Entry {
	return s.res.Resolve(label)
}

// Estimate returns the corpus average for a label.
func (s *Service) Estimate(label string) *nutrition.Macros {
	return s.res.EstimateAverage(label)
}

// Fallback runs the estimate chain: label average, curated table, corpus
// mean.
func (s *Service) Fallback(label string) *resolve.Entry {
	return s.res.Estimate(label)
}

// Policy returns the gate policy in effect.
func (s *Service) Policy() gate.Policy {
	return s.policy
}

// CatalogRows returns the number of loaded catalog rows.
func (s *Service) CatalogRows() int {
	return s.res.Catalog().Len()
}

// Analyze resolves the first prediction that matches, trying the first-party
// table before the catalog for each, and gates the result on the top
// prediction's confidence.
func (s *Service) Analyze(ctx context.Context, preds []Prediction) (*Analysis, error) {
	if len(preds) == 0 {
		return nil, ErrNoPredictions
	}
	top := preds[0]
	a := &Analysis{Label: strings.TrimSpace(top.Label)}
	if len(preds) > 1 {
		a.Alternatives = preds[1:]
	}

	var food *foodstore.Food
	for _, p := range preds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if f := s.findFood(ctx, p.Label); f != nil {
			food = f
			a.Origin = gate.OriginFirstParty
			a.Entry = foodEntry(f)
			break
		}
		if e := s.res.Resolve(p.Label); e != nil {
			a.Origin = gate.OriginCatalog
			a.Entry = e
			break
		}
	}

	a.Decision = gate.Evaluate(gate.Input{
		Label:    a.Label,
		Score:    top.Score,
		Matched:  a.Entry != nil,
		Origin:   a.Origin,
		Entry:    a.Entry,
		Estimate: s.res.Estimate,
	}, s.policy)

	a.LabelKo = a.Label
	if e := a.Decision.Entry; e != nil && e.LabelKo != "" {
		a.LabelKo = e.LabelKo
	}

	if a.Decision.CanSave && a.Decision.Entry != nil {
		a.Save = &SavePayload{
			LabelKo: a.LabelKo,
			Macros:  a.Decision.Entry.Total,
			Source:  saveSource(a.Origin, a.Decision.Entry),
		}
		if food != nil && a.Decision.Verdict == gate.Accept {
			id := food.ID
			a.Save.FoodID = &id
		}
	}
	return a, nil
}

// findFood logs store failures and carries on with the catalog.
func (s *Service) findFood(ctx context.Context, label string) *foodstore.Food {
	if s.foods == nil {
		return nil
	}
	f, err := s.foods.FindByLabel(ctx, label)
	if err != nil {
		s.logger.Warn("first-party lookup failed", "label", label, "error", err)
		return nil
	}
	return f
}

func foodEntry(f *foodstore.Food) *resolve.Entry {
	return &resolve.Entry{
		LabelKo:     f.Name,
		WeightGrams: nutrition.DefaultServingGrams,
		Per100g:     f.Per100g,
		Total:       nutrition.ProjectTotal(f.Per100g, nutrition.DefaultServingGrams),
		MatchedVia:  resolve.TierNone,
		Source:      resolve.SourceCatalog,
	}
}

func saveSource(o gate.Origin, e *resolve.Entry) string {
	switch {
	case e.Source == resolve.SourceDefault:
		return "default"
	case e.Source == resolve.SourceFallback:
		return "estimate"
	case o == gate.OriginFirstParty:
		return "db"
	default:
		return "catalog"
	}
}
