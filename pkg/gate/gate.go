// Package gate decides whether a resolved label may be saved without asking
// the user, combining classifier confidence with match success.
package gate

import (
	"fmt"
	"strings"

	"github.com/hazyhaar/nutrimatch/pkg/nutrition"
	"github.com/hazyhaar/nutrimatch/pkg/resolve"
)

// Origin says where a match came from.
type Origin int

const (
	OriginNone Origin = iota
	OriginFirstParty
	OriginCatalog
)

var originNames = [...]string{"none", "first_party", "catalog"}

func (o Origin) String() string {
	if o < 0 || int(o) >= len(originNames) {
		return fmt.Sprintf("origin(%d)", int(o))
	}
	return originNames[o]
}

func (o Origin) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// Verdict is the gate outcome.
type Verdict int

const (
	Reject Verdict = iota
	Accept
	Estimate
)

var verdictNames = [...]string{"reject", "accept", "estimate"}

func (v Verdict) String() string {
	if v < 0 || int(v) >= len(verdictNames) {
		return fmt.Sprintf("verdict(%d)", int(v))
	}
	return verdictNames[v]
}

func (v Verdict) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

// Synthetic confidences substituted for degenerate classifier scores.
const (
	FirstPartyConfidence = 95.0
	CatalogConfidence    = 80.0
)

// Policy holds the gate thresholds.
type Policy struct {
	MatchThreshold              float64 `yaml:"match_threshold"`       // percent
	AllowFallbackBelowThreshold bool    `yaml:"allow_fallback_below"`  // estimate unmatched labels
	DefaultFallbackKcal         float64 `yaml:"default_fallback_kcal"` // last-resort calories
	DegenerateBelow             float64 `yaml:"degenerate_below"`      // percent
}

// DefaultPolicy returns the stock thresholds.
func DefaultPolicy() Policy {
	return Policy{
		MatchThreshold:      70,
		DefaultFallbackKcal: 450,
		DegenerateBelow:     1.0,
	}
}

// Input is what the gate sees for one label.
type Input struct {
	Label   string
	Score   float64 // classifier confidence, 0..1
	Matched bool
	Origin  Origin
	Entry   *resolve.Entry // the match, when Matched

	// Estimate is consulted only for unmatched labels when the policy allows
	// fallback. It may be nil.
	Estimate func(label string) *resolve.Entry
}

// Decision is the gate result.
type Decision struct {
	Verdict           Verdict        `json:"verdict"`
	Confidence        float64        `json:"confidence"`
	Synthetic         bool           `json:"synthetic_confidence,omitempty"`
	Passed            bool           `json:"passed"`
	CanSave           bool           `json:"can_save"`
	NeedsConfirmation bool           `json:"needs_confirmation"`
	Entry             *resolve.Entry `json:"entry,omitempty"`
}

// Evaluate applies p to in. Matched-but-low-confidence is always Reject,
// whatever the fallback setting.
func Evaluate(in Input, p Policy) Decision {
	d := Decision{Confidence: nutrition.Round(in.Score*100, 1)}

	if in.Matched && d.Confidence < p.DegenerateBelow {
		switch in.Origin {
		case OriginFirstParty:
			d.Confidence, d.Synthetic = FirstPartyConfidence, true
		case OriginCatalog:
			d.Confidence, d.Synthetic = CatalogConfidence, true
		}
	}

	switch {
	case in.Matched && d.Confidence >= p.MatchThreshold:
		d.Verdict = Accept
		d.Passed = true
		d.CanSave = true
		d.Entry = in.Entry
	case !in.Matched && p.AllowFallbackBelowThreshold:
		d.Verdict = Estimate
		d.CanSave = true
		d.NeedsConfirmation = true
		d.Entry = fallback(in, p)
	default:
		d.Verdict = Reject
		d.NeedsConfirmation = true
		d.Entry = in.Entry
	}
	return d
}

// fallback runs the estimator and falls back to the fixed default when it
// yields no calories.
func fallback(in Input, p Policy) *resolve.Entry {
	if in.Estimate != nil {
		if e := in.Estimate(in.Label); e != nil && e.Per100g.Calories > 0 {
			e.Source = resolve.SourceFallback
			return e
		}
	}
	label := strings.TrimSpace(in.Label)
	if label == "" {
		label = "일반 식사"
	}
	m := nutrition.Macros{Calories: p.DefaultFallbackKcal}
	return &resolve.Entry{
		LabelKo:     label,
		WeightGrams: nutrition.DefaultServingGrams,
		Per100g:     m,
		Total:       m,
		MatchedVia:  resolve.TierNone,
		Source:      resolve.SourceDefault,
	}
}
