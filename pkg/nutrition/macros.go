package nutrition

import "math"

// Macros is a calorie/protein/carbohydrate/fat record. Fields are never
// negative and never NaN or Inf.
type Macros struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carb     float64 `json:"carb"`
	Fat      float64 `json:"fat"`
}

func (m Macros) scale(f float64) Macros {
	return Macros{
		Calories: Round(m.Calories*f, 1),
		Protein:  Round(m.Protein*f, 1),
		Carb:     Round(m.Carb*f, 1),
		Fat:      Round(m.Fat*f, 1),
	}
}

// ProjectTotal scales a per-100g record to an arbitrary weight. Weights below
// one gram are treated as one gram so the total never collapses to zero.
func ProjectTotal(per100g Macros, grams float64) Macros {
	return per100g.scale(math.Max(grams, 1) / 100)
}

// ScaleServing scales a per-100g record to a catalog row's declared serving.
// A zero weight means "undeclared" and keeps the per-100g values.
func ScaleServing(per100g Macros, grams float64) Macros {
	scale := 1.0
	if grams != 0 {
		scale = grams / 100
	}
	return per100g.scale(scale)
}

// Round rounds v half away from zero to the given number of decimals.
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

// Sanitize maps NaN, Inf and negative values to zero.
func Sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
