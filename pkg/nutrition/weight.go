package nutrition

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// DefaultServingGrams is used whenever a serving weight is absent or unreadable.
const DefaultServingGrams = 100.0

var gramsRE = regexp.MustCompile(`(?i)([0-9]+(?:\.[0-9]+)?)\s*g`)

// ParseServingGrams extracts a gram quantity from a free-text serving field.
//
//	"550g" / "총중량 300 g" / "1개(180g)" / "180 g/pack" -> the number before g
//	"300"                                             -> 300
//	"", garbage, negative or non-finite               -> 100
func ParseServingGrams(s string) float64 {
	s = strings.ToLower(strings.TrimSpace(strings.ReplaceAll(s, "그램", "g")))
	if s == "" {
		return DefaultServingGrams
	}
	if m := gramsRE.FindStringSubmatch(s); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return v
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return DefaultServingGrams
	}
	return v
}
