package catalog

import (
	"math"
	"strconv"
	"strings"
)

// parseNumber reads one numeric cell. Blank, "-", "NA" and friends mean no
// value; "<0.1" reads as its bound; thousands separators are ignored.
// NaN, Inf and negative numbers mean no value.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(strings.Trim(strings.TrimSpace(s), `"'`))
	switch strings.ToLower(s) {
	case "", "-", "na", "n/a", "tr", "nan", "null", "none":
		return 0, false
	}
	s = strings.TrimSpace(strings.TrimPrefix(s, "<"))
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, false
	}
	return v, true
}

// firstNumber returns the first parseable value among the given columns.
func firstNumber(rec []string, cols []int) (float64, bool) {
	for _, i := range cols {
		if i < 0 || i >= len(rec) {
			continue
		}
		if v, ok := parseNumber(rec[i]); ok {
			return v, true
		}
	}
	return 0, false
}
