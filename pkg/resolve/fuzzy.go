package resolve

import (
	"sort"
	"strings"

	"github.com/mozillazg/go-unidecode"

	"github.com/hazyhaar/nutrimatch/pkg/catalog"
	"github.com/hazyhaar/nutrimatch/pkg/nutrition"
)

// Scored is a fuzzy candidate with its 0-100 similarity.
type Scored struct {
	Name  catalog.Name
	Score float64
}

// FuzzyMatcher ranks catalog names against a query. Implementations return
// at most limit candidates, best first, ties in catalog order.
type FuzzyMatcher interface {
	Rank(query string, names []catalog.Name, limit int) []Scored
}

// NopMatcher never ranks anything; the fuzzy tier is skipped.
type NopMatcher struct{}

func (NopMatcher) Rank(string, []catalog.Name, int) []Scored { return nil }

// LevenshteinMatcher scores candidates by the better of the token-set ratio
// and the partial ratio on folded strings.
type LevenshteinMatcher struct {
	// Romanize also scores an ASCII transliteration of non-ASCII candidates
	// when the query is ASCII.
	Romanize bool
}

func (m LevenshteinMatcher) Rank(query string, names []catalog.Name, limit int) []Scored {
	q := nutrition.Fold(query)
	if q == "" || limit <= 0 || len(names) == 0 {
		return nil
	}
	latin := isLatin(q)

	out := make([]Scored, 0, len(names))
	for _, n := range names {
		c := nutrition.Fold(n.Text)
		if c == "" {
			continue
		}
		s := Similarity(q, c)
		if m.Romanize && latin && !isLatin(n.Text) {
			if r := nutrition.Fold(unidecode.Unidecode(n.Text)); r != "" {
				s = max(s, Similarity(q, r))
			}
		}
		out = append(out, Scored{Name: n, Score: s})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Similarity is max(TokenSetRatio, PartialRatio), 0-100.
func Similarity(a, b string) float64 {
	return max(TokenSetRatio(a, b), PartialRatio(a, b))
}

// Ratio is the normalized indel similarity 100 * 2*LCS / (len a + len b),
// over runes.
func Ratio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 100
	}
	return nutrition.Round(100*float64(2*lcs(ra, rb))/float64(total), 2)
}

// lcs is the longest common subsequence length.
func lcs(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				cur[j] = prev[j-1] + 1
			case prev[j] >= cur[j-1]:
				cur[j] = prev[j]
			default:
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// PartialRatio is the best Ratio between the shorter string and any
// same-length window of the longer one.
func PartialRatio(a, b string) float64 {
	short, long := []rune(a), []rune(b)
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) == 0 {
		if len(long) == 0 {
			return 100
		}
		return 0
	}
	s := string(short)
	best := 0.0
	for i := 0; i+len(short) <= len(long); i++ {
		r := Ratio(s, string(long[i:i+len(short)]))
		if r > best {
			best = r
			if best == 100 {
				break
			}
		}
	}
	return best
}

// TokenSetRatio compares the sorted token intersection against each side's
// intersection-plus-remainder, so word order and extra words matter less.
func TokenSetRatio(a, b string) float64 {
	ta, tb := tokenSet(a), tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	var inter, onlyA, onlyB []string
	for t := range ta {
		if tb[t] {
			inter = append(inter, t)
		} else {
			onlyA = append(onlyA, t)
		}
	}
	for t := range tb {
		if !ta[t] {
			onlyB = append(onlyB, t)
		}
	}
	sort.Strings(inter)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	base := strings.Join(inter, " ")
	withA := strings.TrimSpace(base + " " + strings.Join(onlyA, " "))
	withB := strings.TrimSpace(base + " " + strings.Join(onlyB, " "))

	best := Ratio(withA, withB)
	if base != "" {
		best = max(best, Ratio(base, withA), Ratio(base, withB))
	}
	return best
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, f := range strings.Fields(s) {
		set[f] = true
	}
	return set
}

func isLatin(s string) bool {
	for _, r := range s {
		if r >= 0x80 {
			return false
		}
	}
	return true
}
