package resolve

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/nutrimatch/pkg/nutrition"
)

// Pair maps an English label to its Korean catalog term.
type Pair struct {
	En string `yaml:"en"`
	Ko string `yaml:"ko"`
}

// DefaultPairs is the built-in English to Korean table.
var DefaultPairs = []Pair{
	{"hamburger", "햄버거"},
	{"cheeseburger", "치즈버거"},
	{"spaghetti bolognese", "볼로네제 스파게티"},
	{"bolognese", "볼로네제"},
	{"spaghetti", "스파게티"},
	{"pasta", "파스타"},
	{"carbonara", "까르보나라"},
	{"ramen", "라면"},
	{"udon", "우동"},
	{"soba", "소바"},
	{"sushi", "스시"},
	{"kimbap", "김밥"},
	{"gimbap", "김밥"},
	{"fried chicken", "치킨"},
	{"pork cutlet", "돈까스"},
	{"tonkatsu", "돈까스"},
	{"donkatsu", "돈까스"},
	{"tteokbokki", "떡볶이"},
	{"rice cake", "떡"},
	{"bibimbap", "비빔밥"},
	{"bulgogi", "불고기"},
	{"kimchijjigae", "김치찌개"},
	{"kimchi stew", "김치찌개"},
	{"pizza", "피자"},
	{"salad", "샐러드"},
	{"sandwich", "샌드위치"},
	{"yogurt", "요거트"},
	{"toast", "토스트"},
	{"steak", "스테이크"},
	{"curry", "카레"},
	{"apple", "사과"},
	{"banana", "바나나"},
	{"coffee", "커피"},
}

// SynonymTable answers "is this normalized label a known English name, and
// if so what is the Korean term". A nil table substitutes nothing.
type SynonymTable struct {
	byKey map[string]string
}

// NewSynonymTable indexes pairs by normalized English label. The first pair
// for a key wins.
func NewSynonymTable(pairs []Pair) *SynonymTable {
	t := &SynonymTable{byKey: make(map[string]string, len(pairs))}
	for _, p := range pairs {
		k := nutrition.Normalize(p.En)
		if k == "" || p.Ko == "" {
			continue
		}
		if _, ok := t.byKey[k]; !ok {
			t.byKey[k] = p.Ko
		}
	}
	return t
}

// DefaultSynonyms returns the built-in table.
func DefaultSynonyms() *SynonymTable {
	return NewSynonymTable(DefaultPairs)
}

// LoadSynonyms reads a YAML list of {en, ko} pairs. File entries take
// precedence over the built-in table.
func LoadSynonyms(path string) (*SynonymTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read synonyms: %w", err)
	}
	var pairs []Pair
	if err := yaml.Unmarshal(data, &pairs); err != nil {
		return nil, fmt.Errorf("parse synonyms: %w", err)
	}
	return NewSynonymTable(append(pairs, DefaultPairs...)), nil
}

// Substitute returns the Korean term for an already-normalized key.
func (t *SynonymTable) Substitute(key string) (string, bool) {
	if t == nil || key == "" {
		return "", false
	}
	ko, ok := t.byKey[key]
	return ko, ok
}

// Len returns the number of distinct English keys.
func (t *SynonymTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.byKey)
}
