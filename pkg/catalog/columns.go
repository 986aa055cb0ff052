package catalog

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/hazyhaar/nutrimatch/pkg/nutrition"
)

// Header candidates, most specific first.
var (
	nativeNameHeaders = []string{
		"식품명", "식품명(국문)", "식품명(한글)", "대표식품명", "제품명", "품목명",
		"제품(식품)명", "name_ko", "label_ko",
	}
	englishNameHeaders = []string{"name", "foodname", "food_name", "label"}
	foreignNameHeaders = []string{"name_en", "식품명(영문)", "english_name", "label_en"}
	extraNameHeaders   = []string{"식품중분류명", "식품소분류명"}
	aliasHeaders       = []string{"synonyms", "synonym", "alias", "aliases", "동의어", "별칭"}
	servingHeaders     = []string{
		"식품중량", "1회제공량", "1회 제공량", "serving", "serving_size", "weight",
		"영양성분함량기준량",
	}

	kcalHeaders = []string{
		"에너지(kcal)", "에너지(㎉)", "열량(kcal)", "열량", "에너지", "kcal", "calories",
		"energy_kcal", "energy(kcal)",
		"kcal_per_100g", "calories_per_100g", "에너지(kcal/100g)",
	}
	kjHeaders      = []string{"kj", "에너지(kj)", "energy_kj", "energy(kj)"}
	proteinHeaders = []string{
		"단백질(g)", "단백질", "protein", "protein_g", "protein_per_100g", "protein_g_per_100g",
	}
	carbHeaders = []string{
		"탄수화물(g)", "탄수화물", "carb", "carbs", "carbohydrate", "carbohydrates",
		"carb_g", "carb_per_100g", "carb_g_per_100g",
	}
	fatHeaders = []string{
		"지방(g)", "지방", "fat", "fat_g", "fat_per_100g", "fat_g_per_100g",
	}
)

var (
	nameHeaderRE    = regexp.MustCompile(`식품명|대표식품명|name_?ko|label_?ko|품목명|한글명|제품명`)
	kcalHeaderRE    = []*regexp.Regexp{regexp.MustCompile(`에너지|열량|kcal`), regexp.MustCompile(`energy.*kcal|calories?`)}
	kjHeaderRE      = regexp.MustCompile(`kj`)
	proteinHeaderRE = regexp.MustCompile(`단백질|protein`)
	carbHeaderRE    = regexp.MustCompile(`탄수화물|carbo(hydrate)?s?`)
	fatHeaderRE     = regexp.MustCompile(`지방|fat`)
	notFatRE        = regexp.MustCompile(`포화|트랜스|saturated|trans|fatty`)
	servingHeaderRE = regexp.MustCompile(`중량|제공량|serving`)
)

// columns maps a file's actual header onto the canonical row shape. Each
// macro keeps an ordered list of candidate columns; per row the first
// parseable value wins.
type columns struct {
	names   []int
	nameEn  int
	extra   []int
	aliases int
	serving []int

	kcal, kj, protein, carb, fat []int
}

// resolveColumns runs once per file.
func resolveColumns(header []string) columns {
	h := make([]string, len(header))
	for i, v := range header {
		h[i] = strings.TrimSpace(strings.TrimPrefix(v, "\ufeff"))
	}

	c := columns{nameEn: -1, aliases: -1}
	if idx := matchExact(h, foreignNameHeaders); len(idx) > 0 {
		c.nameEn = idx[0]
	}
	c.names = matchExact(h, nativeNameHeaders)
	if len(c.names) == 0 {
		c.names = matchExact(h, englishNameHeaders)
	}
	if len(c.names) == 0 {
		foreign := func(s string) bool { return c.nameEn >= 0 && s == compact(h[c.nameEn]) }
		c.names = matchPattern(h, nameHeaderRE, foreign)
	}
	c.extra = matchExact(h, extraNameHeaders)
	if idx := matchExact(h, aliasHeaders); len(idx) > 0 {
		c.aliases = idx[0]
	}

	c.serving = matchExact(h, servingHeaders)
	if len(c.serving) == 0 {
		c.serving = matchPattern(h, servingHeaderRE, nil)
	}

	isKJ := func(s string) bool { return kjHeaderRE.MatchString(s) }
	c.kcal = withoutKJ(h, matchExact(h, kcalHeaders))
	for _, re := range kcalHeaderRE {
		c.kcal = appendNew(c.kcal, matchPattern(h, re, isKJ)...)
	}
	c.kj = appendNew(matchExact(h, kjHeaders), matchPattern(h, kjHeaderRE, nil)...)
	c.protein = appendNew(matchExact(h, proteinHeaders), matchPattern(h, proteinHeaderRE, nil)...)
	c.carb = appendNew(matchExact(h, carbHeaders), matchPattern(h, carbHeaderRE, nil)...)
	c.fat = appendNew(matchExact(h, fatHeaders), matchPattern(h, fatHeaderRE, notFatRE.MatchString)...)
	return c
}

// hasName reports whether any name column was found.
func (c columns) hasName() bool {
	return len(c.names) > 0 || c.nameEn >= 0
}

// row converts one record. ok is false when the record has no name.
func (c columns) row(rec []string) (Row, bool) {
	cell := func(i int) string {
		if i < 0 || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var r Row
	for _, i := range c.names {
		r.Names = append(r.Names, cell(i))
	}
	r.Names = uniqueNonEmpty(r.Names)
	r.NameEn = cell(c.nameEn)
	switch {
	case len(r.Names) > 0:
		r.Label = r.Names[0]
	case r.NameEn != "":
		r.Label = r.NameEn
	default:
		return Row{}, false
	}

	values := append([]string(nil), r.Names...)
	for _, i := range c.extra {
		values = append(values, cell(i))
	}
	values = append(values, r.NameEn)
	r.Synonyms = synonymsOf(values...)

	if v := cell(c.aliases); v != "" {
		r.Aliases = uniqueNonEmpty(strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ';' }))
	}

	r.ServingGrams = nutrition.DefaultServingGrams
	for _, i := range c.serving {
		if v := cell(i); v != "" {
			r.ServingGrams = nutrition.ParseServingGrams(v)
			break
		}
	}

	kcal, ok := firstNumber(rec, c.kcal)
	if !ok {
		if kj, ok := firstNumber(rec, c.kj); ok {
			kcal = kj / 4.184
		}
	}
	protein, _ := firstNumber(rec, c.protein)
	carb, _ := firstNumber(rec, c.carb)
	fat, _ := firstNumber(rec, c.fat)
	r.Per100g = nutrition.Macros{
		Calories: nutrition.Round(kcal, 1),
		Protein:  nutrition.Round(protein, 1),
		Carb:     nutrition.Round(carb, 1),
		Fat:      nutrition.Round(fat, 1),
	}
	return r, true
}

// compact lower-cases a header and drops whitespace.
func compact(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
}

// matchExact returns the indices of headers equal to a candidate, in
// candidate order. Comparison falls back to the compact form.
func matchExact(header, candidates []string) []int {
	var out []int
	for _, cand := range candidates {
		cc := compact(cand)
		for i, h := range header {
			if h == cand || compact(h) == cc {
				out = appendNew(out, i)
			}
		}
	}
	return out
}

// matchPattern returns the indices of headers matching re, skipping those
// for which exclude reports true.
func matchPattern(header []string, re *regexp.Regexp, exclude func(string) bool) []int {
	var out []int
	for i, h := range header {
		ch := compact(h)
		if exclude != nil && exclude(ch) {
			continue
		}
		if re.MatchString(strings.ToLower(h)) || re.MatchString(ch) {
			out = append(out, i)
		}
	}
	return out
}

func withoutKJ(header []string, idx []int) []int {
	var out []int
	for _, i := range idx {
		if !kjHeaderRE.MatchString(compact(header[i])) {
			out = append(out, i)
		}
	}
	return out
}

func appendNew(dst []int, idx ...int) []int {
	for _, i := range idx {
		found := false
		for _, d := range dst {
			if d == i {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, i)
		}
	}
	return dst
}
