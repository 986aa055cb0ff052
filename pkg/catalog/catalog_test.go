package catalog

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"golang.org/x/text/encoding/korean"

	"github.com/hazyhaar/nutrimatch/pkg/nutrition"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

const mfdsCSV = "\ufeff식품명,식품중분류명,에너지(kcal),단백질(g),탄수화물(g),지방(g),포화지방산(g),1회제공량,name_en\n" +
	"김치찌개,찌개류,320,20,16,18,5,,kimchi stew\n" +
	"불고기 덮밥,덮밥류,\"1,234\",<0.1,-,NA,1,1개(350g),\n" +
	",기타,100,1,1,1,0,,\n"

func parseString(t *testing.T, s string, opts Options) *Catalog {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = quiet
	}
	c, err := Parse(strings.NewReader(s), opts)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return c
}

// lookup normalizes term and looks it up in the alias index.
func lookup(c *Catalog, term string) (*Row, bool) {
	r, _, ok := c.LookupKey(nutrition.Normalize(term))
	return r, ok
}

func TestParse_MFDS(t *testing.T) {
	c := parseString(t, mfdsCSV, Options{})

	if c.Stats.Rows != 2 || c.Stats.Skipped != 1 {
		t.Fatalf("stats = %+v, want 2 rows 1 skipped", c.Stats)
	}

	r, ok := lookup(c, "김치찌개")
	if !ok {
		t.Fatal("expected 김치찌개 (BOM must not leak into the first header)")
	}
	want := nutrition.Macros{Calories: 320, Protein: 20, Carb: 16, Fat: 18}
	if r.Per100g != want {
		t.Errorf("per100g = %+v, want %+v", r.Per100g, want)
	}
	if r.ServingGrams != 100 {
		t.Errorf("serving = %v, want 100", r.ServingGrams)
	}
	if r.NameEn != "kimchi stew" {
		t.Errorf("name_en = %q", r.NameEn)
	}

	r, ok = lookup(c, "불고기 덮밥")
	if !ok {
		t.Fatal("expected 불고기 덮밥")
	}
	want = nutrition.Macros{Calories: 1234, Protein: 0.1}
	if r.Per100g != want {
		t.Errorf("per100g = %+v, want %+v", r.Per100g, want)
	}
	if r.ServingGrams != 350 {
		t.Errorf("serving = %v, want 350", r.ServingGrams)
	}
}

func TestParse_SynonymTokens(t *testing.T) {
	c := parseString(t, mfdsCSV, Options{})

	tests := []struct {
		term, label string
	}{
		{"불고기", "불고기 덮밥"},
		{"덮밥", "불고기 덮밥"},
		{"덮밥류", "불고기 덮밥"},
		{"찌개류", "김치찌개"},
		{"Kimchi Stew", "김치찌개"},
	}
	for _, tt := range tests {
		r, ok := lookup(c, tt.term)
		if !ok {
			t.Errorf("Lookup(%q): not found", tt.term)
			continue
		}
		if r.Label != tt.label {
			t.Errorf("Lookup(%q) = %q, want %q", tt.term, r.Label, tt.label)
		}
	}
}

func TestLookupKey_Foreign(t *testing.T) {
	c := parseString(t, mfdsCSV, Options{})

	if _, foreign, ok := c.LookupKey("kimchistew"); !ok || !foreign {
		t.Errorf("kimchistew: ok=%v foreign=%v, want foreign hit", ok, foreign)
	}
	if _, foreign, ok := c.LookupKey("김치찌개"); !ok || foreign {
		t.Errorf("김치찌개: ok=%v foreign=%v, want native hit", ok, foreign)
	}
	if _, _, ok := c.LookupKey(""); ok {
		t.Error("empty key must never match")
	}
}

func TestParse_FirstWriterWins(t *testing.T) {
	c := parseString(t, "name,kcal\nPizza,250\npizza,300\n", Options{})

	if c.Len() != 2 {
		t.Fatalf("rows = %d, want 2", c.Len())
	}
	r, ok := lookup(c, "PIZZA")
	if !ok {
		t.Fatal("expected pizza")
	}
	if r.Per100g.Calories != 250 {
		t.Errorf("calories = %v, want 250 (first row)", r.Per100g.Calories)
	}
	if c.Stats.Duplicates != 1 {
		t.Errorf("duplicates = %d, want 1", c.Stats.Duplicates)
	}
}

func TestParse_KilojouleFallback(t *testing.T) {
	c := parseString(t, "name;energy (kJ);protein\nApple;418.4;0.3\nWater;;0\n", Options{})

	r, ok := lookup(c, "apple")
	if !ok {
		t.Fatal("expected apple")
	}
	if r.Per100g.Calories != 100 {
		t.Errorf("calories = %v, want 100", r.Per100g.Calories)
	}
	if r.Per100g.Protein != 0.3 {
		t.Errorf("protein = %v, want 0.3", r.Per100g.Protein)
	}

	r, _ = lookup(c, "water")
	if r == nil || r.Per100g.Calories != 0 {
		t.Errorf("water = %+v, want zero calories", r)
	}
}

func TestParse_KcalPreferredOverKJ(t *testing.T) {
	c := parseString(t, "name,energy_kj,calories\nRice,1000,130\nBread,1100,\n", Options{})

	if r, _ := lookup(c, "rice"); r == nil || r.Per100g.Calories != 130 {
		t.Errorf("rice = %+v, want 130 kcal", r)
	}
	// No kcal value: fall back to kJ.
	if r, _ := lookup(c, "bread"); r == nil || r.Per100g.Calories != 262.9 {
		t.Errorf("bread = %+v, want 262.9 kcal", r)
	}
}

func TestParse_Delimiters(t *testing.T) {
	tests := []struct {
		name, input string
		opts        Options
	}{
		{"comma", "식품명,열량\n라면,470\n", Options{}},
		{"semicolon", "식품명;열량\n라면;470\n", Options{}},
		{"tab", "식품명\t열량\n라면\t470\n", Options{}},
		{"explicit", "식품명|열량\n라면|470\n", Options{Delimiter: "|"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := parseString(t, tt.input, tt.opts)
			r, ok := lookup(c, "라면")
			if !ok {
				t.Fatal("expected 라면")
			}
			if r.Per100g.Calories != 470 {
				t.Errorf("calories = %v, want 470", r.Per100g.Calories)
			}
		})
	}
}

func TestParse_LegacyEncoding(t *testing.T) {
	encoded, err := korean.EUCKR.NewEncoder().String("식품명,에너지(kcal)\n비빔밥,150\n")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	c := parseString(t, encoded, Options{Encoding: "euc-kr"})

	r, ok := lookup(c, "비빔밥")
	if !ok {
		t.Fatal("expected 비빔밥 after transcoding")
	}
	if r.Per100g.Calories != 150 {
		t.Errorf("calories = %v, want 150", r.Per100g.Calories)
	}
}

func TestParse_UTF8SigEncoding(t *testing.T) {
	for _, enc := range []string{"utf-8-sig", "UTF8SIG", "utf_8_sig", "UTF-8"} {
		t.Run(enc, func(t *testing.T) {
			c := parseString(t, "\ufeff식품명,에너지(kcal)\n비빔밥,150\n", Options{Encoding: enc})
			r, ok := lookup(c, "비빔밥")
			if !ok {
				t.Fatal("expected 비빔밥 with the BOM stripped")
			}
			if r.Per100g.Calories != 150 {
				t.Errorf("calories = %v, want 150", r.Per100g.Calories)
			}
		})
	}
}

func TestParse_UnsupportedEncoding(t *testing.T) {
	_, err := Parse(strings.NewReader("name\nx\n"), Options{Encoding: "klingon", Logger: quiet})
	if err == nil {
		t.Fatal("expected error for unknown encoding")
	}
}

func TestParse_AliasColumn(t *testing.T) {
	c := parseString(t, "식품명,synonyms,kcal\n돈까스,\"tonkatsu; pork cutlet,katsu\",300\n", Options{})

	r, ok := lookup(c, "돈까스")
	if !ok {
		t.Fatal("expected 돈까스")
	}
	want := []string{"tonkatsu", "pork cutlet", "katsu"}
	if len(r.Aliases) != len(want) {
		t.Fatalf("aliases = %q, want %q", r.Aliases, want)
	}
	for i := range want {
		if r.Aliases[i] != want[i] {
			t.Errorf("aliases[%d] = %q, want %q", i, r.Aliases[i], want[i])
		}
	}
	// Secondary synonyms are not folded into the alias index.
	if _, ok := lookup(c, "tonkatsu"); ok {
		t.Error("alias column value should not be indexed")
	}
}

func TestParse_Empty(t *testing.T) {
	for _, in := range []string{"", "\n\n", "\ufeff"} {
		c := parseString(t, in, Options{})
		if c.Len() != 0 {
			t.Errorf("Parse(%q) rows = %d, want 0", in, c.Len())
		}
	}
}

func TestParse_NoNameColumn(t *testing.T) {
	_, err := Parse(strings.NewReader("kcal,protein\n1,2\n"), Options{Logger: quiet})
	if err == nil {
		t.Fatal("expected error for header without a name column")
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"12.5", 12.5, true},
		{" 7 ", 7, true},
		{"<0.1", 0.1, true},
		{"1,234.5", 1234.5, true},
		{`"42"`, 42, true},
		{"", 0, false},
		{"-", 0, false},
		{"NA", 0, false},
		{"n/a", 0, false},
		{"tr", 0, false},
		{"-3", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
		{"abc", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseNumber(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("parseNumber(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestNew_DerivesFields(t *testing.T) {
	c := New([]Row{
		{Label: "김치찌개", NameEn: "Kimchi Stew", Per100g: nutrition.Macros{Calories: 320, Fat: -4}},
		{NameEn: "Bagel"},
		{},
	})

	if c.Len() != 2 || c.Stats.Skipped != 1 {
		t.Fatalf("stats = %+v, want 2 rows 1 skipped", c.Stats)
	}
	r := c.Rows[0]
	if len(r.Names) != 1 || r.Names[0] != "김치찌개" {
		t.Errorf("names = %q", r.Names)
	}
	if r.ServingGrams != 100 {
		t.Errorf("serving = %v, want 100", r.ServingGrams)
	}
	if r.Per100g.Fat != 0 {
		t.Errorf("negative fat should clamp to 0, got %v", r.Per100g.Fat)
	}
	if c.Rows[1].Label != "Bagel" || len(c.Rows[1].Names) != 0 {
		t.Errorf("english-only row = %+v", c.Rows[1])
	}

	names := c.Names()
	want := []string{"김치찌개", "Kimchi Stew", "Bagel"}
	if len(names) != len(want) {
		t.Fatalf("names = %+v, want %q", names, want)
	}
	for i, n := range names {
		if n.Text != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, n.Text, want[i])
		}
	}
	if names[2].Row != 1 {
		t.Errorf("Bagel row = %d, want 1", names[2].Row)
	}
}

func writeCSV(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoader_BuildsOnce(t *testing.T) {
	path := writeCSV(t, t.TempDir(), "foods.csv", mfdsCSV)
	l := NewLoader(path, Options{Logger: quiet})

	first := l.Catalog()
	if first.Len() != 2 {
		t.Fatalf("rows = %d, want 2", first.Len())
	}
	if first.Path != path {
		t.Errorf("path = %q, want %q", first.Path, path)
	}

	os.Remove(path)
	if again := l.Catalog(); again != first {
		t.Error("loader rebuilt the catalog")
	}
}

func TestLoader_Concurrent(t *testing.T) {
	path := writeCSV(t, t.TempDir(), "foods.csv", mfdsCSV)
	l := NewLoader(path, Options{Logger: quiet})

	var wg sync.WaitGroup
	got := make([]*Catalog, 8)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = l.Catalog()
		}(i)
	}
	wg.Wait()
	for i := 1; i < len(got); i++ {
		if got[i] != got[0] {
			t.Fatal("concurrent callers saw different catalogs")
		}
	}
}

func TestLoader_Degrades(t *testing.T) {
	dir := t.TempDir()
	bad := writeCSV(t, dir, "bad.csv", "kcal\n1\n")

	for _, path := range []string{"", filepath.Join(dir, "missing.csv"), bad} {
		c := NewLoader(path, Options{Logger: quiet}).Catalog()
		if c == nil || c.Len() != 0 {
			t.Errorf("NewLoader(%q) should yield an empty catalog", path)
		}
	}
}

func TestNewStaticLoader(t *testing.T) {
	c := New([]Row{{Label: "사과"}})
	if got := NewStaticLoader(c).Catalog(); got != c {
		t.Error("static loader should return the injected catalog")
	}
	if got := NewStaticLoader(nil).Catalog(); got == nil || got.Len() != 0 {
		t.Error("static loader with nil should return an empty catalog")
	}
}

func TestResolvePath(t *testing.T) {
	dir := t.TempDir()
	conventional := writeCSV(t, dir, filepath.Join("intakes", "data", DefaultFileName), mfdsCSV)
	explicit := writeCSV(t, dir, "custom.csv", mfdsCSV)

	tests := []struct {
		name, explicit, baseDir, want string
	}{
		{"explicit wins", explicit, dir, explicit},
		{"missing explicit falls through", filepath.Join(dir, "nope.csv"), dir, conventional},
		{"conventional", "", dir, conventional},
		{"nothing", filepath.Join(dir, "nope.csv"), filepath.Join(dir, "empty"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolvePath(tt.explicit, tt.baseDir); got != tt.want {
				t.Errorf("ResolvePath = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSnapshot_RoundTrip(t *testing.T) {
	c := parseString(t, mfdsCSV, Options{})
	path := filepath.Join(t.TempDir(), "foods.gob")

	if err := WriteSnapshot(c, path); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	got, err := Load(path, Options{Logger: quiet})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Len() != c.Len() || got.Stats.Skipped != c.Stats.Skipped {
		t.Fatalf("stats = %+v, want %+v", got.Stats, c.Stats)
	}
	for _, term := range []string{"김치찌개", "불고기", "kimchi stew", "찌개류"} {
		want, _ := lookup(c, term)
		r, ok := lookup(got, term)
		if !ok || r.Label != want.Label || r.Per100g != want.Per100g || r.ServingGrams != want.ServingGrams {
			t.Errorf("Lookup(%q) after snapshot = %+v, want %+v", term, r, want)
		}
	}
}

func TestReadSnapshot_Missing(t *testing.T) {
	if _, err := ReadSnapshot(filepath.Join(t.TempDir(), "none.gob")); err == nil {
		t.Fatal("expected error for missing snapshot")
	}
}
