package resolve

import (
	"github.com/hazyhaar/nutrimatch/pkg/nutrition"
)

type curatedEntry struct {
	labelKo string
	macros  nutrition.Macros
}

// curated covers common English labels the catalog may not carry. Keys are
// normalized.
var curated = map[string]curatedEntry{
	"bibimbap":     {"비빔밥", nutrition.Macros{Calories: 550, Protein: 22, Carb: 72, Fat: 18}},
	"bulgogi":      {"불고기", nutrition.Macros{Calories: 480, Protein: 32, Carb: 28, Fat: 24}},
	"kimbap":       {"김밥", nutrition.Macros{Calories: 390, Protein: 13, Carb: 52, Fat: 12}},
	"ramen":        {"라면", nutrition.Macros{Calories: 470, Protein: 15, Carb: 64, Fat: 16}},
	"kimchijjigae": {"김치찌개", nutrition.Macros{Calories: 320, Protein: 20, Carb: 16, Fat: 18}},
	"tteokbokki":   {"떡볶이", nutrition.Macros{Calories: 520, Protein: 11, Carb: 86, Fat: 12}},
	"friedchicken": {"치킨", nutrition.Macros{Calories: 640, Protein: 34, Carb: 32, Fat: 40}},
	"pizza":        {"피자", nutrition.Macros{Calories: 620, Protein: 26, Carb: 64, Fat: 26}},
	"salad":        {"샐러드", nutrition.Macros{Calories: 220, Protein: 8, Carb: 18, Fat: 12}},
	"sushi":        {"스시", nutrition.Macros{Calories: 320, Protein: 24, Carb: 42, Fat: 6}},
	"sandwich":     {"샌드위치", nutrition.Macros{Calories: 430, Protein: 20, Carb: 48, Fat: 16}},
	"pasta":        {"파스타", nutrition.Macros{Calories: 520, Protein: 20, Carb: 74, Fat: 14}},
	"yogurt":       {"요거트", nutrition.Macros{Calories: 180, Protein: 12, Carb: 18, Fat: 6}},
	"toast":        {"토스트", nutrition.Macros{Calories: 310, Protein: 10, Carb: 38, Fat: 12}},
	"steak":        {"스테이크", nutrition.Macros{Calories: 680, Protein: 55, Carb: 0, Fat: 50}},
	"hamburger":    {"햄버거", nutrition.Macros{Calories: 540, Protein: 28, Carb: 45, Fat: 28}},
	"curry":        {"카레", nutrition.Macros{Calories: 490, Protein: 18, Carb: 60, Fat: 20}},
	"apple":        {"사과", nutrition.Macros{Calories: 95, Protein: 0.5, Carb: 25, Fat: 0.3}},
	"banana":       {"바나나", nutrition.Macros{Calories: 105, Protein: 1.3, Carb: 27, Fat: 0.4}},
	"coffee":       {"커피", nutrition.Macros{Calories: 5, Protein: 0.1, Carb: 0, Fat: 0}},
}

// Curated returns the hand-maintained estimate for a common English label,
// or nil. Values describe one typical serving.
func Curated(label string) *Entry {
	e, ok := curated[nutrition.Normalize(label)]
	if !ok {
		return nil
	}
	return &Entry{
		LabelKo:     e.labelKo,
		WeightGrams: nutrition.DefaultServingGrams,
		Per100g:     e.macros,
		Total:       e.macros,
		MatchedVia:  TierNone,
		Source:      SourceFallback,
	}
}
