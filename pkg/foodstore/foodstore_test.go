package foodstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hazyhaar/nutrimatch/pkg/nutrition"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "foods.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seed(t *testing.T, s *Store, foods ...Food) {
	t.Helper()
	for _, f := range foods {
		if _, err := s.Upsert(context.Background(), f); err != nil {
			t.Fatalf("Upsert %q: %v", f.Name, err)
		}
	}
}

func TestOpen_CreatesTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("db file not created: %v", err)
	}
	n, err := s.Count(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("Count = %d, %v; want 0", n, err)
	}
}

func TestUpsert_CreateThenUpdate(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	created, err := s.Upsert(ctx, Food{Name: "비빔밥", NameEn: "bibimbap", Per100g: nutrition.Macros{Calories: 150}})
	if err != nil || !created {
		t.Fatalf("first Upsert = %v, %v; want created", created, err)
	}
	created, err = s.Upsert(ctx, Food{Name: "비빔밥", NameEn: "bibimbap", Per100g: nutrition.Macros{Calories: 160, Protein: 5}})
	if err != nil || created {
		t.Fatalf("second Upsert = %v, %v; want update", created, err)
	}

	n, _ := s.Count(ctx)
	if n != 1 {
		t.Fatalf("count = %d, want 1", n)
	}
	f, err := s.FindByLabel(ctx, "비빔밥")
	if err != nil || f == nil {
		t.Fatalf("FindByLabel = %v, %v", f, err)
	}
	if f.Per100g != (nutrition.Macros{Calories: 160, Protein: 5}) {
		t.Errorf("per100g = %+v, want updated values", f.Per100g)
	}
	if f.UpdatedAt == 0 {
		t.Error("updated_at not set")
	}
}

func TestUpsert_EmptyName(t *testing.T) {
	s := tempStore(t)
	if _, err := s.Upsert(context.Background(), Food{Name: "  "}); err == nil {
		t.Fatal("expected error for empty name")
	}
}

func TestFindByLabel(t *testing.T) {
	s := tempStore(t)
	seed(t, s,
		Food{Name: "비빔밥", NameEn: "bibimbap"},
		Food{Name: "Fried Chicken", NameEn: ""},
		Food{Name: "김치찌개", NameEn: "kimchi stew"},
	)
	ctx := context.Background()

	tests := []struct {
		label, want string
	}{
		{"비빔밥", "비빔밥"},
		{"BIBIMBAP", "비빔밥"},
		{"fried-chicken", "Fried Chicken"},
		{"fried_chicken", "Fried Chicken"},
		{"Kimchi-Stew", "김치찌개"},
		{"kimchi", "김치찌개"},
		{"김치", "김치찌개"},
	}
	for _, tt := range tests {
		f, err := s.FindByLabel(ctx, tt.label)
		if err != nil {
			t.Fatalf("FindByLabel(%q): %v", tt.label, err)
		}
		if f == nil {
			t.Errorf("FindByLabel(%q) = nil, want %q", tt.label, tt.want)
			continue
		}
		if f.Name != tt.want {
			t.Errorf("FindByLabel(%q) = %q, want %q", tt.label, f.Name, tt.want)
		}
	}

	for _, label := range []string{"", "   ", "pizza"} {
		f, err := s.FindByLabel(ctx, label)
		if err != nil || f != nil {
			t.Errorf("FindByLabel(%q) = %+v, %v; want nil, nil", label, f, err)
		}
	}
}

func TestBatch_Rollback(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	b, err := s.BeginBatch(ctx)
	if err != nil {
		t.Fatalf("BeginBatch: %v", err)
	}
	for _, name := range []string{"사과", "바나나"} {
		if _, err := b.Upsert(ctx, Food{Name: name}); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}
	if err := b.Rollback(); err != nil {
		t.Fatalf("Rollback: %v", err)
	}

	n, _ := s.Count(ctx)
	if n != 0 {
		t.Errorf("count after rollback = %d, want 0", n)
	}
}

func TestBatch_RollbackAfterCommit(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	b, err := s.BeginBatch(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Upsert(ctx, Food{Name: "사과"}); err != nil {
		t.Fatal(err)
	}
	if err := b.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := b.Rollback(); err != nil {
		t.Errorf("Rollback after Commit = %v, want nil", err)
	}
	if n, _ := s.Count(ctx); n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}
