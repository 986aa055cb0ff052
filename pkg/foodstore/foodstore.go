// Package foodstore is the first-party food table: curated per-100g rows kept
// in SQLite and consulted before the nutrition catalog.
package foodstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/nutrimatch/pkg/nutrition"
)

// Food is one row of the foods table.
type Food struct {
	ID        int64            `json:"id"`
	Name      string           `json:"name"`
	NameEn    string           `json:"name_en,omitempty"`
	Per100g   nutrition.Macros `json:"per100g"`
	UpdatedAt int64            `json:"updated_at"`
}

// Store manages the foods SQLite table.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path and ensures the foods
// table exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open food db: %w", err)
	}

	const ddl = `CREATE TABLE IF NOT EXISTS foods (
		id                  INTEGER PRIMARY KEY AUTOINCREMENT,
		name                TEXT NOT NULL UNIQUE,
		name_en             TEXT NOT NULL DEFAULT '',
		kcal_per_100g       REAL NOT NULL DEFAULT 0,
		protein_g_per_100g  REAL NOT NULL DEFAULT 0,
		carb_g_per_100g     REAL NOT NULL DEFAULT 0,
		fat_g_per_100g      REAL NOT NULL DEFAULT 0,
		updated_at          INTEGER NOT NULL
	)`
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("create foods table: %w", err)
	}
	if _, err := db.Exec(runsDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create import_runs table: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Count returns the number of foods.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM foods`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count foods: %w", err)
	}
	return n, nil
}

const selectFood = `SELECT id, name, name_en, kcal_per_100g, protein_g_per_100g,
	carb_g_per_100g, fat_g_per_100g, updated_at FROM foods `

// containsPrefixRunes bounds the containment probe.
const containsPrefixRunes = 20

// FindByLabel looks a label up: case-insensitive exact on name then name_en,
// the same on the dash/underscore folded label, then containment of the
// folded label's first runes. It returns (nil, nil) when nothing matches.
func (s *Store) FindByLabel(ctx context.Context, label string) (*Food, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, nil
	}
	folded := foldLabel(label)

	type probe struct {
		where string
		arg   string
	}
	probes := []probe{
		{`WHERE name = ? COLLATE NOCASE`, label},
		{`WHERE name_en = ? COLLATE NOCASE`, label},
	}
	if folded != "" && folded != label {
		probes = append(probes,
			probe{`WHERE name = ? COLLATE NOCASE`, folded},
			probe{`WHERE name_en = ? COLLATE NOCASE`, folded},
		)
	}
	if folded != "" {
		prefix := string([]rune(folded)[:min(len([]rune(folded)), containsPrefixRunes)])
		probes = append(probes,
			probe{`WHERE instr(lower(name), ?) > 0`, prefix},
			probe{`WHERE name_en != '' AND instr(lower(name_en), ?) > 0`, prefix},
		)
	}

	for _, p := range probes {
		f, err := s.queryOne(ctx, selectFood+p.where+` ORDER BY id LIMIT 1`, p.arg)
		if err != nil {
			return nil, fmt.Errorf("find food %q: %w", label, err)
		}
		if f != nil {
			return f, nil
		}
	}
	return nil, nil
}

func (s *Store) queryOne(ctx context.Context, q string, args ...any) (*Food, error) {
	var f Food
	err := s.db.QueryRowContext(ctx, q, args...).Scan(&f.ID, &f.Name, &f.NameEn,
		&f.Per100g.Calories, &f.Per100g.Protein, &f.Per100g.Carb, &f.Per100g.Fat, &f.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// foldLabel lower-cases and turns dashes and underscores into spaces.
func foldLabel(s string) string {
	s = strings.NewReplacer("-", " ", "_", " ").Replace(strings.ToLower(s))
	return strings.Join(strings.Fields(s), " ")
}

// Batch groups upserts in one transaction.
type Batch struct {
	tx *sql.Tx
}

// BeginBatch starts a transaction for bulk upserts.
func (s *Store) BeginBatch(ctx context.Context) (*Batch, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin batch: %w", err)
	}
	return &Batch{tx: tx}, nil
}

// Upsert inserts f or updates the row with the same name. created reports
// whether a new row was inserted.
func (b *Batch) Upsert(ctx context.Context, f Food) (created bool, err error) {
	name := strings.TrimSpace(f.Name)
	if name == "" {
		return false, errors.New("upsert food: empty name")
	}

	var id int64
	err = b.tx.QueryRowContext(ctx, `SELECT id FROM foods WHERE name = ?`, name).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		created = true
	case err != nil:
		return false, fmt.Errorf("upsert food %q: %w", name, err)
	}

	_, err = b.tx.ExecContext(ctx, `INSERT INTO foods
		(name, name_en, kcal_per_100g, protein_g_per_100g, carb_g_per_100g, fat_g_per_100g, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			name_en = excluded.name_en,
			kcal_per_100g = excluded.kcal_per_100g,
			protein_g_per_100g = excluded.protein_g_per_100g,
			carb_g_per_100g = excluded.carb_g_per_100g,
			fat_g_per_100g = excluded.fat_g_per_100g,
			updated_at = excluded.updated_at`,
		name, strings.TrimSpace(f.NameEn),
		f.Per100g.Calories, f.Per100g.Protein, f.Per100g.Carb, f.Per100g.Fat,
		time.Now().Unix(),
	)
	if err != nil {
		return false, fmt.Errorf("upsert food %q: %w", name, err)
	}
	return created, nil
}

// Commit commits the batch.
func (b *Batch) Commit() error {
	if err := b.tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// Rollback discards the batch. It is a no-op after Commit.
func (b *Batch) Rollback() error {
	err := b.tx.Rollback()
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback batch: %w", err)
	}
	return nil
}

// Upsert writes a single food in its own transaction.
func (s *Store) Upsert(ctx context.Context, f Food) (created bool, err error) {
	b, err := s.BeginBatch(ctx)
	if err != nil {
		return false, err
	}
	defer b.Rollback()

	if created, err = b.Upsert(ctx, f); err != nil {
		return false, err
	}
	return created, b.Commit()
}
