// Package config loads server settings: YAML file, then .env, then
// environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/nutrimatch/pkg/catalog"
	"github.com/hazyhaar/nutrimatch/pkg/gate"
	"github.com/hazyhaar/nutrimatch/pkg/resolve"
)

type Config struct {
	Addr         string          `yaml:"addr"`
	BaseDir      string          `yaml:"base_dir"`
	CatalogPath  string          `yaml:"catalog_path"`
	Catalog      catalog.Options `yaml:"catalog"`
	SynonymsPath string          `yaml:"synonyms_path"`
	FoodsDB      string          `yaml:"foods_db"`
	Fuzzy        Fuzzy           `yaml:"fuzzy"`
	Gate         gate.Policy     `yaml:"gate"`
	HTTP         HTTP            `yaml:"http"`
	Log          Log             `yaml:"log"`
}

type Fuzzy struct {
	Enabled   bool    `yaml:"enabled"`
	Romanize  bool    `yaml:"romanize"`
	Threshold float64 `yaml:"threshold"` // 0..100
	Limit     int     `yaml:"limit"`
}

type HTTP struct {
	CORSOrigins string  `yaml:"cors_origins"`
	RateLimit   float64 `yaml:"rate_limit"` // requests per second per IP, 0 disables
	Burst       int     `yaml:"burst"`
}

type Log struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Error reports an invalid setting.
type Error struct {
	Field string
	Err   error
}

func (e *Error) Error() string { return fmt.Sprintf("config %s: %v", e.Field, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Addr:    ":8430",
		FoodsDB: "foods.db",
		Fuzzy: Fuzzy{
			Enabled:   true,
			Threshold: resolve.DefaultFuzzyThreshold,
			Limit:     resolve.DefaultFuzzyLimit,
		},
		Gate: gate.DefaultPolicy(),
		HTTP: HTTP{CORSOrigins: "*", RateLimit: 20, Burst: 40},
		Log:  Log{Level: "info", Format: "text"},
	}
}

// Load reads path over the defaults. A missing file is not an error. A .env
// file in the working directory, when present, is loaded into the process
// environment before overrides are applied; variables already set win.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *float64) error {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return &Error{Field: key, Err: err}
		}
		*dst = f
		return nil
	}

	str("NUTRIMATCH_ADDR", &c.Addr)
	str("NUTRIMATCH_BASE_DIR", &c.BaseDir)
	str("MFDS_FOOD_CSV", &c.CatalogPath)
	str("FOODS_DB", &c.FoodsDB)

	for key, dst := range map[string]*float64{
		"FUZZY_SCORE_THRESHOLD": &c.Fuzzy.Threshold,
		"MEAL_MATCH_THRESHOLD":  &c.Gate.MatchThreshold,
		"DEFAULT_FALLBACK_KCAL": &c.Gate.DefaultFallbackKcal,
	} {
		if err := num(key, dst); err != nil {
			return err
		}
	}

	if v := strings.TrimSpace(getenv("FUZZY_CANDIDATES_LIMIT")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return &Error{Field: "FUZZY_CANDIDATES_LIMIT", Err: err}
		}
		c.Fuzzy.Limit = n
	}
	if v := strings.TrimSpace(getenv("ALLOW_FALLBACK_SAVE_BELOW")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return &Error{Field: "ALLOW_FALLBACK_SAVE_BELOW", Err: err}
		}
		c.Gate.AllowFallbackBelowThreshold = b
	}
	return nil
}

// Validate checks ranges.
func (c Config) Validate() error {
	if c.Addr == "" {
		return &Error{Field: "addr", Err: errors.New("empty")}
	}
	if bad(c.Fuzzy.Threshold) || c.Fuzzy.Threshold < 0 || c.Fuzzy.Threshold > 100 {
		return &Error{Field: "fuzzy.threshold", Err: fmt.Errorf("%v not in [0, 100]", c.Fuzzy.Threshold)}
	}
	if c.Fuzzy.Limit < 0 {
		return &Error{Field: "fuzzy.limit", Err: fmt.Errorf("negative: %d", c.Fuzzy.Limit)}
	}
	if bad(c.Gate.MatchThreshold) || c.Gate.MatchThreshold < 0 || c.Gate.MatchThreshold > 100 {
		return &Error{Field: "gate.match_threshold", Err: fmt.Errorf("%v not in [0, 100]", c.Gate.MatchThreshold)}
	}
	if bad(c.Gate.DefaultFallbackKcal) || c.Gate.DefaultFallbackKcal <= 0 {
		return &Error{Field: "gate.default_fallback_kcal", Err: fmt.Errorf("must be positive, got %v", c.Gate.DefaultFallbackKcal)}
	}
	if bad(c.HTTP.RateLimit) || c.HTTP.RateLimit < 0 {
		return &Error{Field: "http.rate_limit", Err: fmt.Errorf("negative: %v", c.HTTP.RateLimit)}
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return &Error{Field: "log.format", Err: fmt.Errorf("unknown format %q", c.Log.Format)}
	}
	return nil
}

func bad(f float64) bool { return math.IsNaN(f) || math.IsInf(f, 0) }

// Logger builds the process logger from the log section.
func (c Config) Logger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
