package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/hazyhaar/nutrimatch/pkg/api"
	"github.com/hazyhaar/nutrimatch/pkg/catalog"
	"github.com/hazyhaar/nutrimatch/pkg/config"
	"github.com/hazyhaar/nutrimatch/pkg/foodstore"
	"github.com/hazyhaar/nutrimatch/pkg/lookup"
	"github.com/hazyhaar/nutrimatch/pkg/middleware"
	"github.com/hazyhaar/nutrimatch/pkg/resolve"
)

const version = "0.3.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		cmdServe(os.Args[2:])
	case "mcp":
		cmdMCP(os.Args[2:])
	case "resolve":
		cmdResolve(os.Args[2:])
	case "import":
		cmdImport(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: nutrimatch <command>

Commands:
  serve     Start the HTTP server
  mcp       Serve MCP tools over stdio
  resolve   Resolve labels and print JSON entries
  import    Load a nutrition table into the food database
`)
}

// setup loads config and logger, exiting on bad config.
func setup(fs *flag.FlagSet, args []string) (config.Config, *slog.Logger) {
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	fs.Parse(args)

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := cfg.Logger()
	slog.SetDefault(logger)
	return cfg, logger
}

// app holds the wired service and the resources to release.
type app struct {
	svc    *lookup.Service
	loader *catalog.Loader
	foods  *foodstore.Store
}

func (a *app) Close() {
	if a.foods != nil {
		a.foods.Close()
	}
}

func newApp(cfg config.Config, logger *slog.Logger) (*app, error) {
	copts := cfg.Catalog
	copts.Logger = logger
	path := catalog.ResolvePath(cfg.CatalogPath, cfg.BaseDir)
	loader := catalog.NewLoader(path, copts)

	synonyms := resolve.DefaultSynonyms()
	if cfg.SynonymsPath != "" {
		t, err := resolve.LoadSynonyms(cfg.SynonymsPath)
		if err != nil {
			return nil, err
		}
		synonyms = t
	}

	ropts := resolve.Options{
		Synonyms:       synonyms,
		FuzzyThreshold: cfg.Fuzzy.Threshold,
		FuzzyLimit:     cfg.Fuzzy.Limit,
		Logger:         logger,
	}
	if cfg.Fuzzy.Enabled {
		ropts.Fuzzy = resolve.LevenshteinMatcher{Romanize: cfg.Fuzzy.Romanize}
	}
	res := resolve.New(loader, ropts)

	a := &app{loader: loader}
	var finder lookup.FoodFinder
	if cfg.FoodsDB != "" {
		store, err := foodstore.Open(cfg.FoodsDB)
		if err != nil {
			logger.Warn("food database unavailable, using catalog only", "path", cfg.FoodsDB, "error", err)
		} else {
			a.foods = store
			finder = store
		}
	}
	a.svc = lookup.NewService(res, finder, cfg.Gate, logger)
	return a, nil
}

func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfg, logger := setup(fs, args)

	a, err := newApp(cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	// Load the catalog before accepting traffic.
	cat := a.loader.Catalog()
	logger.Info("catalog ready", "rows", cat.Len(), "path", cat.Path)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mws := []middleware.Middleware{
		middleware.RequestID(),
		middleware.Logging(logger),
		middleware.CORS(cfg.HTTP.CORSOrigins),
	}
	if cfg.HTTP.RateLimit > 0 {
		limiter := middleware.NewLimiter(cfg.HTTP.RateLimit, cfg.HTTP.Burst)
		go limiter.Run(ctx)
		mws = append(mws, middleware.RateLimit(limiter))
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           middleware.Chain(api.NewRouter(a.svc, logger), mws...),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("nutrimatch listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
}

func cmdMCP(args []string) {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	cfg, logger := setup(fs, args)

	a, err := newApp(cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	srv := server.NewMCPServer("nutrimatch", version, server.WithToolCapabilities(false))
	api.RegisterMCPTools(srv, a.svc, logger)

	if err := server.ServeStdio(srv); err != nil {
		logger.Error("mcp server", "error", err)
		os.Exit(1)
	}
}

func cmdResolve(args []string) {
	fs := flag.NewFlagSet("resolve", flag.ExitOnError)
	estimate := fs.Bool("estimate", false, "fall back to an estimate for unresolved labels")
	cfg, logger := setup(fs, args)

	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: nutrimatch resolve [--estimate] <label>...")
		os.Exit(1)
	}

	a, err := newApp(cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	type result struct {
		Label string         `json:"label"`
		Entry *resolve.Entry `json:"entry"`
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	for _, label := range fs.Args() {
		e := a.svc.Resolve(label)
		if e == nil && *estimate {
			e = a.svc.Fallback(label)
		}
		enc.Encode(result{Label: label, Entry: e})
	}
}
