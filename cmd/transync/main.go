// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/olegiv/transync/internal/bulk"
	"github.com/olegiv/transync/internal/config"
	"github.com/olegiv/transync/internal/dispatch"
	"github.com/olegiv/transync/internal/handler/api"
	"github.com/olegiv/transync/internal/logging"
	"github.com/olegiv/transync/internal/model"
	"github.com/olegiv/transync/internal/provider"
	"github.com/olegiv/transync/internal/scheduler"
	"github.com/olegiv/transync/internal/store"
	"github.com/olegiv/transync/internal/sync"
	"github.com/olegiv/transync/internal/version"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func usage() {
	_, _ = fmt.Fprintf(os.Stderr, "transync - translation synchronization engine\n\n")
	_, _ = fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n\n", os.Args[0])
	_, _ = fmt.Fprintf(os.Stderr, "Commands:\n")
	_, _ = fmt.Fprintf(os.Stderr, "  serve    Run the admin API, save-hook engine, queued worker and retry scheduler\n")
	_, _ = fmt.Fprintf(os.Stderr, "  worker   Run the queue consumer only\n")
	_, _ = fmt.Fprintf(os.Stderr, "  migrate  Bulk-translate the content catalog\n")
	_, _ = fmt.Fprintf(os.Stderr, "  retry    Re-dispatch failed translations once\n")
	_, _ = fmt.Fprintf(os.Stderr, "  check    Print translation status counts\n\n")
	_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
	_, _ = fmt.Fprintf(os.Stderr, "  -version  Show version information\n\n")
	_, _ = fmt.Fprintf(os.Stderr, "Environment Variables:\n")
	_, _ = fmt.Fprintf(os.Stderr, "  TRANSYNC_DB_PATH            SQLite database path (default: ./data/transync.db)\n")
	_, _ = fmt.Fprintf(os.Stderr, "  TRANSYNC_DIRECTION          en-to-es or es-to-en (default: en-to-es)\n")
	_, _ = fmt.Fprintf(os.Stderr, "  TRANSYNC_PROVIDER           openai or anthropic (default: openai)\n")
	_, _ = fmt.Fprintf(os.Stderr, "  TRANSYNC_OPENAI_API_KEY     OpenAI API key\n")
	_, _ = fmt.Fprintf(os.Stderr, "  TRANSYNC_ANTHROPIC_API_KEY  Anthropic API key\n")
	_, _ = fmt.Fprintf(os.Stderr, "  TRANSYNC_DISPATCH_MODE      inline or queued (default: inline)\n")
	_, _ = fmt.Fprintf(os.Stderr, "  TRANSYNC_REDIS_URL          Redis URL for queued dispatch\n")
}

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "-version", "--version", "-v":
			ver := version.Info{Version: appVersion, GitCommit: appGitCommit, BuildTime: appBuildTime}
			fmt.Println(ver.String())
			return
		case "-help", "--help", "-h":
			usage()
			return
		}
	}
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "serve":
		err = runServe(args)
	case "worker":
		err = runWorker(args)
	case "migrate":
		err = runMigrate(args)
	case "retry":
		err = runRetry(args)
	case "check":
		err = runCheck(args)
	default:
		_, _ = fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		usage()
		os.Exit(2)
	}
	if err != nil {
		slog.Error("application error", "command", cmd, "error", err)
		os.Exit(1)
	}
}

// app holds everything the subcommands share.
type app struct {
	cfg       *config.Config
	db        *sql.DB
	store     *store.Store
	direction model.Direction
	logger    *slog.Logger
}

// setup loads configuration, opens the database, runs migrations and wires
// the event-log-backed logger.
func setup() (*app, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(textHandler))

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("initializing database: %w", err)
	}
	if err := store.Migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	// Upgrade logger to also write WARN and ERROR logs to the event log
	logger := slog.New(logging.NewEventLogHandler(textHandler, db))
	slog.SetDefault(logger)

	direction, err := cfg.ParsedDirection()
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &app{
		cfg:       cfg,
		db:        db,
		store:     store.NewStore(db),
		direction: direction,
		logger:    logger,
	}, nil
}

func (a *app) close() {
	if err := a.db.Close(); err != nil {
		a.logger.Error("error closing database connection", "error", err)
	}
}

// translator builds the configured provider wrapped with retry.
func (a *app) translator() (provider.Translator, error) {
	inner, err := provider.New(a.cfg.Provider, a.cfg.OpenAIConfig(), a.cfg.AnthropicConfig())
	if err != nil {
		return nil, err
	}
	return provider.WithRetry(inner, a.cfg.RetryPolicy(), a.logger), nil
}

// inlineDispatcher builds the synchronous dispatcher used by the bulk runner
// and by inline dispatch mode.
func (a *app) inlineDispatcher() (dispatch.Dispatcher, error) {
	tr, err := a.translator()
	if err != nil {
		return nil, err
	}
	return dispatch.NewInline(a.store, tr, a.cfg.InlineTimeout, a.logger), nil
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()

	inline, err := a.inlineDispatcher()
	if err != nil {
		return err
	}

	// Save-hook dispatcher: inline or queued per config.
	hookDispatcher := inline
	var queue dispatch.Queue
	var worker *dispatch.Worker
	if a.cfg.DispatchMode == config.DispatchQueued {
		opts := dispatch.DefaultRedisQueueOptions()
		opts.URL = a.cfg.RedisURL
		opts.Key = a.cfg.QueueKey
		queue, err = dispatch.NewRedisQueue(opts)
		if err != nil {
			return fmt.Errorf("connecting to queue: %w", err)
		}
		defer queue.Close()
		hookDispatcher = dispatch.NewQueued(queue, a.logger)

		tr, err := a.translator()
		if err != nil {
			return err
		}
		worker = dispatch.NewWorker(queue, a.store, tr, dispatch.WorkerConfig{
			JobTimeout:        a.cfg.InlineTimeout,
			RequestsPerMinute: a.cfg.RequestsPerMinute,
		}, a.logger)
	}

	engine := sync.New(a.store, hookDispatcher, sync.Config{
		Direction:     a.direction,
		AutoTranslate: a.cfg.AutoTranslate,
	}, a.logger)
	engine.Register()

	runner := bulk.NewRunner(a.store, inline, a.direction, a.logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if worker != nil {
		worker.Start(ctx)
		defer worker.Stop()
	}

	if a.cfg.RetrySchedule != "" {
		sched := scheduler.New(a.store, engine, a.cfg.RetrySchedule, a.cfg.RetryBatchMax, a.logger)
		if err := sched.Start(); err != nil {
			return fmt.Errorf("starting scheduler: %w", err)
		}
		defer sched.Stop()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	apiHandler := api.NewHandler(a.store, engine, runner, a.logger)
	r.Mount("/api/v1", apiHandler.Routes())
	r.Get("/health", apiHandler.Health)

	srv := &http.Server{
		Addr:              a.cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		a.logger.Info("starting server",
			"addr", a.cfg.ServerAddr(),
			"env", a.cfg.Env,
			"direction", a.direction.String(),
			"dispatch_mode", a.cfg.DispatchMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("server error", "error", err)
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	a.logger.Info("server stopped")
	return nil
}

func runWorker(args []string) error {
	fs := flag.NewFlagSet("worker", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()

	if a.cfg.RedisURL == "" {
		return errors.New("TRANSYNC_REDIS_URL is required for the worker command")
	}

	opts := dispatch.DefaultRedisQueueOptions()
	opts.URL = a.cfg.RedisURL
	opts.Key = a.cfg.QueueKey
	queue, err := dispatch.NewRedisQueue(opts)
	if err != nil {
		return fmt.Errorf("connecting to queue: %w", err)
	}
	defer queue.Close()

	tr, err := a.translator()
	if err != nil {
		return err
	}
	worker := dispatch.NewWorker(queue, a.store, tr, dispatch.WorkerConfig{
		JobTimeout:        a.cfg.InlineTimeout,
		RequestsPerMinute: a.cfg.RequestsPerMinute,
	}, a.logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	worker.Start(ctx)
	<-ctx.Done()
	worker.Stop()
	return nil
}

func runMigrate(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	typesFlag := fs.String("type", "", "comma-separated record types (default: all)")
	limit := fs.Int("limit", 0, "max records to dispatch (0 = no limit)")
	force := fs.Bool("force", false, "re-translate records that are already synced")
	dryRun := fs.Bool("dry-run", false, "report what would be dispatched without translating")
	pause := fs.Duration("pause", 0, "pause between provider calls (default: TRANSYNC_BULK_PAUSE)")
	resumeAfter := fs.Int64("resume-after", 0, "skip content records with id <= this cursor")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()

	inline, err := a.inlineDispatcher()
	if err != nil {
		return err
	}
	runner := bulk.NewRunner(a.store, inline, a.direction, a.logger)

	opts := bulk.Options{
		Limit:       *limit,
		Force:       *force,
		DryRun:      *dryRun,
		ResumeAfter: *resumeAfter,
		Pause:       a.cfg.BulkPause,
	}
	if *pause > 0 {
		opts.Pause = *pause
	}
	if *typesFlag != "" {
		opts.RecordTypes = strings.Split(*typesFlag, ",")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := runner.Run(ctx, opts, func(rec model.ContentRecord, action string) {
		a.logger.Info("bulk progress",
			"entity_type", rec.Type,
			"entity_id", rec.ID,
			"slug", rec.Slug,
			"action", action)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	fmt.Printf("examined:   %d\n", res.Examined)
	fmt.Printf("dispatched: %d\n", res.Dispatched)
	fmt.Printf("synced:     %d\n", res.Synced)
	fmt.Printf("failed:     %d\n", res.Failed)
	fmt.Printf("up to date: %d\n", res.UpToDate)
	fmt.Printf("skipped:    %d\n", res.Skipped)
	fmt.Printf("no content: %d\n", res.NoContent)
	if errors.Is(err, context.Canceled) {
		fmt.Printf("interrupted; resume with: transync migrate -resume-after %d\n", res.LastID)
	}
	return nil
}

func runRetry(args []string) error {
	fs := flag.NewFlagSet("retry", flag.ExitOnError)
	maxRetries := fs.Int("max", 10, "max failed records to re-dispatch")
	entityType := fs.String("type", "", "restrict to one record type")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()

	inline, err := a.inlineDispatcher()
	if err != nil {
		return err
	}
	engine := sync.New(a.store, inline, sync.Config{
		Direction:     a.direction,
		AutoTranslate: true,
	}, a.logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched := scheduler.New(a.store, engine, a.cfg.RetrySchedule, *maxRetries, a.logger)
	retried, err := sched.RetryFailed(ctx, *entityType)
	if err != nil {
		return err
	}
	fmt.Printf("re-dispatched %d failed translation(s)\n", retried)
	return nil
}

func runCheck(args []string) error {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()

	ctx := context.Background()
	counts, err := a.store.CountTranslationsByStatus(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("translation status (%s):\n", a.direction.String())
	for _, status := range []string{model.StatusPending, model.StatusOutdated, model.StatusFailed, model.StatusSynced} {
		fmt.Printf("  %-9s %d\n", status, counts[status])
	}

	for _, status := range []string{model.StatusOutdated, model.StatusFailed} {
		records, err := a.store.ListTranslations(ctx, store.ListTranslationsParams{Status: status, Limit: 20})
		if err != nil {
			return err
		}
		if len(records) == 0 {
			continue
		}
		fmt.Printf("\n%s records:\n", status)
		for _, rec := range records {
			line := fmt.Sprintf("  %s/%d", rec.EntityType, rec.EntityID)
			if rec.ErrorDetail != "" {
				line += "  " + rec.ErrorDetail
			}
			fmt.Println(line)
		}
	}
	return nil
}
