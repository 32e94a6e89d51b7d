package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
	_ "modernc.org/sqlite"

	"github.com/vmunix/showrunner/internal/api"
	"github.com/vmunix/showrunner/internal/config"
	"github.com/vmunix/showrunner/internal/jobs"
	"github.com/vmunix/showrunner/internal/library"
	"github.com/vmunix/showrunner/internal/manager"
	"github.com/vmunix/showrunner/internal/migrations"
	"github.com/vmunix/showrunner/internal/providers"
	"github.com/vmunix/showrunner/internal/server"
)

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	var out io.Writer = os.Stderr
	if cfg.Log.File != "" {
		out = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAge:     cfg.Log.MaxAgeDays,
		})
	}
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Server.LogLevel),
	}))
}

func runServer(configPath string) error {
	if configPath == "" {
		var err error
		configPath, err = config.Discover()
		if err != nil {
			return err
		}
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := newLogger(cfg)

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0755); err != nil {
		return fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", cfg.Database.Path+"?_pragma=foreign_keys(1)")
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer func() { _ = db.Close() }()

	if _, err := db.Exec(migrations.InitialSQL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	store := library.NewStore(db)

	var opts []providers.TVMazeOption
	if cfg.Provider.URL != "" {
		opts = append(opts, providers.WithBaseURL(cfg.Provider.URL))
	}
	opts = append(opts, providers.WithLogger(logger.With("component", "tvmaze")))
	tvmaze := providers.NewTVMaze(opts...)
	provider := providers.NewCached(tvmaze, providers.NewCache(db), 0,
		logger.With("component", "providercache"))

	queue := jobs.NewQueue(logger.With("component", "jobs"))
	mgr := manager.New(store, provider, queue, logger.With("component", "manager"))

	apiSrv := api.New(store, mgr, queue, api.Config{
		Version:  version,
		BlockFor: time.Duration(cfg.API.BlockForMS) * time.Millisecond,
	}, logger.With("component", "api"))

	runner := server.NewRunner(apiSrv, queue, mgr, server.Config{
		Addr:          fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		CheckEnabled:  cfg.Check.Enabled,
		CheckSchedule: cfg.Check.Schedule,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting",
		"config", configPath,
		"database", cfg.Database.Path,
		"provider", cfg.Provider.Name,
		"check_enabled", cfg.Check.Enabled,
	)
	return runner.Run(ctx)
}
