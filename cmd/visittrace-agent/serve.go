package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vincentbai/visittrace-agent/internal/config"
	"github.com/vincentbai/visittrace-agent/internal/database"
	"github.com/vincentbai/visittrace-agent/internal/identity"
	"github.com/vincentbai/visittrace-agent/internal/logger"
	"github.com/vincentbai/visittrace-agent/internal/metrics"
	"github.com/vincentbai/visittrace-agent/internal/server"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the agent until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.AppConfig) error {
	lg, err := logger.New(cfg.App.Env)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = lg.Sync() }()

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.New(registry)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	opts := server.Options{
		Cookies:      db,
		Metrics:      m,
		Gatherer:     registry,
		Logger:       lg,
		WriteTimeout: server.WriteTimeoutFor(cfg.Reporter.Timeout),
	}

	tr, err := buildTracker(ctx, cfg, db, m, lg)
	if err != nil {
		if !errors.Is(err, identity.ErrIdentityUnavailable) {
			return err
		}
		// Identity is fetched once; without it nothing is ever tracked.
		lg.Error("visit tracking disabled", zap.Error(err))
	} else {
		opts.Navigations = tr
		if cfg.Dedup.MaxAge > 0 {
			go tr.RunJanitor(ctx, cfg.Dedup.PruneInterval, cfg.Dedup.MaxAge)
		}
	}

	return server.NewServer(cfg.Server.Address, opts).Start(ctx)
}
