// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/reactivearray/cmd/reactivearray/config"
	"github.com/AleutianAI/reactivearray/pkg/logging"
	"github.com/AleutianAI/reactivearray/pkg/reactivearray"
	"github.com/AleutianAI/reactivearray/pkg/telemetry"
	"github.com/AleutianAI/reactivearray/services/opstream"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the configured arrays over HTTP and WebSocket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Load(opts.configPath, cmd.ErrOrStderr()); err != nil {
				return err
			}
			cfg := config.Global
			if opts.logLevel != "" {
				if _, err := logging.ParseLevel(opts.logLevel); err != nil {
					return err
				}
				cfg.Logging.Level = opts.logLevel
			}
			if cmd.Flags().Changed("log-json") {
				cfg.Logging.JSON = opts.logJSON
			}

			logger := logging.New(cfg.LoggerConfig("opstream"))
			defer logger.Close()
			slog.SetDefault(logger.Slog())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, logger.Slog())
		},
	}
}

// runServe serves until ctx is cancelled, then shuts down gracefully.
func runServe(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	shutdownTelemetry, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		return err
	}

	srv, err := buildServer(cfg, logger)
	if err != nil {
		_ = shutdownTelemetry(context.Background())
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("opstream listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("opstream shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return errors.Join(srv.Shutdown(shutdownCtx), shutdownTelemetry(shutdownCtx))
	})
	return g.Wait()
}

// buildServer creates the registry from cfg and the HTTP server around it.
func buildServer(cfg config.Config, logger *slog.Logger) (*http.Server, error) {
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	registry := opstream.NewRegistry(cfg.JournalSize, logger)
	for _, arr := range cfg.Arrays {
		policy, err := reactivearray.ParseInsertPolicy(arr.InsertPolicy)
		if err != nil {
			return nil, fmt.Errorf("array %s: %w", arr.Name, err)
		}
		if _, err := registry.Create(arr.Name, arr.Seed, policy); err != nil {
			return nil, err
		}
	}

	router := opstream.NewServer(registry, cfg.Stream, logger).Router()
	metrics := telemetry.MetricsHandler()
	if metrics == nil {
		metrics = promhttp.Handler()
	}
	router.GET(cfg.Server.MetricsPath, gin.WrapH(metrics))

	return &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}
