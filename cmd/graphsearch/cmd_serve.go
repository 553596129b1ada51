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
	"os/signal"
	"syscall"

	"github.com/AleutianAI/graphsearch/services/graphsearch"
	"github.com/AleutianAI/graphsearch/services/graphsearch/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

// errNoDataset is returned when neither the config nor --dataset names one.
var errNoDataset = errors.New("no dataset configured: set graph.dataset, GRAPHSEARCH_DATASET or --dataset")

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = servePort
	}
	if cmd.Flags().Changed("debug") {
		cfg.Server.Debug = serveDebug
	}
	if cfg.Graph.Dataset == "" {
		return errNoDataset
	}

	logger := newLogger(cfg.Logging, cmd.ErrOrStderr(), true)
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			slog.Warn("Telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	svc := graphsearch.NewService(serviceConfig(cfg, logger.Slog()))
	defer svc.Close()

	if err := svc.Load(ctx); err != nil {
		slog.Error("Failed to load graph", slog.String("error", err.Error()))
		return err
	}
	if err := svc.StartWatching(ctx); err != nil {
		slog.Warn("Dataset watching disabled", slog.String("error", err.Error()))
	}

	handlers := graphsearch.NewHandlers(svc, handlerConfig(cfg)).
		WithRateLimit(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
	router := graphsearch.NewRouter(handlers, graphsearch.RouterOptions{
		ServiceName: cfg.Telemetry.ServiceName,
		Debug:       cfg.Server.Debug,
	})

	stats := svc.Graph().Stats()
	slog.Info("Graph search ready",
		slog.Int("port", cfg.Server.Port),
		slog.String("dataset", cfg.Graph.Dataset),
		slog.String("source", stats.Source),
		slog.String("backend", stats.Backend),
		slog.Int("nodes", stats.Nodes),
		slog.Int("edges", stats.Edges),
	)

	server := graphsearch.NewServer(fmt.Sprintf(":%d", cfg.Server.Port), router)
	return server.Run(ctx)
}
