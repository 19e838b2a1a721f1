package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/David-Botos/enrollment-ingress/pkg/cleaner"
	"github.com/David-Botos/enrollment-ingress/pkg/config"
	"github.com/David-Botos/enrollment-ingress/pkg/connector"
	"github.com/David-Botos/enrollment-ingress/pkg/logging"
	"github.com/David-Botos/enrollment-ingress/pkg/store"
	"github.com/David-Botos/enrollment-ingress/pkg/transfer"
)

// app holds the components every subcommand shares
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	factory  *connector.ConnectorFactory
	conn     connector.DatabaseConnector
	store    *store.Store
	registry *prometheus.Registry
	metrics  *transfer.Metrics
	pipeline *transfer.Pipeline
}

// newApp loads configuration, opens the store and makes sure its schema exists
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadConfig(envFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	factory := connector.NewConnectorFactory(cfg, logger)
	conn, err := factory.CreateStoreConnector(ctx)
	if err != nil {
		logger.Sync()
		return nil, err
	}
	if err := conn.Validate(ctx); err != nil {
		conn.Close()
		logger.Sync()
		return nil, fmt.Errorf("store validation failed: %w", err)
	}

	st := store.New(conn.DB(), logger.Named("store"), cfg.Store.MaxPageRows)
	if err := st.EnsureSchema(ctx); err != nil {
		conn.Close()
		logger.Sync()
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := transfer.NewMetrics(registry)

	pipeline := transfer.NewPipeline(
		cleaner.NewNormalizer(logger.Named("normalizer")),
		transfer.NewReconciler(st, logger.Named("reconciler"), metrics),
		logger.Named("pipeline"),
		metrics,
	)

	return &app{
		cfg:      cfg,
		logger:   logger,
		factory:  factory,
		conn:     conn,
		store:    st,
		registry: registry,
		metrics:  metrics,
		pipeline: pipeline,
	}, nil
}

// Close releases the store connection and flushes the logger
func (a *app) Close() {
	if err := a.conn.Close(); err != nil {
		a.logger.Error("Failed to close store connection", zap.Error(err))
	}
	a.logger.Sync()
}
