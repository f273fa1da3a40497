package main

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"fastchannels/internal/awsclient"
	"fastchannels/internal/config"
	"fastchannels/internal/journal"
	"fastchannels/internal/logging"
	"fastchannels/internal/metrics"
	"fastchannels/internal/notifications"
	"fastchannels/internal/pipeline"
)

// app holds everything a dispatcher needs, shared by serve and handle.
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	clients    *awsclient.Clients
	metrics    *metrics.Metrics
	journal    *journal.Store
	notifier   notifications.Service
	dispatcher *pipeline.Dispatcher
}

func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	clients, err := awsclient.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("build aws clients: %w", err)
	}
	store, err := journal.Open(cfg.Paths.StateDir)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	m := metrics.New()
	notifier := notifications.NewService(cfg, clients.SNS, logger)
	stages, err := pipeline.NewStages(cfg, clients, m, notifier, logger)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("build stages: %w", err)
	}
	logDisabled(logger, stages.Disabled)

	dispatcher := pipeline.NewDispatcher(pipeline.Options{
		Stages:             stages,
		Journal:            store,
		Metrics:            m,
		Notifier:           notifier,
		Logger:             logger,
		StageOverrides:     cfg.Logging.StageOverrides,
		StackSource:        cfg.EventBus.Source,
		PlaybackDetailType: cfg.EventBus.DetailType,
	})

	return &app{
		cfg:        cfg,
		logger:     logger,
		clients:    clients,
		metrics:    m,
		journal:    store,
		notifier:   notifier,
		dispatcher: dispatcher,
	}, nil
}

func (a *app) Close() error {
	if a == nil || a.journal == nil {
		return nil
	}
	return a.journal.Close()
}

func logDisabled(logger *slog.Logger, disabled map[string]string) {
	stages := make([]string, 0, len(disabled))
	for stage := range disabled {
		stages = append(stages, stage)
	}
	sort.Strings(stages)
	for _, stage := range stages {
		logging.WarnWithContext(logger, "stage disabled", "stage_disabled",
			logging.String(logging.FieldStage, stage),
			logging.String("reason", disabled[stage]),
			logging.String(logging.FieldImpact, "events for this stage fail with a configuration error"),
		)
	}
}
