package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"fastchannels/internal/daemon"
	"fastchannels/internal/logging"
	"fastchannels/internal/preflight"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var skipChecks bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP event receiver",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), ctx, skipChecks)
		},
	}
	cmd.Flags().BoolVar(&skipChecks, "skip-checks", false, "Skip remote preflight checks at startup")
	return cmd
}

func runServe(cmdCtx context.Context, ctx *commandContext, skipChecks bool) error {
	if cmdCtx == nil {
		cmdCtx = context.Background()
	}
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := ctx.logger()
	if err != nil {
		return err
	}

	rt, err := buildApp(signalCtx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	if !skipChecks {
		for _, failed := range preflight.Failed(preflight.RunAll(signalCtx, cfg, preflight.EnvFromClients(rt.clients))) {
			logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
				logging.String("check", failed.Name),
				logging.String("detail", failed.Detail),
				logging.String(logging.FieldErrorHint, "run `fastchannels check` for the full report"),
			)
		}
	}

	d, err := daemon.New(cfg, daemon.Options{
		Dispatcher: rt.dispatcher,
		Journal:    rt.journal,
		Metrics:    rt.metrics.Handler(),
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}
	err = d.Wait()
	logger.Info("fastchannels daemon shutting down")
	return err
}
