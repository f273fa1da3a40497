package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"fastchannels/internal/config"
	"fastchannels/internal/notifications"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireStage(config.StageNotify); err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Notifications not configured")
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			var publisher notifications.PublishAPI
			if strings.TrimSpace(cfg.Notifications.SNSTopicARN) != "" {
				clients, err := ctx.clients(cmd.Context())
				if err != nil {
					return err
				}
				publisher = clients.SNS
			}
			notifier := notifications.NewService(cfg, publisher, logger)
			if err := notifier.TestNotification(cmd.Context()); err != nil {
				return fmt.Errorf("send test notification: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Test notification sent")
			return nil
		},
	}
}
