package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"fastchannels/internal/api"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the running daemon's status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			status, err := api.NewClient(cfg.Paths.APIBind, cfg.Paths.APIToken).Status(cmd.Context())
			if err != nil {
				return fmt.Errorf("query daemon at %s: %w", cfg.Paths.APIBind, err)
			}
			if jsonOut {
				return writeJSON(cmd, status)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("Daemon", colorize) {
				fmt.Fprintln(out, line)
			}
			kind := statusOK
			if !status.Running {
				kind = statusError
			}
			fmt.Fprintln(out, renderStatusLine("Running", kind, yesNo(status.Running), colorize))
			fmt.Fprintln(out, renderStatusLine("PID", statusInfo, strconv.Itoa(status.PID), colorize))
			fmt.Fprintln(out, renderStatusLine("Started", statusInfo, status.StartedAt, colorize))
			fmt.Fprintln(out, renderStatusLine("Journal", statusInfo, status.JournalPath, colorize))

			fmt.Fprintln(out)
			for _, line := range renderSectionHeader("Stages", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, stage := range []string{"transcode", "packaging", "vodsource", "notify"} {
				if reason, ok := status.DisabledStages[stage]; ok {
					fmt.Fprintln(out, renderStatusLine(stage, statusWarn, reason, colorize))
					continue
				}
				fmt.Fprintln(out, renderStatusLine(stage, statusOK, "enabled", colorize))
			}

			if len(status.Deliveries) > 0 {
				fmt.Fprintln(out)
				for _, line := range renderSectionHeader("Deliveries", colorize) {
					fmt.Fprintln(out, line)
				}
				keys := make([]string, 0, len(status.Deliveries))
				for key := range status.Deliveries {
					keys = append(keys, key)
				}
				sort.Strings(keys)
				for _, key := range keys {
					fmt.Fprintln(out, renderStatusLine(key, statusInfo, strconv.Itoa(status.Deliveries[key]), colorize))
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the raw status payload")
	return cmd
}
