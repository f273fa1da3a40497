package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"fastchannels/internal/api"
	"fastchannels/internal/journal"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		stage   string
		status  string
		limit   int
		remote  bool
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent event deliveries from the journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var deliveries []api.Delivery
			if remote {
				resp, err := api.NewClient(cfg.Paths.APIBind, cfg.Paths.APIToken).History(cmd.Context(), api.HistoryQuery{
					Stage:  stage,
					Status: status,
					Limit:  limit,
				})
				if err != nil {
					return fmt.Errorf("query daemon at %s: %w", cfg.Paths.APIBind, err)
				}
				deliveries = resp.Deliveries
			} else {
				store, err := journal.Open(cfg.Paths.StateDir)
				if err != nil {
					return fmt.Errorf("open journal: %w", err)
				}
				defer store.Close()
				rows, err := store.List(cmd.Context(), journal.Filter{Stage: stage, Status: status, Limit: limit})
				if err != nil {
					return err
				}
				deliveries = api.FromDeliveries(rows)
			}

			if jsonOut {
				return writeJSON(cmd, api.HistoryResponse{Deliveries: deliveries})
			}
			out := cmd.OutOrStdout()
			if len(deliveries) == 0 {
				fmt.Fprintln(out, "No deliveries recorded")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Received", "Stage", "Status", "Class", "Resource", "Outcome", "Took"},
				historyRows(deliveries),
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}
	cmd.Flags().StringVar(&stage, "stage", "", "Only show deliveries for this stage")
	cmd.Flags().StringVar(&status, "status", "", "Only show deliveries with this status (ok, skipped, failed)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of deliveries")
	cmd.Flags().BoolVar(&remote, "remote", false, "Read from the running daemon instead of the local journal")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print JSON instead of a table")
	return cmd
}

func historyRows(deliveries []api.Delivery) [][]string {
	rows := make([][]string, 0, len(deliveries))
	for _, d := range deliveries {
		received := d.ReceivedAt
		if parsed, err := time.Parse(time.RFC3339Nano, d.ReceivedAt); err == nil {
			received = parsed.Local().Format("2006-01-02 15:04:05")
		}
		outcome := d.Outcome
		if d.Message != "" {
			outcome = truncate(d.Message, 60)
		}
		rows = append(rows, []string{
			strconv.FormatInt(d.ID, 10),
			received,
			d.Stage,
			d.Status,
			d.FailureClass,
			d.ResourceKey,
			outcome,
			(time.Duration(d.DurationMs) * time.Millisecond).String(),
		})
	}
	return rows
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}
