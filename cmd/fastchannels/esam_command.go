package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"fastchannels/internal/adoffsets"
	"fastchannels/internal/esam"
)

type esamOutput struct {
	Offsets      []int64 `json:"offsets"`
	Cues         int     `json:"cues"`
	Notification string  `json:"signalProcessingNotification"`
	Confirmation string  `json:"manifestConfirmConditionNotification"`
}

func newESAMCommand() *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:         "esam <offset-ms>...",
		Short:       "Render the signaling documents for a list of ad offsets",
		Long:        "Accepts offsets in milliseconds, either as separate arguments or as one quoted tag value, and prints the two documents attached to the transcode job.",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		Args:        cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			offsets, err := adoffsets.Parse(strings.Join(args, " "))
			if err != nil {
				return fmt.Errorf("parse offsets: %w", err)
			}
			signal, ok, err := esam.Synthesize(offsets)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no offsets given")
			}
			if jsonOut {
				return writeJSON(cmd, esamOutput{
					Offsets:      offsets,
					Cues:         signal.Cues,
					Notification: signal.NotificationXML,
					Confirmation: signal.ConfirmationXML,
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "# %d cue(s) at %s\n\n", signal.Cues, adoffsets.Format(offsets))
			fmt.Fprintln(out, signal.NotificationXML)
			fmt.Fprintln(out)
			fmt.Fprintln(out, signal.ConfirmationXML)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print JSON instead of raw XML")
	return cmd
}
