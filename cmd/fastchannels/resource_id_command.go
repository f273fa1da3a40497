package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fastchannels/internal/packaging"
)

func newResourceIDCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "resource-id <output-url>",
		Short:       "Show the packager asset ID and source ARN for a transcode output",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		Args:        cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := packaging.DeriveResourceID(args[0])
			if err != nil {
				return err
			}
			arn, err := packaging.SourceARN(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Asset ID:   %s\n", id)
			fmt.Fprintf(out, "Source ARN: %s\n", arn)
			return nil
		},
	}
}
