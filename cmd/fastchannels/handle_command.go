package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newHandleCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "handle [envelope.json|-]",
		Short: "Dispatch one event envelope and print the result",
		Long: "Reads an event envelope from a file (or stdin when the argument is - or omitted), " +
			"routes it to its stage, and prints the delivery result as JSON. " +
			"The exit status is non-zero when the stage failed.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readEnvelope(cmd, args)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			rt, err := buildApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			result, dispatchErr := rt.dispatcher.Dispatch(cmd.Context(), raw)
			if err := writeJSON(cmd, result); err != nil {
				return err
			}
			if dispatchErr != nil {
				return fmt.Errorf("%s failed (%s): %w", result.Stage, result.Class, dispatchErr)
			}
			return nil
		},
	}
}

func readEnvelope(cmd *cobra.Command, args []string) ([]byte, error) {
	var reader io.Reader = cmd.InOrStdin()
	if len(args) == 1 && strings.TrimSpace(args[0]) != "-" {
		file, err := os.Open(args[0])
		if err != nil {
			return nil, fmt.Errorf("open envelope: %w", err)
		}
		defer file.Close()
		reader = file
	}
	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read envelope: %w", err)
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, fmt.Errorf("envelope is empty")
	}
	return raw, nil
}
