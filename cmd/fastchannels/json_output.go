package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

// writeJSON prints v for the --json flags and for `handle` results. Manifest
// URLs stay readable because HTML escaping is off.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
