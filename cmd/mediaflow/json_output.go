package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeEventJSON emits one compact JSON object per line for streaming output.
func writeEventJSON(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}
