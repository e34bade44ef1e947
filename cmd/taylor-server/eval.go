package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	taylor "github.com/njchilds90/gotaylor"
)

var evalCmd = &cobra.Command{
	Use:   "eval [request.json]",
	Short: "Run one tool request from a file or stdin and print the response",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		in := cmd.InOrStdin()
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}

		resp, err := evalRequest(in, taylor.Limits{MaxOrder: cfg.MaxOrder, MaxExponent: cfg.MaxExponent})
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(resp); err != nil {
			return err
		}
		if resp.Error != "" {
			return fmt.Errorf("tool call failed: %s", resp.Error)
		}
		return nil
	},
}

func evalRequest(r io.Reader, limits taylor.Limits) (taylor.ToolResponse, error) {
	var req taylor.ToolRequest
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return taylor.ToolResponse{}, fmt.Errorf("decode request: %w", err)
	}
	return limits.HandleToolCall(req), nil
}
