package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"podstudio/internal/api"
)

func newStatusCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var status api.Status
			if err := newClient(opts).getJSON("/api/status", &status); err != nil {
				return err
			}
			tw := newTable("FIELD", "VALUE")
			tw.AppendRow([]any{"running", status.Running})
			tw.AppendRow([]any{"pid", status.PID})
			tw.AppendRow([]any{"database", status.DatabasePath})
			tw.AppendRow([]any{"lock file", status.LockFilePath})
			tw.AppendRow([]any{"transcription", status.Transcription})
			tw.Render()
			return nil
		},
	}
}

func newUsageCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "usage",
		Short: "Show your storage usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var usage api.Usage
			if err := newClient(opts).getJSON("/api/usage", &usage); err != nil {
				return err
			}
			if usage.LimitBytes > 0 {
				fmt.Printf("%s of %s used\n", formatBytes(usage.UsedBytes), formatBytes(usage.LimitBytes))
				return nil
			}
			fmt.Printf("%s used (no limit)\n", formatBytes(usage.UsedBytes))
			return nil
		},
	}
}
