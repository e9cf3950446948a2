package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"podstudio/internal/config"
)

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the local configuration file",
	}
	cmd.AddCommand(newConfigInitCommand())
	cmd.AddCommand(newConfigShowCommand())
	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a commented sample config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			target := path
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return err
				}
				target = defaultPath
			}
			if err := config.WriteSample(target); err != nil {
				return err
			}
			fmt.Printf("wrote sample config to %s\n", target)
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "destination path (defaults to the standard location)")
	return cmd
}

func newConfigShowCommand() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the resolved configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, resolvedPath, created, err := config.Load(path)
			if err != nil {
				return err
			}
			if created {
				fmt.Printf("created default config at %s\n", resolvedPath)
			} else {
				fmt.Printf("config: %s\n", resolvedPath)
			}
			tw := newTable("SETTING", "VALUE")
			tw.AppendRow([]any{"data dir", cfg.Paths.DataDir})
			tw.AppendRow([]any{"library dir", cfg.Paths.LibraryDir})
			tw.AppendRow([]any{"log dir", cfg.Paths.LogDir})
			tw.AppendRow([]any{"api bind", cfg.Paths.APIBind})
			tw.AppendRow([]any{"quota", formatBytes(cfg.Storage.QuotaBytes)})
			tw.AppendRow([]any{"output format", cfg.Audio.OutputFormat})
			tw.AppendRow([]any{"ffmpeg", cfg.Audio.FFmpegBinary})
			tw.AppendRow([]any{"stt model", cfg.Transcription.Model})
			tw.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "config file to load")
	return cmd
}
