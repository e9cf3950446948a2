package main

import (
	"os"
	"os/user"

	"github.com/spf13/cobra"
)

type cliOptions struct {
	server string
	token  string
	user   string
}

func newRootCommand() *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:           "podstudio",
		Short:         "Operate a running podstudiod instance",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.server, "server", envOr("PODSTUDIO_SERVER", "http://127.0.0.1:7519"), "daemon API base URL")
	root.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("PODSTUDIO_API_TOKEN"), "API bearer token")
	root.PersistentFlags().StringVar(&opts.user, "user", envOr("PODSTUDIO_USER", osUsername()), "caller identity sent to the daemon")

	root.AddCommand(newStatusCommand(opts))
	root.AddCommand(newUsageCommand(opts))
	root.AddCommand(newEpisodesCommand(opts))
	root.AddCommand(newSegmentsCommand(opts))
	root.AddCommand(newAssetsCommand(opts))
	root.AddCommand(newRenderCommand(opts))
	root.AddCommand(newConfigCommand())
	return root
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func osUsername() string {
	if current, err := user.Current(); err == nil && current.Username != "" {
		return current.Username
	}
	return "default"
}
