package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"podstudio/internal/api"
)

func newAssetsCommand(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assets",
		Short: "Manage reusable library assets",
	}
	cmd.AddCommand(newAssetsListCommand(opts))
	cmd.AddCommand(newAssetsImportCommand(opts))
	cmd.AddCommand(newAssetsDeleteCommand(opts))
	return cmd
}

func newAssetsListCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List assets visible to you",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var list api.AssetList
			if err := newClient(opts).getJSON("/api/assets", &list); err != nil {
				return err
			}
			tw := newTable("ID", "NAME", "SCOPE", "DURATION", "SIZE")
			for _, asset := range list.Assets {
				scope := "private"
				if asset.Global {
					scope = "global"
				}
				tw.AppendRow([]any{asset.ID, asset.Name, scope, formatSeconds(asset.DurationSec), formatBytes(asset.SizeBytes)})
			}
			tw.Render()
			return nil
		},
	}
}

func newAssetsImportCommand(opts *cliOptions) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "import <audio-file>",
		Short: "Import a local audio file into your library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var asset api.Asset
			if err := newClient(opts).uploadFile("/api/assets", args[0], name, &asset); err != nil {
				return err
			}
			fmt.Printf("imported asset %d: %s\n", asset.ID, asset.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "asset display name (defaults to embedded tags or the file name)")
	return cmd
}

func newAssetsDeleteCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <asset-id>",
		Short: "Delete an asset you own",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := newClient(opts).delete(fmt.Sprintf("/api/assets/%d", id), nil); err != nil {
				return err
			}
			fmt.Printf("deleted asset %d\n", id)
			return nil
		},
	}
}
