package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"podstudio/internal/api"
)

func newEpisodesCommand(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "episodes",
		Short: "Manage episodes",
	}
	cmd.AddCommand(newEpisodesListCommand(opts))
	cmd.AddCommand(newEpisodesCreateCommand(opts))
	cmd.AddCommand(newEpisodesDeleteCommand(opts))
	return cmd
}

func newEpisodesListCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your episodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var list api.EpisodeList
			if err := newClient(opts).getJSON("/api/episodes", &list); err != nil {
				return err
			}
			tw := newTable("ID", "TITLE", "RENDERED", "DURATION", "SIZE")
			for _, episode := range list.Episodes {
				rendered := "no"
				duration := "-"
				size := "-"
				if episode.FinalAudioURL != "" {
					rendered = "yes"
					duration = formatSeconds(episode.FinalAudioDuration)
					size = formatBytes(episode.FinalAudioBytes)
				}
				tw.AppendRow([]any{episode.ID, episode.Title, rendered, duration, size})
			}
			tw.Render()
			return nil
		},
	}
}

func newEpisodesCreateCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "create <title>",
		Short: "Create an episode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var episode api.Episode
			if err := newClient(opts).postJSON("/api/episodes", api.CreateEpisodeRequest{Title: args[0]}, &episode); err != nil {
				return err
			}
			fmt.Printf("created episode %d: %s\n", episode.ID, episode.Title)
			return nil
		},
	}
}

func newEpisodesDeleteCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <episode-id>",
		Short: "Delete an episode and all its segments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := newClient(opts).delete(fmt.Sprintf("/api/episodes/%d", id), nil); err != nil {
				return err
			}
			fmt.Printf("deleted episode %d\n", id)
			return nil
		},
	}
}

func newRenderCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "render <episode-id>",
		Short: "Assemble an episode's final audio",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var result api.RenderResult
			if err := newClient(opts).postJSON(fmt.Sprintf("/api/episodes/%d/render", id), nil, &result); err != nil {
				return err
			}
			fmt.Printf("rendered episode %d: %s (%s)\n", result.Episode.ID,
				formatSeconds(result.Episode.FinalAudioDuration), formatBytes(result.Episode.FinalAudioBytes))
			for _, name := range result.SkippedSegments {
				fmt.Printf("skipped segment with missing audio: %s\n", name)
			}
			return nil
		},
	}
}

func parseID(value string) (int64, error) {
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", value)
	}
	return id, nil
}
