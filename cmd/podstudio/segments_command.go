package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"podstudio/internal/api"
)

func newSegmentsCommand(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "segments",
		Short: "Manage episode segments",
	}
	cmd.AddCommand(newSegmentsListCommand(opts))
	cmd.AddCommand(newSegmentsUploadCommand(opts))
	cmd.AddCommand(newSegmentsAttachCommand(opts))
	cmd.AddCommand(newSegmentsDeleteCommand(opts))
	cmd.AddCommand(newSegmentsTrimCommand(opts))
	return cmd
}

func newSegmentsListCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list <episode-id>",
		Short: "List an episode's timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var list api.SegmentList
			if err := newClient(opts).getJSON(fmt.Sprintf("/api/episodes/%d/segments", id), &list); err != nil {
				return err
			}
			tw := newTable("POS", "ID", "NAME", "SOURCE", "DURATION")
			for _, segment := range list.Segments {
				tw.AppendRow([]any{segment.Position, segment.ID, segment.Name, segment.SourceType, formatSeconds(segment.DurationSec)})
			}
			tw.Render()
			return nil
		},
	}
}

func newSegmentsUploadCommand(opts *cliOptions) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "upload <episode-id> <audio-file>",
		Short: "Upload audio as a new recorded segment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var segment api.Segment
			if err := newClient(opts).uploadFile(fmt.Sprintf("/api/episodes/%d/segments", id), args[1], name, &segment); err != nil {
				return err
			}
			fmt.Printf("uploaded segment %d (%s) at position %d\n", segment.ID, segment.Name, segment.Position)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "segment display name (defaults to the file name)")
	return cmd
}

func newSegmentsAttachCommand(opts *cliOptions) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "attach <episode-id> <asset-id>",
		Short: "Append a library asset to the timeline",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			episodeID, err := parseID(args[0])
			if err != nil {
				return err
			}
			assetID, err := parseID(args[1])
			if err != nil {
				return err
			}
			var segment api.Segment
			err = newClient(opts).postJSON(fmt.Sprintf("/api/episodes/%d/segments", episodeID),
				api.AttachAssetRequest{AssetID: assetID, Name: name}, &segment)
			if err != nil {
				return err
			}
			fmt.Printf("attached asset %d as segment %d\n", assetID, segment.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "segment display name (defaults to the asset name)")
	return cmd
}

func newSegmentsDeleteCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <episode-id> <segment-id>",
		Short: "Remove a segment from the timeline",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			episodeID, err := parseID(args[0])
			if err != nil {
				return err
			}
			segmentID, err := parseID(args[1])
			if err != nil {
				return err
			}
			if err := newClient(opts).delete(fmt.Sprintf("/api/episodes/%d/segments/%d", episodeID, segmentID), nil); err != nil {
				return err
			}
			fmt.Printf("deleted segment %d\n", segmentID)
			return nil
		},
	}
}

func newSegmentsTrimCommand(opts *cliOptions) *cobra.Command {
	var start, end float64
	cmd := &cobra.Command{
		Use:   "trim <episode-id> <segment-id>",
		Short: "Trim a segment to the given bounds",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			episodeID, err := parseID(args[0])
			if err != nil {
				return err
			}
			segmentID, err := parseID(args[1])
			if err != nil {
				return err
			}
			req := api.TrimRequest{}
			if cmd.Flags().Changed("start") {
				req.StartSec = &start
			}
			if cmd.Flags().Changed("end") {
				req.EndSec = &end
			}
			var segment api.Segment
			err = newClient(opts).postJSON(fmt.Sprintf("/api/episodes/%d/segments/%d/trim", episodeID, segmentID), req, &segment)
			if err != nil {
				return err
			}
			fmt.Printf("trimmed segment %d, new duration %s\n", segment.ID, formatSeconds(segment.DurationSec))
			return nil
		},
	}
	cmd.Flags().Float64Var(&start, "start", 0, "keep audio from this second")
	cmd.Flags().Float64Var(&end, "end", 0, "keep audio up to this second")
	return cmd
}
