package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jve-editor/core/internal/cmdlog"
	"github.com/jve-editor/core/internal/store"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	Database string
}

// ClipInfo is the wire shape of one clip in inspect output.
type ClipInfo struct {
	ID       string `json:"id"`
	MediaID  string `json:"media_id"`
	Start    int64  `json:"start"`
	Duration int64  `json:"duration"`
	SourceIn int64  `json:"source_in"`
	Enabled  bool   `json:"enabled"`
}

// TrackInfo is one track and its clips in timeline order.
type TrackInfo struct {
	ID    string     `json:"id"`
	Kind  string     `json:"kind"`
	Clips []ClipInfo `json:"clips"`
}

// InspectResult is the materialized state at the current head.
type InspectResult struct {
	RateNum    int64       `json:"rate_num"`
	RateDen    int64       `json:"rate_den"`
	Head       int64       `json:"head"`
	Playhead   int64       `json:"playhead"`
	Selections []string    `json:"selections"`
	Tracks     []TrackInfo `json:"tracks"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show the timeline state at the current head",
		Long: `Show the materialized timeline at the current head: every track,
its clips in timeline order, and the persisted playhead and selection.

All positions are in frames at the sequence rate.

Exit codes:
  0 - Success
  2 - Command error (database not found, etc.)

Examples:
  editcore inspect --db ./project.db
  editcore inspect --db ./project.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite project database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runInspect(opts *InspectOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	m, err := cmdlog.Open(ctx, st)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open command log", err)
	}

	result := buildInspectResult(m)

	if opts.Format == "json" {
		return writeResponse(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: result})
	}
	return outputInspectText(cmd, result)
}

func buildInspectResult(m *cmdlog.Manager) InspectResult {
	rate := m.Rate()

	result := InspectResult{
		RateNum:    rate.Num,
		RateDen:    rate.Den,
		Head:       m.Head(),
		Playhead:   m.Playhead(),
		Selections: m.Selections(),
		Tracks:     trackInfos(m.View()),
	}
	if result.Selections == nil {
		result.Selections = []string{}
	}
	return result
}

// outputInspectText renders the timeline state as text.
func outputInspectText(cmd *cobra.Command, result InspectResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Sequence: %d/%d fps, head %d, playhead %d\n",
		result.RateNum, result.RateDen, result.Head, result.Playhead)
	if len(result.Selections) > 0 {
		fmt.Fprintf(w, "Selected: %v\n", result.Selections)
	}
	fmt.Fprintln(w)

	for _, t := range result.Tracks {
		fmt.Fprintf(w, "%s (%s)\n", t.ID, t.Kind)
		if len(t.Clips) == 0 {
			fmt.Fprintln(w, "  (empty)")
			continue
		}
		for _, c := range t.Clips {
			state := ""
			if !c.Enabled {
				state = "  disabled"
			}
			fmt.Fprintf(w, "  [%6d %6d)  %s  %s@%d%s\n",
				c.Start, c.Start+c.Duration, c.ID, c.MediaID, c.SourceIn, state)
		}
	}
	return nil
}
