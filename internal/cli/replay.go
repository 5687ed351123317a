package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jve-editor/core/internal/canon"
	"github.com/jve-editor/core/internal/cmdlog"
	"github.com/jve-editor/core/internal/store"
	"github.com/jve-editor/core/internal/timeline"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	To       int64
}

// ReplayResult is the state summary produced by replaying to a command.
type ReplayResult struct {
	Seq       int64       `json:"seq"`
	RateNum   int64       `json:"rate_num"`
	RateDen   int64       `json:"rate_den"`
	StateHash string      `json:"state_hash"`
	Tracks    []TrackInfo `json:"tracks"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay to a command and print the resulting state",
		Long: `Replay the log from the root to a command and print the timeline
state it produces. The head does not move.

Every replayed command is verified against its recorded state hash, so
a corrupted or diverging log fails the replay instead of printing a
state that never existed.

Exit codes:
  0 - Success
  1 - Replay diverged from a recorded hash
  2 - Command error (database not found, unknown sequence number, etc.)

Examples:
  editcore replay --db ./project.db
  editcore replay --db ./project.db --to 7
  editcore replay --db ./project.db --to 7 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplayTo(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite project database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().Int64Var(&opts.To, "to", -1, "sequence number to replay to (default: head)")

	return cmd
}

func runReplayTo(opts *ReplayOptions, cmd *cobra.Command) error {
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

	target := opts.To
	if target < 0 {
		target = m.Head()
	}

	v, err := m.StateAt(ctx, target)
	if err != nil {
		if cmdlog.IsHashMismatch(err) {
			return WrapExitError(ExitFailure, "replay diverged", err)
		}
		if cmdlog.IsNoSuchCommand(err) {
			return WrapExitError(ExitCommandError, "unknown command", err)
		}
		return WrapExitError(ExitCommandError, "replay failed", err)
	}

	hash, err := canon.StateHash(v)
	if err != nil {
		return WrapExitError(ExitCommandError, "state hash failed", err)
	}

	result := ReplayResult{
		Seq:       target,
		RateNum:   m.Rate().Num,
		RateDen:   m.Rate().Den,
		StateHash: hash,
		Tracks:    trackInfos(v),
	}

	if opts.Format == "json" {
		return writeResponse(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: result})
	}
	return outputReplayText(cmd, result)
}

func trackInfos(v *timeline.View) []TrackInfo {
	var out []TrackInfo
	for _, t := range v.Tracks() {
		ti := TrackInfo{ID: t.ID, Kind: string(t.Kind), Clips: []ClipInfo{}}
		for _, c := range v.TrackClips(t.ID) {
			ti.Clips = append(ti.Clips, ClipInfo{
				ID:       c.ID,
				MediaID:  c.MediaID,
				Start:    c.Start.Frames,
				Duration: c.Duration.Frames,
				SourceIn: c.SourceIn.Frames,
				Enabled:  c.Enabled,
			})
		}
		out = append(out, ti)
	}
	return out
}

// outputReplayText renders the replayed state as text.
func outputReplayText(cmd *cobra.Command, result ReplayResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "State at command %d (%d/%d fps)\n", result.Seq, result.RateNum, result.RateDen)
	fmt.Fprintf(w, "Hash: %s\n", result.StateHash)
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
