package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jve-editor/core/internal/cmdlog"
	"github.com/jve-editor/core/internal/store"
)

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	*RootOptions
	Database string
}

// DivergenceInfo identifies the first command whose replay hash differs.
type DivergenceInfo struct {
	Seq      int64  `json:"seq"`
	Recorded string `json:"recorded"`
	Computed string `json:"computed"`
}

// VerifyResult holds the verification outcome.
type VerifyResult struct {
	Head       int64           `json:"head"`
	Steps      int             `json:"steps"`
	Replayed   int             `json:"replayed"`
	Skipped    int             `json:"skipped"`
	Snapshots  int             `json:"snapshots"`
	Clean      bool            `json:"clean"`
	Divergence *DivergenceInfo `json:"divergence,omitempty"`
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Replay the command log and verify state hashes",
		Long: `Replay the command log from the root to the current head and verify
every recorded state hash.

The replay takes no snapshot shortcut: each replayable command is
re-planned and re-applied, and the resulting state hash is compared
against the hash recorded at execution time. The first divergence, if
any, names the exact command whose replay no longer matches.

Exit codes:
  0 - Log replays clean
  1 - Hash divergence detected
  2 - Command error (database not found, etc.)

Examples:
  editcore verify --db ./project.db
  editcore verify --db ./project.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite project database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runVerify(opts *VerifyOptions, cmd *cobra.Command) error {
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

	rep, err := m.Verify(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "replay failed", err)
	}

	result := VerifyResult{
		Head:      m.Head(),
		Steps:     rep.Steps,
		Replayed:  rep.Replayed,
		Skipped:   rep.Skipped,
		Snapshots: rep.Snapshots,
		Clean:     rep.Clean(),
	}
	if rep.Divergence != nil {
		result.Divergence = &DivergenceInfo{
			Seq:      rep.Divergence.Seq,
			Recorded: rep.Divergence.Recorded,
			Computed: rep.Divergence.Computed,
		}
	}

	if opts.Format == "json" {
		return outputVerifyJSON(cmd, result)
	}
	return outputVerifyText(cmd, result, opts.Verbose)
}

// outputVerifyJSON outputs the verification result as JSON.
func outputVerifyJSON(cmd *cobra.Command, result VerifyResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	if !result.Clean {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_HASH_MISMATCH",
			Message: fmt.Sprintf("replay diverges at command %d", result.Divergence.Seq),
		}
	}

	if err := writeResponse(cmd.OutOrStdout(), response); err != nil {
		return err
	}

	if !result.Clean {
		// Hash divergence = exit code 1
		return NewExitError(ExitFailure, "hash verification failed")
	}
	return nil
}

// outputVerifyText outputs the verification result as text.
func outputVerifyText(cmd *cobra.Command, result VerifyResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Verify: head %d, %d step(s) on path\n", result.Head, result.Steps)
	if verbose {
		fmt.Fprintf(w, "  Replayed: %d\n", result.Replayed)
		fmt.Fprintf(w, "  Skipped (context-only): %d\n", result.Skipped)
		fmt.Fprintf(w, "  Snapshots checked: %d\n", result.Snapshots)
	}
	fmt.Fprintln(w)

	if result.Clean {
		fmt.Fprintln(w, "✓ Log replays clean")
		return nil
	}

	fmt.Fprintf(w, "✗ Replay diverges at command %d\n", result.Divergence.Seq)
	fmt.Fprintf(w, "  Recorded: %s\n", result.Divergence.Recorded)
	fmt.Fprintf(w, "  Computed: %s\n", result.Divergence.Computed)
	return NewExitError(ExitFailure, "hash verification failed")
}
