package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jve-editor/core/internal/store"
)

// HydrateOptions holds flags for the hydrate-rates command.
type HydrateOptions struct {
	*RootOptions
	Database string
}

// HydrateResult reports how many rows were backfilled.
type HydrateResult struct {
	RateNum int64 `json:"rate_num"`
	RateDen int64 `json:"rate_den"`
	Clips   int64 `json:"clips"`
	Media   int64 `json:"media"`
}

// NewHydrateCommand creates the hydrate-rates command.
func NewHydrateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HydrateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "hydrate-rates",
		Short: "Backfill missing rate columns from the sequence rate",
		Long: `Backfill clip and media rows whose rate columns are zero with the
sequence rate.

Databases written by older tools stored frame counts without an
explicit rate. Hydration makes the rate explicit on every row so all
later reads fail closed on a real rate instead of guessing.

Exit codes:
  0 - Success
  2 - Command error (database not found, invalid sequence rate, etc.)

Examples:
  editcore hydrate-rates --db ./project.db
  editcore hydrate-rates --db ./project.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHydrate(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite project database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runHydrate(opts *HydrateOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	rate, err := st.SequenceRate(ctx, store.DefaultSequenceID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read sequence rate", err)
	}

	counts, err := st.HydrateRates(ctx, rate)
	if err != nil {
		return WrapExitError(ExitCommandError, "hydration failed", err)
	}

	result := HydrateResult{
		RateNum: rate.Num,
		RateDen: rate.Den,
		Clips:   counts.Clips,
		Media:   counts.Media,
	}

	if opts.Format == "json" {
		return writeResponse(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: result})
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Hydrated at %d/%d fps: %d clip(s), %d media row(s)\n",
		result.RateNum, result.RateDen, result.Clips, result.Media)
	fmt.Fprintln(w, "✓ All rows carry an explicit rate")
	return nil
}
