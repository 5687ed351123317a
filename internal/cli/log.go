package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jve-editor/core/internal/store"
)

// LogOptions holds flags for the log command.
type LogOptions struct {
	*RootOptions
	Database string
}

// LogEntry is one command row in the log listing.
type LogEntry struct {
	Seq        int64  `json:"seq"`
	ParentSeq  int64  `json:"parent_seq"`
	ID         string `json:"id"`
	Type       string `json:"type"`
	Replayable bool   `json:"replayable"`
	AtHead     bool   `json:"at_head"`
}

// LogResult holds the full command log listing.
type LogResult struct {
	Head     int64      `json:"head"`
	Commands []LogEntry `json:"commands"`
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show the command log tree",
		Long: `Show every command in the project log as a tree.

Undo followed by a new command creates a sibling branch; the tree view
makes abandoned branches visible. The current head is marked with '*'.

Exit codes:
  0 - Success
  2 - Command error (database not found, etc.)

Examples:
  editcore log --db ./project.db
  editcore log --db ./project.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLog(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite project database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runLog(opts *LogOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	head, err := st.Head(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read head", err)
	}
	cmds, err := st.AllCommands(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read commands", err)
	}

	result := LogResult{Head: head, Commands: make([]LogEntry, 0, len(cmds))}
	for _, c := range cmds {
		result.Commands = append(result.Commands, LogEntry{
			Seq:        c.Seq,
			ParentSeq:  c.ParentSeq,
			ID:         c.ID,
			Type:       c.Type,
			Replayable: c.Replayable,
			AtHead:     c.Seq == head,
		})
	}

	if opts.Format == "json" {
		return writeResponse(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: result})
	}
	return outputLogText(cmd, result, opts.Verbose)
}

// outputLogText renders the command tree as indented text.
func outputLogText(cmd *cobra.Command, result LogResult, verbose bool) error {
	w := cmd.OutOrStdout()

	if len(result.Commands) == 0 {
		fmt.Fprintln(w, "Command log is empty.")
		return nil
	}

	children := make(map[int64][]LogEntry)
	for _, e := range result.Commands {
		children[e.ParentSeq] = append(children[e.ParentSeq], e)
	}

	fmt.Fprintf(w, "Command log: %d command(s), head %d\n", len(result.Commands), result.Head)
	var render func(parent int64, depth int)
	render = func(parent int64, depth int) {
		for _, e := range children[parent] {
			marker := " "
			if e.AtHead {
				marker = "*"
			}
			line := fmt.Sprintf("%s %s%4d  %s", marker, strings.Repeat("  ", depth), e.Seq, e.Type)
			if verbose {
				line += fmt.Sprintf("  %s", shortHash(e.ID))
				if !e.Replayable {
					line += "  (context)"
				}
			}
			fmt.Fprintln(w, line)
			render(e.Seq, depth+1)
		}
	}
	render(0, 0)
	return nil
}

// shortHash abbreviates a command hash for text output.
func shortHash(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
