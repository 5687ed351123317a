package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jve-editor/core/internal/canon"
	"github.com/jve-editor/core/internal/cmdlog"
	"github.com/jve-editor/core/internal/rational"
	"github.com/jve-editor/core/internal/store"
	"github.com/jve-editor/core/internal/timeline"
)

// seedProject creates a project database with one video track, one media
// asset, and two committed commands: an insert and a playhead move.
func seedProject(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "project.db")

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	rate := rational.Rate{Num: 30, Den: 1}
	require.NoError(t, st.InitSequence(ctx, store.DefaultSequenceID, "Main", rate))
	require.NoError(t, st.UpsertTrack(ctx, timeline.Track{ID: "v1", Kind: timeline.TrackVideo, Order: 0}))
	require.NoError(t, st.UpsertMedia(ctx, timeline.Media{
		ID: "m1", Path: "/assets/m1.mov", Duration: rational.MustNew(10000, 30, 1),
	}))

	m, err := cmdlog.Open(ctx, st)
	require.NoError(t, err)

	timeP := func(frames int64) canon.Object {
		return canon.Object{
			"frames":   canon.Int(frames),
			"rate_num": canon.Int(30),
			"rate_den": canon.Int(1),
		}
	}
	_, err = m.Execute(ctx, cmdlog.CmdInsertClip, canon.Object{
		"clip_id":   canon.String("a"),
		"track_id":  canon.String("v1"),
		"media_id":  canon.String("m1"),
		"start":     timeP(0),
		"duration":  timeP(90),
		"source_in": timeP(0),
	})
	require.NoError(t, err)
	_, err = m.Execute(ctx, cmdlog.CmdSetPlayhead, canon.Object{
		"frames": canon.Int(42),
	})
	require.NoError(t, err)

	return dbPath
}

// emptyProject creates an initialized project database with no commands.
func emptyProject(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "empty.db")

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	rate := rational.Rate{Num: 30, Den: 1}
	require.NoError(t, st.InitSequence(ctx, store.DefaultSequenceID, "Main", rate))
	return dbPath
}

// runCLI executes the root command with args and captures its output.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}
