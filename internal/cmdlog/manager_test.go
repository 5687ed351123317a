package cmdlog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jve-editor/core/internal/canon"
	"github.com/jve-editor/core/internal/mutate"
	"github.com/jve-editor/core/internal/rational"
	"github.com/jve-editor/core/internal/store"
	"github.com/jve-editor/core/internal/timeline"
)

var rate30 = rational.Rate{Num: 30, Den: 1}

func openManager(t *testing.T, opts ...Option) (*Manager, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "project.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	require.NoError(t, st.InitSequence(ctx, store.DefaultSequenceID, "Main", rate30))
	require.NoError(t, st.UpsertTrack(ctx, timeline.Track{ID: "v1", Kind: timeline.TrackVideo, Order: 0}))
	require.NoError(t, st.UpsertTrack(ctx, timeline.Track{ID: "v2", Kind: timeline.TrackVideo, Order: 1}))
	require.NoError(t, st.UpsertTrack(ctx, timeline.Track{ID: "a1", Kind: timeline.TrackAudio, Order: 2}))
	require.NoError(t, st.UpsertMedia(ctx, timeline.Media{
		ID: "m1", Path: "/assets/m1.mov", Duration: rational.MustNew(10000, 30, 1),
	}))

	m, err := Open(ctx, st, opts...)
	require.NoError(t, err)
	return m, st
}

func timeP(frames int64) canon.Object {
	return canon.Object{
		"frames":   canon.Int(frames),
		"rate_num": canon.Int(30),
		"rate_den": canon.Int(1),
	}
}

func insertP(clipID string, start, dur, srcIn int64) canon.Object {
	return canon.Object{
		"clip_id":   canon.String(clipID),
		"track_id":  canon.String("v1"),
		"media_id":  canon.String("m1"),
		"start":     timeP(start),
		"duration":  timeP(dur),
		"source_in": timeP(srcIn),
	}
}

func edgeP(clipID, typ, trim string) canon.Object {
	return canon.Object{
		"clip_id": canon.String(clipID),
		"type":    canon.String(typ),
		"trim":    canon.String(trim),
	}
}

func mustClip(t *testing.T, m *Manager, id string) timeline.Clip {
	t.Helper()
	c, ok := m.View().Clip(id)
	require.True(t, ok, "clip %s not in view", id)
	return c
}

func TestExecuteInsertClip(t *testing.T) {
	m, st := openManager(t)
	ctx := context.Background()

	params := insertP("a", 0, 90, 0)
	cmd, err := m.Execute(ctx, CmdInsertClip, params)
	require.NoError(t, err)

	require.Equal(t, int64(1), m.Head())
	require.Equal(t, int64(1), cmd.Seq)
	require.Equal(t, int64(0), cmd.ParentSeq)
	require.True(t, cmd.Replayable)
	require.NotEqual(t, cmd.PreHash, cmd.PostHash)
	require.Equal(t, canon.MustCommandHash(1, 0, CmdInsertClip, params), cmd.ID)

	a := mustClip(t, m, "a")
	require.Equal(t, int64(0), a.Start.Frames)
	require.Equal(t, int64(90), a.Duration.Frames)
	require.Equal(t, int64(90), a.SourceOut.Frames)

	head, err := st.Head(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), head)
	row, ok, err := st.Command(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, cmd.ID, row.ID)
}

func TestExecuteRejectsInvalidParams(t *testing.T) {
	m, st := openManager(t)
	ctx := context.Background()

	p := insertP("a", 0, 90, 0)
	delete(p, "duration")
	_, err := m.Execute(ctx, CmdInsertClip, p)
	require.Error(t, err)

	require.Equal(t, int64(0), m.Head())
	max, err := st.MaxSeq(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(0), max)
}

func TestInsertOcclusionSplitsUnderlyingClip(t *testing.T) {
	m, _ := openManager(t)
	ctx := context.Background()

	_, err := m.Execute(ctx, CmdInsertClip, insertP("a", 0, 300, 0))
	require.NoError(t, err)
	_, err = m.Execute(ctx, CmdInsertClip, insertP("b", 60, 90, 0))
	require.NoError(t, err)

	clips := m.View().TrackClips("v1")
	require.Len(t, clips, 3)

	left := mustClip(t, m, mutate.DeriveClipID("a", "left", 0))
	require.Equal(t, int64(0), left.Start.Frames)
	require.Equal(t, int64(60), left.Duration.Frames)

	b := mustClip(t, m, "b")
	require.Equal(t, int64(60), b.Start.Frames)
	require.Equal(t, int64(150), b.End().Frames)

	right := mustClip(t, m, mutate.DeriveClipID("a", "right", 150))
	require.Equal(t, int64(150), right.Start.Frames)
	require.Equal(t, int64(300), right.End().Frames)
	require.Equal(t, int64(150), right.SourceIn.Frames)

	require.NoError(t, m.View().CheckNonOverlap())
}

func TestUndoRedoRoundTrip(t *testing.T) {
	m, st := openManager(t)
	ctx := context.Background()

	_, err := m.Execute(ctx, CmdInsertClip, insertP("a", 0, 90, 0))
	require.NoError(t, err)
	_, err = m.Execute(ctx, CmdInsertClip, insertP("b", 90, 60, 0))
	require.NoError(t, err)

	head, err := m.Undo(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), head)
	_, ok := m.View().Clip("b")
	require.False(t, ok)

	// The store follows the head, not just the in-memory view.
	clips, err := st.Source(ctx).LoadClips()
	require.NoError(t, err)
	require.Len(t, clips, 1)

	head, err = m.Redo(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), head)
	mustClip(t, m, "b")
	clips, err = st.Source(ctx).LoadClips()
	require.NoError(t, err)
	require.Len(t, clips, 2)
}

func TestRedoFollowsNewestBranch(t *testing.T) {
	m, _ := openManager(t)
	ctx := context.Background()

	_, err := m.Execute(ctx, CmdInsertClip, insertP("a", 0, 90, 0))
	require.NoError(t, err)
	_, err = m.Undo(ctx)
	require.NoError(t, err)
	_, err = m.Execute(ctx, CmdInsertClip, insertP("b", 0, 60, 0))
	require.NoError(t, err)
	require.Equal(t, int64(2), m.Head())

	_, err = m.Undo(ctx)
	require.NoError(t, err)
	head, err := m.Redo(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), head)
	_, ok := m.View().Clip("a")
	require.False(t, ok)
	mustClip(t, m, "b")

	// The abandoned branch stays addressable.
	require.NoError(t, m.Checkout(ctx, 1))
	mustClip(t, m, "a")
	_, ok = m.View().Clip("b")
	require.False(t, ok)
}

func TestTrimEdgesRipplesDownstream(t *testing.T) {
	m, _ := openManager(t)
	ctx := context.Background()

	_, err := m.Execute(ctx, CmdInsertClip, insertP("a", 0, 90, 0))
	require.NoError(t, err)
	_, err = m.Execute(ctx, CmdInsertClip, insertP("b", 90, 60, 0))
	require.NoError(t, err)

	_, err = m.Execute(ctx, CmdTrimEdges, canon.Object{
		"edges": canon.Array{edgeP("a", "out", "ripple")},
		"lead":  edgeP("a", "out", "ripple"),
		"delta": timeP(30),
	})
	require.NoError(t, err)

	a := mustClip(t, m, "a")
	require.Equal(t, int64(120), a.Duration.Frames)
	require.Equal(t, int64(120), a.SourceOut.Frames)
	b := mustClip(t, m, "b")
	require.Equal(t, int64(120), b.Start.Frames)
	require.NoError(t, m.View().CheckNonOverlap())
}

func TestMoveClip(t *testing.T) {
	m, _ := openManager(t)
	ctx := context.Background()

	_, err := m.Execute(ctx, CmdInsertClip, insertP("a", 0, 90, 0))
	require.NoError(t, err)

	_, err = m.Execute(ctx, CmdMoveClip, canon.Object{
		"clip_id": canon.String("a"),
		"delta":   timeP(30),
	})
	require.NoError(t, err)
	require.Equal(t, int64(30), mustClip(t, m, "a").Start.Frames)

	_, err = m.Execute(ctx, CmdMoveClip, canon.Object{
		"clip_id":         canon.String("a"),
		"delta":           timeP(0),
		"target_track_id": canon.String("v2"),
	})
	require.NoError(t, err)
	a := mustClip(t, m, "a")
	require.Equal(t, "v2", a.TrackID)
	require.Equal(t, int64(30), a.Start.Frames)

	head := m.Head()
	_, err = m.Execute(ctx, CmdMoveClip, canon.Object{
		"clip_id":         canon.String("a"),
		"delta":           timeP(0),
		"target_track_id": canon.String("a1"),
	})
	require.True(t, timeline.IsTypeMismatch(err), "moving video onto audio: %v", err)
	require.Equal(t, head, m.Head())
}

func TestDuplicateBlock(t *testing.T) {
	m, _ := openManager(t)
	ctx := context.Background()

	_, err := m.Execute(ctx, CmdInsertClip, insertP("a", 0, 90, 0))
	require.NoError(t, err)
	_, err = m.Execute(ctx, CmdDuplicateBlock, canon.Object{
		"clip_ids": canon.Array{canon.String("a")},
		"delta":    timeP(120),
	})
	require.NoError(t, err)

	dup := mustClip(t, m, mutate.DeriveClipID("a", "dup", 120))
	require.Equal(t, int64(120), dup.Start.Frames)
	require.Equal(t, int64(90), dup.Duration.Frames)
	require.Len(t, m.View().TrackClips("v1"), 2)
}

func TestSplitThenRippleDelete(t *testing.T) {
	m, _ := openManager(t)
	ctx := context.Background()

	_, err := m.Execute(ctx, CmdInsertClip, insertP("a", 0, 90, 0))
	require.NoError(t, err)
	_, err = m.Execute(ctx, CmdInsertClip, insertP("b", 90, 60, 0))
	require.NoError(t, err)

	_, err = m.Execute(ctx, CmdSplitClip, canon.Object{
		"clip_id": canon.String("a"),
		"at":      timeP(30),
	})
	require.NoError(t, err)

	leftID := mutate.DeriveClipID("a", "left", 0)
	rightID := mutate.DeriveClipID("a", "right", 30)
	left := mustClip(t, m, leftID)
	right := mustClip(t, m, rightID)
	require.Equal(t, int64(30), left.Duration.Frames)
	require.Equal(t, int64(30), left.SourceOut.Frames)
	require.Equal(t, int64(30), right.Start.Frames)
	require.Equal(t, int64(60), right.Duration.Frames)
	require.Equal(t, int64(30), right.SourceIn.Frames)

	_, err = m.Execute(ctx, CmdRippleDelete, canon.Object{
		"clip_id": canon.String(rightID),
	})
	require.NoError(t, err)

	_, ok := m.View().Clip(rightID)
	require.False(t, ok)
	b := mustClip(t, m, "b")
	require.Equal(t, int64(30), b.Start.Frames)
	require.NoError(t, m.View().CheckNonOverlap())

	rep, err := m.Verify(ctx)
	require.NoError(t, err)
	require.True(t, rep.Clean(), "divergence: %v", rep.Divergence)
	require.Equal(t, 4, rep.Steps)
}

func TestEnableIntoOverlapIsRejected(t *testing.T) {
	m, st := openManager(t)
	ctx := context.Background()

	_, err := m.Execute(ctx, CmdInsertClip, insertP("a", 0, 90, 0))
	require.NoError(t, err)

	p := insertP("b", 0, 90, 0)
	p["enabled"] = canon.Bool(false)
	_, err = m.Execute(ctx, CmdInsertClip, p)
	require.NoError(t, err, "disabled clip may share the interval")

	_, err = m.Execute(ctx, CmdSetClipEnabled, canon.Object{
		"clip_id": canon.String("b"),
		"enabled": canon.Bool(true),
	})
	require.True(t, timeline.IsPrecondition(err), "enable into overlap: %v", err)

	require.Equal(t, int64(2), m.Head())
	require.False(t, mustClip(t, m, "b").Enabled)
	max, err := st.MaxSeq(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), max)
}

func TestContextCommandsAndSelectionHygiene(t *testing.T) {
	m, st := openManager(t)
	ctx := context.Background()

	_, err := m.Execute(ctx, CmdInsertClip, insertP("a", 0, 90, 0))
	require.NoError(t, err)

	cmd, err := m.Execute(ctx, CmdSetPlayhead, canon.Object{"frames": canon.Int(42)})
	require.NoError(t, err)
	require.False(t, cmd.Replayable)
	require.Equal(t, cmd.PreHash, cmd.PostHash)
	require.Equal(t, int64(42), m.Playhead())
	frames, err := st.Playhead(ctx, store.DefaultSequenceID)
	require.NoError(t, err)
	require.Equal(t, int64(42), frames)

	_, err = m.Execute(ctx, CmdSetSelection, canon.Object{
		"clip_ids": canon.Array{canon.String("a")},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, m.Selections())

	// Deleting the selected clip drops it from the captured context.
	cmd, err = m.Execute(ctx, CmdDeleteClip, canon.Object{"clip_id": canon.String("a")})
	require.NoError(t, err)
	require.Empty(t, cmd.Selections)
	require.Empty(t, m.Selections())

	// Undoing the delete restores the selection along with the clip.
	head, err := m.Undo(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(3), head)
	require.Equal(t, []string{"a"}, m.Selections())
	require.Equal(t, int64(42), m.Playhead())

	// Undoing past the playhead change restores the old position.
	_, err = m.Undo(ctx)
	require.NoError(t, err)
	_, err = m.Undo(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), m.Head())
	require.Equal(t, int64(0), m.Playhead())
}

func TestSnapshotCheckout(t *testing.T) {
	m, st := openManager(t, WithSnapshotInterval(2))
	ctx := context.Background()

	for i, id := range []string{"a", "b", "c", "d"} {
		_, err := m.Execute(ctx, CmdInsertClip, insertP(id, int64(i)*90, 90, 0))
		require.NoError(t, err)
	}

	for _, seq := range []int64{2, 4} {
		snap, ok, err := st.Snapshot(ctx, seq)
		require.NoError(t, err)
		require.True(t, ok, "snapshot at %d missing", seq)
		require.Equal(t, canon.HashDomain(canon.DomainState, snap.State), snap.StateHash)
	}

	// Checkout of 3 replays from the snapshot at 2, not from the root.
	require.NoError(t, m.Checkout(ctx, 3))
	require.Equal(t, int64(3), m.Head())
	row, ok, err := st.Command(ctx, 3)
	require.NoError(t, err)
	require.True(t, ok)
	h, err := canon.StateHash(m.View())
	require.NoError(t, err)
	require.Equal(t, row.PostHash, h)
	_, ok = m.View().Clip("d")
	require.False(t, ok)
}

func TestVerifyReportsFirstDivergence(t *testing.T) {
	m, st := openManager(t)
	ctx := context.Background()

	_, err := m.Execute(ctx, CmdInsertClip, insertP("a", 0, 90, 0))
	require.NoError(t, err)
	_, err = m.Execute(ctx, CmdInsertClip, insertP("b", 90, 60, 0))
	require.NoError(t, err)
	_, err = m.Execute(ctx, CmdDeleteClip, canon.Object{"clip_id": canon.String("b")})
	require.NoError(t, err)

	rep, err := m.Verify(ctx)
	require.NoError(t, err)
	require.True(t, rep.Clean())
	require.Equal(t, 3, rep.Steps)
	require.Equal(t, 3, rep.Replayed)

	// Re-materializing the head from the root reproduces the same state.
	before, err := canon.StateHash(m.View())
	require.NoError(t, err)
	require.NoError(t, m.Checkout(ctx, m.Head()))
	after, err := canon.StateHash(m.View())
	require.NoError(t, err)
	require.Equal(t, before, after)

	_, err = st.DB().ExecContext(ctx,
		"UPDATE commands SET post_hash = 'deadbeef' WHERE sequence_number = 2")
	require.NoError(t, err)

	rep, err = m.Verify(ctx)
	require.NoError(t, err)
	require.False(t, rep.Clean())
	require.Equal(t, int64(2), rep.Divergence.Seq)
	require.Equal(t, "deadbeef", rep.Divergence.Recorded)
}

func TestGuards(t *testing.T) {
	m, _ := openManager(t)
	ctx := context.Background()

	_, err := m.Undo(ctx)
	require.True(t, IsNothingToUndo(err))
	_, err = m.Redo(ctx)
	require.True(t, IsNothingToRedo(err))
	require.True(t, IsNoSuchCommand(m.Checkout(ctx, 99)))

	m.executing = true
	_, err = m.Execute(ctx, CmdSetPlayhead, canon.Object{"frames": canon.Int(1)})
	require.True(t, IsReentrant(err))
	require.True(t, IsReentrant(m.Checkout(ctx, 0)))
	m.executing = false
}

func TestStateAtDoesNotMoveHead(t *testing.T) {
	m, _ := openManager(t)
	ctx := context.Background()

	_, err := m.Execute(ctx, CmdInsertClip, insertP("a", 0, 90, 0))
	require.NoError(t, err)
	_, err = m.Execute(ctx, CmdInsertClip, insertP("b", 90, 60, 0))
	require.NoError(t, err)

	v, err := m.StateAt(ctx, 1)
	require.NoError(t, err)
	_, ok := v.Clip("b")
	require.False(t, ok)
	_, ok = v.Clip("a")
	require.True(t, ok)
	require.Equal(t, int64(2), m.Head())

	root, err := m.StateAt(ctx, 0)
	require.NoError(t, err)
	require.Empty(t, root.AllClips())
}

func TestCheckoutRejectsCorruptedSnapshot(t *testing.T) {
	m, st := openManager(t, WithSnapshotInterval(2))
	ctx := context.Background()

	for i, id := range []string{"a", "b", "c"} {
		_, err := m.Execute(ctx, CmdInsertClip, insertP(id, int64(i)*90, 90, 0))
		require.NoError(t, err)
	}

	// Flip a bit inside the snapshot bytes; the row still decodes, the
	// stored hash still matches the command row, only the content lies.
	_, err := st.DB().ExecContext(ctx, `
		UPDATE snapshots SET state = replace(state, '"enabled":true', '"enabled":false')
		WHERE sequence_number = 2`)
	require.NoError(t, err)

	err = m.Checkout(ctx, 2)
	require.True(t, IsHashMismatch(err))
	var he *HashMismatchError
	require.ErrorAs(t, err, &he)
	require.Equal(t, int64(2), he.Seq)

	// A replay that would merely pass over the snapshot fails the same
	// way, attributed to the snapshot's command rather than a later one.
	err = m.Checkout(ctx, 3)
	require.ErrorAs(t, err, &he)
	require.Equal(t, int64(2), he.Seq)

	// The working state is untouched by the failed checkouts.
	require.Equal(t, int64(3), m.Head())
	h, err := canon.StateHash(m.View())
	require.NoError(t, err)
	row, ok, err := st.Command(ctx, 3)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, row.PostHash, h)

	// Verify takes no snapshot shortcut but still flags the corruption.
	rep, err := m.Verify(ctx)
	require.NoError(t, err)
	require.False(t, rep.Clean())
	require.Equal(t, int64(2), rep.Divergence.Seq)
}

func TestVerifyCrossChecksSnapshotHashes(t *testing.T) {
	m, st := openManager(t, WithSnapshotInterval(2))
	ctx := context.Background()

	_, err := m.Execute(ctx, CmdInsertClip, insertP("a", 0, 90, 0))
	require.NoError(t, err)
	_, err = m.Execute(ctx, CmdInsertClip, insertP("b", 90, 60, 0))
	require.NoError(t, err)

	rep, err := m.Verify(ctx)
	require.NoError(t, err)
	require.True(t, rep.Clean())
	require.Equal(t, 1, rep.Snapshots)

	_, err = st.DB().ExecContext(ctx,
		"UPDATE snapshots SET state_hash = 'deadbeef' WHERE sequence_number = 2")
	require.NoError(t, err)

	rep, err = m.Verify(ctx)
	require.NoError(t, err)
	require.False(t, rep.Clean())
	require.Equal(t, int64(2), rep.Divergence.Seq)
	require.Equal(t, "deadbeef", rep.Divergence.Recorded)
}
