package cmdlog

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/jve-editor/core/internal/canon"
	"github.com/jve-editor/core/internal/cmdspec"
	"github.com/jve-editor/core/internal/store"
	"github.com/jve-editor/core/internal/timeline"
)

// pathTo returns the commands from the root to seq inclusive, in replay
// order. Seq 0 is the empty path.
func (m *Manager) pathTo(ctx context.Context, seq int64) ([]store.Command, error) {
	var path []store.Command
	for cur := seq; cur != 0; {
		cmd, ok, err := m.st.Command(ctx, cur)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, logErrf(CodeNoSuchCommand, cur, "command not in log")
		}
		if cmd.ParentSeq >= cur || cmd.ParentSeq < 0 {
			return nil, fmt.Errorf("command log corrupt: seq %d has parent %d", cur, cmd.ParentSeq)
		}
		path = append(path, cmd)
		cur = cmd.ParentSeq
	}
	slices.Reverse(path)
	return path, nil
}

// materialize rebuilds the state at seq: from the latest snapshot on
// the path when one exists, else from the empty root. Every replayed
// command is verified against its recorded post hash.
func (m *Manager) materialize(ctx context.Context, seq int64) (*timeline.View, error) {
	path, err := m.pathTo(ctx, seq)
	if err != nil {
		return nil, err
	}
	v, start, err := m.replayBase(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := m.replaySteps(v, path[start:]); err != nil {
		return nil, err
	}
	return v, nil
}

// replayBase picks the starting state for a replay: the latest snapshot
// on the path, or a view holding only tracks and media. Snapshot bytes
// are verified against their stored hash before they become state.
func (m *Manager) replayBase(ctx context.Context, path []store.Command) (*timeline.View, int, error) {
	for i := len(path) - 1; i >= 0; i-- {
		snap, ok, err := m.st.Snapshot(ctx, path[i].Seq)
		if err != nil {
			return nil, 0, err
		}
		if !ok {
			continue
		}
		if err := verifySnapshot(snap, path[i]); err != nil {
			return nil, 0, err
		}
		v, err := decodeState(snap.State, m.rate)
		if err != nil {
			return nil, 0, err
		}
		return v, i + 1, nil
	}
	v, err := m.emptyTimeline(ctx)
	return v, 0, err
}

// emptyTimeline is the root state: the sequence's tracks and media with
// no clips. Tracks and media live outside the command model.
func (m *Manager) emptyTimeline(ctx context.Context) (*timeline.View, error) {
	src := m.st.Source(ctx)
	tracks, err := src.LoadTracks()
	if err != nil {
		return nil, err
	}
	media, err := src.LoadMedia()
	if err != nil {
		return nil, err
	}
	v := timeline.NewView(m.rate)
	for _, t := range tracks {
		v.AddTrack(t)
	}
	for _, md := range media {
		v.AddMedia(md)
	}
	return v, nil
}

// replaySteps re-executes commands in order against v, verifying each
// recorded post hash. Planning runs the same code as live execution, so
// a divergence means the log or the code changed underneath the data.
func (m *Manager) replaySteps(v *timeline.View, steps []store.Command) error {
	for _, cmd := range steps {
		if cmd.Replayable {
			h, ok := handlers[cmd.Type]
			if !ok || h.plan == nil {
				return cmdspec.UnknownCommandError{Type: cmd.Type}
			}
			bucket, err := h.plan(execContext{view: v, rate: m.rate, seq: cmd.Seq}, cmd.Params)
			if err != nil {
				return fmt.Errorf("replay seq %d (%s): %w", cmd.Seq, cmd.Type, err)
			}
			if err := v.Apply(bucket); err != nil {
				return fmt.Errorf("replay seq %d (%s): %w", cmd.Seq, cmd.Type, err)
			}
		}
		got, err := canon.StateHash(v)
		if err != nil {
			return err
		}
		if got != cmd.PostHash {
			return &HashMismatchError{Seq: cmd.Seq, Recorded: cmd.PostHash, Computed: got}
		}
	}
	return nil
}

// verifySnapshot checks that snapshot bytes hash to the stored state
// hash and that the stored hash matches the post hash of the command
// the snapshot claims to capture. Corrupt bytes must never materialize
// as working state.
func verifySnapshot(snap store.Snapshot, cmd store.Command) error {
	if got := canon.HashDomain(canon.DomainState, snap.State); got != snap.StateHash {
		return &HashMismatchError{Seq: cmd.Seq, Recorded: snap.StateHash, Computed: got}
	}
	if snap.StateHash != cmd.PostHash {
		return &HashMismatchError{Seq: cmd.Seq, Recorded: cmd.PostHash, Computed: snap.StateHash}
	}
	return nil
}

// StateAt rebuilds the timeline at any command in the tree by replay,
// without moving the head. Seq 0 is the empty root state.
func (m *Manager) StateAt(ctx context.Context, seq int64) (*timeline.View, error) {
	return m.materialize(ctx, seq)
}

// VerifyReport summarizes a full verification replay.
type VerifyReport struct {
	Steps    int
	Replayed int
	Skipped  int

	// Snapshots counts the stored snapshots on the path that were
	// cross-checked against the replayed state.
	Snapshots int

	// Divergence is the first command whose recomputed state hash
	// differs from the recorded one, nil when the log verifies clean.
	Divergence *HashMismatchError
}

// Clean reports whether the replay matched every recorded hash.
func (r VerifyReport) Clean() bool { return r.Divergence == nil }

// Verify replays the path from the root to the current head with no
// snapshot shortcut, checks every recorded post hash, and cross-checks
// every stored snapshot on the path against the state its command
// replayed to. A divergence is reported, not returned as an error: the
// report names the first command whose replay no longer matches, which
// is the bisection the caller wants.
func (m *Manager) Verify(ctx context.Context) (VerifyReport, error) {
	var rep VerifyReport
	path, err := m.pathTo(ctx, m.head)
	if err != nil {
		return rep, err
	}
	rep.Steps = len(path)

	v, err := m.emptyTimeline(ctx)
	if err != nil {
		return rep, err
	}
	for _, cmd := range path {
		if err := m.replaySteps(v, []store.Command{cmd}); err != nil {
			var he *HashMismatchError
			if errors.As(err, &he) {
				rep.Divergence = he
				return rep, nil
			}
			return rep, err
		}
		if cmd.Replayable {
			rep.Replayed++
		} else {
			rep.Skipped++
		}

		snap, ok, err := m.st.Snapshot(ctx, cmd.Seq)
		if err != nil {
			return rep, err
		}
		if !ok {
			continue
		}
		if err := verifySnapshot(snap, cmd); err != nil {
			var he *HashMismatchError
			if errors.As(err, &he) {
				rep.Divergence = he
				return rep, nil
			}
			return rep, err
		}
		rep.Snapshots++
	}
	return rep, nil
}
