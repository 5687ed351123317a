// Package cmdlog is the command log engine: every edit enters as a
// typed command, validates against the embedded schema, plans its
// mutation bucket against the current view, and commits bucket, log row
// and head move in one transaction. The log is a tree; undo moves the
// head to the parent, redo to the most recent child, and any node can
// be checked out by deterministic replay from the root. Each row
// records the state hash before and after execution, so replay verifies
// itself step by step.
package cmdlog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jve-editor/core/internal/canon"
	"github.com/jve-editor/core/internal/cmdspec"
	"github.com/jve-editor/core/internal/rational"
	"github.com/jve-editor/core/internal/store"
	"github.com/jve-editor/core/internal/timeline"
)

// DefaultSnapshotInterval is how often a full state snapshot rides along
// with the commit, counted in sequence numbers.
const DefaultSnapshotInterval = 10

// Manager owns the head of the command tree and the materialized view
// behind it. It is single-writer and not safe for concurrent use.
type Manager struct {
	st   *store.Store
	log  *slog.Logger
	rate rational.Rate

	view       *timeline.View
	head       int64
	playhead   int64
	selections []string

	snapshotEvery int64
	executing     bool
}

// Option adjusts a Manager at open time.
type Option func(*Manager)

// WithLogger replaces the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// WithSnapshotInterval sets how often full state snapshots are written.
// Zero disables snapshots; replay then always starts at the root.
func WithSnapshotInterval(n int64) Option {
	return func(m *Manager) { m.snapshotEvery = n }
}

// Open loads the sequence, the persisted head and its context, and
// materializes the view from the clips table.
func Open(ctx context.Context, st *store.Store, opts ...Option) (*Manager, error) {
	rate, err := st.SequenceRate(ctx, store.DefaultSequenceID)
	if err != nil {
		return nil, err
	}
	m := &Manager{
		st:            st,
		log:           slog.Default(),
		rate:          rate,
		snapshotEvery: DefaultSnapshotInterval,
	}
	for _, o := range opts {
		o(m)
	}

	m.view = timeline.NewView(rate)
	if err := m.view.Reload(st.Source(ctx)); err != nil {
		return nil, err
	}
	if m.head, err = st.Head(ctx); err != nil {
		return nil, err
	}
	if m.playhead, m.selections, err = m.contextAt(ctx, m.head, m.view); err != nil {
		return nil, err
	}
	return m, nil
}

// View returns the live view at the head. Callers must treat it as
// read-only; edits go through Execute.
func (m *Manager) View() *timeline.View { return m.view }

// Head returns the sequence number the working state corresponds to.
func (m *Manager) Head() int64 { return m.head }

// Rate returns the sequence frame rate.
func (m *Manager) Rate() rational.Rate { return m.rate }

// Playhead returns the current playhead position in sequence frames.
func (m *Manager) Playhead() int64 { return m.playhead }

// Selections returns a copy of the current clip selection.
func (m *Manager) Selections() []string {
	out := make([]string, len(m.selections))
	copy(out, m.selections)
	return out
}

// Execute validates, plans and commits one command as a child of the
// current head. On success the returned row is already durable and the
// view reflects it.
func (m *Manager) Execute(ctx context.Context, cmdType string, params canon.Object) (store.Command, error) {
	if m.executing {
		return store.Command{}, logErrf(CodeReentrantExecute, 0,
			"command %s issued while another command is executing", cmdType)
	}
	m.executing = true
	defer func() { m.executing = false }()

	if err := cmdspec.Validate(cmdType, params); err != nil {
		return store.Command{}, err
	}
	h, ok := handlers[cmdType]
	if !ok {
		return store.Command{}, cmdspec.UnknownCommandError{Type: cmdType}
	}

	maxSeq, err := m.st.MaxSeq(ctx)
	if err != nil {
		return store.Command{}, err
	}
	seq := maxSeq + 1

	preHash, err := canon.StateHash(m.view)
	if err != nil {
		return store.Command{}, err
	}

	var bucket timeline.Bucket
	if h.plan != nil {
		bucket, err = h.plan(execContext{view: m.view, rate: m.rate, seq: seq}, params)
		if err != nil {
			return store.Command{}, err
		}
	}

	next := m.view
	if len(bucket) > 0 {
		next = m.view.Clone()
		if err := next.Apply(bucket); err != nil {
			return store.Command{}, fmt.Errorf("%s: %w", cmdType, err)
		}
		if err := next.CheckNonOverlap(); err != nil {
			return store.Command{}, timeline.Preconditionf("cmdlog."+cmdType, "overlap", "%v", err)
		}
	}
	postHash, err := canon.StateHash(next)
	if err != nil {
		return store.Command{}, err
	}

	playhead, selections, err := m.contextAfter(cmdType, params, next)
	if err != nil {
		return store.Command{}, err
	}

	id, err := canon.CommandHash(seq, m.head, cmdType, params)
	if err != nil {
		return store.Command{}, err
	}
	cmd := store.Command{
		Seq:        seq,
		ParentSeq:  m.head,
		ID:         id,
		Type:       cmdType,
		Params:     params,
		PreHash:    preHash,
		PostHash:   postHash,
		Playhead:   playhead,
		Selections: selections,
		Replayable: h.replayable,
	}

	var snap *store.Snapshot
	if m.snapshotEvery > 0 && seq%m.snapshotEvery == 0 {
		state, err := encodeState(next)
		if err != nil {
			return store.Command{}, err
		}
		snap = &store.Snapshot{Seq: seq, StateHash: postHash, State: state}
	}

	if err := m.st.CommitCommand(ctx, cmd, bucket, m.rate, snap); err != nil {
		return store.Command{}, err
	}
	if playhead != m.playhead {
		if err := m.st.SetPlayhead(ctx, store.DefaultSequenceID, playhead); err != nil {
			return store.Command{}, err
		}
	}

	m.view = next
	m.head = seq
	m.playhead = playhead
	m.selections = selections
	m.log.Info("command committed",
		"seq", seq, "type", cmdType, "mutations", len(bucket), "replayable", h.replayable)
	return cmd, nil
}

// contextAfter computes the playhead and selection the new command row
// captures. Context commands replace it; everything else carries the
// current context forward. Selected clips the command removed are
// silently dropped.
func (m *Manager) contextAfter(cmdType string, params canon.Object, next *timeline.View) (int64, []string, error) {
	playhead := m.playhead
	selections := m.selections
	switch cmdType {
	case CmdSetPlayhead:
		frames, err := getInt(params, "frames")
		if err != nil {
			return 0, nil, err
		}
		playhead = frames
	case CmdSetSelection:
		ids, err := getStrings(params, "clip_ids")
		if err != nil {
			return 0, nil, err
		}
		selections = ids
	}
	var live []string
	for _, id := range selections {
		if _, ok := next.Clip(id); ok {
			live = append(live, id)
		}
	}
	return playhead, live, nil
}

// Undo moves the head to the parent of the current command and returns
// the new head.
func (m *Manager) Undo(ctx context.Context) (int64, error) {
	if m.head == 0 {
		return 0, logErrf(CodeNothingToUndo, 0, "already at the root")
	}
	cmd, ok, err := m.st.Command(ctx, m.head)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, logErrf(CodeNoSuchCommand, m.head, "head command missing from log")
	}
	if err := m.Checkout(ctx, cmd.ParentSeq); err != nil {
		return 0, err
	}
	return m.head, nil
}

// Redo moves the head to its most recent child: after undoing into a
// branch point, redo follows the newest branch.
func (m *Manager) Redo(ctx context.Context) (int64, error) {
	children, err := m.st.Children(ctx, m.head)
	if err != nil {
		return 0, err
	}
	if len(children) == 0 {
		return 0, logErrf(CodeNothingToRedo, m.head, "no command to redo")
	}
	if err := m.Checkout(ctx, children[len(children)-1].Seq); err != nil {
		return 0, err
	}
	return m.head, nil
}

// Checkout moves the head to an arbitrary command, rebuilding its state
// by deterministic replay and persisting the result atomically. Seq 0
// checks out the empty root timeline.
func (m *Manager) Checkout(ctx context.Context, seq int64) error {
	if m.executing {
		return logErrf(CodeReentrantExecute, seq, "checkout during command execution")
	}
	m.executing = true
	defer func() { m.executing = false }()

	v, err := m.materialize(ctx, seq)
	if err != nil {
		return err
	}
	playhead, selections, err := m.contextAt(ctx, seq, v)
	if err != nil {
		return err
	}

	if err := m.st.Checkout(ctx, v.AllClips(), seq); err != nil {
		return err
	}
	if err := m.st.SetPlayhead(ctx, store.DefaultSequenceID, playhead); err != nil {
		return err
	}

	m.view = v
	m.head = seq
	m.playhead = playhead
	m.selections = selections
	m.log.Info("checkout", "seq", seq, "playhead", playhead)
	return nil
}

// contextAt restores the playhead and selection recorded at a command,
// silently dropping selected clips that no longer resolve in the
// checked-out state.
func (m *Manager) contextAt(ctx context.Context, seq int64, v *timeline.View) (int64, []string, error) {
	if seq == 0 {
		return 0, nil, nil
	}
	cmd, ok, err := m.st.Command(ctx, seq)
	if err != nil {
		return 0, nil, err
	}
	if !ok {
		return 0, nil, logErrf(CodeNoSuchCommand, seq, "command not in log")
	}
	var live []string
	for _, id := range cmd.Selections {
		if _, ok := v.Clip(id); ok {
			live = append(live, id)
		}
	}
	return cmd.Playhead, live, nil
}
