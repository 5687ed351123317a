package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jve-editor/core/internal/canon"
	"github.com/jve-editor/core/internal/rational"
	"github.com/jve-editor/core/internal/timeline"
)

// Command is one row of the command log tree.
type Command struct {
	Seq       int64
	ParentSeq int64

	// ID is the content-addressed command hash.
	ID string

	Type   string
	Params canon.Object

	// PreHash and PostHash are the state hashes immediately before and
	// after execution; replay verifies against them.
	PreHash  string
	PostHash string

	// Playhead and Selections capture UI context at execution time. They
	// replay as context, never as effect.
	Playhead   int64
	Selections []string

	// Replayable is false for commands whose effect lives outside the
	// mutation model; replay skips them.
	Replayable bool
}

// Snapshot is a serialized full state keyed by the command that produced it.
type Snapshot struct {
	Seq       int64
	StateHash string
	State     []byte
}

// AppendCommand inserts a command row. Conflicts on sequence number are
// silently skipped so recovery replay can re-append safely.
func (s *Store) AppendCommand(ctx context.Context, cmd Command) error {
	return appendCommandTx(ctx, s.db, cmd)
}

type sqlExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func appendCommandTx(ctx context.Context, ex sqlExecer, cmd Command) error {
	params, err := json.Marshal(cmd.Params)
	if err != nil {
		return fmt.Errorf("append command: marshal params: %w", err)
	}
	selections, err := json.Marshal(selectionsOrEmpty(cmd.Selections))
	if err != nil {
		return fmt.Errorf("append command: marshal selections: %w", err)
	}

	_, err = ex.ExecContext(ctx, `
		INSERT INTO commands
		(sequence_number, parent_sequence_number, command_id, command_type,
		 params, pre_hash, post_hash, playhead_frames, selections, replayable)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(sequence_number) DO NOTHING
	`, cmd.Seq, cmd.ParentSeq, cmd.ID, cmd.Type, string(params),
		cmd.PreHash, cmd.PostHash, cmd.Playhead, string(selections),
		boolInt(cmd.Replayable))
	if err != nil {
		return fmt.Errorf("append command: %w", err)
	}
	return nil
}

func selectionsOrEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

const commandColumns = `sequence_number, parent_sequence_number, command_id,
	command_type, params, pre_hash, post_hash, playhead_frames, selections,
	replayable`

// Command loads one command row by sequence number.
func (s *Store) Command(ctx context.Context, seq int64) (Command, bool, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+commandColumns+" FROM commands WHERE sequence_number = ?", seq)
	cmd, err := scanCommand(row)
	if err == sql.ErrNoRows {
		return Command{}, false, nil
	}
	if err != nil {
		return Command{}, false, fmt.Errorf("load command %d: %w", seq, err)
	}
	return cmd, true, nil
}

// Children loads the commands whose parent is the given sequence number,
// ordered by sequence number.
func (s *Store) Children(ctx context.Context, parentSeq int64) ([]Command, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+commandColumns+` FROM commands
		 WHERE parent_sequence_number = ? ORDER BY sequence_number`, parentSeq)
	if err != nil {
		return nil, fmt.Errorf("load children of %d: %w", parentSeq, err)
	}
	defer rows.Close()

	var out []Command
	for rows.Next() {
		cmd, err := scanCommand(rows)
		if err != nil {
			return nil, fmt.Errorf("load children of %d: %w", parentSeq, err)
		}
		out = append(out, cmd)
	}
	return out, rows.Err()
}

// AllCommands loads the full log ordered by sequence number.
func (s *Store) AllCommands(ctx context.Context) ([]Command, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+commandColumns+" FROM commands ORDER BY sequence_number")
	if err != nil {
		return nil, fmt.Errorf("load commands: %w", err)
	}
	defer rows.Close()

	var out []Command
	for rows.Next() {
		cmd, err := scanCommand(rows)
		if err != nil {
			return nil, fmt.Errorf("load commands: %w", err)
		}
		out = append(out, cmd)
	}
	return out, rows.Err()
}

// MaxSeq returns the highest sequence number in the log, 0 when empty.
func (s *Store) MaxSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		"SELECT MAX(sequence_number) FROM commands").Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("max seq: %w", err)
	}
	return seq.Int64, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCommand(row rowScanner) (Command, error) {
	var cmd Command
	var params, selections string
	var replayable int
	err := row.Scan(&cmd.Seq, &cmd.ParentSeq, &cmd.ID, &cmd.Type, &params,
		&cmd.PreHash, &cmd.PostHash, &cmd.Playhead, &selections, &replayable)
	if err != nil {
		return Command{}, err
	}
	if err := json.Unmarshal([]byte(params), &cmd.Params); err != nil {
		return Command{}, fmt.Errorf("decode params: %w", err)
	}
	if err := json.Unmarshal([]byte(selections), &cmd.Selections); err != nil {
		return Command{}, fmt.Errorf("decode selections: %w", err)
	}
	cmd.Replayable = replayable != 0
	return cmd, nil
}

// Head returns the current position in the command tree: the sequence
// number the working state corresponds to, 0 for the root.
func (s *Store) Head(ctx context.Context) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx,
		"SELECT sequence_number FROM head WHERE id = 1").Scan(&seq)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("head: %w", err)
	}
	return seq, nil
}

// SetHead moves the current position.
func (s *Store) SetHead(ctx context.Context, seq int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO head (id, sequence_number) VALUES (1, ?)
	`, seq)
	if err != nil {
		return fmt.Errorf("set head: %w", err)
	}
	return nil
}

// WriteSnapshot stores a serialized state keyed by sequence number.
func (s *Store) WriteSnapshot(ctx context.Context, snap Snapshot) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO snapshots (sequence_number, state_hash, state)
		VALUES (?, ?, ?)
	`, snap.Seq, snap.StateHash, string(snap.State))
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// Snapshot loads the snapshot for a sequence number, if one exists.
func (s *Store) Snapshot(ctx context.Context, seq int64) (Snapshot, bool, error) {
	var snap Snapshot
	var state string
	err := s.db.QueryRowContext(ctx, `
		SELECT sequence_number, state_hash, state FROM snapshots
		WHERE sequence_number = ?
	`, seq).Scan(&snap.Seq, &snap.StateHash, &state)
	if err == sql.ErrNoRows {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("load snapshot %d: %w", seq, err)
	}
	snap.State = []byte(state)
	return snap, true, nil
}

// CommitCommand atomically applies the command's mutation bucket, appends
// its log row, moves the head, and optionally stores a snapshot. Either
// everything lands or nothing does; a crash can never leave the clips
// table ahead of the log.
func (s *Store) CommitCommand(
	ctx context.Context,
	cmd Command,
	b timeline.Bucket,
	rate rational.Rate,
	snap *Snapshot,
) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("commit command: begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := applyBucket(ctx, tx, b, rate); err != nil {
		return fmt.Errorf("commit command %d: %w", cmd.Seq, err)
	}
	if err := appendCommandTx(ctx, tx, cmd); err != nil {
		return fmt.Errorf("commit command %d: %w", cmd.Seq, err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO head (id, sequence_number) VALUES (1, ?)
	`, cmd.Seq); err != nil {
		return fmt.Errorf("commit command %d: set head: %w", cmd.Seq, err)
	}
	if snap != nil {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO snapshots (sequence_number, state_hash, state)
			VALUES (?, ?, ?)
		`, snap.Seq, snap.StateHash, string(snap.State)); err != nil {
			return fmt.Errorf("commit command %d: snapshot: %w", cmd.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit command %d: %w", cmd.Seq, err)
	}
	return nil
}

// Checkout replaces the clips table with the given state and moves the
// head in one transaction. Undo and redo land here after replay has
// materialized the target state in memory.
func (s *Store) Checkout(ctx context.Context, clips []timeline.Clip, head int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("checkout %d: begin tx: %w", head, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM clips"); err != nil {
		return fmt.Errorf("checkout %d: clear clips: %w", head, err)
	}
	for _, c := range clips {
		if err := insertClip(ctx, tx, c); err != nil {
			return fmt.Errorf("checkout %d: %w", head, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO head (id, sequence_number) VALUES (1, ?)
	`, head); err != nil {
		return fmt.Errorf("checkout %d: set head: %w", head, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("checkout %d: %w", head, err)
	}
	return nil
}

// ResetClips clears the clips table. Replay rebuilds state from the root;
// this is its starting point.
func (s *Store) ResetClips(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM clips"); err != nil {
		return fmt.Errorf("reset clips: %w", err)
	}
	return nil
}
