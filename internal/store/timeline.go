package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jve-editor/core/internal/rational"
	"github.com/jve-editor/core/internal/timeline"
)

// DefaultSequenceID is the id of the single sequence a project database
// carries today.
const DefaultSequenceID = "main"

// InitSequence creates the sequence row if it does not exist. The rate is
// fixed at creation; re-running against an existing row is a no-op.
func (s *Store) InitSequence(ctx context.Context, id, name string, rate rational.Rate) error {
	if !rate.Valid() {
		return fmt.Errorf("init sequence: invalid rate %d/%d", rate.Num, rate.Den)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sequences (id, name, fps_numerator, fps_denominator)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, id, name, rate.Num, rate.Den)
	if err != nil {
		return fmt.Errorf("init sequence: %w", err)
	}
	return nil
}

// SequenceRate reads the sequence's frame rate.
func (s *Store) SequenceRate(ctx context.Context, id string) (rational.Rate, error) {
	var r rational.Rate
	err := s.db.QueryRowContext(ctx, `
		SELECT fps_numerator, fps_denominator FROM sequences WHERE id = ?
	`, id).Scan(&r.Num, &r.Den)
	if err == sql.ErrNoRows {
		return rational.Rate{}, fmt.Errorf("sequence %s not found", id)
	}
	if err != nil {
		return rational.Rate{}, fmt.Errorf("sequence rate: %w", err)
	}
	return r, nil
}

// SetPlayhead persists the playhead position, in frames at the sequence rate.
func (s *Store) SetPlayhead(ctx context.Context, id string, frames int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE sequences SET playhead_frames = ? WHERE id = ?
	`, frames, id)
	if err != nil {
		return fmt.Errorf("set playhead: %w", err)
	}
	return nil
}

// Playhead reads the persisted playhead position.
func (s *Store) Playhead(ctx context.Context, id string) (int64, error) {
	var frames int64
	err := s.db.QueryRowContext(ctx, `
		SELECT playhead_frames FROM sequences WHERE id = ?
	`, id).Scan(&frames)
	if err != nil {
		return 0, fmt.Errorf("playhead: %w", err)
	}
	return frames, nil
}

// UpsertTrack inserts or replaces a track row.
func (s *Store) UpsertTrack(ctx context.Context, t timeline.Track) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO tracks (id, kind, lane_order) VALUES (?, ?, ?)
	`, t.ID, string(t.Kind), t.Order)
	if err != nil {
		return fmt.Errorf("upsert track: %w", err)
	}
	return nil
}

// UpsertMedia inserts or replaces a media row.
func (s *Store) UpsertMedia(ctx context.Context, m timeline.Media) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO media
		(id, path, duration_frames, fps_numerator, fps_denominator)
		VALUES (?, ?, ?, ?, ?)
	`, m.ID, m.Path, m.Duration.Frames, m.Duration.RateNum, m.Duration.RateDen)
	if err != nil {
		return fmt.Errorf("upsert media: %w", err)
	}
	return nil
}

// Source binds a context to the store's read methods so the store can
// serve as a timeline.Source for view reloads.
func (s *Store) Source(ctx context.Context) timeline.Source {
	return storeSource{s: s, ctx: ctx}
}

type storeSource struct {
	s   *Store
	ctx context.Context
}

func (src storeSource) LoadTracks() ([]timeline.Track, error) {
	rows, err := src.s.db.QueryContext(src.ctx, `
		SELECT id, kind, lane_order FROM tracks ORDER BY lane_order, id
	`)
	if err != nil {
		return nil, fmt.Errorf("load tracks: %w", err)
	}
	defer rows.Close()

	var out []timeline.Track
	for rows.Next() {
		var t timeline.Track
		var kind string
		if err := rows.Scan(&t.ID, &kind, &t.Order); err != nil {
			return nil, fmt.Errorf("load tracks: %w", err)
		}
		t.Kind = timeline.TrackKind(kind)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (src storeSource) LoadMedia() ([]timeline.Media, error) {
	rows, err := src.s.db.QueryContext(src.ctx, `
		SELECT id, path, duration_frames, fps_numerator, fps_denominator
		FROM media ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("load media: %w", err)
	}
	defer rows.Close()

	var out []timeline.Media
	for rows.Next() {
		var m timeline.Media
		var frames, num, den int64
		if err := rows.Scan(&m.ID, &m.Path, &frames, &num, &den); err != nil {
			return nil, fmt.Errorf("load media: %w", err)
		}
		m.Duration = rational.Time{Frames: frames, RateNum: num, RateDen: den}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (src storeSource) LoadClips() ([]timeline.Clip, error) {
	rows, err := src.s.db.QueryContext(src.ctx, `
		SELECT id, track_id, media_id, start_frames, duration_frames,
		       source_in_frames, source_out_frames,
		       fps_numerator, fps_denominator, enabled, kind
		FROM clips ORDER BY track_id, start_frames, id
	`)
	if err != nil {
		return nil, fmt.Errorf("load clips: %w", err)
	}
	defer rows.Close()

	var out []timeline.Clip
	for rows.Next() {
		c, err := scanClip(rows)
		if err != nil {
			return nil, fmt.Errorf("load clips: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanClip(rows *sql.Rows) (timeline.Clip, error) {
	var c timeline.Clip
	var start, dur, srcIn, srcOut, num, den int64
	var enabled int
	var kind string
	err := rows.Scan(&c.ID, &c.TrackID, &c.MediaID, &start, &dur,
		&srcIn, &srcOut, &num, &den, &enabled, &kind)
	if err != nil {
		return timeline.Clip{}, err
	}
	at := func(frames int64) rational.Time {
		return rational.Time{Frames: frames, RateNum: num, RateDen: den}
	}
	c.Start = at(start)
	c.Duration = at(dur)
	c.SourceIn = at(srcIn)
	c.SourceOut = at(srcOut)
	c.Enabled = enabled != 0
	c.Kind = timeline.ClipKind(kind)
	return c, nil
}

// applyBucket runs a mutation bucket against the clips table inside an
// open transaction, mirroring the view's apply semantics exactly.
func applyBucket(ctx context.Context, tx *sql.Tx, b timeline.Bucket, rate rational.Rate) error {
	for i, m := range b {
		var err error
		switch m := m.(type) {
		case timeline.Insert:
			err = insertClip(ctx, tx, m.Clip)
		case timeline.Update:
			err = updateClip(ctx, tx, m)
		case timeline.Delete:
			err = deleteClip(ctx, tx, m.ClipID)
		case timeline.BulkShift:
			err = bulkShiftClips(ctx, tx, m, rate)
		default:
			err = fmt.Errorf("unknown mutation type %T", m)
		}
		if err != nil {
			return fmt.Errorf("bucket[%d]: %w", i, err)
		}
	}
	return nil
}

func insertClip(ctx context.Context, tx *sql.Tx, c timeline.Clip) error {
	if err := c.Validate(); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO clips
		(id, track_id, media_id, start_frames, duration_frames,
		 source_in_frames, source_out_frames, fps_numerator, fps_denominator,
		 enabled, kind)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.TrackID, c.MediaID, c.Start.Frames, c.Duration.Frames,
		c.SourceIn.Frames, c.SourceOut.Frames, c.Start.RateNum, c.Start.RateDen,
		boolInt(c.Enabled), string(c.Kind))
	if err != nil {
		return fmt.Errorf("insert clip %s: %w", c.ID, err)
	}
	return nil
}

func updateClip(ctx context.Context, tx *sql.Tx, u timeline.Update) error {
	var set []string
	var args []any
	add := func(col string, v any) {
		set = append(set, col+" = ?")
		args = append(args, v)
	}
	if u.TrackID != nil {
		add("track_id", *u.TrackID)
	}
	if u.Start != nil {
		add("start_frames", u.Start.Frames)
	}
	if u.Duration != nil {
		add("duration_frames", u.Duration.Frames)
	}
	if u.SourceIn != nil {
		add("source_in_frames", u.SourceIn.Frames)
	}
	if u.SourceOut != nil {
		add("source_out_frames", u.SourceOut.Frames)
	}
	if u.Enabled != nil {
		add("enabled", boolInt(*u.Enabled))
	}
	if len(set) == 0 {
		return nil
	}
	args = append(args, u.ClipID)
	res, err := tx.ExecContext(ctx,
		"UPDATE clips SET "+strings.Join(set, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("update clip %s: %w", u.ClipID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("update clip %s: no such row", u.ClipID)
	}
	return nil
}

func deleteClip(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, "DELETE FROM clips WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete clip %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("delete clip %s: no such row", id)
	}
	return nil
}

// bulkShiftClips moves each named clip by the shift, converting from the
// sequence rate to each clip's own rate. Rows have no ordering constraint
// so unlike the in-memory view the application order is irrelevant.
func bulkShiftClips(ctx context.Context, tx *sql.Tx, m timeline.BulkShift, rate rational.Rate) error {
	shift, err := rational.New(m.ShiftFrames, rate.Num, rate.Den)
	if err != nil {
		return err
	}

	ids := m.ClipIDs
	if len(ids) == 0 && m.FirstClipID != "" {
		ids, err = runFromClip(ctx, tx, m.TrackID, m.FirstClipID, rate)
		if err != nil {
			return err
		}
	}
	if len(ids) == 0 {
		return fmt.Errorf("bulk shift on track %s names no clips", m.TrackID)
	}

	for _, id := range ids {
		var start, num, den int64
		err := tx.QueryRowContext(ctx, `
			SELECT start_frames, fps_numerator, fps_denominator FROM clips WHERE id = ?
		`, id).Scan(&start, &num, &den)
		if err == sql.ErrNoRows {
			return fmt.Errorf("bulk shift: unknown clip %s", id)
		}
		if err != nil {
			return fmt.Errorf("bulk shift: %w", err)
		}
		newStart := rational.Time{Frames: start, RateNum: num, RateDen: den}.Add(shift)
		if _, err := tx.ExecContext(ctx,
			"UPDATE clips SET start_frames = ? WHERE id = ?", newStart.Frames, id); err != nil {
			return fmt.Errorf("bulk shift: %w", err)
		}
	}
	return nil
}

// runFromClip resolves a FirstClipID bulk shift to the explicit set of
// clips on the track at or after the first clip's start.
func runFromClip(ctx context.Context, tx *sql.Tx, trackID, firstID string, rate rational.Rate) ([]string, error) {
	var firstStart, fNum, fDen int64
	err := tx.QueryRowContext(ctx, `
		SELECT start_frames, fps_numerator, fps_denominator FROM clips WHERE id = ?
	`, firstID).Scan(&firstStart, &fNum, &fDen)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("unknown first clip %s", firstID)
	}
	if err != nil {
		return nil, err
	}
	threshold := rational.Time{Frames: firstStart, RateNum: fNum, RateDen: fDen}

	rows, err := tx.QueryContext(ctx, `
		SELECT id, start_frames, fps_numerator, fps_denominator
		FROM clips WHERE track_id = ? ORDER BY start_frames, id
	`, trackID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		var start, num, den int64
		if err := rows.Scan(&id, &start, &num, &den); err != nil {
			return nil, err
		}
		at := rational.Time{Frames: start, RateNum: num, RateDen: den}
		if at.Compare(threshold) >= 0 {
			ids = append(ids, id)
		}
	}
	return ids, rows.Err()
}

// HydrateCounts reports how many rows a rate backfill touched.
type HydrateCounts struct {
	Clips int64
	Media int64
}

// HydrateRates backfills missing rate columns with the sequence rate.
// Rows written by older tools carry zero fps columns; hydration makes
// them explicit so every later read is fail-closed on a real rate.
func (s *Store) HydrateRates(ctx context.Context, rate rational.Rate) (HydrateCounts, error) {
	var counts HydrateCounts
	if !rate.Valid() {
		return counts, fmt.Errorf("hydrate rates: invalid rate %d/%d", rate.Num, rate.Den)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE clips SET fps_numerator = ?, fps_denominator = ?
		WHERE fps_numerator <= 0 OR fps_denominator <= 0
	`, rate.Num, rate.Den)
	if err != nil {
		return counts, fmt.Errorf("hydrate clips: %w", err)
	}
	if counts.Clips, err = res.RowsAffected(); err != nil {
		return counts, err
	}

	res, err = s.db.ExecContext(ctx, `
		UPDATE media SET fps_numerator = ?, fps_denominator = ?
		WHERE fps_numerator <= 0 OR fps_denominator <= 0
	`, rate.Num, rate.Den)
	if err != nil {
		return counts, fmt.Errorf("hydrate media: %w", err)
	}
	if counts.Media, err = res.RowsAffected(); err != nil {
		return counts, err
	}
	return counts, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
