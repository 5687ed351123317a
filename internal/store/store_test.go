package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jve-editor/core/internal/canon"
	"github.com/jve-editor/core/internal/rational"
	"github.com/jve-editor/core/internal/timeline"
)

var rate30 = rational.Rate{Num: 30, Den: 1}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedTimeline(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	if err := s.InitSequence(ctx, DefaultSequenceID, "test", rate30); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertTrack(ctx, timeline.Track{ID: "v1", Kind: timeline.TrackVideo}); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertMedia(ctx, timeline.Media{
		ID:       "m1",
		Path:     "/media/m1.mov",
		Duration: rational.MustNew(10000, 30, 1),
	}); err != nil {
		t.Fatal(err)
	}
}

func storeClip(id string, start, dur int64) timeline.Clip {
	return timeline.Clip{
		ID:        id,
		TrackID:   "v1",
		MediaID:   "m1",
		Start:     rational.MustNew(start, 30, 1),
		Duration:  rational.MustNew(dur, 30, 1),
		SourceIn:  rational.MustNew(0, 30, 1),
		SourceOut: rational.MustNew(dur, 30, 1),
		Enabled:   true,
		Kind:      timeline.ClipTimeline,
	}
}

func TestOpen_AppliesPragmasAndSchema(t *testing.T) {
	s := openTestStore(t)
	if err := s.verifyPragma("journal_mode", "wal"); err != nil {
		t.Error(err)
	}
	if err := s.verifyPragma("foreign_keys", "1"); err != nil {
		t.Error(err)
	}
	if err := s.verifyPragma("user_version", "1"); err != nil {
		t.Error(err)
	}
}

func TestOpen_IsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s1, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	s1.Close()
	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	s2.Close()
}

func TestSequenceRateRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	ntsc := rational.Rate{Num: 30000, Den: 1001}
	if err := s.InitSequence(ctx, "main", "ntsc", ntsc); err != nil {
		t.Fatal(err)
	}
	// Re-init with a different rate is ignored: the rate is fixed at creation.
	if err := s.InitSequence(ctx, "main", "other", rate30); err != nil {
		t.Fatal(err)
	}
	got, err := s.SequenceRate(ctx, "main")
	if err != nil {
		t.Fatal(err)
	}
	if got != ntsc {
		t.Errorf("rate = %d/%d, want 30000/1001", got.Num, got.Den)
	}

	if err := s.InitSequence(ctx, "bad", "", rational.Rate{}); err == nil {
		t.Error("zero rate accepted")
	}
}

func TestSource_RoundTripsTimeline(t *testing.T) {
	s := openTestStore(t)
	seedTimeline(t, s)
	ctx := context.Background()

	c := storeClip("a", 30, 60)
	if err := s.CommitCommand(ctx, Command{Seq: 1, Type: "insert_clip", Replayable: true},
		timeline.Bucket{timeline.Insert{Clip: c}}, rate30, nil); err != nil {
		t.Fatal(err)
	}

	v := timeline.NewView(rate30)
	if err := v.Reload(s.Source(ctx)); err != nil {
		t.Fatal(err)
	}
	got, ok := v.Clip("a")
	if !ok {
		t.Fatal("clip not loaded")
	}
	if got != c {
		t.Errorf("loaded clip = %+v, want %+v", got, c)
	}
	if _, ok := v.Track("v1"); !ok {
		t.Error("track not loaded")
	}
	m, ok := v.Media("m1")
	if !ok || m.Path != "/media/m1.mov" {
		t.Errorf("media = %+v", m)
	}
}

func TestCommitCommand_AtomicBucketAndLogRow(t *testing.T) {
	s := openTestStore(t)
	seedTimeline(t, s)
	ctx := context.Background()

	cmd := Command{
		Seq:        1,
		ParentSeq:  0,
		ID:         "cmd-hash-1",
		Type:       "insert_clip",
		Params:     canon.Object{"clip_id": canon.String("a")},
		PreHash:    "pre",
		PostHash:   "post",
		Playhead:   30,
		Selections: []string{"a"},
		Replayable: true,
	}
	b := timeline.Bucket{timeline.Insert{Clip: storeClip("a", 0, 60)}}
	if err := s.CommitCommand(ctx, cmd, b, rate30, nil); err != nil {
		t.Fatal(err)
	}

	got, ok, err := s.Command(ctx, 1)
	if err != nil || !ok {
		t.Fatalf("command row missing: ok=%v err=%v", ok, err)
	}
	if got.Type != "insert_clip" || got.PostHash != "post" || !got.Replayable {
		t.Errorf("command = %+v", got)
	}
	if len(got.Selections) != 1 || got.Selections[0] != "a" {
		t.Errorf("selections = %v", got.Selections)
	}
	if got.Params["clip_id"] != canon.String("a") {
		t.Errorf("params = %v", got.Params)
	}

	head, err := s.Head(ctx)
	if err != nil || head != 1 {
		t.Errorf("head = %d (%v), want 1", head, err)
	}

	// A failing bucket must leave no trace of the command.
	bad := Command{Seq: 2, ParentSeq: 1, Type: "delete_clip"}
	err = s.CommitCommand(ctx, bad,
		timeline.Bucket{timeline.Delete{ClipID: "missing"}}, rate30, nil)
	if err == nil {
		t.Fatal("delete of missing clip succeeded")
	}
	if _, ok, _ := s.Command(ctx, 2); ok {
		t.Error("failed commit left a command row")
	}
	if head, _ := s.Head(ctx); head != 1 {
		t.Errorf("failed commit moved head to %d", head)
	}
}

func TestAppendCommand_IdempotentOnSeq(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	cmd := Command{Seq: 1, Type: "insert_clip", Params: canon.Object{}}
	if err := s.AppendCommand(ctx, cmd); err != nil {
		t.Fatal(err)
	}
	dup := cmd
	dup.Type = "other"
	if err := s.AppendCommand(ctx, dup); err != nil {
		t.Fatalf("duplicate append errored: %v", err)
	}
	got, _, err := s.Command(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got.Type != "insert_clip" {
		t.Errorf("duplicate append overwrote the row: type = %s", got.Type)
	}
}

func TestChildrenAndMaxSeq(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, c := range []Command{
		{Seq: 1, ParentSeq: 0, Type: "a", Params: canon.Object{}},
		{Seq: 2, ParentSeq: 1, Type: "b", Params: canon.Object{}},
		{Seq: 3, ParentSeq: 1, Type: "c", Params: canon.Object{}},
	} {
		if err := s.AppendCommand(ctx, c); err != nil {
			t.Fatal(err)
		}
	}

	kids, err := s.Children(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(kids) != 2 || kids[0].Seq != 2 || kids[1].Seq != 3 {
		t.Errorf("children = %+v", kids)
	}
	max, err := s.MaxSeq(ctx)
	if err != nil || max != 3 {
		t.Errorf("max seq = %d (%v), want 3", max, err)
	}
}

func TestBulkShift_MatchesViewSemantics(t *testing.T) {
	s := openTestStore(t)
	seedTimeline(t, s)
	ctx := context.Background()

	clips := []timeline.Clip{
		storeClip("a", 0, 60),
		storeClip("b", 90, 60),
		storeClip("c", 180, 60),
	}
	var b timeline.Bucket
	for _, c := range clips {
		b = append(b, timeline.Insert{Clip: c})
	}
	b = append(b, timeline.BulkShift{TrackID: "v1", FirstClipID: "b", ShiftFrames: -30})
	if err := s.CommitCommand(ctx, Command{Seq: 1, Type: "x"}, b, rate30, nil); err != nil {
		t.Fatal(err)
	}

	// The view applying the same bucket must land on identical state.
	v := timeline.NewView(rate30)
	v.AddTrack(timeline.Track{ID: "v1", Kind: timeline.TrackVideo})
	v.AddMedia(timeline.Media{ID: "m1", Duration: rational.MustNew(10000, 30, 1)})
	if err := v.Apply(b); err != nil {
		t.Fatal(err)
	}

	loaded := timeline.NewView(rate30)
	if err := loaded.Reload(s.Source(ctx)); err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"a", "b", "c"} {
		want, _ := v.Clip(id)
		got, _ := loaded.Clip(id)
		if got != want {
			t.Errorf("clip %s: store %+v, view %+v", id, got, want)
		}
	}
	if got, _ := loaded.Clip("b"); got.Start.Frames != 60 {
		t.Errorf("b start = %d, want 60", got.Start.Frames)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if err := s.AppendCommand(ctx, Command{Seq: 5, Type: "x", Params: canon.Object{}}); err != nil {
		t.Fatal(err)
	}

	snap := Snapshot{Seq: 5, StateHash: "abc", State: []byte(`{"clips":[]}`)}
	if err := s.WriteSnapshot(ctx, snap); err != nil {
		t.Fatal(err)
	}
	got, ok, err := s.Snapshot(ctx, 5)
	if err != nil || !ok {
		t.Fatalf("snapshot missing: ok=%v err=%v", ok, err)
	}
	if got.StateHash != "abc" || string(got.State) != `{"clips":[]}` {
		t.Errorf("snapshot = %+v", got)
	}
	if _, ok, _ := s.Snapshot(ctx, 6); ok {
		t.Error("phantom snapshot")
	}
}

func TestHydrateRates_BackfillsZeroRateRows(t *testing.T) {
	s := openTestStore(t)
	seedTimeline(t, s)
	ctx := context.Background()

	// Simulate rows written by an older tool with no rate columns.
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO clips
		(id, track_id, media_id, start_frames, duration_frames,
		 source_in_frames, source_out_frames, fps_numerator, fps_denominator)
		VALUES ('legacy', 'v1', 'm1', 0, 60, 0, 60, 0, 0)
	`); err != nil {
		t.Fatal(err)
	}

	counts, err := s.HydrateRates(ctx, rate30)
	if err != nil {
		t.Fatal(err)
	}
	if counts.Clips != 1 {
		t.Errorf("hydrated %d clips, want 1", counts.Clips)
	}

	v := timeline.NewView(rate30)
	if err := v.Reload(s.Source(ctx)); err != nil {
		t.Fatal(err)
	}
	c, _ := v.Clip("legacy")
	if c.Start.RateNum != 30 || c.Start.RateDen != 1 {
		t.Errorf("legacy clip rate = %d/%d, want 30/1", c.Start.RateNum, c.Start.RateDen)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("hydrated clip invalid: %v", err)
	}

	// Second run touches nothing.
	counts, err = s.HydrateRates(ctx, rate30)
	if err != nil || counts.Clips != 0 || counts.Media != 0 {
		t.Errorf("second hydrate = %+v (%v), want zero counts", counts, err)
	}
}

func TestPlayheadRoundTrip(t *testing.T) {
	s := openTestStore(t)
	seedTimeline(t, s)
	ctx := context.Background()

	if err := s.SetPlayhead(ctx, DefaultSequenceID, 450); err != nil {
		t.Fatal(err)
	}
	got, err := s.Playhead(ctx, DefaultSequenceID)
	if err != nil || got != 450 {
		t.Errorf("playhead = %d (%v), want 450", got, err)
	}
}

func TestResetClips(t *testing.T) {
	s := openTestStore(t)
	seedTimeline(t, s)
	ctx := context.Background()

	b := timeline.Bucket{timeline.Insert{Clip: storeClip("a", 0, 60)}}
	if err := s.CommitCommand(ctx, Command{Seq: 1, Type: "x"}, b, rate30, nil); err != nil {
		t.Fatal(err)
	}
	if err := s.ResetClips(ctx); err != nil {
		t.Fatal(err)
	}
	clips, err := s.Source(ctx).LoadClips()
	if err != nil {
		t.Fatal(err)
	}
	if len(clips) != 0 {
		t.Errorf("%d clips after reset", len(clips))
	}
}
