// Package timeline defines the timeline data model: tracks, clips, gaps,
// edges, the mutation shapes commands emit, and the materialized view that
// mirrors the backing store. All times are exact rational frame counts;
// nothing in this package touches floating point.
package timeline

import (
	"fmt"

	"github.com/jve-editor/core/internal/rational"
)

// TrackKind distinguishes video from audio tracks. Clips can only move
// between tracks of the same kind.
type TrackKind string

const (
	TrackVideo TrackKind = "video"
	TrackAudio TrackKind = "audio"
)

// Track is a horizontal lane owned by a sequence.
type Track struct {
	ID    string
	Kind  TrackKind
	Order int
}

// ClipKind separates timeline clips from master (source browser) clips.
type ClipKind string

const (
	ClipTimeline ClipKind = "timeline"
	ClipMaster   ClipKind = "master"
)

// Media describes a source asset referenced by clips. Duration bounds the
// revealable source range [0, Duration).
type Media struct {
	ID       string
	Duration rational.Time
	Path     string
}

// Clip is a placed region of media on a track.
//
// Invariants: Duration.Frames > 0; SourceOut - SourceIn equals Duration at
// the clip's own rate; no two enabled clips on a video track overlap in
// [Start, Start+Duration).
type Clip struct {
	ID        string
	TrackID   string
	MediaID   string
	Start     rational.Time
	Duration  rational.Time
	SourceIn  rational.Time
	SourceOut rational.Time
	Enabled   bool
	Kind      ClipKind
}

// End returns the exclusive end of the clip on the timeline.
func (c Clip) End() rational.Time {
	return c.Start.Add(c.Duration)
}

// Rate returns the clip's frame rate, taken from its duration.
func (c Clip) Rate() rational.Rate {
	return c.Duration.Rate()
}

// Validate checks the clip's construction invariants. A missing or
// non-positive rate on any time field is a hard failure, never defaulted.
func (c Clip) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("clip: missing id")
	}
	if c.TrackID == "" {
		return fmt.Errorf("clip %s: missing track id", c.ID)
	}
	for _, f := range []struct {
		name string
		t    rational.Time
	}{
		{"timeline_start", c.Start},
		{"duration", c.Duration},
		{"source_in", c.SourceIn},
		{"source_out", c.SourceOut},
	} {
		if !f.t.Rate().Valid() {
			return fmt.Errorf("clip %s: field %s has invalid rate %d/%d",
				c.ID, f.name, f.t.RateNum, f.t.RateDen)
		}
	}
	if c.Duration.Frames <= 0 {
		return fmt.Errorf("clip %s: duration must be positive, got %d frames",
			c.ID, c.Duration.Frames)
	}
	span := c.SourceOut.Sub(c.SourceIn)
	if span.Compare(c.Duration) != 0 {
		return fmt.Errorf("clip %s: source span %v does not match duration %v",
			c.ID, span, c.Duration)
	}
	return nil
}

// Overlaps reports whether two clips occupy intersecting timeline
// intervals. Interval ends are exclusive, so abutting clips do not
// overlap.
func (c Clip) Overlaps(o Clip) bool {
	return c.Start.Less(o.End()) && o.Start.Less(c.End())
}

// Gap is a virtual item covering unoccupied track space. Gaps are
// materialized on demand by the constraint solver and never persisted.
type Gap struct {
	TrackID  string
	Start    rational.Time
	Duration rational.Time
}

// End returns the exclusive end of the gap.
func (g Gap) End() rational.Time {
	return g.Start.Add(g.Duration)
}
