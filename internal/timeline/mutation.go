package timeline

import (
	"github.com/jve-editor/core/internal/rational"
)

// Mutation is one element of a command's effect: an insert, update, delete
// or bulk shift. The set of implementations is sealed.
type Mutation interface {
	mutation()
}

// Insert adds a new clip.
type Insert struct {
	Clip Clip
}

func (Insert) mutation() {}

// Update changes fields of an existing clip. Only non-nil fields change;
// callers that adjust Duration or either source point are responsible for
// keeping source span and duration in agreement.
type Update struct {
	ClipID    string
	TrackID   *string
	Start     *rational.Time
	Duration  *rational.Time
	SourceIn  *rational.Time
	SourceOut *rational.Time
	Enabled   *bool
}

func (Update) mutation() {}

// Delete removes a clip.
type Delete struct {
	ClipID string
}

func (Delete) mutation() {}

// BulkShift moves a run of clips on one track by a signed frame count at
// the sequence rate. Either ClipIDs lists the affected clips explicitly,
// or FirstClipID marks the first clip of the run and every clip at or
// after its start position shifts.
type BulkShift struct {
	TrackID     string
	ClipIDs     []string
	FirstClipID string
	ShiftFrames int64
}

func (BulkShift) mutation() {}

// Bucket is the ordered mutation list representing one command's full
// effect. Order matters: mutations are applied in sequence so that no
// intermediate state violates the non-overlap invariant.
type Bucket []Mutation

// IsEmpty reports whether the bucket carries no mutations.
func (b Bucket) IsEmpty() bool { return len(b) == 0 }

// Grouped is the transport shape handed to view consumers: mutations
// split by kind, preserving relative order within each kind.
type Grouped struct {
	Inserts    []Insert
	Updates    []Update
	Deletes    []Delete
	BulkShifts []BulkShift
}

// Group splits the bucket by mutation kind.
func (b Bucket) Group() Grouped {
	var g Grouped
	for _, m := range b {
		switch m := m.(type) {
		case Insert:
			g.Inserts = append(g.Inserts, m)
		case Update:
			g.Updates = append(g.Updates, m)
		case Delete:
			g.Deletes = append(g.Deletes, m)
		case BulkShift:
			g.BulkShifts = append(g.BulkShifts, m)
		}
	}
	return g
}

// ApplyUpdate returns the clip with the update's non-nil fields applied.
func ApplyUpdate(c Clip, u Update) Clip {
	if u.TrackID != nil {
		c.TrackID = *u.TrackID
	}
	if u.Start != nil {
		c.Start = *u.Start
	}
	if u.Duration != nil {
		c.Duration = *u.Duration
	}
	if u.SourceIn != nil {
		c.SourceIn = *u.SourceIn
	}
	if u.SourceOut != nil {
		c.SourceOut = *u.SourceOut
	}
	if u.Enabled != nil {
		c.Enabled = *u.Enabled
	}
	return c
}
