// Package mutate plans the mutation sets that keep a track consistent
// when clips are placed, shifted or duplicated. Planners are pure: they
// inspect state and return an ordered timeline.Bucket; applying the bucket
// is the caller's job. The same plan feeds both live preview and commit.
package mutate

import (
	"github.com/jve-editor/core/internal/rational"
	"github.com/jve-editor/core/internal/timeline"
)

// Options adjusts placement planning.
type Options struct {
	// ExcludeSelf skips occlusion against the clip being placed itself.
	// Set when resizing or moving a clip in place.
	ExcludeSelf bool

	// NewID mints an id for clips created by splits. When nil, ids are
	// derived deterministically from the parent clip id and split bounds.
	NewID func(parent, side string, startFrames int64) string
}

func (o Options) newID(parent, side string, startFrames int64) string {
	if o.NewID != nil {
		return o.NewID(parent, side, startFrames)
	}
	return DeriveClipID(parent, side, startFrames)
}

// PlanPlacement computes the ordered mutation set that places the
// proposed clip on its track while preserving non-overlap. Existing clips
// are trimmed, split or deleted as the proposed region demands; the final
// mutation inserts or updates the proposed clip itself.
//
// track must hold the current clips of the destination track. The
// proposed clip may already be among them (an in-place resize or move);
// pass Options.ExcludeSelf so it does not occlude itself.
func PlanPlacement(track []timeline.Clip, place timeline.Clip, opt Options) (timeline.Bucket, error) {
	const op = "mutate.PlanPlacement"

	if err := place.Validate(); err != nil {
		return nil, timeline.Preconditionf(op, "region", "%v", err)
	}
	exists := false
	for _, e := range track {
		if !e.Duration.Rate().Valid() || !e.Start.Rate().Valid() {
			return nil, timeline.Preconditionf(op, "clip."+e.ID, "existing clip has invalid rate")
		}
		if e.ID == place.ID {
			exists = true
		}
	}

	ns, ne := place.Start, place.End()

	var deletes, updates, inserts timeline.Bucket
	for _, e := range track {
		if opt.ExcludeSelf && e.ID == place.ID {
			continue
		}
		if e.ID == place.ID {
			continue // replaced by the final update below
		}
		if !place.Enabled || !e.Enabled {
			// Disabled clips do not participate in occlusion.
			continue
		}
		if ne.Compare(e.Start) <= 0 || ns.Compare(e.End()) >= 0 {
			continue // no overlap
		}

		coversHead := ns.Compare(e.Start) <= 0
		coversTail := ne.Compare(e.End()) >= 0
		switch {
		case coversHead && coversTail:
			deletes = append(deletes, timeline.Delete{ClipID: e.ID})

		case coversHead:
			// Region overlaps the head: advance the start and in-point.
			cut := ne.Sub(e.Start)
			updates = append(updates, headTrim(e, cut))

		case coversTail:
			// Region overlaps the tail: pull in the duration and out-point.
			keep := ns.Sub(e.Start)
			updates = append(updates, tailTrim(e, keep))

		default:
			// Region falls inside the clip: split into two remainders.
			deletes = append(deletes, timeline.Delete{ClipID: e.ID})
			left, right := splitClip(e, ns, ne, opt)
			inserts = append(inserts, timeline.Insert{Clip: left}, timeline.Insert{Clip: right})
		}
	}

	bucket := append(deletes, updates...)
	bucket = append(bucket, inserts...)
	if exists {
		bucket = append(bucket, updateTo(place))
	} else {
		bucket = append(bucket, timeline.Insert{Clip: place})
	}
	return bucket, nil
}

// atRate expresses t at rate r. Rates are validated before planning, so
// the conversion cannot fail.
func atRate(t rational.Time, r rational.Rate) rational.Time {
	out, _ := t.Rescale(r.Num, r.Den)
	return out
}

// headTrim shortens a clip from the head by cut (timeline span), keeping
// the source span and duration in agreement at the clip's own rate.
func headTrim(e timeline.Clip, cut rational.Time) timeline.Update {
	cutOwn := atRate(cut, e.Rate())
	start := e.Start.Add(cut)
	dur := e.Duration.Sub(cutOwn)
	srcIn := e.SourceIn.Add(cutOwn)
	return timeline.Update{
		ClipID:   e.ID,
		Start:    &start,
		Duration: &dur,
		SourceIn: &srcIn,
	}
}

// tailTrim shortens a clip to keep (timeline span measured from its
// start), adjusting the out-point by the trimmed amount.
func tailTrim(e timeline.Clip, keep rational.Time) timeline.Update {
	keepOwn := atRate(keep, e.Rate())
	cutOwn := e.Duration.Sub(keepOwn)
	dur := keepOwn
	srcOut := e.SourceOut.Sub(cutOwn)
	return timeline.Update{
		ClipID:    e.ID,
		Duration:  &dur,
		SourceOut: &srcOut,
	}
}

// splitClip produces the left and right remainders of a straddled clip.
// Each half inherits the source offsets covering its own span.
func splitClip(e timeline.Clip, ns, ne rational.Time, opt Options) (timeline.Clip, timeline.Clip) {
	leftOwn := atRate(ns.Sub(e.Start), e.Rate())
	rightSkip := ne.Sub(e.Start)
	rightSkipOwn := atRate(rightSkip, e.Rate())

	left := e
	left.ID = opt.newID(e.ID, "left", e.Start.Frames)
	left.Duration = leftOwn
	left.SourceOut = e.SourceIn.Add(leftOwn)

	right := e
	right.ID = opt.newID(e.ID, "right", ne.Frames)
	right.Start = e.Start.Add(rightSkip)
	right.Duration = e.Duration.Sub(rightSkipOwn)
	right.SourceIn = e.SourceIn.Add(rightSkipOwn)

	return left, right
}

// updateTo emits a full-field update moving an existing clip to the
// proposed placement.
func updateTo(place timeline.Clip) timeline.Update {
	start, dur := place.Start, place.Duration
	srcIn, srcOut := place.SourceIn, place.SourceOut
	trackID, enabled := place.TrackID, place.Enabled
	return timeline.Update{
		ClipID:    place.ID,
		TrackID:   &trackID,
		Start:     &start,
		Duration:  &dur,
		SourceIn:  &srcIn,
		SourceOut: &srcOut,
		Enabled:   &enabled,
	}
}
