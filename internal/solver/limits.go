package solver

import (
	"math"

	"github.com/jve-editor/core/internal/timeline"
)

// LimitKind names the constraint that bounds or clamped a drag.
type LimitKind string

const (
	// LimitAdjacentClip: the trim would cross a neighboring clip's boundary.
	LimitAdjacentClip LimitKind = "adjacent_clip"

	// LimitMinDuration: the item would shrink below its minimum duration
	// (one frame for clips, zero for gaps).
	LimitMinDuration LimitKind = "min_duration"

	// LimitMediaBounds: the trim would reveal frames outside the source
	// media's [0, duration) range.
	LimitMediaBounds LimitKind = "media_bounds"

	// LimitTimelineOrigin: a clip would move before timeline start.
	LimitTimelineOrigin LimitKind = "timeline_origin"

	// LimitCrossTrack: the downstream ripple shift would collide with a
	// stationary clip on another track.
	LimitCrossTrack LimitKind = "cross_track"
)

// Limit attributes a bound to the specific boundary that imposes it, so
// the caller can report which edge stopped the drag.
type Limit struct {
	Kind   LimitKind
	ClipID string
	Edge   timeline.Edge
}

// deltaRange is a closed legal interval for the drag delta, in frames at
// the sequence rate. Each end carries the limit that imposed it; a nil
// limit means unbounded on that side.
type deltaRange struct {
	lo, hi       int64
	loLim, hiLim *Limit
}

func openRange() deltaRange {
	return deltaRange{lo: math.MinInt64, hi: math.MaxInt64}
}

// boundLow tightens the lower bound.
func (r *deltaRange) boundLow(v int64, lim Limit) {
	if v > r.lo {
		r.lo = v
		l := lim
		r.loLim = &l
	}
}

// boundHigh tightens the upper bound.
func (r *deltaRange) boundHigh(v int64, lim Limit) {
	if v < r.hi {
		r.hi = v
		l := lim
		r.hiLim = &l
	}
}

// boundShift applies a bound expressed in shift space to the delta range
// of an edge. For in-edges shift = -delta, so the bound side flips.
func (r *deltaRange) boundShift(in bool, shiftLo, shiftHi *int64, lim Limit) {
	if in {
		if shiftLo != nil {
			r.boundHigh(-*shiftLo, lim)
		}
		if shiftHi != nil {
			r.boundLow(-*shiftHi, lim)
		}
		return
	}
	if shiftLo != nil {
		r.boundLow(*shiftLo, lim)
	}
	if shiftHi != nil {
		r.boundHigh(*shiftHi, lim)
	}
}

// intersect merges another range in place, keeping the attribution of
// whichever bound is tighter.
func (r *deltaRange) intersect(o deltaRange) {
	if o.lo > r.lo {
		r.lo, r.loLim = o.lo, o.loLim
	}
	if o.hi < r.hi {
		r.hi, r.hiLim = o.hi, o.hiLim
	}
}

// clamp returns v limited to the range plus the limit that clipped it,
// nil when v was already legal.
func (r deltaRange) clamp(v int64) (int64, *Limit) {
	if v < r.lo {
		return r.lo, r.loLim
	}
	if v > r.hi {
		return r.hi, r.hiLim
	}
	return v, nil
}

// edgeConstraints computes the legal delta range for one selected edge.
// Every bound is independently attributable: an unrelated edge's
// constraint never leaks into another edge's range.
func (s *Session) edgeConstraints(e edgeCtx) deltaRange {
	r := openRange()
	dur := s.seqFrames(e.clip.Duration)

	// Minimum duration: clips keep at least one frame, gaps may close
	// fully. In shift space the closure limit is -(duration - 1) for
	// clips and -duration for gaps.
	minDur := int64(1)
	if e.gap {
		minDur = 0
	}
	closure := -(dur - minDur)
	r.boundShift(e.in, &closure, nil, Limit{Kind: LimitMinDuration, ClipID: e.clip.ID, Edge: e.edge})

	if !e.gap {
		s.mediaConstraint(e, &r)
		s.growthConstraint(e, &r)
	}
	return r
}

// mediaConstraint bounds edge growth by the source media range: an
// out-edge cannot reveal frames past the media's end, an in-edge cannot
// reveal frames before zero.
func (s *Session) mediaConstraint(e edgeCtx, r *deltaRange) {
	media, ok := s.view.Media(e.clip.MediaID)
	if !ok {
		return
	}
	lim := Limit{Kind: LimitMediaBounds, ClipID: e.clip.ID, Edge: e.edge}
	if e.in {
		headroom := s.seqFrames(e.clip.SourceIn)
		r.boundShift(true, nil, &headroom, lim)
	} else {
		headroom := s.seqFrames(media.Duration.Sub(e.clip.SourceOut))
		r.boundShift(false, nil, &headroom, lim)
	}
}

// growthConstraint bounds in-edge growth into the space before the clip.
// When the in-edge abuts a previous occupant the ripple push makes room,
// so only the free-space cases bind: a previous clip across a gap, or the
// timeline origin.
func (s *Session) growthConstraint(e edgeCtx, r *deltaRange) {
	if !e.in || e.edge.Trim != timeline.TrimRipple {
		return
	}
	start := s.seqFrames(e.clip.Start)
	if prev, found := prevOnTrack(s.view, e.clip); found {
		gap := start - s.seqFrames(prev.End())
		if gap == 0 {
			return // abutting occupant: growth rides the ripple push
		}
		r.boundShift(true, nil, &gap,
			Limit{Kind: LimitAdjacentClip, ClipID: prev.ID, Edge: e.edge})
		return
	}
	r.boundShift(true, nil, &start,
		Limit{Kind: LimitTimelineOrigin, ClipID: e.clip.ID, Edge: e.edge})
}

// downstreamConstraints bounds the per-track downstream shift for a
// ripple: shifted clips must not cross the timeline origin, and on every
// track the first shifted clip must not collide with the last stationary
// clip. The shift value under test equals the edge's duration change, so
// bounds convert to delta space through the edge's bracket orientation.
func (s *Session) downstreamConstraints(e edgeCtx, point int64, r *deltaRange) {
	for _, t := range s.view.Tracks() {
		stationaryEnd := int64(0)
		var firstShifted *timeline.Clip
		var lastStationary *timeline.Clip
		for _, c := range s.view.TrackClips(t.ID) {
			c := c
			if c.ID == e.clip.ID && !e.gap {
				continue // the edited clip pins itself
			}
			if s.seqFrames(c.Start) >= point {
				if firstShifted == nil {
					firstShifted = &c
				}
			} else {
				if end := s.seqFrames(c.End()); end > stationaryEnd {
					stationaryEnd = end
					lastStationary = &c
				}
			}
		}
		if firstShifted == nil {
			continue
		}

		firstStart := s.seqFrames(firstShifted.Start)
		// Leftward room on this track, in shift space.
		room := firstStart - stationaryEnd
		if lastStationary != nil {
			low := -room
			r.boundShift(e.in, &low, nil,
				Limit{Kind: LimitCrossTrack, ClipID: lastStationary.ID, Edge: e.edge})
		} else {
			low := -firstStart
			r.boundShift(e.in, &low, nil,
				Limit{Kind: LimitTimelineOrigin, ClipID: firstShifted.ID, Edge: e.edge})
		}
	}
}
