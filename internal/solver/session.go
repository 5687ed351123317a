// Package solver computes legal edit ranges for ripple and roll trims
// and turns a requested drag delta into the mutation bucket that realizes
// it. Solving is pure: the same Solve call backs both live preview and
// commit, so the two can never diverge.
package solver

import (
	"fmt"

	"github.com/jve-editor/core/internal/rational"
	"github.com/jve-editor/core/internal/timeline"
)

// Session captures one drag gesture: the selected edges, the lead edge
// the pointer is actually on, and the timeline view being edited. A
// Session is built per gesture and discarded on release; there is no
// package-level solver state.
type Session struct {
	view  *timeline.View
	rate  rational.Rate
	edges []edgeCtx
	lead  int // index into edges
}

// edgeCtx is a selected edge resolved against the view: either a real
// clip or a synthetic gap item, with the bracket orientation that decides
// the shift/delta sign convention.
type edgeCtx struct {
	edge timeline.Edge
	clip timeline.Clip // the edited clip, or the synthetic gap clip
	gap  bool

	// in is true for left brackets (clip in-edge, gap left bracket).
	in bool

	// neighborID is the real clip a gap item will shift (the clip on the
	// far side of the gap); empty for clip edges and tail gaps.
	neighborID string
}

// NewSession resolves the edge selection against the view. Gap edges are
// materialized into synthetic gap items so they share the clip code path;
// the synthetic item clones the enabled flag of the real neighbor it will
// shift. The lead edge must be among the selected edges.
func NewSession(v *timeline.View, edges []timeline.Edge, lead timeline.Edge) (*Session, error) {
	const op = "solver.NewSession"

	if len(edges) == 0 {
		return nil, timeline.Preconditionf(op, "edges", "empty edge selection")
	}
	s := &Session{view: v, rate: v.Rate(), lead: -1}
	for i, e := range edges {
		ctx, err := resolveEdge(v, e)
		if err != nil {
			return nil, err
		}
		s.edges = append(s.edges, ctx)
		if e == lead {
			s.lead = i
		}
	}
	if s.lead < 0 {
		return nil, timeline.Preconditionf(op, "lead", "lead edge is not in the selection")
	}
	return s, nil
}

func resolveEdge(v *timeline.View, e timeline.Edge) (edgeCtx, error) {
	const op = "solver.resolveEdge"

	anchor, ok := v.Clip(e.ClipID)
	if !ok {
		return edgeCtx{}, timeline.Preconditionf(op, "clip_id", "unknown clip %s", e.ClipID)
	}
	if !anchor.Duration.Rate().Valid() {
		return edgeCtx{}, timeline.Preconditionf(op, "clip."+anchor.ID, "clip has invalid rate")
	}

	switch e.Type {
	case timeline.EdgeIn:
		return edgeCtx{edge: e, clip: anchor, in: true}, nil
	case timeline.EdgeOut:
		return edgeCtx{edge: e, clip: anchor, in: false}, nil
	case timeline.EdgeGapAfter:
		gap, neighbor, err := materializeGapAfter(v, anchor)
		if err != nil {
			return edgeCtx{}, err
		}
		// The right bracket of the gap: an out-edge of the gap item.
		return edgeCtx{edge: e, clip: gap, gap: true, in: false, neighborID: neighbor}, nil
	case timeline.EdgeGapBefore:
		gap, err := materializeGapBefore(v, anchor)
		if err != nil {
			return edgeCtx{}, err
		}
		// The left bracket of the gap: an in-edge of the gap item.
		return edgeCtx{edge: e, clip: gap, gap: true, in: true, neighborID: anchor.ID}, nil
	default:
		return edgeCtx{}, timeline.Preconditionf(op, "edge_type", "unknown edge type %q", e.Type)
	}
}

// materializeGapAfter synthesizes the gap item following the anchor clip.
// The gap runs from the anchor's end to the next clip's start.
func materializeGapAfter(v *timeline.View, anchor timeline.Clip) (timeline.Clip, string, error) {
	next, found := nextOnTrack(v, anchor)
	if !found {
		return timeline.Clip{}, "", timeline.Preconditionf(
			"solver.materializeGap", "gap_after",
			"no clip follows %s; open-ended gap has no right bracket", anchor.ID)
	}
	start := anchor.End()
	dur := next.Start.Sub(start)
	gap := timeline.Clip{
		ID:       gapID(anchor.ID, "after"),
		TrackID:  anchor.TrackID,
		Start:    start,
		Duration: dur,
		Enabled:  next.Enabled,
		Kind:     timeline.ClipTimeline,
	}
	return gap, next.ID, nil
}

// materializeGapBefore synthesizes the gap item preceding the anchor.
// With no previous clip the gap runs from the timeline origin.
func materializeGapBefore(v *timeline.View, anchor timeline.Clip) (timeline.Clip, error) {
	var start rational.Time
	if prev, found := prevOnTrack(v, anchor); found {
		start = prev.End()
	} else {
		z, err := rational.New(0, anchor.Start.RateNum, anchor.Start.RateDen)
		if err != nil {
			return timeline.Clip{}, err
		}
		start = z
	}
	gap := timeline.Clip{
		ID:       gapID(anchor.ID, "before"),
		TrackID:  anchor.TrackID,
		Start:    start,
		Duration: anchor.Start.Sub(start),
		Enabled:  anchor.Enabled,
		Kind:     timeline.ClipTimeline,
	}
	return gap, nil
}

func gapID(anchorID, side string) string {
	return fmt.Sprintf("gap:%s:%s", anchorID, side)
}

func nextOnTrack(v *timeline.View, c timeline.Clip) (timeline.Clip, bool) {
	for _, o := range v.TrackClips(c.TrackID) {
		if o.ID != c.ID && o.Start.Compare(c.End()) >= 0 {
			return o, true
		}
	}
	return timeline.Clip{}, false
}

func prevOnTrack(v *timeline.View, c timeline.Clip) (timeline.Clip, bool) {
	var best timeline.Clip
	found := false
	for _, o := range v.TrackClips(c.TrackID) {
		if o.ID != c.ID && o.End().Compare(c.Start) <= 0 {
			best = o
			found = true
		}
	}
	return best, found
}

// seq expresses a time at the sequence rate.
func (s *Session) seq(t rational.Time) rational.Time {
	out, _ := t.Rescale(s.rate.Num, s.rate.Den)
	return out
}

// seqFrames is seq collapsed to a frame count.
func (s *Session) seqFrames(t rational.Time) int64 {
	return s.seq(t).Frames
}
