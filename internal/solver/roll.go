package solver

import (
	"github.com/jve-editor/core/internal/rational"
	"github.com/jve-editor/core/internal/timeline"
)

// solveRoll moves a shared boundary between two adjacent clips: the left
// clip's out-edge and the right clip's in-edge change by the same delta,
// so the pair's combined duration is invariant and nothing downstream
// moves. With no abutting partner the open side trims into free space,
// bounded by the next obstacle or the timeline origin.
func (s *Session) solveRoll(delta rational.Time) (Result, error) {
	const op = "solver.solveRoll"

	lead := s.edges[s.lead]
	if lead.gap {
		return Result{}, timeline.Preconditionf(op, "lead", "roll requires a clip edge")
	}
	if len(s.edges) > 2 {
		return Result{}, timeline.Preconditionf(op, "edges",
			"roll selection has %d edges, want at most 2", len(s.edges))
	}

	var left, right *edgeCtx // out-side and in-side of the boundary
	if lead.in {
		right = &lead
	} else {
		left = &lead
	}

	if len(s.edges) == 2 {
		other := s.edges[1-s.lead]
		if other.gap || other.in == lead.in {
			return Result{}, timeline.Preconditionf(op, "edges",
				"roll selection must pair an out-edge with an in-edge")
		}
		if other.edge.Trim != timeline.TrimRoll {
			return Result{}, timeline.Preconditionf(op, "edges", "mixed trim types in roll selection")
		}
		if other.in {
			right = &other
		} else {
			left = &other
		}
		if left.clip.TrackID != right.clip.TrackID ||
			s.seqFrames(left.clip.End()) != s.seqFrames(right.clip.Start) {
			return Result{}, timeline.Preconditionf(op, "edges",
				"roll edges %s/%s do not share a boundary", left.clip.ID, right.clip.ID)
		}
	} else {
		left, right = s.resolvePartner(left, right)
	}

	r := openRange()
	if left != nil {
		r.intersect(s.edgeConstraints(*left))
	}
	if right != nil {
		r.intersect(s.edgeConstraints(*right))
	}
	if right == nil {
		if next, found := nextOnTrack(s.view, left.clip); found {
			room := s.seqFrames(next.Start) - s.seqFrames(left.clip.End())
			r.boundHigh(room, Limit{Kind: LimitAdjacentClip, ClipID: next.ID, Edge: left.edge})
		}
	}
	if left == nil {
		if prev, found := prevOnTrack(s.view, right.clip); found {
			room := s.seqFrames(right.clip.Start) - s.seqFrames(prev.End())
			r.boundLow(-room, Limit{Kind: LimitAdjacentClip, ClipID: prev.ID, Edge: right.edge})
		} else {
			r.boundLow(-s.seqFrames(right.clip.Start),
				Limit{Kind: LimitTimelineOrigin, ClipID: right.clip.ID, Edge: right.edge})
		}
	}

	d, limiter := s.clampSnap(delta, r)

	// The shrinking side vacates first so intermediate states never overlap.
	var bucket timeline.Bucket
	if d > 0 {
		if right != nil {
			bucket = append(bucket, s.rollTrim(*right, d))
		}
		if left != nil {
			bucket = append(bucket, s.rollTrim(*left, d))
		}
	} else if d < 0 {
		if left != nil {
			bucket = append(bucket, s.rollTrim(*left, d))
		}
		if right != nil {
			bucket = append(bucket, s.rollTrim(*right, d))
		}
	}

	dt, err := rational.New(d, s.rate.Num, s.rate.Den)
	if err != nil {
		return Result{}, err
	}
	return Result{Delta: dt, Limiter: limiter, Bucket: bucket, TrackShifts: map[string]int64{}}, nil
}

// resolvePartner finds the clip on the far side of the lead's boundary.
// Only an abutting neighbor becomes a partner; across a gap the roll
// degenerates to a plain trim into the gap.
func (s *Session) resolvePartner(left, right *edgeCtx) (*edgeCtx, *edgeCtx) {
	if left != nil {
		next, found := nextOnTrack(s.view, left.clip)
		if found && s.seqFrames(next.Start) == s.seqFrames(left.clip.End()) {
			ctx := edgeCtx{
				edge: timeline.Edge{ClipID: next.ID, Type: timeline.EdgeIn, Trim: timeline.TrimRoll},
				clip: next,
				in:   true,
			}
			right = &ctx
		}
		return left, right
	}
	prev, found := prevOnTrack(s.view, right.clip)
	if found && s.seqFrames(prev.End()) == s.seqFrames(right.clip.Start) {
		ctx := edgeCtx{
			edge: timeline.Edge{ClipID: prev.ID, Type: timeline.EdgeOut, Trim: timeline.TrimRoll},
			clip: prev,
			in:   false,
		}
		left = &ctx
	}
	return left, right
}

// rollTrim builds the update for one side of the boundary. Unlike a
// ripple trim the in-side's start always follows the boundary.
func (s *Session) rollTrim(e edgeCtx, d int64) timeline.Mutation {
	own := e.clip.Rate()
	dSeq := rational.MustNew(d, s.rate.Num, s.rate.Den)
	dOwn, _ := dSeq.Rescale(own.Num, own.Den)

	if e.in {
		start := e.clip.Start.Add(dOwn)
		dur := e.clip.Duration.Sub(dOwn)
		srcIn := e.clip.SourceIn.Add(dOwn)
		return timeline.Update{ClipID: e.clip.ID, Start: &start, Duration: &dur, SourceIn: &srcIn}
	}
	dur := e.clip.Duration.Add(dOwn)
	srcOut := e.clip.SourceOut.Add(dOwn)
	return timeline.Update{ClipID: e.clip.ID, Duration: &dur, SourceOut: &srcOut}
}
