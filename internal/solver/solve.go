package solver

import (
	"math"
	"sort"

	"github.com/jve-editor/core/internal/rational"
	"github.com/jve-editor/core/internal/timeline"
)

// Result is the outcome of solving a drag. Solve is pure: the bucket is
// not applied anywhere, so preview can render it and commit can apply it
// with no possibility of divergence.
type Result struct {
	// Delta is the clamped, frame-snapped delta actually applied, at the
	// sequence rate.
	Delta rational.Time

	// Limiter identifies the boundary that clamped the request, nil when
	// the full requested delta was legal.
	Limiter *Limit

	// Bucket is the ordered mutation set realizing the edit.
	Bucket timeline.Bucket

	// TrackShifts records the downstream shift applied per track id, in
	// frames at the sequence rate. Tracks with no shifted clips are
	// omitted.
	TrackShifts map[string]int64
}

// Solve computes the legal range for the gesture, clamps and snaps the
// requested delta, and returns the resulting mutation bucket. The
// requested delta may be at any rate; the result is at the sequence rate.
func (s *Session) Solve(delta rational.Time) (Result, error) {
	if !delta.Rate().Valid() {
		return Result{}, timeline.Preconditionf("solver.Solve", "delta", "delta has invalid rate")
	}
	if s.edges[s.lead].edge.Trim == timeline.TrimRoll {
		return s.solveRoll(delta)
	}
	return s.solveRipple(delta)
}

func (s *Session) solveRipple(delta rational.Time) (Result, error) {
	const op = "solver.solveRipple"

	// One edge per track: a ripple selection drags one boundary per lane.
	seen := map[string]bool{}
	for _, e := range s.edges {
		if seen[e.clip.TrackID] {
			return Result{}, timeline.Preconditionf(op, "edges",
				"multiple ripple edges on track %s", e.clip.TrackID)
		}
		seen[e.clip.TrackID] = true
	}

	r := openRange()
	for _, e := range s.edges {
		er := s.edgeConstraints(e)
		if s.propagates(e) {
			s.downstreamConstraints(e, s.ripplePoint(e), &er)
		}
		r.intersect(er)
	}

	d, limiter := s.clampSnap(delta, r)
	bucket, shifts := s.rippleBucket(d)
	dt, err := rational.New(d, s.rate.Num, s.rate.Den)
	if err != nil {
		return Result{}, err
	}
	return Result{Delta: dt, Limiter: limiter, Bucket: bucket, TrackShifts: shifts}, nil
}

// clampSnap clamps the exact requested delta to the composed range, snaps
// to the nearest frame at the sequence rate, then re-clamps: snapping can
// overshoot the clamp by up to half a frame, which must never break a
// hard constraint.
func (s *Session) clampSnap(delta rational.Time, r deltaRange) (int64, *Limit) {
	var limiter *Limit

	// Clamp in exact space.
	if r.lo > math.MinInt64 {
		lo := rational.MustNew(r.lo, s.rate.Num, s.rate.Den)
		if delta.Compare(lo) < 0 {
			delta, limiter = lo, r.loLim
		}
	}
	if r.hi < math.MaxInt64 {
		hi := rational.MustNew(r.hi, s.rate.Num, s.rate.Den)
		if delta.Compare(hi) > 0 {
			delta, limiter = hi, r.hiLim
		}
	}

	// Snap to the frame grid, then re-clamp.
	snapped := s.seqFrames(delta)
	clamped, lim2 := r.clamp(snapped)
	if lim2 != nil {
		limiter = lim2
	}
	return clamped, limiter
}

// propagates reports whether the edge's ripple reaches downstream clips.
// An in-edge with no abutting previous occupant is a pure trim: the
// downstream shift only applies at the ripple point, which the edited
// clip itself occupies.
func (s *Session) propagates(e edgeCtx) bool {
	if e.gap {
		return true
	}
	if !e.in {
		return true
	}
	prev, found := prevOnTrack(s.view, e.clip)
	return found && s.seqFrames(prev.End()) == s.seqFrames(e.clip.Start)
}

// ripplePoint returns the position downstream clips are measured against,
// in frames at the sequence rate.
func (s *Session) ripplePoint(e edgeCtx) int64 {
	if e.gap {
		return s.seqFrames(e.clip.End())
	}
	if e.in {
		return s.seqFrames(e.clip.Start)
	}
	return s.seqFrames(e.clip.End())
}

// durationChange returns the downstream shift the edge produces for a
// given delta: same sign as the drag for out-edges, opposite for
// in-edges, zero for non-propagating pure trims.
func (s *Session) durationChange(e edgeCtx, d int64) int64 {
	if !s.propagates(e) {
		return 0
	}
	if e.in {
		return -d
	}
	return d
}

// rippleBucket assembles the mutation bucket for a clamped delta: local
// trims per edited clip plus one bulk shift per affected track. Rightward
// shifts are emitted before local trims (downstream vacates first);
// leftward shifts after (the trim vacates first).
func (s *Session) rippleBucket(d int64) (timeline.Bucket, map[string]int64) {
	shifts := map[string]int64{}
	if d == 0 {
		return nil, shifts
	}

	// Per-track shift: a track with its own edge follows that edge's
	// bracket orientation; other tracks follow the lead edge.
	lead := s.edges[s.lead]
	edgeByTrack := map[string]edgeCtx{}
	for _, e := range s.edges {
		edgeByTrack[e.clip.TrackID] = e
	}

	var rightShifts, locals, leftShifts timeline.Bucket
	for _, t := range s.view.Tracks() {
		e, hasEdge := edgeByTrack[t.ID]
		if !hasEdge {
			e = lead
		}
		shift := s.durationChange(e, d)
		if shift == 0 {
			continue
		}
		point := s.ripplePoint(e)

		var ids []string
		var clips []timeline.Clip
		for _, c := range s.view.TrackClips(t.ID) {
			if hasEdge && !e.gap && c.ID == e.clip.ID {
				continue
			}
			if s.seqFrames(c.Start) >= point {
				clips = append(clips, c)
			}
		}
		sort.Slice(clips, func(i, j int) bool {
			return clips[i].Start.Compare(clips[j].Start) < 0
		})
		for _, c := range clips {
			ids = append(ids, c.ID)
		}
		if len(ids) == 0 {
			continue
		}
		shifts[t.ID] = shift
		m := timeline.BulkShift{TrackID: t.ID, ClipIDs: ids, ShiftFrames: shift}
		if shift > 0 {
			rightShifts = append(rightShifts, m)
		} else {
			leftShifts = append(leftShifts, m)
		}
	}

	for _, e := range s.edges {
		if u, ok := s.localTrim(e, d); ok {
			locals = append(locals, u)
		}
	}

	bucket := append(rightShifts, locals...)
	bucket = append(bucket, leftShifts...)
	return bucket, shifts
}

// localTrim produces the update for the edited clip itself. Gap items
// have no persisted row, so their trim is realized entirely by the
// downstream shift.
func (s *Session) localTrim(e edgeCtx, d int64) (timeline.Mutation, bool) {
	if e.gap || d == 0 {
		return nil, false
	}
	dSeq := rational.MustNew(d, s.rate.Num, s.rate.Den)
	own := e.clip.Rate()
	dOwn, _ := dSeq.Rescale(own.Num, own.Den)

	if e.in {
		dur := e.clip.Duration.Sub(dOwn)
		srcIn := e.clip.SourceIn.Add(dOwn)
		u := timeline.Update{ClipID: e.clip.ID, Duration: &dur, SourceIn: &srcIn}
		if !s.propagates(e) {
			start := e.clip.Start.Add(dOwn)
			u.Start = &start
		}
		return u, true
	}
	dur := e.clip.Duration.Add(dOwn)
	srcOut := e.clip.SourceOut.Add(dOwn)
	return timeline.Update{ClipID: e.clip.ID, Duration: &dur, SourceOut: &srcOut}, true
}
