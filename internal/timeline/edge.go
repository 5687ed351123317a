package timeline

// EdgeType identifies which boundary of a clip (or of the gap beside it)
// is selected. Gap edges are anchored to a real clip: GapBefore is the gap
// ending at the clip's head, GapAfter the gap starting at its tail.
type EdgeType string

const (
	EdgeIn        EdgeType = "in"
	EdgeOut       EdgeType = "out"
	EdgeGapBefore EdgeType = "gap_before"
	EdgeGapAfter  EdgeType = "gap_after"
)

// TrimType selects the edit mode for a dragged edge.
type TrimType string

const (
	TrimRipple TrimType = "ripple"
	TrimRoll   TrimType = "roll"
)

// Edge is the selection unit for trim gestures.
type Edge struct {
	ClipID string   `json:"clip_id"`
	Type   EdgeType `json:"edge_type"`
	Trim   TrimType `json:"trim_type"`
}

// IsGap reports whether the edge refers to a virtual gap boundary.
func (e Edge) IsGap() bool {
	return e.Type == EdgeGapBefore || e.Type == EdgeGapAfter
}

// NormalizeEdges maps restored edge selections onto the current view. A
// gap edge whose gap has since closed becomes the equivalent real clip
// edge: gap_after turns into the next clip's in-edge, gap_before into the
// previous clip's out-edge. Edges referencing clips that no longer exist
// are dropped, never left dangling.
func NormalizeEdges(v *View, edges []Edge) []Edge {
	out := make([]Edge, 0, len(edges))
	for _, e := range edges {
		c, ok := v.Clip(e.ClipID)
		if !ok {
			continue
		}
		switch e.Type {
		case EdgeIn, EdgeOut:
			out = append(out, e)
		case EdgeGapAfter:
			next, found := nextClip(v, c)
			if !found {
				// Open-ended gap at the track tail still exists.
				out = append(out, e)
				continue
			}
			if next.Start.Compare(c.End()) <= 0 {
				out = append(out, Edge{ClipID: next.ID, Type: EdgeIn, Trim: e.Trim})
			} else {
				out = append(out, e)
			}
		case EdgeGapBefore:
			prev, found := prevClip(v, c)
			if !found {
				if c.Start.Frames == 0 {
					// Gap collapsed against the timeline origin.
					out = append(out, Edge{ClipID: c.ID, Type: EdgeIn, Trim: e.Trim})
				} else {
					out = append(out, e)
				}
				continue
			}
			if prev.End().Compare(c.Start) >= 0 {
				out = append(out, Edge{ClipID: prev.ID, Type: EdgeOut, Trim: e.Trim})
			} else {
				out = append(out, e)
			}
		}
	}
	return out
}

// nextClip returns the first clip on the same track starting at or after
// the reference clip's end.
func nextClip(v *View, c Clip) (Clip, bool) {
	for _, o := range v.TrackClips(c.TrackID) {
		if o.ID == c.ID {
			continue
		}
		if o.Start.Compare(c.End()) >= 0 {
			return o, true
		}
	}
	return Clip{}, false
}

// prevClip returns the last clip on the same track ending at or before
// the reference clip's start.
func prevClip(v *View, c Clip) (Clip, bool) {
	var best Clip
	found := false
	for _, o := range v.TrackClips(c.TrackID) {
		if o.ID == c.ID {
			continue
		}
		if o.End().Compare(c.Start) <= 0 {
			best = o
			found = true
		}
	}
	return best, found
}
