package mutate

import (
	"sort"

	"github.com/jve-editor/core/internal/rational"
	"github.com/jve-editor/core/internal/timeline"
)

// PlanRipple produces pure shift updates for every clip on the track
// whose start is at or after the ripple point. When shifting rightward
// the updates are emitted rightmost-first so that applying them in order
// never creates a transient overlap; leftward shifts go left-to-right.
func PlanRipple(track []timeline.Clip, point, shift rational.Time) timeline.Bucket {
	if shift.Frames == 0 {
		return nil
	}

	var affected []timeline.Clip
	for _, c := range track {
		if c.Start.Compare(point) >= 0 {
			affected = append(affected, c)
		}
	}
	sortByStart(affected)
	if shift.Frames > 0 {
		reverse(affected)
	}

	var bucket timeline.Bucket
	for _, c := range affected {
		start := c.Start.Add(shift)
		bucket = append(bucket, timeline.Update{ClipID: c.ID, Start: &start})
	}
	return bucket
}

func sortByStart(cs []timeline.Clip) {
	sort.Slice(cs, func(i, j int) bool {
		if cmp := cs[i].Start.Compare(cs[j].Start); cmp != 0 {
			return cmp < 0
		}
		return cs[i].ID < cs[j].ID
	})
}

func reverse(cs []timeline.Clip) {
	for i, j := 0, len(cs)-1; i < j; i, j = i+1, j-1 {
		cs[i], cs[j] = cs[j], cs[i]
	}
}
