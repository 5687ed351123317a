package mutate

import (
	"github.com/jve-editor/core/internal/rational"
	"github.com/jve-editor/core/internal/timeline"
)

// PlanDuplicateBlock clones a set of clips with a position delta and an
// optional cross-track target. Destination occlusions are resolved with
// the placement rules; a clip landing on a track of a different kind is a
// fatal type-mismatch error.
//
// The returned bucket contains the occlusion mutations interleaved with
// the duplicate inserts in safe application order.
func PlanDuplicateBlock(v *timeline.View, clipIDs []string, delta rational.Time, targetTrackID string, opt Options) (timeline.Bucket, error) {
	const op = "mutate.PlanDuplicateBlock"

	if len(clipIDs) == 0 {
		return nil, timeline.Preconditionf(op, "clip_ids", "empty duplicate block")
	}

	// Resolve sources and destination tracks up front so a mismatch
	// anywhere in the block aborts before planning any mutation.
	type placement struct {
		src  timeline.Clip
		dest string
	}
	plan := make([]placement, 0, len(clipIDs))
	for _, id := range clipIDs {
		src, ok := v.Clip(id)
		if !ok {
			return nil, timeline.Preconditionf(op, "clip_ids", "unknown clip %s", id)
		}
		srcTrack, ok := v.Track(src.TrackID)
		if !ok {
			return nil, timeline.Preconditionf(op, "track", "unknown track %s", src.TrackID)
		}
		dest := src.TrackID
		if targetTrackID != "" {
			dest = targetTrackID
		}
		destTrack, ok := v.Track(dest)
		if !ok {
			return nil, timeline.Preconditionf(op, "target_track", "unknown track %s", dest)
		}
		if destTrack.Kind != srcTrack.Kind {
			return nil, &timeline.TypeMismatchError{
				ClipID:    src.ID,
				ClipKind:  srcTrack.Kind,
				TrackID:   dest,
				TrackKind: destTrack.Kind,
			}
		}
		plan = append(plan, placement{src: src, dest: dest})
	}

	// Plan each duplicate against a working copy so duplicates in the
	// same block see each other's occlusion effects.
	work := v.Clone()
	var bucket timeline.Bucket
	for i, p := range plan {
		dup := p.src
		dup.ID = opt.newID(p.src.ID, "dup", p.src.Start.Add(delta).Frames)
		dup.TrackID = p.dest
		dup.Start = p.src.Start.Add(delta)

		sub, err := PlanPlacement(work.TrackClips(p.dest), dup, opt)
		if err != nil {
			return nil, err
		}
		if err := work.Apply(sub); err != nil {
			return nil, timeline.Preconditionf(op, "block", "duplicate %d: %v", i, err)
		}
		bucket = append(bucket, sub...)
	}
	return bucket, nil
}
