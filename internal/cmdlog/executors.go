package cmdlog

import (
	"github.com/jve-editor/core/internal/canon"
	"github.com/jve-editor/core/internal/mutate"
	"github.com/jve-editor/core/internal/solver"
	"github.com/jve-editor/core/internal/timeline"
)

func planInsertClip(ec execContext, params canon.Object) (timeline.Bucket, error) {
	const op = "cmdlog.insert_clip"

	clipID, err := getString(params, "clip_id")
	if err != nil {
		return nil, err
	}
	trackID, err := getString(params, "track_id")
	if err != nil {
		return nil, err
	}
	mediaID, err := getString(params, "media_id")
	if err != nil {
		return nil, err
	}
	start, err := getTime(params, "start")
	if err != nil {
		return nil, err
	}
	duration, err := getTime(params, "duration")
	if err != nil {
		return nil, err
	}
	sourceIn, err := getTime(params, "source_in")
	if err != nil {
		return nil, err
	}
	enabled, err := optBool(params, "enabled", true)
	if err != nil {
		return nil, err
	}

	if _, ok := ec.view.Clip(clipID); ok {
		return nil, timeline.Preconditionf(op, "clip_id", "clip id %s already in use", clipID)
	}
	if _, ok := ec.view.Track(trackID); !ok {
		return nil, timeline.Preconditionf(op, "track_id", "unknown track %s", trackID)
	}
	media, ok := ec.view.Media(mediaID)
	if !ok {
		return nil, timeline.Preconditionf(op, "media_id", "unknown media %s", mediaID)
	}
	if start.Frames < 0 {
		return nil, timeline.Preconditionf(op, "start", "clip starts before the timeline origin")
	}
	sourceOut := sourceIn.Add(duration)
	if sourceIn.Frames < 0 || sourceOut.Compare(media.Duration) > 0 {
		return nil, timeline.Preconditionf(op, "source_in",
			"source range [%v, %v) exceeds media %s bounds", sourceIn, sourceOut, mediaID)
	}

	clip := timeline.Clip{
		ID:        clipID,
		TrackID:   trackID,
		MediaID:   mediaID,
		Start:     start,
		Duration:  duration,
		SourceIn:  sourceIn,
		SourceOut: sourceOut,
		Enabled:   enabled,
		Kind:      timeline.ClipTimeline,
	}
	return mutate.PlanPlacement(ec.view.TrackClips(trackID), clip, mutate.Options{})
}

func planTrimEdges(ec execContext, params canon.Object) (timeline.Bucket, error) {
	const op = "cmdlog.trim_edges"

	edges, err := getEdges(params, "edges")
	if err != nil {
		return nil, err
	}
	lead, err := getEdge(params, "lead")
	if err != nil {
		return nil, err
	}
	delta, err := getTime(params, "delta")
	if err != nil {
		return nil, err
	}

	// Restored selections may reference gaps that have closed or clips
	// that are gone; normalize before solving.
	edges = timeline.NormalizeEdges(ec.view, edges)
	normLead := timeline.NormalizeEdges(ec.view, []timeline.Edge{lead})
	if len(normLead) == 0 {
		return nil, timeline.Preconditionf(op, "lead", "lead edge no longer resolves")
	}
	lead = normLead[0]
	found := false
	for _, e := range edges {
		if e == lead {
			found = true
			break
		}
	}
	if !found {
		edges = append(edges, lead)
	}

	sess, err := solver.NewSession(ec.view, edges, lead)
	if err != nil {
		return nil, err
	}
	res, err := sess.Solve(delta)
	if err != nil {
		return nil, err
	}
	return res.Bucket, nil
}

func planMoveClip(ec execContext, params canon.Object) (timeline.Bucket, error) {
	const op = "cmdlog.move_clip"

	clipID, err := getString(params, "clip_id")
	if err != nil {
		return nil, err
	}
	delta, err := getTime(params, "delta")
	if err != nil {
		return nil, err
	}
	target, err := optString(params, "target_track_id")
	if err != nil {
		return nil, err
	}

	c, ok := ec.view.Clip(clipID)
	if !ok {
		return nil, timeline.Preconditionf(op, "clip_id", "unknown clip %s", clipID)
	}
	dest := c.TrackID
	if target != "" {
		dest = target
	}
	srcTrack, ok := ec.view.Track(c.TrackID)
	if !ok {
		return nil, timeline.Preconditionf(op, "track", "unknown track %s", c.TrackID)
	}
	destTrack, ok := ec.view.Track(dest)
	if !ok {
		return nil, timeline.Preconditionf(op, "target_track_id", "unknown track %s", dest)
	}
	if destTrack.Kind != srcTrack.Kind {
		return nil, &timeline.TypeMismatchError{
			ClipID:    c.ID,
			ClipKind:  srcTrack.Kind,
			TrackID:   dest,
			TrackKind: destTrack.Kind,
		}
	}

	moved := c
	moved.TrackID = dest
	moved.Start = c.Start.Add(delta)
	if moved.Start.Frames < 0 {
		return nil, timeline.Preconditionf(op, "delta", "move lands before the timeline origin")
	}

	track := ec.view.TrackClips(dest)
	if dest != c.TrackID {
		// The original rides along so placement emits a move update
		// rather than a duplicate insert.
		track = append(track, c)
	}
	return mutate.PlanPlacement(track, moved, mutate.Options{ExcludeSelf: true})
}

func planDuplicateBlock(ec execContext, params canon.Object) (timeline.Bucket, error) {
	ids, err := getStrings(params, "clip_ids")
	if err != nil {
		return nil, err
	}
	delta, err := getTime(params, "delta")
	if err != nil {
		return nil, err
	}
	target, err := optString(params, "target_track_id")
	if err != nil {
		return nil, err
	}
	return mutate.PlanDuplicateBlock(ec.view, ids, delta, target, mutate.Options{})
}

func planSplitClip(ec execContext, params canon.Object) (timeline.Bucket, error) {
	const op = "cmdlog.split_clip"

	clipID, err := getString(params, "clip_id")
	if err != nil {
		return nil, err
	}
	at, err := getTime(params, "at")
	if err != nil {
		return nil, err
	}

	c, ok := ec.view.Clip(clipID)
	if !ok {
		return nil, timeline.Preconditionf(op, "clip_id", "unknown clip %s", clipID)
	}
	if at.Compare(c.Start) <= 0 || at.Compare(c.End()) >= 0 {
		return nil, timeline.Preconditionf(op, "at",
			"split point %v outside clip interior (%v, %v)", at, c.Start, c.End())
	}

	cut := at.Sub(c.Start)
	own := c.Rate()
	cutOwn, err := cut.Rescale(own.Num, own.Den)
	if err != nil {
		return nil, err
	}
	if cutOwn.Frames <= 0 || cutOwn.Compare(c.Duration) >= 0 {
		return nil, timeline.Preconditionf(op, "at",
			"split point leaves an empty side at the clip's frame rate")
	}

	left := c
	left.ID = mutate.DeriveClipID(c.ID, "left", c.Start.Frames)
	left.Duration = cutOwn
	left.SourceOut = c.SourceIn.Add(cutOwn)

	right := c
	right.ID = mutate.DeriveClipID(c.ID, "right", at.Frames)
	right.Start = c.Start.Add(cut)
	right.Duration = c.Duration.Sub(cutOwn)
	right.SourceIn = c.SourceIn.Add(cutOwn)

	return timeline.Bucket{
		timeline.Delete{ClipID: c.ID},
		timeline.Insert{Clip: left},
		timeline.Insert{Clip: right},
	}, nil
}

func planSetClipEnabled(ec execContext, params canon.Object) (timeline.Bucket, error) {
	const op = "cmdlog.set_clip_enabled"

	clipID, err := getString(params, "clip_id")
	if err != nil {
		return nil, err
	}
	enabled, err := getBool(params, "enabled")
	if err != nil {
		return nil, err
	}

	c, ok := ec.view.Clip(clipID)
	if !ok {
		return nil, timeline.Preconditionf(op, "clip_id", "unknown clip %s", clipID)
	}
	if c.Enabled == enabled {
		return nil, nil
	}
	e := enabled
	return timeline.Bucket{timeline.Update{ClipID: c.ID, Enabled: &e}}, nil
}

func planDeleteClip(ec execContext, params canon.Object) (timeline.Bucket, error) {
	const op = "cmdlog.delete_clip"

	clipID, err := getString(params, "clip_id")
	if err != nil {
		return nil, err
	}
	c, ok := ec.view.Clip(clipID)
	if !ok {
		return nil, timeline.Preconditionf(op, "clip_id", "unknown clip %s", clipID)
	}
	return timeline.Bucket{timeline.Delete{ClipID: c.ID}}, nil
}

func planRippleDelete(ec execContext, params canon.Object) (timeline.Bucket, error) {
	const op = "cmdlog.ripple_delete"

	clipID, err := getString(params, "clip_id")
	if err != nil {
		return nil, err
	}
	c, ok := ec.view.Clip(clipID)
	if !ok {
		return nil, timeline.Preconditionf(op, "clip_id", "unknown clip %s", clipID)
	}

	var rest []timeline.Clip
	for _, o := range ec.view.TrackClips(c.TrackID) {
		if o.ID != c.ID {
			rest = append(rest, o)
		}
	}
	bucket := timeline.Bucket{timeline.Delete{ClipID: c.ID}}
	bucket = append(bucket, mutate.PlanRipple(rest, c.End(), c.Duration.Neg())...)
	return bucket, nil
}
