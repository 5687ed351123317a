package cmdlog

import (
	"encoding/json"
	"fmt"

	"github.com/jve-editor/core/internal/canon"
	"github.com/jve-editor/core/internal/rational"
	"github.com/jve-editor/core/internal/timeline"
)

// encodeState serializes the full view as canonical JSON. The bytes
// hash to the state hash stored alongside them, so a snapshot can be
// verified without decoding it.
func encodeState(v *timeline.View) ([]byte, error) {
	return canon.Marshal(canon.StateDocument(v))
}

// decodeState rebuilds a view from snapshot bytes.
func decodeState(data []byte, rate rational.Rate) (*timeline.View, error) {
	var doc canon.Object
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	v := timeline.NewView(rate)

	tracks, err := getArray(doc, "tracks")
	if err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	for i, tv := range tracks {
		t, err := decodeTrack(tv)
		if err != nil {
			return nil, fmt.Errorf("decode snapshot: track[%d]: %w", i, err)
		}
		v.AddTrack(t)
	}

	media, err := getArray(doc, "media")
	if err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	for i, mv := range media {
		m, err := decodeMedia(mv)
		if err != nil {
			return nil, fmt.Errorf("decode snapshot: media[%d]: %w", i, err)
		}
		v.AddMedia(m)
	}

	clips, err := getArray(doc, "clips")
	if err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	for i, cv := range clips {
		c, err := decodeClip(cv)
		if err != nil {
			return nil, fmt.Errorf("decode snapshot: clip[%d]: %w", i, err)
		}
		v.SetClip(c)
	}
	return v, nil
}

func decodeTrack(v canon.Value) (timeline.Track, error) {
	o, ok := v.(canon.Object)
	if !ok {
		return timeline.Track{}, fmt.Errorf("not an object")
	}
	id, err := getString(o, "id")
	if err != nil {
		return timeline.Track{}, err
	}
	kind, err := getString(o, "kind")
	if err != nil {
		return timeline.Track{}, err
	}
	order, err := getInt(o, "order")
	if err != nil {
		return timeline.Track{}, err
	}
	return timeline.Track{ID: id, Kind: timeline.TrackKind(kind), Order: int(order)}, nil
}

func decodeMedia(v canon.Value) (timeline.Media, error) {
	o, ok := v.(canon.Object)
	if !ok {
		return timeline.Media{}, fmt.Errorf("not an object")
	}
	id, err := getString(o, "id")
	if err != nil {
		return timeline.Media{}, err
	}
	path, err := getString(o, "path")
	if err != nil {
		return timeline.Media{}, err
	}
	dur, err := getTime(o, "duration")
	if err != nil {
		return timeline.Media{}, err
	}
	return timeline.Media{ID: id, Path: path, Duration: dur}, nil
}

func decodeClip(v canon.Value) (timeline.Clip, error) {
	o, ok := v.(canon.Object)
	if !ok {
		return timeline.Clip{}, fmt.Errorf("not an object")
	}
	var c timeline.Clip
	var err error
	if c.ID, err = getString(o, "id"); err != nil {
		return timeline.Clip{}, err
	}
	if c.TrackID, err = getString(o, "track_id"); err != nil {
		return timeline.Clip{}, err
	}
	if c.MediaID, err = getString(o, "media_id"); err != nil {
		return timeline.Clip{}, err
	}
	if c.Start, err = getTime(o, "start"); err != nil {
		return timeline.Clip{}, err
	}
	if c.Duration, err = getTime(o, "duration"); err != nil {
		return timeline.Clip{}, err
	}
	if c.SourceIn, err = getTime(o, "source_in"); err != nil {
		return timeline.Clip{}, err
	}
	if c.SourceOut, err = getTime(o, "source_out"); err != nil {
		return timeline.Clip{}, err
	}
	if c.Enabled, err = getBool(o, "enabled"); err != nil {
		return timeline.Clip{}, err
	}
	kind, err := getString(o, "kind")
	if err != nil {
		return timeline.Clip{}, err
	}
	c.Kind = timeline.ClipKind(kind)
	return c, nil
}
