package canon

import (
	"fmt"

	"github.com/jve-editor/core/internal/rational"
	"github.com/jve-editor/core/internal/timeline"
)

// StateDocument builds the canonical description of the full timeline
// state: rate, tracks, media and clips with exact rational times. State
// hashing and snapshots share it, so stored snapshot bytes always hash
// to the stored state hash.
func StateDocument(v *timeline.View) Object {
	rate := v.Rate()
	obj := Object{
		"rate": Object{"num": Int(rate.Num), "den": Int(rate.Den)},
	}

	tracks := Array{}
	for _, t := range v.Tracks() {
		tracks = append(tracks, Object{
			"id":    String(t.ID),
			"kind":  String(t.Kind),
			"order": Int(t.Order),
		})
	}
	obj["tracks"] = tracks

	media := Array{}
	for _, m := range v.MediaList() {
		media = append(media, Object{
			"id":       String(m.ID),
			"path":     String(m.Path),
			"duration": timeObject(m.Duration),
		})
	}
	obj["media"] = media

	clips := Array{}
	for _, c := range v.AllClips() {
		clips = append(clips, Object{
			"id":         String(c.ID),
			"track_id":   String(c.TrackID),
			"media_id":   String(c.MediaID),
			"start":      timeObject(c.Start),
			"duration":   timeObject(c.Duration),
			"source_in":  timeObject(c.SourceIn),
			"source_out": timeObject(c.SourceOut),
			"enabled":    Bool(c.Enabled),
			"kind":       String(c.Kind),
		})
	}
	obj["clips"] = clips
	return obj
}

// StateHash computes the domain-separated hash of the full timeline
// state. Two views with identical tracks, media and clips hash
// identically regardless of insertion order; times hash as exact
// rational triples so no float ever enters the digest.
func StateHash(v *timeline.View) (string, error) {
	canonical, err := Marshal(StateDocument(v))
	if err != nil {
		return "", fmt.Errorf("state hash: %w", err)
	}
	return HashDomain(DomainState, canonical), nil
}

func timeObject(t rational.Time) Object {
	return Object{
		"frames":   Int(t.Frames),
		"rate_num": Int(t.RateNum),
		"rate_den": Int(t.RateDen),
	}
}
