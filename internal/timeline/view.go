package timeline

import (
	"fmt"
	"sort"

	"github.com/jve-editor/core/internal/rational"
)

// Source is the minimal loading surface the view needs from the backing
// store: full reload of tracks, media and clips for the active sequence.
type Source interface {
	LoadTracks() ([]Track, error)
	LoadMedia() ([]Media, error)
	LoadClips() ([]Clip, error)
}

// View is the materialized in-memory index of the current timeline state.
// It is kept in sync by applying the mutation buckets commands emit; a
// command that emits no bucket forces a full Reload.
type View struct {
	rate   rational.Rate
	tracks map[string]Track
	media  map[string]Media
	clips  map[string]Clip
}

// NewView creates an empty view at the sequence frame rate.
func NewView(rate rational.Rate) *View {
	return &View{
		rate:   rate,
		tracks: make(map[string]Track),
		media:  make(map[string]Media),
		clips:  make(map[string]Clip),
	}
}

// Rate returns the sequence frame rate.
func (v *View) Rate() rational.Rate { return v.rate }

// AddTrack registers or replaces a track.
func (v *View) AddTrack(t Track) { v.tracks[t.ID] = t }

// AddMedia registers or replaces a media asset.
func (v *View) AddMedia(m Media) { v.media[m.ID] = m }

// SetClip inserts or replaces a clip without invariant checking. Loaders
// and tests use it; commands go through Apply.
func (v *View) SetClip(c Clip) { v.clips[c.ID] = c }

// Clip looks up a clip by id.
func (v *View) Clip(id string) (Clip, bool) {
	c, ok := v.clips[id]
	return c, ok
}

// Track looks up a track by id.
func (v *View) Track(id string) (Track, bool) {
	t, ok := v.tracks[id]
	return t, ok
}

// Media looks up a media asset by id.
func (v *View) Media(id string) (Media, bool) {
	m, ok := v.media[id]
	return m, ok
}

// MediaList returns all media assets sorted by id.
func (v *View) MediaList() []Media {
	out := make([]Media, 0, len(v.media))
	for _, m := range v.media {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Tracks returns all tracks ordered by their lane order, then id.
func (v *View) Tracks() []Track {
	out := make([]Track, 0, len(v.tracks))
	for _, t := range v.tracks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// TrackClips returns the clips on one track sorted by start position,
// ties broken by id for determinism.
func (v *View) TrackClips(trackID string) []Clip {
	var out []Clip
	for _, c := range v.clips {
		if c.TrackID == trackID {
			out = append(out, c)
		}
	}
	sortClips(out)
	return out
}

// AllClips returns every clip sorted by track, start, id.
func (v *View) AllClips() []Clip {
	out := make([]Clip, 0, len(v.clips))
	for _, c := range v.clips {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TrackID != out[j].TrackID {
			return out[i].TrackID < out[j].TrackID
		}
		if cmp := out[i].Start.Compare(out[j].Start); cmp != 0 {
			return cmp < 0
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func sortClips(cs []Clip) {
	sort.Slice(cs, func(i, j int) bool {
		if cmp := cs[i].Start.Compare(cs[j].Start); cmp != 0 {
			return cmp < 0
		}
		return cs[i].ID < cs[j].ID
	})
}

// Clone returns a deep-enough copy for dry-run previews; Clip values are
// immutable so map copies suffice.
func (v *View) Clone() *View {
	nv := NewView(v.rate)
	for id, t := range v.tracks {
		nv.tracks[id] = t
	}
	for id, m := range v.media {
		nv.media[id] = m
	}
	for id, c := range v.clips {
		nv.clips[id] = c
	}
	return nv
}

// Apply applies a mutation bucket in order. Unknown clip references are
// hard errors: the view and the store must never drift silently.
func (v *View) Apply(b Bucket) error {
	for i, m := range b {
		switch m := m.(type) {
		case Insert:
			if err := m.Clip.Validate(); err != nil {
				return fmt.Errorf("apply[%d] insert: %w", i, err)
			}
			if _, exists := v.clips[m.Clip.ID]; exists {
				return fmt.Errorf("apply[%d] insert: clip %s already exists", i, m.Clip.ID)
			}
			v.clips[m.Clip.ID] = m.Clip
		case Update:
			c, ok := v.clips[m.ClipID]
			if !ok {
				return fmt.Errorf("apply[%d] update: unknown clip %s", i, m.ClipID)
			}
			c = ApplyUpdate(c, m)
			if err := c.Validate(); err != nil {
				return fmt.Errorf("apply[%d] update: %w", i, err)
			}
			v.clips[m.ClipID] = c
		case Delete:
			if _, ok := v.clips[m.ClipID]; !ok {
				return fmt.Errorf("apply[%d] delete: unknown clip %s", i, m.ClipID)
			}
			delete(v.clips, m.ClipID)
		case BulkShift:
			if err := v.applyBulkShift(m); err != nil {
				return fmt.Errorf("apply[%d] bulk_shift: %w", i, err)
			}
		default:
			return fmt.Errorf("apply[%d]: unknown mutation type %T", i, m)
		}
	}
	return nil
}

func (v *View) applyBulkShift(m BulkShift) error {
	shift, err := rational.New(m.ShiftFrames, v.rate.Num, v.rate.Den)
	if err != nil {
		return err
	}

	var ids []string
	switch {
	case len(m.ClipIDs) > 0:
		ids = m.ClipIDs
	case m.FirstClipID != "":
		first, ok := v.clips[m.FirstClipID]
		if !ok {
			return fmt.Errorf("unknown first clip %s", m.FirstClipID)
		}
		for _, c := range v.TrackClips(m.TrackID) {
			if c.Start.Compare(first.Start) >= 0 {
				ids = append(ids, c.ID)
			}
		}
	default:
		return fmt.Errorf("bulk shift on track %s names no clips", m.TrackID)
	}

	// When shifting rightward, move the rightmost clip first so no
	// intermediate state overlaps; leftward shifts move left-to-right.
	clips := make([]Clip, 0, len(ids))
	for _, id := range ids {
		c, ok := v.clips[id]
		if !ok {
			return fmt.Errorf("unknown clip %s", id)
		}
		clips = append(clips, c)
	}
	sortClips(clips)
	if m.ShiftFrames > 0 {
		for i, j := 0, len(clips)-1; i < j; i, j = i+1, j-1 {
			clips[i], clips[j] = clips[j], clips[i]
		}
	}
	for _, c := range clips {
		c.Start = c.Start.Add(shift)
		v.clips[c.ID] = c
	}
	return nil
}

// Reload replaces the entire view contents from the backing store. Used
// when a command does not emit mutations.
func (v *View) Reload(src Source) error {
	tracks, err := src.LoadTracks()
	if err != nil {
		return fmt.Errorf("reload tracks: %w", err)
	}
	media, err := src.LoadMedia()
	if err != nil {
		return fmt.Errorf("reload media: %w", err)
	}
	clips, err := src.LoadClips()
	if err != nil {
		return fmt.Errorf("reload clips: %w", err)
	}

	v.tracks = make(map[string]Track, len(tracks))
	v.media = make(map[string]Media, len(media))
	v.clips = make(map[string]Clip, len(clips))
	for _, t := range tracks {
		v.tracks[t.ID] = t
	}
	for _, m := range media {
		v.media[m.ID] = m
	}
	for _, c := range clips {
		v.clips[c.ID] = c
	}
	return nil
}

// CheckNonOverlap verifies that no two enabled clips on any video track
// occupy intersecting intervals.
func (v *View) CheckNonOverlap() error {
	for _, t := range v.Tracks() {
		if t.Kind != TrackVideo {
			continue
		}
		var prev *Clip
		for _, c := range v.TrackClips(t.ID) {
			if !c.Enabled {
				continue
			}
			c := c
			if prev != nil && prev.End().Compare(c.Start) > 0 {
				return fmt.Errorf("track %s: clips %s and %s overlap", t.ID, prev.ID, c.ID)
			}
			prev = &c
		}
	}
	return nil
}
