package cmdlog

import (
	"fmt"

	"github.com/jve-editor/core/internal/canon"
	"github.com/jve-editor/core/internal/rational"
	"github.com/jve-editor/core/internal/timeline"
)

// Parameter extraction. The schema validates shape before any of these
// run, so a failure here means the schema and an executor disagree; it
// surfaces as a plain error, never a precondition.

func getString(o canon.Object, key string) (string, error) {
	v, ok := o[key]
	if !ok {
		return "", fmt.Errorf("param %s: missing", key)
	}
	s, ok := v.(canon.String)
	if !ok {
		return "", fmt.Errorf("param %s: not a string", key)
	}
	return string(s), nil
}

// optString returns "" for an absent key.
func optString(o canon.Object, key string) (string, error) {
	if _, ok := o[key]; !ok {
		return "", nil
	}
	return getString(o, key)
}

func getInt(o canon.Object, key string) (int64, error) {
	v, ok := o[key]
	if !ok {
		return 0, fmt.Errorf("param %s: missing", key)
	}
	n, ok := v.(canon.Int)
	if !ok {
		return 0, fmt.Errorf("param %s: not an integer", key)
	}
	return int64(n), nil
}

func getBool(o canon.Object, key string) (bool, error) {
	v, ok := o[key]
	if !ok {
		return false, fmt.Errorf("param %s: missing", key)
	}
	b, ok := v.(canon.Bool)
	if !ok {
		return false, fmt.Errorf("param %s: not a bool", key)
	}
	return bool(b), nil
}

// optBool returns def for an absent key.
func optBool(o canon.Object, key string, def bool) (bool, error) {
	if _, ok := o[key]; !ok {
		return def, nil
	}
	return getBool(o, key)
}

func getObject(o canon.Object, key string) (canon.Object, error) {
	v, ok := o[key]
	if !ok {
		return nil, fmt.Errorf("param %s: missing", key)
	}
	sub, ok := v.(canon.Object)
	if !ok {
		return nil, fmt.Errorf("param %s: not an object", key)
	}
	return sub, nil
}

func getArray(o canon.Object, key string) (canon.Array, error) {
	v, ok := o[key]
	if !ok {
		return nil, fmt.Errorf("param %s: missing", key)
	}
	arr, ok := v.(canon.Array)
	if !ok {
		return nil, fmt.Errorf("param %s: not an array", key)
	}
	return arr, nil
}

// getTime decodes a rational time triple {frames, rate_num, rate_den}.
func getTime(o canon.Object, key string) (rational.Time, error) {
	sub, err := getObject(o, key)
	if err != nil {
		return rational.Time{}, err
	}
	frames, err := getInt(sub, "frames")
	if err != nil {
		return rational.Time{}, fmt.Errorf("param %s: %w", key, err)
	}
	num, err := getInt(sub, "rate_num")
	if err != nil {
		return rational.Time{}, fmt.Errorf("param %s: %w", key, err)
	}
	den, err := getInt(sub, "rate_den")
	if err != nil {
		return rational.Time{}, fmt.Errorf("param %s: %w", key, err)
	}
	t, err := rational.New(frames, num, den)
	if err != nil {
		return rational.Time{}, fmt.Errorf("param %s: %w", key, err)
	}
	return t, nil
}

func edgeFrom(v canon.Value) (timeline.Edge, error) {
	o, ok := v.(canon.Object)
	if !ok {
		return timeline.Edge{}, fmt.Errorf("edge: not an object")
	}
	clipID, err := getString(o, "clip_id")
	if err != nil {
		return timeline.Edge{}, err
	}
	typ, err := getString(o, "type")
	if err != nil {
		return timeline.Edge{}, err
	}
	trim, err := getString(o, "trim")
	if err != nil {
		return timeline.Edge{}, err
	}
	return timeline.Edge{
		ClipID: clipID,
		Type:   timeline.EdgeType(typ),
		Trim:   timeline.TrimType(trim),
	}, nil
}

func getEdge(o canon.Object, key string) (timeline.Edge, error) {
	v, ok := o[key]
	if !ok {
		return timeline.Edge{}, fmt.Errorf("param %s: missing", key)
	}
	e, err := edgeFrom(v)
	if err != nil {
		return timeline.Edge{}, fmt.Errorf("param %s: %w", key, err)
	}
	return e, nil
}

func getEdges(o canon.Object, key string) ([]timeline.Edge, error) {
	arr, err := getArray(o, key)
	if err != nil {
		return nil, err
	}
	out := make([]timeline.Edge, 0, len(arr))
	for i, v := range arr {
		e, err := edgeFrom(v)
		if err != nil {
			return nil, fmt.Errorf("param %s[%d]: %w", key, i, err)
		}
		out = append(out, e)
	}
	return out, nil
}

func getStrings(o canon.Object, key string) ([]string, error) {
	arr, err := getArray(o, key)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(arr))
	for i, v := range arr {
		s, ok := v.(canon.String)
		if !ok {
			return nil, fmt.Errorf("param %s[%d]: not a string", key, i)
		}
		out = append(out, string(s))
	}
	return out, nil
}
