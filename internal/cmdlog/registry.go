package cmdlog

import (
	"github.com/jve-editor/core/internal/canon"
	"github.com/jve-editor/core/internal/rational"
	"github.com/jve-editor/core/internal/timeline"
)

// Command type names, matching the embedded schema.
const (
	CmdInsertClip     = "insert_clip"
	CmdTrimEdges      = "trim_edges"
	CmdMoveClip       = "move_clip"
	CmdDuplicateBlock = "duplicate_block"
	CmdSplitClip      = "split_clip"
	CmdSetClipEnabled = "set_clip_enabled"
	CmdDeleteClip     = "delete_clip"
	CmdRippleDelete   = "ripple_delete"
	CmdSetPlayhead    = "set_playhead"
	CmdSetSelection   = "set_selection"
)

// execContext is what a planner sees: the pre-state view (read-only),
// the sequence rate, and the sequence number for deterministic id
// derivation.
type execContext struct {
	view *timeline.View
	rate rational.Rate
	seq  int64
}

// handler binds a command type to its planner. Live execution and
// replay run the same planner against the same pre-state, which is the
// whole determinism story: there is no separate replay path to drift.
//
// Non-replayable commands carry no planner; their entire effect is the
// context the log row records.
type handler struct {
	replayable bool
	plan       func(ec execContext, params canon.Object) (timeline.Bucket, error)
}

var handlers = map[string]handler{
	CmdInsertClip:     {replayable: true, plan: planInsertClip},
	CmdTrimEdges:      {replayable: true, plan: planTrimEdges},
	CmdMoveClip:       {replayable: true, plan: planMoveClip},
	CmdDuplicateBlock: {replayable: true, plan: planDuplicateBlock},
	CmdSplitClip:      {replayable: true, plan: planSplitClip},
	CmdSetClipEnabled: {replayable: true, plan: planSetClipEnabled},
	CmdDeleteClip:     {replayable: true, plan: planDeleteClip},
	CmdRippleDelete:   {replayable: true, plan: planRippleDelete},
	CmdSetPlayhead:    {replayable: false},
	CmdSetSelection:   {replayable: false},
}
