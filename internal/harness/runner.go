package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jve-editor/core/internal/canon"
	"github.com/jve-editor/core/internal/cmdlog"
	"github.com/jve-editor/core/internal/cmdspec"
	"github.com/jve-editor/core/internal/rational"
	"github.com/jve-editor/core/internal/store"
	"github.com/jve-editor/core/internal/timeline"
)

// Error classes a scenario step may expect.
const (
	ErrClassPrecondition  = "precondition"
	ErrClassTypeMismatch  = "type_mismatch"
	ErrClassValidation    = "validation"
	ErrClassNothingToUndo = "nothing_to_undo"
	ErrClassNothingToRedo = "nothing_to_redo"
)

// StepOutcome records what one flow step did. For commands Seq is the
// committed sequence number; for navigation it is the resulting head.
// A step that failed as expected records its error class and Seq 0.
type StepOutcome struct {
	Kind  string
	Seq   int64
	Error string
}

// Result is a finished scenario run.
type Result struct {
	Head    int64
	Steps   []StepOutcome
	Manager *cmdlog.Manager
}

// Run seeds a fresh project database at dbPath and drives the
// scenario's flow through the command engine. A step failing without a
// matching expectation, or succeeding despite one, aborts the run.
func Run(ctx context.Context, s *Scenario, dbPath string) (*Result, error) {
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	rate := rational.Rate{Num: s.Sequence.Rate.Num, Den: s.Sequence.Rate.Den}
	if err := st.InitSequence(ctx, store.DefaultSequenceID, s.Name, rate); err != nil {
		return nil, err
	}
	for _, t := range s.Sequence.Tracks {
		track := timeline.Track{ID: t.ID, Kind: timeline.TrackKind(t.Kind), Order: t.Order}
		if err := st.UpsertTrack(ctx, track); err != nil {
			return nil, err
		}
	}
	for _, md := range s.Sequence.Media {
		dur, err := rational.New(md.Duration, rate.Num, rate.Den)
		if err != nil {
			return nil, err
		}
		media := timeline.Media{ID: md.ID, Path: md.Path, Duration: dur}
		if err := st.UpsertMedia(ctx, media); err != nil {
			return nil, err
		}
	}

	m, err := cmdlog.Open(ctx, st)
	if err != nil {
		return nil, err
	}

	res := &Result{Manager: m}
	for i, step := range s.Flow {
		out, err := runStep(ctx, m, step)
		if step.Expect != nil {
			if err == nil {
				return nil, fmt.Errorf("flow[%d] (%s): expected %s error, step succeeded",
					i, out.Kind, step.Expect.Error)
			}
			class := classify(err)
			if class != step.Expect.Error {
				return nil, fmt.Errorf("flow[%d] (%s): expected %s error, got %s: %v",
					i, out.Kind, step.Expect.Error, class, err)
			}
			out.Error = class
		} else if err != nil {
			return nil, fmt.Errorf("flow[%d] (%s): %w", i, out.Kind, err)
		}
		res.Steps = append(res.Steps, out)
	}

	// Every committed log must replay clean before the run counts.
	rep, err := m.Verify(ctx)
	if err != nil {
		return nil, err
	}
	if !rep.Clean() {
		return nil, rep.Divergence
	}

	res.Head = m.Head()
	return res, nil
}

func runStep(ctx context.Context, m *cmdlog.Manager, step Step) (StepOutcome, error) {
	switch {
	case step.Command != "":
		params, err := toParams(step.Params)
		if err != nil {
			return StepOutcome{Kind: step.Command}, err
		}
		cmd, err := m.Execute(ctx, step.Command, params)
		if err != nil {
			return StepOutcome{Kind: step.Command}, err
		}
		return StepOutcome{Kind: step.Command, Seq: cmd.Seq}, nil
	case step.Undo:
		head, err := m.Undo(ctx)
		return StepOutcome{Kind: "undo", Seq: head}, err
	case step.Redo:
		head, err := m.Redo(ctx)
		return StepOutcome{Kind: "redo", Seq: head}, err
	case step.Checkout != nil:
		err := m.Checkout(ctx, *step.Checkout)
		return StepOutcome{Kind: "checkout", Seq: *step.Checkout}, err
	default:
		return StepOutcome{}, fmt.Errorf("empty step")
	}
}

// toParams converts decoded YAML parameters into the canonical value
// model. Floats are rejected on the way in: times are rational triples,
// never seconds.
func toParams(raw map[string]any) (canon.Object, error) {
	if raw == nil {
		return canon.Object{}, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode params: %w", err)
	}
	var o canon.Object
	if err := json.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("decode params: %w", err)
	}
	return o, nil
}

// classify maps an error to the class name scenarios assert on.
func classify(err error) string {
	switch {
	case timeline.IsTypeMismatch(err):
		return ErrClassTypeMismatch
	case timeline.IsPrecondition(err):
		return ErrClassPrecondition
	case cmdlog.IsNothingToUndo(err):
		return ErrClassNothingToUndo
	case cmdlog.IsNothingToRedo(err):
		return ErrClassNothingToRedo
	}
	var ve cmdspec.ValidationError
	var ue cmdspec.UnknownCommandError
	if errors.As(err, &ve) || errors.As(err, &ue) {
		return ErrClassValidation
	}
	return "error"
}
