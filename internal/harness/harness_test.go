package harness

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jve-editor/core/internal/canon"
	"github.com/jve-editor/core/internal/cmdspec"
	"github.com/jve-editor/core/internal/timeline"
)

func TestScenarioGoldens(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) == 0 {
		t.Fatal("no scenarios under testdata/scenarios")
	}
	for _, p := range paths {
		name := strings.TrimSuffix(filepath.Base(p), ".yaml")
		t.Run(name, func(t *testing.T) {
			RunGolden(t, p)
		})
	}
}

func TestRunIsDeterministic(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/insert-occlusion-split.yaml")
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	first, err := Run(ctx, s, filepath.Join(t.TempDir(), "one.db"))
	if err != nil {
		t.Fatal(err)
	}
	second, err := Run(ctx, s, filepath.Join(t.TempDir(), "two.db"))
	if err != nil {
		t.Fatal(err)
	}

	if first.Head != second.Head {
		t.Errorf("heads differ: %d vs %d", first.Head, second.Head)
	}
	h1, err := canon.StateHash(first.Manager.View())
	if err != nil {
		t.Fatal(err)
	}
	h2, err := canon.StateHash(second.Manager.View())
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Errorf("state hashes differ:\n%s\n%s", h1, h2)
	}
}

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const scenarioHeader = `name: test
description: test scenario
sequence:
  rate: {num: 30, den: 1}
  tracks:
    - {id: v1, kind: video, order: 0}
`

func TestLoadScenarioRejectsUnknownField(t *testing.T) {
	path := writeScenario(t, scenarioHeader+`flows:
  - undo: true
`)
	if _, err := LoadScenario(path); err == nil {
		t.Error("typo'd top-level key accepted")
	}
}

func TestLoadScenarioRejectsAmbiguousStep(t *testing.T) {
	path := writeScenario(t, scenarioHeader+`flow:
  - command: delete_clip
    undo: true
`)
	if _, err := LoadScenario(path); err == nil {
		t.Error("step with two kinds accepted")
	}
}

func TestLoadScenarioRejectsBadTrackKind(t *testing.T) {
	path := writeScenario(t, `name: test
description: test scenario
sequence:
  rate: {num: 30, den: 1}
  tracks:
    - {id: v1, kind: subtitle, order: 0}
flow:
  - undo: true
`)
	if _, err := LoadScenario(path); err == nil {
		t.Error("unknown track kind accepted")
	}
}

func TestClassify(t *testing.T) {
	cases := map[string]struct {
		err  error
		want string
	}{
		"precondition":  {timeline.Preconditionf("op", "f", "bad"), ErrClassPrecondition},
		"type_mismatch": {&timeline.TypeMismatchError{ClipID: "a"}, ErrClassTypeMismatch},
		"validation":    {cmdspec.ValidationError{Command: "x"}, ErrClassValidation},
		"unknown_type":  {cmdspec.UnknownCommandError{Type: "x"}, ErrClassValidation},
		"other":         {errors.New("boom"), "error"},
	}
	for name, tc := range cases {
		if got := classify(tc.err); got != tc.want {
			t.Errorf("%s: classify = %q, want %q", name, got, tc.want)
		}
	}
}

func TestToParamsRejectsFloats(t *testing.T) {
	if _, err := toParams(map[string]any{"delta": 1.5}); err == nil {
		t.Error("float parameter accepted")
	}
}
