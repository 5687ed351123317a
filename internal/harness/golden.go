package harness

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/jve-editor/core/internal/canon"
)

// snapshotDocument builds the canonical document a golden file pins:
// the step trace, the final head and the full final state.
func snapshotDocument(name string, res *Result) canon.Object {
	steps := canon.Array{}
	for _, st := range res.Steps {
		entry := canon.Object{
			"kind": canon.String(st.Kind),
			"seq":  canon.Int(st.Seq),
		}
		if st.Error != "" {
			entry["error"] = canon.String(st.Error)
		}
		steps = append(steps, entry)
	}
	return canon.Object{
		"scenario":    canon.String(name),
		"head":        canon.Int(res.Head),
		"steps":       steps,
		"final_state": canon.StateDocument(res.Manager.View()),
	}
}

// RunGolden loads a scenario, runs it against a throwaway database and
// asserts its canonical snapshot against testdata/golden/<name>.golden.
// Regenerate with: go test ./internal/harness -update
func RunGolden(t *testing.T, scenarioPath string) {
	t.Helper()

	s, err := LoadScenario(scenarioPath)
	if err != nil {
		t.Fatalf("load scenario: %v", err)
	}
	res, err := Run(context.Background(), s, filepath.Join(t.TempDir(), "scenario.db"))
	if err != nil {
		t.Fatalf("run scenario %s: %v", s.Name, err)
	}

	data, err := canon.Marshal(snapshotDocument(s.Name, res))
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, s.Name, data)
}
