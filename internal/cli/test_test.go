package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scenarioDir points at the harness conformance scenarios.
const scenarioDir = "../harness/testdata/scenarios"

func TestRunAllScenarios(t *testing.T) {
	out, err := runCLI(t, "test", scenarioDir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ All scenarios passed")
	assert.Contains(t, out, "0 failed")
}

func TestRunScenariosWithFilter(t *testing.T) {
	out, err := runCLI(t, "test", scenarioDir, "--filter", "ripple-*")
	require.NoError(t, err)
	assert.Contains(t, out, "ripple-out-extend")
	assert.Contains(t, out, "ripple-clamp-media")
	assert.NotContains(t, out, "roll-shared-boundary")
}

func TestRunScenariosJSON(t *testing.T) {
	out, err := runCLI(t, "test", scenarioDir, "--format", "json")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, data["total"], data["passed"])
	assert.Equal(t, float64(0), data["failed"])
}

func TestRunScenariosMissingDir(t *testing.T) {
	_, err := runCLI(t, "test", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunScenarioFailureExitCode(t *testing.T) {
	dir := t.TempDir()
	// A step that expects an error but succeeds must fail the scenario.
	body := `name: broken
description: expectation mismatch
sequence:
  rate: {num: 30, den: 1}
  tracks:
    - {id: v1, kind: video, order: 0}
  media:
    - {id: m1, path: /assets/m1.mov, duration: 1000}
flow:
  - command: insert_clip
    params:
      clip_id: a
      track_id: v1
      media_id: m1
      start: {frames: 0, rate_num: 30, rate_den: 1}
      duration: {frames: 30, rate_num: 30, rate_den: 1}
      source_in: {frames: 0, rate_num: 30, rate_den: 1}
    expect:
      error: precondition
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte(body), 0o644))

	out, err := runCLI(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ broken")
	assert.Contains(t, out, "1 failed")
}
