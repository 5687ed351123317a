// Package harness runs YAML conformance scenarios against the command
// engine and compares the outcome trace and final state against golden
// files. Scenarios are the executable form of the editing semantics:
// each one seeds a sequence, drives a flow of commands and navigation,
// and pins the exact resulting timeline.
package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines one conformance scenario.
type Scenario struct {
	// Name uniquely identifies the scenario; the golden file carries it.
	Name string `yaml:"name"`

	// Description explains what the scenario pins down.
	Description string `yaml:"description"`

	// Sequence seeds the project: rate, tracks and media.
	Sequence SequenceSpec `yaml:"sequence"`

	// Flow is the ordered list of steps to drive.
	Flow []Step `yaml:"flow"`
}

// SequenceSpec seeds the sequence a scenario runs against.
type SequenceSpec struct {
	Rate   RateSpec    `yaml:"rate"`
	Tracks []TrackSpec `yaml:"tracks"`
	Media  []MediaSpec `yaml:"media,omitempty"`
}

// RateSpec is the sequence frame rate.
type RateSpec struct {
	Num int64 `yaml:"num"`
	Den int64 `yaml:"den"`
}

// TrackSpec seeds one track.
type TrackSpec struct {
	ID    string `yaml:"id"`
	Kind  string `yaml:"kind"`
	Order int    `yaml:"order"`
}

// MediaSpec seeds one media asset. Duration is in frames at the
// sequence rate.
type MediaSpec struct {
	ID       string `yaml:"id"`
	Path     string `yaml:"path"`
	Duration int64  `yaml:"duration"`
}

// Step is one flow entry: either a command with parameters or a
// navigation (undo, redo, checkout). Exactly one of the step kinds may
// be set.
type Step struct {
	// Command is the command type to execute.
	Command string `yaml:"command,omitempty"`

	// Params are the command parameters in the schema's shape. Times
	// are rational triples {frames, rate_num, rate_den}.
	Params map[string]any `yaml:"params,omitempty"`

	Undo bool `yaml:"undo,omitempty"`
	Redo bool `yaml:"redo,omitempty"`

	// Checkout moves the head to an explicit sequence number.
	Checkout *int64 `yaml:"checkout,omitempty"`

	// Expect declares the step's expected failure. A step with no
	// expectation must succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect declares an expected step failure by error class.
type Expect struct {
	// Error is one of "precondition", "type_mismatch", "validation",
	// "nothing_to_undo", "nothing_to_redo".
	Error string `yaml:"error"`
}

// LoadScenario reads and parses a scenario file. Unknown YAML fields
// are rejected so a typo'd key fails loudly instead of silently
// skipping an assertion.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var s Scenario
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &s, nil
}

func (s *Scenario) validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Sequence.Rate.Num <= 0 || s.Sequence.Rate.Den <= 0 {
		return fmt.Errorf("sequence.rate must be positive")
	}
	if len(s.Sequence.Tracks) == 0 {
		return fmt.Errorf("sequence.tracks is required")
	}
	for i, t := range s.Sequence.Tracks {
		if t.ID == "" {
			return fmt.Errorf("sequence.tracks[%d]: id is required", i)
		}
		if t.Kind != "video" && t.Kind != "audio" {
			return fmt.Errorf("sequence.tracks[%d]: kind %q is not video or audio", i, t.Kind)
		}
	}
	for i, m := range s.Sequence.Media {
		if m.ID == "" {
			return fmt.Errorf("sequence.media[%d]: id is required", i)
		}
		if m.Duration <= 0 {
			return fmt.Errorf("sequence.media[%d]: duration must be positive", i)
		}
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow is required")
	}
	for i, st := range s.Flow {
		kinds := 0
		if st.Command != "" {
			kinds++
		}
		if st.Undo {
			kinds++
		}
		if st.Redo {
			kinds++
		}
		if st.Checkout != nil {
			kinds++
		}
		if kinds != 1 {
			return fmt.Errorf("flow[%d]: exactly one of command, undo, redo, checkout", i)
		}
		if st.Command == "" && st.Params != nil {
			return fmt.Errorf("flow[%d]: params without a command", i)
		}
		if st.Expect != nil && st.Expect.Error == "" {
			return fmt.Errorf("flow[%d].expect: error is required", i)
		}
	}
	return nil
}
