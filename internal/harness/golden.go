package harness

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// TraceSnapshot captures what a scenario run produced.
// Struct field order fixes the JSON layout, so snapshots are stable.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	RunID        string       `json:"run_id"`
	Success      bool         `json:"success"`
	Sink         string       `json:"sink"`
	Trace        []TraceEvent `json:"trace"`
	Diagnostics  []string     `json:"diagnostics"`
}

// Snapshot renders the golden form of a run: indented JSON with a
// trailing newline and empty lists instead of null.
func Snapshot(name string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{
		ScenarioName: name,
		RunID:        result.RunID,
		Success:      result.Success,
		Sink:         result.Sink,
		Trace:        result.Trace,
		Diagnostics:  result.Diagnostics,
	}
	if snapshot.Trace == nil {
		snapshot.Trace = []TraceEvent{}
	}
	if snapshot.Diagnostics == nil {
		snapshot.Diagnostics = []string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snapshot); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RunWithGolden executes a scenario and compares the run against a golden
// file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
