package main

import (
	"os"
	"path/filepath"
	"testing"
)

const doctorTestAssignmentsYAML = `
schema_version: v1.0.0
devices:
  NutrientPumpA:
    board: 0
    index: 0
`

// TestRunPreflightAllPass mirrors the donor's override-global-then-restore
// test pattern (cmd/vc/stop_test.go): dataDir is a package-level var the
// whole command tree reads, so the test points it at a scratch directory
// and restores it afterward.
func TestRunPreflightAllPass(t *testing.T) {
	originalDataDir := dataDir
	dataDir = t.TempDir()
	defer func() { dataDir = originalDataDir }()

	if err := os.WriteFile(assignmentsPath(), []byte(doctorTestAssignmentsYAML), 0o644); err != nil {
		t.Fatalf("failed to write assignments fixture: %v", err)
	}

	for _, c := range runPreflight() {
		if c.err != nil {
			t.Errorf("preflight check %q failed: %v", c.name, c.err)
		}
	}
}

func TestRunPreflightMissingAssignmentsFails(t *testing.T) {
	originalDataDir := dataDir
	dataDir = t.TempDir()
	defer func() { dataDir = originalDataDir }()

	var sawAssignmentsFailure bool
	for _, c := range runPreflight() {
		if c.name == "relay assignment map loads" && c.err != nil {
			sawAssignmentsFailure = true
		}
	}
	if !sawAssignmentsFailure {
		t.Error("expected the relay assignment check to fail with no assignments file present")
	}
}

func TestDataDirDerivedPaths(t *testing.T) {
	originalDataDir := dataDir
	dataDir = "/tmp/ripple-test"
	defer func() { dataDir = originalDataDir }()

	if got, want := configPath(), filepath.Join(dataDir, "ripple.ini"); got != want {
		t.Errorf("configPath() = %q, want %q", got, want)
	}
	if got, want := jobStorePath(), filepath.Join(dataDir, "jobs.db"); got != want {
		t.Errorf("jobStorePath() = %q, want %q", got, want)
	}
}
