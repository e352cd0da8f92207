package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"suitedriver/internal/exitcodes"
)

func TestRunUsage(t *testing.T) {
	testCases := []struct {
		description string
		args        []string
		want        int
	}{
		{"no operation", nil, exitcodes.InvalidConfig},
		{"unknown operation", []string{"bogus"}, exitcodes.InvalidConfig},
		{"trailing arguments", []string{"clean", "extra"}, exitcodes.InvalidConfig},
		{"unknown flag", []string{"-frobnicate", "clean"}, exitcodes.InvalidConfig},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			if got := run(tc.args); got != tc.want {
				t.Errorf("run(%v) = %d, want %d", tc.args, got, tc.want)
			}
		})
	}
}

func TestRunClean(t *testing.T) {
	dir := t.TempDir()
	testDir := filepath.Join(dir, "test")
	outDir := filepath.Join(dir, "out")
	if err := os.MkdirAll(testDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(outDir, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}
	artifact := filepath.Join(testDir, "sim_output.csv")
	if err := os.WriteFile(artifact, []byte("1,2"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfgPath := writeMainConfig(t, dir, fmt.Sprintf(
		"test_dir: %s\nartifact_pattern: \"*output*.csv\"\noutput_dir: %s\n", testDir, outDir))

	if got := run([]string{"-config", cfgPath, "clean"}); got != exitcodes.Success {
		t.Fatalf("clean exited %d, want %d", got, exitcodes.Success)
	}
	if _, err := os.Stat(artifact); !os.IsNotExist(err) {
		t.Error("artifact survived the clean")
	}
	if _, err := os.Stat(outDir); !os.IsNotExist(err) {
		t.Error("output dir survived the clean")
	}

	// Idempotent.
	if got := run([]string{"-config", cfgPath, "clean"}); got != exitcodes.Success {
		t.Errorf("second clean exited %d, want %d", got, exitcodes.Success)
	}
}

func TestRunTestFailurePropagates(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}

	dir := t.TempDir()
	testDir := filepath.Join(dir, "test")
	if err := os.MkdirAll(testDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(testDir, "test_ok.sh"), []byte("exit 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(testDir, "test_bad.sh"), []byte("exit 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfgPath := writeMainConfig(t, dir, fmt.Sprintf(
		"test_dir: %s\ntest_pattern: \"test_*.sh\"\ninterpreter: sh\n", testDir))

	if got := run([]string{"-config", cfgPath, "test"}); got != exitcodes.SuiteFailure {
		t.Errorf("test exited %d, want %d", got, exitcodes.SuiteFailure)
	}

	// Remove the failing file; the suite now passes.
	if err := os.Remove(filepath.Join(testDir, "test_bad.sh")); err != nil {
		t.Fatal(err)
	}
	if got := run([]string{"-config", cfgPath, "test"}); got != exitcodes.Success {
		t.Errorf("test exited %d, want %d", got, exitcodes.Success)
	}
}

func writeMainConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "suitedriver.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
