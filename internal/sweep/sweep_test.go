package sweep

import (
	"errors"
	"log"
	"os"
	"path/filepath"
	"testing"

	"suitedriver/internal/fsops"
	"suitedriver/internal/metrics"
)

func init() {
	// Initialize metrics once for all tests
	metrics.Init()
}

func TestSweepEmptyMatchIsNoOp(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, tmpDir, "test_keep.py", "print()")

	fake := &fsops.FakeDeleter{}
	sweeper := NewSweeper(log.Default(), false)
	sweeper.SetDeleter(fake)

	res, err := sweeper.Sweep(tmpDir, "*output*.csv")
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if !res.OK() || len(res.Removed) != 0 {
		t.Errorf("expected empty no-op result, got %+v", res)
	}
	if len(fake.Calls) != 0 {
		t.Errorf("expected 0 delete calls on empty match, got %v", fake.Calls)
	}
}

func TestSweepDeletesOnlyMatches(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, tmpDir, "sim_output_data.csv", "1,2,3")
	writeFile(t, tmpDir, "planner_output.csv", "4,5")
	writeFile(t, tmpDir, "test_sim.py", "print()")
	writeFile(t, tmpDir, "fixture.csv", "6")

	sweeper := NewSweeper(log.Default(), false)

	res, err := sweeper.Sweep(tmpDir, "*output*.csv")
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if len(res.Removed) != 2 {
		t.Fatalf("expected 2 removals, got %+v", res.Removed)
	}
	if res.BytesFreed != 8 {
		t.Errorf("BytesFreed = %d, want 8", res.BytesFreed)
	}

	for _, name := range []string{"test_sim.py", "fixture.csv"} {
		if _, err := os.Stat(filepath.Join(tmpDir, name)); err != nil {
			t.Errorf("%s should have survived the sweep: %v", name, err)
		}
	}
	for _, name := range []string{"sim_output_data.csv", "planner_output.csv"} {
		if _, err := os.Stat(filepath.Join(tmpDir, name)); !os.IsNotExist(err) {
			t.Errorf("%s should have been deleted", name)
		}
	}
}

func TestSweepReachesNestedArtifacts(t *testing.T) {
	tmpDir := t.TempDir()
	nested := filepath.Join(tmpDir, "cases")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFile(t, tmpDir, "run_output.csv", "1")
	writeFile(t, nested, "sim_output.csv", "22")
	writeFile(t, nested, "test_case.py", "#")

	sweeper := NewSweeper(log.Default(), false)
	res, err := sweeper.Sweep(tmpDir, "*output*.csv")
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	if len(res.Removed) != 2 || res.BytesFreed != 3 {
		t.Errorf("expected 2 removals freeing 3 bytes, got %+v", res)
	}
	if _, err := os.Stat(filepath.Join(nested, "sim_output.csv")); !os.IsNotExist(err) {
		t.Error("nested artifact should have been deleted")
	}
	if _, err := os.Stat(filepath.Join(nested, "test_case.py")); err != nil {
		t.Errorf("nested test file should have survived: %v", err)
	}
}

func TestSweepTwiceIsIdempotent(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, tmpDir, "run_output.csv", "x")

	sweeper := NewSweeper(log.Default(), false)

	if _, err := sweeper.Sweep(tmpDir, "*output*.csv"); err != nil {
		t.Fatalf("first Sweep failed: %v", err)
	}

	res, err := sweeper.Sweep(tmpDir, "*output*.csv")
	if err != nil {
		t.Fatalf("second Sweep failed: %v", err)
	}
	if len(res.Removed) != 0 || !res.OK() {
		t.Errorf("second sweep should be a no-op, got %+v", res)
	}
}

func TestSweepContinuesPastFailures(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, tmpDir, "a_output.csv", "a")
	writeFile(t, tmpDir, "b_output.csv", "b")
	writeFile(t, tmpDir, "c_output.csv", "c")

	locked := filepath.Join(tmpDir, "b_output.csv")
	fake := &fsops.FakeDeleter{
		FailOn: map[string]error{locked: errors.New("permission denied")},
	}
	sweeper := NewSweeper(log.Default(), false)
	sweeper.SetDeleter(fake)

	res, err := sweeper.Sweep(tmpDir, "*output*.csv")
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	// All three were attempted despite the middle one failing.
	if len(fake.Calls) != 3 {
		t.Errorf("expected 3 delete attempts, got %v", fake.Calls)
	}
	if len(res.Removed) != 2 {
		t.Errorf("expected 2 removals, got %+v", res.Removed)
	}
	if len(res.Failures) != 1 || res.Failures[0].Path != locked {
		t.Errorf("expected one failure for %s, got %+v", locked, res.Failures)
	}
	if res.OK() {
		t.Error("result with failures must not report OK")
	}
}

// TestDryRunNeverDeletes proves the dry-run contract:
// when dryRun=true, zero delete syscalls must occur.
func TestDryRunNeverDeletes(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, tmpDir, "a_output.csv", "a")
	writeFile(t, tmpDir, "b_output.csv", "b")

	fake := &fsops.FakeDeleter{}
	sweeper := NewSweeper(log.Default(), true)
	sweeper.SetDeleter(fake)

	res, err := sweeper.Sweep(tmpDir, "*output*.csv")
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if err := sweeper.RemoveOutputDir(tmpDir); err != nil {
		t.Fatalf("RemoveOutputDir failed: %v", err)
	}

	if len(fake.Calls) != 0 {
		t.Errorf("DRY-RUN VIOLATION: expected 0 delete calls, got %v", fake.Calls)
	}
	// Dry run still reports what it would have deleted, sizes included.
	if len(res.Removed) != 2 {
		t.Errorf("expected 2 would-delete entries, got %+v", res.Removed)
	}
	if res.BytesFreed != 2 {
		t.Errorf("BytesFreed = %d, want 2 (sum of would-delete sizes)", res.BytesFreed)
	}
}

func TestSweepMissingDirectoryIsFatal(t *testing.T) {
	sweeper := NewSweeper(log.Default(), false)
	if _, err := sweeper.Sweep(filepath.Join(t.TempDir(), "absent"), "*"); err == nil {
		t.Fatal("Sweep succeeded on missing directory, want error")
	}
}

func TestRemoveOutputDirMissingIsSuccess(t *testing.T) {
	sweeper := NewSweeper(log.Default(), false)
	if err := sweeper.RemoveOutputDir(filepath.Join(t.TempDir(), "out")); err != nil {
		t.Fatalf("RemoveOutputDir on missing path: %v", err)
	}
}

func TestRemoveOutputDirLeavesNoTrace(t *testing.T) {
	tmpDir := t.TempDir()
	out := filepath.Join(tmpDir, "out")
	if err := os.MkdirAll(filepath.Join(out, "nested", "deep"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFile(t, filepath.Join(out, "nested"), "data.bin", "xx")

	sweeper := NewSweeper(log.Default(), false)
	if err := sweeper.RemoveOutputDir(out); err != nil {
		t.Fatalf("RemoveOutputDir failed: %v", err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("output directory still present after removal")
	}

	// Second removal of the now-absent tree still succeeds.
	if err := sweeper.RemoveOutputDir(out); err != nil {
		t.Fatalf("repeat RemoveOutputDir failed: %v", err)
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}
