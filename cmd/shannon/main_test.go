package main

import (
	"os"
	"path/filepath"
	"testing"
)

// Grounded on the teacher's cmd/sentra main_test.go style of driving the
// CLI's run() helper directly against a temp source file rather than
// forking a subprocess.

func writeSource(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "main.sn")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writeSource: %v", err)
	}
	return path
}

func TestRunOrdinalResult(t *testing.T) {
	path := writeSource(t, `queenBee.result = 9;`)
	if code := run(path); code != 9 {
		t.Fatalf("run: expected exit code 9, got %d", code)
	}
}

func TestRunVoidResult(t *testing.T) {
	path := writeSource(t, `let x: int = 1;`)
	if code := run(path); code != 0 {
		t.Fatalf("run: expected exit code 0 for an untouched result, got %d", code)
	}
}

func TestRunStringResult(t *testing.T) {
	path := writeSource(t, `queenBee.result = "hi";`)
	if code := run(path); code != 102 {
		t.Fatalf("run: expected exit code 102 for a string result, got %d", code)
	}
}

func TestRunUncaughtRuntimeError(t *testing.T) {
	path := writeSource(t, `queenBee.result = 1 / 0;`)
	if code := run(path); code != 101 {
		t.Fatalf("run: expected exit code 101 for an uncaught runtime error, got %d", code)
	}
}

func TestRunMissingFile(t *testing.T) {
	if code := run(filepath.Join(t.TempDir(), "nope.sn")); code != 101 {
		t.Fatalf("run: expected exit code 101 for a missing source file, got %d", code)
	}
}
