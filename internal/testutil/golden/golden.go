// Package golden compares rendered output with files under a test's testdata
// directory. Run tests with -update to rewrite the files.
package golden

import (
	"flag"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

var Update = flag.Bool("update", false, "update golden files")

// TestdataDir returns the testdata directory next to the calling test file.
func TestdataDir(t *testing.T) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(1)
	if !ok {
		t.Fatalf("runtime.Caller failed")
	}
	return filepath.Join(filepath.Dir(filename), "testdata")
}

// Assert compares got with <dir>/<name>.golden, rewriting the file first
// when -update is set.
func Assert(t *testing.T, dir, name, got string) {
	t.Helper()
	if *Update {
		Write(t, dir, name, got)
	}
	want, ok := Read(t, dir, name)
	if !ok {
		t.Fatalf("missing golden file %s.golden; run with -update", name)
	}
	if got != want {
		t.Errorf("%s mismatch:\nGOT:\n%s\nWANT:\n%s", name, got, want)
	}
}

// Read returns the golden content and whether the file exists.
func Read(t *testing.T, dir, name string) (string, bool) {
	t.Helper()
	safeName(t, name)

	path := filepath.Join(dir, name+".golden")
	data, err := os.ReadFile(path) //nolint:gosec // testdata path controlled by test
	if os.IsNotExist(err) {
		return "", false
	}
	if err != nil {
		t.Fatalf("read golden %s: %v", path, err)
	}
	return string(data), true
}

func Write(t *testing.T, dir, name, content string) {
	t.Helper()
	safeName(t, name)

	if err := os.MkdirAll(dir, 0o750); err != nil {
		t.Fatalf("mkdir testdata: %v", err)
	}
	path := filepath.Join(dir, name+".golden")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write golden %s: %v", path, err)
	}
}

func safeName(t *testing.T, name string) {
	t.Helper()
	if strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		t.Fatalf("invalid golden name %q", name)
	}
}
