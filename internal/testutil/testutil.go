// Package testutil holds small helpers shared across the module's
// package-level test files: temp-file plumbing and randomized-but-
// reproducible-within-a-run salts, mirroring the teacher's test/utils
// conventions.
package testutil

import (
	"math/rand"
	"os"
	"testing"
)

// Salt is mixed into test key/page values so suites don't accidentally
// depend on hardcoded numbers lining up with internal constants.
var Salt int32 = int32(rand.Intn(1000)) + 1

// TempFile creates a uniquely-named file in the OS temp directory for
// a test to use as backing storage, removing it once the test
// completes.
func TempFile(t *testing.T, pattern string) string {
	t.Helper()
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		t.Fatal(err)
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Remove(name) })
	return name
}

// TempDir creates a uniquely-named directory for a test's index/
// relation files, removing it (recursively) once the test completes.
func TempDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "pagedb-test-*")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return dir
}
