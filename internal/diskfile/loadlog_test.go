package diskfile_test

import (
	"testing"

	"pagedb/internal/diskfile"
	"pagedb/internal/testutil"
)

func TestLoadLog(t *testing.T) {
	path := testutil.TempFile(t, "*.log")
	log, err := diskfile.OpenLoadLog(path)
	if err != nil {
		t.Fatal("OpenLoadLog failed:", err)
	}

	lines := []string{"key=1 rid=1,0", "key=2 rid=1,1", "key=3 rid=2,0"}
	for _, line := range lines {
		if err := log.Append(line); err != nil {
			t.Fatal("Append failed:", err)
		}
	}
	if err := log.Close(); err != nil {
		t.Fatal("Close failed:", err)
	}

	got, err := diskfile.TailLines(path, 2)
	if err != nil {
		t.Fatal("TailLines failed:", err)
	}
	want := lines[1:]
	if len(got) != len(want) {
		t.Fatalf("TailLines returned %d lines, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("TailLines()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
