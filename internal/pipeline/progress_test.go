package pipeline

import (
	"sync"
	"testing"
)

func TestProgressLog_AppendAndSnapshot(t *testing.T) {
	log := NewProgressLog()
	log.Reset("run-1")

	log.Append("fetch", "fetching %d items", 10)
	log.Append("cluster", "grouping")

	entries := log.Snapshot()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Tag != "fetch" || entries[0].Message != "fetching 10 items" {
		t.Errorf("first entry: %+v", entries[0])
	}
	if log.Session() != "run-1" {
		t.Errorf("session: %q", log.Session())
	}
}

func TestProgressLog_ResetClears(t *testing.T) {
	log := NewProgressLog()
	log.Reset("run-1")
	log.Append("fetch", "one")

	log.Reset("run-2")
	if log.Len() != 0 {
		t.Errorf("reset must clear entries, got %d", log.Len())
	}
	if log.Session() != "run-2" {
		t.Errorf("session: %q", log.Session())
	}
}

func TestProgressLog_SnapshotIsPrefix(t *testing.T) {
	// A poller that saw N entries sees them unchanged in every later
	// snapshot.
	log := NewProgressLog()
	log.Reset("run-1")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			log.Append("stage", "event %d", i)
		}
	}()

	var prev []Entry
	for i := 0; i < 20; i++ {
		cur := log.Snapshot()
		if len(cur) < len(prev) {
			t.Fatalf("log shrank from %d to %d", len(prev), len(cur))
		}
		for j := range prev {
			if cur[j] != prev[j] {
				t.Fatalf("entry %d changed between snapshots", j)
			}
		}
		prev = cur
	}
	wg.Wait()
}

func TestProgressLog_SnapshotIsCopy(t *testing.T) {
	log := NewProgressLog()
	log.Reset("run-1")
	log.Append("fetch", "one")

	snap := log.Snapshot()
	snap[0].Message = "mutated"

	if log.Snapshot()[0].Message != "one" {
		t.Error("snapshot must be a copy, not a view")
	}
}
