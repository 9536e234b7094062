package journal

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestJournal_AppendsJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "signals.jsonl")
	j, err := New(path)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if err := j.WriteSignal(map[string]string{"trade_id": "abc"}); err != nil {
		t.Fatalf("write signal: %v", err)
	}
	if err := j.WriteResolution(map[string]string{"trade_id": "abc", "outcome": "WIN"}); err != nil {
		t.Fatalf("write resolution: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("bad line: %v", err)
		}
		entries = append(entries, e)
	}
	if len(entries) != 2 {
		t.Fatalf("want 2 lines, got %d", len(entries))
	}
	if entries[0].Type != "signal" || entries[1].Type != "resolution" {
		t.Fatalf("wrong types: %s, %s", entries[0].Type, entries[1].Type)
	}
	if entries[0].Event.IsZero() {
		t.Fatal("event time missing")
	}
}
