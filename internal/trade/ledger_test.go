package trade

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/catalyst-trading/catalyst-engine/internal/pattern"
)

func testRecord(id string, entry time.Time) *Record {
	return &Record{
		ID:          id,
		PatternName: "fed_dovish",
		Symbol:      "QQQ",
		Direction:   pattern.Long,
		EntryPrice:  100,
		EntryTime:   entry,
		Outcome:     OutcomePending,
	}
}

func TestLedger_AddGetCopies(t *testing.T) {
	l := NewLedger()
	rec := testRecord("abc", time.Now())
	l.Add(rec)

	rec.Symbol = "MUTATED"
	got, ok := l.Get("abc")
	if !ok {
		t.Fatal("record missing")
	}
	if got.Symbol != "QQQ" {
		t.Fatalf("ledger aliased caller's record: %s", got.Symbol)
	}

	got.FailureReasons = append(got.FailureReasons, "X")
	again, _ := l.Get("abc")
	if len(again.FailureReasons) != 0 {
		t.Fatal("ledger handed out a live slice")
	}
}

func TestLedger_RemoveAndLen(t *testing.T) {
	l := NewLedger()
	l.Add(testRecord("a", time.Now()))
	l.Add(testRecord("b", time.Now()))
	if l.Len() != 2 {
		t.Fatalf("want 2, got %d", l.Len())
	}
	l.Remove("a")
	if _, ok := l.Get("a"); ok {
		t.Fatal("removed record still present")
	}
	if l.Len() != 1 {
		t.Fatalf("want 1, got %d", l.Len())
	}
}

func TestLedger_ListNewestFirst(t *testing.T) {
	l := NewLedger()
	base := time.Now()
	l.Add(testRecord("old", base.Add(-time.Hour)))
	l.Add(testRecord("new", base))

	out := l.List()
	if out[0].ID != "new" || out[1].ID != "old" {
		t.Fatalf("want newest first, got %s then %s", out[0].ID, out[1].ID)
	}
}

func TestLedger_ConcurrentUse(t *testing.T) {
	l := NewLedger()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("t%02d", i)
			l.Add(testRecord(id, time.Now()))
			l.List()
			l.Get(id)
			if i%2 == 0 {
				l.Remove(id)
			}
		}(i)
	}
	wg.Wait()
	if l.Len() != 25 {
		t.Fatalf("want 25 remaining, got %d", l.Len())
	}
}

func TestRecord_Validate(t *testing.T) {
	rec := testRecord("abc", time.Now())
	if err := rec.Validate(); err != nil {
		t.Fatalf("valid record rejected: %v", err)
	}

	bad := testRecord("", time.Now())
	if err := bad.Validate(); err == nil {
		t.Fatal("missing id accepted")
	}
	bad = testRecord("x", time.Now())
	bad.EntryPrice = 0
	if err := bad.Validate(); err == nil {
		t.Fatal("zero entry price accepted")
	}
	bad = testRecord("x", time.Now())
	bad.Direction = "UP"
	if err := bad.Validate(); err == nil {
		t.Fatal("bad direction accepted")
	}
}

func TestNewID_ShortAndUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewID()
		if len(id) != 8 {
			t.Fatalf("want 8-char id, got %q", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}
