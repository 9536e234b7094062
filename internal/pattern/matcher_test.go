package pattern

import (
	"math"
	"testing"
	"time"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestMatch_SingleKeywordFiresOnOneHit(t *testing.T) {
	p := New("tariff", []string{"tariff"}, Short, []string{"SPY"}, 1.0)
	m := NewMatcher([]*Pattern{p})

	results := m.Match("White House announces new tariff schedule", nil)
	if len(results) != 1 {
		t.Fatalf("want 1 match, got %d", len(results))
	}
	if !almostEqual(results[0].Score, 1.0) {
		t.Fatalf("want score 1.0, got %.4f", results[0].Score)
	}
}

func TestMatch_MultiKeywordNeedsTwoHits(t *testing.T) {
	p := New("fed_dovish", []string{"rate cut", "dovish", "pivot", "pause", "easing"}, Long, []string{"QQQ"}, 2.0)
	m := NewMatcher([]*Pattern{p})

	if got := m.Match("Fed considers a pause", nil); len(got) != 0 {
		t.Fatalf("one hit of five keywords should not fire, got %d matches", len(got))
	}
	if got := m.Match("Fed signals rate cut and dovish pivot ahead", nil); len(got) != 1 {
		t.Fatalf("three hits should fire, got %d matches", len(got))
	}
}

func TestMatch_ScoreIsHitFractionTimesWeight(t *testing.T) {
	p := New("fed_dovish", []string{"rate cut", "dovish", "pivot", "pause", "easing"}, Long, []string{"QQQ"}, 2.0)
	m := NewMatcher([]*Pattern{p})

	results := m.Match("Fed signals rate cut and dovish pivot ahead", nil)
	want := (3.0 / 5.0) * 2.0
	if !almostEqual(results[0].Score, want) {
		t.Fatalf("want score %.4f, got %.4f", want, results[0].Score)
	}
}

func TestMatch_ContextMultipliersApply(t *testing.T) {
	p := New("vix_spike", []string{"vix"}, Long, []string{"VXX"}, 1.0)
	p.VIXMultipliers[RegimeHighFear] = 1.5
	p.TimeMultipliers[BucketOpen] = 1.2
	p.DayMultipliers[time.Friday] = 0.8
	m := NewMatcher([]*Pattern{p})

	ctx := &Context{VIXRegime: RegimeHighFear, TimeBucket: BucketOpen, Weekday: time.Friday}
	results := m.Match("vix surges", ctx)
	want := 1.0 * 1.5 * 1.2 * 0.8
	if !almostEqual(results[0].Score, want) {
		t.Fatalf("want score %.4f, got %.4f", want, results[0].Score)
	}

	// unknown dimensions default to 1x
	results = m.Match("vix surges", &Context{VIXRegime: RegimeNormal, TimeBucket: BucketMidday, Weekday: time.Monday})
	if !almostEqual(results[0].Score, 1.0) {
		t.Fatalf("want neutral context score 1.0, got %.4f", results[0].Score)
	}
}

func TestMatch_SortedByScoreDescending(t *testing.T) {
	weak := New("weak", []string{"selloff"}, Short, []string{"SPY"}, 0.5)
	strong := New("strong", []string{"selloff"}, Short, []string{"QQQ"}, 2.0)
	m := NewMatcher([]*Pattern{weak, strong})

	results := m.Match("global selloff deepens", nil)
	if len(results) != 2 {
		t.Fatalf("want 2 matches, got %d", len(results))
	}
	if results[0].Pattern != "strong" || results[1].Pattern != "weak" {
		t.Fatalf("want strong first, got %s then %s", results[0].Pattern, results[1].Pattern)
	}
}

func TestMatch_TiesKeepSnapshotOrder(t *testing.T) {
	a := New("first", []string{"selloff"}, Short, []string{"SPY"}, 1.0)
	b := New("second", []string{"selloff"}, Short, []string{"QQQ"}, 1.0)
	m := NewMatcher([]*Pattern{a, b})

	results := m.Match("global selloff deepens", nil)
	if results[0].Pattern != "first" || results[1].Pattern != "second" {
		t.Fatalf("tie should keep order, got %s then %s", results[0].Pattern, results[1].Pattern)
	}
}

func TestMatch_CaseInsensitive(t *testing.T) {
	p := New("tariff", []string{"tariff"}, Short, []string{"SPY"}, 1.0)
	m := NewMatcher([]*Pattern{p})
	if got := m.Match("TARIFF THREAT ESCALATES", nil); len(got) != 1 {
		t.Fatalf("match should be case-insensitive, got %d matches", len(got))
	}
}

func TestReload_SwapsSnapshot(t *testing.T) {
	m := NewMatcher([]*Pattern{New("old", []string{"tariff"}, Short, []string{"SPY"}, 1.0)})
	m.Reload([]*Pattern{New("new", []string{"tariff"}, Short, []string{"SPY"}, 1.0)})
	results := m.Match("tariff news", nil)
	if len(results) != 1 || results[0].Pattern != "new" {
		t.Fatalf("reload did not swap snapshot: %+v", results)
	}
}

func TestSeeds_AllValid(t *testing.T) {
	seeds := Seeds()
	if len(seeds) == 0 {
		t.Fatal("no seed patterns")
	}
	names := map[string]bool{}
	for _, p := range seeds {
		if names[p.Name] {
			t.Fatalf("duplicate seed name %s", p.Name)
		}
		names[p.Name] = true
		if len(p.Keywords) == 0 || len(p.Symbols) == 0 {
			t.Fatalf("seed %s missing keywords or symbols", p.Name)
		}
		if p.Direction != Long && p.Direction != Short {
			t.Fatalf("seed %s has invalid direction %q", p.Name, p.Direction)
		}
		if p.BaseWeight <= 0 {
			t.Fatalf("seed %s has non-positive weight", p.Name)
		}
	}
}
