package pattern

import (
	"testing"
	"time"
)

func TestWinRate_DefaultsToHalf(t *testing.T) {
	p := New("fed_dovish", []string{"fed"}, Long, []string{"SPY"}, 1.5)
	if got := p.WinRate(); got != 0.5 {
		t.Fatalf("want 0.5 for unproven pattern, got %.2f", got)
	}
}

func TestEffectiveWeight_TiersAfterTenTrades(t *testing.T) {
	p := New("fed_dovish", []string{"fed"}, Long, []string{"SPY"}, 1.5)
	p.TotalTrades = 10
	p.Wins = 7 // 70% clears the 0.65 tier
	if got, want := p.EffectiveWeight(), 1.5*1.3; got != want {
		t.Fatalf("want %.3f, got %.3f", want, got)
	}

	p.Wins = 3 // 30% hits the bottom tier
	if got, want := p.EffectiveWeight(), 1.5*0.7; got != want {
		t.Fatalf("want %.3f, got %.3f", want, got)
	}
}

func TestEffectiveWeight_IgnoresTiersBelowTenTrades(t *testing.T) {
	p := New("x", []string{"x"}, Long, []string{"SPY"}, 1.5)
	p.TotalTrades = 9
	p.Wins = 9
	if got := p.EffectiveWeight(); got != 1.5 {
		t.Fatalf("want base weight 1.5 before 10 trades, got %.3f", got)
	}
}

func TestEffectiveWeight_Clamped(t *testing.T) {
	p := New("hot", []string{"x"}, Long, []string{"SPY"}, 2.8)
	p.TotalTrades = 20
	p.Wins = 18
	if got := p.EffectiveWeight(); got != 3.0 {
		t.Fatalf("want clamp at 3.0, got %.3f", got)
	}

	p = New("cold", []string{"x"}, Long, []string{"SPY"}, 0.35)
	p.TotalTrades = 20
	p.Wins = 2
	if got := p.EffectiveWeight(); got != 0.3 {
		t.Fatalf("want clamp at 0.3, got %.3f", got)
	}
}

func TestRecordResolution_CountersAndBuckets(t *testing.T) {
	p := New("x", []string{"x"}, Long, []string{"SPY"}, 1.0)
	p.RecordResolution("WIN", 0.03, RegimeNormal, BucketMorning, time.Monday)
	p.RecordResolution("LOSS", -0.02, RegimeNormal, BucketMorning, time.Monday)
	p.RecordResolution("SCRATCH", 0.001, RegimeElevated, BucketOpen, time.Friday)

	if p.TotalTrades != 3 || p.Wins != 1 || p.Losses != 1 || p.Scratches != 1 {
		t.Fatalf("counters off: total=%d w=%d l=%d s=%d", p.TotalTrades, p.Wins, p.Losses, p.Scratches)
	}
	if p.TotalTrades != p.Wins+p.Losses+p.Scratches {
		t.Fatalf("counter invariant broken")
	}
	if got := len(p.ReturnsByVIX[RegimeNormal]); got != 2 {
		t.Fatalf("want 2 NORMAL returns, got %d", got)
	}
	if got := len(p.ReturnsByDay[time.Monday]); got != 2 {
		t.Fatalf("want 2 Monday returns, got %d", got)
	}
}

func TestAppendAdjustment_BoundedHistory(t *testing.T) {
	p := New("x", []string{"x"}, Long, []string{"SPY"}, 1.0)
	for i := 0; i < maxAdjustmentHistory+10; i++ {
		p.AppendAdjustment(Adjustment{TradesAnalyzed: i})
	}
	if got := len(p.Adjustments); got != maxAdjustmentHistory {
		t.Fatalf("want history capped at %d, got %d", maxAdjustmentHistory, got)
	}
	// oldest entries dropped, newest kept
	if got := p.Adjustments[len(p.Adjustments)-1].TradesAnalyzed; got != maxAdjustmentHistory+9 {
		t.Fatalf("want newest entry kept, got %d", got)
	}
}

func TestClone_Independent(t *testing.T) {
	p := New("x", []string{"x"}, Long, []string{"SPY"}, 1.0)
	p.VIXMultipliers[RegimeNormal] = 1.2
	cp := p.Clone()
	cp.VIXMultipliers[RegimeNormal] = 9
	cp.Keywords[0] = "mutated"

	if p.VIXMultipliers[RegimeNormal] != 1.2 {
		t.Fatalf("clone aliased multiplier map")
	}
	if p.Keywords[0] != "x" {
		t.Fatalf("clone aliased keywords")
	}
}
