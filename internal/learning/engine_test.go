package learning

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/catalyst-trading/catalyst-engine/internal/pattern"
	"github.com/catalyst-trading/catalyst-engine/internal/store"
	"github.com/catalyst-trading/catalyst-engine/internal/trade"
)

type tradeSpec struct {
	outcome      trade.Outcome
	ret          float64
	regime       pattern.VIXRegime
	bucket       pattern.TimeBucket
	stopPrice    float64
	targetPrice  float64
	maxFavorable float64
	maxAdverse   float64
}

func seedTrades(t *testing.T, st store.Store, patternName string, specs []tradeSpec) {
	t.Helper()
	base := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)
	for i, s := range specs {
		rec := &trade.Record{
			ID:           fmt.Sprintf("t%03d", i),
			PatternName:  patternName,
			Symbol:       "SPY",
			Direction:    pattern.Long,
			EntryPrice:   100,
			EntryTime:    base.Add(time.Duration(i) * time.Minute),
			StopPrice:    s.stopPrice,
			TargetPrice:  s.targetPrice,
			VIXRegime:    s.regime,
			TimeBucket:   s.bucket,
			Outcome:      s.outcome,
			ActualReturn: s.ret,
			MaxFavorable: s.maxFavorable,
			MaxAdverse:   s.maxAdverse,
		}
		if rec.StopPrice == 0 {
			rec.StopPrice = 98
		}
		if rec.TargetPrice == 0 {
			rec.TargetPrice = 103
		}
		if err := st.SaveTrade(context.Background(), rec); err != nil {
			t.Fatalf("seed trade: %v", err)
		}
	}
}

func TestLearn_InsufficientData(t *testing.T) {
	st := store.NewMemory()
	eng := NewEngine(st, 0)
	p := pattern.New("fed_dovish", []string{"dovish"}, pattern.Long, []string{"QQQ"}, 2.0)

	seedTrades(t, st, "fed_dovish", []tradeSpec{
		{outcome: trade.OutcomeWin, ret: 0.03},
		{outcome: trade.OutcomeLoss, ret: -0.02},
		{outcome: trade.OutcomePending}, // pending trades never count
		{outcome: trade.OutcomeWin, ret: 0.01},
		{outcome: trade.OutcomeScratch, ret: 0.001},
	})

	rep, err := eng.Learn(context.Background(), p)
	if err != nil {
		t.Fatalf("learn: %v", err)
	}
	if rep.Status != StatusInsufficientData {
		t.Fatalf("want %s, got %s", StatusInsufficientData, rep.Status)
	}
	if rep.TradesAnalyzed != 4 {
		t.Fatalf("want 4 resolved trades counted, got %d", rep.TradesAnalyzed)
	}
	if p.Version != 1 {
		t.Fatalf("insufficient data must not bump version, got %d", p.Version)
	}
}

func TestLearn_VIXRegimePreference(t *testing.T) {
	st := store.NewMemory()
	eng := NewEngine(st, 0)
	p := pattern.New("vix_spike", []string{"vix"}, pattern.Long, []string{"VXX"}, 1.5)

	// 12 decisive wins in HIGH_FEAR, 4 losses in COMPLACENT: 16 decisive
	// trades gives confidence 0.8, clearing the gate.
	var specs []tradeSpec
	for i := 0; i < 12; i++ {
		specs = append(specs, tradeSpec{outcome: trade.OutcomeWin, ret: 0.03, regime: pattern.RegimeHighFear})
	}
	for i := 0; i < 4; i++ {
		specs = append(specs, tradeSpec{outcome: trade.OutcomeLoss, ret: -0.02, regime: pattern.RegimeComplacent})
	}
	seedTrades(t, st, "vix_spike", specs)

	rep, err := eng.Learn(context.Background(), p)
	if err != nil {
		t.Fatalf("learn: %v", err)
	}
	if rep.Status != StatusOK {
		t.Fatalf("want ok, got %s", rep.Status)
	}
	if p.BestVIXRegime != pattern.RegimeHighFear {
		t.Fatalf("want HIGH_FEAR, got %s", p.BestVIXRegime)
	}
	if p.VIXMultipliers[pattern.RegimeHighFear] <= 1 {
		t.Fatalf("winning regime should score above 1x, got %.2f", p.VIXMultipliers[pattern.RegimeHighFear])
	}
	if p.Version != 2 {
		t.Fatalf("want version bump to 2, got %d", p.Version)
	}

	found := false
	for _, c := range rep.Adjustments {
		if c.Dimension == "VIX_REGIME" && c.New == string(pattern.RegimeHighFear) {
			found = true
		}
	}
	if !found {
		t.Fatalf("want VIX_REGIME change recorded, got %+v", rep.Adjustments)
	}

	history, err := st.LearningHistory(context.Background(), "vix_spike", 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) == 0 {
		t.Fatal("applied change must be logged as a learning event")
	}
}

func TestLearn_StopWideningGatedByConfidence(t *testing.T) {
	st := store.NewMemory()
	eng := NewEngine(st, 0)
	p := pattern.New("tariff", []string{"tariff"}, pattern.Long, []string{"SPY"}, 1.0)

	// 5 tight losses: confidence 5/10 = 0.5, below the gate, so the stop
	// must not move even though every loss was tight.
	var specs []tradeSpec
	for i := 0; i < 5; i++ {
		specs = append(specs, tradeSpec{
			outcome:    trade.OutcomeLoss,
			ret:        -0.02,
			stopPrice:  98,    // 2% planned
			maxAdverse: 0.021, // barely beyond the stop
		})
	}
	seedTrades(t, st, "tariff", specs)

	if _, err := eng.Learn(context.Background(), p); err != nil {
		t.Fatalf("learn: %v", err)
	}
	if p.OptimalStopPct != 0.02 {
		t.Fatalf("low-confidence stop learning must not mutate, got %.4f", p.OptimalStopPct)
	}
}

func TestLearn_StopWideningApplied(t *testing.T) {
	st := store.NewMemory()
	eng := NewEngine(st, 0)
	p := pattern.New("tariff", []string{"tariff"}, pattern.Long, []string{"SPY"}, 1.0)

	var specs []tradeSpec
	for i := 0; i < 10; i++ {
		specs = append(specs, tradeSpec{
			outcome:    trade.OutcomeLoss,
			ret:        -0.02,
			stopPrice:  98,
			maxAdverse: 0.021,
		})
	}
	seedTrades(t, st, "tariff", specs)

	rep, err := eng.Learn(context.Background(), p)
	if err != nil {
		t.Fatalf("learn: %v", err)
	}
	// avgPlanned 2%, widened by 1.3x
	if got, want := p.OptimalStopPct, 0.026; got < want-1e-9 || got > want+1e-9 {
		t.Fatalf("want stop widened to %.4f, got %.4f", want, got)
	}
	found := false
	for _, c := range rep.Adjustments {
		if c.Dimension == "STOP_DISTANCE" {
			found = true
		}
	}
	if !found {
		t.Fatalf("want STOP_DISTANCE change, got %+v", rep.Adjustments)
	}
}

func TestLearn_TargetStretchCapped(t *testing.T) {
	st := store.NewMemory()
	eng := NewEngine(st, 0)
	p := pattern.New("momo", []string{"surge"}, pattern.Long, []string{"QQQ"}, 1.0)

	// wins kept running: 3% target, 15% favorable excursion. The candidate
	// 3% + 0.5*12% = 9% must clamp at the 8% cap.
	var specs []tradeSpec
	for i := 0; i < 10; i++ {
		specs = append(specs, tradeSpec{
			outcome:      trade.OutcomeWin,
			ret:          0.03,
			targetPrice:  103,
			maxFavorable: 0.15,
		})
	}
	seedTrades(t, st, "momo", specs)

	if _, err := eng.Learn(context.Background(), p); err != nil {
		t.Fatalf("learn: %v", err)
	}
	if p.OptimalTargetPct != maxTargetPct {
		t.Fatalf("want target capped at %.2f, got %.4f", maxTargetPct, p.OptimalTargetPct)
	}
}

func TestLearn_BaseWeightRetiersAtTwentyTrades(t *testing.T) {
	st := store.NewMemory()
	eng := NewEngine(st, 0)
	p := pattern.New("hot", []string{"surge"}, pattern.Long, []string{"QQQ"}, 1.0)
	p.TotalTrades = 19

	var specs []tradeSpec
	for i := 0; i < 15; i++ {
		specs = append(specs, tradeSpec{outcome: trade.OutcomeWin, ret: 0.04})
	}
	for i := 0; i < 5; i++ {
		specs = append(specs, tradeSpec{outcome: trade.OutcomeLoss, ret: -0.01})
	}
	seedTrades(t, st, "hot", specs)

	if _, err := eng.Learn(context.Background(), p); err != nil {
		t.Fatalf("learn: %v", err)
	}
	if p.BaseWeight != 1.0 {
		t.Fatalf("below 20 lifetime trades weight must hold, got %.2f", p.BaseWeight)
	}

	p.TotalTrades = 20
	if _, err := eng.Learn(context.Background(), p); err != nil {
		t.Fatalf("learn: %v", err)
	}
	// 75% win rate with 2.75% avg return hits the top tier: 1.0 * 1.2
	if got := p.BaseWeight; got < 1.2-1e-9 || got > 1.2+1e-9 {
		t.Fatalf("want base weight 1.2, got %.3f", got)
	}
}

func TestLearn_AlwaysBumpsVersionOnCompletedPass(t *testing.T) {
	st := store.NewMemory()
	eng := NewEngine(st, 0)
	p := pattern.New("quiet", []string{"quiet"}, pattern.Long, []string{"SPY"}, 1.0)

	// five scratches: enough to run a pass, nothing to learn from
	var specs []tradeSpec
	for i := 0; i < 5; i++ {
		specs = append(specs, tradeSpec{outcome: trade.OutcomeScratch, ret: 0})
	}
	seedTrades(t, st, "quiet", specs)

	rep, err := eng.Learn(context.Background(), p)
	if err != nil {
		t.Fatalf("learn: %v", err)
	}
	if rep.Status != StatusOK {
		t.Fatalf("want ok, got %s", rep.Status)
	}
	if len(rep.Adjustments) != 0 {
		t.Fatalf("scratches should produce no changes, got %+v", rep.Adjustments)
	}
	if p.Version != 2 {
		t.Fatalf("completed pass must bump version, got %d", p.Version)
	}
	if len(p.Adjustments) != 1 {
		t.Fatalf("pass must append one adjustment entry, got %d", len(p.Adjustments))
	}
}
