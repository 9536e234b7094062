package learning

import (
	"context"
	"fmt"
	"time"

	"github.com/catalyst-trading/catalyst-engine/internal/observ"
	"github.com/catalyst-trading/catalyst-engine/internal/pattern"
	"github.com/catalyst-trading/catalyst-engine/internal/store"
	"github.com/catalyst-trading/catalyst-engine/internal/trade"
)

const (
	StatusOK               = "ok"
	StatusInsufficientData = "insufficient_data"

	minTradesForLearning = 5
	confidenceGate       = 0.70
	// continuous parameters move only when the candidate differs by more
	// than half a percentage point
	minContinuousDelta = 0.005

	maxStopPct   = 0.05
	maxTargetPct = 0.08
)

// Parameters is the post-pass snapshot returned to callers.
type Parameters struct {
	BaseWeight       float64            `json:"base_weight"`
	OptimalStopPct   float64            `json:"optimal_stop_pct"`
	OptimalTargetPct float64            `json:"optimal_target_pct"`
	BestVIXRegime    pattern.VIXRegime  `json:"best_vix_regime,omitempty"`
	BestTimeBucket   pattern.TimeBucket `json:"best_time_bucket,omitempty"`
	WinRate          float64            `json:"win_rate"`
	Version          int                `json:"version"`
}

// Report describes one learning pass.
type Report struct {
	Status         string           `json:"status"`
	Pattern        string           `json:"pattern"`
	TradesAnalyzed int              `json:"trades_analyzed"`
	Adjustments    []pattern.Change `json:"adjustments"`
	NewParameters  Parameters       `json:"new_parameters"`
}

// Engine re-estimates a pattern's parameters from its resolved trades. Learn
// mutates the pattern in place and logs audit events, but does not save the
// pattern row; the caller commits all changes in a single write, under the
// store's per-pattern lock.
type Engine struct {
	store       store.Store
	sampleLimit int
}

func NewEngine(st store.Store, sampleLimit int) *Engine {
	if sampleLimit <= 0 {
		sampleLimit = 100
	}
	return &Engine{store: st, sampleLimit: sampleLimit}
}

// Learn runs every dimension against the pattern's resolved-trade history.
// A dimension applies only when its confidence clears the gate; continuous
// values additionally need a move bigger than minContinuousDelta, categorical
// values a best label different from the current one.
func (e *Engine) Learn(ctx context.Context, p *pattern.Pattern) (*Report, error) {
	all, err := e.store.TradesForPattern(ctx, p.Name, e.sampleLimit)
	if err != nil {
		return nil, fmt.Errorf("learn %s: %w", p.Name, err)
	}
	var resolved []*trade.Record
	for _, t := range all {
		if t.Outcome.Terminal() {
			resolved = append(resolved, t)
		}
	}
	if len(resolved) < minTradesForLearning {
		return &Report{Status: StatusInsufficientData, Pattern: p.Name, TradesAnalyzed: len(resolved)}, nil
	}

	now := time.Now().UTC()
	var changes []pattern.Change
	var events []pattern.LearningEvent

	record := func(dimension, old, new, reason string, confidence float64) {
		changes = append(changes, pattern.Change{Dimension: dimension, Old: old, New: new, Reason: reason})
		events = append(events, pattern.LearningEvent{
			PatternName:    p.Name,
			Dimension:      dimension,
			OldValue:       old,
			NewValue:       new,
			Reason:         reason,
			TradesAnalyzed: len(resolved),
			Confidence:     confidence,
			Timestamp:      now,
		})
	}

	// VIX regime preference
	if vix := analyzeByVIX(resolved); vix.best != "" && vix.confidence > confidenceGate {
		old := p.BestVIXRegime
		p.BestVIXRegime = vix.best
		p.VIXMultipliers = vix.multipliers
		if old != vix.best {
			record("VIX_REGIME", string(old), string(vix.best), vix.reason, vix.confidence)
		}
	}

	// Time-of-day preference
	if tod := analyzeByTime(resolved); tod.best != "" && tod.confidence > confidenceGate {
		old := p.BestTimeBucket
		p.BestTimeBucket = tod.best
		p.WorstTimeBucket = tod.worst
		p.TimeMultipliers = tod.multipliers
		if old != tod.best {
			record("TIME_OF_DAY", string(old), string(tod.best), tod.reason, tod.confidence)
		}
	}

	// Stop distance
	if sa := analyzeStops(resolved); sa.candidate > 0 && sa.confidence > confidenceGate {
		if diff := sa.candidate - p.OptimalStopPct; diff > minContinuousDelta || diff < -minContinuousDelta {
			old := p.OptimalStopPct
			p.OptimalStopPct = sa.candidate
			record("STOP_DISTANCE", pct(old), pct(sa.candidate), sa.reason, sa.confidence)
		}
	}

	// Target distance
	if ta := analyzeTargets(resolved); ta.candidate > 0 && ta.confidence > confidenceGate {
		if diff := ta.candidate - p.OptimalTargetPct; diff > minContinuousDelta || diff < -minContinuousDelta {
			old := p.OptimalTargetPct
			p.OptimalTargetPct = ta.candidate
			record("TARGET_DISTANCE", pct(old), pct(ta.candidate), ta.reason, ta.confidence)
		}
	}

	// Weekday multipliers carry no best/worst label and apply whenever the
	// buckets have enough trades.
	if dm := analyzeByDay(resolved); len(dm) > 0 {
		p.DayMultipliers = dm
	}

	// Base weight retiers on a slower cadence: only once the pattern has a
	// 20-trade record, and with no confidence gate.
	if p.TotalTrades >= 20 {
		wins := 0
		totalRet := 0.0
		for _, t := range resolved {
			if t.Outcome == trade.OutcomeWin {
				wins++
			}
			totalRet += t.ActualReturn
		}
		winRate := float64(wins) / float64(len(resolved))
		avgReturn := totalRet / float64(len(resolved))

		old := p.BaseWeight
		switch {
		case winRate >= 0.70 && avgReturn > 0.02:
			p.BaseWeight = min(3.0, old*1.2)
		case winRate >= 0.60 && avgReturn > 0.01:
			p.BaseWeight = min(2.5, old*1.1)
		case winRate < 0.40:
			p.BaseWeight = max(0.3, old*0.7)
		case winRate < 0.50:
			p.BaseWeight = max(0.5, old*0.85)
		}
		if p.BaseWeight != old {
			record("BASE_WEIGHT", fmt.Sprintf("%.2f", old), fmt.Sprintf("%.2f", p.BaseWeight),
				fmt.Sprintf("win rate %s, avg return %s over %d trades", pct(winRate), pct(avgReturn), len(resolved)), 1)
		}
	}

	p.AppendAdjustment(pattern.Adjustment{Timestamp: now, TradesAnalyzed: len(resolved), Changes: changes})
	p.Version++
	p.LastUpdated = now

	for _, ev := range events {
		if err := e.store.LogLearningEvent(ctx, ev); err != nil {
			return nil, fmt.Errorf("learn %s: %w", p.Name, err)
		}
		observ.IncCounter("learning_adjustments", map[string]string{"dimension": ev.Dimension})
	}
	observ.Log("learning_pass", map[string]any{
		"pattern":         p.Name,
		"version":         p.Version,
		"trades_analyzed": len(resolved),
		"adjustments":     len(changes),
	})

	return &Report{
		Status:         StatusOK,
		Pattern:        p.Name,
		TradesAnalyzed: len(resolved),
		Adjustments:    changes,
		NewParameters: Parameters{
			BaseWeight:       p.BaseWeight,
			OptimalStopPct:   p.OptimalStopPct,
			OptimalTargetPct: p.OptimalTargetPct,
			BestVIXRegime:    p.BestVIXRegime,
			BestTimeBucket:   p.BestTimeBucket,
			WinRate:          p.WinRate(),
			Version:          p.Version,
		},
	}, nil
}

func pct(x float64) string {
	return fmt.Sprintf("%.1f%%", x*100)
}
