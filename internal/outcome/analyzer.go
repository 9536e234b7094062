package outcome

import (
	"context"
	"fmt"
	"time"

	"github.com/catalyst-trading/catalyst-engine/internal/learning"
	"github.com/catalyst-trading/catalyst-engine/internal/observ"
	"github.com/catalyst-trading/catalyst-engine/internal/pattern"
	"github.com/catalyst-trading/catalyst-engine/internal/store"
	"github.com/catalyst-trading/catalyst-engine/internal/trade"
)

// returns this close to zero are a SCRATCH, not a win or loss
const scratchBand = 0.005

// learning runs every learnEvery-th resolved trade for a pattern
const learnEvery = 5

// Analysis is the post-mortem attached to a resolved trade.
type Analysis struct {
	Outcome             trade.Outcome `json:"outcome"`
	ActualReturn        float64       `json:"actual_return"`
	MinutesToResolution int           `json:"minutes_to_resolution"`
	FailureReasons      []string      `json:"failure_reasons,omitempty"`
	SuccessFactors      []string      `json:"success_factors,omitempty"`
	Lessons             []string      `json:"lessons,omitempty"`
	Improvements        []string      `json:"improvements,omitempty"`
}

// Resolution is everything Resolve produced: the final trade record, its
// analysis, and the learning report when this resolution triggered a pass.
type Resolution struct {
	Trade    *trade.Record    `json:"trade"`
	Analysis Analysis         `json:"analysis"`
	Learning *learning.Report `json:"learning,omitempty"`
}

// Analyzer closes out trades. Resolve is the only path from PENDING to a
// terminal outcome, and the only caller of the learning engine.
type Analyzer struct {
	store   store.Store
	ledger  *trade.Ledger
	learner *learning.Engine
}

func New(st store.Store, ledger *trade.Ledger, learner *learning.Engine) *Analyzer {
	return &Analyzer{store: st, ledger: ledger, learner: learner}
}

// Resolve finalizes one trade. maxFavorable and maxAdverse are the largest
// excursions in the trade's favor and against it, as fractions of entry;
// callers without excursion data pass nil and the realized move stands in.
// Pattern counters, the trade row, and any learning output commit together
// under the pattern's lock, so concurrent resolutions for one pattern cannot
// lose updates.
func (a *Analyzer) Resolve(ctx context.Context, tradeID string, exitPrice float64, maxFavorable, maxAdverse *float64, exitTime time.Time) (*Resolution, error) {
	rec, err := a.lookup(ctx, tradeID)
	if err != nil {
		return nil, err
	}
	if exitPrice <= 0 {
		return nil, fmt.Errorf("trade %s: invalid exit price %.4f", tradeID, exitPrice)
	}
	if exitTime.IsZero() {
		exitTime = time.Now().UTC()
	}

	ret := (exitPrice - rec.EntryPrice) / rec.EntryPrice
	if rec.Direction == pattern.Short {
		ret = -ret
	}

	rec.Outcome = classify(rec, exitPrice, ret)
	rec.ExitPrice = exitPrice
	rec.ExitTime = exitTime
	rec.ActualReturn = ret
	rec.MaxFavorable = excursion(maxFavorable, ret)
	rec.MaxAdverse = excursion(maxAdverse, -ret)
	rec.MinutesToResolution = int(exitTime.Sub(rec.EntryTime).Minutes())

	switch rec.Outcome {
	case trade.OutcomeLoss:
		rec.FailureReasons = failureReasons(rec)
		rec.Lessons, rec.Improvements = lessonsFor(rec.FailureReasons)
	case trade.OutcomeWin:
		rec.Lessons = successFactors(rec)
	}

	var report *learning.Report
	err = a.store.WithPatternLock(rec.PatternName, func() error {
		p, err := a.store.GetPattern(ctx, rec.PatternName)
		if err != nil {
			return err
		}

		// the terminal row must land before a learning pass so the pass
		// sees this trade in its sample
		if err := a.store.SaveTrade(ctx, rec); err != nil {
			return err
		}

		p.RecordResolution(string(rec.Outcome), ret, rec.VIXRegime, rec.TimeBucket, rec.Weekday)

		if p.TotalTrades >= learnEvery && p.TotalTrades%learnEvery == 0 {
			report, err = a.learner.Learn(ctx, p)
			if err != nil {
				return err
			}
		}
		return a.store.SavePattern(ctx, p)
	})
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", tradeID, err)
	}
	a.ledger.Remove(tradeID)

	observ.IncCounter("trades_resolved", map[string]string{
		"pattern": rec.PatternName,
		"outcome": string(rec.Outcome),
	})
	observ.Log("trade_resolved", map[string]any{
		"trade_id": rec.ID,
		"pattern":  rec.PatternName,
		"outcome":  string(rec.Outcome),
		"return":   ret,
		"minutes":  rec.MinutesToResolution,
	})

	analysis := Analysis{
		Outcome:             rec.Outcome,
		ActualReturn:        ret,
		MinutesToResolution: rec.MinutesToResolution,
		FailureReasons:      rec.FailureReasons,
		Improvements:        rec.Improvements,
	}
	// wins record success factors in the lessons slot; surface them under
	// their own key in the analysis
	if rec.Outcome == trade.OutcomeWin {
		analysis.SuccessFactors = rec.Lessons
	} else {
		analysis.Lessons = rec.Lessons
	}

	return &Resolution{Trade: rec, Analysis: analysis, Learning: report}, nil
}

// lookup prefers the live ledger; when the process restarted since entry, it
// falls back to the persisted row. Only PENDING rows qualify, so a trade can
// never resolve twice.
func (a *Analyzer) lookup(ctx context.Context, tradeID string) (*trade.Record, error) {
	if rec, ok := a.ledger.Get(tradeID); ok {
		return rec, nil
	}
	rows, err := a.store.TradesForPattern(ctx, "", 1000)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", tradeID, err)
	}
	for _, row := range rows {
		if row.ID == tradeID && row.Outcome == trade.OutcomePending {
			rec := row.Clone()
			rec.Reconstructed = true
			observ.Warn("trade_reconstructed", map[string]any{"trade_id": tradeID})
			return rec, nil
		}
	}
	return nil, fmt.Errorf("lookup %s: %w", tradeID, store.ErrTradeNotFound)
}

// classify checks target, then stop, then the sign of the return with a
// scratch band around zero.
func classify(rec *trade.Record, exitPrice, ret float64) trade.Outcome {
	hitTarget := exitPrice >= rec.TargetPrice
	hitStop := exitPrice <= rec.StopPrice
	if rec.Direction == pattern.Short {
		hitTarget = exitPrice <= rec.TargetPrice
		hitStop = exitPrice >= rec.StopPrice
	}
	switch {
	case hitTarget:
		return trade.OutcomeWin
	case hitStop:
		return trade.OutcomeLoss
	case ret > scratchBand:
		return trade.OutcomeWin
	case ret < -scratchBand:
		return trade.OutcomeLoss
	default:
		return trade.OutcomeScratch
	}
}

// excursion prefers the caller-supplied value; absent that, the realized move
// (floored at zero) is the only excursion known.
func excursion(supplied *float64, realized float64) float64 {
	if supplied != nil {
		return *supplied
	}
	if realized > 0 {
		return realized
	}
	return 0
}

func failureReasons(rec *trade.Record) []string {
	var reasons []string
	stopDist := rec.StopPrice - rec.EntryPrice
	if stopDist < 0 {
		stopDist = -stopDist
	}
	stopDist /= rec.EntryPrice

	if rec.MaxFavorable >= 0.01 {
		reasons = append(reasons, "REVERSAL")
	}
	if stopDist > 0 && rec.MaxAdverse >= 0.9*stopDist {
		reasons = append(reasons, "STOP_TOO_TIGHT")
	}
	if rec.TimeBucket == pattern.BucketOpen && rec.MinutesToResolution < 30 {
		reasons = append(reasons, "OPEN_VOLATILITY")
	}
	if rec.TimeBucket == pattern.BucketClose {
		reasons = append(reasons, "END_OF_DAY")
	}
	// fighting the volatility regime: long into panic, short into calm
	if (rec.Direction == pattern.Long && rec.VIXRegime == pattern.RegimeHighFear) ||
		(rec.Direction == pattern.Short && rec.VIXRegime == pattern.RegimeComplacent) {
		reasons = append(reasons, "VIX_MISMATCH")
	}
	if rec.PatternScore < 1.5 {
		reasons = append(reasons, "WEAK_CATALYST")
	}
	if rec.OptionType != "" && rec.DaysToExpiry < 3 {
		reasons = append(reasons, "THETA_DECAY")
	}
	if rec.IVAtEntry != nil && *rec.IVAtEntry > 50 {
		reasons = append(reasons, "IV_CRUSH_RISK")
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "MARKET_CONDITIONS")
	}
	return reasons
}

var failureLessons = map[string][2]string{
	"REVERSAL":          {"Price moved favorably before reversing; the move was real but the hold was too long", "Consider taking partial profits on the initial move"},
	"STOP_TOO_TIGHT":    {"Adverse excursion nearly equaled the planned stop; normal noise is stopping this pattern out", "Widen stop distance by 25%"},
	"OPEN_VOLATILITY":   {"Opening range volatility hit the stop within 30 minutes", "Delay entries until the opening range settles"},
	"END_OF_DAY":        {"Entry in the closing hour left no time for the move to develop", "Avoid new entries in the last trading hour"},
	"VIX_MISMATCH":      {"Volatility regime differed from where this pattern performs best", "Require the preferred regime before acting on this pattern"},
	"WEAK_CATALYST":     {"Pattern fired on a low-scoring catalyst", "Raise the minimum score for this pattern"},
	"THETA_DECAY":       {"Short-dated option lost premium faster than the underlying moved", "Use longer-dated expirations"},
	"IV_CRUSH_RISK":     {"Elevated implied volatility at entry made the option expensive", "Prefer spreads when entry IV exceeds 50"},
	"MARKET_CONDITIONS": {"No specific failure signature; broad conditions moved against the trade", ""},
}

func lessonsFor(reasons []string) (lessons, improvements []string) {
	for _, r := range reasons {
		pair, ok := failureLessons[r]
		if !ok {
			continue
		}
		lessons = append(lessons, pair[0])
		if pair[1] != "" {
			improvements = append(improvements, pair[1])
		}
	}
	return lessons, improvements
}

func successFactors(rec *trade.Record) []string {
	var factors []string
	if rec.MinutesToResolution < 60 {
		factors = append(factors, "QUICK_MOVE")
	}
	if rec.Direction == pattern.Long && rec.VIXRegime == pattern.RegimeNormal {
		factors = append(factors, "FAVORABLE_REGIME")
	}
	if rec.PatternScore >= 2.0 {
		factors = append(factors, "HIGH_CONVICTION")
	}
	if rec.PatternWinRateAtEntry >= 0.60 {
		factors = append(factors, "PROVEN_PATTERN")
	}
	targetDist := rec.TargetPrice - rec.EntryPrice
	if targetDist < 0 {
		targetDist = -targetDist
	}
	if rec.MaxFavorable > 1.2*targetDist/rec.EntryPrice {
		factors = append(factors, "EXCEEDED_TARGET")
	}
	return factors
}
