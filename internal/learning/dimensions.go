package learning

import (
	"fmt"
	"time"

	"github.com/catalyst-trading/catalyst-engine/internal/pattern"
	"github.com/catalyst-trading/catalyst-engine/internal/trade"
)

// Bucketed dimensions count only decisive outcomes; scratches say nothing
// about whether the context helped or hurt.

type vixAnalysis struct {
	best        pattern.VIXRegime
	worst       pattern.VIXRegime
	bestWinRate float64
	multipliers map[pattern.VIXRegime]float64
	confidence  float64
	reason      string
}

func analyzeByVIX(trades []*trade.Record) vixAnalysis {
	byRegime := map[pattern.VIXRegime][]bool{}
	for _, t := range trades {
		if t.VIXRegime == "" {
			continue
		}
		if t.Outcome == trade.OutcomeWin || t.Outcome == trade.OutcomeLoss {
			byRegime[t.VIXRegime] = append(byRegime[t.VIXRegime], t.Outcome == trade.OutcomeWin)
		}
	}

	stats := map[pattern.VIXRegime]bucketStat{}
	for regime, outcomes := range byRegime {
		if len(outcomes) >= 3 {
			stats[regime] = newBucketStat(outcomes)
		}
	}
	if len(stats) == 0 {
		return vixAnalysis{}
	}

	var best, worst pattern.VIXRegime
	total := 0
	for _, r := range pattern.Regimes() {
		s, ok := stats[r]
		if !ok {
			continue
		}
		total += s.trades
		if best == "" || s.winRate > stats[best].winRate {
			best = r
		}
		if worst == "" || s.winRate < stats[worst].winRate {
			worst = r
		}
	}

	mean := meanWinRate(stats)
	multipliers := map[pattern.VIXRegime]float64{}
	for regime, s := range stats {
		if mean > 0 {
			multipliers[regime] = s.winRate / mean
		} else {
			multipliers[regime] = 1
		}
	}

	return vixAnalysis{
		best:        best,
		worst:       worst,
		bestWinRate: stats[best].winRate,
		multipliers: multipliers,
		confidence:  confidence(total, 20),
		reason:      fmt.Sprintf("%s win rate in %s (%d trades)", pct(stats[best].winRate), best, stats[best].trades),
	}
}

type timeAnalysis struct {
	best        pattern.TimeBucket
	worst       pattern.TimeBucket
	multipliers map[pattern.TimeBucket]float64
	confidence  float64
	reason      string
}

func analyzeByTime(trades []*trade.Record) timeAnalysis {
	byBucket := map[pattern.TimeBucket][]bool{}
	for _, t := range trades {
		if t.TimeBucket == "" {
			continue
		}
		if t.Outcome == trade.OutcomeWin || t.Outcome == trade.OutcomeLoss {
			byBucket[t.TimeBucket] = append(byBucket[t.TimeBucket], t.Outcome == trade.OutcomeWin)
		}
	}

	stats := map[pattern.TimeBucket]bucketStat{}
	for bucket, outcomes := range byBucket {
		if len(outcomes) >= 2 {
			stats[bucket] = newBucketStat(outcomes)
		}
	}
	if len(stats) == 0 {
		return timeAnalysis{}
	}

	var best, worst pattern.TimeBucket
	total := 0
	for _, b := range pattern.TimeBuckets() {
		s, ok := stats[b]
		if !ok {
			continue
		}
		total += s.trades
		if best == "" || s.winRate > stats[best].winRate {
			best = b
		}
		if worst == "" || s.winRate < stats[worst].winRate {
			worst = b
		}
	}

	mean := meanWinRate(stats)
	multipliers := map[pattern.TimeBucket]float64{}
	for bucket, s := range stats {
		if mean > 0 {
			multipliers[bucket] = s.winRate / mean
		} else {
			multipliers[bucket] = 1
		}
	}

	return timeAnalysis{
		best:        best,
		worst:       worst,
		multipliers: multipliers,
		confidence:  confidence(total, 15),
		reason:      fmt.Sprintf("%s win rate at %s", pct(stats[best].winRate), best),
	}
}

func analyzeByDay(trades []*trade.Record) map[time.Weekday]float64 {
	byDay := map[time.Weekday][]bool{}
	for _, t := range trades {
		if t.Outcome == trade.OutcomeWin || t.Outcome == trade.OutcomeLoss {
			byDay[t.Weekday] = append(byDay[t.Weekday], t.Outcome == trade.OutcomeWin)
		}
	}

	rates := map[time.Weekday]float64{}
	for day, outcomes := range byDay {
		if len(outcomes) >= 2 {
			rates[day] = newBucketStat(outcomes).winRate
		}
	}
	if len(rates) == 0 {
		return nil
	}

	mean := 0.0
	for _, r := range rates {
		mean += r
	}
	mean /= float64(len(rates))

	multipliers := map[time.Weekday]float64{}
	for day, r := range rates {
		if mean > 0 {
			multipliers[day] = r / mean
		} else {
			multipliers[day] = 1
		}
	}
	return multipliers
}

type distanceAnalysis struct {
	candidate  float64 // zero means no recommendation
	confidence float64
	reason     string
}

// analyzeStops recommends widening when most losses barely exceeded the
// planned stop before the price came back.
func analyzeStops(trades []*trade.Record) distanceAnalysis {
	var losses []*trade.Record
	for _, t := range trades {
		if t.Outcome == trade.OutcomeLoss && t.MaxAdverse > 0 && t.EntryPrice > 0 {
			losses = append(losses, t)
		}
	}
	if len(losses) < 3 {
		return distanceAnalysis{}
	}

	tight := 0
	sumPlanned, sumAdverse := 0.0, 0.0
	for _, t := range losses {
		planned := abs(t.EntryPrice-t.StopPrice) / t.EntryPrice
		adverse := t.MaxAdverse
		sumPlanned += planned
		sumAdverse += adverse
		if adverse-planned < 0.005 {
			tight++
		}
	}
	avgPlanned := sumPlanned / float64(len(losses))
	avgAdverse := sumAdverse / float64(len(losses))

	if float64(tight) > float64(len(losses))*0.5 {
		return distanceAnalysis{
			candidate:  min(maxStopPct, avgPlanned*1.3),
			confidence: confidence(len(losses), 10),
			reason:     fmt.Sprintf("%d/%d losses barely exceeded stop, widening recommended", tight, len(losses)),
		}
	}

	// Adverse moves dwarfing the stop point at a riskier pattern, not a
	// stop-placement problem; no candidate, low confidence.
	if avgAdverse > avgPlanned*2 {
		return distanceAnalysis{
			confidence: 0.5,
			reason:     fmt.Sprintf("large adverse moves (%s avg), consider reducing size", pct(avgAdverse)),
		}
	}
	return distanceAnalysis{}
}

// analyzeTargets recommends stretching when wins kept running well past the
// planned target.
func analyzeTargets(trades []*trade.Record) distanceAnalysis {
	var wins []*trade.Record
	for _, t := range trades {
		if t.Outcome == trade.OutcomeWin && t.MaxFavorable > 0 && t.EntryPrice > 0 {
			wins = append(wins, t)
		}
	}
	if len(wins) < 3 {
		return distanceAnalysis{}
	}

	sumTarget, sumLeft := 0.0, 0.0
	for _, t := range wins {
		target := abs(t.TargetPrice-t.EntryPrice) / t.EntryPrice
		sumTarget += target
		sumLeft += t.MaxFavorable - target
	}
	avgTarget := sumTarget / float64(len(wins))
	avgLeft := sumLeft / float64(len(wins))

	if avgLeft > 0.01 {
		return distanceAnalysis{
			candidate:  min(maxTargetPct, avgTarget+0.5*avgLeft),
			confidence: confidence(len(wins), 10),
			reason:     fmt.Sprintf("leaving avg %s on the table, widening target", pct(avgLeft)),
		}
	}
	return distanceAnalysis{}
}

type bucketStat struct {
	winRate float64
	trades  int
}

func newBucketStat(outcomes []bool) bucketStat {
	wins := 0
	for _, won := range outcomes {
		if won {
			wins++
		}
	}
	return bucketStat{winRate: float64(wins) / float64(len(outcomes)), trades: len(outcomes)}
}

func meanWinRate[K comparable](stats map[K]bucketStat) float64 {
	if len(stats) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range stats {
		sum += s.winRate
	}
	return sum / float64(len(stats))
}

func confidence(n, scale int) float64 {
	c := float64(n) / float64(scale)
	if c > 1 {
		return 1
	}
	return c
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
