package signal

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/catalyst-trading/catalyst-engine/internal/feed"
	"github.com/catalyst-trading/catalyst-engine/internal/observ"
	"github.com/catalyst-trading/catalyst-engine/internal/pattern"
	"github.com/catalyst-trading/catalyst-engine/internal/prices"
	"github.com/catalyst-trading/catalyst-engine/internal/store"
	"github.com/catalyst-trading/catalyst-engine/internal/trade"
)

// Generator turns a pattern match into a persisted PENDING trade. It owns the
// entry math; matching policy (min score, dedup) stays with the caller.
type Generator struct {
	store        store.Store
	ledger       *trade.Ledger
	defaultPrice float64
}

func New(st store.Store, ledger *trade.Ledger, defaultPrice float64) *Generator {
	if defaultPrice <= 0 {
		defaultPrice = 100
	}
	return &Generator{store: st, ledger: ledger, defaultPrice: defaultPrice}
}

// Generate builds the trade from the match using the pattern's learned stop,
// target, and hold parameters at their current values. The record is added to
// the ledger and persisted before it is returned.
func (g *Generator) Generate(ctx context.Context, item feed.Item, m pattern.MatchResult, mc trade.MarketContext, quotes prices.Lookup) (*trade.Record, error) {
	if len(m.Symbols) == 0 {
		return nil, fmt.Errorf("pattern %s has no symbols", m.Pattern)
	}
	symbol := m.Symbols[0]

	entry := g.defaultPrice
	var iv *float64
	if q, ok := quotes[symbol]; ok && q.Price > 0 {
		entry = q.Price
		if q.IV != nil {
			v := *q.IV
			iv = &v
		}
	}

	var target, stop float64
	var optType trade.OptionType
	var strike, delta float64
	switch m.Direction {
	case pattern.Long:
		target = roundCents(entry * (1 + m.OptimalTargetPct))
		stop = roundCents(entry * (1 - m.OptimalStopPct))
		optType = trade.Call
		strike = math.Round(entry * 1.02)
		delta = 0.40
	case pattern.Short:
		target = roundCents(entry * (1 - m.OptimalTargetPct))
		stop = roundCents(entry * (1 + m.OptimalStopPct))
		optType = trade.Put
		strike = math.Round(entry * 0.98)
		delta = -0.40
	default:
		return nil, fmt.Errorf("pattern %s has invalid direction %q", m.Pattern, m.Direction)
	}

	dte := 2 * (m.OptimalHoldHours / 24)
	if dte < 7 {
		dte = 7
	}

	now := mc.Timestamp
	if now.IsZero() {
		now = time.Now().UTC()
	}

	rec := &trade.Record{
		ID:          trade.NewID(),
		PatternName: m.Pattern,
		Symbol:      symbol,
		Direction:   m.Direction,

		EntryPrice:       entry,
		EntryTime:        now,
		Catalyst:         item.Title,
		CatalystSource:   item.Source,
		CatalystCategory: item.Category,

		TargetPrice: target,
		StopPrice:   stop,

		VIXAtEntry:     mc.VIX,
		VIXRegime:      mc.VIXRegime,
		BroadTrend:     mc.BroadTrend,
		SectorMomentum: mc.SectorMomentum,
		TimeBucket:     mc.TimeBucket,
		Weekday:        mc.Weekday,
		DaysToExpiry:   dte,

		Strike:       strike,
		Expiration:   now.AddDate(0, 0, dte),
		OptionType:   optType,
		IVAtEntry:    iv,
		DeltaAtEntry: delta,

		Conviction:            convictionFor(m.Score, m.WinRate),
		PatternScore:          m.Score,
		PatternWinRateAtEntry: m.WinRate,

		Outcome: trade.OutcomePending,
	}

	if err := rec.Validate(); err != nil {
		return nil, err
	}
	g.ledger.Add(rec)
	if err := g.store.SaveTrade(ctx, rec); err != nil {
		return nil, fmt.Errorf("persist trade %s: %w", rec.ID, err)
	}

	observ.IncCounter("signals_generated", map[string]string{
		"pattern":    m.Pattern,
		"conviction": string(rec.Conviction),
	})
	observ.Log("signal_generated", map[string]any{
		"trade_id":   rec.ID,
		"pattern":    m.Pattern,
		"symbol":     symbol,
		"direction":  string(m.Direction),
		"score":      m.Score,
		"conviction": string(rec.Conviction),
		"entry":      entry,
		"target":     target,
		"stop":       stop,
	})
	return rec, nil
}

// convictionFor buckets score and historical win rate. Checks run strongest
// first so a signal lands in the highest tier it qualifies for.
func convictionFor(score, winRate float64) trade.Conviction {
	switch {
	case score >= 2.0 && winRate >= 0.60:
		return trade.ConvictionMax
	case score >= 1.5 || winRate >= 0.55:
		return trade.ConvictionHigh
	case score >= 1.0:
		return trade.ConvictionMedium
	default:
		return trade.ConvictionLow
	}
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
