package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/catalyst-trading/catalyst-engine/internal/feed"
	"github.com/catalyst-trading/catalyst-engine/internal/journal"
	"github.com/catalyst-trading/catalyst-engine/internal/learning"
	"github.com/catalyst-trading/catalyst-engine/internal/observ"
	"github.com/catalyst-trading/catalyst-engine/internal/outcome"
	"github.com/catalyst-trading/catalyst-engine/internal/pattern"
	"github.com/catalyst-trading/catalyst-engine/internal/prices"
	"github.com/catalyst-trading/catalyst-engine/internal/signal"
	"github.com/catalyst-trading/catalyst-engine/internal/store"
	"github.com/catalyst-trading/catalyst-engine/internal/trade"
)

// Options configures the engine facade. Store and Feed are required; the rest
// default sensibly.
type Options struct {
	Store        store.Store
	Feed         feed.Source
	Prices       prices.Source
	Journal      *journal.Journal
	MinScore     float64
	DefaultPrice float64
	SampleLimit  int
}

// Engine wires matcher, generator, analyzer and learner over one store, and
// is the only surface callers touch.
type Engine struct {
	store    store.Store
	feed     feed.Source
	prices   prices.Source
	journal  *journal.Journal
	minScore float64

	ledger   *trade.Ledger
	matcher  *pattern.Matcher
	gen      *signal.Generator
	analyzer *outcome.Analyzer
}

// New builds the engine, seeding the starter pattern set when the store is
// empty, and loading the matcher from whatever the store holds.
func New(ctx context.Context, opts Options) (*Engine, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("engine: store is required")
	}
	if opts.MinScore == 0 {
		opts.MinScore = 1.0
	}

	existing, err := opts.Store.GetAllPatterns(ctx)
	if err != nil {
		return nil, fmt.Errorf("engine: load patterns: %w", err)
	}
	if len(existing) == 0 {
		for _, p := range pattern.Seeds() {
			if err := opts.Store.SavePattern(ctx, p); err != nil {
				return nil, fmt.Errorf("engine: seed %s: %w", p.Name, err)
			}
		}
		existing, err = opts.Store.GetAllPatterns(ctx)
		if err != nil {
			return nil, fmt.Errorf("engine: reload patterns: %w", err)
		}
		observ.Log("patterns_seeded", map[string]any{"count": len(existing)})
	}

	ledger := trade.NewLedger()
	learner := learning.NewEngine(opts.Store, opts.SampleLimit)
	e := &Engine{
		store:    opts.Store,
		feed:     opts.Feed,
		prices:   opts.Prices,
		journal:  opts.Journal,
		minScore: opts.MinScore,
		ledger:   ledger,
		matcher:  pattern.NewMatcher(existing),
		gen:      signal.New(opts.Store, ledger, opts.DefaultPrice),
		analyzer: outcome.New(opts.Store, ledger, learner),
	}
	return e, nil
}

// SignalSummary is the per-signal view returned from a scan.
type SignalSummary struct {
	TradeID    string           `json:"trade_id"`
	Pattern    string           `json:"pattern"`
	Symbol     string           `json:"symbol"`
	Direction  string           `json:"direction"`
	Score      float64          `json:"score"`
	Conviction trade.Conviction `json:"conviction"`
	Entry      float64          `json:"entry"`
	Target     float64          `json:"target"`
	Stop       float64          `json:"stop"`
	Catalyst   string           `json:"catalyst"`
}

// ScanAndGenerate runs one scan cycle: pull catalysts, score each against the
// pattern set, and open a trade for the best qualifying match per item. Pass
// quotes directly or nil to use the configured price source. Feed and price
// failures degrade to an empty cycle, never an error.
func (e *Engine) ScanAndGenerate(ctx context.Context, quotes prices.Lookup, priorityOnly bool) ([]SignalSummary, error) {
	if e.feed == nil {
		return nil, fmt.Errorf("engine: no feed source configured")
	}

	if quotes == nil && e.prices != nil {
		var err error
		quotes, err = e.prices.Snapshot(ctx)
		if err != nil {
			observ.Warn("prices_unavailable", map[string]any{"error": err.Error()})
			quotes = nil
		}
	}
	mc := MarketContextFrom(time.Now().UTC(), quotes)

	var items []feed.Item
	var err error
	if priorityOnly {
		items, err = e.feed.ScanPriority(ctx)
	} else {
		items, err = e.feed.Scan(ctx, nil)
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		observ.Warn("scan_degraded", map[string]any{"error": err.Error()})
	}

	pctx := mc.PatternContext()
	var out []SignalSummary
	for _, item := range items {
		matches := e.matcher.Match(item.Title, &pctx)
		if len(matches) == 0 {
			continue
		}
		best := matches[0]
		if best.Score < e.minScore {
			continue
		}

		rec, err := e.gen.Generate(ctx, item, best, mc, quotes)
		if err != nil {
			observ.Warn("signal_failed", map[string]any{"pattern": best.Pattern, "error": err.Error()})
			continue
		}
		s := SignalSummary{
			TradeID:    rec.ID,
			Pattern:    rec.PatternName,
			Symbol:     rec.Symbol,
			Direction:  string(rec.Direction),
			Score:      rec.PatternScore,
			Conviction: rec.Conviction,
			Entry:      rec.EntryPrice,
			Target:     rec.TargetPrice,
			Stop:       rec.StopPrice,
			Catalyst:   rec.Catalyst,
		}
		out = append(out, s)
		if e.journal != nil {
			if err := e.journal.WriteSignal(s); err != nil {
				observ.Warn("journal_write_failed", map[string]any{"error": err.Error()})
			}
		}
	}

	observ.Log("scan_complete", map[string]any{
		"items":    len(items),
		"signals":  len(out),
		"priority": priorityOnly,
	})
	return out, nil
}

// ResolveTrade closes a trade and, when a learning pass ran, reloads the
// matcher so the next scan sees the updated parameters. Excursions are
// optional; nil falls back to the realized move.
func (e *Engine) ResolveTrade(ctx context.Context, tradeID string, exitPrice float64, maxFavorable, maxAdverse *float64) (*outcome.Resolution, error) {
	res, err := e.analyzer.Resolve(ctx, tradeID, exitPrice, maxFavorable, maxAdverse, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	if res.Learning != nil && res.Learning.Status == learning.StatusOK {
		patterns, err := e.store.GetAllPatterns(ctx)
		if err != nil {
			observ.Warn("matcher_reload_failed", map[string]any{"error": err.Error()})
		} else {
			e.matcher.Reload(patterns)
		}
	}

	if e.journal != nil {
		if err := e.journal.WriteResolution(res); err != nil {
			observ.Warn("journal_write_failed", map[string]any{"error": err.Error()})
		}
	}
	return res, nil
}

// ActiveSignals returns the open signals, newest first.
func (e *Engine) ActiveSignals() []SignalSummary {
	recs := e.ledger.List()
	out := make([]SignalSummary, 0, len(recs))
	for _, rec := range recs {
		out = append(out, SignalSummary{
			TradeID:    rec.ID,
			Pattern:    rec.PatternName,
			Symbol:     rec.Symbol,
			Direction:  string(rec.Direction),
			Score:      rec.PatternScore,
			Conviction: rec.Conviction,
			Entry:      rec.EntryPrice,
			Target:     rec.TargetPrice,
			Stop:       rec.StopPrice,
			Catalyst:   rec.Catalyst,
		})
	}
	return out
}

// TradeHistory returns persisted trades for one pattern, or all patterns when
// name is empty.
func (e *Engine) TradeHistory(ctx context.Context, name string, limit int) ([]*trade.Record, error) {
	return e.store.TradesForPattern(ctx, name, limit)
}

// PatternSummary is the stats view of one pattern.
type PatternSummary struct {
	Name             string  `json:"name"`
	Version          int     `json:"version"`
	TotalTrades      int     `json:"total_trades"`
	Wins             int     `json:"wins"`
	Losses           int     `json:"losses"`
	Scratches        int     `json:"scratches"`
	WinRate          float64 `json:"win_rate"`
	AvgReturn        float64 `json:"avg_return"`
	EffectiveWeight  float64 `json:"effective_weight"`
	OptimalStopPct   float64 `json:"optimal_stop_pct"`
	OptimalTargetPct float64 `json:"optimal_target_pct"`
	BestVIXRegime    string  `json:"best_vix_regime,omitempty"`
	BestTimeBucket   string  `json:"best_time_bucket,omitempty"`
}

func summarize(p *pattern.Pattern) PatternSummary {
	return PatternSummary{
		Name:             p.Name,
		Version:          p.Version,
		TotalTrades:      p.TotalTrades,
		Wins:             p.Wins,
		Losses:           p.Losses,
		Scratches:        p.Scratches,
		WinRate:          p.WinRate(),
		AvgReturn:        p.AvgReturn(),
		EffectiveWeight:  p.EffectiveWeight(),
		OptimalStopPct:   p.OptimalStopPct,
		OptimalTargetPct: p.OptimalTargetPct,
		BestVIXRegime:    string(p.BestVIXRegime),
		BestTimeBucket:   string(p.BestTimeBucket),
	}
}

// PatternStats returns the current stats for every pattern, seed order.
func (e *Engine) PatternStats(ctx context.Context) ([]PatternSummary, error) {
	all, err := e.store.GetAllPatterns(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]PatternSummary, 0, len(all))
	for _, p := range all {
		out = append(out, summarize(p))
	}
	return out, nil
}

// PerformanceSummary ranks proven patterns by win rate.
type PerformanceSummary struct {
	Patterns []PatternSummary `json:"patterns"`
	Best     []PatternSummary `json:"best"`
	Worst    []PatternSummary `json:"worst"`
}

// Performance covers patterns with at least five resolved trades, ranked by
// win rate with average return as tie-break.
func (e *Engine) Performance(ctx context.Context) (*PerformanceSummary, error) {
	all, err := e.store.GetAllPatterns(ctx)
	if err != nil {
		return nil, err
	}

	var ranked []PatternSummary
	for _, p := range all {
		if p.TotalTrades >= 5 {
			ranked = append(ranked, summarize(p))
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].WinRate != ranked[j].WinRate {
			return ranked[i].WinRate > ranked[j].WinRate
		}
		return ranked[i].AvgReturn > ranked[j].AvgReturn
	})

	top := 5
	if top > len(ranked) {
		top = len(ranked)
	}
	out := &PerformanceSummary{Patterns: ranked}
	out.Best = append(out.Best, ranked[:top]...)
	for i := 0; i < top; i++ {
		out.Worst = append(out.Worst, ranked[len(ranked)-1-i])
	}
	return out, nil
}

// LearningReport renders the human-readable learning report; empty name means
// every pattern.
func (e *Engine) LearningReport(ctx context.Context, name string) (string, error) {
	return learning.BuildText(ctx, e.store, name)
}

// MarketContextFrom derives the context snapshot from the clock and the quote
// lookup. VIX and SPY quotes are optional; absent quotes leave the regime at
// NORMAL via the default VIX and the trend SIDEWAYS.
func MarketContextFrom(now time.Time, quotes prices.Lookup) trade.MarketContext {
	vix := 15.5
	if q, ok := quotes["VIX"]; ok && q.Price > 0 {
		vix = q.Price
	}

	var regime pattern.VIXRegime
	switch {
	case vix > 30:
		regime = pattern.RegimeHighFear
	case vix > 20:
		regime = pattern.RegimeElevated
	case vix > 14:
		regime = pattern.RegimeNormal
	default:
		regime = pattern.RegimeComplacent
	}

	trend := trade.TrendSideways
	var momentum float64
	if q, ok := quotes["SPY"]; ok {
		momentum = q.ChangePct
		if q.ChangePct > 0.5 {
			trend = trade.TrendUp
		} else if q.ChangePct < -0.5 {
			trend = trade.TrendDown
		}
	}

	return trade.MarketContext{
		VIX:            vix,
		VIXRegime:      regime,
		BroadTrend:     trend,
		SectorMomentum: momentum,
		TimeBucket:     bucketFor(now),
		Weekday:        now.Weekday(),
		Timestamp:      now,
	}
}

// bucketFor slots a timestamp into the trading-day bucket, US eastern time.
func bucketFor(now time.Time) pattern.TimeBucket {
	loc, err := time.LoadLocation("America/New_York")
	if err == nil {
		now = now.In(loc)
	}
	mins := now.Hour()*60 + now.Minute()
	switch {
	case mins < 9*60+30:
		return pattern.BucketPreMarket
	case mins < 10*60:
		return pattern.BucketOpen
	case mins < 12*60:
		return pattern.BucketMorning
	case mins < 15*60:
		return pattern.BucketMidday
	case mins < 16*60:
		return pattern.BucketClose
	default:
		return pattern.BucketAfterHours
	}
}
