package pattern

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Context is the slice of market context the matcher scores against.
type Context struct {
	VIXRegime  VIXRegime
	TimeBucket TimeBucket
	Weekday    time.Weekday
}

// MatchResult carries everything downstream signal generation needs, so a
// batch never re-reads the store mid-flight.
type MatchResult struct {
	Pattern          string
	Direction        Direction
	Symbols          []string
	Score            float64
	Weight           float64
	WinRate          float64
	OptimalStopPct   float64
	OptimalTargetPct float64
	OptimalHoldHours int
	Version          int
	TotalTrades      int
}

// Matcher scores text against an immutable pattern snapshot. Reload swaps the
// snapshot between batches; Match itself is a pure read and safe to run
// concurrently across articles.
type Matcher struct {
	mu       sync.RWMutex
	patterns []*Pattern
}

func NewMatcher(patterns []*Pattern) *Matcher {
	return &Matcher{patterns: patterns}
}

// Reload replaces the snapshot. Call it between batches, never mid-batch.
func (m *Matcher) Reload(patterns []*Pattern) {
	m.mu.Lock()
	m.patterns = patterns
	m.mu.Unlock()
}

func (m *Matcher) snapshot() []*Pattern {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.patterns
}

// Match returns every fired pattern sorted by descending score, ties keeping
// snapshot order. A pattern fires when hit count >= min(2, keyword count), so
// a single-keyword pattern fires on one hit but never on zero.
func (m *Matcher) Match(text string, ctx *Context) []MatchResult {
	lower := strings.ToLower(text)
	var results []MatchResult

	for _, p := range m.snapshot() {
		if len(p.Keywords) == 0 {
			continue
		}
		hits := 0
		for _, kw := range p.Keywords {
			if strings.Contains(lower, kw) {
				hits++
			}
		}
		minHits := 2
		if len(p.Keywords) < minHits {
			minHits = len(p.Keywords)
		}
		if hits < minHits {
			continue
		}

		score := (float64(hits) / float64(len(p.Keywords))) * p.EffectiveWeight()
		if ctx != nil {
			score *= p.VIXMultiplier(ctx.VIXRegime)
			score *= p.TimeMultiplier(ctx.TimeBucket)
			score *= p.DayMultiplier(ctx.Weekday)
		}

		results = append(results, MatchResult{
			Pattern:          p.Name,
			Direction:        p.Direction,
			Symbols:          append([]string(nil), p.Symbols...),
			Score:            score,
			Weight:           p.EffectiveWeight(),
			WinRate:          p.WinRate(),
			OptimalStopPct:   p.OptimalStopPct,
			OptimalTargetPct: p.OptimalTargetPct,
			OptimalHoldHours: p.OptimalHoldHours,
			Version:          p.Version,
			TotalTrades:      p.TotalTrades,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}
