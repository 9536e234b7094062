package learning

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/catalyst-trading/catalyst-engine/internal/pattern"
	"github.com/catalyst-trading/catalyst-engine/internal/store"
)

// BuildText renders a human-readable report of what the system has learned.
// An empty patternName covers every pattern.
func BuildText(ctx context.Context, st store.Store, patternName string) (string, error) {
	patterns, err := st.GetAllPatterns(ctx)
	if err != nil {
		return "", fmt.Errorf("learning report: %w", err)
	}
	if patternName != "" {
		filtered := patterns[:0]
		for _, p := range patterns {
			if p.Name == patternName {
				filtered = append(filtered, p)
			}
		}
		patterns = filtered
	}

	var b strings.Builder
	rule := strings.Repeat("=", 70)
	b.WriteString(rule + "\n")
	b.WriteString("ADAPTIVE LEARNING REPORT\n")
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "Generated: %s\n", time.Now().UTC().Format("2006-01-02 15:04:05"))

	for _, p := range patterns {
		writePatternSection(&b, p)
	}

	history, err := st.LearningHistory(ctx, patternName, 20)
	if err != nil {
		return "", fmt.Errorf("learning report: %w", err)
	}
	b.WriteString("\n" + rule + "\n")
	b.WriteString("OVERALL LEARNING STATISTICS\n")
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "Learning events (recent): %d\n", len(history))
	if len(history) > 0 {
		b.WriteString("\nRecent learning:\n")
		n := len(history)
		if n > 5 {
			n = 5
		}
		for _, ev := range history[:n] {
			fmt.Fprintf(&b, "  [%s] %s: %s\n", ev.Timestamp.Format("2006-01-02"), ev.PatternName, ev.Dimension)
			fmt.Fprintf(&b, "      %s -> %s\n", ev.OldValue, ev.NewValue)
		}
	}

	return b.String(), nil
}

func writePatternSection(b *strings.Builder, p *pattern.Pattern) {
	sep := strings.Repeat("-", 50)
	b.WriteString("\n" + sep + "\n")
	fmt.Fprintf(b, "PATTERN: %s\n", strings.ToUpper(p.Name))
	b.WriteString(sep + "\n")
	fmt.Fprintf(b, "Version: %d\n", p.Version)
	fmt.Fprintf(b, "Total trades: %d\n", p.TotalTrades)
	fmt.Fprintf(b, "Win rate: %s\n", pct(p.WinRate()))
	fmt.Fprintf(b, "Avg return: %s\n", pct(p.AvgReturn()))
	fmt.Fprintf(b, "Effective weight: %.2f\n", p.EffectiveWeight())

	b.WriteString("\nLearned optimizations:\n")
	if p.BestVIXRegime != "" {
		fmt.Fprintf(b, "  best VIX regime: %s\n", p.BestVIXRegime)
	}
	if p.BestTimeBucket != "" {
		fmt.Fprintf(b, "  best time: %s\n", p.BestTimeBucket)
	}
	if p.WorstTimeBucket != "" {
		fmt.Fprintf(b, "  avoid: %s\n", p.WorstTimeBucket)
	}
	fmt.Fprintf(b, "  optimal stop: %s\n", pct(p.OptimalStopPct))
	fmt.Fprintf(b, "  optimal target: %s\n", pct(p.OptimalTargetPct))

	if len(p.Adjustments) > 0 {
		b.WriteString("\nRecent adjustments:\n")
		start := len(p.Adjustments) - 3
		if start < 0 {
			start = 0
		}
		for _, adj := range p.Adjustments[start:] {
			fmt.Fprintf(b, "  [%s] analyzed %d trades\n", adj.Timestamp.Format("2006-01-02"), adj.TradesAnalyzed)
			for _, c := range adj.Changes {
				fmt.Fprintf(b, "    %s: %s -> %s\n", c.Dimension, c.Old, c.New)
				fmt.Fprintf(b, "      reason: %s\n", c.Reason)
			}
		}
	}
}
