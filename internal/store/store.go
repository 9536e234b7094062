package store

import (
	"context"
	"errors"
	"sync"

	"github.com/catalyst-trading/catalyst-engine/internal/pattern"
	"github.com/catalyst-trading/catalyst-engine/internal/trade"
)

var (
	ErrPatternNotFound = errors.New("pattern not found")
	ErrTradeNotFound   = errors.New("trade not found")
)

// Store owns Pattern and LearningEvent persistence and is the single source
// of truth for resolved trades.
type Store interface {
	SavePattern(ctx context.Context, p *pattern.Pattern) error
	GetPattern(ctx context.Context, name string) (*pattern.Pattern, error)
	// GetAllPatterns returns patterns in seed/insertion order; the matcher
	// relies on that order for deterministic tie-breaks.
	GetAllPatterns(ctx context.Context) ([]*pattern.Pattern, error)

	SaveTrade(ctx context.Context, t *trade.Record) error
	// TradesForPattern returns the most recent trades first. An empty name
	// selects across all patterns.
	TradesForPattern(ctx context.Context, name string, limit int) ([]*trade.Record, error)

	LogLearningEvent(ctx context.Context, ev pattern.LearningEvent) error
	LearningHistory(ctx context.Context, name string, limit int) ([]pattern.LearningEvent, error)

	// WithPatternLock serializes a read-modify-write of one pattern row.
	// Resolving two trades for the same pattern concurrently must not lose
	// counter updates; every load-mutate-save goes through here.
	WithPatternLock(name string, fn func() error) error

	Close() error
}

// patternLocks hands out one mutex per pattern name.
type patternLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newPatternLocks() *patternLocks {
	return &patternLocks{locks: map[string]*sync.Mutex{}}
}

func (p *patternLocks) with(name string, fn func() error) error {
	p.mu.Lock()
	l, ok := p.locks[name]
	if !ok {
		l = &sync.Mutex{}
		p.locks[name] = l
	}
	p.mu.Unlock()

	l.Lock()
	defer l.Unlock()
	return fn()
}
