package store

import (
	"context"
	"sort"
	"sync"

	"github.com/catalyst-trading/catalyst-engine/internal/pattern"
	"github.com/catalyst-trading/catalyst-engine/internal/trade"
)

// Memory implements Store entirely in process. It backs tests and dry runs;
// the Postgres store is the production implementation.
type Memory struct {
	mu       sync.RWMutex
	order    []string
	patterns map[string]*pattern.Pattern
	trades   map[string]*trade.Record
	events   []pattern.LearningEvent
	locks    *patternLocks
}

func NewMemory() *Memory {
	return &Memory{
		patterns: map[string]*pattern.Pattern{},
		trades:   map[string]*trade.Record{},
		locks:    newPatternLocks(),
	}
}

func (m *Memory) SavePattern(_ context.Context, p *pattern.Pattern) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.patterns[p.Name]; !ok {
		m.order = append(m.order, p.Name)
	}
	m.patterns[p.Name] = p.Clone()
	return nil
}

func (m *Memory) GetPattern(_ context.Context, name string) (*pattern.Pattern, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.patterns[name]
	if !ok {
		return nil, ErrPatternNotFound
	}
	return p.Clone(), nil
}

func (m *Memory) GetAllPatterns(_ context.Context) ([]*pattern.Pattern, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*pattern.Pattern, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.patterns[name].Clone())
	}
	return out, nil
}

func (m *Memory) SaveTrade(_ context.Context, t *trade.Record) error {
	if err := t.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.trades[t.ID] = t.Clone()
	m.mu.Unlock()
	return nil
}

func (m *Memory) TradesForPattern(_ context.Context, name string, limit int) ([]*trade.Record, error) {
	m.mu.RLock()
	var out []*trade.Record
	for _, t := range m.trades {
		if name == "" || t.PatternName == name {
			out = append(out, t.Clone())
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].EntryTime.Equal(out[j].EntryTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].EntryTime.After(out[j].EntryTime)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) LogLearningEvent(_ context.Context, ev pattern.LearningEvent) error {
	m.mu.Lock()
	m.events = append(m.events, ev)
	m.mu.Unlock()
	return nil
}

func (m *Memory) LearningHistory(_ context.Context, name string, limit int) ([]pattern.LearningEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []pattern.LearningEvent
	for i := len(m.events) - 1; i >= 0; i-- {
		ev := m.events[i]
		if name != "" && ev.PatternName != name {
			continue
		}
		out = append(out, ev)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) WithPatternLock(name string, fn func() error) error {
	return m.locks.with(name, fn)
}

func (m *Memory) Close() error { return nil }
