package prices

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// Quote is the caller-supplied market snapshot for one symbol.
type Quote struct {
	Price     float64  `json:"price"`
	ChangePct float64  `json:"change_pct"`
	IV        *float64 `json:"iv,omitempty"`
}

// Lookup maps symbol to quote. Missing symbols fall back to caller defaults;
// the core never fetches prices itself.
type Lookup map[string]Quote

// Source produces a lookup per scan cycle.
type Source interface {
	Snapshot(ctx context.Context) (Lookup, error)
}

// Static always returns the same lookup.
type Static struct {
	Quotes Lookup
}

func (s *Static) Snapshot(context.Context) (Lookup, error) {
	out := make(Lookup, len(s.Quotes))
	for k, v := range s.Quotes {
		out[k] = v
	}
	return out, nil
}

// File re-reads a JSON snapshot on every cycle, so an external process can
// refresh quotes out of band.
type File struct {
	Path string
}

func (f *File) Snapshot(context.Context) (Lookup, error) {
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read prices: %w", err)
	}
	var out Lookup
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("parse prices: %w", err)
	}
	return out, nil
}
