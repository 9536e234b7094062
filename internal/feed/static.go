package feed

import "context"

// Static serves a fixed item list, for tests and offline replay.
type Static struct {
	Items    []Item
	Priority []Item
}

func (s *Static) Scan(ctx context.Context, categories []string) ([]Item, error) {
	out := make([]Item, len(s.Items))
	copy(out, s.Items)
	return out, nil
}

func (s *Static) ScanPriority(ctx context.Context) ([]Item, error) {
	if s.Priority != nil {
		out := make([]Item, len(s.Priority))
		copy(out, s.Priority)
		return out, nil
	}
	return s.Scan(ctx, nil)
}
