package feed

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"strings"
	"time"
)

// Item is one catalyst event. The core treats each item independently.
type Item struct {
	Title     string    `json:"title"`
	Source    string    `json:"source"`
	Category  string    `json:"category"`
	Sentiment float64   `json:"sentiment"`
	Hash      string    `json:"hash"`
	Timestamp time.Time `json:"timestamp"`
}

// Source supplies catalyst items. A failed scan yields zero items, never an
// error that aborts an in-progress batch; implementations degrade per feed.
type Source interface {
	Scan(ctx context.Context, categories []string) ([]Item, error)
	ScanPriority(ctx context.Context) ([]Item, error)
}

// TitleHash dedups on a stable prefix so minor trailing edits by the
// publisher don't resurface the same story.
func TitleHash(title string) string {
	t := title
	if len(t) > 50 {
		t = t[:50]
	}
	sum := md5.Sum([]byte(t))
	return hex.EncodeToString(sum[:])
}

var positiveWords = []string{"surge", "soar", "rally", "beat", "gain", "rise", "jump", "record", "strong", "boost"}
var negativeWords = []string{"crash", "plunge", "fall", "drop", "miss", "weak", "fear", "crisis", "warn", "threat", "cut"}

// QuickSentiment is a crude lexicon score in [-1, 1]; it tags items for
// operators, the matcher does not consume it.
func QuickSentiment(text string) float64 {
	lower := strings.ToLower(text)
	pos, neg := 0, 0
	for _, w := range positiveWords {
		if strings.Contains(lower, w) {
			pos++
		}
	}
	for _, w := range negativeWords {
		if strings.Contains(lower, w) {
			neg++
		}
	}
	if pos+neg == 0 {
		return 0
	}
	return float64(pos-neg) / float64(pos+neg)
}
