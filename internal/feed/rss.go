package feed

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/catalyst-trading/catalyst-engine/internal/observ"
)

// curated feed set, grouped by category; priority categories are the
// fast-moving ones scanned on the tight loop
var defaultFeeds = map[string]map[string]string{
	"wires": {
		"reuters_biz":     "https://feeds.reuters.com/reuters/businessNews",
		"reuters_markets": "https://feeds.reuters.com/reuters/marketsNews",
		"bloomberg":       "https://feeds.bloomberg.com/markets/news.rss",
		"ap_business":     "https://apnews.com/apf-business/feed",
	},
	"central_banks": {
		"fed_all":      "https://www.federalreserve.gov/feeds/press_all.xml",
		"fed_speeches": "https://www.federalreserve.gov/feeds/speeches.xml",
		"ecb":          "https://www.ecb.europa.eu/rss/press.html",
		"boe":          "https://www.bankofengland.co.uk/rss/news",
	},
	"us_gov": {
		"treasury":  "https://home.treasury.gov/system/files/feed/press.xml",
		"sec_press": "https://www.sec.gov/news/pressreleases.rss",
		"bls":       "https://www.bls.gov/feed/bls_latest.rss",
	},
	"china": {
		"scmp":         "https://www.scmp.com/rss/91/feed",
		"scmp_economy": "https://www.scmp.com/rss/92/feed",
	},
	"russia": {
		"tass": "https://tass.com/rss/v2.xml",
	},
	"middle_east": {
		"aljazeera":     "https://www.aljazeera.com/xml/rss/all.xml",
		"aljazeera_biz": "https://www.aljazeera.com/xml/rss/economy.xml",
	},
	"financial": {
		"wsj_markets":  "https://feeds.a.dj.com/rss/RSSMarketsMain.xml",
		"cnbc":         "https://www.cnbc.com/id/100003114/device/rss/rss.html",
		"marketwatch":  "https://feeds.marketwatch.com/marketwatch/topstories/",
		"seekingalpha": "https://seekingalpha.com/market_currents.xml",
	},
	"tech": {
		"techcrunch": "https://techcrunch.com/feed/",
		"verge":      "https://www.theverge.com/rss/index.xml",
	},
	"crypto": {
		"coindesk":      "https://www.coindesk.com/arc/outboundfeeds/rss/",
		"cointelegraph": "https://cointelegraph.com/rss",
	},
	"energy": {
		"oilprice": "https://oilprice.com/rss/main",
	},
	"shipping": {
		"freightwaves": "https://www.freightwaves.com/news/rss",
	},
}

var priorityCategories = []string{"wires", "central_banks", "us_gov", "china", "russia", "middle_east"}

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// RSSConfig tunes the scanner; zero values pick defaults.
type RSSConfig struct {
	FeedTimeout   time.Duration
	RatePerSecond float64 // shared across all feeds
	MaxPerFeed    int
	UserAgent     string
}

// RSSSource polls the curated feed set. Per-feed failures are counted and
// skipped, never propagated; a fully failed scan returns zero items.
type RSSSource struct {
	client  *http.Client
	limiter *rate.Limiter
	feeds   map[string]map[string]string
	cfg     RSSConfig

	mu   sync.Mutex
	seen map[string]struct{}
}

func NewRSSSource(cfg RSSConfig) *RSSSource {
	if cfg.FeedTimeout == 0 {
		cfg.FeedTimeout = 8 * time.Second
	}
	if cfg.RatePerSecond == 0 {
		cfg.RatePerSecond = 4
	}
	if cfg.MaxPerFeed == 0 {
		cfg.MaxPerFeed = 10
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "catalyst-engine/1.0"
	}
	return &RSSSource{
		client:  &http.Client{Timeout: cfg.FeedTimeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1),
		feeds:   defaultFeeds,
		cfg:     cfg,
		seen:    map[string]struct{}{},
	}
}

// Scan fetches the given categories (all when nil) and returns only items not
// seen before.
func (s *RSSSource) Scan(ctx context.Context, categories []string) ([]Item, error) {
	if categories == nil {
		categories = make([]string, 0, len(s.feeds))
		for c := range s.feeds {
			categories = append(categories, c)
		}
	}

	var items []Item
	for _, category := range categories {
		feeds, ok := s.feeds[category]
		if !ok {
			continue
		}
		for name, url := range feeds {
			fetched, err := s.fetchFeed(ctx, url, name, category)
			if err != nil {
				if ctx.Err() != nil {
					return items, ctx.Err()
				}
				observ.Warn("feed_fetch_failed", map[string]any{"feed": name, "error": err.Error()})
				observ.IncCounter("feed_errors", map[string]string{"feed": name})
				continue
			}
			for _, item := range fetched {
				if s.markSeen(item.Hash) {
					items = append(items, item)
				}
			}
		}
	}
	observ.IncCounterBy("feed_new_items", nil, int64(len(items)))
	return items, nil
}

func (s *RSSSource) ScanPriority(ctx context.Context) ([]Item, error) {
	return s.Scan(ctx, priorityCategories)
}

func (s *RSSSource) markSeen(hash string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.seen[hash]; dup {
		return false
	}
	s.seen[hash] = struct{}{}
	return true
}

func (s *RSSSource) fetchFeed(ctx context.Context, url, name, category string) ([]Item, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	titles, err := parseTitles(body)
	if err != nil {
		return nil, err
	}
	observ.IncCounterBy("feed_items_scanned", map[string]string{"feed": name}, int64(len(titles)))

	now := time.Now().UTC()
	var items []Item
	for _, title := range titles {
		if len(items) >= s.cfg.MaxPerFeed {
			break
		}
		title = cleanTitle(title)
		if title == "" {
			continue
		}
		items = append(items, Item{
			Title:     title,
			Source:    name,
			Category:  category,
			Sentiment: QuickSentiment(title),
			Hash:      TitleHash(title),
			Timestamp: now,
		})
	}
	return items, nil
}

// parseTitles handles both RSS (channel/item) and Atom (entry) documents.
func parseTitles(body []byte) ([]string, error) {
	var doc struct {
		Channel struct {
			Items []struct {
				Title string `xml:"title"`
			} `xml:"item"`
		} `xml:"channel"`
		Entries []struct {
			Title string `xml:"title"`
		} `xml:"entry"`
	}
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, err
	}
	var titles []string
	for _, it := range doc.Channel.Items {
		titles = append(titles, it.Title)
	}
	for _, e := range doc.Entries {
		titles = append(titles, e.Title)
	}
	return titles, nil
}

func cleanTitle(title string) string {
	title = tagPattern.ReplaceAllString(title, "")
	return strings.TrimSpace(html.UnescapeString(title))
}
