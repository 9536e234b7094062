package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Database struct {
	DSN       string `yaml:"dsn"` // empty means in-memory store
	TimeoutMs int    `yaml:"timeout_ms"`
}

type Scanner struct {
	IntervalSeconds int     `yaml:"interval_seconds"`
	FeedTimeoutMs   int     `yaml:"feed_timeout_ms"`
	RatePerSecond   float64 `yaml:"rate_per_second"` // shared fetch budget across feeds
	MaxPerFeed      int     `yaml:"max_per_feed"`
	PriorityOnly    bool    `yaml:"priority_only"`
}

type Signals struct {
	MinScore     float64 `yaml:"min_score"`
	DefaultPrice float64 `yaml:"default_price"` // entry fallback when a symbol has no quote
	JournalPath  string  `yaml:"journal_path"`
}

type Learning struct {
	TradeSampleLimit int `yaml:"trade_sample_limit"`
}

type Root struct {
	Database    Database `yaml:"database"`
	Scanner     Scanner  `yaml:"scanner"`
	Signals     Signals  `yaml:"signals"`
	Learning    Learning `yaml:"learning"`
	MetricsAddr string   `yaml:"metrics_addr"`
	PricesPath  string   `yaml:"prices_path"` // caller-supplied quote snapshot file
}

func Load(path string) (Root, error) {
	var c Root
	b, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, err
	}

	if c.Database.TimeoutMs == 0 {
		c.Database.TimeoutMs = 5000
	}
	if c.Scanner.IntervalSeconds == 0 {
		c.Scanner.IntervalSeconds = 120
	}
	if c.Scanner.FeedTimeoutMs == 0 {
		c.Scanner.FeedTimeoutMs = 8000
	}
	if c.Scanner.RatePerSecond == 0 {
		c.Scanner.RatePerSecond = 4
	}
	if c.Scanner.MaxPerFeed == 0 {
		c.Scanner.MaxPerFeed = 10
	}
	if c.Signals.MinScore == 0 {
		c.Signals.MinScore = 1.0
	}
	if c.Signals.DefaultPrice == 0 {
		c.Signals.DefaultPrice = 100
	}
	if c.Signals.JournalPath == "" {
		c.Signals.JournalPath = "data/signals.jsonl"
	}
	if c.Learning.TradeSampleLimit == 0 {
		c.Learning.TradeSampleLimit = 100
	}
	if c.MetricsAddr == "" {
		c.MetricsAddr = ":8092"
	}

	return c, nil
}
