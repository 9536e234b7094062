package trade

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/catalyst-trading/catalyst-engine/internal/pattern"
)

type Outcome string

const (
	OutcomePending Outcome = "PENDING"
	OutcomeWin     Outcome = "WIN"
	OutcomeLoss    Outcome = "LOSS"
	OutcomeScratch Outcome = "SCRATCH"
)

// Terminal reports whether the outcome can never change again.
func (o Outcome) Terminal() bool {
	return o == OutcomeWin || o == OutcomeLoss || o == OutcomeScratch
}

type Conviction string

const (
	ConvictionLow    Conviction = "LOW"
	ConvictionMedium Conviction = "MEDIUM"
	ConvictionHigh   Conviction = "HIGH"
	ConvictionMax    Conviction = "MAX"
)

type OptionType string

const (
	Call OptionType = "CALL"
	Put  OptionType = "PUT"
)

type Trend string

const (
	TrendUp       Trend = "UP"
	TrendDown     Trend = "DOWN"
	TrendSideways Trend = "SIDEWAYS"
)

// MarketContext snapshots the conditions a signal was generated under.
type MarketContext struct {
	VIX            float64
	VIXRegime      pattern.VIXRegime
	BroadTrend     Trend
	SectorMomentum float64
	TimeBucket     pattern.TimeBucket
	Weekday        time.Weekday
	Timestamp      time.Time
}

// PatternContext projects the dimensions the matcher scores against.
func (c MarketContext) PatternContext() pattern.Context {
	return pattern.Context{VIXRegime: c.VIXRegime, TimeBucket: c.TimeBucket, Weekday: c.Weekday}
}

// Record is one generated signal and its fate. Outcome transitions exactly
// once, PENDING to terminal; a terminal record is never mutated again.
type Record struct {
	ID          string
	PatternName string
	Symbol      string
	Direction   pattern.Direction

	EntryPrice       float64
	EntryTime        time.Time
	Catalyst         string
	CatalystSource   string
	CatalystCategory string

	TargetPrice float64
	StopPrice   float64

	VIXAtEntry     float64
	VIXRegime      pattern.VIXRegime
	BroadTrend     Trend
	SectorMomentum float64
	TimeBucket     pattern.TimeBucket
	Weekday        time.Weekday
	DaysToExpiry   int

	Strike       float64
	Expiration   time.Time
	OptionType   OptionType
	IVAtEntry    *float64
	DeltaAtEntry float64

	Conviction            Conviction
	PatternScore          float64
	PatternWinRateAtEntry float64

	Outcome   Outcome
	ExitPrice float64
	ExitTime  time.Time
	// ActualReturn, MaxFavorable and MaxAdverse are fractions of entry price;
	// the excursions are magnitudes in the trade's favor and against it.
	ActualReturn        float64
	MaxFavorable        float64
	MaxAdverse          float64
	MinutesToResolution int

	FailureReasons []string
	Lessons        []string
	Improvements   []string

	// Reconstructed marks records rebuilt from a persisted row after the
	// in-memory copy was lost; they lack some entry-time-only fields.
	Reconstructed bool
}

// NewID returns a short trade id, unique enough for the ledger's lifetime.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// Validate rejects records the ledger and store should never see.
func (r *Record) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("trade missing id")
	}
	if r.PatternName == "" {
		return fmt.Errorf("trade %s missing pattern name", r.ID)
	}
	if r.Symbol == "" {
		return fmt.Errorf("trade %s missing symbol", r.ID)
	}
	if r.EntryPrice <= 0 {
		return fmt.Errorf("trade %s invalid entry price %.4f", r.ID, r.EntryPrice)
	}
	if r.Direction != pattern.Long && r.Direction != pattern.Short {
		return fmt.Errorf("trade %s invalid direction %q", r.ID, r.Direction)
	}
	return nil
}

// Clone deep-copies the record so ledger reads never alias live slices.
func (r *Record) Clone() *Record {
	cp := *r
	if r.IVAtEntry != nil {
		iv := *r.IVAtEntry
		cp.IVAtEntry = &iv
	}
	cp.FailureReasons = append([]string(nil), r.FailureReasons...)
	cp.Lessons = append([]string(nil), r.Lessons...)
	cp.Improvements = append([]string(nil), r.Improvements...)
	return &cp
}
