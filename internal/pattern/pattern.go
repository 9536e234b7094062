package pattern

import (
	"time"
)

type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// VIXRegime is the discretized volatility state used as a context dimension.
type VIXRegime string

const (
	RegimeComplacent VIXRegime = "COMPLACENT"
	RegimeNormal     VIXRegime = "NORMAL"
	RegimeElevated   VIXRegime = "ELEVATED"
	RegimeHighFear   VIXRegime = "HIGH_FEAR"
)

// Regimes returns the full key space, used when decoding persisted maps.
func Regimes() []VIXRegime {
	return []VIXRegime{RegimeComplacent, RegimeNormal, RegimeElevated, RegimeHighFear}
}

// TimeBucket is the trading-day slot a catalyst arrived in.
type TimeBucket string

const (
	BucketPreMarket  TimeBucket = "PRE_MARKET"
	BucketOpen       TimeBucket = "OPEN"
	BucketMorning    TimeBucket = "MORNING"
	BucketMidday     TimeBucket = "MIDDAY"
	BucketClose      TimeBucket = "CLOSE"
	BucketAfterHours TimeBucket = "AFTER_HOURS"
)

func TimeBuckets() []TimeBucket {
	return []TimeBucket{BucketPreMarket, BucketOpen, BucketMorning, BucketMidday, BucketClose, BucketAfterHours}
}

// Change is one parameter move made by a learning pass.
type Change struct {
	Dimension string `json:"dimension"`
	Old       string `json:"old"`
	New       string `json:"new"`
	Reason    string `json:"reason"`
}

// Adjustment groups the changes of a single learning pass.
type Adjustment struct {
	Timestamp      time.Time `json:"timestamp"`
	TradesAnalyzed int       `json:"trades_analyzed"`
	Changes        []Change  `json:"changes"`
}

// LearningEvent is the append-only audit row behind every applied change.
type LearningEvent struct {
	PatternName    string    `json:"pattern_name"`
	Dimension      string    `json:"dimension"`
	OldValue       string    `json:"old_value"`
	NewValue       string    `json:"new_value"`
	Reason         string    `json:"reason"`
	TradesAnalyzed int       `json:"trades_analyzed"`
	Confidence     float64   `json:"confidence"`
	Timestamp      time.Time `json:"timestamp"`
}

// maxAdjustmentHistory bounds the per-pattern history kept in the store.
const maxAdjustmentHistory = 50

// Pattern is a named matching rule whose parameters evolve with outcomes.
// Counters and multiplier maps are mutated only during trade resolution and
// learning passes; Version moves only on a completed learning pass.
type Pattern struct {
	Name      string
	Version   int
	Keywords  []string // lower-case phrases
	Direction Direction
	Symbols   []string

	BaseWeight float64

	BestVIXRegime  VIXRegime
	VIXMultipliers map[VIXRegime]float64

	BestTimeBucket  TimeBucket
	WorstTimeBucket TimeBucket
	TimeMultipliers map[TimeBucket]float64

	DayMultipliers map[time.Weekday]float64

	OptimalStopPct   float64
	OptimalTargetPct float64
	OptimalHoldHours int

	TotalTrades int
	Wins        int
	Losses      int
	Scratches   int
	TotalReturn float64

	ReturnsByVIX  map[VIXRegime][]float64
	ReturnsByTime map[TimeBucket][]float64
	ReturnsByDay  map[time.Weekday][]float64

	Adjustments []Adjustment
	LastUpdated time.Time
}

// New seeds a pattern with default learned parameters.
func New(name string, keywords []string, direction Direction, symbols []string, baseWeight float64) *Pattern {
	return &Pattern{
		Name:             name,
		Version:          1,
		Keywords:         keywords,
		Direction:        direction,
		Symbols:          symbols,
		BaseWeight:       baseWeight,
		VIXMultipliers:   map[VIXRegime]float64{},
		TimeMultipliers:  map[TimeBucket]float64{},
		DayMultipliers:   map[time.Weekday]float64{},
		OptimalStopPct:   0.02,
		OptimalTargetPct: 0.03,
		OptimalHoldHours: 24,
		ReturnsByVIX:     map[VIXRegime][]float64{},
		ReturnsByTime:    map[TimeBucket][]float64{},
		ReturnsByDay:     map[time.Weekday][]float64{},
	}
}

// WinRate defaults to 0.5 until a trade resolves, so an unproven pattern is
// neither favored nor punished at match time.
func (p *Pattern) WinRate() float64 {
	if p.TotalTrades == 0 {
		return 0.5
	}
	return float64(p.Wins) / float64(p.TotalTrades)
}

func (p *Pattern) AvgReturn() float64 {
	if p.TotalTrades == 0 {
		return 0
	}
	return p.TotalReturn / float64(p.TotalTrades)
}

// EffectiveWeight scales BaseWeight by the recent win-rate tier once the
// sample is meaningful, clamped to [0.3, 3.0].
func (p *Pattern) EffectiveWeight() float64 {
	w := p.BaseWeight
	if p.TotalTrades >= 10 {
		wr := p.WinRate()
		switch {
		case wr > 0.65:
			w *= 1.3
		case wr > 0.55:
			w *= 1.1
		case wr < 0.40:
			w *= 0.7
		case wr < 0.50:
			w *= 0.85
		}
	}
	if w < 0.3 {
		w = 0.3
	}
	if w > 3.0 {
		w = 3.0
	}
	return w
}

func (p *Pattern) VIXMultiplier(r VIXRegime) float64 {
	if v, ok := p.VIXMultipliers[r]; ok && v > 0 {
		return v
	}
	return 1
}

func (p *Pattern) TimeMultiplier(b TimeBucket) float64 {
	if v, ok := p.TimeMultipliers[b]; ok && v > 0 {
		return v
	}
	return 1
}

func (p *Pattern) DayMultiplier(d time.Weekday) float64 {
	if v, ok := p.DayMultipliers[d]; ok && v > 0 {
		return v
	}
	return 1
}

// RecordResolution folds one terminal trade into the counters and the
// per-context return buckets. outcome is WIN, LOSS or SCRATCH.
func (p *Pattern) RecordResolution(outcome string, ret float64, regime VIXRegime, bucket TimeBucket, day time.Weekday) {
	p.TotalTrades++
	switch outcome {
	case "WIN":
		p.Wins++
	case "LOSS":
		p.Losses++
	default:
		p.Scratches++
	}
	p.TotalReturn += ret

	if regime != "" {
		p.ReturnsByVIX[regime] = append(p.ReturnsByVIX[regime], ret)
	}
	if bucket != "" {
		p.ReturnsByTime[bucket] = append(p.ReturnsByTime[bucket], ret)
	}
	p.ReturnsByDay[day] = append(p.ReturnsByDay[day], ret)
	p.LastUpdated = time.Now().UTC()
}

// AppendAdjustment records a learning pass, keeping the most recent entries.
func (p *Pattern) AppendAdjustment(a Adjustment) {
	p.Adjustments = append(p.Adjustments, a)
	if len(p.Adjustments) > maxAdjustmentHistory {
		p.Adjustments = p.Adjustments[len(p.Adjustments)-maxAdjustmentHistory:]
	}
}

// Clone deep-copies the pattern so store reads never hand out live maps.
func (p *Pattern) Clone() *Pattern {
	cp := *p
	cp.Keywords = append([]string(nil), p.Keywords...)
	cp.Symbols = append([]string(nil), p.Symbols...)
	cp.VIXMultipliers = make(map[VIXRegime]float64, len(p.VIXMultipliers))
	for k, v := range p.VIXMultipliers {
		cp.VIXMultipliers[k] = v
	}
	cp.TimeMultipliers = make(map[TimeBucket]float64, len(p.TimeMultipliers))
	for k, v := range p.TimeMultipliers {
		cp.TimeMultipliers[k] = v
	}
	cp.DayMultipliers = make(map[time.Weekday]float64, len(p.DayMultipliers))
	for k, v := range p.DayMultipliers {
		cp.DayMultipliers[k] = v
	}
	cp.ReturnsByVIX = make(map[VIXRegime][]float64, len(p.ReturnsByVIX))
	for k, v := range p.ReturnsByVIX {
		cp.ReturnsByVIX[k] = append([]float64(nil), v...)
	}
	cp.ReturnsByTime = make(map[TimeBucket][]float64, len(p.ReturnsByTime))
	for k, v := range p.ReturnsByTime {
		cp.ReturnsByTime[k] = append([]float64(nil), v...)
	}
	cp.ReturnsByDay = make(map[time.Weekday][]float64, len(p.ReturnsByDay))
	for k, v := range p.ReturnsByDay {
		cp.ReturnsByDay[k] = append([]float64(nil), v...)
	}
	cp.Adjustments = append([]Adjustment(nil), p.Adjustments...)
	return &cp
}
