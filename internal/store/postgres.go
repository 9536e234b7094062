package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/catalyst-trading/catalyst-engine/internal/observ"
	"github.com/catalyst-trading/catalyst-engine/internal/pattern"
	"github.com/catalyst-trading/catalyst-engine/internal/trade"
)

// Postgres is the production Store. Multiplier maps persist as JSON keyed by
// the fixed enum labels; only the adjustment history and return buckets stay
// free-form blobs.
type Postgres struct {
	db      *sqlx.DB
	timeout time.Duration
	locks   *patternLocks
}

func NewPostgres(dsn string, timeout time.Duration) (*Postgres, error) {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Postgres{db: db, timeout: timeout, locks: newPatternLocks()}, nil
}

func (s *Postgres) Close() error { return s.db.Close() }

func (s *Postgres) WithPatternLock(name string, fn func() error) error {
	return s.locks.with(name, fn)
}

// EnsureSchema creates the three logical tables from the persistence
// contract: patterns, trades, learning_log.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS patterns (
			seq                SERIAL,
			name               TEXT PRIMARY KEY,
			version            INTEGER NOT NULL DEFAULT 1,
			keywords           TEXT[] NOT NULL DEFAULT '{}',
			direction          TEXT NOT NULL,
			symbols            TEXT[] NOT NULL DEFAULT '{}',
			base_weight        DOUBLE PRECISION NOT NULL DEFAULT 1.0,
			best_vix_regime    TEXT NOT NULL DEFAULT '',
			vix_multipliers    JSONB,
			best_time_bucket   TEXT NOT NULL DEFAULT '',
			worst_time_bucket  TEXT NOT NULL DEFAULT '',
			time_multipliers   JSONB,
			day_multipliers    JSONB,
			optimal_stop_pct   DOUBLE PRECISION NOT NULL DEFAULT 0.02,
			optimal_target_pct DOUBLE PRECISION NOT NULL DEFAULT 0.03,
			optimal_hold_hours INTEGER NOT NULL DEFAULT 24,
			total_trades       INTEGER NOT NULL DEFAULT 0,
			wins               INTEGER NOT NULL DEFAULT 0,
			losses             INTEGER NOT NULL DEFAULT 0,
			scratches          INTEGER NOT NULL DEFAULT 0,
			total_return       DOUBLE PRECISION NOT NULL DEFAULT 0,
			returns_by_vix     JSONB,
			returns_by_time    JSONB,
			returns_by_day     JSONB,
			adjustments        JSONB,
			last_updated       TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS trades (
			id                TEXT PRIMARY KEY,
			pattern_name      TEXT NOT NULL,
			symbol            TEXT NOT NULL,
			direction         TEXT NOT NULL,
			entry_price       DOUBLE PRECISION NOT NULL,
			entry_time        TIMESTAMPTZ NOT NULL,
			catalyst          TEXT NOT NULL DEFAULT '',
			catalyst_source   TEXT NOT NULL DEFAULT '',
			catalyst_category TEXT NOT NULL DEFAULT '',
			target_price      DOUBLE PRECISION NOT NULL,
			stop_price        DOUBLE PRECISION NOT NULL,
			vix_at_entry      DOUBLE PRECISION NOT NULL DEFAULT 0,
			vix_regime        TEXT NOT NULL DEFAULT '',
			broad_trend       TEXT NOT NULL DEFAULT '',
			sector_momentum   DOUBLE PRECISION NOT NULL DEFAULT 0,
			time_bucket       TEXT NOT NULL DEFAULT '',
			weekday           INTEGER NOT NULL DEFAULT 0,
			days_to_expiry    INTEGER NOT NULL DEFAULT 0,
			strike            DOUBLE PRECISION NOT NULL DEFAULT 0,
			expiration        TIMESTAMPTZ,
			option_type       TEXT NOT NULL DEFAULT '',
			iv_at_entry       DOUBLE PRECISION,
			delta_at_entry    DOUBLE PRECISION NOT NULL DEFAULT 0,
			conviction        TEXT NOT NULL DEFAULT 'MEDIUM',
			pattern_score     DOUBLE PRECISION NOT NULL DEFAULT 1,
			win_rate_at_entry DOUBLE PRECISION NOT NULL DEFAULT 0.5,
			outcome           TEXT NOT NULL DEFAULT 'PENDING',
			exit_price        DOUBLE PRECISION,
			exit_time         TIMESTAMPTZ,
			actual_return     DOUBLE PRECISION,
			max_favorable     DOUBLE PRECISION,
			max_adverse       DOUBLE PRECISION,
			minutes_to_res    INTEGER,
			failure_reasons   TEXT[] NOT NULL DEFAULT '{}',
			lessons           TEXT[] NOT NULL DEFAULT '{}',
			improvements      TEXT[] NOT NULL DEFAULT '{}',
			created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS trades_pattern_entry_idx ON trades (pattern_name, entry_time DESC)`,
		`CREATE TABLE IF NOT EXISTS learning_log (
			id              SERIAL PRIMARY KEY,
			ts              TIMESTAMPTZ NOT NULL,
			pattern_name    TEXT NOT NULL,
			dimension       TEXT NOT NULL,
			old_value       TEXT NOT NULL DEFAULT '',
			new_value       TEXT NOT NULL DEFAULT '',
			reason          TEXT NOT NULL DEFAULT '',
			trades_analyzed INTEGER NOT NULL DEFAULT 0,
			confidence      DOUBLE PRECISION NOT NULL DEFAULT 0
		)`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

type patternRow struct {
	Name             string         `db:"name"`
	Version          int            `db:"version"`
	Keywords         pq.StringArray `db:"keywords"`
	Direction        string         `db:"direction"`
	Symbols          pq.StringArray `db:"symbols"`
	BaseWeight       float64        `db:"base_weight"`
	BestVIXRegime    string         `db:"best_vix_regime"`
	VIXMultipliers   []byte         `db:"vix_multipliers"`
	BestTimeBucket   string         `db:"best_time_bucket"`
	WorstTimeBucket  string         `db:"worst_time_bucket"`
	TimeMultipliers  []byte         `db:"time_multipliers"`
	DayMultipliers   []byte         `db:"day_multipliers"`
	OptimalStopPct   float64        `db:"optimal_stop_pct"`
	OptimalTargetPct float64        `db:"optimal_target_pct"`
	OptimalHoldHours int            `db:"optimal_hold_hours"`
	TotalTrades      int            `db:"total_trades"`
	Wins             int            `db:"wins"`
	Losses           int            `db:"losses"`
	Scratches        int            `db:"scratches"`
	TotalReturn      float64        `db:"total_return"`
	ReturnsByVIX     []byte         `db:"returns_by_vix"`
	ReturnsByTime    []byte         `db:"returns_by_time"`
	ReturnsByDay     []byte         `db:"returns_by_day"`
	Adjustments      []byte         `db:"adjustments"`
	LastUpdated      sql.NullTime   `db:"last_updated"`
}

const patternColumns = `name, version, keywords, direction, symbols, base_weight,
	best_vix_regime, vix_multipliers, best_time_bucket, worst_time_bucket,
	time_multipliers, day_multipliers, optimal_stop_pct, optimal_target_pct,
	optimal_hold_hours, total_trades, wins, losses, scratches, total_return,
	returns_by_vix, returns_by_time, returns_by_day, adjustments, last_updated`

func (s *Postgres) SavePattern(ctx context.Context, p *pattern.Pattern) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	vixMul, _ := json.Marshal(encodeVIXMap(p.VIXMultipliers))
	timeMul, _ := json.Marshal(encodeTimeMap(p.TimeMultipliers))
	dayMul, _ := json.Marshal(encodeDayMap(p.DayMultipliers))
	retVIX, _ := json.Marshal(encodeVIXReturns(p.ReturnsByVIX))
	retTime, _ := json.Marshal(encodeTimeReturns(p.ReturnsByTime))
	retDay, _ := json.Marshal(encodeDayReturns(p.ReturnsByDay))
	adjust, _ := json.Marshal(p.Adjustments)

	query := `
		INSERT INTO patterns (` + patternColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25)
		ON CONFLICT (name) DO UPDATE SET
			version = EXCLUDED.version,
			keywords = EXCLUDED.keywords,
			direction = EXCLUDED.direction,
			symbols = EXCLUDED.symbols,
			base_weight = EXCLUDED.base_weight,
			best_vix_regime = EXCLUDED.best_vix_regime,
			vix_multipliers = EXCLUDED.vix_multipliers,
			best_time_bucket = EXCLUDED.best_time_bucket,
			worst_time_bucket = EXCLUDED.worst_time_bucket,
			time_multipliers = EXCLUDED.time_multipliers,
			day_multipliers = EXCLUDED.day_multipliers,
			optimal_stop_pct = EXCLUDED.optimal_stop_pct,
			optimal_target_pct = EXCLUDED.optimal_target_pct,
			optimal_hold_hours = EXCLUDED.optimal_hold_hours,
			total_trades = EXCLUDED.total_trades,
			wins = EXCLUDED.wins,
			losses = EXCLUDED.losses,
			scratches = EXCLUDED.scratches,
			total_return = EXCLUDED.total_return,
			returns_by_vix = EXCLUDED.returns_by_vix,
			returns_by_time = EXCLUDED.returns_by_time,
			returns_by_day = EXCLUDED.returns_by_day,
			adjustments = EXCLUDED.adjustments,
			last_updated = EXCLUDED.last_updated`

	var last sql.NullTime
	if !p.LastUpdated.IsZero() {
		last = sql.NullTime{Time: p.LastUpdated, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, query,
		p.Name, p.Version, pq.StringArray(p.Keywords), string(p.Direction),
		pq.StringArray(p.Symbols), p.BaseWeight, string(p.BestVIXRegime), vixMul,
		string(p.BestTimeBucket), string(p.WorstTimeBucket), timeMul, dayMul,
		p.OptimalStopPct, p.OptimalTargetPct, p.OptimalHoldHours,
		p.TotalTrades, p.Wins, p.Losses, p.Scratches, p.TotalReturn,
		retVIX, retTime, retDay, adjust, last)
	if err != nil {
		return fmt.Errorf("save pattern %s: %w", p.Name, err)
	}
	return nil
}

func (s *Postgres) GetPattern(ctx context.Context, name string) (*pattern.Pattern, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var row patternRow
	err := s.db.GetContext(ctx, &row, `SELECT `+patternColumns+` FROM patterns WHERE name = $1`, name)
	if err == sql.ErrNoRows {
		return nil, ErrPatternNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get pattern %s: %w", name, err)
	}
	return row.toPattern(), nil
}

func (s *Postgres) GetAllPatterns(ctx context.Context) ([]*pattern.Pattern, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var rows []patternRow
	err := s.db.SelectContext(ctx, &rows, `SELECT `+patternColumns+` FROM patterns ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("get all patterns: %w", err)
	}
	out := make([]*pattern.Pattern, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toPattern())
	}
	return out, nil
}

func (r *patternRow) toPattern() *pattern.Pattern {
	p := pattern.New(r.Name, []string(r.Keywords), pattern.Direction(r.Direction), []string(r.Symbols), r.BaseWeight)
	p.Version = r.Version
	p.BestVIXRegime = pattern.VIXRegime(r.BestVIXRegime)
	p.BestTimeBucket = pattern.TimeBucket(r.BestTimeBucket)
	p.WorstTimeBucket = pattern.TimeBucket(r.WorstTimeBucket)
	p.VIXMultipliers = decodeVIXMap(r.Name, "vix_multipliers", r.VIXMultipliers)
	p.TimeMultipliers = decodeTimeMap(r.Name, "time_multipliers", r.TimeMultipliers)
	p.DayMultipliers = decodeDayMap(r.Name, "day_multipliers", r.DayMultipliers)
	p.OptimalStopPct = r.OptimalStopPct
	p.OptimalTargetPct = r.OptimalTargetPct
	p.OptimalHoldHours = r.OptimalHoldHours
	p.TotalTrades = r.TotalTrades
	p.Wins = r.Wins
	p.Losses = r.Losses
	p.Scratches = r.Scratches
	p.TotalReturn = r.TotalReturn
	p.ReturnsByVIX = decodeVIXReturns(r.Name, r.ReturnsByVIX)
	p.ReturnsByTime = decodeTimeReturns(r.Name, r.ReturnsByTime)
	p.ReturnsByDay = decodeDayReturns(r.Name, r.ReturnsByDay)
	p.Adjustments = decodeAdjustments(r.Name, r.Adjustments)
	if r.LastUpdated.Valid {
		p.LastUpdated = r.LastUpdated.Time
	}
	return p
}

// Map codecs. Unknown keys are dropped on decode so a typo in a stored blob
// can never grow the enumerated key space; malformed blobs decode to empty
// defaults and are logged, never fatal.

func encodeVIXMap(m map[pattern.VIXRegime]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[string(k)] = v
	}
	return out
}

func encodeTimeMap(m map[pattern.TimeBucket]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[string(k)] = v
	}
	return out
}

func encodeDayMap(m map[time.Weekday]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[strconv.Itoa(int(k))] = v
	}
	return out
}

func encodeVIXReturns(m map[pattern.VIXRegime][]float64) map[string][]float64 {
	out := make(map[string][]float64, len(m))
	for k, v := range m {
		out[string(k)] = v
	}
	return out
}

func encodeTimeReturns(m map[pattern.TimeBucket][]float64) map[string][]float64 {
	out := make(map[string][]float64, len(m))
	for k, v := range m {
		out[string(k)] = v
	}
	return out
}

func encodeDayReturns(m map[time.Weekday][]float64) map[string][]float64 {
	out := make(map[string][]float64, len(m))
	for k, v := range m {
		out[strconv.Itoa(int(k))] = v
	}
	return out
}

func logDecodeError(name, field string, err error) {
	observ.Warn("pattern_decode_error", map[string]any{
		"pattern": name,
		"field":   field,
		"error":   err.Error(),
	})
	observ.IncCounter("pattern_decode_errors", map[string]string{"field": field})
}

func decodeVIXMap(name, field string, raw []byte) map[pattern.VIXRegime]float64 {
	out := map[pattern.VIXRegime]float64{}
	if len(raw) == 0 {
		return out
	}
	var m map[string]float64
	if err := json.Unmarshal(raw, &m); err != nil {
		logDecodeError(name, field, err)
		return out
	}
	for _, r := range pattern.Regimes() {
		if v, ok := m[string(r)]; ok {
			out[r] = v
		}
	}
	return out
}

func decodeTimeMap(name, field string, raw []byte) map[pattern.TimeBucket]float64 {
	out := map[pattern.TimeBucket]float64{}
	if len(raw) == 0 {
		return out
	}
	var m map[string]float64
	if err := json.Unmarshal(raw, &m); err != nil {
		logDecodeError(name, field, err)
		return out
	}
	for _, b := range pattern.TimeBuckets() {
		if v, ok := m[string(b)]; ok {
			out[b] = v
		}
	}
	return out
}

func decodeDayMap(name, field string, raw []byte) map[time.Weekday]float64 {
	out := map[time.Weekday]float64{}
	if len(raw) == 0 {
		return out
	}
	var m map[string]float64
	if err := json.Unmarshal(raw, &m); err != nil {
		logDecodeError(name, field, err)
		return out
	}
	for k, v := range m {
		d, err := strconv.Atoi(k)
		if err != nil || d < 0 || d > 6 {
			continue
		}
		out[time.Weekday(d)] = v
	}
	return out
}

func decodeVIXReturns(name string, raw []byte) map[pattern.VIXRegime][]float64 {
	out := map[pattern.VIXRegime][]float64{}
	if len(raw) == 0 {
		return out
	}
	var m map[string][]float64
	if err := json.Unmarshal(raw, &m); err != nil {
		logDecodeError(name, "returns_by_vix", err)
		return out
	}
	for _, r := range pattern.Regimes() {
		if v, ok := m[string(r)]; ok {
			out[r] = v
		}
	}
	return out
}

func decodeTimeReturns(name string, raw []byte) map[pattern.TimeBucket][]float64 {
	out := map[pattern.TimeBucket][]float64{}
	if len(raw) == 0 {
		return out
	}
	var m map[string][]float64
	if err := json.Unmarshal(raw, &m); err != nil {
		logDecodeError(name, "returns_by_time", err)
		return out
	}
	for _, b := range pattern.TimeBuckets() {
		if v, ok := m[string(b)]; ok {
			out[b] = v
		}
	}
	return out
}

func decodeDayReturns(name string, raw []byte) map[time.Weekday][]float64 {
	out := map[time.Weekday][]float64{}
	if len(raw) == 0 {
		return out
	}
	var m map[string][]float64
	if err := json.Unmarshal(raw, &m); err != nil {
		logDecodeError(name, "returns_by_day", err)
		return out
	}
	for k, v := range m {
		d, err := strconv.Atoi(k)
		if err != nil || d < 0 || d > 6 {
			continue
		}
		out[time.Weekday(d)] = v
	}
	return out
}

func decodeAdjustments(name string, raw []byte) []pattern.Adjustment {
	if len(raw) == 0 {
		return nil
	}
	var out []pattern.Adjustment
	if err := json.Unmarshal(raw, &out); err != nil {
		logDecodeError(name, "adjustments", err)
		return nil
	}
	return out
}

type tradeRow struct {
	ID               string          `db:"id"`
	PatternName      string          `db:"pattern_name"`
	Symbol           string          `db:"symbol"`
	Direction        string          `db:"direction"`
	EntryPrice       float64         `db:"entry_price"`
	EntryTime        time.Time       `db:"entry_time"`
	Catalyst         string          `db:"catalyst"`
	CatalystSource   string          `db:"catalyst_source"`
	CatalystCategory string          `db:"catalyst_category"`
	TargetPrice      float64         `db:"target_price"`
	StopPrice        float64         `db:"stop_price"`
	VIXAtEntry       float64         `db:"vix_at_entry"`
	VIXRegime        string          `db:"vix_regime"`
	BroadTrend       string          `db:"broad_trend"`
	SectorMomentum   float64         `db:"sector_momentum"`
	TimeBucket       string          `db:"time_bucket"`
	Weekday          int             `db:"weekday"`
	DaysToExpiry     int             `db:"days_to_expiry"`
	Strike           float64         `db:"strike"`
	Expiration       sql.NullTime    `db:"expiration"`
	OptionType       string          `db:"option_type"`
	IVAtEntry        sql.NullFloat64 `db:"iv_at_entry"`
	DeltaAtEntry     float64         `db:"delta_at_entry"`
	Conviction       string          `db:"conviction"`
	PatternScore     float64         `db:"pattern_score"`
	WinRateAtEntry   float64         `db:"win_rate_at_entry"`
	Outcome          string          `db:"outcome"`
	ExitPrice        sql.NullFloat64 `db:"exit_price"`
	ExitTime         sql.NullTime    `db:"exit_time"`
	ActualReturn     sql.NullFloat64 `db:"actual_return"`
	MaxFavorable     sql.NullFloat64 `db:"max_favorable"`
	MaxAdverse       sql.NullFloat64 `db:"max_adverse"`
	MinutesToRes     sql.NullInt64   `db:"minutes_to_res"`
	FailureReasons   pq.StringArray  `db:"failure_reasons"`
	Lessons          pq.StringArray  `db:"lessons"`
	Improvements     pq.StringArray  `db:"improvements"`
}

const tradeColumns = `id, pattern_name, symbol, direction, entry_price, entry_time,
	catalyst, catalyst_source, catalyst_category, target_price, stop_price,
	vix_at_entry, vix_regime, broad_trend, sector_momentum, time_bucket, weekday,
	days_to_expiry, strike, expiration, option_type, iv_at_entry, delta_at_entry,
	conviction, pattern_score, win_rate_at_entry, outcome, exit_price, exit_time,
	actual_return, max_favorable, max_adverse, minutes_to_res, failure_reasons,
	lessons, improvements`

func (s *Postgres) SaveTrade(ctx context.Context, t *trade.Record) error {
	if err := t.Validate(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var (
		expiration, exitTime           sql.NullTime
		exitPrice, ret, maxFav, maxAdv sql.NullFloat64
		iv                             sql.NullFloat64
		minutes                        sql.NullInt64
	)
	if !t.Expiration.IsZero() {
		expiration = sql.NullTime{Time: t.Expiration, Valid: true}
	}
	if t.IVAtEntry != nil {
		iv = sql.NullFloat64{Float64: *t.IVAtEntry, Valid: true}
	}
	if t.Outcome.Terminal() {
		exitPrice = sql.NullFloat64{Float64: t.ExitPrice, Valid: true}
		exitTime = sql.NullTime{Time: t.ExitTime, Valid: true}
		ret = sql.NullFloat64{Float64: t.ActualReturn, Valid: true}
		maxFav = sql.NullFloat64{Float64: t.MaxFavorable, Valid: true}
		maxAdv = sql.NullFloat64{Float64: t.MaxAdverse, Valid: true}
		minutes = sql.NullInt64{Int64: int64(t.MinutesToResolution), Valid: true}
	}

	query := `
		INSERT INTO trades (` + tradeColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,
			$19,$20,$21,$22,$23,$24,$25,$26,$27,$28,$29,$30,$31,$32,$33,$34,$35,$36)
		ON CONFLICT (id) DO UPDATE SET
			outcome = EXCLUDED.outcome,
			exit_price = EXCLUDED.exit_price,
			exit_time = EXCLUDED.exit_time,
			actual_return = EXCLUDED.actual_return,
			max_favorable = EXCLUDED.max_favorable,
			max_adverse = EXCLUDED.max_adverse,
			minutes_to_res = EXCLUDED.minutes_to_res,
			failure_reasons = EXCLUDED.failure_reasons,
			lessons = EXCLUDED.lessons,
			improvements = EXCLUDED.improvements`

	_, err := s.db.ExecContext(ctx, query,
		t.ID, t.PatternName, t.Symbol, string(t.Direction), t.EntryPrice, t.EntryTime,
		t.Catalyst, t.CatalystSource, t.CatalystCategory, t.TargetPrice, t.StopPrice,
		t.VIXAtEntry, string(t.VIXRegime), string(t.BroadTrend), t.SectorMomentum,
		string(t.TimeBucket), int(t.Weekday), t.DaysToExpiry, t.Strike, expiration,
		string(t.OptionType), iv, t.DeltaAtEntry, string(t.Conviction), t.PatternScore,
		t.PatternWinRateAtEntry, string(t.Outcome), exitPrice, exitTime, ret,
		maxFav, maxAdv, minutes, pq.StringArray(t.FailureReasons),
		pq.StringArray(t.Lessons), pq.StringArray(t.Improvements))
	if err != nil {
		return fmt.Errorf("save trade %s: %w", t.ID, err)
	}
	return nil
}

func (s *Postgres) TradesForPattern(ctx context.Context, name string, limit int) ([]*trade.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if limit <= 0 {
		limit = 100
	}
	var rows []tradeRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+tradeColumns+` FROM trades
		WHERE ($1 = '' OR pattern_name = $1)
		ORDER BY entry_time DESC
		LIMIT $2`, name, limit)
	if err != nil {
		return nil, fmt.Errorf("trades for pattern %s: %w", name, err)
	}
	out := make([]*trade.Record, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toRecord())
	}
	return out, nil
}

func (r *tradeRow) toRecord() *trade.Record {
	t := &trade.Record{
		ID:                    r.ID,
		PatternName:           r.PatternName,
		Symbol:                r.Symbol,
		Direction:             pattern.Direction(r.Direction),
		EntryPrice:            r.EntryPrice,
		EntryTime:             r.EntryTime,
		Catalyst:              r.Catalyst,
		CatalystSource:        r.CatalystSource,
		CatalystCategory:      r.CatalystCategory,
		TargetPrice:           r.TargetPrice,
		StopPrice:             r.StopPrice,
		VIXAtEntry:            r.VIXAtEntry,
		VIXRegime:             pattern.VIXRegime(r.VIXRegime),
		BroadTrend:            trade.Trend(r.BroadTrend),
		SectorMomentum:        r.SectorMomentum,
		TimeBucket:            pattern.TimeBucket(r.TimeBucket),
		Weekday:               time.Weekday(r.Weekday),
		DaysToExpiry:          r.DaysToExpiry,
		Strike:                r.Strike,
		OptionType:            trade.OptionType(r.OptionType),
		DeltaAtEntry:          r.DeltaAtEntry,
		Conviction:            trade.Conviction(r.Conviction),
		PatternScore:          r.PatternScore,
		PatternWinRateAtEntry: r.WinRateAtEntry,
		Outcome:               trade.Outcome(r.Outcome),
		FailureReasons:        []string(r.FailureReasons),
		Lessons:               []string(r.Lessons),
		Improvements:          []string(r.Improvements),
	}
	if r.Expiration.Valid {
		t.Expiration = r.Expiration.Time
	}
	if r.IVAtEntry.Valid {
		iv := r.IVAtEntry.Float64
		t.IVAtEntry = &iv
	}
	if r.ExitPrice.Valid {
		t.ExitPrice = r.ExitPrice.Float64
	}
	if r.ExitTime.Valid {
		t.ExitTime = r.ExitTime.Time
	}
	if r.ActualReturn.Valid {
		t.ActualReturn = r.ActualReturn.Float64
	}
	if r.MaxFavorable.Valid {
		t.MaxFavorable = r.MaxFavorable.Float64
	}
	if r.MaxAdverse.Valid {
		t.MaxAdverse = r.MaxAdverse.Float64
	}
	if r.MinutesToRes.Valid {
		t.MinutesToResolution = int(r.MinutesToRes.Int64)
	}
	return t
}

func (s *Postgres) LogLearningEvent(ctx context.Context, ev pattern.LearningEvent) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO learning_log (ts, pattern_name, dimension, old_value, new_value, reason, trades_analyzed, confidence)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		ev.Timestamp, ev.PatternName, ev.Dimension, ev.OldValue, ev.NewValue,
		ev.Reason, ev.TradesAnalyzed, ev.Confidence)
	if err != nil {
		return fmt.Errorf("log learning event: %w", err)
	}
	return nil
}

func (s *Postgres) LearningHistory(ctx context.Context, name string, limit int) ([]pattern.LearningEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if limit <= 0 {
		limit = 50
	}
	type eventRow struct {
		TS             time.Time `db:"ts"`
		PatternName    string    `db:"pattern_name"`
		Dimension      string    `db:"dimension"`
		OldValue       string    `db:"old_value"`
		NewValue       string    `db:"new_value"`
		Reason         string    `db:"reason"`
		TradesAnalyzed int       `db:"trades_analyzed"`
		Confidence     float64   `db:"confidence"`
	}
	var rows []eventRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT ts, pattern_name, dimension, old_value, new_value, reason, trades_analyzed, confidence
		FROM learning_log
		WHERE ($1 = '' OR pattern_name = $1)
		ORDER BY ts DESC, id DESC
		LIMIT $2`, name, limit)
	if err != nil {
		return nil, fmt.Errorf("learning history: %w", err)
	}
	out := make([]pattern.LearningEvent, 0, len(rows))
	for _, r := range rows {
		out = append(out, pattern.LearningEvent{
			PatternName:    r.PatternName,
			Dimension:      r.Dimension,
			OldValue:       r.OldValue,
			NewValue:       r.NewValue,
			Reason:         r.Reason,
			TradesAnalyzed: r.TradesAnalyzed,
			Confidence:     r.Confidence,
			Timestamp:      r.TS,
		})
	}
	return out, nil
}
