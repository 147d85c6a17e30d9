package perfobs

import (
	"math/rand"
	"sync"
	"time"

	mstats "github.com/montanaflynn/stats"
)

// Timeframe selects the window stats() aggregates over (spec.md §4.4).
type Timeframe string

const (
	TimeframeRecent  Timeframe = "recent"
	TimeframeSession Timeframe = "session"
	TimeframeAll     Timeframe = "all"
)

const recentWindow = 5 * time.Minute

// noopID is returned by StartQuery when the observatory is disabled, so
// callers can pass it straight through to EndQuery as a harmless no-op.
const noopID = ""

// ToolStats is the per-tool breakdown inside AggregatedStats.
type ToolStats struct {
	Count      int     `json:"count"`
	AverageMs  float64 `json:"averageMs"`
	ErrorCount int     `json:"errorCount"`
}

// AggregatedStats is the stats() result shape (spec.md §3).
type AggregatedStats struct {
	Enabled           bool                 `json:"enabled"`
	Message           string               `json:"message,omitempty"`
	TotalQueries      int                  `json:"totalQueries"`
	SuccessCount      int                  `json:"successCount"`
	ErrorCount        int                  `json:"errorCount"`
	ErrorRate         float64              `json:"errorRate"`
	AverageDurationMs float64              `json:"averageDurationMs"`
	P50DurationMs     float64              `json:"p50DurationMs"`
	P90DurationMs     float64              `json:"p90DurationMs"`
	P95DurationMs     float64              `json:"p95DurationMs"`
	SlowQueryCount    int                  `json:"slowQueryCount"`
	PerTool           map[string]ToolStats `json:"perTool"`
}

// Observatory owns the bounded record ring and computes aggregates on
// demand. All mutation happens under a single short-lived mutex, per
// spec.md §5.
type Observatory struct {
	mu sync.Mutex

	enabled      bool
	maxHistory   int
	slowQueryMs  float64
	samplingRate float64
	streaming    bool

	ring     []QueryRecord
	inFlight map[string]*QueryRecord
	fp       *fingerprinter
	rng      *rand.Rand

	maxStatementBytes int
	startedAt         time.Time
}

// Config carries the subset of the global configuration the observatory
// needs, so this package does not import internal/config directly.
type Config struct {
	Enabled            bool
	MaxHistory         int
	SlowQueryMs        int
	SamplingRate       float64
	StreamingEnabled   bool
	FingerprintCacheSz int
	MaxStatementBytes  int
}

// New builds an Observatory from cfg.
func New(cfg Config) *Observatory {
	fpCacheSize := cfg.FingerprintCacheSz
	if fpCacheSize <= 0 {
		fpCacheSize = 1
	}

	return &Observatory{
		enabled:           cfg.Enabled,
		maxHistory:        cfg.MaxHistory,
		slowQueryMs:       float64(cfg.SlowQueryMs),
		samplingRate:      cfg.SamplingRate,
		streaming:         cfg.StreamingEnabled,
		inFlight:          make(map[string]*QueryRecord),
		fp:                newFingerprinter(fpCacheSize),
		rng:               rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // sampling jitter, not cryptographic
		maxStatementBytes: maxStatementBytesOrDefault(cfg.MaxStatementBytes),
		startedAt:         time.Now(),
	}
}

// StartQuery records the start of an attempted execution and decides,
// via a Bernoulli trial at samplingRate, whether the eventual record will be
// retained. Returns an id to pass to EndQuery, or the no-op sentinel if the
// observatory is disabled.
func (o *Observatory) StartQuery(tool, statement, database string) string {
	if !o.enabled {
		return noopID
	}

	sampled := o.samplingRate >= 1.0 || o.rng.Float64() < o.samplingRate

	rec := &QueryRecord{
		ID:             NewRecordID(),
		Tool:           tool,
		Fingerprint:    o.fp.fingerprint(statement),
		Database:       database,
		StartTimestamp: time.Now(),
		Sampled:        sampled,
	}

	if o.streaming {
		rec.Statement = statement
	} else {
		rec.Statement = truncateStatement(rec.Fingerprint, o.maxStatementBytes)
	}

	o.mu.Lock()
	o.inFlight[rec.ID] = rec
	o.mu.Unlock()

	return rec.ID
}

func maxStatementBytesOrDefault(n int) int {
	if n <= 0 {
		return 1024
	}

	return n
}

// EndQuery finalizes the record started under id. errKind/errMessage should
// be empty on success. A fault in this method must never propagate to the
// caller (spec.md §7: observatory operations are best-effort) — callers
// should not check an error return, and none is given.
func (o *Observatory) EndQuery(id string, rowsAffected []int64, rowCount int, success bool, errKind ErrorKind, errMessage string) {
	if id == noopID {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	rec, ok := o.inFlight[id]
	if !ok {
		return
	}

	delete(o.inFlight, id)

	rec.EndTimestamp = time.Now()
	rec.DurationMs = float64(rec.EndTimestamp.Sub(rec.StartTimestamp).Microseconds()) / 1000.0 //nolint:mnd
	rec.RowsAffected = rowsAffected
	rec.RowCount = rowCount
	rec.Success = success
	rec.ErrorKind = errKind
	rec.ErrorMessage = errMessage
	rec.Slow = success && rec.DurationMs >= o.slowQueryMs

	if !rec.Sampled {
		return
	}

	o.ring = append(o.ring, *rec)
	if len(o.ring) > o.maxHistory {
		o.ring = o.ring[len(o.ring)-o.maxHistory:]
	}
}

// snapshot returns a copy of the ring filtered to timeframe, under lock.
func (o *Observatory) snapshot(timeframe Timeframe) []QueryRecord {
	o.mu.Lock()
	defer o.mu.Unlock()

	cutoff := o.startedAt

	switch timeframe {
	case TimeframeRecent:
		cutoff = time.Now().Add(-recentWindow)
	case TimeframeSession:
		cutoff = o.startedAt
	case TimeframeAll:
		cutoff = time.Time{}
	default:
		cutoff = time.Time{}
	}

	out := make([]QueryRecord, 0, len(o.ring))

	for _, r := range o.ring {
		if r.StartTimestamp.Before(cutoff) {
			continue
		}

		out = append(out, r)
	}

	return out
}

// Stats aggregates over the timeframe-filtered ring (spec.md §4.4).
// Unrecognized timeframes normalize to "all".
func (o *Observatory) Stats(timeframe Timeframe) AggregatedStats {
	if !o.enabled {
		return AggregatedStats{Enabled: false, Message: "performance observatory is disabled"}
	}

	records := o.snapshot(timeframe)

	agg := AggregatedStats{Enabled: true, PerTool: make(map[string]ToolStats)}
	agg.TotalQueries = len(records)

	if len(records) == 0 {
		return agg
	}

	durations := make([]float64, 0, len(records))
	perTool := make(map[string]*toolAccumulator)

	for _, r := range records {
		durations = append(durations, r.DurationMs)

		if r.Success {
			agg.SuccessCount++
		} else {
			agg.ErrorCount++
		}

		if r.Slow {
			agg.SlowQueryCount++
		}

		acc, ok := perTool[r.Tool]
		if !ok {
			acc = &toolAccumulator{}
			perTool[r.Tool] = acc
		}

		acc.count++
		acc.totalMs += r.DurationMs

		if !r.Success {
			acc.errorCount++
		}
	}

	agg.ErrorRate = float64(agg.ErrorCount) / float64(agg.TotalQueries)
	agg.AverageDurationMs = mean(durations)
	agg.P50DurationMs = percentile(durations, 50)  //nolint:mnd
	agg.P90DurationMs = percentile(durations, 90)  //nolint:mnd
	agg.P95DurationMs = percentile(durations, 95)  //nolint:mnd

	for tool, acc := range perTool {
		agg.PerTool[tool] = ToolStats{
			Count:      acc.count,
			AverageMs:  acc.totalMs / float64(acc.count),
			ErrorCount: acc.errorCount,
		}
	}

	return agg
}

type toolAccumulator struct {
	count      int
	totalMs    float64
	errorCount int
}

func mean(xs []float64) float64 {
	v, err := mstats.Mean(xs)
	if err != nil {
		return 0
	}

	return v
}

func percentile(xs []float64, p float64) float64 {
	v, err := mstats.Percentile(xs, p)
	if err != nil {
		return 0
	}

	return v
}

// QueryStatsFilter parameterizes QueryStats (spec.md §4.5 get_query_performance).
type QueryStatsFilter struct {
	Limit      int
	ToolFilter string
	SlowOnly   bool
}

// QueryStats returns the most recent records matching filter, newest first.
func (o *Observatory) QueryStats(filter QueryStatsFilter) []QueryRecord {
	if !o.enabled {
		return nil
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50 //nolint:mnd
	}

	all := o.snapshot(TimeframeAll)

	matched := make([]QueryRecord, 0, len(all))

	for i := len(all) - 1; i >= 0; i-- {
		r := all[i]

		if filter.ToolFilter != "" && r.Tool != filter.ToolFilter {
			continue
		}

		if filter.SlowOnly && !r.Slow {
			continue
		}

		matched = append(matched, r)

		if len(matched) >= limit {
			break
		}
	}

	return matched
}

// ErrorRate returns the "recent" window error rate, or -1 if no samples are
// available yet — the sentinel mssqlconn.scoreHealth treats as "skip this
// penalty" (spec.md §4.2).
func (o *Observatory) ErrorRate() float64 {
	if !o.enabled {
		return -1
	}

	records := o.snapshot(TimeframeRecent)
	if len(records) == 0 {
		return -1
	}

	errs := 0

	for _, r := range records {
		if !r.Success {
			errs++
		}
	}

	return float64(errs) / float64(len(records))
}

// Enabled reports whether the observatory is recording.
func (o *Observatory) Enabled() bool {
	return o.enabled
}
