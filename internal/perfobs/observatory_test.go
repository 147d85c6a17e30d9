package perfobs_test

import (
	"testing"
	"time"

	"github.com/hyp3rd/mssql-tool-server/internal/perfobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestObservatory(maxHistory int, samplingRate float64) *perfobs.Observatory {
	return perfobs.New(perfobs.Config{
		Enabled:            true,
		MaxHistory:         maxHistory,
		SlowQueryMs:        10,
		SamplingRate:       samplingRate,
		StreamingEnabled:   false,
		FingerprintCacheSz: 64,
		MaxStatementBytes:  1024,
	})
}

func TestObservatory_BoundedRing(t *testing.T) {
	t.Parallel()

	const maxHistory = 5

	obs := newTestObservatory(maxHistory, 1.0)

	for i := 0; i < maxHistory*3; i++ {
		id := obs.StartQuery("execute_query", "SELECT 1", "")
		obs.EndQuery(id, nil, 1, true, perfobs.ErrorKindNone, "")
	}

	stats := obs.Stats(perfobs.TimeframeAll)
	assert.Equal(t, maxHistory, stats.TotalQueries)

	records := obs.QueryStats(perfobs.QueryStatsFilter{Limit: maxHistory})
	require.Len(t, records, maxHistory)
}

func TestObservatory_Disabled_IsNoop(t *testing.T) {
	t.Parallel()

	obs := perfobs.New(perfobs.Config{Enabled: false})

	id := obs.StartQuery("execute_query", "SELECT 1", "")
	assert.Empty(t, id)

	obs.EndQuery(id, nil, 1, true, perfobs.ErrorKindNone, "")

	stats := obs.Stats(perfobs.TimeframeAll)
	assert.False(t, stats.Enabled)
	assert.NotEmpty(t, stats.Message)
}

func TestObservatory_SlowQueryFlagging(t *testing.T) {
	t.Parallel()

	obs := perfobs.New(perfobs.Config{
		Enabled:            true,
		MaxHistory:         10,
		SlowQueryMs:        10,
		SamplingRate:       1.0,
		FingerprintCacheSz: 16,
	})

	id := obs.StartQuery("execute_query", "SELECT * FROM big_table", "")
	time.Sleep(15 * time.Millisecond)
	obs.EndQuery(id, nil, 1, true, perfobs.ErrorKindNone, "")

	records := obs.QueryStats(perfobs.QueryStatsFilter{Limit: 10, SlowOnly: true})
	require.Len(t, records, 1)
	assert.True(t, records[0].Slow)
}

func TestObservatory_UnsampledRecordsDropped(t *testing.T) {
	t.Parallel()

	// samplingRate 0.0 means every record is dropped before reaching the
	// ring (spec.md §9's sampling/slow-query Open Question resolution).
	obs := newTestObservatory(10, 0.0)

	for i := 0; i < 5; i++ {
		id := obs.StartQuery("execute_query", "SELECT 1", "")
		obs.EndQuery(id, nil, 1, true, perfobs.ErrorKindNone, "")
	}

	stats := obs.Stats(perfobs.TimeframeAll)
	assert.Equal(t, 0, stats.TotalQueries)
}

func TestObservatory_AggregatesErrorRateAndPercentiles(t *testing.T) {
	t.Parallel()

	obs := newTestObservatory(100, 1.0)

	for i := 0; i < 4; i++ {
		id := obs.StartQuery("execute_query", "SELECT 1", "")
		obs.EndQuery(id, nil, 1, true, perfobs.ErrorKindNone, "")
	}

	id := obs.StartQuery("execute_query", "SELECT 1", "")
	obs.EndQuery(id, nil, 0, false, perfobs.ErrorKindSQLExecution, "boom")

	stats := obs.Stats(perfobs.TimeframeAll)
	assert.Equal(t, 5, stats.TotalQueries)
	assert.Equal(t, 1, stats.ErrorCount)
	assert.InDelta(t, 0.2, stats.ErrorRate, 0.001)
	assert.Contains(t, stats.PerTool, "execute_query")
	assert.Equal(t, 5, stats.PerTool["execute_query"].Count)
}
