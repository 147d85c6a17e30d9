package tools

import (
	"context"

	"github.com/hyp3rd/mssql-tool-server/internal/perfobs"
)

// GetPerformanceStatsArgs is the get_performance_stats tool's argument shape.
type GetPerformanceStatsArgs struct {
	Timeframe string `json:"timeframe,omitempty"`
}

// GetPerformanceStats is a facade over the observatory's Stats (spec.md §4.5).
func GetPerformanceStats(_ context.Context, deps *Deps, args GetPerformanceStatsArgs) (*perfobs.AggregatedStats, error) {
	tf := normalizeTimeframe(args.Timeframe)

	stats := deps.Obs.Stats(tf)

	return &stats, nil
}

func normalizeTimeframe(raw string) perfobs.Timeframe {
	switch perfobs.Timeframe(raw) {
	case perfobs.TimeframeRecent:
		return perfobs.TimeframeRecent
	case perfobs.TimeframeSession:
		return perfobs.TimeframeSession
	default:
		return perfobs.TimeframeAll
	}
}
