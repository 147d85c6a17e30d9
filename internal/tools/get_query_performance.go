package tools

import (
	"context"

	"github.com/hyp3rd/mssql-tool-server/internal/perfobs"
)

const defaultQueryPerformanceLimit = 50

// GetQueryPerformanceArgs is the get_query_performance tool's argument shape.
type GetQueryPerformanceArgs struct {
	Limit      int    `json:"limit,omitempty"`
	ToolFilter string `json:"toolFilter,omitempty"`
	SlowOnly   bool   `json:"slowOnly,omitempty"`
}

// GetQueryPerformanceResult is the get_query_performance tool's response
// payload.
type GetQueryPerformanceResult struct {
	Records []perfobs.QueryRecord `json:"records"`
}

// GetQueryPerformance is a facade over the observatory's QueryStats
// (spec.md §4.5). A non-positive limit normalizes to 50.
func GetQueryPerformance(_ context.Context, deps *Deps, args GetQueryPerformanceArgs) (*GetQueryPerformanceResult, error) {
	limit := defaultInt(args.Limit, defaultQueryPerformanceLimit)

	records := deps.Obs.QueryStats(perfobs.QueryStatsFilter{
		Limit: limit, ToolFilter: args.ToolFilter, SlowOnly: args.SlowOnly,
	})

	return &GetQueryPerformanceResult{Records: records}, nil
}
