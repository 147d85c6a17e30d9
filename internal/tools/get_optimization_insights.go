package tools

import (
	"context"

	"github.com/hyp3rd/mssql-tool-server/internal/apperrors"
)

// OptimizationStatus is the health band for GetOptimizationInsights.
type OptimizationStatus string

const (
	OptimizationHealthy        OptimizationStatus = "Healthy"
	OptimizationNeedsAttention OptimizationStatus = "NeedsAttention"
	OptimizationCritical       OptimizationStatus = "Critical"
)

// GetOptimizationInsightsArgs is the get_optimization_insights tool's
// argument shape (spec.md §4.5).
type GetOptimizationInsightsArgs struct {
	Database       string `json:"database,omitempty"`
	AnalysisPeriod string `json:"analysisPeriod,omitempty"`
}

// GetOptimizationInsightsResult is the get_optimization_insights tool's
// response payload.
type GetOptimizationInsightsResult struct {
	MissingIndexCount   int                 `json:"missingIndexCount"`
	SlowQueryCount      int                 `json:"slowQueryCount"`
	BlockingSessionCount int                `json:"blockingSessionCount"`
	HealthScore         int                 `json:"healthScore"`
	Status              OptimizationStatus  `json:"status"`
	Recommendations     []string            `json:"recommendations"`
}

const blockingSessionCountQuery = `
SELECT COUNT(*) FROM sys.dm_exec_requests WHERE blocking_session_id <> 0
`

// GetOptimizationInsights aggregates missing-index count, slow-query count,
// blocking-session count, and the observatory's error rate into a [0,100]
// health score and a prioritized recommendation list (spec.md §4.5).
func GetOptimizationInsights(ctx context.Context, deps *Deps, args GetOptimizationInsightsArgs) (*GetOptimizationInsightsResult, error) {
	missingIdx, err := GetIndexRecommendations(ctx, deps, GetIndexRecommendationsArgs{Database: args.Database, Limit: 100}) //nolint:mnd
	if err != nil {
		return nil, err
	}

	perfStats := deps.Obs.Stats(normalizeTimeframe(args.AnalysisPeriod))

	blockingCount, err := blockingSessionCount(ctx, deps, args.Database)
	if err != nil {
		return nil, err
	}

	result := &GetOptimizationInsightsResult{
		MissingIndexCount:    len(missingIdx.Recommendations),
		SlowQueryCount:       perfStats.SlowQueryCount,
		BlockingSessionCount: blockingCount,
	}

	result.HealthScore, result.Status = scoreOptimization(result.MissingIndexCount, result.SlowQueryCount, blockingCount, perfStats.ErrorRate)
	result.Recommendations = recommendationsFor(result)

	return result, nil
}

func blockingSessionCount(ctx context.Context, deps *Deps, database string) (int, error) {
	conn, release, err := deps.Pool.Borrow(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	if err := useDatabase(ctx, conn, database); err != nil {
		return 0, err
	}

	runCtx, cancel := context.WithTimeout(ctx, deps.Cfg.MSSQL.RequestTimeout())
	defer cancel()

	var count int
	if err := conn.QueryRowContext(runCtx, blockingSessionCountQuery).Scan(&count); err != nil {
		return 0, apperrors.Wrap(apperrors.ErrSqlExecution, "counting blocking sessions", err)
	}

	return count, nil
}

func scoreOptimization(missingIdx, slowQueries, blockingSessions int, errorRate float64) (int, OptimizationStatus) {
	score := 100

	if missingIdx > 0 {
		score -= min(missingIdx*2, 30) //nolint:mnd
	}

	if slowQueries > 0 {
		score -= min(slowQueries, 30) //nolint:mnd
	}

	if blockingSessions > 0 {
		score -= min(blockingSessions*10, 30) //nolint:mnd
	}

	if errorRate >= 0.05 { //nolint:mnd
		score -= 10 //nolint:mnd
	}

	if score < 0 {
		score = 0
	}

	switch {
	case score >= 80: //nolint:mnd
		return score, OptimizationHealthy
	case score >= 60: //nolint:mnd
		return score, OptimizationNeedsAttention
	default:
		return score, OptimizationCritical
	}
}

func recommendationsFor(r *GetOptimizationInsightsResult) []string {
	var recs []string

	if r.MissingIndexCount > 0 {
		recs = append(recs, "review get_index_recommendations — missing indexes detected")
	}

	if r.SlowQueryCount > 0 {
		recs = append(recs, "investigate slow queries via get_query_performance(slowOnly=true)")
	}

	if r.BlockingSessionCount > 0 {
		recs = append(recs, "blocking sessions detected — review long-running transactions")
	}

	if len(recs) == 0 {
		recs = append(recs, "no immediate optimization action required")
	}

	return recs
}
