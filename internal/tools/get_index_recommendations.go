package tools

import (
	"context"
	"fmt"

	"github.com/hyp3rd/mssql-tool-server/internal/apperrors"
)

const defaultIndexRecommendationLimit = 10

// IndexRecommendation describes one row of GetIndexRecommendations's result.
type IndexRecommendation struct {
	Database        string  `json:"database"`
	Table           string  `json:"table"`
	EqualityColumns string  `json:"equalityColumns"`
	InequalityColumns string `json:"inequalityColumns"`
	IncludedColumns string  `json:"includedColumns"`
	AvgUserImpact   float64 `json:"avgUserImpact"`
	UserSeeks       int64   `json:"userSeeks"`
	UserScans       int64   `json:"userScans"`
}

// GetIndexRecommendationsArgs is the get_index_recommendations tool's
// argument shape (spec.md §4.5).
type GetIndexRecommendationsArgs struct {
	Database        string  `json:"database,omitempty"`
	Schema          string  `json:"schema,omitempty"`
	Limit           int     `json:"limit,omitempty"`
	ImpactThreshold float64 `json:"impactThreshold,omitempty"`
}

// GetIndexRecommendationsResult is the get_index_recommendations tool's
// response payload.
type GetIndexRecommendationsResult struct {
	Recommendations []IndexRecommendation `json:"recommendations"`
}

const indexRecommendationsQueryTemplate = `
SELECT TOP (%d)
	DB_NAME(mid.database_id) AS database_name,
	OBJECT_NAME(mid.object_id, mid.database_id) AS table_name,
	ISNULL(mid.equality_columns, '') AS equality_columns,
	ISNULL(mid.inequality_columns, '') AS inequality_columns,
	ISNULL(mid.included_columns, '') AS included_columns,
	migs.avg_user_impact,
	migs.user_seeks,
	migs.user_scans
FROM sys.dm_db_missing_index_details AS mid
INNER JOIN sys.dm_db_missing_index_groups AS mig ON mig.index_handle = mid.index_handle
INNER JOIN sys.dm_db_missing_index_group_stats AS migs ON migs.group_handle = mig.index_group_handle
WHERE migs.avg_user_impact >= @p1
ORDER BY migs.avg_user_impact DESC
`

// GetIndexRecommendations reads the server's missing-index DMVs
// (spec.md §4.5). impactThreshold must be within [0,100] or this fails
// ErrValidation.
func GetIndexRecommendations(ctx context.Context, deps *Deps, args GetIndexRecommendationsArgs) (*GetIndexRecommendationsResult, error) {
	if args.ImpactThreshold < 0 || args.ImpactThreshold > 100 { //nolint:mnd
		return nil, apperrors.New(apperrors.ErrValidation, "impactThreshold must be within [0,100]")
	}

	limit := defaultInt(args.Limit, defaultIndexRecommendationLimit)

	conn, release, err := deps.Pool.Borrow(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := useDatabase(ctx, conn, args.Database); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithTimeout(ctx, deps.Cfg.MSSQL.RequestTimeout())
	defer cancel()

	query := fmt.Sprintf(indexRecommendationsQueryTemplate, limit)

	rows, err := conn.QueryContext(runCtx, query, args.ImpactThreshold)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrSqlExecution, "reading missing index DMVs", err)
	}
	defer rows.Close()

	result := &GetIndexRecommendationsResult{}

	for rows.Next() {
		var rec IndexRecommendation
		if err := rows.Scan(
			&rec.Database, &rec.Table, &rec.EqualityColumns, &rec.InequalityColumns,
			&rec.IncludedColumns, &rec.AvgUserImpact, &rec.UserSeeks, &rec.UserScans,
		); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrSqlExecution, "scanning index recommendation row", err)
		}

		result.Recommendations = append(result.Recommendations, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrSqlExecution, "reading index recommendation rows", err)
	}

	return result, nil
}
