package tools

import (
	"context"
	"fmt"

	"github.com/hyp3rd/mssql-tool-server/internal/apperrors"
)

const defaultBottleneckLimit = 10

// BottleneckSeverity ranks a detected bottleneck.
type BottleneckSeverity string

const (
	BottleneckLow      BottleneckSeverity = "Low"
	BottleneckMedium   BottleneckSeverity = "Medium"
	BottleneckHigh     BottleneckSeverity = "High"
	BottleneckCritical BottleneckSeverity = "Critical"
)

var validBottleneckSeverities = map[BottleneckSeverity]bool{
	BottleneckLow: true, BottleneckMedium: true, BottleneckHigh: true, BottleneckCritical: true,
}

// QueryBottleneck describes one slow/high-I/O statement surfaced by
// DetectQueryBottlenecks. EstimatedWaitMs is synthesized from duration and
// execution count, not read from a real wait-stats DMV — per spec.md §9's
// second Open Question, it is explicitly marked Synthesized so callers don't
// mistake it for telemetry.
type QueryBottleneck struct {
	StatementText    string             `json:"statementText"`
	AvgDurationMs    float64            `json:"avgDurationMs"`
	ExecutionCount   int64              `json:"executionCount"`
	TotalLogicalReads int64             `json:"totalLogicalReads"`
	Severity         BottleneckSeverity `json:"severity"`
	EstimatedWaitMs  float64            `json:"estimatedWaitMs"`
	Synthesized      bool               `json:"synthesized"`
}

// DetectQueryBottlenecksArgs is the detect_query_bottlenecks tool's
// argument shape (spec.md §4.5).
type DetectQueryBottlenecksArgs struct {
	Database       string `json:"database,omitempty"`
	Limit          int    `json:"limit,omitempty"`
	SeverityFilter string `json:"severityFilter,omitempty"`
}

// DetectQueryBottlenecksResult is the detect_query_bottlenecks tool's
// response payload.
type DetectQueryBottlenecksResult struct {
	Bottlenecks []QueryBottleneck `json:"bottlenecks"`
}

const bottlenecksQueryTemplate = `
SELECT TOP (%d)
	st.text,
	qs.total_elapsed_time * 1.0 / NULLIF(qs.execution_count, 0) / 1000.0 AS avg_duration_ms,
	qs.execution_count,
	qs.total_logical_reads
FROM sys.dm_exec_query_stats AS qs
CROSS APPLY sys.dm_exec_sql_text(qs.sql_handle) AS st
ORDER BY avg_duration_ms DESC
`

// DetectQueryBottlenecks reads the server's query-stats DMVs for slow/
// high-I/O statements and assigns a severity band to each (spec.md §4.5).
// Filtering by an invalid severity fails ErrValidation.
func DetectQueryBottlenecks(ctx context.Context, deps *Deps, args DetectQueryBottlenecksArgs) (*DetectQueryBottlenecksResult, error) {
	severityFilter := BottleneckSeverity(args.SeverityFilter)
	if args.SeverityFilter != "" && !validBottleneckSeverities[severityFilter] {
		return nil, apperrors.New(apperrors.ErrValidation, "severityFilter must be one of Low, Medium, High, Critical")
	}

	limit := defaultInt(args.Limit, defaultBottleneckLimit)

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

	query := fmt.Sprintf(bottlenecksQueryTemplate, limit)

	rows, err := conn.QueryContext(runCtx, query)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrSqlExecution, "reading query-stats DMVs", err)
	}
	defer rows.Close()

	result := &DetectQueryBottlenecksResult{}

	for rows.Next() {
		var b QueryBottleneck

		if err := rows.Scan(&b.StatementText, &b.AvgDurationMs, &b.ExecutionCount, &b.TotalLogicalReads); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrSqlExecution, "scanning bottleneck row", err)
		}

		b.Severity = severityFor(b.AvgDurationMs, b.TotalLogicalReads)
		b.EstimatedWaitMs = b.AvgDurationMs * 0.3 //nolint:mnd // synthesized heuristic, see doc comment
		b.Synthesized = true

		if severityFilter != "" && b.Severity != severityFilter {
			continue
		}

		result.Bottlenecks = append(result.Bottlenecks, b)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrSqlExecution, "reading bottleneck rows", err)
	}

	return result, nil
}

func severityFor(avgDurationMs float64, logicalReads int64) BottleneckSeverity {
	const (
		criticalMs = 5000.0
		highMs     = 1000.0
		mediumMs   = 200.0
		highReads  = 1_000_000
	)

	switch {
	case avgDurationMs >= criticalMs || logicalReads >= highReads*5:
		return BottleneckCritical
	case avgDurationMs >= highMs || logicalReads >= highReads:
		return BottleneckHigh
	case avgDurationMs >= mediumMs:
		return BottleneckMedium
	default:
		return BottleneckLow
	}
}
