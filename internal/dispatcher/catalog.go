package dispatcher

import (
	"context"
	"encoding/json"

	"github.com/hyp3rd/mssql-tool-server/internal/apperrors"
	"github.com/hyp3rd/mssql-tool-server/internal/tools"
)

// ToolHandler is the common call-shape every catalog entry implements:
// arguments object in, response envelope payload or error out (spec.md §9).
type ToolHandler func(ctx context.Context, raw json.RawMessage) (any, error)

// ToolDescriptor pairs a handler with the human-facing metadata list_tools
// returns.
type ToolDescriptor struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Handler     ToolHandler `json:"-"`
}

// BuildCatalog enumerates the fixed tool set at construction time — a plain
// map literal, never runtime reflection (spec.md §9, "Dynamic dispatch →
// explicit catalog").
func BuildCatalog(deps *tools.Deps) map[string]ToolDescriptor {
	entries := []ToolDescriptor{
		{
			Name:        "execute_query",
			Description: "Execute a SQL statement against the connected database, subject to the safety policy.",
			Handler: decode(func(ctx context.Context, args tools.ExecuteQueryArgs) (any, error) {
				return tools.ExecuteQuery(ctx, deps, args)
			}),
		},
		{
			Name:        "list_databases",
			Description: "List user databases on the connected SQL Server instance.",
			Handler: func(ctx context.Context, _ json.RawMessage) (any, error) {
				return tools.ListDatabases(ctx, deps)
			},
		},
		{
			Name:        "list_tables",
			Description: "List tables in a schema of a database.",
			Handler: decode(func(ctx context.Context, args tools.ListTablesArgs) (any, error) {
				return tools.ListTables(ctx, deps, args)
			}),
		},
		{
			Name:        "describe_table",
			Description: "Describe a table's columns, including primary-key membership.",
			Handler: decode(func(ctx context.Context, args tools.DescribeTableArgs) (any, error) {
				return tools.DescribeTable(ctx, deps, args)
			}),
		},
		{
			Name:        "get_table_data",
			Description: "Fetch the first N rows of a table, with an optional WHERE clause.",
			Handler: decode(func(ctx context.Context, args tools.GetTableDataArgs) (any, error) {
				return tools.GetTableData(ctx, deps, args)
			}),
		},
		{
			Name:        "explain_query",
			Description: "Return the execution plan for a statement without (by default) running it for effect.",
			Handler: decode(func(ctx context.Context, args tools.ExplainQueryArgs) (any, error) {
				return tools.ExplainQuery(ctx, deps, args)
			}),
		},
		{
			Name:        "list_foreign_keys",
			Description: "List foreign key constraints in a schema.",
			Handler: decode(func(ctx context.Context, args tools.ListForeignKeysArgs) (any, error) {
				return tools.ListForeignKeys(ctx, deps, args)
			}),
		},
		{
			Name:        "export_table_csv",
			Description: "Export a table's rows as CSV.",
			Handler: decode(func(ctx context.Context, args tools.ExportTableCSVArgs) (any, error) {
				return tools.ExportTableCSV(ctx, deps, args)
			}),
		},
		{
			Name:        "get_performance_stats",
			Description: "Return aggregated query performance statistics over a timeframe.",
			Handler: decode(func(ctx context.Context, args tools.GetPerformanceStatsArgs) (any, error) {
				return tools.GetPerformanceStats(ctx, deps, args)
			}),
		},
		{
			Name:        "get_query_performance",
			Description: "Return the most recent query records, optionally filtered.",
			Handler: decode(func(ctx context.Context, args tools.GetQueryPerformanceArgs) (any, error) {
				return tools.GetQueryPerformance(ctx, deps, args)
			}),
		},
		{
			Name:        "get_connection_health",
			Description: "Return the connection pool's current health snapshot.",
			Handler: func(ctx context.Context, _ json.RawMessage) (any, error) {
				return tools.GetConnectionHealth(ctx, deps)
			},
		},
		{
			Name:        "get_index_recommendations",
			Description: "Return missing-index recommendations ordered by estimated impact.",
			Handler: decode(func(ctx context.Context, args tools.GetIndexRecommendationsArgs) (any, error) {
				return tools.GetIndexRecommendations(ctx, deps, args)
			}),
		},
		{
			Name:        "analyze_query_performance",
			Description: "Capture a best-effort plan/cost for a statement and return shape-based optimization advice.",
			Handler: decode(func(ctx context.Context, args tools.AnalyzeQueryPerformanceArgs) (any, error) {
				return tools.AnalyzeQueryPerformance(ctx, deps, args)
			}),
		},
		{
			Name:        "detect_query_bottlenecks",
			Description: "Surface slow/high-I/O statements from the server's query-stats DMVs.",
			Handler: decode(func(ctx context.Context, args tools.DetectQueryBottlenecksArgs) (any, error) {
				return tools.DetectQueryBottlenecks(ctx, deps, args)
			}),
		},
		{
			Name:        "get_optimization_insights",
			Description: "Aggregate missing indexes, slow queries, and blocking sessions into a health score.",
			Handler: decode(func(ctx context.Context, args tools.GetOptimizationInsightsArgs) (any, error) {
				return tools.GetOptimizationInsights(ctx, deps, args)
			}),
		},
	}

	catalog := make(map[string]ToolDescriptor, len(entries))
	for _, e := range entries {
		catalog[e.Name] = e
	}

	return catalog
}

// decode adapts a typed handler function into the raw ToolHandler shape,
// unmarshaling arguments once per call. A malformed arguments object becomes
// ErrValidation, which the caller maps to InvalidRequest.
func decode[T any](fn func(ctx context.Context, args T) (any, error)) ToolHandler {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var args T

		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, apperrors.Wrap(apperrors.ErrValidation, "decoding tool arguments", err)
			}
		}

		return fn(ctx, args)
	}
}
