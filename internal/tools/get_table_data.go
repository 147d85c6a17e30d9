package tools

import (
	"context"
	"fmt"

	"github.com/hyp3rd/mssql-tool-server/internal/apperrors"
)

const defaultTableDataLimit = 100

// GetTableDataArgs is the get_table_data tool's argument shape (spec.md §4.5).
type GetTableDataArgs struct {
	TableName string `json:"tableName"`
	Database  string `json:"database,omitempty"`
	Schema    string `json:"schema,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	Where     string `json:"where,omitempty"`
}

// GetTableDataResult is the get_table_data tool's response payload.
type GetTableDataResult struct {
	Table    string           `json:"table"`
	Rows     []map[string]any `json:"rows"`
	RowCount int              `json:"rowCount"`
}

// GetTableData selects the first limit rows of tableName, with an optional
// raw where clause passed through unchanged (spec.md §4.5: the caller is
// responsible for its correctness — this call is already gated by the
// policy engine and an authenticated host).
func GetTableData(ctx context.Context, deps *Deps, args GetTableDataArgs) (*GetTableDataResult, error) {
	schema := defaultString(args.Schema, defaultSchema)
	limit := defaultInt(args.Limit, defaultTableDataLimit)

	qualified, err := qualify(schema, args.TableName)
	if err != nil {
		return nil, err
	}

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

	query := fmt.Sprintf("SELECT TOP (%d) * FROM %s", limit, qualified)
	if args.Where != "" {
		query += " WHERE " + args.Where
	}

	rows, err := conn.QueryContext(runCtx, query)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrSqlExecution, "fetching table data", err)
	}
	defer rows.Close()

	set, err := scanRows(rows)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrSqlExecution, "scanning table data", err)
	}

	return &GetTableDataResult{Table: args.TableName, Rows: set, RowCount: len(set)}, nil
}
