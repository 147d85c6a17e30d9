package tools

import (
	"context"

	"github.com/hyp3rd/mssql-tool-server/internal/apperrors"
)

const defaultSchema = "dbo"

// TableInfo describes one row of ListTables's result.
type TableInfo struct {
	Database  string `json:"database"`
	Schema    string `json:"schema"`
	TableName string `json:"tableName"`
	TableType string `json:"tableType"`
}

// ListTablesArgs is the list_tables tool's argument shape (spec.md §4.5).
type ListTablesArgs struct {
	Database string `json:"database,omitempty"`
	Schema   string `json:"schema,omitempty"`
}

// ListTablesResult is the list_tables tool's response payload.
type ListTablesResult struct {
	Tables []TableInfo `json:"tables"`
}

const listTablesQuery = `
SELECT
	DB_NAME() AS database_name,
	t.TABLE_SCHEMA,
	t.TABLE_NAME,
	t.TABLE_TYPE
FROM INFORMATION_SCHEMA.TABLES AS t
WHERE t.TABLE_SCHEMA = @p1
ORDER BY t.TABLE_NAME
`

// ListTables returns tables in schema (defaults to dbo) of database.
func ListTables(ctx context.Context, deps *Deps, args ListTablesArgs) (*ListTablesResult, error) {
	schema := defaultString(args.Schema, defaultSchema)

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

	rows, err := conn.QueryContext(runCtx, listTablesQuery, schema)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrSqlExecution, "listing tables", err)
	}
	defer rows.Close()

	result := &ListTablesResult{}

	for rows.Next() {
		var t TableInfo
		if err := rows.Scan(&t.Database, &t.Schema, &t.TableName, &t.TableType); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrSqlExecution, "scanning table row", err)
		}

		result.Tables = append(result.Tables, t)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrSqlExecution, "reading table rows", err)
	}

	return result, nil
}
