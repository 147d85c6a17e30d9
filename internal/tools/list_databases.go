package tools

import (
	"context"

	"github.com/hyp3rd/mssql-tool-server/internal/apperrors"
)

// excludedSystemDatabases are never returned by ListDatabases (spec.md §4.5).
var excludedSystemDatabases = map[string]bool{
	"master": true, "tempdb": true, "model": true, "msdb": true,
}

// DatabaseInfo describes one row of ListDatabases's result.
type DatabaseInfo struct {
	Name       string `json:"name"`
	ID         int    `json:"id"`
	CreateDate string `json:"createDate"`
	Collation  string `json:"collation"`
	State      string `json:"state"`
}

// ListDatabasesResult is the list_databases tool's response payload.
type ListDatabasesResult struct {
	Databases []DatabaseInfo `json:"databases"`
}

const listDatabasesQuery = `
SELECT
	d.name,
	d.database_id,
	d.create_date,
	d.collation_name,
	d.state_desc
FROM sys.databases AS d
ORDER BY d.name
`

// ListDatabases returns user databases, excluding the fixed system set.
func ListDatabases(ctx context.Context, deps *Deps) (*ListDatabasesResult, error) {
	conn, release, err := deps.Pool.Borrow(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	runCtx, cancel := context.WithTimeout(ctx, deps.Cfg.MSSQL.RequestTimeout())
	defer cancel()

	rows, err := conn.QueryContext(runCtx, listDatabasesQuery)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrSqlExecution, "listing databases", err)
	}
	defer rows.Close()

	result := &ListDatabasesResult{}

	for rows.Next() {
		var (
			name, collation, state string
			id                     int
			createDate             any
		)

		if err := rows.Scan(&name, &id, &createDate, &collation, &state); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrSqlExecution, "scanning database row", err)
		}

		if excludedSystemDatabases[name] {
			continue
		}

		created := ""
		if v := normalizeValue(createDate); v != nil {
			if s, ok := v.(string); ok {
				created = s
			}
		}

		result.Databases = append(result.Databases, DatabaseInfo{
			Name: name, ID: id, CreateDate: created, Collation: collation, State: state,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrSqlExecution, "reading database rows", err)
	}

	return result, nil
}
