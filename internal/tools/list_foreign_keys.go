package tools

import (
	"context"

	"github.com/hyp3rd/mssql-tool-server/internal/apperrors"
)

// ForeignKeyInfo describes one row of ListForeignKeys's result.
type ForeignKeyInfo struct {
	Constraint       string `json:"constraint"`
	ParentTable      string `json:"parentTable"`
	ParentColumn     string `json:"parentColumn"`
	ReferencedTable  string `json:"referencedTable"`
	ReferencedColumn string `json:"referencedColumn"`
	OnDelete         string `json:"onDelete"`
	OnUpdate         string `json:"onUpdate"`
	Disabled         bool   `json:"disabled"`
}

// ListForeignKeysArgs is the list_foreign_keys tool's argument shape.
type ListForeignKeysArgs struct {
	Database string `json:"database,omitempty"`
	Schema   string `json:"schema,omitempty"`
}

// ListForeignKeysResult is the list_foreign_keys tool's response payload.
type ListForeignKeysResult struct {
	ForeignKeys []ForeignKeyInfo `json:"foreignKeys"`
}

const listForeignKeysQuery = `
SELECT
	fk.name AS constraint_name,
	pt.name AS parent_table,
	pc.name AS parent_column,
	rt.name AS referenced_table,
	rc.name AS referenced_column,
	fk.delete_referential_action_desc,
	fk.update_referential_action_desc,
	fk.is_disabled
FROM sys.foreign_keys AS fk
INNER JOIN sys.foreign_key_columns AS fkc ON fkc.constraint_object_id = fk.object_id
INNER JOIN sys.tables AS pt ON pt.object_id = fkc.parent_object_id
INNER JOIN sys.columns AS pc ON pc.object_id = fkc.parent_object_id AND pc.column_id = fkc.parent_column_id
INNER JOIN sys.tables AS rt ON rt.object_id = fkc.referenced_object_id
INNER JOIN sys.columns AS rc ON rc.object_id = fkc.referenced_object_id AND rc.column_id = fkc.referenced_column_id
INNER JOIN sys.schemas AS s ON s.schema_id = pt.schema_id
WHERE s.name = @p1
ORDER BY pt.name
`

// ListForeignKeys returns foreign key constraints in schema, ordered by
// parent table (spec.md §4.5).
func ListForeignKeys(ctx context.Context, deps *Deps, args ListForeignKeysArgs) (*ListForeignKeysResult, error) {
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

	rows, err := conn.QueryContext(runCtx, listForeignKeysQuery, schema)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrSqlExecution, "listing foreign keys", err)
	}
	defer rows.Close()

	result := &ListForeignKeysResult{}

	for rows.Next() {
		var fk ForeignKeyInfo
		if err := rows.Scan(
			&fk.Constraint, &fk.ParentTable, &fk.ParentColumn,
			&fk.ReferencedTable, &fk.ReferencedColumn, &fk.OnDelete, &fk.OnUpdate, &fk.Disabled,
		); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrSqlExecution, "scanning foreign key row", err)
		}

		result.ForeignKeys = append(result.ForeignKeys, fk)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrSqlExecution, "reading foreign key rows", err)
	}

	return result, nil
}
