package tools

import (
	"context"
	"database/sql"

	"github.com/hyp3rd/mssql-tool-server/internal/apperrors"
)

// ColumnInfo describes one column returned by DescribeTable.
type ColumnInfo struct {
	Name         string `json:"name"`
	DataType     string `json:"dataType"`
	MaxLength    *int   `json:"maxLength,omitempty"`
	Precision    *int   `json:"precision,omitempty"`
	Scale        *int   `json:"scale,omitempty"`
	Nullable     bool   `json:"nullable"`
	DefaultValue string `json:"defaultValue,omitempty"`
	IsPrimaryKey bool   `json:"isPrimaryKey"`
}

// DescribeTableArgs is the describe_table tool's argument shape.
type DescribeTableArgs struct {
	TableName string `json:"tableName"`
	Database  string `json:"database,omitempty"`
	Schema    string `json:"schema,omitempty"`
}

// DescribeTableResult is the describe_table tool's response payload.
type DescribeTableResult struct {
	Table   string       `json:"table"`
	Schema  string       `json:"schema"`
	Columns []ColumnInfo `json:"columns"`
}

const describeTableQuery = `
SELECT
	c.COLUMN_NAME,
	c.DATA_TYPE,
	c.CHARACTER_MAXIMUM_LENGTH,
	c.NUMERIC_PRECISION,
	c.NUMERIC_SCALE,
	c.IS_NULLABLE,
	c.COLUMN_DEFAULT,
	CASE WHEN pk.COLUMN_NAME IS NOT NULL THEN 1 ELSE 0 END AS IS_PRIMARY_KEY
FROM INFORMATION_SCHEMA.COLUMNS AS c
LEFT JOIN (
	SELECT kcu.COLUMN_NAME, kcu.TABLE_NAME, kcu.TABLE_SCHEMA
	FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS AS tc
	INNER JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE AS kcu
		ON tc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME
		AND tc.TABLE_SCHEMA = kcu.TABLE_SCHEMA
	WHERE tc.CONSTRAINT_TYPE = 'PRIMARY KEY'
) AS pk
	ON pk.COLUMN_NAME = c.COLUMN_NAME
	AND pk.TABLE_NAME = c.TABLE_NAME
	AND pk.TABLE_SCHEMA = c.TABLE_SCHEMA
WHERE c.TABLE_SCHEMA = @p1 AND c.TABLE_NAME = @p2
ORDER BY c.ORDINAL_POSITION
`

// DescribeTable returns column metadata for tableName ordered by ordinal
// position, with primary-key membership resolved via the constraint/key
// usage catalog (spec.md §4.5).
func DescribeTable(ctx context.Context, deps *Deps, args DescribeTableArgs) (*DescribeTableResult, error) {
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

	rows, err := conn.QueryContext(runCtx, describeTableQuery, schema, args.TableName)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrSqlExecution, "describing table", err)
	}
	defer rows.Close()

	result := &DescribeTableResult{Table: args.TableName, Schema: schema}

	for rows.Next() {
		var (
			col                                    ColumnInfo
			maxLen, precision, scale               sql.NullInt64
			isNullable                              string
			defaultVal                              sql.NullString
			isPK                                     int
		)

		if err := rows.Scan(&col.Name, &col.DataType, &maxLen, &precision, &scale, &isNullable, &defaultVal, &isPK); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrSqlExecution, "scanning column row", err)
		}

		col.Nullable = isNullable == "YES"
		col.IsPrimaryKey = isPK == 1

		if maxLen.Valid {
			v := int(maxLen.Int64)
			col.MaxLength = &v
		}

		if precision.Valid {
			v := int(precision.Int64)
			col.Precision = &v
		}

		if scale.Valid {
			v := int(scale.Int64)
			col.Scale = &v
		}

		if defaultVal.Valid {
			col.DefaultValue = defaultVal.String
		}

		result.Columns = append(result.Columns, col)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrSqlExecution, "reading column rows", err)
	}

	return result, nil
}
