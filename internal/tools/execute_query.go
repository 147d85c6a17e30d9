package tools

import (
	"context"
	"database/sql"
	"time"

	"github.com/hyp3rd/mssql-tool-server/internal/apperrors"
	"github.com/hyp3rd/mssql-tool-server/internal/perfobs"
	"github.com/hyp3rd/mssql-tool-server/internal/safety"
)

// ExecuteQueryArgs is the execute_query tool's argument shape (spec.md §4.5).
type ExecuteQueryArgs struct {
	Statement string `json:"statement"`
	Database  string `json:"database,omitempty"`
}

// ExecuteQueryResult is the execute_query tool's response payload.
type ExecuteQueryResult struct {
	RowsAffected int64                      `json:"rowsAffected,omitempty"`
	Recordset    []map[string]any           `json:"recordset,omitempty"`
	Recordsets   [][]map[string]any         `json:"recordsets,omitempty"`
	SafetyInfo   SafetyInfo                 `json:"safetyInfo"`
}

// ExecuteQuery runs statement subject to the safety policy engine (spec.md
// §4.5 execute_query). On allow, it executes the statement against the
// optionally-switched database and returns its result shape.
func ExecuteQuery(ctx context.Context, deps *Deps, args ExecuteQueryArgs) (*ExecuteQueryResult, error) {
	decision := safety.ClassifyAndAuthorize(deps.PolicyFlags(), args.Statement)
	deps.auditDecision("execute_query", decision)

	if !decision.Allowed {
		return nil, apperrors.New(apperrors.ErrPolicyDenied, decision.Reason)
	}

	opID := deps.Obs.StartQuery("execute_query", args.Statement, args.Database)

	result, err := executeClassified(ctx, deps, args.Database, args.Statement, decision.Classification)

	endObservatory(deps, opID, result, err)

	if err != nil {
		return nil, err
	}

	result.SafetyInfo = deps.safetyInfo()

	return result, nil
}

func endObservatory(deps *Deps, opID string, result *ExecuteQueryResult, err error) {
	if err != nil {
		deps.Obs.EndQuery(opID, nil, 0, false, perfobs.KindFromErr(err), err.Error())

		return
	}

	rowCount := 0
	if result != nil {
		rowCount = len(result.Recordset)
	}

	var rowsAffected []int64
	if result != nil && result.RowsAffected > 0 {
		rowsAffected = []int64{result.RowsAffected}
	}

	deps.Obs.EndQuery(opID, rowsAffected, rowCount, true, perfobs.ErrorKindNone, "")
}

func executeClassified(
	ctx context.Context, deps *Deps, database, statement string, classification safety.Classification,
) (*ExecuteQueryResult, error) {
	conn, release, err := deps.Pool.Borrow(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := useDatabase(ctx, conn, database); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithTimeout(ctx, deps.Cfg.MSSQL.RequestTimeout())
	defer cancel()

	switch classification {
	case safety.ReadOnly, safety.Admin:
		return queryRecordsets(runCtx, conn, statement)
	default:
		return execStatement(runCtx, conn, statement)
	}
}

func execStatement(ctx context.Context, conn *sql.Conn, statement string) (*ExecuteQueryResult, error) {
	res, err := conn.ExecContext(ctx, statement)
	if err != nil {
		return nil, classifyExecErr(ctx, err)
	}

	affected, _ := res.RowsAffected()

	return &ExecuteQueryResult{RowsAffected: affected}, nil
}

func queryRecordsets(ctx context.Context, conn *sql.Conn, statement string) (*ExecuteQueryResult, error) {
	rows, err := conn.QueryContext(ctx, statement)
	if err != nil {
		return nil, classifyExecErr(ctx, err)
	}
	defer rows.Close()

	var recordsets [][]map[string]any

	for {
		set, err := scanRows(rows)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrSqlExecution, "scanning result set", err)
		}

		recordsets = append(recordsets, set)

		if !rows.NextResultSet() {
			break
		}
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrSqlExecution, "reading result sets", err)
	}

	result := &ExecuteQueryResult{Recordsets: recordsets}
	if len(recordsets) > 0 {
		result.Recordset = recordsets[0]
	}

	return result, nil
}

func classifyExecErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return apperrors.Wrap(apperrors.ErrTimeout, "statement execution timed out", err)
	}

	return apperrors.Wrap(apperrors.ErrSqlExecution, "executing statement", err)
}

// scanRows materializes the current result set as a slice of column→value
// maps, shared by every tool that returns tabular data.
func scanRows(rows *sql.Rows) ([]map[string]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0)

	for rows.Next() {
		values := make([]any, len(cols))
		pointers := make([]any, len(cols))

		for i := range values {
			pointers[i] = &values[i]
		}

		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}

		row := make(map[string]any, len(cols))

		for i, col := range cols {
			row[col] = normalizeValue(values[i])
		}

		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

// normalizeValue converts driver-returned byte slices to strings so the
// JSON-encoded response carries readable text instead of base64 blobs.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339Nano)
	default:
		return v
	}
}
