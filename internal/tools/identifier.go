// Package tools implements the database tool set (C5, spec.md §4.5): one
// file per named tool, each obtaining a borrowed connection from
// internal/mssqlconn, optionally switching database with a guarded
// `USE [name]` statement, and running within the configured request
// timeout.
package tools

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hyp3rd/mssql-tool-server/internal/apperrors"
)

// bracket wraps name in SQL Server bracket-quoting exactly once. Names
// containing `]` are rejected as ErrValidation (spec.md §4.5) since a
// doubled-bracket escape would let the identifier smuggle arbitrary SQL.
func bracket(name string) (string, error) {
	if strings.Contains(name, "]") {
		return "", apperrors.New(apperrors.ErrValidation, fmt.Sprintf("identifier %q must not contain ']'", name))
	}

	return "[" + name + "]", nil
}

// qualify brackets schema and table and joins them with a dot.
func qualify(schema, table string) (string, error) {
	s, err := bracket(schema)
	if err != nil {
		return "", err
	}

	tbl, err := bracket(table)
	if err != nil {
		return "", err
	}

	return s + "." + tbl, nil
}

// useDatabase switches the current database on conn when database is
// non-empty, via a guarded `USE [name]` statement (spec.md §4.5).
func useDatabase(ctx context.Context, conn *sql.Conn, database string) error {
	if database == "" {
		return nil
	}

	ident, err := bracket(database)
	if err != nil {
		return err
	}

	if _, err := conn.ExecContext(ctx, "USE "+ident); err != nil {
		return apperrors.Wrap(apperrors.ErrSqlExecution, "switching database to "+database, err)
	}

	return nil
}

func defaultString(value, fallback string) string {
	if value == "" {
		return fallback
	}

	return value
}

func defaultInt(value, fallback int) int {
	if value <= 0 {
		return fallback
	}

	return value
}
