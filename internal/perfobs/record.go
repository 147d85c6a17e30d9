// Package perfobs is the performance observatory (C4, spec.md §4.4): a
// bounded ring of per-query records plus on-demand aggregation and pool
// health annotation. It is adapted from the teacher's
// internal/repository/pg.Monitor — same bounded-slice-with-eviction ring and
// mutex-guarded append — generalized to spec.md §3's richer record shape and
// the timeframe/percentile facade spec.md §4.4 requires.
package perfobs

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hyp3rd/mssql-tool-server/internal/apperrors"
)

// ErrorKind mirrors the subset of the apperrors taxonomy relevant to a query
// record's outcome (spec.md §3/§7).
type ErrorKind string

const (
	ErrorKindNone          ErrorKind = ""
	ErrorKindTimeout       ErrorKind = "ErrTimeout"
	ErrorKindPolicyDenied  ErrorKind = "ErrPolicyDenied"
	ErrorKindValidation    ErrorKind = "ErrValidation"
	ErrorKindSQLExecution  ErrorKind = "ErrSqlExecution"
	ErrorKindConnection    ErrorKind = "ErrConnection"
	ErrorKindInternal      ErrorKind = "ErrInternal"
)

// QueryRecord is produced once per attempted tool execution (spec.md §3).
type QueryRecord struct {
	ID             string
	Tool           string
	Statement      string // truncated, fingerprinted form — never the raw text beyond MaxStoredStatementBytes
	Fingerprint    string
	Database       string
	StartTimestamp time.Time
	EndTimestamp   time.Time
	DurationMs     float64
	RowsAffected   []int64
	RowCount       int
	Success        bool
	ErrorKind      ErrorKind
	ErrorMessage   string
	Sampled        bool
	Slow           bool
}

// NewRecordID returns a fresh unique record identifier.
func NewRecordID() string {
	return uuid.NewString()
}

// KindFromErr maps an apperrors taxonomy error to the record's ErrorKind.
func KindFromErr(err error) ErrorKind {
	if err == nil {
		return ErrorKindNone
	}

	switch {
	case errors.Is(err, apperrors.ErrTimeout):
		return ErrorKindTimeout
	case errors.Is(err, apperrors.ErrPolicyDenied):
		return ErrorKindPolicyDenied
	case errors.Is(err, apperrors.ErrValidation):
		return ErrorKindValidation
	case errors.Is(err, apperrors.ErrSqlExecution):
		return ErrorKindSQLExecution
	case errors.Is(err, apperrors.ErrConnection):
		return ErrorKindConnection
	default:
		return ErrorKindInternal
	}
}
