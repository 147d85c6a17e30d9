// Package mssqlconn owns the single connection pool against the SQL Server
// instance this process mediates (C2, spec.md §4.2). It is adapted from the
// teacher's internal/repository/pg Manager: same retry-with-backoff
// establishment protocol and Stats()/MaskedDSN() shape, moved from pgx/pgxpool
// onto database/sql + github.com/microsoft/go-mssqldb, the only SQL Server
// driver carried by the retrieved corpus.
package mssqlconn

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/hyp3rd/ewrap/pkg/ewrap"
	"github.com/hyp3rd/mssql-tool-server/internal/apperrors"
	"github.com/hyp3rd/mssql-tool-server/internal/config"
	"github.com/hyp3rd/mssql-tool-server/internal/logger"
	_ "github.com/microsoft/go-mssqldb" // registers the "sqlserver" database/sql driver
)

// Manager owns one *sql.DB pool against a single SQL Server instance.
type Manager struct {
	mu     sync.RWMutex
	db     *sql.DB
	cfg    *config.MSSQLConfig
	logger logger.Logger
	closed bool
}

// New creates a Manager bound to cfg. Connect must be called (directly or
// via EnsureConnected) before the pool can be borrowed from.
func New(cfg *config.MSSQLConfig, log logger.Logger) *Manager {
	return &Manager{cfg: cfg, logger: log}
}

// Connect is idempotent (spec.md §4.2, "Idempotent connect"): if a live pool
// already exists it is returned as-is; otherwise it establishes one using a
// bounded retry loop with exponential backoff starting at RetryDelayMs,
// waiting retryDelayMs × 2^(n−1) between attempt n and n+1.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db != nil {
		return nil
	}

	db, err := sql.Open("sqlserver", m.cfg.DSN())
	if err != nil {
		return apperrors.Wrap(apperrors.ErrConnection, "opening connection pool", err)
	}

	db.SetMaxOpenConns(m.cfg.PoolMax)
	db.SetMaxIdleConns(maxInt(m.cfg.PoolMin, 0))
	db.SetConnMaxIdleTime(m.cfg.PoolIdleTimeout())

	// "Retries" are attempts beyond the initial one (spec.md §4.2/§8 scenario
	// 6), so maxRetries=3 means up to 4 total attempts.
	totalAttempts := maxInt(m.cfg.MaxRetries, 0) + 1

	var lastErr error

	for attempt := 1; attempt <= totalAttempts; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, m.cfg.ConnectTimeout())
		lastErr = db.PingContext(pingCtx)
		cancel()

		if lastErr == nil {
			m.db = db

			return nil
		}

		if m.logger != nil {
			m.logger.WithFields(
				logger.Field{Key: "attempt", Value: attempt},
				logger.Field{Key: "total_attempts", Value: totalAttempts},
				logger.Field{Key: "host", Value: m.cfg.Host},
			).WithError(lastErr).Warn("database connection attempt failed")
		}

		if attempt == totalAttempts {
			break
		}

		wait := backoff(m.cfg.RetryDelay(), attempt)

		select {
		case <-ctx.Done():
			_ = db.Close()

			return apperrors.Wrap(apperrors.ErrConnection, "context cancelled during connection attempts", ctx.Err())
		case <-time.After(wait):
		}
	}

	_ = db.Close()

	return apperrors.Wrap(apperrors.ErrConnection,
		"failed to connect after all attempts to "+m.cfg.MaskedDSN(), lastErr)
}

// backoff computes the exponential wait before attempt n+1: base × 2^(n-1).
func backoff(base time.Duration, attempt int) time.Duration {
	d := base

	for i := 1; i < attempt; i++ {
		d *= 2 //nolint:mnd
	}

	return d
}

// EnsureConnected calls Connect only if no pool exists yet, avoiding the
// retry loop's overhead on the common warm path.
func (m *Manager) EnsureConnected(ctx context.Context) error {
	m.mu.RLock()
	connected := m.db != nil
	m.mu.RUnlock()

	if connected {
		return nil
	}

	return m.Connect(ctx)
}

// Borrow acquires a *sql.Conn bound to ctx, honoring ConnectTimeoutMs as the
// FIFO wait bound (spec.md §5, "Backpressure"). Callers must always call the
// returned release function, on every exit path.
func (m *Manager) Borrow(ctx context.Context) (*sql.Conn, func(), error) {
	m.mu.RLock()
	db := m.db
	closed := m.closed
	m.mu.RUnlock()

	if db == nil {
		return nil, func() {}, apperrors.New(apperrors.ErrConnection, "pool not connected")
	}

	if closed {
		return nil, func() {}, apperrors.New(apperrors.ErrConnection, "pool is closed")
	}

	borrowCtx, cancel := context.WithTimeout(ctx, m.cfg.ConnectTimeout())
	defer cancel()

	conn, err := db.Conn(borrowCtx)
	if err != nil {
		if borrowCtx.Err() != nil {
			return nil, func() {}, apperrors.Wrap(apperrors.ErrTimeout, "timed out waiting for a connection", err)
		}

		return nil, func() {}, apperrors.Wrap(apperrors.ErrConnection, "borrowing connection", err)
	}

	release := func() {
		_ = conn.Close()
	}

	return conn, release, nil
}

// Ping verifies the pool is reachable.
func (m *Manager) Ping(ctx context.Context) error {
	m.mu.RLock()
	db := m.db
	m.mu.RUnlock()

	if db == nil {
		return apperrors.New(apperrors.ErrConnection, "pool not connected")
	}

	pingCtx, cancel := context.WithTimeout(ctx, m.cfg.ConnectTimeout())
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		return apperrors.Wrap(apperrors.ErrConnection, "pinging database", err)
	}

	return nil
}

// IsConnected reports whether the pool is established and reachable.
func (m *Manager) IsConnected(ctx context.Context) bool {
	return m.Ping(ctx) == nil
}

// Close performs a graceful shutdown: new borrows are refused immediately
// and the underlying pool is closed, draining in-flight connections up to
// database/sql's own internal bookkeeping (spec.md §4.2).
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true

	if m.db == nil {
		return nil
	}

	err := m.db.Close()
	m.db = nil

	if err != nil {
		return ewrap.Wrapf(err, "closing connection pool")
	}

	return nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}

	return b
}
