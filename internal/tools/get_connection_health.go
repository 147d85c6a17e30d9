package tools

import (
	"context"

	"github.com/hyp3rd/mssql-tool-server/internal/mssqlconn"
)

// GetConnectionHealth is a facade over C2's Stats, annotated with the
// observatory's recent-window error rate (spec.md §4.5 get_connection_health).
func GetConnectionHealth(_ context.Context, deps *Deps) (*mssqlconn.PoolStats, error) {
	stats := deps.Pool.Stats(deps.Obs.ErrorRate())

	return &stats, nil
}
