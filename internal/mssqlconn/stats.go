package mssqlconn

// HealthStatus is the enum band a PoolStats health score maps into
// (spec.md §3/§4.2).
type HealthStatus string

const (
	// HealthHealthy means the pool has ample headroom.
	HealthHealthy HealthStatus = "Healthy"
	// HealthNeedsAttention means the pool is under moderate pressure.
	HealthNeedsAttention HealthStatus = "NeedsAttention"
	// HealthCritical means the pool is under severe pressure.
	HealthCritical HealthStatus = "Critical"
)

// PoolStats is the pool stats snapshot produced on demand by Stats()
// (spec.md §3).
type PoolStats struct {
	Max               int          `json:"max"`
	Min               int          `json:"min"`
	Active            int          `json:"active"`
	Idle              int          `json:"idle"`
	Pending           int          `json:"pending"`
	UtilizationPercent float64     `json:"utilizationPercent"`
	HealthScore       int          `json:"healthScore"`
	HealthStatus      HealthStatus `json:"healthStatus"`
}

// scoreHealth applies the health-scoring formula from spec.md §4.2: start at
// 100 and subtract for each pressure indicator present. errorRate is the
// observatory's recent error rate in [0,1]; pass -1 when unavailable to skip
// that penalty (perf disabled or no samples yet).
func scoreHealth(utilizationPercent float64, pending int, errorRate float64, idleExhausted bool) (int, HealthStatus) {
	const (
		highUtilization   = 95.0
		highErrorRate     = 0.05
		utilizationPenalty = 20
		waitersPenalty     = 15
		errorRatePenalty   = 15
		idleExhaustedPenalty = 10
	)

	score := 100

	if utilizationPercent >= highUtilization {
		score -= utilizationPenalty
	}

	if pending > 0 {
		score -= waitersPenalty
	}

	if errorRate >= 0 && errorRate >= highErrorRate {
		score -= errorRatePenalty
	}

	if idleExhausted {
		score -= idleExhaustedPenalty
	}

	switch {
	case score >= 80: //nolint:mnd
		return score, HealthHealthy
	case score >= 60: //nolint:mnd
		return score, HealthNeedsAttention
	default:
		return score, HealthCritical
	}
}

// Stats returns a point-in-time snapshot of the pool. errorRate should come
// from the performance observatory's recent window; pass -1 if unavailable.
func (m *Manager) Stats(errorRate float64) PoolStats {
	m.mu.RLock()
	db := m.db
	m.mu.RUnlock()

	if db == nil {
		return PoolStats{Max: m.cfg.PoolMax, Min: m.cfg.PoolMin, HealthStatus: HealthCritical}
	}

	s := db.Stats()

	active := s.InUse
	idle := s.Idle
	pending := s.WaitCount // cumulative, used only as a "waiters observed" signal below

	pendingNow := 0
	if s.WaitDuration > 0 && pending > 0 {
		pendingNow = 1 // database/sql does not expose current waiters; treat recent waits as pending pressure
	}

	utilization := 0.0
	if m.cfg.PoolMax > 0 {
		utilization = float64(active) / float64(m.cfg.PoolMax) * 100 //nolint:mnd
	}

	idleExhausted := idle == 0 && active >= m.cfg.PoolMax

	score, status := scoreHealth(utilization, pendingNow, errorRate, idleExhausted)

	return PoolStats{
		Max:                m.cfg.PoolMax,
		Min:                m.cfg.PoolMin,
		Active:             active,
		Idle:               idle,
		Pending:            pendingNow,
		UtilizationPercent: utilization,
		HealthScore:        score,
		HealthStatus:       status,
	}
}
