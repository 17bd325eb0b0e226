package ais

import (
	"sync"
	"time"
)

type HealthStatus string

const (
	StatusHealthy  HealthStatus = "healthy"
	StatusDegraded HealthStatus = "degraded"
	StatusFailed   HealthStatus = "failed"
)

// Health tracks consecutive feed failures. It is written by whichever
// goroutine runs a query and read by the health channel.
type Health struct {
	mu          sync.Mutex
	threshold   int
	consecutive int
	total       int
	lastErr     string
	lastFailure time.Time
	lastSuccess time.Time
}

func NewHealth(threshold int) *Health {
	if threshold <= 0 {
		threshold = 3
	}
	return &Health{threshold: threshold}
}

func (h *Health) RecordSuccess() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.consecutive = 0
	h.lastErr = ""
	h.lastSuccess = time.Now()
}

func (h *Health) RecordFailure(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.consecutive++
	h.total++
	h.lastErr = err.Error()
	h.lastFailure = time.Now()
}

// HealthSnapshot is a consistent copy of the feed health.
type HealthSnapshot struct {
	Status              HealthStatus `json:"status"`
	ConsecutiveFailures int          `json:"consecutiveFailures"`
	TotalFailures       int          `json:"totalFailures"`
	LastError           string       `json:"lastError,omitempty"`
	LastSuccess         time.Time    `json:"lastSuccess"`
	LastFailure         time.Time    `json:"lastFailure"`
	Breaker             string       `json:"circuitBreaker,omitempty"`
}

func (h *Health) Snapshot() HealthSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return HealthSnapshot{
		Status:              h.statusLocked(),
		ConsecutiveFailures: h.consecutive,
		TotalFailures:       h.total,
		LastError:           h.lastErr,
		LastSuccess:         h.lastSuccess,
		LastFailure:         h.lastFailure,
	}
}

// statusLocked computes the status. Caller must hold h.mu.
func (h *Health) statusLocked() HealthStatus {
	switch {
	case h.consecutive >= h.threshold:
		return StatusFailed
	case h.consecutive > 0:
		return StatusDegraded
	default:
		return StatusHealthy
	}
}
