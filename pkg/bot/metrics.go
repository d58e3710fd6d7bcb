package bot

import (
	"log/slog"
	"sync/atomic"
	"time"
)

// Metrics tracks bot runtime statistics.
// All counters use atomic operations for lock-free concurrent access.
type Metrics struct {
	startTime time.Time

	CommandsHandled atomic.Int64 // commands accepted from the source chat
	Published       atomic.Int64 // posts forwarded to the channel
	PublishFailures atomic.Int64 // channel sends that failed (nothing recorded)

	DeniedBanned   atomic.Int64 // publish attempts denied by the ban gate
	DeniedCooldown atomic.Int64 // publish attempts denied by the cooldown gate
	DeniedQuota    atomic.Int64 // publish attempts denied by the quota gate

	BansCreated atomic.Int64
	BansRevoked atomic.Int64
	Resets      atomic.Int64 // destructive daily resets

	ChartFailures atomic.Int64 // chart renders that degraded to text
}

// NewMetrics creates a new Metrics instance with the start time set to now.
func NewMetrics() *Metrics {
	return &Metrics{
		startTime: time.Now(),
	}
}

// MetricsSnapshot is a point-in-time view of all counters.
type MetricsSnapshot struct {
	Uptime        string `json:"uptime"`
	UptimeSeconds int64  `json:"uptime_seconds"`

	CommandsHandled int64 `json:"commands_handled"`
	Published       int64 `json:"published"`
	PublishFailures int64 `json:"publish_failures"`

	DeniedBanned   int64 `json:"denied_banned"`
	DeniedCooldown int64 `json:"denied_cooldown"`
	DeniedQuota    int64 `json:"denied_quota"`

	BansCreated int64 `json:"bans_created"`
	BansRevoked int64 `json:"bans_revoked"`
	Resets      int64 `json:"resets"`

	ChartFailures int64 `json:"chart_failures"`
}

// Snapshot returns a read-consistent snapshot of all metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	uptime := time.Since(m.startTime)
	return MetricsSnapshot{
		Uptime:          uptime.Truncate(time.Second).String(),
		UptimeSeconds:   int64(uptime.Seconds()),
		CommandsHandled: m.CommandsHandled.Load(),
		Published:       m.Published.Load(),
		PublishFailures: m.PublishFailures.Load(),
		DeniedBanned:    m.DeniedBanned.Load(),
		DeniedCooldown:  m.DeniedCooldown.Load(),
		DeniedQuota:     m.DeniedQuota.Load(),
		BansCreated:     m.BansCreated.Load(),
		BansRevoked:     m.BansRevoked.Load(),
		Resets:          m.Resets.Load(),
		ChartFailures:   m.ChartFailures.Load(),
	}
}

// LogSummary writes a periodic metrics summary to the logger.
func (m *Metrics) LogSummary() {
	s := m.Snapshot()
	slog.Info("metrics",
		"uptime", s.Uptime,
		"commands", s.CommandsHandled,
		"published", s.Published,
		"denied_banned", s.DeniedBanned,
		"denied_cooldown", s.DeniedCooldown,
		"denied_quota", s.DeniedQuota,
		"bans", s.BansCreated,
	)
}

// StartPeriodicLog starts a goroutine that logs metrics every interval.
// It stops when the done channel is closed.
func (m *Metrics) StartPeriodicLog(interval time.Duration, done <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				m.LogSummary()
			}
		}
	}()
}
