package bot

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// StartMetricsHTTP starts a lightweight HTTP server that exposes /metrics
// in Prometheus text exposition format. It runs in the background and
// shuts down when the bot context is cancelled.
//
// Disabled when Config.MetricsAddr is empty.
func (b *Bot) StartMetricsHTTP() {
	addr := b.cfg.MetricsAddr
	if addr == "" {
		return // metrics endpoint disabled
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", b.handleMetrics)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("metrics HTTP listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics HTTP error", "err", err)
		}
	}()

	go func() {
		<-b.ctx.Done()
		_ = srv.Close()
	}()
}

// handleMetrics writes all metrics in Prometheus text exposition format.
func (b *Bot) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	m := b.metrics
	uptime := time.Since(m.startTime).Seconds()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	// Helper for gauge/counter lines.
	// Write errors to http.ResponseWriter are non-actionable; suppress errcheck.
	write := func(name, help, mtype string, value int64) {
		_, _ = fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		_, _ = fmt.Fprintf(w, "# TYPE %s %s\n", name, mtype)
		_, _ = fmt.Fprintf(w, "%s %d\n", name, value)
	}
	writeFloat := func(name, help, mtype string, value float64) {
		_, _ = fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		_, _ = fmt.Fprintf(w, "# TYPE %s %s\n", name, mtype)
		_, _ = fmt.Fprintf(w, "%s %f\n", name, value)
	}

	writeFloat("teabot_uptime_seconds", "Bot uptime in seconds.", "gauge", uptime)

	write("teabot_commands_total", "Commands accepted from the source chat.", "counter",
		m.CommandsHandled.Load())
	write("teabot_published_total", "Posts forwarded to the channel.", "counter",
		m.Published.Load())
	write("teabot_publish_failures_total", "Channel sends that failed.", "counter",
		m.PublishFailures.Load())

	write("teabot_denied_banned_total", "Publish attempts denied by the ban gate.", "counter",
		m.DeniedBanned.Load())
	write("teabot_denied_cooldown_total", "Publish attempts denied by the cooldown gate.", "counter",
		m.DeniedCooldown.Load())
	write("teabot_denied_quota_total", "Publish attempts denied by the quota gate.", "counter",
		m.DeniedQuota.Load())

	write("teabot_bans_created_total", "Bans issued.", "counter",
		m.BansCreated.Load())
	write("teabot_bans_revoked_total", "Bans revoked.", "counter",
		m.BansRevoked.Load())
	write("teabot_resets_total", "Destructive daily resets.", "counter",
		m.Resets.Load())

	write("teabot_chart_failures_total", "Chart renders degraded to text.", "counter",
		m.ChartFailures.Load())
}
