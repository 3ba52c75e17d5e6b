package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func scrape(t *testing.T, handler http.Handler) string {
	t.Helper()
	req := httptest.NewRequest("GET", "/metrics", http.NoBody)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	return w.Body.String()
}

func TestCollectors_registeredAndScrapable(t *testing.T) {
	ScansTotal.WithLabelValues("completed").Inc()
	DevicesDiscoveredTotal.Inc()
	EventBusDroppedTotal.WithLabelValues("scan.log").Inc()
	SSHConnectAttemptsTotal.WithLabelValues("success").Inc()
	ScanDurationSeconds.Observe(12.5)
	PortProbeDurationSeconds.Observe(0.2)

	handler := promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{})
	body := scrape(t, handler)

	for _, name := range []string{
		"netspan_scans_total",
		"netspan_devices_discovered_total",
		"netspan_eventbus_dropped_total",
		"netspan_ssh_connect_attempts_total",
		"netspan_scan_duration_seconds",
		"netspan_port_probe_duration_seconds",
	} {
		if !strings.Contains(body, name) {
			t.Errorf("expected %s in scrape output", name)
		}
	}
}
