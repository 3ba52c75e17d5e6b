// Package metrics registers the Prometheus collectors netspand exposes
// on GET /metrics, following the teacher's pattern of package-level
// collectors registered once in init() and updated by call sites that
// import this package directly rather than threading a registry value
// through every layer.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// ScansTotal counts completed scans by terminal status
	// (completed/failed).
	ScansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netspan_scans_total",
			Help: "Total number of scans by terminal status.",
		},
		[]string{"status"},
	)

	// ScanDurationSeconds observes wall-clock scan duration.
	ScanDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "netspan_scan_duration_seconds",
			Help:    "Scan duration in seconds, from start to terminal status.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
	)

	// DevicesDiscoveredTotal counts devices upserted across all scans.
	DevicesDiscoveredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "netspan_devices_discovered_total",
			Help: "Total number of devices upserted by any scan.",
		},
	)

	// EventBusDroppedTotal counts events dropped by a subscriber's
	// bounded queue on overflow, by topic.
	EventBusDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netspan_eventbus_dropped_total",
			Help: "Total number of bus events dropped on subscriber overflow, by topic.",
		},
		[]string{"topic"},
	)

	// SSHConnectAttemptsTotal counts SSH connection attempts by outcome.
	SSHConnectAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netspan_ssh_connect_attempts_total",
			Help: "Total number of SSH connection attempts, by outcome.",
		},
		[]string{"outcome"},
	)

	// PortProbeDurationSeconds observes how long a single device's
	// management-port probe takes.
	PortProbeDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "netspan_port_probe_duration_seconds",
			Help:    "Duration of a single device's management-port probe.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(
		ScansTotal,
		ScanDurationSeconds,
		DevicesDiscoveredTotal,
		EventBusDroppedTotal,
		SSHConnectAttemptsTotal,
		PortProbeDurationSeconds,
	)
}
