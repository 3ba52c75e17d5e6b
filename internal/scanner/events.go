package scanner

import "github.com/ridgeline-labs/netspan/pkg/models"

// Event topics published by the scan worker, grounded on the teacher's
// internal/recon/events.go topic-constant idiom.
const (
	TopicScanStarted   = "scan.started"
	TopicScanLog       = "scan.log"
	TopicDeviceFound   = "scan.device.discovered"
	TopicDeviceUpdated = "scan.device.updated"
	TopicScanCompleted = "scan.completed"
	TopicScanFailed    = "scan.failed"

	// TopicTopologySnapshot's ".snapshot" suffix opts it into the event
	// bus's drop-oldest overflow policy: a late subscriber only ever
	// needs the latest tree, not every intermediate one.
	TopicTopologySnapshot = "scan.topology.snapshot"
)

// ScanStartedEvent is published once a scan's row has been created.
type ScanStartedEvent struct {
	ScanID    string `json:"scan_id"`
	NetworkID string `json:"network_id"`
	RootIP    string `json:"root_ip"`
}

// LogEvent mirrors one models.ScanLog line onto the bus, for subscribers
// that want log lines without polling ScanLogsAfter.
type LogEvent struct {
	ScanID string          `json:"scan_id"`
	Level  models.LogLevel `json:"level"`
	Seq    int64           `json:"seq"`
	Message string         `json:"message"`
}

// DeviceEvent wraps a device row with its scan ID for event payloads,
// grounded on the teacher's recon.DeviceEvent shape.
type DeviceEvent struct {
	ScanID string        `json:"scan_id"`
	Device models.Device `json:"device"`
}

// ScanCompletedEvent is the terminal event for a scan, success or failure.
type ScanCompletedEvent struct {
	ScanID      string             `json:"scan_id"`
	NetworkID   string             `json:"network_id"`
	Status      models.ScanStatus  `json:"status"`
	DeviceCount int                `json:"device_count"`
	FailReason  string             `json:"fail_reason,omitempty"`
}
