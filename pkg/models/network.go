package models

import "time"

// Network is a logical scan target rooted at a single management device.
type Network struct {
	ID            string    `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Name          string    `json:"name" example:"HQ - 3rd Floor"`
	RootIP        string    `json:"root_ip" example:"10.0.0.1"`
	RootUsername  string    `json:"root_username" example:"admin"`
	RootPassword  string    `json:"root_password,omitempty"`
	LastScannedAt time.Time `json:"last_scanned_at,omitempty"`
	DeviceCount   int       `json:"device_count"`
	IsOnline      bool      `json:"is_online"`
	CreatedAt     time.Time `json:"created_at"`
}

// ScanStatus is the lifecycle state of a Scan row.
type ScanStatus string

const (
	ScanStatusRunning   ScanStatus = "running"
	ScanStatusCompleted ScanStatus = "completed"
	ScanStatusFailed    ScanStatus = "failed"
)

// Scan is one run of the discovery engine against a Network.
type Scan struct {
	ID          string     `json:"id" example:"a1b2c3d4-e5f6-7890-abcd-ef1234567890"`
	NetworkID   string     `json:"network_id"`
	Status      ScanStatus `json:"status" example:"completed"`
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     time.Time  `json:"ended_at,omitempty"`
	DeviceCount int        `json:"device_count" example:"12"`
	FailReason  string     `json:"fail_reason,omitempty"`
}

// LogLevel classifies a ScanLog entry.
type LogLevel string

const (
	LogInfo    LogLevel = "info"
	LogSuccess LogLevel = "success"
	LogWarn    LogLevel = "warn"
	LogError   LogLevel = "error"
)

// ScanLog is one ordered log line produced during a Scan.
type ScanLog struct {
	ID        int64     `json:"id"`
	ScanID    string    `json:"scan_id"`
	Seq       int64     `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	Level     LogLevel  `json:"level" example:"info"`
	Message   string    `json:"message" example:"probing 10.0.0.1:22"`
}
