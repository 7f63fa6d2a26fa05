// pkg/driver/types.go
package driver

import (
	"time"

	"escpos-service/internal/model"
	"escpos-service/pkg/escpos"
)

// PrinterInfo contains basic printer information
type PrinterInfo struct {
	ID             string               `json:"id"`
	Name           string               `json:"name"`
	Model          string               `json:"model"`
	ConnectionType model.ConnectionType `json:"connection_type"`
	State          model.PrinterState   `json:"state"`
	LastError      string               `json:"last_error,omitempty"`
	ConnectedAt    *time.Time           `json:"connected_at,omitempty"`
}

// HealthMetrics contains printer health information
type HealthMetrics struct {
	HealthScore     int           `json:"health_score"` // 0-100
	ResponseTime    time.Duration `json:"response_time"`
	SuccessRate     float64       `json:"success_rate"` // 0.0-1.0
	ErrorCount      int64         `json:"error_count"`
	TotalOperations int64         `json:"total_operations"`
	StatusTimeouts  int64         `json:"status_timeouts"`
	BytesWritten    int64         `json:"bytes_written"`
	BytesRead       int64         `json:"bytes_read"`
	LastErrorTime   *time.Time    `json:"last_error_time,omitempty"`
	LastSuccessTime *time.Time    `json:"last_success_time,omitempty"`
}

// StatusSnapshot is the outcome of one status battery
type StatusSnapshot struct {
	PrinterID string                `json:"printer_id"`
	Reports   []escpos.StatusReport `json:"reports"`
	Missing   []string              `json:"missing,omitempty"`
	Timestamp time.Time             `json:"timestamp"`
}

// NewStatusSnapshot builds a snapshot, listing battery kinds with no value
func NewStatusSnapshot(printerID string, values []escpos.StatusValue) *StatusSnapshot {
	snapshot := &StatusSnapshot{
		PrinterID: printerID,
		Reports:   make([]escpos.StatusReport, 0, len(values)),
		Timestamp: time.Now(),
	}

	present := make(map[string]bool, len(values))
	for _, value := range values {
		snapshot.Reports = append(snapshot.Reports, value.Report())
		present[value.Kind()] = true
	}

	for _, descriptor := range escpos.StatusBattery() {
		if !present[descriptor.Name()] {
			snapshot.Missing = append(snapshot.Missing, descriptor.Name())
		}
	}

	return snapshot
}

// BarcodePreview describes the bytes a CODE128 print would send
type BarcodePreview struct {
	Data    string         `json:"data"`
	Blocks  []BarcodeBlock `json:"blocks"`
	Body    string         `json:"body_hex"`
	Command string         `json:"command_hex"`
	Length  int            `json:"length"`
}

// BarcodeBlock is one segment of the encoded barcode
type BarcodeBlock struct {
	Mode string `json:"mode"`
	Text string `json:"text"`
}
