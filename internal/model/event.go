// internal/model/event.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of printer event
type EventType string

const (
	EventPrinterConnected    EventType = "PRINTER_CONNECTED"
	EventPrinterDisconnected EventType = "PRINTER_DISCONNECTED"
	EventPrinterError        EventType = "PRINTER_ERROR"
	EventStatusReport        EventType = "STATUS_REPORT"
	EventStatusTimeout       EventType = "STATUS_TIMEOUT"
)

// PrinterEvent represents an event raised for one printer
type PrinterEvent struct {
	ID        uuid.UUID              `json:"id"`
	EventType EventType              `json:"event_type"`
	PrinterID string                 `json:"printer_id"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Severity  string                 `json:"severity"` // INFO, WARNING, ERROR
}

// NewPrinterEvent stamps a new event with an id and the current time
func NewPrinterEvent(eventType EventType, printerID, severity string, data map[string]interface{}) PrinterEvent {
	return PrinterEvent{
		ID:        uuid.New(),
		EventType: eventType,
		PrinterID: printerID,
		Data:      data,
		Timestamp: time.Now(),
		Severity:  severity,
	}
}
