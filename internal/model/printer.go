// internal/model/printer.go
package model

import (
	"fmt"
	"strings"
)

// ConnectionType represents how the printer is connected
type ConnectionType string

const (
	ConnectionTypeSerial ConnectionType = "SERIAL"
	ConnectionTypeUSB    ConnectionType = "USB"
	ConnectionTypeTCP    ConnectionType = "TCP"
)

// ParseConnectionType accepts any letter case ("tcp", "Serial", ...)
func ParseConnectionType(value string) (ConnectionType, error) {
	switch ct := ConnectionType(strings.ToUpper(strings.TrimSpace(value))); ct {
	case ConnectionTypeSerial, ConnectionTypeUSB, ConnectionTypeTCP:
		return ct, nil
	default:
		return "", fmt.Errorf("unsupported connection type: %q", value)
	}
}

// PrinterState represents the connection state of a printer
type PrinterState string

const (
	PrinterStateDisconnected PrinterState = "DISCONNECTED"
	PrinterStateConnecting   PrinterState = "CONNECTING"
	PrinterStateConnected    PrinterState = "CONNECTED"
	PrinterStateError        PrinterState = "ERROR"
)
