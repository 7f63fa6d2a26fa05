// pkg/driver/interfaces.go
package driver

import (
	"context"

	"escpos-service/pkg/escpos"
)

// PrinterDriver is the interface the service layer drives a printer through
type PrinterDriver interface {
	// Connection management
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	IsConnected() bool

	// Printer information
	GetPrinterInfo() *PrinterInfo

	// Status exchanges. GetStatus performs one request/response exchange;
	// GetStatuses runs the full battery and omits kinds that timed out.
	GetStatus(ctx context.Context, descriptor escpos.StatusDescriptor) (escpos.StatusValue, error)
	GetStatuses(ctx context.Context) ([]escpos.StatusValue, error)

	// Printing operations
	Initialize(ctx context.Context) error
	PrintBarcode(ctx context.Context, data string, opts escpos.BarcodeOptions) error
	Write(ctx context.Context, data []byte) error

	// Health and monitoring
	Ping(ctx context.Context) error
	GetHealthMetrics() *HealthMetrics

	// Event handling
	SetEventHandler(handler EventHandler)

	// Cleanup
	Close() error
}

// EventHandler receives printer lifecycle and status events
type EventHandler interface {
	OnPrinterConnected(printerID string)
	OnPrinterDisconnected(printerID string, reason string)
	OnPrinterError(printerID string, err error)
	OnStatusReport(printerID string, reports []escpos.StatusReport)
	OnStatusTimeout(printerID string, kinds []string)
}
