// internal/driver/printer.go
package driver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"escpos-service/internal/model"
	"escpos-service/internal/protocol"
	"escpos-service/internal/utils"
	"escpos-service/pkg/driver"
	"escpos-service/pkg/escpos"
)

// ErrNotConnected is returned for I/O on a printer whose transport is closed
var ErrNotConnected = errors.New("printer not connected")

// ProtocolFactory creates the transport for a printer
type ProtocolFactory func(connectionType model.ConnectionType, config map[string]interface{}, logger *zap.Logger) (protocol.DeviceProtocol, error)

// PrinterConfig represents one configured printer
type PrinterConfig struct {
	ID               string
	Name             string
	Model            string
	ConnectionType   model.ConnectionType
	Connection       map[string]interface{}
	OperationTimeout time.Duration
	InitOnConnect    bool
}

// Printer implements driver.PrinterDriver for ESC/POS printers. Status
// exchanges and writes on one Printer never overlap.
type Printer struct {
	config        *PrinterConfig
	newProtocol   ProtocolFactory
	protocol      protocol.DeviceProtocol
	logger        *utils.DeviceLogger
	eventHandler  driver.EventHandler
	state         model.PrinterState
	lastError     string
	connectedAt   *time.Time
	healthMetrics driver.HealthMetrics

	// exchangeMu serializes request/response traffic; mutex guards fields
	exchangeMu sync.Mutex
	mutex      sync.RWMutex
}

// NewPrinter creates a disconnected printer. A nil factory uses protocol.CreateProtocol.
func NewPrinter(config *PrinterConfig, factory ProtocolFactory, logger *zap.Logger) *Printer {
	if factory == nil {
		factory = protocol.CreateProtocol
	}

	return &Printer{
		config:      config,
		newProtocol: factory,
		logger:      utils.NewDeviceLogger(logger, config.ID, string(config.ConnectionType), config.Model),
		state:       model.PrinterStateDisconnected,
	}
}

// ID returns the configured printer id
func (p *Printer) ID() string {
	return p.config.ID
}

// Connect opens the transport
func (p *Printer) Connect(ctx context.Context) error {
	p.exchangeMu.Lock()
	defer p.exchangeMu.Unlock()

	p.mutex.Lock()
	if p.protocol != nil && p.protocol.IsOpen() {
		p.mutex.Unlock()
		return nil
	}
	p.state = model.PrinterStateConnecting
	p.mutex.Unlock()

	startTime := time.Now()

	conn, err := p.newProtocol(p.config.ConnectionType, p.config.Connection, p.logger.Logger)
	if err != nil {
		p.connectFailed(err, time.Since(startTime))
		return fmt.Errorf("failed to create %s protocol: %w", p.config.ConnectionType, err)
	}

	if err := conn.Open(ctx); err != nil {
		p.connectFailed(err, time.Since(startTime))
		return fmt.Errorf("failed to open %s connection: %w", p.config.ConnectionType, err)
	}

	if p.config.InitOnConnect {
		if err := conn.Write(ctx, escpos.ESC_POS_COMMANDS.INITIALIZE); err != nil {
			conn.Close()
			p.connectFailed(err, time.Since(startTime))
			return fmt.Errorf("failed to initialize printer: %w", err)
		}
	}

	now := time.Now()
	p.mutex.Lock()
	p.protocol = conn
	p.state = model.PrinterStateConnected
	p.lastError = ""
	p.connectedAt = &now
	p.updateHealthMetrics(true, time.Since(startTime))
	handler := p.eventHandler
	p.mutex.Unlock()

	p.logger.LogConnection("connect", nil)
	if handler != nil {
		handler.OnPrinterConnected(p.config.ID)
	}
	return nil
}

func (p *Printer) connectFailed(err error, duration time.Duration) {
	p.mutex.Lock()
	p.state = model.PrinterStateError
	p.lastError = err.Error()
	p.updateHealthMetrics(false, duration)
	handler := p.eventHandler
	p.mutex.Unlock()

	p.logger.LogConnection("connect", err)
	if handler != nil {
		handler.OnPrinterError(p.config.ID, err)
	}
}

// Disconnect closes the transport
func (p *Printer) Disconnect(ctx context.Context) error {
	return p.disconnect("manual disconnect")
}

func (p *Printer) disconnect(reason string) error {
	p.exchangeMu.Lock()
	defer p.exchangeMu.Unlock()

	p.mutex.Lock()
	conn := p.protocol
	wasConnected := conn != nil
	p.protocol = nil
	p.state = model.PrinterStateDisconnected
	p.connectedAt = nil
	handler := p.eventHandler
	p.mutex.Unlock()

	if !wasConnected {
		return nil
	}

	err := conn.Close()
	if err != nil {
		p.logger.Error("Failed to close protocol", zap.Error(err))
	}

	p.logger.LogConnection("disconnect", nil)
	if handler != nil {
		handler.OnPrinterDisconnected(p.config.ID, reason)
	}
	return err
}

// IsConnected returns connection status
func (p *Printer) IsConnected() bool {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.protocol != nil && p.protocol.IsOpen()
}

// GetPrinterInfo returns printer information
func (p *Printer) GetPrinterInfo() *driver.PrinterInfo {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	state := p.state
	if state == model.PrinterStateConnected && (p.protocol == nil || !p.protocol.IsOpen()) {
		state = model.PrinterStateDisconnected
	}

	return &driver.PrinterInfo{
		ID:             p.config.ID,
		Name:           p.config.Name,
		Model:          p.config.Model,
		ConnectionType: p.config.ConnectionType,
		State:          state,
		LastError:      p.lastError,
		ConnectedAt:    p.connectedAt,
	}
}

// GetStatus performs one status exchange
func (p *Printer) GetStatus(ctx context.Context, descriptor escpos.StatusDescriptor) (escpos.StatusValue, error) {
	var value escpos.StatusValue
	err := p.exchange(ctx, "status_"+descriptor.Name(), func(ctx context.Context, engine *statusEngine) error {
		var err error
		value, err = engine.getStatus(ctx, descriptor)
		return err
	})
	if errors.Is(err, ErrStatusTimeout) {
		p.notifyTimeouts([]string{descriptor.Name()})
	}
	if err != nil {
		return nil, err
	}

	p.notifyReports([]escpos.StatusValue{value})
	return value, nil
}

// GetStatuses runs the status battery; kinds that timed out are absent
func (p *Printer) GetStatuses(ctx context.Context) ([]escpos.StatusValue, error) {
	var values []escpos.StatusValue
	err := p.exchange(ctx, "statuses", func(ctx context.Context, engine *statusEngine) error {
		var err error
		values, err = engine.getStatuses(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	answered := make(map[string]bool, len(values))
	for _, value := range values {
		answered[value.Kind()] = true
	}
	var missing []string
	for _, descriptor := range escpos.StatusBattery() {
		if !answered[descriptor.Name()] {
			missing = append(missing, descriptor.Name())
		}
	}

	p.mutex.Lock()
	p.healthMetrics.StatusTimeouts += int64(len(missing))
	p.mutex.Unlock()

	p.notifyReports(values)
	if len(missing) > 0 {
		p.notifyTimeouts(missing)
	}
	return values, nil
}

// Initialize resets the printer (ESC @)
func (p *Printer) Initialize(ctx context.Context) error {
	return p.Write(ctx, escpos.ESC_POS_COMMANDS.INITIALIZE)
}

// PrintBarcode prints data as a CODE128 barcode followed by a line feed
func (p *Printer) PrintBarcode(ctx context.Context, data string, opts escpos.BarcodeOptions) error {
	command, err := escpos.Code128Command(data, opts)
	if err != nil {
		return err
	}
	command = append(command, escpos.ESC_POS_COMMANDS.LINE_FEED...)

	return p.exchange(ctx, "print_barcode", func(ctx context.Context, engine *statusEngine) error {
		return engine.write(ctx, command)
	})
}

// Write passes raw bytes to the printer
func (p *Printer) Write(ctx context.Context, data []byte) error {
	return p.exchange(ctx, "write", func(ctx context.Context, engine *statusEngine) error {
		return engine.write(ctx, data)
	})
}

// Ping checks the printer answers a printer status request
func (p *Printer) Ping(ctx context.Context) error {
	if _, err := p.GetStatus(ctx, escpos.PrinterStatusDescriptor); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}

// GetHealthMetrics returns health metrics merged with transport counters
func (p *Printer) GetHealthMetrics() *driver.HealthMetrics {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	metrics := p.healthMetrics
	if p.protocol != nil {
		stats := p.protocol.Stats()
		metrics.BytesWritten = stats.BytesWritten
		metrics.BytesRead = stats.BytesRead
	}
	return &metrics
}

// SetEventHandler sets event handler
func (p *Printer) SetEventHandler(handler driver.EventHandler) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.eventHandler = handler
}

// Close cleans up resources
func (p *Printer) Close() error {
	return p.disconnect("closed")
}

// exchange runs fn with exclusive use of the transport. The configured
// operation timeout bounds each request/response inside fn, not fn as a whole.
func (p *Printer) exchange(ctx context.Context, operation string, fn func(context.Context, *statusEngine) error) error {
	p.exchangeMu.Lock()
	defer p.exchangeMu.Unlock()

	p.mutex.RLock()
	conn := p.protocol
	p.mutex.RUnlock()

	if conn == nil || !conn.IsOpen() {
		return ErrNotConnected
	}

	engine := newStatusEngine(conn, p.logger.Logger)
	engine.exchangeTimeout = p.config.OperationTimeout

	startTime := time.Now()
	err := fn(ctx, engine)
	duration := time.Since(startTime)

	p.logger.LogOperation(operation, duration, err)

	p.mutex.Lock()
	timedOut := errors.Is(err, ErrStatusTimeout)
	if timedOut {
		p.healthMetrics.StatusTimeouts++
	}
	p.updateHealthMetrics(err == nil, duration)
	if err != nil && !timedOut {
		p.lastError = err.Error()
	}
	handler := p.eventHandler
	p.mutex.Unlock()

	if err != nil && !timedOut && handler != nil {
		handler.OnPrinterError(p.config.ID, err)
	}
	return err
}

func (p *Printer) notifyReports(values []escpos.StatusValue) {
	now := time.Now()

	p.mutex.Lock()
	p.healthMetrics.LastSuccessTime = &now
	handler := p.eventHandler
	p.mutex.Unlock()

	if handler == nil || len(values) == 0 {
		return
	}

	reports := make([]escpos.StatusReport, 0, len(values))
	for _, value := range values {
		reports = append(reports, value.Report())
	}
	handler.OnStatusReport(p.config.ID, reports)
}

func (p *Printer) notifyTimeouts(kinds []string) {
	p.mutex.RLock()
	handler := p.eventHandler
	p.mutex.RUnlock()

	if handler != nil {
		handler.OnStatusTimeout(p.config.ID, kinds)
	}
}

// updateHealthMetrics updates health metrics; callers hold p.mutex
func (p *Printer) updateHealthMetrics(success bool, responseTime time.Duration) {
	p.healthMetrics.TotalOperations++
	p.healthMetrics.ResponseTime = responseTime

	now := time.Now()
	if success {
		p.healthMetrics.LastSuccessTime = &now
	} else {
		p.healthMetrics.ErrorCount++
		p.healthMetrics.LastErrorTime = &now
	}

	total := p.healthMetrics.TotalOperations
	p.healthMetrics.SuccessRate = float64(total-p.healthMetrics.ErrorCount) / float64(total)

	p.healthMetrics.HealthScore = int(p.healthMetrics.SuccessRate * 100)
	if responseTime > 5*time.Second {
		p.healthMetrics.HealthScore -= 10
	}
	if p.healthMetrics.HealthScore < 0 {
		p.healthMetrics.HealthScore = 0
	}
}

var _ driver.PrinterDriver = (*Printer)(nil)
