// Package drivertest provides an in-memory printer driver for tests
package drivertest

import (
	"context"
	"sync"

	internalDriver "escpos-service/internal/driver"
	"escpos-service/internal/model"
	"escpos-service/pkg/driver"
	"escpos-service/pkg/escpos"
)

// FakePrinter implements driver.PrinterDriver. Status bytes are answered from
// Replies keyed by status kind; a kind without a reply times out.
type FakePrinter struct {
	Info       driver.PrinterInfo
	Replies    map[string]byte
	StatusErr  error
	ConnectErr error
	WriteErr   error

	mu         sync.Mutex
	connected  bool
	handler    driver.EventHandler
	barcodes   []string
	writes     [][]byte
	statusRuns int
}

// NewFakePrinter creates a disconnected fake printer
func NewFakePrinter(id string) *FakePrinter {
	return &FakePrinter{
		Info: driver.PrinterInfo{
			ID:             id,
			Name:           id,
			Model:          "TM-T20",
			ConnectionType: model.ConnectionTypeTCP,
			State:          model.PrinterStateDisconnected,
		},
		Replies: make(map[string]byte),
	}
}

func (f *FakePrinter) Connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ConnectErr != nil {
		return f.ConnectErr
	}
	f.connected = true
	if f.handler != nil {
		f.handler.OnPrinterConnected(f.Info.ID)
	}
	return nil
}

func (f *FakePrinter) Disconnect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	wasConnected := f.connected
	f.connected = false
	if wasConnected && f.handler != nil {
		f.handler.OnPrinterDisconnected(f.Info.ID, "manual disconnect")
	}
	return nil
}

func (f *FakePrinter) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *FakePrinter) GetPrinterInfo() *driver.PrinterInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	info := f.Info
	if f.connected {
		info.State = model.PrinterStateConnected
	} else {
		info.State = model.PrinterStateDisconnected
	}
	return &info
}

func (f *FakePrinter) GetStatus(ctx context.Context, descriptor escpos.StatusDescriptor) (escpos.StatusValue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(); err != nil {
		return nil, err
	}
	if f.StatusErr != nil {
		return nil, f.StatusErr
	}
	b, ok := f.Replies[descriptor.Name()]
	if !ok {
		return nil, internalDriver.ErrStatusTimeout
	}
	return descriptor.Decode(b), nil
}

func (f *FakePrinter) GetStatuses(ctx context.Context) ([]escpos.StatusValue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusRuns++
	if err := f.check(); err != nil {
		return nil, err
	}
	if f.StatusErr != nil {
		return nil, f.StatusErr
	}

	var values []escpos.StatusValue
	for _, descriptor := range escpos.StatusBattery() {
		if b, ok := f.Replies[descriptor.Name()]; ok {
			values = append(values, descriptor.Decode(b))
		}
	}
	return values, nil
}

func (f *FakePrinter) Initialize(ctx context.Context) error {
	return f.Write(ctx, escpos.ESC_POS_COMMANDS.INITIALIZE)
}

func (f *FakePrinter) PrintBarcode(ctx context.Context, data string, opts escpos.BarcodeOptions) error {
	if _, err := escpos.Code128Command(data, opts); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(); err != nil {
		return err
	}
	if f.WriteErr != nil {
		return f.WriteErr
	}
	f.barcodes = append(f.barcodes, data)
	return nil
}

func (f *FakePrinter) Write(ctx context.Context, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(); err != nil {
		return err
	}
	if f.WriteErr != nil {
		return f.WriteErr
	}
	f.writes = append(f.writes, append([]byte(nil), data...))
	return nil
}

func (f *FakePrinter) Ping(ctx context.Context) error {
	_, err := f.GetStatus(ctx, escpos.PrinterStatusDescriptor)
	return err
}

func (f *FakePrinter) GetHealthMetrics() *driver.HealthMetrics {
	return &driver.HealthMetrics{HealthScore: 100, SuccessRate: 1}
}

func (f *FakePrinter) SetEventHandler(handler driver.EventHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = handler
}

func (f *FakePrinter) Close() error {
	return f.Disconnect(context.Background())
}

// Barcodes returns the data of every printed barcode
func (f *FakePrinter) Barcodes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.barcodes...)
}

// StatusRuns returns how many times GetStatuses was called
func (f *FakePrinter) StatusRuns() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusRuns
}

// check fails I/O on a disconnected fake; callers hold f.mu
func (f *FakePrinter) check() error {
	if !f.connected {
		return internalDriver.ErrNotConnected
	}
	return nil
}

var _ driver.PrinterDriver = (*FakePrinter)(nil)
