// internal/driver/registry.go
package driver

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"escpos-service/internal/protocol"
	"escpos-service/pkg/driver"
)

// Registry holds the configured printers by id
type Registry struct {
	printers map[string]driver.PrinterDriver
	factory  ProtocolFactory
	mu       sync.RWMutex
	logger   *zap.Logger
}

// NewRegistry creates an empty printer registry. A nil factory uses protocol.CreateProtocol.
func NewRegistry(factory ProtocolFactory, logger *zap.Logger) *Registry {
	if factory == nil {
		factory = protocol.CreateProtocol
	}

	return &Registry{
		printers: make(map[string]driver.PrinterDriver),
		factory:  factory,
		logger:   logger,
	}
}

// Register validates the connection settings and adds a printer
func (r *Registry) Register(config *PrinterConfig) (*Printer, error) {
	if config.ID == "" {
		return nil, fmt.Errorf("printer id is required")
	}

	if err := protocol.ValidateConfig(config.ConnectionType, config.Connection); err != nil {
		return nil, fmt.Errorf("printer %s: %w", config.ID, err)
	}

	printer := NewPrinter(config, r.factory, r.logger)
	if err := r.Add(config.ID, printer); err != nil {
		return nil, err
	}

	r.logger.Info("Printer registered",
		zap.String("printer_id", config.ID),
		zap.String("connection_type", string(config.ConnectionType)),
		zap.String("model", config.Model),
	)
	return printer, nil
}

// Add adds an already built driver under id
func (r *Registry) Add(id string, printer driver.PrinterDriver) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.printers[id]; exists {
		return fmt.Errorf("printer %s already registered", id)
	}
	r.printers[id] = printer
	return nil
}

// Get returns the printer registered under id
func (r *Registry) Get(id string) (driver.PrinterDriver, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	printer, exists := r.printers[id]
	return printer, exists
}

// IDs returns all printer ids in sorted order
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.printers))
	for id := range r.printers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// List returns all printers ordered by id
func (r *Registry) List() []driver.PrinterDriver {
	ids := r.IDs()

	r.mu.RLock()
	defer r.mu.RUnlock()

	printers := make([]driver.PrinterDriver, 0, len(ids))
	for _, id := range ids {
		printers = append(printers, r.printers[id])
	}
	return printers
}

// CloseAll closes every printer, returning the first error
func (r *Registry) CloseAll() error {
	var firstErr error
	for _, printer := range r.List() {
		if err := printer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
