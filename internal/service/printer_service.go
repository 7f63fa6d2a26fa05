// internal/service/printer_service.go
package service

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"escpos-service/internal/config"
	internalDriver "escpos-service/internal/driver"
	"escpos-service/internal/model"
	"escpos-service/internal/utils"
	"escpos-service/pkg/driver"
	"escpos-service/pkg/escpos"
)

// ErrPrinterNotFound is returned for an id that is not configured
var ErrPrinterNotFound = errors.New("printer not found")

// PrinterService handles printer management and status business logic
type PrinterService struct {
	registry *internalDriver.Registry
	config   *config.Config
	logger   *utils.ServiceLogger
}

// NewPrinterService creates a new printer service instance
func NewPrinterService(registry *internalDriver.Registry, cfg *config.Config, logger *zap.Logger) *PrinterService {
	return &PrinterService{
		registry: registry,
		config:   cfg,
		logger:   utils.NewServiceLogger(logger, "printer-service"),
	}
}

// RegisterConfiguredPrinters adds every printer from the configuration to the registry
func (ps *PrinterService) RegisterConfiguredPrinters() error {
	for _, printer := range ps.config.Printers {
		connectionType, err := model.ParseConnectionType(printer.ConnectionType)
		if err != nil {
			return fmt.Errorf("printer %s: %w", printer.ID, err)
		}

		name := printer.Name
		if name == "" {
			name = printer.ID
		}

		_, err = ps.registry.Register(&internalDriver.PrinterConfig{
			ID:               printer.ID,
			Name:             name,
			Model:            printer.Model,
			ConnectionType:   connectionType,
			Connection:       ps.config.ConnectionSettings(printer),
			OperationTimeout: ps.config.Device.OperationTimeout,
			InitOnConnect:    ps.config.Device.InitOnConnect,
		})
		if err != nil {
			return err
		}
	}

	ps.logger.Info("Configured printers registered", zap.Int("count", len(ps.config.Printers)))
	return nil
}

// SetEventHandler attaches handler to every registered printer
func (ps *PrinterService) SetEventHandler(handler driver.EventHandler) {
	for _, printer := range ps.registry.List() {
		printer.SetEventHandler(handler)
	}
}

// ConnectAll tries to connect every printer; failures are logged, not returned
func (ps *PrinterService) ConnectAll(ctx context.Context) int {
	connected := 0
	for _, printer := range ps.registry.List() {
		info := printer.GetPrinterInfo()
		if err := ps.connect(ctx, printer); err != nil {
			ps.logger.Warn("Printer not reachable at startup",
				zap.String("printer_id", info.ID),
				zap.Error(err),
			)
			continue
		}
		connected++
	}
	return connected
}

// ListPrinters returns every configured printer with its health
func (ps *PrinterService) ListPrinters(ctx context.Context) []*PrinterView {
	printers := ps.registry.List()
	views := make([]*PrinterView, 0, len(printers))
	for _, printer := range printers {
		views = append(views, newPrinterView(printer))
	}
	return views
}

// GetPrinter returns one printer
func (ps *PrinterService) GetPrinter(ctx context.Context, printerID string) (*PrinterView, error) {
	printer, err := ps.lookup(printerID)
	if err != nil {
		return nil, err
	}
	return newPrinterView(printer), nil
}

// ConnectPrinter opens the printer's transport
func (ps *PrinterService) ConnectPrinter(ctx context.Context, printerID string) (*PrinterView, error) {
	printer, err := ps.lookup(printerID)
	if err != nil {
		return nil, err
	}

	if err := ps.connect(ctx, printer); err != nil {
		return nil, err
	}
	return newPrinterView(printer), nil
}

// DisconnectPrinter closes the printer's transport
func (ps *PrinterService) DisconnectPrinter(ctx context.Context, printerID string) (*PrinterView, error) {
	printer, err := ps.lookup(printerID)
	if err != nil {
		return nil, err
	}

	if err := printer.Disconnect(ctx); err != nil {
		return nil, fmt.Errorf("failed to disconnect printer: %w", err)
	}

	ps.logger.Info("Printer disconnected", zap.String("printer_id", printerID))
	return newPrinterView(printer), nil
}

// GetStatus runs one status exchange of the given kind
func (ps *PrinterService) GetStatus(ctx context.Context, printerID, kind string) (*escpos.StatusReport, error) {
	descriptor, err := escpos.LookupStatusDescriptor(kind)
	if err != nil {
		return nil, err
	}

	printer, err := ps.lookup(printerID)
	if err != nil {
		return nil, err
	}

	value, err := printer.GetStatus(ctx, descriptor)
	if err != nil {
		return nil, err
	}

	report := value.Report()
	return &report, nil
}

// GetStatuses runs the full status battery
func (ps *PrinterService) GetStatuses(ctx context.Context, printerID string) (*driver.StatusSnapshot, error) {
	printer, err := ps.lookup(printerID)
	if err != nil {
		return nil, err
	}

	values, err := printer.GetStatuses(ctx)
	if err != nil {
		return nil, err
	}

	return driver.NewStatusSnapshot(printerID, values), nil
}

// PrintBarcode prints a CODE128 barcode
func (ps *PrinterService) PrintBarcode(ctx context.Context, printerID string, req *BarcodeRequest) (*driver.BarcodePreview, error) {
	opts, err := req.Options()
	if err != nil {
		return nil, err
	}

	preview, err := buildPreview(req.Data, opts)
	if err != nil {
		return nil, err
	}

	printer, err := ps.lookup(printerID)
	if err != nil {
		return nil, err
	}

	opLogger := utils.NewOperationLogger(ps.logger.Logger, "print_barcode", printerID)
	opLogger.Start(zap.Int("length", len(req.Data)))

	if err := printer.PrintBarcode(ctx, req.Data, opts); err != nil {
		opLogger.Error(err)
		return nil, err
	}

	opLogger.Success()
	return preview, nil
}

// PreviewBarcode encodes a barcode without touching any printer
func (ps *PrinterService) PreviewBarcode(req *BarcodeRequest) (*driver.BarcodePreview, error) {
	opts, err := req.Options()
	if err != nil {
		return nil, err
	}
	return buildPreview(req.Data, opts)
}

// Ready reports whether the service can serve printer traffic
func (ps *PrinterService) Ready() (bool, int, int) {
	printers := ps.registry.List()
	connected := 0
	for _, printer := range printers {
		if printer.IsConnected() {
			connected++
		}
	}
	return len(printers) == 0 || connected > 0, connected, len(printers)
}

// Shutdown closes every printer
func (ps *PrinterService) Shutdown() error {
	return ps.registry.CloseAll()
}

func (ps *PrinterService) lookup(printerID string) (driver.PrinterDriver, error) {
	printer, ok := ps.registry.Get(printerID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPrinterNotFound, printerID)
	}
	return printer, nil
}

func (ps *PrinterService) connect(ctx context.Context, printer driver.PrinterDriver) error {
	timeout := ps.config.Device.OperationTimeout
	if tcp := ps.config.Device.DefaultPort.TCP.ConnectTimeout; tcp > timeout {
		timeout = tcp
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := printer.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect printer: %w", err)
	}
	return nil
}

func buildPreview(data string, opts escpos.BarcodeOptions) (*driver.BarcodePreview, error) {
	command, err := escpos.Code128Command(data, opts)
	if err != nil {
		return nil, err
	}

	blocks := escpos.SplitForCode128(data)
	body, err := escpos.RenderXprinter(blocks)
	if err != nil {
		return nil, err
	}
	preview := &driver.BarcodePreview{
		Data:    data,
		Blocks:  make([]driver.BarcodeBlock, 0, len(blocks)),
		Body:    hex.EncodeToString(body),
		Command: hex.EncodeToString(command),
		Length:  len(command),
	}
	for _, block := range blocks {
		preview.Blocks = append(preview.Blocks, driver.BarcodeBlock{
			Mode: block.Mode.String(),
			Text: block.Text,
		})
	}
	return preview, nil
}

// Data Transfer Objects

// PrinterView is a printer as shown by the API
type PrinterView struct {
	*driver.PrinterInfo
	Health *driver.HealthMetrics `json:"health"`
}

func newPrinterView(printer driver.PrinterDriver) *PrinterView {
	return &PrinterView{
		PrinterInfo: printer.GetPrinterInfo(),
		Health:      printer.GetHealthMetrics(),
	}
}

// BarcodeRequest represents a CODE128 print or preview request
type BarcodeRequest struct {
	Data        string `json:"data" binding:"required"`
	Height      *int   `json:"height,omitempty"`
	Width       *int   `json:"width,omitempty"`
	HRIPosition string `json:"hri_position,omitempty"` // none, above, below, both
	HRIFont     string `json:"hri_font,omitempty"`     // a, b
}

// Options merges the request over the default barcode options
func (r *BarcodeRequest) Options() (escpos.BarcodeOptions, error) {
	opts := escpos.DefaultBarcodeOptions()

	if r.Height != nil {
		opts.Height = *r.Height
	}
	if r.Width != nil {
		opts.Width = *r.Width
	}

	switch strings.ToLower(r.HRIPosition) {
	case "":
	case "none":
		opts.HRIPosition = escpos.HRINone
	case "above":
		opts.HRIPosition = escpos.HRIAbove
	case "below":
		opts.HRIPosition = escpos.HRIBelow
	case "both":
		opts.HRIPosition = escpos.HRIBoth
	default:
		return opts, fmt.Errorf("%w: hri_position %q", escpos.ErrInvalidBarcodeOptions, r.HRIPosition)
	}

	switch strings.ToLower(r.HRIFont) {
	case "":
	case "a":
		opts.HRIFont = escpos.HRIFontA
	case "b":
		opts.HRIFont = escpos.HRIFontB
	default:
		return opts, fmt.Errorf("%w: hri_font %q", escpos.ErrInvalidBarcodeOptions, r.HRIFont)
	}

	return opts, opts.Validate()
}

