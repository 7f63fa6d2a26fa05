// internal/protocol/usb_connection.go
package protocol

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/gousb"
	"go.uber.org/zap"

	"escpos-service/internal/model"
)

const usbPollInterval = 200 * time.Millisecond

var errUSBPoll = errors.New("usb poll interval elapsed")

// USBConnection implements DeviceProtocol for USB printer class devices
type USBConnection struct {
	config   *USBConfig
	ctx      *gousb.Context
	device   *gousb.Device
	intf     *gousb.Interface
	release  func()
	outEndpt *gousb.OutEndpoint
	inEndpt  *gousb.InEndpoint
	listener *replyListener
	stop     context.CancelFunc
	logger   *zap.Logger
	mutex    sync.RWMutex
	isOpen   bool
	stats    statsRecorder
}

// NewUSBConnection creates a new USB connection
func NewUSBConnection(config *USBConfig, logger *zap.Logger) DeviceProtocol {
	return &USBConnection{
		config: config,
		logger: logger.With(
			zap.String("protocol", "usb"),
			zap.String("vendor_id", config.VendorID),
			zap.String("product_id", config.ProductID),
		),
	}
}

// usbReader adapts a bulk IN endpoint to io.Reader. Each Read is bounded
// by the poll interval and ends with io.EOF once the connection stops.
type usbReader struct {
	ctx      context.Context
	endpoint *gousb.InEndpoint
}

func (r *usbReader) Read(p []byte) (int, error) {
	pollCtx, cancel := context.WithTimeout(r.ctx, usbPollInterval)
	defer cancel()

	n, err := r.endpoint.ReadContext(pollCtx, p)
	if r.ctx.Err() != nil {
		return n, io.EOF
	}
	if err != nil && pollCtx.Err() != nil {
		return n, errUSBPoll
	}
	return n, err
}

func isUSBTimeout(err error) bool {
	return errors.Is(err, errUSBPoll) || errors.Is(err, gousb.TransferTimedOut)
}

// Open opens the USB connection
func (uc *USBConnection) Open(ctx context.Context) error {
	uc.mutex.Lock()
	defer uc.mutex.Unlock()

	if uc.isOpen {
		return nil
	}

	uc.logger.Info("Opening USB connection",
		zap.Int("interface", uc.config.Interface),
		zap.Int("out_endpoint", uc.config.OutEndpoint),
		zap.Int("in_endpoint", uc.config.InEndpoint),
	)

	vendorID, err := parseHexID(uc.config.VendorID)
	if err != nil {
		return fmt.Errorf("invalid vendor ID: %w", err)
	}

	productID, err := parseHexID(uc.config.ProductID)
	if err != nil {
		return fmt.Errorf("invalid product ID: %w", err)
	}

	usbCtx := gousb.NewContext()

	device, err := uc.findAndOpenDevice(usbCtx, vendorID, productID)
	if err != nil {
		usbCtx.Close()
		return fmt.Errorf("failed to find USB device: %w", err)
	}

	if err := device.SetAutoDetach(true); err != nil {
		uc.logger.Warn("Failed to enable kernel driver auto-detach", zap.Error(err))
	}

	intf, release, err := device.DefaultInterface()
	if err != nil {
		device.Close()
		usbCtx.Close()
		return fmt.Errorf("failed to claim interface: %w", err)
	}

	outEndpt, err := intf.OutEndpoint(uc.config.OutEndpoint)
	if err != nil {
		release()
		device.Close()
		usbCtx.Close()
		return fmt.Errorf("failed to get out endpoint: %w", err)
	}

	inEndpt, err := intf.InEndpoint(uc.config.InEndpoint)
	if err != nil {
		// write-only printers never answer status requests
		uc.logger.Warn("No in endpoint found", zap.Error(err))
		inEndpt = nil
	}

	uc.ctx = usbCtx
	uc.device = device
	uc.intf = intf
	uc.release = release
	uc.outEndpt = outEndpt
	uc.inEndpt = inEndpt
	uc.listener = newReplyListener(uc.logger)

	if inEndpt != nil {
		readerCtx, stop := context.WithCancel(context.Background())
		uc.stop = stop
		go uc.listener.run(&usbReader{ctx: readerCtx, endpoint: inEndpt}, inEndpt.Desc.MaxPacketSize, isUSBTimeout)
	}

	uc.isOpen = true
	uc.stats.setConnected(true)

	uc.logger.Info("USB connection opened successfully")
	return nil
}

// Close closes the USB connection
func (uc *USBConnection) Close() error {
	uc.mutex.Lock()
	defer uc.mutex.Unlock()

	if !uc.isOpen {
		return nil
	}

	if uc.stop != nil {
		uc.stop()
		<-uc.listener.done
		uc.stop = nil
	}

	if uc.release != nil {
		uc.release()
		uc.release = nil
	}
	uc.intf = nil

	var err error
	if uc.device != nil {
		err = uc.device.Close()
		uc.device = nil
	}

	if uc.ctx != nil {
		uc.ctx.Close()
		uc.ctx = nil
	}

	uc.outEndpt = nil
	uc.inEndpt = nil
	uc.isOpen = false
	uc.stats.setConnected(false)

	if err != nil {
		uc.logger.Error("Failed to close USB device", zap.Error(err))
		return fmt.Errorf("failed to close USB device: %w", err)
	}

	uc.logger.Info("USB connection closed successfully")
	return nil
}

// IsOpen returns whether the connection is open
func (uc *USBConnection) IsOpen() bool {
	uc.mutex.RLock()
	defer uc.mutex.RUnlock()
	return uc.isOpen && uc.device != nil && uc.outEndpt != nil
}

// Write writes data to the USB connection
func (uc *USBConnection) Write(ctx context.Context, data []byte) error {
	uc.mutex.RLock()
	defer uc.mutex.RUnlock()

	if !uc.isOpen || uc.outEndpt == nil {
		return fmt.Errorf("USB %w", ErrNotOpen)
	}

	startTime := time.Now()
	n, err := uc.outEndpt.WriteContext(ctx, data)
	if err != nil {
		uc.stats.recordError()
		uc.logger.Error("USB write failed", zap.Error(err))
		return fmt.Errorf("failed to write to USB device: %w", err)
	}

	if n != len(data) {
		uc.stats.recordError()
		return fmt.Errorf("incomplete write: wrote %d of %d bytes", n, len(data))
	}

	uc.stats.recordWrite(n, time.Since(startTime))

	uc.logger.Debug("USB write completed", zap.Int("bytes", n), zap.Binary("data", data))
	return nil
}

// Read waits up to the configured read timeout for the next chunk
func (uc *USBConnection) Read(ctx context.Context) ([]byte, error) {
	uc.mutex.RLock()
	listener := uc.listener
	open := uc.isOpen && uc.device != nil
	hasIn := uc.inEndpt != nil
	uc.mutex.RUnlock()

	if !open {
		return nil, fmt.Errorf("USB %w", ErrNotOpen)
	}

	if !hasIn {
		// nothing can ever arrive; behave like a silent printer.
		// A zero timeout waits without a time limit, as the listener does.
		var expired <-chan time.Time
		if uc.config.ReadTimeout > 0 {
			timer := time.NewTimer(uc.config.ReadTimeout)
			defer timer.Stop()
			expired = timer.C
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-expired:
		}
		uc.stats.recordRead(0)
		return []byte{}, nil
	}

	data, err := listener.wait(ctx, uc.config.ReadTimeout)
	if err != nil {
		uc.stats.recordError()
		return nil, fmt.Errorf("failed to read from USB device: %w", err)
	}

	uc.stats.recordRead(len(data))
	return data, nil
}

// GetProtocolType returns the protocol type
func (uc *USBConnection) GetProtocolType() model.ConnectionType {
	return model.ConnectionTypeUSB
}

// Stats returns a snapshot of the connection statistics
func (uc *USBConnection) Stats() ProtocolStats {
	return uc.stats.snapshot()
}

// parseHexID parses hex ID string (0x1234 or 1234)
func parseHexID(hexStr string) (gousb.ID, error) {
	hexStr = strings.TrimPrefix(strings.ToLower(hexStr), "0x")

	id, err := strconv.ParseUint(hexStr, 16, 16)
	if err != nil {
		return 0, err
	}

	return gousb.ID(id), nil
}

// findAndOpenDevice finds and opens the USB device, matching the serial
// number when one is configured
func (uc *USBConnection) findAndOpenDevice(usbCtx *gousb.Context, vendorID, productID gousb.ID) (*gousb.Device, error) {
	devices, err := usbCtx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Vendor == vendorID && desc.Product == productID
	})
	if err != nil && len(devices) == 0 {
		return nil, fmt.Errorf("failed to enumerate USB devices: %w", err)
	}

	var selected *gousb.Device
	for _, device := range devices {
		if selected != nil {
			device.Close()
			continue
		}

		if uc.config.SerialNumber != "" {
			serial, err := device.SerialNumber()
			if err != nil || serial != uc.config.SerialNumber {
				device.Close()
				continue
			}
		}
		selected = device
	}

	if selected == nil {
		return nil, fmt.Errorf("USB device not found (VID: %04X, PID: %04X)", uint16(vendorID), uint16(productID))
	}

	if len(devices) > 1 && uc.config.SerialNumber == "" {
		uc.logger.Warn("Multiple matching USB devices found, using first one")
	}

	return selected, nil
}
