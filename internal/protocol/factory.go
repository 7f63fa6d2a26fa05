// internal/protocol/factory.go
package protocol

import (
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"escpos-service/internal/model"
)

// Defaults applied when a connection map leaves a key out
const (
	DefaultTCPPort           = 9100
	DefaultTCPConnectTimeout = 30 * time.Second
	DefaultReadTimeout       = time.Second
	DefaultWriteTimeout      = 10 * time.Second
	DefaultBaudRate          = 9600
	DefaultUSBEndpoint       = 1
)

var validBaudRates = []int{1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200}

// CreateProtocol creates a protocol based on connection type and configuration
func CreateProtocol(connectionType model.ConnectionType, config map[string]interface{}, logger *zap.Logger) (DeviceProtocol, error) {
	if err := ValidateConfig(connectionType, config); err != nil {
		return nil, err
	}

	switch connectionType {
	case model.ConnectionTypeSerial:
		return createSerialProtocol(config, logger), nil
	case model.ConnectionTypeUSB:
		return createUSBProtocol(config, logger), nil
	case model.ConnectionTypeTCP:
		return createTCPProtocol(config, logger), nil
	default:
		return nil, fmt.Errorf("unsupported protocol type: %s", connectionType)
	}
}

// BuildSerialConfig resolves a serial connection map into a SerialConfig
func BuildSerialConfig(config map[string]interface{}) *SerialConfig {
	serialConfig := &SerialConfig{
		Port:        stringValue(config, "port", ""),
		BaudRate:    intValue(config, "baud_rate", DefaultBaudRate),
		DataBits:    intValue(config, "data_bits", 8),
		StopBits:    intValue(config, "stop_bits", 1),
		Parity:      stringValue(config, "parity", "none"),
		ReadTimeout: durationValue(config, "read_timeout", DefaultReadTimeout),
	}
	return serialConfig
}

// BuildUSBConfig resolves a USB connection map into a USBConfig
func BuildUSBConfig(config map[string]interface{}) *USBConfig {
	endpoint := intValue(config, "endpoint", DefaultUSBEndpoint)
	return &USBConfig{
		VendorID:     stringValue(config, "vendor_id", ""),
		ProductID:    stringValue(config, "product_id", ""),
		Interface:    intValue(config, "interface", 0),
		OutEndpoint:  intValue(config, "out_endpoint", endpoint),
		InEndpoint:   intValue(config, "in_endpoint", endpoint),
		SerialNumber: stringValue(config, "serial_number", ""),
		ReadTimeout:  durationValue(config, "read_timeout", DefaultReadTimeout),
	}
}

// BuildTCPConfig resolves a TCP connection map into a TCPConfig
func BuildTCPConfig(config map[string]interface{}) *TCPConfig {
	return &TCPConfig{
		Host:         stringValue(config, "host", ""),
		Port:         intValue(config, "port", DefaultTCPPort),
		SSL:          boolValue(config, "ssl", false),
		KeepAlive:    boolValue(config, "keep_alive", true),
		BufferSize:   intValue(config, "buffer_size", 1024),
		Timeout:      durationValue(config, "timeout", DefaultTCPConnectTimeout),
		ReadTimeout:  durationValue(config, "read_timeout", DefaultReadTimeout),
		WriteTimeout: durationValue(config, "write_timeout", DefaultWriteTimeout),
	}
}

func createSerialProtocol(config map[string]interface{}, logger *zap.Logger) DeviceProtocol {
	serialConfig := BuildSerialConfig(config)

	logger.Info("Creating serial protocol",
		zap.String("port", serialConfig.Port),
		zap.Int("baud_rate", serialConfig.BaudRate),
	)

	return NewSerialConnection(serialConfig, logger)
}

func createUSBProtocol(config map[string]interface{}, logger *zap.Logger) DeviceProtocol {
	usbConfig := BuildUSBConfig(config)

	logger.Info("Creating USB protocol",
		zap.String("vendor_id", usbConfig.VendorID),
		zap.String("product_id", usbConfig.ProductID),
		zap.Int("interface", usbConfig.Interface),
	)

	return NewUSBConnection(usbConfig, logger)
}

func createTCPProtocol(config map[string]interface{}, logger *zap.Logger) DeviceProtocol {
	tcpConfig := BuildTCPConfig(config)

	logger.Info("Creating TCP protocol",
		zap.String("host", tcpConfig.Host),
		zap.Int("port", tcpConfig.Port),
		zap.Bool("ssl", tcpConfig.SSL),
	)

	return NewTCPConnection(tcpConfig, logger)
}

// ValidateConfig validates configuration for a specific protocol type
func ValidateConfig(connectionType model.ConnectionType, config map[string]interface{}) error {
	switch connectionType {
	case model.ConnectionTypeSerial:
		return validateSerialConfig(config)
	case model.ConnectionTypeUSB:
		return validateUSBConfig(config)
	case model.ConnectionTypeTCP:
		return validateTCPConfig(config)
	default:
		return fmt.Errorf("unsupported connection type: %s", connectionType)
	}
}

func validateSerialConfig(config map[string]interface{}) error {
	if stringValue(config, "port", "") == "" {
		return fmt.Errorf("serial port is required")
	}

	if _, ok := config["baud_rate"]; ok {
		rate, ok := toInt(config["baud_rate"])
		if !ok {
			return fmt.Errorf("invalid baud_rate type")
		}
		if !slices.Contains(validBaudRates, rate) {
			return fmt.Errorf("invalid baud rate: %d", rate)
		}
	}

	switch stringValue(config, "parity", "none") {
	case "none", "odd", "even":
	default:
		return fmt.Errorf("invalid parity: %v", config["parity"])
	}

	return validateDurations(config, "read_timeout")
}

func validateUSBConfig(config map[string]interface{}) error {
	for _, key := range []string{"vendor_id", "product_id"} {
		value := stringValue(config, key, "")
		if value == "" {
			return fmt.Errorf("USB %s is required", key)
		}
		if _, err := parseHexID(value); err != nil {
			return fmt.Errorf("invalid USB %s %q: %w", key, value, err)
		}
	}

	return validateDurations(config, "read_timeout")
}

func validateTCPConfig(config map[string]interface{}) error {
	if stringValue(config, "host", "") == "" {
		return fmt.Errorf("TCP host is required")
	}

	if _, ok := config["port"]; ok {
		portNum, ok := toInt(config["port"])
		if !ok {
			return fmt.Errorf("invalid port type")
		}
		if portNum < 1 || portNum > 65535 {
			return fmt.Errorf("invalid port number: %d", portNum)
		}
	}

	return validateDurations(config, "timeout", "read_timeout", "write_timeout")
}

func validateDurations(config map[string]interface{}, keys ...string) error {
	for _, key := range keys {
		raw, ok := config[key]
		if !ok {
			continue
		}
		dur, ok := toDuration(raw)
		if !ok {
			return fmt.Errorf("invalid %s: %v", key, raw)
		}
		if dur <= 0 {
			return fmt.Errorf("%s must be positive, got %v", key, raw)
		}
	}
	return nil
}

// Config maps come from viper (YAML ints) or JSON bodies (float64), so the
// accessors below accept both.

func stringValue(config map[string]interface{}, key, fallback string) string {
	if value, ok := config[key].(string); ok {
		return value
	}
	return fallback
}

func boolValue(config map[string]interface{}, key string, fallback bool) bool {
	if value, ok := config[key].(bool); ok {
		return value
	}
	return fallback
}

func intValue(config map[string]interface{}, key string, fallback int) int {
	if value, ok := toInt(config[key]); ok {
		return value
	}
	return fallback
}

func durationValue(config map[string]interface{}, key string, fallback time.Duration) time.Duration {
	if value, ok := toDuration(config[key]); ok {
		return value
	}
	return fallback
}

func toInt(raw interface{}) (int, bool) {
	switch v := raw.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case uint16:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func toDuration(raw interface{}) (time.Duration, bool) {
	switch v := raw.(type) {
	case time.Duration:
		return v, true
	case string:
		dur, err := time.ParseDuration(v)
		return dur, err == nil
	default:
		return 0, false
	}
}
