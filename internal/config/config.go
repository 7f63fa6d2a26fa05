// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig    `mapstructure:"server"`
	Security SecurityConfig  `mapstructure:"security"`
	Logging  LoggingConfig   `mapstructure:"logging"`
	Device   DeviceConfig    `mapstructure:"device"`
	Printers []PrinterConfig `mapstructure:"printers"`
	App      AppConfig       `mapstructure:"app"`

	// ConfigFile is the file the configuration was read from, empty when
	// only defaults and environment were used
	ConfigFile string `mapstructure:"-"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	TLS             TLSConfig     `mapstructure:"tls"`
}

// TLSConfig represents TLS configuration
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

// SecurityConfig represents security configuration
type SecurityConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// JWTSecret enables HS256 bearer authentication on the API when set
	JWTSecret string `mapstructure:"jwt_secret"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// DeviceConfig represents printer-wide defaults
type DeviceConfig struct {
	StatusPollInterval time.Duration    `mapstructure:"status_poll_interval"`
	OperationTimeout   time.Duration    `mapstructure:"operation_timeout"`
	ConnectOnStartup   bool             `mapstructure:"connect_on_startup"`
	InitOnConnect      bool             `mapstructure:"init_on_connect"`
	DefaultPort        DevicePortConfig `mapstructure:"default_ports"`
}

// DevicePortConfig represents default port configurations
type DevicePortConfig struct {
	Serial SerialPortConfig `mapstructure:"serial"`
	TCP    TCPPortConfig    `mapstructure:"tcp"`
	USB    USBPortConfig    `mapstructure:"usb"`
}

// SerialPortConfig represents serial port defaults
type SerialPortConfig struct {
	BaudRate    int           `mapstructure:"baud_rate"`
	DataBits    int           `mapstructure:"data_bits"`
	StopBits    int           `mapstructure:"stop_bits"`
	Parity      string        `mapstructure:"parity"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
}

// TCPPortConfig represents TCP port defaults
type TCPPortConfig struct {
	Port           int           `mapstructure:"port"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	KeepAlive      bool          `mapstructure:"keep_alive"`
}

// USBPortConfig represents USB port defaults
type USBPortConfig struct {
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	Endpoint    int           `mapstructure:"endpoint"`
}

// PrinterConfig represents one configured printer
type PrinterConfig struct {
	ID             string                 `mapstructure:"id"`
	Name           string                 `mapstructure:"name"`
	Model          string                 `mapstructure:"model"`
	ConnectionType string                 `mapstructure:"connection_type"`
	Connection     map[string]interface{} `mapstructure:"connection"`
}

// AppConfig represents application metadata
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

var (
	validEnvironments   = []string{"development", "staging", "production", "test"}
	validLevels         = []string{"debug", "info", "warn", "error", "fatal"}
	validConnectionType = []string{"SERIAL", "USB", "TCP"}
)

// Load loads configuration from config.yaml, .env and environment variables
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile loads configuration from configFile, or searches the default
// locations when configFile is empty
func LoadFile(configFile string) (*Config, error) {
	// .env is optional; real environment variables win over it
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/escpos-service")
	}

	// Environment variable support
	v.SetEnvPrefix("ESCPOS_SERVICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	config.ConfigFile = v.ConfigFileUsed()

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8084")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.tls.enabled", false)

	// Security defaults
	v.SetDefault("security.allowed_origins", []string{"*"})
	v.SetDefault("security.jwt_secret", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
	v.SetDefault("logging.compress", true)

	// Device defaults
	v.SetDefault("device.status_poll_interval", "10s")
	v.SetDefault("device.operation_timeout", "10s")
	v.SetDefault("device.connect_on_startup", true)
	v.SetDefault("device.init_on_connect", false)

	v.SetDefault("device.default_ports.serial.baud_rate", 9600)
	v.SetDefault("device.default_ports.serial.data_bits", 8)
	v.SetDefault("device.default_ports.serial.stop_bits", 1)
	v.SetDefault("device.default_ports.serial.parity", "none")
	v.SetDefault("device.default_ports.serial.read_timeout", "1s")

	v.SetDefault("device.default_ports.tcp.port", 9100)
	v.SetDefault("device.default_ports.tcp.connect_timeout", "30s")
	v.SetDefault("device.default_ports.tcp.read_timeout", "1s")
	v.SetDefault("device.default_ports.tcp.write_timeout", "10s")
	v.SetDefault("device.default_ports.tcp.keep_alive", true)

	v.SetDefault("device.default_ports.usb.read_timeout", "1s")
	v.SetDefault("device.default_ports.usb.endpoint", 1)

	// App defaults
	v.SetDefault("app.name", "escpos-service")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Server.Host == "" {
		return fmt.Errorf("server.host is required")
	}
	if config.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}

	if !slices.Contains(validEnvironments, config.App.Environment) {
		return fmt.Errorf("app.environment must be one of: %v", validEnvironments)
	}

	if !slices.Contains(validLevels, config.Logging.Level) {
		return fmt.Errorf("logging.level must be one of: %v", validLevels)
	}

	if config.Device.StatusPollInterval < 0 {
		return fmt.Errorf("device.status_poll_interval must not be negative")
	}

	seen := make(map[string]bool, len(config.Printers))
	for i, printer := range config.Printers {
		if printer.ID == "" {
			return fmt.Errorf("printers[%d].id is required", i)
		}
		if seen[printer.ID] {
			return fmt.Errorf("duplicate printer id: %s", printer.ID)
		}
		seen[printer.ID] = true

		if !slices.Contains(validConnectionType, strings.ToUpper(printer.ConnectionType)) {
			return fmt.Errorf("printers[%d].connection_type must be one of: %v", i, validConnectionType)
		}
	}

	return nil
}

// ConnectionSettings returns the printer's connection map with the
// device.default_ports values filled in for keys it leaves out
func (c *Config) ConnectionSettings(printer PrinterConfig) map[string]interface{} {
	settings := make(map[string]interface{})

	switch strings.ToUpper(printer.ConnectionType) {
	case "SERIAL":
		defaults := c.Device.DefaultPort.Serial
		settings["baud_rate"] = defaults.BaudRate
		settings["data_bits"] = defaults.DataBits
		settings["stop_bits"] = defaults.StopBits
		settings["parity"] = defaults.Parity
		settings["read_timeout"] = defaults.ReadTimeout
	case "TCP":
		defaults := c.Device.DefaultPort.TCP
		settings["port"] = defaults.Port
		settings["timeout"] = defaults.ConnectTimeout
		settings["read_timeout"] = defaults.ReadTimeout
		settings["write_timeout"] = defaults.WriteTimeout
		settings["keep_alive"] = defaults.KeepAlive
	case "USB":
		defaults := c.Device.DefaultPort.USB
		settings["endpoint"] = defaults.Endpoint
		settings["read_timeout"] = defaults.ReadTimeout
	}

	// unset defaults leave the key out so the protocol layer falls back to its own
	for key, value := range settings {
		switch v := value.(type) {
		case int:
			if v == 0 {
				delete(settings, key)
			}
		case time.Duration:
			if v == 0 {
				delete(settings, key)
			}
		case string:
			if v == "" {
				delete(settings, key)
			}
		}
	}

	for key, value := range printer.Connection {
		settings[key] = value
	}
	return settings
}

// GetServerAddr returns the server address
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// IsProduction checks if the environment is production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment checks if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsDebugEnabled checks if debug mode is enabled
func (c *Config) IsDebugEnabled() bool {
	return c.App.Debug || c.IsDevelopment()
}
