package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFile_Defaults(t *testing.T) {
	config, err := LoadFile(writeConfig(t, "app:\n  environment: test\n"))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8084", config.GetServerAddr())
	assert.Equal(t, "info", config.Logging.Level)
	assert.Equal(t, 10*time.Second, config.Device.StatusPollInterval)
	assert.Equal(t, 9100, config.Device.DefaultPort.TCP.Port)
	assert.Equal(t, 30*time.Second, config.Device.DefaultPort.TCP.ConnectTimeout)
	assert.Equal(t, time.Second, config.Device.DefaultPort.TCP.ReadTimeout)
	assert.Equal(t, []string{"*"}, config.Security.AllowedOrigins)
	assert.Empty(t, config.Printers)
	assert.NotEmpty(t, config.ConfigFile)
}

func TestLoadFile_Printers(t *testing.T) {
	config, err := LoadFile(writeConfig(t, `
app:
  environment: test
printers:
  - id: front
    name: Front counter
    model: XP-80
    connection_type: tcp
    connection:
      host: 192.168.1.50
      read_timeout: 500ms
  - id: kitchen
    connection_type: SERIAL
    connection:
      port: /dev/ttyUSB0
      baud_rate: 19200
`))
	require.NoError(t, err)
	require.Len(t, config.Printers, 2)

	front := config.Printers[0]
	assert.Equal(t, "front", front.ID)
	assert.Equal(t, "XP-80", front.Model)

	settings := config.ConnectionSettings(front)
	assert.Equal(t, "192.168.1.50", settings["host"])
	assert.Equal(t, "500ms", settings["read_timeout"])
	assert.Equal(t, 9100, settings["port"])
	assert.Equal(t, 30*time.Second, settings["timeout"])

	kitchen := config.ConnectionSettings(config.Printers[1])
	assert.Equal(t, 19200, kitchen["baud_rate"])
	assert.Equal(t, "none", kitchen["parity"])
}

func TestLoadFile_EnvOverride(t *testing.T) {
	t.Setenv("ESCPOS_SERVICE_SERVER_PORT", "9999")
	t.Setenv("ESCPOS_SERVICE_LOGGING_LEVEL", "debug")

	config, err := LoadFile(writeConfig(t, "app:\n  environment: test\n"))
	require.NoError(t, err)

	assert.Equal(t, "9999", config.Server.Port)
	assert.Equal(t, "debug", config.Logging.Level)
}

func TestLoadFile_Validation(t *testing.T) {
	tests := map[string]string{
		"bad level":       "app:\n  environment: test\nlogging:\n  level: loud\n",
		"bad environment": "app:\n  environment: moon\n",
		"duplicate id": `
app:
  environment: test
printers:
  - id: a
    connection_type: tcp
  - id: a
    connection_type: tcp
`,
		"missing id": `
app:
  environment: test
printers:
  - connection_type: tcp
`,
		"bad connection type": `
app:
  environment: test
printers:
  - id: a
    connection_type: bluetooth
`,
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFile(writeConfig(t, content))
			assert.Error(t, err)
		})
	}
}

func TestLoadFile_MissingExplicitFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
