// pkg/escpos/status.go
package escpos

import (
	"errors"
	"fmt"
	"strings"
)

// StatusDescriptor describes one real-time status category: the request
// command and how the single reply byte is interpreted.
type StatusDescriptor interface {
	Name() string
	Command() []byte
	Decode(b byte) StatusValue
}

// StatusValue is a decoded one-byte status reply
type StatusValue interface {
	Kind() string
	Byte() byte
	Valid() bool
	Report() StatusReport
}

// StatusLevel grades a single status bit
type StatusLevel string

const (
	StatusLevelOK      StatusLevel = "ok"
	StatusLevelWarning StatusLevel = "warning"
	StatusLevelError   StatusLevel = "error"
)

// StatusBit is one interpreted bit of a status byte
type StatusBit struct {
	Bit   int         `json:"bit"`
	Value int         `json:"value"`
	Label string      `json:"label"`
	Level StatusLevel `json:"level"`
}

// StatusReport is the JSON friendly form of a StatusValue
type StatusReport struct {
	Kind     string      `json:"kind"`
	Byte     byte        `json:"byte"`
	Bits     string      `json:"bits"`
	Valid    bool        `json:"valid"`
	Statuses []StatusBit `json:"statuses"`
}

// Status kind names
const (
	StatusKindPrinter         = "printer"
	StatusKindOfflineCause    = "offline_cause"
	StatusKindErrorCause      = "error_cause"
	StatusKindRollPaperSensor = "roll_paper_sensor"
)

// ErrUnknownStatusKind is returned by LookupStatusDescriptor
var ErrUnknownStatusKind = errors.New("unknown status kind")

// statusByte carries the raw reply and the bit helpers shared by all kinds
type statusByte byte

// Byte returns the raw reply byte
func (s statusByte) Byte() byte { return byte(s) }

// Valid reports whether the fixed bits match the DLE EOT reply format
// (bit 0 and 7 clear, bit 1 and 4 set)
func (s statusByte) Valid() bool { return byte(s)&0x93 == 0x12 }

func (s statusByte) bit(n uint) bool { return byte(s)&(1<<n) != 0 }

func (s statusByte) bitValue(n uint) int {
	if s.bit(n) {
		return 1
	}
	return 0
}

// bitString renders the byte MSB first, e.g. "00010110"
func (s statusByte) bitString() string {
	return fmt.Sprintf("%08b", byte(s))
}

// describe builds a StatusBit picking the label and level by bit value
func (s statusByte) describe(n uint, clear, set string, setLevel StatusLevel) StatusBit {
	entry := StatusBit{Bit: int(n), Value: s.bitValue(n), Label: clear, Level: StatusLevelOK}
	if s.bit(n) {
		entry.Label = set
		entry.Level = setLevel
	}
	return entry
}

func (s statusByte) report(kind string, statuses []StatusBit) StatusReport {
	return StatusReport{
		Kind:     kind,
		Byte:     byte(s),
		Bits:     s.bitString(),
		Valid:    s.Valid(),
		Statuses: statuses,
	}
}

// PrinterStatus is the reply to DLE EOT 1
type PrinterStatus struct{ statusByte }

// Kind returns StatusKindPrinter
func (PrinterStatus) Kind() string { return StatusKindPrinter }

// DrawerPinHigh reports the drawer kick-out connector pin 3 level
func (s PrinterStatus) DrawerPinHigh() bool { return s.bit(2) }

// Offline reports the printer is offline
func (s PrinterStatus) Offline() bool { return s.bit(3) }

// WaitingForRecovery reports the printer waits for online recovery
func (s PrinterStatus) WaitingForRecovery() bool { return s.bit(5) }

// FeedButtonPressed reports the paper feed button is being pressed
func (s PrinterStatus) FeedButtonPressed() bool { return s.bit(6) }

// Report returns the JSON form
func (s PrinterStatus) Report() StatusReport {
	return s.report(s.Kind(), []StatusBit{
		s.describe(2, "Drawer kick-out connector pin 3 is LOW", "Drawer kick-out connector pin 3 is HIGH", StatusLevelOK),
		s.describe(3, "Online", "Offline", StatusLevelError),
		s.describe(5, "Not waiting for online recovery", "Waiting for online recovery", StatusLevelError),
		s.describe(6, "Paper feed button is not being pressed", "Paper feed button is being pressed", StatusLevelWarning),
	})
}

// OfflineCauseStatus is the reply to DLE EOT 2
type OfflineCauseStatus struct{ statusByte }

// Kind returns StatusKindOfflineCause
func (OfflineCauseStatus) Kind() string { return StatusKindOfflineCause }

// CoverOpen reports the cover is open
func (s OfflineCauseStatus) CoverOpen() bool { return s.bit(2) }

// FeedingByButton reports paper is being fed by the feed button
func (s OfflineCauseStatus) FeedingByButton() bool { return s.bit(3) }

// PaperEndStop reports printing stopped because of a paper end
func (s OfflineCauseStatus) PaperEndStop() bool { return s.bit(5) }

// ErrorOccurred reports an error condition
func (s OfflineCauseStatus) ErrorOccurred() bool { return s.bit(6) }

// Report returns the JSON form
func (s OfflineCauseStatus) Report() StatusReport {
	return s.report(s.Kind(), []StatusBit{
		s.describe(2, "Cover is closed", "Cover is open", StatusLevelError),
		s.describe(3, "Paper is not being fed by the feed button", "Paper is being fed by the feed button", StatusLevelWarning),
		s.describe(5, "No paper-end stop", "Printing stops due to a paper-end", StatusLevelError),
		s.describe(6, "No error", "Error occurred", StatusLevelError),
	})
}

// ErrorCauseStatus is the reply to DLE EOT 3
type ErrorCauseStatus struct{ statusByte }

// Kind returns StatusKindErrorCause
func (ErrorCauseStatus) Kind() string { return StatusKindErrorCause }

// MechanicalError reports a mechanical (recoverable) error
func (s ErrorCauseStatus) MechanicalError() bool { return s.bit(2) }

// AutocutterError reports an autocutter error
func (s ErrorCauseStatus) AutocutterError() bool { return s.bit(3) }

// UnrecoverableError reports an unrecoverable error
func (s ErrorCauseStatus) UnrecoverableError() bool { return s.bit(5) }

// AutoRecoverableError reports an auto-recoverable error
func (s ErrorCauseStatus) AutoRecoverableError() bool { return s.bit(6) }

// Report returns the JSON form
func (s ErrorCauseStatus) Report() StatusReport {
	return s.report(s.Kind(), []StatusBit{
		s.describe(2, "No mechanical error", "Mechanical error occurred", StatusLevelError),
		s.describe(3, "No autocutter error", "Autocutter error occurred", StatusLevelError),
		s.describe(5, "No unrecoverable error", "Unrecoverable error occurred", StatusLevelError),
		s.describe(6, "No auto-recoverable error", "Auto-recoverable error occurred", StatusLevelWarning),
	})
}

// RollPaperSensorStatus is the reply to DLE EOT 4
type RollPaperSensorStatus struct{ statusByte }

// Kind returns StatusKindRollPaperSensor
func (RollPaperSensorStatus) Kind() string { return StatusKindRollPaperSensor }

// PaperNearEnd reports the near-end sensor (bits 2 and 3) detects paper near end
func (s RollPaperSensorStatus) PaperNearEnd() bool { return byte(s.statusByte)&0x0C == 0x0C }

// PaperEnd reports the end sensor (bits 5 and 6) detects paper end
func (s RollPaperSensorStatus) PaperEnd() bool { return byte(s.statusByte)&0x60 == 0x60 }

// Report returns the JSON form
func (s RollPaperSensorStatus) Report() StatusReport {
	nearEnd := StatusBit{Bit: 2, Value: s.bitValue(2), Label: "Roll paper near-end sensor: paper adequate", Level: StatusLevelOK}
	if s.PaperNearEnd() {
		nearEnd.Label = "Roll paper near-end sensor: paper near end"
		nearEnd.Level = StatusLevelWarning
	}
	end := StatusBit{Bit: 5, Value: s.bitValue(5), Label: "Roll paper end sensor: paper present", Level: StatusLevelOK}
	if s.PaperEnd() {
		end.Label = "Roll paper end sensor: paper not present"
		end.Level = StatusLevelError
	}
	return s.report(s.Kind(), []StatusBit{nearEnd, end})
}

// statusDescriptor is the built-in StatusDescriptor implementation
type statusDescriptor struct {
	name    string
	command []byte
	decode  func(b byte) StatusValue
}

func (d statusDescriptor) Name() string { return d.name }

// Command returns a copy so callers cannot alter the shared descriptor
func (d statusDescriptor) Command() []byte {
	cmd := make([]byte, len(d.command))
	copy(cmd, d.command)
	return cmd
}

func (d statusDescriptor) Decode(b byte) StatusValue { return d.decode(b) }

// Built-in status descriptors
var (
	PrinterStatusDescriptor StatusDescriptor = statusDescriptor{
		name:    StatusKindPrinter,
		command: ESC_POS_COMMANDS.STATUS_PRINTER,
		decode:  func(b byte) StatusValue { return PrinterStatus{statusByte(b)} },
	}
	OfflineCauseStatusDescriptor StatusDescriptor = statusDescriptor{
		name:    StatusKindOfflineCause,
		command: ESC_POS_COMMANDS.STATUS_OFFLINE_CAUSE,
		decode:  func(b byte) StatusValue { return OfflineCauseStatus{statusByte(b)} },
	}
	ErrorCauseStatusDescriptor StatusDescriptor = statusDescriptor{
		name:    StatusKindErrorCause,
		command: ESC_POS_COMMANDS.STATUS_ERROR_CAUSE,
		decode:  func(b byte) StatusValue { return ErrorCauseStatus{statusByte(b)} },
	}
	RollPaperSensorStatusDescriptor StatusDescriptor = statusDescriptor{
		name:    StatusKindRollPaperSensor,
		command: ESC_POS_COMMANDS.STATUS_ROLL_PAPER,
		decode:  func(b byte) StatusValue { return RollPaperSensorStatus{statusByte(b)} },
	}
)

// StatusBattery returns the descriptors queried by a full status read, in
// the order their results are reported.
func StatusBattery() []StatusDescriptor {
	return []StatusDescriptor{
		PrinterStatusDescriptor,
		OfflineCauseStatusDescriptor,
		ErrorCauseStatusDescriptor,
		RollPaperSensorStatusDescriptor,
	}
}

// LookupStatusDescriptor resolves a kind name or its short alias
// (printer, offline, error, paper).
func LookupStatusDescriptor(kind string) (StatusDescriptor, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", StatusKindPrinter:
		return PrinterStatusDescriptor, nil
	case "offline", StatusKindOfflineCause:
		return OfflineCauseStatusDescriptor, nil
	case "error", StatusKindErrorCause:
		return ErrorCauseStatusDescriptor, nil
	case "paper", "roll_paper", StatusKindRollPaperSensor:
		return RollPaperSensorStatusDescriptor, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatusKind, kind)
	}
}
