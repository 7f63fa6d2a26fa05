// pkg/escpos/commands.go
package escpos

// ESC_POS_COMMANDS contains the ESC/POS command definitions used by the driver
var ESC_POS_COMMANDS = struct {
	// Basic commands
	INITIALIZE []byte

	// Real-time status transmission (DLE EOT n)
	STATUS_PRINTER       []byte
	STATUS_OFFLINE_CAUSE []byte
	STATUS_ERROR_CAUSE   []byte
	STATUS_ROLL_PAPER    []byte

	// Paper handling
	LINE_FEED []byte

	// Barcodes
	BARCODE_HEIGHT       []byte // + dots
	BARCODE_WIDTH        []byte // + module width
	BARCODE_HRI_POSITION []byte // + position
	BARCODE_HRI_FONT     []byte // + font
	BARCODE_CODE128      []byte // + length + data
}{
	// Basic commands
	INITIALIZE: []byte{0x1B, 0x40}, // ESC @

	// Real-time status transmission
	STATUS_PRINTER:       []byte{0x10, 0x04, 0x01}, // DLE EOT 1
	STATUS_OFFLINE_CAUSE: []byte{0x10, 0x04, 0x02}, // DLE EOT 2
	STATUS_ERROR_CAUSE:   []byte{0x10, 0x04, 0x03}, // DLE EOT 3
	STATUS_ROLL_PAPER:    []byte{0x10, 0x04, 0x04}, // DLE EOT 4

	// Paper handling
	LINE_FEED: []byte{0x0A}, // LF

	// Barcodes
	BARCODE_HEIGHT:       []byte{0x1D, 0x68},       // GS h
	BARCODE_WIDTH:        []byte{0x1D, 0x77},       // GS w
	BARCODE_HRI_POSITION: []byte{0x1D, 0x48},       // GS H
	BARCODE_HRI_FONT:     []byte{0x1D, 0x66},       // GS f
	BARCODE_CODE128:      []byte{0x1D, 0x6B, 0x49}, // GS k I
}

func withParam(prefix []byte, n byte) []byte {
	cmd := make([]byte, 0, len(prefix)+1)
	cmd = append(cmd, prefix...)
	return append(cmd, n)
}

// BarcodeHeight returns GS h n
func BarcodeHeight(dots byte) []byte {
	return withParam(ESC_POS_COMMANDS.BARCODE_HEIGHT, dots)
}

// BarcodeWidth returns GS w n
func BarcodeWidth(width byte) []byte {
	return withParam(ESC_POS_COMMANDS.BARCODE_WIDTH, width)
}

// BarcodeHRIPosition returns GS H n
func BarcodeHRIPosition(pos HRIPosition) []byte {
	return withParam(ESC_POS_COMMANDS.BARCODE_HRI_POSITION, byte(pos))
}

// BarcodeHRIFont returns GS f n
func BarcodeHRIFont(font HRIFont) []byte {
	return withParam(ESC_POS_COMMANDS.BARCODE_HRI_FONT, byte(font))
}
