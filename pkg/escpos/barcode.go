// pkg/escpos/barcode.go
package escpos

import (
	"errors"
	"fmt"
)

// BlockMode selects the CODE128 code set a block is emitted in
type BlockMode int

const (
	// ModeAlphanumeric emits one byte per character (code set B)
	ModeAlphanumeric BlockMode = iota
	// ModeNumeric packs two digits per byte (code set C)
	ModeNumeric
)

// String returns the mode name
func (m BlockMode) String() string {
	switch m {
	case ModeNumeric:
		return "NUMERIC"
	case ModeAlphanumeric:
		return "ALPHANUMERIC"
	default:
		return fmt.Sprintf("BlockMode(%d)", int(m))
	}
}

// codeSet returns the code set letter sent after the shift character
func (m BlockMode) codeSet() byte {
	if m == ModeNumeric {
		return 'C'
	}
	return 'B'
}

// Block is a contiguous piece of barcode data encoded in a single mode
type Block struct {
	Mode BlockMode `json:"mode"`
	Text string    `json:"text"`
}

// Barcode errors
var (
	ErrEmptyBarcode       = errors.New("barcode data is empty")
	ErrInvalidBarcodeData = errors.New("barcode data contains characters outside printable ASCII")
	ErrBarcodeTooLong     = errors.New("barcode data too long")

	ErrInvalidBarcodeOptions = errors.New("invalid barcode options")
)

// code128Shift precedes every code set selection in Xprinter CODE128 data
const code128Shift = '{'

// runPosition classifies a digit run by where it sits in the input
type runPosition int

const (
	runInner runPosition = iota
	runLeading
	runTrailing
	runWhole
)

// numericRule decides whether a digit run is worth packing into code set C.
// minEven and minOdd are compared against the run length rounded down to
// even, for even and odd runs respectively. leftoverBefore puts the unpaired
// digit of an odd run in front of the packed digits instead of after them.
type numericRule struct {
	minEven        int
	minOdd         int
	leftoverBefore bool
}

var code128Rules = [...]numericRule{
	runInner:    {minEven: 6, minOdd: 6},
	runLeading:  {minEven: 4, minOdd: 4},
	runTrailing: {minEven: 4, minOdd: 4, leftoverBefore: true},
	runWhole:    {minEven: 2, minOdd: 4},
}

func classifyRun(start, end, length int) runPosition {
	switch {
	case start == 0 && end == length:
		return runWhole
	case start == 0:
		return runLeading
	case end == length:
		return runTrailing
	default:
		return runInner
	}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// SplitForCode128 splits data into alternating alphanumeric and numeric
// blocks so that the rendered CODE128 command stays short. Concatenating the
// block texts gives back data.
func SplitForCode128(data string) []Block {
	var blocks []Block
	alphaStart := 0

	for i := 0; i < len(data); {
		if !isDigit(data[i]) {
			i++
			continue
		}

		j := i
		for j < len(data) && isDigit(data[j]) {
			j++
		}

		runLen := j - i
		packed := runLen &^ 1
		rule := code128Rules[classifyRun(i, j, len(data))]

		threshold := rule.minEven
		if runLen%2 == 1 {
			threshold = rule.minOdd
		}

		if packed > 0 && packed >= threshold {
			numStart := i
			if runLen%2 == 1 && rule.leftoverBefore {
				numStart++
			}
			numEnd := numStart + packed

			if numStart > alphaStart {
				blocks = append(blocks, Block{Mode: ModeAlphanumeric, Text: data[alphaStart:numStart]})
			}
			blocks = append(blocks, Block{Mode: ModeNumeric, Text: data[numStart:numEnd]})
			alphaStart = numEnd
		}

		i = j
	}

	if alphaStart < len(data) {
		blocks = append(blocks, Block{Mode: ModeAlphanumeric, Text: data[alphaStart:]})
	}

	return blocks
}

// SplitForCode128Text is SplitForCode128 returning only the block texts
func SplitForCode128Text(data string) []string {
	blocks := SplitForCode128(data)
	texts := make([]string, len(blocks))
	for i, block := range blocks {
		texts[i] = block.Text
	}
	return texts
}

// renderBody renders blocks without the leading length byte
func renderBody(blocks []Block) []byte {
	body := make([]byte, 0, 64)

	for _, block := range blocks {
		body = append(body, code128Shift, block.Mode.codeSet())

		switch block.Mode {
		case ModeNumeric:
			for k := 0; k+1 < len(block.Text); k += 2 {
				body = append(body, (block.Text[k]-'0')*10+(block.Text[k+1]-'0'))
			}
		default:
			for k := 0; k < len(block.Text); k++ {
				c := block.Text[k]
				if c == code128Shift {
					// the firmware reads "{{" as a literal brace
					body = append(body, code128Shift)
				}
				body = append(body, c)
			}
		}
	}

	return body
}

// maxXprinterBody is the largest body the single length byte can count
const maxXprinterBody = 255

// RenderXprinter renders blocks as Xprinter CODE128 data: a length byte
// counting everything after it, then "{B" or "{C" followed by the block
// bytes for every block. A body that does not fit the length byte fails
// with ErrBarcodeTooLong.
func RenderXprinter(blocks []Block) ([]byte, error) {
	body := renderBody(blocks)
	if len(body) > maxXprinterBody {
		return nil, fmt.Errorf("%w: %d encoded bytes, limit is %d", ErrBarcodeTooLong, len(body), maxXprinterBody)
	}
	command := make([]byte, 0, len(body)+1)
	command = append(command, byte(len(body)))
	return append(command, body...), nil
}

// Code128ForXprinter splits and renders data in one step
func Code128ForXprinter(data string) ([]byte, error) {
	return RenderXprinter(SplitForCode128(data))
}

// HRIPosition selects where the human readable text is printed
type HRIPosition byte

const (
	HRINone  HRIPosition = 0
	HRIAbove HRIPosition = 1
	HRIBelow HRIPosition = 2
	HRIBoth  HRIPosition = 3
)

// HRIFont selects the font of the human readable text
type HRIFont byte

const (
	HRIFontA HRIFont = 0
	HRIFontB HRIFont = 1
)

// BarcodeOptions controls barcode geometry and HRI text
type BarcodeOptions struct {
	Height      int         `json:"height"`
	Width       int         `json:"width"`
	HRIPosition HRIPosition `json:"hri_position"`
	HRIFont     HRIFont     `json:"hri_font"`
}

// DefaultBarcodeOptions returns the printer power-on barcode settings with
// HRI text below the symbol
func DefaultBarcodeOptions() BarcodeOptions {
	return BarcodeOptions{
		Height:      162,
		Width:       3,
		HRIPosition: HRIBelow,
		HRIFont:     HRIFontA,
	}
}

// Validate checks options against the ranges accepted by GS h / GS w / GS H / GS f
func (o BarcodeOptions) Validate() error {
	if o.Height < 1 || o.Height > 255 {
		return fmt.Errorf("%w: height %d", ErrInvalidBarcodeOptions, o.Height)
	}
	if o.Width < 2 || o.Width > 6 {
		return fmt.Errorf("%w: width %d", ErrInvalidBarcodeOptions, o.Width)
	}
	if o.HRIPosition > HRIBoth {
		return fmt.Errorf("%w: HRI position %d", ErrInvalidBarcodeOptions, o.HRIPosition)
	}
	if o.HRIFont > HRIFontB {
		return fmt.Errorf("%w: HRI font %d", ErrInvalidBarcodeOptions, o.HRIFont)
	}
	return nil
}

// ValidateBarcodeData checks that data can be encoded in CODE128 B/C
func ValidateBarcodeData(data string) error {
	if data == "" {
		return ErrEmptyBarcode
	}
	for i := 0; i < len(data); i++ {
		if data[i] < 0x20 || data[i] > 0x7E {
			return fmt.Errorf("%w: byte 0x%02x at offset %d", ErrInvalidBarcodeData, data[i], i)
		}
	}
	return nil
}

// Code128Command builds the full print sequence for a CODE128 barcode:
// geometry and HRI setup followed by GS k 73 and the Xprinter data.
func Code128Command(data string, opts BarcodeOptions) ([]byte, error) {
	if err := ValidateBarcodeData(data); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	body, err := RenderXprinter(SplitForCode128(data))
	if err != nil {
		return nil, err
	}

	command := make([]byte, 0, len(body)+16)
	command = append(command, BarcodeHeight(byte(opts.Height))...)
	command = append(command, BarcodeWidth(byte(opts.Width))...)
	command = append(command, BarcodeHRIPosition(opts.HRIPosition)...)
	command = append(command, BarcodeHRIFont(opts.HRIFont)...)
	command = append(command, ESC_POS_COMMANDS.BARCODE_CODE128...)
	command = append(command, body...)

	return command, nil
}
