package escpos

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitForCode128(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"12", []string{"12"}},
		{"123", []string{"123"}},
		{"1234", []string{"1234"}},
		{"12345", []string{"1234", "5"}},
		{"123456789", []string{"12345678", "9"}},
		{"123A4567C", []string{"123A4567C"}},
		{"1234A4567C", []string{"1234", "A4567C"}},
		{"AAA12", []string{"AAA12"}},
		{"AAA123", []string{"AAA123"}},
		{"AAA1234", []string{"AAA", "1234"}},
		{"AAA12345", []string{"AAA1", "2345"}},
		{"4321AAA1234", []string{"4321", "AAA", "1234"}},
		{"AAA123456BBB", []string{"AAA", "123456", "BBB"}},
		{"12345ABC2345678BCD3456789CDE98765", []string{"1234", "5ABC", "234567", "8BCD", "345678", "9CDE9", "8765"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, SplitForCode128Text(tt.input))
		})
	}
}

func TestSplitForCode128_Modes(t *testing.T) {
	blocks := SplitForCode128("12345")
	require.Len(t, blocks, 2)
	assert.Equal(t, Block{Mode: ModeNumeric, Text: "1234"}, blocks[0])
	assert.Equal(t, Block{Mode: ModeAlphanumeric, Text: "5"}, blocks[1])

	blocks = SplitForCode128("AAA12345")
	require.Len(t, blocks, 2)
	assert.Equal(t, ModeAlphanumeric, blocks[0].Mode)
	assert.Equal(t, ModeNumeric, blocks[1].Mode)
}

func TestSplitForCode128_Empty(t *testing.T) {
	assert.Empty(t, SplitForCode128(""))
}

func TestSplitForCode128_Properties(t *testing.T) {
	inputs := []string{
		"0", "00", "007", "A", "A1", "A12", "1A", "12A", "123A", "1234A",
		"A123456", "A1234567", "AB12CD", "AB1234CD", "AB123456CD", "AB1234567CD",
		"9999999999", "X0000000000Y", "12-34-56", "HELLO WORLD 2024", "{}{1234}",
		"1A2B3C4D5E6F", "000000000000000000000000000000",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			blocks := SplitForCode128(input)
			require.NotEmpty(t, blocks)

			var rebuilt strings.Builder
			for i, block := range blocks {
				require.NotEmpty(t, block.Text)
				rebuilt.WriteString(block.Text)

				if i > 0 {
					assert.NotEqual(t, blocks[i-1].Mode, block.Mode, "adjacent blocks share a mode")
				}

				if block.Mode == ModeNumeric {
					assert.Zero(t, len(block.Text)%2, "numeric block %q has odd length", block.Text)
					for k := 0; k < len(block.Text); k++ {
						assert.True(t, isDigit(block.Text[k]))
					}
				}
			}
			assert.Equal(t, input, rebuilt.String())
		})
	}
}

func TestCode128ForXprinter(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"AB", "\x04{BAB"},
		{"12", "\x03{C\x0c"},
		{"123456789", "\x09{C\x0c\x22\x38\x4e{B9"},
		{"1234ABC", "\x09{C\x0c\x22{BABC"},
		{"ABC1234", "\x09{BABC{C\x0c\x22"},
		{"AAA123456BBB", "\x0f{BAAA{C\x0c\x22\x38{BBBB"},
		{"12345ABC2345678BCD3456789CDE98765", "\x25{C\x0c\x22{B5ABC{C\x17\x2d\x43{B8BCD{C\x22\x38\x4e{B9CDE9{C\x57\x41"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			data, err := Code128ForXprinter(tt.input)
			require.NoError(t, err)
			assert.Equal(t, []byte(tt.expected), data)
		})
	}
}

func TestRenderXprinter_Pure(t *testing.T) {
	blocks := SplitForCode128("AAA123456BBB")
	first, err := RenderXprinter(blocks)
	require.NoError(t, err)
	second, err := RenderXprinter(blocks)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int(first[0]), len(first)-1)
}

func TestRenderXprinter_EscapesShift(t *testing.T) {
	data, err := Code128ForXprinter("A{")
	require.NoError(t, err)
	assert.Equal(t, []byte("\x05{BA{{"), data)
}

func TestRenderXprinter_LengthByteLimit(t *testing.T) {
	// one alphanumeric block: "{B" plus the characters
	fits := []Block{{Mode: ModeAlphanumeric, Text: strings.Repeat("A", 253)}}
	data, err := RenderXprinter(fits)
	require.NoError(t, err)
	assert.Equal(t, byte(255), data[0])
	assert.Len(t, data, 256)

	tooLong := []Block{{Mode: ModeAlphanumeric, Text: strings.Repeat("A", 254)}}
	data, err = RenderXprinter(tooLong)
	assert.Nil(t, data)
	assert.ErrorIs(t, err, ErrBarcodeTooLong)

	_, err = Code128ForXprinter(strings.Repeat("{", 200))
	assert.ErrorIs(t, err, ErrBarcodeTooLong)
}

func TestCode128Command(t *testing.T) {
	cmd, err := Code128Command("1234ABC", DefaultBarcodeOptions())
	require.NoError(t, err)

	expected := []byte{
		0x1D, 0x68, 162, // GS h
		0x1D, 0x77, 3, // GS w
		0x1D, 0x48, 2, // GS H
		0x1D, 0x66, 0, // GS f
		0x1D, 0x6B, 0x49, // GS k I
	}
	expected = append(expected, []byte("\x09{C\x0c\x22{BABC")...)
	assert.Equal(t, expected, cmd)
}

func TestCode128Command_Errors(t *testing.T) {
	_, err := Code128Command("", DefaultBarcodeOptions())
	assert.ErrorIs(t, err, ErrEmptyBarcode)

	_, err = Code128Command("ABC\x01", DefaultBarcodeOptions())
	assert.ErrorIs(t, err, ErrInvalidBarcodeData)

	_, err = Code128Command(strings.Repeat("AB", 200), DefaultBarcodeOptions())
	assert.ErrorIs(t, err, ErrBarcodeTooLong)

	opts := DefaultBarcodeOptions()
	opts.Width = 9
	_, err = Code128Command("ABC", opts)
	assert.ErrorIs(t, err, ErrInvalidBarcodeOptions)

	opts = DefaultBarcodeOptions()
	opts.Height = 0
	_, err = Code128Command("ABC", opts)
	assert.ErrorIs(t, err, ErrInvalidBarcodeOptions)
}

func TestCode128Command_PackedFitsLimit(t *testing.T) {
	// 400 digits pack into 200 bytes plus one mode switch
	cmd, err := Code128Command(strings.Repeat("12", 200), DefaultBarcodeOptions())
	require.NoError(t, err)
	assert.Equal(t, byte(202), cmd[15])
}
