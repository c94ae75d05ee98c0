package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testOutput(buf *bytes.Buffer) *Output {
	return &Output{writer: buf, colorEnabled: false}
}

func TestTableAlignsColumns(t *testing.T) {
	var buf bytes.Buffer
	out := testOutput(&buf)

	table := NewTable(out, "Symbol", "Price")
	table.AddRow("AAPL", "191.50")
	table.AddRow("F", "12.10")
	table.Render()

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	assert.Len(t, lines, 4) // header, separator, two rows
	assert.Contains(t, string(lines[0]), "Symbol")
	assert.Contains(t, string(lines[2]), "AAPL")
}

func TestStripANSI(t *testing.T) {
	colored := ColorGreen + "up" + ColorReset
	assert.Equal(t, "up", stripANSI(colored))
	assert.Equal(t, "plain", stripANSI("plain"))
}

func TestFormatPnLSign(t *testing.T) {
	var buf bytes.Buffer
	out := testOutput(&buf)

	assert.Equal(t, "+$280.00", out.FormatPnL(280))
	assert.Equal(t, "$-400.00", out.FormatPnL(-400))
	assert.Equal(t, "$0.00", out.FormatPnL(0))
}

func TestColoredStringDisabled(t *testing.T) {
	var buf bytes.Buffer
	out := testOutput(&buf)
	assert.Equal(t, "text", out.Green("text"))

	out.colorEnabled = true
	assert.Equal(t, ColorGreen+"text"+ColorReset, out.Green("text"))
}
