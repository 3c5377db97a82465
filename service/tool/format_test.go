package tool

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatCurrency(t *testing.T) {
	assert.Equal(t, "N/A", formatCurrency(nil))
	assert.Equal(t, "$950", formatCurrency(fptr(950)))
	assert.Equal(t, "$1,000", formatCurrency(fptr(1000)))
	assert.Equal(t, "$1,234,567.89", formatCurrency(fptr(1234567.89)))
	assert.Equal(t, "$-2,500,000", formatCurrency(fptr(-2500000)))
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "N/A", formatPercent(nil))
	assert.Equal(t, "12.5%", formatPercent(fptr(12.5)))
	assert.Equal(t, "8%", formatPercent(fptr(8)))
}

func TestValueOrNA(t *testing.T) {
	assert.Equal(t, "N/A", valueOrNA(""))
	assert.Equal(t, "Austin, TX", valueOrNA("Austin, TX"))
}
