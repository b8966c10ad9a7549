package report

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestFormatDecimal(t *testing.T) {
	tests := []struct {
		name  string
		input *decimal.Decimal
		want  string
	}{
		{"nil", nil, "-"},
		{"zero", dec("0"), "0.00"},
		{"small", dec("12.3"), "12.30"},
		{"thousands", dec("1234500"), "1,234,500.00"},
		{"millions", dec("987654321.987"), "987,654,321.99"},
		{"negative", dec("-1234500"), "-1,234,500.00"},
		{"exactly three digits", dec("999"), "999.00"},
		{"four digits", dec("1000"), "1,000.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDecimal(tt.input))
		})
	}
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "-", FormatPercent(nil))
	assert.Equal(t, "23.45%", FormatPercent(dec("23.45")))
	assert.Equal(t, "-8.00%", FormatPercent(dec("-8")))
	assert.Equal(t, "1,250.00%", FormatPercent(dec("1250")))
}
