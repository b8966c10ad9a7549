package report

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Placeholder renders an absent value.
const Placeholder = "-"

// FormatDecimal renders a value with thousands separators and two decimal
// places, e.g. "1,234,500.00". Nil renders as the placeholder.
func FormatDecimal(d *decimal.Decimal) string {
	if d == nil {
		return Placeholder
	}
	return groupThousands(d.StringFixed(2))
}

// FormatPercent renders a percentage like "23.45%", or the placeholder.
func FormatPercent(d *decimal.Decimal) string {
	if d == nil {
		return Placeholder
	}
	return groupThousands(d.StringFixed(2)) + "%"
}

// groupThousands inserts commas into the integer part of a fixed-point
// string such as "-1234500.00".
func groupThousands(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign = "-"
		s = s[1:]
	}
	intPart, fracPart, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	out := sign + b.String()
	if fracPart != "" {
		out += "." + fracPart
	}
	return out
}
