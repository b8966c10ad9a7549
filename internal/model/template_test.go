package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFallbacks(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty", "", nil},
		{"single", "Revenue", []string{"Revenue"}},
		{"multiple", "Revenue\nSalesAndRevenue", []string{"Revenue", "SalesAndRevenue"}},
		{"blank lines and whitespace", "  Revenue  \n\n\tSales\n", []string{"Revenue", "Sales"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseFallbacks(tt.input))
		})
	}
}

func TestJoinFallbacks_RoundTrip(t *testing.T) {
	codes := []string{"Revenue", "SalesAndRevenue", "RevenueFromContractsWithCustomers"}
	assert.Equal(t, codes, ParseFallbacks(JoinFallbacks(codes)))
}
