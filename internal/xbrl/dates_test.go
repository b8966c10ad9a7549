package xbrl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string // "" means nil
	}{
		{"plain date", "2024-12-31", "2024-12-31"},
		{"rfc3339", "2024-12-31T10:30:00Z", "2024-12-31"},
		{"datetime no zone", "2024-12-31T10:30:00", "2024-12-31"},
		{"surrounding whitespace", "  2024-06-30  ", "2024-06-30"},
		{"empty", "", ""},
		{"garbage", "not-a-date", ""},
		{"wrong order", "31-12-2024", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseDate(tt.input)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Format("2006-01-02"))
		})
	}
}

func TestParseDate_TruncatesToUTCDate(t *testing.T) {
	got := ParseDate("2024-12-31T23:59:59+07:00")
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), *got)
}
