package utils

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"12.3456", "12.35"},
		{"-5", "-5.00"},
		{"0", "0.00"},
		{"7.1", "7.10"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatAmount(decimal.RequireFromString(tt.in)))
		})
	}
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "MARIO ROSSI", DisplayName("  Mario Rossi "))
}
