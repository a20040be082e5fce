package invoice

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatCurrency(t *testing.T) {
	tests := []struct {
		name     string
		amount   decimal.Decimal
		expected string
	}{
		{"zero is suppressed", decimal.Zero, ""},
		{"integral", decimal.NewFromInt(1000), "Rp 1,000"},
		{"fractional", decimal.NewFromFloat(1000.5), "Rp 1,000.50"},
		{"small integral", decimal.NewFromInt(7), "Rp 7"},
		{"millions", decimal.NewFromInt(12500000), "Rp 12,500,000"},
		{"integral with trailing zero decimals", decimal.RequireFromString("2500.00"), "Rp 2,500"},
		{"rounds to two decimals", decimal.RequireFromString("1234.567"), "Rp 1,234.57"},
		{"negative", decimal.NewFromInt(-1500), "Rp -1,500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatCurrency(tt.amount))
		})
	}
}

func TestFormatQuantity(t *testing.T) {
	tests := []struct {
		q        decimal.Decimal
		expected string
	}{
		{decimal.NewFromInt(3), "3"},
		{decimal.RequireFromString("3.0"), "3"},
		{decimal.NewFromFloat(2.5), "2.5"},
		{decimal.RequireFromString("0.25"), "0.25"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatQuantity(tt.q))
		})
	}
}
