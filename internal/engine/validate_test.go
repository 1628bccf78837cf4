package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/invoice-flow/internal/common"
)

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "canonical", input: "01_01_2024", want: "01_01_2024"},
		{name: "surrounding whitespace", input: " 31_12_2023\n", want: "31_12_2023"},
		{name: "slash repair", input: "15/10/2025", want: "15_10_2025"},
		{name: "slash repair pads day and month", input: "5/3/2025", want: "05_03_2025"},
		{name: "two digit year is rejected", input: "5/3/25", wantErr: true},
		{name: "impossible calendar date", input: "31/02/2024", wantErr: true},
		{name: "too many slash parts", input: "1/2/3/2024", wantErr: true},
		{name: "month name", input: "January 5, 2024", wantErr: true},
		{name: "iso date", input: "2024-01-05", wantErr: true},
		{name: "unpadded canonical", input: "1_1_2024", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeDate(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, common.ErrInvalidDate)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCleanAmount(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "plain", input: "250", want: "250"},
		{name: "currency symbol and thousands separator", input: "$1,234.56 USD", want: "1234.56"},
		{name: "minus sign is stripped", input: "-42.10", want: "42.1"},
		{name: "spaces", input: " 1 000.00 ", want: "1000"},
		{name: "no digits", input: "USD", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "two decimal points", input: "1.2.3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CleanAmount(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, common.ErrInvalidAmount)
				return
			}
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s want %s", got, tt.want)
			assert.False(t, got.IsNegative())
		})
	}
}

func TestCheckCurrency(t *testing.T) {
	assert.True(t, CheckCurrency("USD", testLogger()))
	assert.True(t, CheckCurrency(" usd ", testLogger()))
	assert.False(t, CheckCurrency("EUR", testLogger()))
	assert.False(t, CheckCurrency("", testLogger()))
}
