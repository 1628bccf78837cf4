package currency

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/invoice-flow/internal/common"
)

func TestConverter_Convert(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		rate   string
		want   string
	}{
		{name: "default rate", amount: "250", rate: "0", want: "1435"},
		{name: "rounds to cents", amount: "19.99", rate: "5.74", want: "114.74"},
		{name: "custom rate", amount: "100", rate: "5.1234", want: "512.34"},
		{name: "zero amount", amount: "0", rate: "5.74", want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewConverter("", decimal.RequireFromString(tt.rate))
			require.NoError(t, err)

			got := c.Convert(decimal.RequireFromString(tt.amount))
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s want %s", got, tt.want)
		})
	}
}

func TestNewConverter(t *testing.T) {
	c, err := NewConverter(" eur ", decimal.NewFromFloat(1.1))
	require.NoError(t, err)
	assert.Equal(t, "EUR", c.Target())
	assert.Equal(t, "1.1", c.Rate().String())

	_, err = NewConverter("BRL", decimal.NewFromInt(-1))
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInvalidConfig)

	d := Default()
	assert.Equal(t, DefaultTarget, d.Target())
	assert.Equal(t, DefaultRate, d.Rate().String())
}
