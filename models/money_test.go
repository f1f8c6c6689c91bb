package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	m, err := NewMoney("532.00")
	require.NoError(t, err)
	assert.Equal(t, "532.00", m.String())

	_, err = NewMoney("not-a-number")
	assert.Error(t, err)
}

func TestMoneyArithmetic(t *testing.T) {
	a := MustMoney("100.50")
	b := MustMoney("49.50")

	assert.Equal(t, "150.00", a.Add(b).String())
	assert.Equal(t, "51.00", a.Sub(b).String())
	assert.Equal(t, "-100.50", a.Neg().String())
	assert.Equal(t, "201.00", a.MulInt(2).String())
}

func TestMoneyMulRateRoundsOnce(t *testing.T) {
	// 200 x 0.85 is exact; rounding is a no-op
	m := MustMoney("200.00").MulRate(decimal.RequireFromString("0.85"))
	assert.Equal(t, "170.00", m.RoundMinor().String())

	// 33.33 x 0.85 = 28.3305; raw value keeps full precision until RoundMinor
	raw := MustMoney("33.33").MulRate(decimal.RequireFromString("0.85"))
	assert.Equal(t, "28.3305", raw.Decimal().String())
	assert.Equal(t, "28.33", raw.RoundMinor().String())
}

func TestMoneyRoundMinorHalfUp(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"10.005", "10.01"},
		{"10.004", "10.00"},
		{"10.995", "11.00"},
		{"-10.005", "-10.01"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, MustMoney(tc.in).RoundMinor().String(), "rounding %s", tc.in)
	}
}

func TestMoneyComparisons(t *testing.T) {
	a := MustMoney("10.00")
	b := MustMoney("20.00")

	assert.Equal(t, -1, a.Cmp(b))
	assert.Equal(t, 1, b.Cmp(a))
	assert.True(t, a.Equal(MustMoney("10")))
	assert.True(t, Zero.IsZero())
	assert.True(t, a.IsPositive())
	assert.True(t, a.Neg().IsNegative())
}

func TestMoneyJSON(t *testing.T) {
	m := MustMoney("99.90")
	bs, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `"99.90"`, string(bs))

	var quoted Money
	require.NoError(t, json.Unmarshal([]byte(`"12.34"`), &quoted))
	assert.Equal(t, "12.34", quoted.String())

	var bare Money
	require.NoError(t, json.Unmarshal([]byte(`12.34`), &bare))
	assert.Equal(t, "12.34", bare.String())
}
