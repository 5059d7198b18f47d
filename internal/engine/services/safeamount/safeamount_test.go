package safeamount

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestRoundTiered(t *testing.T) {
	tests := []struct {
		in   string
		dir  Direction
		want string
	}{
		{"6.0", Down, "5"},
		{"6.0", Up, "8"},
		{"2.99", Down, "0"},
		{"3", Down, "3"},
		{"4.999999", Down, "3"},
		{"7.5", Down, "5"},
		{"8", Down, "8"},
		{"12.72", Down, "12"},
		{"0.4", Up, "3"},
		{"3.000001", Up, "5"},
		{"5", Up, "5"},
		{"7.01", Up, "8"},
		{"8.000001", Up, "9"},
		{"12.72", Up, "13"},
	}
	for _, tt := range tests {
		t.Run(tt.in+"_"+tt.dir.String(), func(t *testing.T) {
			got := Round(d(tt.in), 6, tt.dir)
			require.True(t, got.Amount.Equal(d(tt.want)), "got %s", got.Amount)
		})
	}
}

func TestDeleverageRepayScenario(t *testing.T) {
	got := Round(d("6.0"), 6, Down)
	require.True(t, got.Amount.Equal(d("5")))
	require.True(t, got.Dust.Equal(d("1")))
	require.Equal(t, uint64(5_000_000), got.Raw(6))
}

func TestLeverageBorrowScenario(t *testing.T) {
	got := Round(d("6.0"), 6, Up)
	require.True(t, got.Amount.Equal(d("8")))
	require.True(t, got.Dust.Equal(d("2")))
}

func TestRoundProperties(t *testing.T) {
	for i := 1; i <= 2000; i++ {
		x := decimal.New(int64(i*7919%20000), -3) // 0.000 .. 19.999
		if x.Sign() == 0 {
			continue
		}

		down := Round(x, 6, Down)
		require.True(t, down.Amount.LessThanOrEqual(x), "down(%s)=%s", x, down.Amount)
		if x.GreaterThanOrEqual(d("8")) {
			require.True(t, down.Amount.Equal(x.Floor()))
		}

		up := Round(x, 6, Up)
		require.True(t, up.Amount.GreaterThanOrEqual(x), "up(%s)=%s", x, up.Amount)
		if x.GreaterThanOrEqual(d("8")) {
			require.True(t, up.Amount.Equal(x.Ceil()))
		}

		require.True(t, down.Dust.Equal(x.Sub(down.Amount)))
		require.True(t, up.Dust.Equal(up.Amount.Sub(x)))
	}
}

func TestRoundNativePrecision(t *testing.T) {
	down := Round(d("1.1234567891"), 9, Down)
	require.True(t, down.Amount.Equal(d("1.123456789")))
	require.True(t, down.Dust.Equal(d("0.0000000001")))

	up := Round(d("1.1234567891"), 9, Up)
	require.True(t, up.Amount.Equal(d("1.12345679")))

	exact := Round(d("4"), 9, Down)
	require.True(t, exact.Amount.Equal(d("4")))
	require.True(t, exact.Dust.IsZero())
}

func TestRoundNonPositive(t *testing.T) {
	got := Round(decimal.Zero, 6, Up)
	require.True(t, got.Amount.IsZero())
	got = Round(d("-1"), 6, Down)
	require.True(t, got.Amount.IsZero())
	require.True(t, got.Dust.Equal(d("1")))
}
