package model

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrame_SetColumnLength(t *testing.T) {
	f := NewFrame(make([]time.Time, 2))
	assert.Error(t, f.SetColumn("x", []float64{1}))
	require.NoError(t, f.SetColumn("x", []float64{1, 2}))
	require.NoError(t, f.SetColumn("x", []float64{3, 4}))
	assert.Equal(t, []string{"x"}, f.Columns())
}

func TestFrame_SortByTime(t *testing.T) {
	t0 := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
	f := NewFrame([]time.Time{t0.Add(2 * time.Minute), t0, t0.Add(time.Minute)})
	require.NoError(t, f.SetColumn(ColClose, []float64{3, 1, 2}))

	f.SortByTime()

	assert.Equal(t, []time.Time{t0, t0.Add(time.Minute), t0.Add(2 * time.Minute)}, f.Index)
	assert.Equal(t, []float64{1, 2, 3}, f.Column(ColClose))
}

func TestFrame_SelectAndFilter(t *testing.T) {
	f := NewFrame(make([]time.Time, 3))
	f.Symbol = "AAPL"
	require.NoError(t, f.SetColumn("a", []float64{1, 2, 3}))
	require.NoError(t, f.SetColumn("b", []float64{4, math.NaN(), 6}))

	sel, err := f.Select("b")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, sel.Columns())
	assert.Equal(t, "AAPL", sel.Symbol)
	assert.True(t, sel.HasMissing("b"))

	_, err = f.Select("zz")
	assert.Error(t, err)

	a := f.Column("a")
	odd := f.Filter(func(i int) bool { return int(a[i])%2 == 1 })
	assert.Equal(t, []float64{1, 3}, odd.Column("a"))
	assert.Equal(t, []float64{4, 6}, odd.Column("b"))
}

func TestFrame_BarsRoundTrip(t *testing.T) {
	t0 := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
	bars := []OHLCV{{Time: t0, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10}}

	f, err := FrameFromBars(bars)
	require.NoError(t, err)
	assert.Equal(t, OHLCVColumns, f.Columns())

	back, err := f.Bars()
	require.NoError(t, err)
	assert.Equal(t, bars, back)

	_, err = FrameFromBars(bars, ColPriceChange)
	assert.Error(t, err)
}

func TestTickerFromFilename(t *testing.T) {
	assert.Equal(t, "AAPL", TickerFromFilename("data/AAPL_stock_data.csv"))
	assert.Equal(t, "Unknown", TickerFromFilename("stock_data.csv"))
	assert.Equal(t, "Unknown", TickerFromFilename("aapl_stock_data.csv"))
}
