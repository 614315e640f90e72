package model

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"time"
)

// Column names shared by every stage of the pipeline.
const (
	ColDatetime    = "Datetime"
	ColOpen        = "Open"
	ColHigh        = "High"
	ColLow         = "Low"
	ColClose       = "Close"
	ColVolume      = "Volume"
	ColDividends   = "Dividends"
	ColSplits      = "Stock Splits"
	ColPriceChange = "Price Change"
	ColDailyRange  = "Daily Range"
)

// OHLCVColumns are the columns retained by cleaning.
var OHLCVColumns = []string{ColOpen, ColHigh, ColLow, ColClose, ColVolume}

// QuoteColumns is the layout of a cleaned and enriched table.
var QuoteColumns = []string{ColOpen, ColHigh, ColLow, ColClose, ColVolume, ColPriceChange, ColDailyRange}

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Frame is a time-indexed table of float64 columns. Missing values are NaN.
type Frame struct {
	Symbol  string
	Index   []time.Time
	columns []string
	data    map[string][]float64
}

// NewFrame creates an empty frame over the given index.
func NewFrame(index []time.Time) *Frame {
	return &Frame{Index: index, data: make(map[string][]float64)}
}

// Len returns the number of rows.
func (f *Frame) Len() int { return len(f.Index) }

// Columns returns the column names in order.
func (f *Frame) Columns() []string {
	out := make([]string, len(f.columns))
	copy(out, f.columns)
	return out
}

// Has reports whether the column exists.
func (f *Frame) Has(name string) bool {
	_, ok := f.data[name]
	return ok
}

// Column returns the backing slice of a column, or nil if absent.
func (f *Frame) Column(name string) []float64 { return f.data[name] }

// SetColumn adds or replaces a column. New columns are appended to the column order.
func (f *Frame) SetColumn(name string, values []float64) error {
	if len(values) != len(f.Index) {
		return fmt.Errorf("column %q has %d values, index has %d", name, len(values), len(f.Index))
	}
	if _, ok := f.data[name]; !ok {
		f.columns = append(f.columns, name)
	}
	f.data[name] = values
	return nil
}

// Select returns a new frame holding only the named columns, in that order.
func (f *Frame) Select(names ...string) (*Frame, error) {
	out := NewFrame(f.Index)
	out.Symbol = f.Symbol
	for _, n := range names {
		col, ok := f.data[n]
		if !ok {
			return nil, fmt.Errorf("column %q not found", n)
		}
		if err := out.SetColumn(n, col); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Filter returns a new frame with the rows for which keep returns true.
func (f *Frame) Filter(keep func(i int) bool) *Frame {
	var rows []int
	for i := range f.Index {
		if keep(i) {
			rows = append(rows, i)
		}
	}
	return f.take(rows)
}

// SortByTime orders rows by ascending timestamp.
func (f *Frame) SortByTime() {
	rows := make([]int, len(f.Index))
	for i := range rows {
		rows[i] = i
	}
	sort.SliceStable(rows, func(a, b int) bool { return f.Index[rows[a]].Before(f.Index[rows[b]]) })
	sorted := f.take(rows)
	f.Index = sorted.Index
	f.data = sorted.data
}

// HasMissing reports whether the column holds any NaN.
func (f *Frame) HasMissing(name string) bool {
	for _, v := range f.data[name] {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// Bars converts the OHLCV columns into bars. The frame must hold all of them.
func (f *Frame) Bars() ([]OHLCV, error) {
	for _, c := range OHLCVColumns {
		if !f.Has(c) {
			return nil, fmt.Errorf("column %q not found", c)
		}
	}
	open, high, low, cl, vol := f.data[ColOpen], f.data[ColHigh], f.data[ColLow], f.data[ColClose], f.data[ColVolume]
	bars := make([]OHLCV, len(f.Index))
	for i, ts := range f.Index {
		bars[i] = OHLCV{Time: ts, Open: open[i], High: high[i], Low: low[i], Close: cl[i], Volume: vol[i]}
	}
	return bars, nil
}

// FrameFromBars builds a frame with the given OHLCV columns, in that order.
func FrameFromBars(bars []OHLCV, columns ...string) (*Frame, error) {
	if len(columns) == 0 {
		columns = OHLCVColumns
	}
	index := make([]time.Time, len(bars))
	for i, b := range bars {
		index[i] = b.Time
	}
	f := NewFrame(index)
	for _, c := range columns {
		vals := make([]float64, len(bars))
		for i, b := range bars {
			switch c {
			case ColOpen:
				vals[i] = b.Open
			case ColHigh:
				vals[i] = b.High
			case ColLow:
				vals[i] = b.Low
			case ColClose:
				vals[i] = b.Close
			case ColVolume:
				vals[i] = b.Volume
			default:
				return nil, fmt.Errorf("column %q is not an OHLCV column", c)
			}
		}
		if err := f.SetColumn(c, vals); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (f *Frame) take(rows []int) *Frame {
	index := make([]time.Time, len(rows))
	for j, i := range rows {
		index[j] = f.Index[i]
	}
	out := NewFrame(index)
	out.Symbol = f.Symbol
	for _, c := range f.columns {
		src := f.data[c]
		vals := make([]float64, len(rows))
		for j, i := range rows {
			vals[j] = src[i]
		}
		out.columns = append(out.columns, c)
		out.data[c] = vals
	}
	return out
}

var tickerFile = regexp.MustCompile(`([A-Z]+)_stock_data\.csv`)

// TickerFromFilename extracts the ticker from a "<TICKER>_stock_data.csv" name.
func TickerFromFilename(name string) string {
	m := tickerFile.FindStringSubmatch(name)
	if m == nil {
		return "Unknown"
	}
	return m[1]
}
