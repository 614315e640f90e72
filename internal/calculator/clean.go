package calculator

import (
	"math"
	"strconv"

	"stockpipe/internal/model"
	"stockpipe/internal/pipeerr"
)

// FillMissing fills NaN gaps in every column in place: forward fill, then
// backward fill, then linear interpolation. The order is fixed so results
// are reproducible.
func FillMissing(f *model.Frame) {
	for _, c := range f.Columns() {
		col := f.Column(c)
		forwardFill(col)
		backwardFill(col)
		interpolate(col)
	}
}

func forwardFill(vals []float64) {
	last := math.NaN()
	for i, v := range vals {
		if math.IsNaN(v) {
			vals[i] = last
		} else {
			last = v
		}
	}
}

func backwardFill(vals []float64) {
	next := math.NaN()
	for i := len(vals) - 1; i >= 0; i-- {
		if math.IsNaN(vals[i]) {
			vals[i] = next
		} else {
			next = vals[i]
		}
	}
}

// interpolate fills interior gaps linearly by position and holds the last
// known value over trailing gaps. Leading gaps stay NaN.
func interpolate(vals []float64) {
	prev := -1
	for i, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		if prev >= 0 && i-prev > 1 {
			step := (v - vals[prev]) / float64(i-prev)
			for j := prev + 1; j < i; j++ {
				vals[j] = vals[prev] + step*float64(j-prev)
			}
		}
		prev = i
	}
	if prev >= 0 {
		for j := prev + 1; j < len(vals); j++ {
			vals[j] = vals[prev]
		}
	}
}

// SelectColumns keeps only Open, High, Low, Close and Volume.
func SelectColumns(f *model.Frame) (*model.Frame, error) {
	out, err := f.Select(model.OHLCVColumns...)
	if err != nil {
		return nil, pipeerr.Wrap(pipeerr.KindPipeline, err, "select columns")
	}
	return out, nil
}

// round2 rounds the exact binary value to two places, ties to even, so
// 0.125 becomes 0.12 and 2.675 (stored just below the tie) becomes 2.67.
func round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	if err != nil {
		return v
	}
	return r
}

// AddDerived appends "Price Change" (Close-Open) and "Daily Range" (High-Low),
// both rounded to two decimals.
func AddDerived(f *model.Frame) error {
	open, high, low, cl := f.Column(model.ColOpen), f.Column(model.ColHigh), f.Column(model.ColLow), f.Column(model.ColClose)
	if open == nil || high == nil || low == nil || cl == nil {
		return pipeerr.New(pipeerr.KindPipeline, "derived columns need Open, High, Low and Close")
	}
	change := make([]float64, f.Len())
	rng := make([]float64, f.Len())
	for i := range change {
		change[i] = round2(cl[i] - open[i])
		rng[i] = round2(high[i] - low[i])
	}
	if err := f.SetColumn(model.ColPriceChange, change); err != nil {
		return err
	}
	return f.SetColumn(model.ColDailyRange, rng)
}

// DropNoTrade removes rows whose Volume is not positive.
func DropNoTrade(f *model.Frame) *model.Frame {
	vol := f.Column(model.ColVolume)
	return f.Filter(func(i int) bool { return vol[i] > 0 })
}

// Clean runs the full cleaning sequence on a raw frame and returns the
// enriched result. The input's columns are filled in place.
func Clean(raw *model.Frame) (*model.Frame, error) {
	FillMissing(raw)
	f, err := SelectColumns(raw)
	if err != nil {
		return nil, err
	}
	for _, c := range model.OHLCVColumns {
		if f.HasMissing(c) {
			return nil, pipeerr.New(pipeerr.KindPipeline, "column %q has no values to fill from", c)
		}
	}
	if err := AddDerived(f); err != nil {
		return nil, err
	}
	return DropNoTrade(f), nil
}
