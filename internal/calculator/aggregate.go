package calculator

import (
	"time"

	"stockpipe/internal/model"
	"stockpipe/internal/pipeerr"
)

// DailyColumns is the column order of a daily summary.
var DailyColumns = []string{model.ColOpen, model.ColClose, model.ColHigh, model.ColLow, model.ColVolume}

// ResampleDaily groups rows by calendar day (in each timestamp's location):
// Open first, Close last, High max, Low min, Volume sum. Days without rows
// are not emitted. Input must be time-ordered.
func ResampleDaily(f *model.Frame) (*model.Frame, error) {
	bars, err := f.Bars()
	if err != nil {
		return nil, pipeerr.Wrap(pipeerr.KindPipeline, err, "resample daily")
	}
	out, err := model.FrameFromBars(aggregateDaily(bars), DailyColumns...)
	if err != nil {
		return nil, err
	}
	out.Symbol = f.Symbol
	return out, nil
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func aggregateDaily(bars []model.OHLCV) []model.OHLCV {
	if len(bars) == 0 {
		return nil
	}
	var daily []model.OHLCV
	var day model.OHLCV
	var dayStarted bool

	for _, b := range bars {
		key := dayOf(b.Time)
		if !dayStarted || !key.Equal(day.Time) {
			if dayStarted {
				daily = append(daily, day)
			}
			day = model.OHLCV{Time: key, Open: b.Open, High: b.High, Low: b.Low, Close: b.Close, Volume: b.Volume}
			dayStarted = true
			continue
		}
		if b.High > day.High {
			day.High = b.High
		}
		if b.Low < day.Low {
			day.Low = b.Low
		}
		day.Close = b.Close
		day.Volume += b.Volume
	}
	daily = append(daily, day)
	return daily
}
