package collector

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"stockpipe/internal/model"
	"stockpipe/internal/pipeerr"
)

// ErrNoData is returned when a source answers with an empty series.
var ErrNoData = errors.New("no data returned, possible invalid ticker")

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Collector fetches one ticker from a Source with bounded retry.
type Collector struct {
	Source  Source
	Symbol  string
	Retries int
	Delay   time.Duration
	Sleep   SleepFunc
}

// NewCollector creates a new Collector.
func NewCollector(source Source, symbol string, retries int, delay time.Duration) *Collector {
	return &Collector{Source: source, Symbol: symbol, Retries: retries, Delay: delay, Sleep: sleepContext}
}

// Collect makes up to Retries attempts, waiting Delay between them. An empty
// series counts as a failed attempt. When every attempt fails the frame is nil
// and the error has kind KindAPIData; callers must check before continuing.
func (c *Collector) Collect(ctx context.Context) (*model.Frame, error) {
	sleep := c.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var lastErr error
	for attempt := 1; attempt <= c.Retries; attempt++ {
		frame, err := c.Source.FetchIntraday(ctx, c.Symbol)
		if err == nil && (frame == nil || frame.Len() == 0) {
			err = ErrNoData
		}
		if err == nil {
			log.Info().
				Str("ticker", c.Symbol).
				Str("source", c.Source.Name()).
				Int("rows", frame.Len()).
				Int("attempt", attempt).
				Msg("fetched intraday data")
			return frame, nil
		}

		lastErr = err
		log.Warn().Err(err).Str("ticker", c.Symbol).Int("attempt", attempt).Msg("fetch attempt failed")
		if ctx.Err() != nil {
			break
		}
		if attempt < c.Retries {
			if err := sleep(ctx, c.Delay); err != nil {
				lastErr = err
				break
			}
		}
	}

	log.Error().Err(lastErr).Str("ticker", c.Symbol).Int("retries", c.Retries).
		Msg("failed to fetch data after multiple retries")
	return nil, pipeerr.Wrap(pipeerr.KindAPIData, lastErr, "no data for %s", c.Symbol)
}

// MockSource returns scripted results for development and testing.
// Call i answers with Frames[i] and Errs[i]; past the end it repeats the last entry.
type MockSource struct {
	Frames []*model.Frame
	Errs   []error
	Calls  int
}

func (m *MockSource) Name() string { return "mock" }

func (m *MockSource) FetchIntraday(_ context.Context, _ string) (*model.Frame, error) {
	i := m.Calls
	m.Calls++
	var frame *model.Frame
	var err error
	if len(m.Frames) > 0 {
		frame = m.Frames[min(i, len(m.Frames)-1)]
	}
	if len(m.Errs) > 0 {
		err = m.Errs[min(i, len(m.Errs)-1)]
	}
	return frame, err
}

// MockFrame generates count one-minute bars starting at start around basePrice.
func MockFrame(symbol string, basePrice float64, start time.Time, count int) *model.Frame {
	bars := make([]model.OHLCV, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.OHLCV{
			Time:   start.Add(time.Duration(i) * time.Minute),
			Open:   math.Round(p*0.999*100) / 100,
			High:   math.Round(p*1.005*100) / 100,
			Low:    math.Round(p*0.995*100) / 100,
			Close:  math.Round(p*100) / 100,
			Volume: 1000,
		}
	}
	frame, _ := model.FrameFromBars(bars)
	frame.Symbol = symbol
	return frame
}
