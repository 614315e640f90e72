package collector

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockpipe/internal/model"
	"stockpipe/internal/pipeerr"
)

var start = time.Date(2024, 1, 2, 9, 30, 0, 0, time.FixedZone("EST", -5*3600))

func noSleep(slept *[]time.Duration) SleepFunc {
	return func(_ context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return nil
	}
}

func TestCollect_AlwaysFailing(t *testing.T) {
	src := &MockSource{Errs: []error{errors.New("connection reset")}}
	var slept []time.Duration
	c := NewCollector(src, "AAPL", 3, 5*time.Second)
	c.Sleep = noSleep(&slept)

	frame, err := c.Collect(context.Background())

	assert.Nil(t, frame)
	assert.Equal(t, 3, src.Calls)
	assert.True(t, pipeerr.Is(err, pipeerr.KindAPIData))
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second}, slept)
}

func TestCollect_EmptyThenData(t *testing.T) {
	good := MockFrame("AAPL", 100, start, 5)
	empty := model.NewFrame(nil)
	src := &MockSource{Frames: []*model.Frame{empty, nil, good}, Errs: []error{nil, errors.New("timeout"), nil}}
	var slept []time.Duration
	c := NewCollector(src, "AAPL", 3, time.Second)
	c.Sleep = noSleep(&slept)

	frame, err := c.Collect(context.Background())

	require.NoError(t, err)
	assert.Same(t, good, frame)
	assert.Equal(t, 3, src.Calls)
	assert.Len(t, slept, 2)
}

func TestCollect_ZeroRetries(t *testing.T) {
	src := &MockSource{Frames: []*model.Frame{MockFrame("AAPL", 100, start, 1)}}
	c := NewCollector(src, "AAPL", 0, 0)

	frame, err := c.Collect(context.Background())

	assert.Nil(t, frame)
	assert.True(t, pipeerr.Is(err, pipeerr.KindAPIData))
	assert.Equal(t, 0, src.Calls)
}

func TestCollect_CancelledContextStops(t *testing.T) {
	src := &MockSource{Errs: []error{errors.New("boom")}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewCollector(src, "AAPL", 5, time.Hour)

	frame, err := c.Collect(ctx)

	assert.Nil(t, frame)
	assert.Error(t, err)
	assert.Equal(t, 1, src.Calls)
}

const chartFixture = `{"chart":{"result":[{
 "meta":{"symbol":"AAPL","gmtoffset":-18000,"timezone":"EST"},
 "timestamp":[1704205860,1704205800,1704205920],
 "indicators":{"quote":[{
   "open":[185.1,185.0,null],
   "high":[185.3,185.2,185.6],
   "low":[184.9,184.8,185.0],
   "close":[185.2,185.1,185.5],
   "volume":[1200,1000,0]}]}}],"error":null}}`

func TestYahooSource_FetchIntraday(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/AAPL", r.URL.Path)
		assert.Equal(t, "1m", r.URL.Query().Get("interval"))
		assert.Equal(t, "1d", r.URL.Query().Get("range"))
		w.Write([]byte(chartFixture))
	}))
	defer srv.Close()

	src := NewYahooSource("", time.Second)
	src.BaseURL = srv.URL

	frame, err := src.FetchIntraday(context.Background(), "AAPL")
	require.NoError(t, err)

	require.Equal(t, 3, frame.Len())
	for _, c := range model.OHLCVColumns {
		assert.True(t, frame.Has(c), c)
	}
	for i := 1; i < frame.Len(); i++ {
		assert.True(t, frame.Index[i].After(frame.Index[i-1]), "index must increase")
	}
	assert.Equal(t, "09:30", frame.Index[0].Format("15:04"))
	assert.Equal(t, 185.0, frame.Column(model.ColOpen)[0])
	assert.True(t, math.IsNaN(frame.Column(model.ColOpen)[2]))
	assert.Equal(t, 1000.0, frame.Column(model.ColVolume)[0])
}

func TestYahooSource_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
	}))
	defer srv.Close()

	src := NewYahooSource("", time.Second)
	src.BaseURL = srv.URL

	_, err := src.FetchIntraday(context.Background(), "ZZZZ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delisted")
}

func TestYahooSource_EmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":[{"meta":{},"timestamp":[],"indicators":{"quote":[{}]}}],"error":null}}`))
	}))
	defer srv.Close()

	src := NewYahooSource("", time.Second)
	src.BaseURL = srv.URL

	_, err := src.FetchIntraday(context.Background(), "AAPL")
	assert.ErrorIs(t, err, ErrNoData)
}

func TestYahooSource_SymbolMap(t *testing.T) {
	src := NewYahooSource("", 0)
	assert.Equal(t, "^GSPC", src.yahooSymbol("SPX500"))
	assert.Equal(t, "MSFT", src.yahooSymbol("MSFT"))
	assert.Equal(t, 30*time.Second, src.Client.Timeout)
}
