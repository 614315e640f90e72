package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"stockpipe/internal/model"
)

const yahooBaseURL = "https://query1.finance.yahoo.com"

// YahooSource implements Source using Yahoo Finance public API.
type YahooSource struct {
	BaseURL   string
	Client    *http.Client
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker
}

// NewYahooSource creates a Yahoo Finance source with optional proxy support.
// timeout bounds every request; zero means 30s.
func NewYahooSource(proxyURL string, timeout time.Duration) *YahooSource {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &YahooSource{
		BaseURL: yahooBaseURL,
		Client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		SymbolMap: map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
			"SP500":  "^GSPC",
		},
	}
}

func (s *YahooSource) Name() string { return "yahoo" }

func (s *YahooSource) yahooSymbol(symbol string) string {
	if mapped, ok := s.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol    string `json:"symbol"`
				GMTOffset int    `json:"gmtoffset"`
				Timezone  string `json:"timezone"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// value returns NaN for null or short series so gaps survive until cleaning.
func value(vals []*float64, i int) float64 {
	if i >= len(vals) || vals[i] == nil {
		return math.NaN()
	}
	return *vals[i]
}

// FetchIntraday requests interval=1m, range=1d. Null quotes become NaN.
func (s *YahooSource) FetchIntraday(ctx context.Context, symbol string) (*model.Frame, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1m&range=1d",
		s.BaseURL, url.PathEscape(s.yahooSymbol(symbol)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, string(body))
		}
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo: status %d", resp.StatusCode)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 ||
		len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, ErrNoData
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	loc := time.FixedZone(result.Meta.Timezone, result.Meta.GMTOffset)

	n := len(result.Timestamp)
	index := make([]time.Time, n)
	cols := map[string][]float64{
		model.ColOpen:   make([]float64, n),
		model.ColHigh:   make([]float64, n),
		model.ColLow:    make([]float64, n),
		model.ColClose:  make([]float64, n),
		model.ColVolume: make([]float64, n),
	}
	for i, ts := range result.Timestamp {
		index[i] = time.Unix(ts, 0).In(loc)
		cols[model.ColOpen][i] = value(quote.Open, i)
		cols[model.ColHigh][i] = value(quote.High, i)
		cols[model.ColLow][i] = value(quote.Low, i)
		cols[model.ColClose][i] = value(quote.Close, i)
		cols[model.ColVolume][i] = value(quote.Volume, i)
	}

	frame := model.NewFrame(index)
	frame.Symbol = symbol
	for _, c := range model.OHLCVColumns {
		if err := frame.SetColumn(c, cols[c]); err != nil {
			return nil, err
		}
	}
	// Corporate-action columns mirror the usual history layout; intraday they are zero.
	for _, c := range []string{model.ColDividends, model.ColSplits} {
		if err := frame.SetColumn(c, make([]float64, n)); err != nil {
			return nil, err
		}
	}
	frame.SortByTime()
	return frame, nil
}
