// Package dashboard renders the stored quotes as a single HTML page.
package dashboard

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"stockpipe/internal/calculator"
	"stockpipe/internal/model"
	"stockpipe/internal/storage"
)

// SMAPeriod is the window of the moving average drawn over Close.
const SMAPeriod = 20

// Summary is the headline block above the charts.
type Summary struct {
	Symbol    string
	Rows      int
	LastClose float64
	High      float64
	Low       float64
	Position  float64 // last close within [Low, High], in percent
	SMA       float64
	HasSMA    bool
}

type tableView struct {
	Summary *Summary
	Columns []string
	Rows    [][]string
}

var tableTmpl = template.Must(template.New("table").Parse(`
<div class="container" style="margin:24px auto;max-width:1100px;font-family:sans-serif">
{{with .Summary}}<h2>{{if .Symbol}}{{.Symbol}} {{end}}Stock Data</h2>
<p>Last close {{printf "%.2f" .LastClose}} | range {{printf "%.2f" .Low}} - {{printf "%.2f" .High}} ({{printf "%.0f" .Position}}% of range){{if .HasSMA}} | SMA {{printf "%.2f" .SMA}}{{end}} | {{.Rows}} rows</p>
{{else}}<h2>Stock Data</h2><p>No rows stored.</p>{{end}}
<table border="1" cellpadding="4" style="border-collapse:collapse;font-size:13px">
<thead><tr><th>Datetime</th>{{range .Columns}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>{{end}}</tbody>
</table>
</div>
`))

// Summarize computes the headline numbers. It returns nil when the frame is
// empty or lacks the OHLCV columns.
func Summarize(f *model.Frame) *Summary {
	if f == nil || f.Len() == 0 {
		return nil
	}
	bars, err := f.Bars()
	if err != nil {
		return nil
	}
	high, low, err := calculator.SessionRange(bars)
	if err != nil {
		return nil
	}
	last := math.NaN()
	for i := len(bars) - 1; i >= 0 && math.IsNaN(last); i-- {
		last = bars[i].Close
	}
	if math.IsNaN(last) {
		return nil
	}
	pos, err := calculator.RangePosition(last, high, low)
	if err != nil {
		return nil
	}
	s := &Summary{
		Symbol:    f.Symbol,
		Rows:      f.Len(),
		LastClose: last,
		High:      high,
		Low:       low,
		Position:  pos * 100,
	}
	if sma, err := calculator.CalculateSMA(f.Column(model.ColClose), SMAPeriod); err == nil && !math.IsNaN(sma) {
		s.SMA, s.HasSMA = sma, true
	}
	return s
}

func cell(col string, v float64) string {
	switch {
	case math.IsNaN(v):
		return ""
	case col == model.ColVolume:
		return humanize.Comma(int64(v))
	default:
		return humanize.FormatFloat("#,###.##", v)
	}
}

func buildTable(f *model.Frame) tableView {
	view := tableView{Summary: Summarize(f)}
	if f == nil {
		return view
	}
	view.Columns = f.Columns()
	view.Rows = make([][]string, f.Len())
	for i, ts := range f.Index {
		row := make([]string, 0, len(view.Columns)+1)
		row = append(row, ts.Format(storage.TimeLayout))
		for _, c := range view.Columns {
			row = append(row, cell(c, f.Column(c)[i]))
		}
		view.Rows[i] = row
	}
	return view
}

// "-" is how echarts marks a missing point; NaN would not survive JSON.
func point(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	return v
}

func lineData(vals []float64) []opts.LineData {
	out := make([]opts.LineData, len(vals))
	for i, v := range vals {
		out[i] = opts.LineData{Value: point(v)}
	}
	return out
}

func axis(f *model.Frame) []string {
	x := make([]string, f.Len())
	for i, ts := range f.Index {
		x[i] = ts.Format("01-02 15:04")
	}
	return x
}

func closeChart(f *model.Frame) *charts.Line {
	closes := f.Column(model.ColClose)
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Close"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true, Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: true, Right: "10%"}),
	)
	line.SetXAxis(axis(f)).AddSeries(model.ColClose, lineData(closes))
	if sma, err := calculator.RollingSMA(closes, SMAPeriod); err == nil && len(closes) >= SMAPeriod {
		line.AddSeries(fmt.Sprintf("SMA %d", SMAPeriod), lineData(sma))
	}
	return line
}

func volumeChart(f *model.Frame) *charts.Bar {
	vols := f.Column(model.ColVolume)
	data := make([]opts.BarData, len(vols))
	for i, v := range vols {
		data[i] = opts.BarData{Value: point(v)}
	}
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Volume"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true, Trigger: "axis"}),
	)
	bar.SetXAxis(axis(f)).AddSeries(model.ColVolume, data)
	return bar
}

func bandChart(f *model.Frame) *charts.Line {
	band := charts.NewLine()
	band.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "High / Low"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true, Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: true, Right: "10%"}),
	)
	band.SetXAxis(axis(f)).
		AddSeries(model.ColHigh, lineData(f.Column(model.ColHigh))).
		AddSeries(model.ColLow, lineData(f.Column(model.ColLow))).
		SetSeriesOptions(charts.WithAreaStyleOpts(opts.AreaStyle{Opacity: 0.2}))
	return band
}

// Render writes the whole page: the data table followed by the Close, Volume
// and High/Low charts. Charts whose columns are absent are left out.
func Render(w io.Writer, f *model.Frame) error {
	page := components.NewPage()
	page.PageTitle = "Stock Data Dashboard"
	if f != nil && f.Len() > 0 {
		if f.Has(model.ColClose) {
			page.AddCharts(closeChart(f))
		}
		if f.Has(model.ColVolume) {
			page.AddCharts(volumeChart(f))
		}
		if f.Has(model.ColHigh) && f.Has(model.ColLow) {
			page.AddCharts(bandChart(f))
		}
	}

	var chartsHTML bytes.Buffer
	if err := page.Render(&chartsHTML); err != nil {
		return fmt.Errorf("render charts: %w", err)
	}
	var table bytes.Buffer
	if err := tableTmpl.Execute(&table, buildTable(f)); err != nil {
		return fmt.Errorf("render table: %w", err)
	}

	html := chartsHTML.String()
	at := strings.Index(html, "<body>")
	if at < 0 {
		_, err := io.WriteString(w, table.String()+html)
		return err
	}
	at += len("<body>")
	_, err := io.WriteString(w, html[:at]+table.String()+html[at:])
	return err
}
