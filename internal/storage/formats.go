package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"
	"github.com/rs/zerolog/log"

	"stockpipe/internal/model"
	"stockpipe/internal/pipeerr"
)

// Record is one row of a cleaned quote table as written to JSON and Parquet.
type Record struct {
	Datetime    string  `json:"Datetime" parquet:"Datetime"`
	Open        float64 `json:"Open" parquet:"Open"`
	High        float64 `json:"High" parquet:"High"`
	Low         float64 `json:"Low" parquet:"Low"`
	Close       float64 `json:"Close" parquet:"Close"`
	Volume      float64 `json:"Volume" parquet:"Volume"`
	PriceChange float64 `json:"Price Change" parquet:"Price Change"`
	DailyRange  float64 `json:"Daily Range" parquet:"Daily Range"`
}

// Records converts a frame holding model.QuoteColumns into records.
func Records(f *model.Frame) ([]Record, error) {
	for _, c := range model.QuoteColumns {
		if !f.Has(c) {
			return nil, fmt.Errorf("column %q not found", c)
		}
	}
	open, high, low, cl := f.Column(model.ColOpen), f.Column(model.ColHigh), f.Column(model.ColLow), f.Column(model.ColClose)
	vol, chg, rng := f.Column(model.ColVolume), f.Column(model.ColPriceChange), f.Column(model.ColDailyRange)
	out := make([]Record, f.Len())
	for i, ts := range f.Index {
		out[i] = Record{
			Datetime:    ts.Format(TimeLayout),
			Open:        open[i],
			High:        high[i],
			Low:         low[i],
			Close:       cl[i],
			Volume:      vol[i],
			PriceChange: chg[i],
			DailyRange:  rng[i],
		}
	}
	return out, nil
}

// FrameFromRecords is the inverse of Records.
func FrameFromRecords(records []Record) (*model.Frame, error) {
	f := model.NewFrame(nil)
	cols := make([][]float64, len(model.QuoteColumns))
	for _, r := range records {
		ts, err := ParseTime(r.Datetime)
		if err != nil {
			return nil, err
		}
		f.Index = append(f.Index, ts)
		for j, v := range []float64{r.Open, r.High, r.Low, r.Close, r.Volume, r.PriceChange, r.DailyRange} {
			cols[j] = append(cols[j], v)
		}
	}
	for j, c := range model.QuoteColumns {
		if cols[j] == nil {
			cols[j] = []float64{}
		}
		if err := f.SetColumn(c, cols[j]); err != nil {
			return nil, err
		}
	}
	return f, nil
}

type artifact struct {
	ext   string
	write func(path string, f *model.Frame, records []Record) error
}

var artifacts = []artifact{
	{".csv", writeCSVFile},
	{".json", writeJSONFile},
	{".parquet", writeParquetFile},
}

// SaveFormats writes <base>.csv, <base>.json and <base>.parquet. Each is
// written to a temporary name first; the set is renamed into place only when
// all three writes succeed, so a failed write leaves the previous artifacts
// untouched.
func SaveFormats(f *model.Frame, base string) error {
	if f == nil {
		return pipeerr.New(pipeerr.KindPipeline, "no data to save to %s", base)
	}
	frame, err := f.Select(model.QuoteColumns...)
	if err != nil {
		return pipeerr.Wrap(pipeerr.KindPipeline, err, "error saving data")
	}
	records, err := Records(frame)
	if err != nil {
		return pipeerr.Wrap(pipeerr.KindPipeline, err, "error saving data")
	}

	suffix := ".tmp-" + uuid.NewString()
	var pending []string
	discard := func() {
		for _, p := range pending {
			if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
				log.Warn().Err(err).Str("path", p).Msg("remove temp artifact")
			}
		}
	}

	for _, a := range artifacts {
		tmp := base + a.ext + suffix
		pending = append(pending, tmp)
		if err := a.write(tmp, frame, records); err != nil {
			discard()
			log.Error().Err(err).Str("path", base+a.ext).Msg("write artifact failed")
			return pipeerr.Wrap(pipeerr.KindPipeline, err, "error saving data to %s", base+a.ext)
		}
	}
	for i, a := range artifacts {
		if err := os.Rename(pending[i], base+a.ext); err != nil {
			pending = pending[i:]
			discard()
			return pipeerr.Wrap(pipeerr.KindPipeline, err, "error saving data to %s", base+a.ext)
		}
	}

	log.Info().Str("base", base).Int("rows", frame.Len()).Msg("data saved in CSV, JSON and Parquet formats")
	return nil
}

func writeCSVFile(path string, f *model.Frame, _ []Record) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := writeCSV(file, f); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func writeJSONFile(path string, _ *model.Frame, records []Record) error {
	data, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func writeParquetFile(path string, _ *model.Frame, records []Record) error {
	return parquet.WriteFile(path, records)
}

// ReadJSON reads a <base>.json artifact.
func ReadJSON(path string) (*model.Frame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, pipeerr.Wrap(pipeerr.KindPipeline, err, "read %s", path)
	}
	if len(data) == 0 {
		return nil, pipeerr.New(pipeerr.KindPipeline, "the file %s is empty", path)
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, pipeerr.Wrap(pipeerr.KindPipeline, err, "decode %s", path)
	}
	f, err := FrameFromRecords(records)
	if err != nil {
		return nil, pipeerr.Wrap(pipeerr.KindPipeline, err, "decode %s", path)
	}
	return f, nil
}

// ReadParquet reads a <base>.parquet artifact.
func ReadParquet(path string) (*model.Frame, error) {
	records, err := parquet.ReadFile[Record](path)
	if err != nil {
		return nil, pipeerr.Wrap(pipeerr.KindPipeline, err, "read %s", path)
	}
	f, err := FrameFromRecords(records)
	if err != nil {
		return nil, pipeerr.Wrap(pipeerr.KindPipeline, err, "decode %s", path)
	}
	return f, nil
}
