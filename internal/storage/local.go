// Package storage reads and writes pipeline tables as flat files.
package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"stockpipe/internal/model"
	"stockpipe/internal/pipeerr"
)

// TimeLayout is how index timestamps are written.
const TimeLayout = "2006-01-02 15:04:05-07:00"

var parseLayouts = []string{TimeLayout, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

// ParseTime accepts the layouts produced by this package and by common exporters.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseFloat(s string) (float64, error) {
	if s == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

// SaveCSV writes the frame with its timestamp index as the leading Datetime
// column. A nil frame is skipped with a warning.
func SaveCSV(f *model.Frame, path string) error {
	if f == nil {
		log.Warn().Str("path", path).Msg("no data to save")
		return nil
	}
	file, err := os.Create(path)
	if err != nil {
		return pipeerr.Wrap(pipeerr.KindPipeline, err, "create %s", path)
	}
	if err := writeCSV(file, f); err != nil {
		file.Close()
		return pipeerr.Wrap(pipeerr.KindPipeline, err, "write %s", path)
	}
	if err := file.Close(); err != nil {
		return pipeerr.Wrap(pipeerr.KindPipeline, err, "close %s", path)
	}
	log.Info().Str("path", path).Int("rows", f.Len()).Msg("data saved")
	return nil
}

func writeCSV(w io.Writer, f *model.Frame) error {
	cw := csv.NewWriter(w)
	cols := f.Columns()
	if err := cw.Write(append([]string{model.ColDatetime}, cols...)); err != nil {
		return err
	}
	row := make([]string, len(cols)+1)
	for i, ts := range f.Index {
		row[0] = ts.Format(TimeLayout)
		for j, c := range cols {
			row[j+1] = formatFloat(f.Column(c)[i])
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// LoadCSV reads a file written by SaveCSV. The first column must be Datetime
// and becomes the index; rows keep file order.
func LoadCSV(path string) (*model.Frame, error) {
	return readFrame(path, true)
}

// ReadCSV reads a table whose Datetime column may sit anywhere in the header.
func ReadCSV(path string) (*model.Frame, error) {
	return readFrame(path, false)
}

func readFrame(path string, indexFirst bool) (*model.Frame, error) {
	header, rows, err := StreamRows(path)
	if err != nil {
		return nil, err
	}
	at := -1
	for i, h := range header {
		if h == model.ColDatetime {
			at = i
			break
		}
	}
	if at < 0 || (indexFirst && at != 0) {
		return nil, pipeerr.New(pipeerr.KindPipeline, "%s: no %s index column", path, model.ColDatetime)
	}

	var index []time.Time
	values := make([][]float64, len(header))
	line := 1
	for rec, err := range rows {
		line++
		if err != nil {
			return nil, pipeerr.Wrap(pipeerr.KindPipeline, err, "%s line %d", path, line)
		}
		ts, err := ParseTime(rec[at])
		if err != nil {
			return nil, pipeerr.Wrap(pipeerr.KindPipeline, err, "%s line %d", path, line)
		}
		index = append(index, ts)
		for j, cell := range rec {
			if j == at {
				continue
			}
			v, err := parseFloat(cell)
			if err != nil {
				return nil, pipeerr.Wrap(pipeerr.KindPipeline, err, "%s line %d column %q", path, line, header[j])
			}
			values[j] = append(values[j], v)
		}
	}

	f := model.NewFrame(index)
	f.Symbol = model.TickerFromFilename(path)
	for j, h := range header {
		if j == at {
			continue
		}
		col := values[j]
		if col == nil {
			col = []float64{}
		}
		if err := f.SetColumn(h, col); err != nil {
			return nil, pipeerr.Wrap(pipeerr.KindPipeline, err, "%s", path)
		}
	}
	return f, nil
}

// StreamRows returns the header of a CSV file and an iterator over the
// remaining records, read one at a time. Missing and empty files are
// pipeline errors.
func StreamRows(path string) ([]string, iter.Seq2[[]string, error], error) {
	header, err := readHeader(path)
	if err != nil {
		return nil, nil, err
	}
	rows := func(yield func([]string, error) bool) {
		file, err := os.Open(path)
		if err != nil {
			yield(nil, err)
			return
		}
		defer file.Close()

		r := csv.NewReader(file)
		r.FieldsPerRecord = len(header)
		if _, err := r.Read(); err != nil {
			yield(nil, err)
			return
		}
		for {
			rec, err := r.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(rec, err) || err != nil {
				return
			}
		}
	}
	return header, rows, nil
}

func readHeader(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Error().Str("path", path).Msg("input file not found")
			return nil, pipeerr.Wrap(pipeerr.KindPipeline, err, "the file %s was not found", path)
		}
		return nil, pipeerr.Wrap(pipeerr.KindPipeline, err, "open %s", path)
	}
	defer file.Close()

	header, err := csv.NewReader(file).Read()
	if errors.Is(err, io.EOF) {
		log.Error().Str("path", path).Msg("input file is empty")
		return nil, pipeerr.New(pipeerr.KindPipeline, "the file %s is empty", path)
	}
	if err != nil {
		return nil, pipeerr.Wrap(pipeerr.KindPipeline, err, "read header of %s", path)
	}
	return header, nil
}
