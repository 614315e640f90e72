package recorder

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockpipe/internal/model"
	"stockpipe/internal/pipeerr"
	"stockpipe/internal/storage"
)

func quotes(t *testing.T, n int) *model.Frame {
	t.Helper()
	t0 := time.Date(2024, 1, 2, 9, 30, 0, 0, time.FixedZone("EST", -5*3600))
	index := make([]time.Time, n)
	for i := range index {
		index[i] = t0.Add(time.Duration(i) * time.Minute)
	}
	f := model.NewFrame(index)
	for k, c := range model.QuoteColumns {
		vals := make([]float64, n)
		for i := range vals {
			vals[i] = float64(100*k+i) + 0.25
		}
		require.NoError(t, f.SetColumn(c, vals))
	}
	return f
}

func TestStoreRead_RoundTrip(t *testing.T) {
	ctx := context.Background()
	rec := NewSQLiteRecorder(filepath.Join(t.TempDir(), "stock_data.db"))
	want := quotes(t, 5)

	require.NoError(t, rec.Store(ctx, "stocks", want))
	got, err := rec.Read(ctx, "stocks")
	require.NoError(t, err)

	require.Equal(t, want.Len(), got.Len())
	assert.Equal(t, want.Columns(), got.Columns())
	for i := range want.Index {
		assert.True(t, want.Index[i].Equal(got.Index[i]))
	}
	for _, c := range want.Columns() {
		assert.Equal(t, want.Column(c), got.Column(c), c)
	}
}

func TestStore_ReplacesTable(t *testing.T) {
	ctx := context.Background()
	rec := NewSQLiteRecorder(filepath.Join(t.TempDir(), "stock_data.db"))

	require.NoError(t, rec.Store(ctx, "stocks", quotes(t, 5)))
	require.NoError(t, rec.Store(ctx, "stocks", quotes(t, 2)))

	got, err := rec.Read(ctx, "stocks")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Len())
}

func TestStore_NaNAsNull(t *testing.T) {
	ctx := context.Background()
	rec := NewSQLiteRecorder(filepath.Join(t.TempDir(), "stock_data.db"))
	f := quotes(t, 2)
	f.Column(model.ColOpen)[1] = math.NaN()

	require.NoError(t, rec.Store(ctx, "stocks", f))
	got, err := rec.Read(ctx, "stocks")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(got.Column(model.ColOpen)[1]))
}

func TestRead_MissingTable(t *testing.T) {
	rec := NewSQLiteRecorder(filepath.Join(t.TempDir(), "stock_data.db"))
	_, err := rec.Read(context.Background(), "stocks")
	assert.True(t, pipeerr.Is(err, pipeerr.KindDatabase))
}

func TestStore_BadPath(t *testing.T) {
	rec := NewSQLiteRecorder(filepath.Join(t.TempDir(), "no", "such", "dir", "x.db"))
	err := rec.Store(context.Background(), "stocks", quotes(t, 1))
	assert.True(t, pipeerr.Is(err, pipeerr.KindDatabase))
}

func TestInvalidTableName(t *testing.T) {
	rec := NewSQLiteRecorder(filepath.Join(t.TempDir(), "stock_data.db"))
	err := rec.Store(context.Background(), "stocks; DROP TABLE x", quotes(t, 1))
	assert.True(t, pipeerr.Is(err, pipeerr.KindDatabase))

	_, err = rec.Read(context.Background(), "1abc")
	assert.True(t, pipeerr.Is(err, pipeerr.KindDatabase))
}

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	saved := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = saved })
	return &buf
}

func TestRejectedCallsAreLogged(t *testing.T) {
	ctx := context.Background()
	rec := NewSQLiteRecorder(filepath.Join(t.TempDir(), "stock_data.db"))

	buf := captureLog(t)
	assert.Error(t, rec.Store(ctx, "bad name", quotes(t, 1)))
	assert.Contains(t, buf.String(), `"level":"error"`)
	assert.Contains(t, buf.String(), "invalid table name")

	buf.Reset()
	_, err := rec.Read(ctx, "1abc")
	assert.Error(t, err)
	assert.Contains(t, buf.String(), "invalid table name")

	buf.Reset()
	err = rec.Store(ctx, "stocks", nil)
	assert.True(t, pipeerr.Is(err, pipeerr.KindDatabase))
	assert.Contains(t, buf.String(), `"level":"error"`)
	assert.Contains(t, buf.String(), "no data to store")
}

// The storage run: cleaned CSV in, three artifacts plus a table out, table read back.
func TestSaveFormatsThenStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	want := quotes(t, 4)

	require.NoError(t, storage.SaveCSV(want, filepath.Join(dir, "cleaned_stock_data.csv")))
	in, err := storage.ReadCSV(filepath.Join(dir, "cleaned_stock_data.csv"))
	require.NoError(t, err)
	require.NoError(t, storage.SaveFormats(in, filepath.Join(dir, "processed_stock_data")))

	rec := NewSQLiteRecorder(filepath.Join(dir, "stock_data.db"))
	require.NoError(t, rec.Store(ctx, "stocks", in))
	got, err := rec.Read(ctx, "stocks")
	require.NoError(t, err)

	assert.Equal(t, want.Len(), got.Len())
	for _, c := range model.QuoteColumns {
		assert.Equal(t, want.Column(c), got.Column(c), c)
	}
	for _, ext := range []string{".csv", ".json", ".parquet"} {
		_, err := os.Stat(filepath.Join(dir, "processed_stock_data"+ext))
		assert.NoError(t, err, ext)
	}
}
