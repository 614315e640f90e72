package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"stockpipe/internal/model"
	"stockpipe/internal/pipeerr"
	"stockpipe/internal/storage"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLiteRecorder stores tables in a SQLite database file. Every call opens
// its own connection and closes it before returning.
type SQLiteRecorder struct {
	Path string
}

// NewSQLiteRecorder creates a recorder for the database at dbPath.
func NewSQLiteRecorder(dbPath string) *SQLiteRecorder {
	return &SQLiteRecorder{Path: dbPath}
}

func (r *SQLiteRecorder) open(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("sqlite", r.Path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	return db, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func checkTable(table string) error {
	if !tableName.MatchString(table) {
		err := pipeerr.New(pipeerr.KindDatabase, "invalid table name %q", table)
		log.Error().Err(err).Str("table", table).Msg("database error")
		return err
	}
	return nil
}

// Store drops and recreates table with a Datetime TEXT column followed by one
// REAL column per frame column, then inserts every row in one transaction.
func (r *SQLiteRecorder) Store(ctx context.Context, table string, f *model.Frame) error {
	if err := checkTable(table); err != nil {
		return err
	}
	if f == nil {
		err := pipeerr.New(pipeerr.KindDatabase, "no data to store in %s", table)
		log.Error().Err(err).Str("db", r.Path).Str("table", table).Msg("database error")
		return err
	}
	if err := r.store(ctx, table, f); err != nil {
		log.Error().Err(err).Str("db", r.Path).Str("table", table).Msg("database error")
		return pipeerr.Wrap(pipeerr.KindDatabase, err, "database error")
	}
	log.Info().Str("db", r.Path).Str("table", table).Int("rows", f.Len()).Msg("data stored")
	return nil
}

func (r *SQLiteRecorder) store(ctx context.Context, table string, f *model.Frame) error {
	db, err := r.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	cols := f.Columns()
	defs := []string{quoteIdent(model.ColDatetime) + " TEXT"}
	names := []string{quoteIdent(model.ColDatetime)}
	for _, c := range cols {
		defs = append(defs, quoteIdent(c)+" REAL")
		names = append(names, quoteIdent(c))
	}
	marks := strings.TrimSuffix(strings.Repeat("?,", len(names)), ",")

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmts := []string{
		"DROP TABLE IF EXISTS " + quoteIdent(table),
		fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(table), strings.Join(defs, ", ")),
	}
	for _, s := range stmts {
		if _, err := tx.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("exec %q: %w", s, err)
		}
	}

	ins, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(table), strings.Join(names, ", "), marks))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer ins.Close()

	args := make([]any, len(names))
	for i, ts := range f.Index {
		args[0] = ts.Format(storage.TimeLayout)
		for j, c := range cols {
			v := f.Column(c)[i]
			if math.IsNaN(v) {
				args[j+1] = nil
			} else {
				args[j+1] = v
			}
		}
		if _, err := ins.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// Read runs SELECT * on table. The Datetime column becomes the index and
// NULLs read back as NaN.
func (r *SQLiteRecorder) Read(ctx context.Context, table string) (*model.Frame, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	f, err := r.read(ctx, table)
	if err != nil {
		log.Error().Err(err).Str("db", r.Path).Str("table", table).Msg("error retrieving data")
		return nil, pipeerr.Wrap(pipeerr.KindDatabase, err, "error retrieving data")
	}
	log.Info().Str("db", r.Path).Str("table", table).Int("rows", f.Len()).Msg("data retrieved")
	return f, nil
}

func (r *SQLiteRecorder) read(ctx context.Context, table string) (*model.Frame, error) {
	db, err := r.open(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, "SELECT * FROM "+quoteIdent(table))
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	at := -1
	for i, c := range cols {
		if c == model.ColDatetime {
			at = i
		}
	}
	if at < 0 {
		return nil, fmt.Errorf("table %s has no %s column", table, model.ColDatetime)
	}

	var index []time.Time
	values := make([][]float64, len(cols))
	dest := make([]any, len(cols))
	var stamp sql.NullString
	nums := make([]sql.NullFloat64, len(cols))
	for i := range cols {
		if i == at {
			dest[i] = &stamp
		} else {
			dest[i] = &nums[i]
		}
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		ts, err := storage.ParseTime(stamp.String)
		if err != nil {
			return nil, err
		}
		index = append(index, ts)
		for i := range cols {
			if i == at {
				continue
			}
			v := math.NaN()
			if nums[i].Valid {
				v = nums[i].Float64
			}
			values[i] = append(values[i], v)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	f := model.NewFrame(index)
	for i, c := range cols {
		if i == at {
			continue
		}
		if values[i] == nil {
			values[i] = []float64{}
		}
		if err := f.SetColumn(c, values[i]); err != nil {
			return nil, err
		}
	}
	return f, nil
}
