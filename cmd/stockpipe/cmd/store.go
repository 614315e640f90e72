package cmd

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"stockpipe/internal/config"
	"stockpipe/internal/recorder"
	"stockpipe/internal/storage"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Write the cleaned data as CSV, JSON and Parquet and into SQLite",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStore(cmd.Context(), cfg, recorder.NewSQLiteRecorder(cfg.Database.SQLitePath))
	},
}

func runStore(ctx context.Context, c *config.Config, rec recorder.Recorder) error {
	cleaned, err := storage.ReadCSV(c.Files.Cleaned)
	if err != nil {
		return err
	}
	if err := storage.SaveFormats(cleaned, c.Files.Processed); err != nil {
		return err
	}
	if err := rec.Store(ctx, c.Database.Table, cleaned); err != nil {
		return err
	}

	back, err := rec.Read(ctx, c.Database.Table)
	if err != nil {
		return err
	}
	for i := 0; i < back.Len() && i < 5; i++ {
		ev := log.Info().Time("datetime", back.Index[i])
		for _, col := range back.Columns() {
			ev = ev.Float64(col, back.Column(col)[i])
		}
		ev.Msg("stored row")
	}
	return nil
}
