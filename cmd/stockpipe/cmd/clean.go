package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"stockpipe/internal/calculator"
	"stockpipe/internal/config"
	"stockpipe/internal/storage"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean the raw CSV and write cleaned and daily aggregated CSVs",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runClean(cfg)
	},
}

func runClean(c *config.Config) error {
	raw, err := storage.LoadCSV(c.Files.Raw)
	if err != nil {
		return err
	}
	cleaned, err := calculator.Clean(raw)
	if err != nil {
		return err
	}
	if err := storage.SaveCSV(cleaned, c.Files.Cleaned); err != nil {
		return err
	}

	daily, err := calculator.ResampleDaily(cleaned)
	if err != nil {
		return err
	}
	if err := storage.SaveCSV(daily, c.Files.Aggregated); err != nil {
		return err
	}
	log.Info().
		Int("raw_rows", raw.Len()).
		Int("cleaned_rows", cleaned.Len()).
		Int("days", daily.Len()).
		Msg("data cleaned and aggregated")
	return nil
}
