// Package cmd holds the stockpipe subcommands, one per pipeline stage.
package cmd

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"stockpipe/internal/config"
	"stockpipe/internal/logger"
)

var (
	cfgFile string
	envFile string

	// cfg is loaded once per invocation by the root pre-run hook.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "stockpipe",
	Short: "Stock data pipeline",
	Long: `stockpipe fetches minute quotes for one ticker and moves them through
flat files, S3, a cleaning step, SQLite and a dashboard.

Each stage is its own command and runs once:
    stockpipe ingest      fetch quotes, save the raw CSV, round-trip it through S3
    stockpipe clean       fill gaps, derive columns, write cleaned and daily CSVs
    stockpipe store       write CSV/JSON/Parquet artifacts and the SQLite table
    stockpipe dashboard   serve the stored table as charts and a data table
`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd.Name())
	},
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		log.Error().Err(err).Msg("command failed")
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "configs/config.yaml", "YAML config file (optional)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config (optional)")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(storeCmd)
	rootCmd.AddCommand(dashboardCmd)
}

func initConfig(command string) error {
	// A missing .env is fine; the environment may already be set.
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	c, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:         c.Logging.Level,
		Format:        c.Logging.Format,
		FilePath:      c.Logging.FilePath,
		RotationSize:  c.Logging.RotationSize,
		RetentionDays: c.Logging.RetentionDays,
		Command:       command,
	}); err != nil {
		return err
	}
	cfg = c
	log.Debug().Str("config", cfgFile).Str("ticker", c.DataSource.Symbol).Msg("config loaded")
	return nil
}
