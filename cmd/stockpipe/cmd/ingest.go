package cmd

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"stockpipe/internal/collector"
	"stockpipe/internal/config"
	"stockpipe/internal/objstore"
	"stockpipe/internal/pipeerr"
	"stockpipe/internal/storage"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch quotes, save the raw CSV and round-trip it through S3",
	RunE: func(cmd *cobra.Command, args []string) error {
		source := collector.NewYahooSource(cfg.Proxy, cfg.DataSource.Timeout)
		return runIngest(cmd.Context(), cfg, source, openS3)
	},
}

func openS3(ctx context.Context, c *config.Config) (objectStore, error) {
	return objstore.New(ctx, c.S3.Region, c.S3.Endpoint)
}

// objectStore is the part of objstore.Client the ingest stage needs.
type objectStore interface {
	Upload(ctx context.Context, localPath, bucket, key string) error
	Download(ctx context.Context, bucket, key, localPath string) error
}

// storeOpener builds the object store. It runs only after the raw CSV is on
// disk, so a broken AWS setup never costs the fetched data.
type storeOpener func(ctx context.Context, c *config.Config) (objectStore, error)

func runIngest(ctx context.Context, c *config.Config, source collector.Source, open storeOpener) error {
	col := collector.NewCollector(source, c.DataSource.Symbol, c.DataSource.Retries, c.DataSource.Delay)
	log.Info().Str("ticker", c.DataSource.Symbol).Str("source", source.Name()).Msg("fetching stock data")

	frame, err := col.Collect(ctx)
	if err != nil {
		return err
	}
	if err := storage.SaveCSV(frame, c.Files.Raw); err != nil {
		return err
	}

	store, err := open(ctx, c)
	if err != nil {
		if pipeerr.Is(err, pipeerr.KindCredentials) {
			log.Warn().Err(err).Msg("skipping S3 transfer")
			return nil
		}
		return err
	}
	if err := store.Upload(ctx, c.Files.Raw, c.S3.Bucket, c.S3.Key); err != nil {
		if pipeerr.Is(err, pipeerr.KindCredentials) {
			log.Warn().Err(err).Msg("skipping S3 transfer")
			return nil
		}
		return err
	}
	if err := store.Download(ctx, c.S3.Bucket, c.S3.Key, c.Files.Downloaded); err != nil {
		if pipeerr.Is(err, pipeerr.KindCredentials) {
			log.Warn().Err(err).Msg("skipping S3 download")
			return nil
		}
		return err
	}
	log.Info().Str("ticker", c.DataSource.Symbol).Int("rows", frame.Len()).Msg("ingest complete")
	return nil
}
