package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "AAPL", cfg.DataSource.Symbol)
	assert.Equal(t, 3, cfg.DataSource.Retries)
	assert.Equal(t, 5*time.Second, cfg.DataSource.Delay)
	assert.Equal(t, 30*time.Second, cfg.DataSource.Timeout)
	assert.Equal(t, "stock_data.csv", cfg.Files.Raw)
	assert.Equal(t, "cleaned_stock_data.csv", cfg.Files.Cleaned)
	assert.Equal(t, "newpipeline", cfg.S3.Bucket)
	assert.Equal(t, "stock_data.db", cfg.Database.SQLitePath)
	assert.Equal(t, "stocks", cfg.Database.Table)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
data_source:
  symbol: MSFT
  retries: 5
  delay: 250ms
database:
  table: quotes
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0644))
	t.Setenv("SQLITE_PATH", "/tmp/x.db")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "MSFT", cfg.DataSource.Symbol)
	assert.Equal(t, 5, cfg.DataSource.Retries)
	assert.Equal(t, 250*time.Millisecond, cfg.DataSource.Delay)
	assert.Equal(t, "quotes", cfg.Database.Table)
	assert.Equal(t, "/tmp/x.db", cfg.Database.SQLitePath)
}

func TestLoad_ExplicitZeroKept(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
data_source:
  retries: 0
  delay: 0s
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.DataSource.Retries)
	assert.Equal(t, time.Duration(0), cfg.DataSource.Delay)
	assert.Equal(t, 30*time.Second, cfg.DataSource.Timeout)
	assert.NoError(t, cfg.Validate())

	t.Setenv("STOCKPIPE_RETRIES", "0")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.DataSource.Retries)
}

func TestLoad_ZeroTimeoutRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_source:\n  timeout: 0s\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Error(t, cfg.Validate())
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_source: [unterminated"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.DataSource.Symbol = "aapl"
	assert.Error(t, cfg.Validate())

	cfg.DataSource.Symbol = "BRK.B"
	assert.NoError(t, cfg.Validate())

	cfg.DataSource.Retries = -1
	assert.Error(t, cfg.Validate())

	cfg.DataSource.Retries = 3
	cfg.DataSource.Delay = -time.Second
	assert.Error(t, cfg.Validate())
}
