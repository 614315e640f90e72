package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all pipeline configuration.
type Config struct {
	DataSource struct {
		Symbol  string        `yaml:"symbol"`
		Retries int           `yaml:"retries"`
		Delay   time.Duration `yaml:"delay"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"data_source"`
	Files struct {
		Raw        string `yaml:"raw"`
		Downloaded string `yaml:"downloaded"`
		Cleaned    string `yaml:"cleaned"`
		Aggregated string `yaml:"aggregated"`
		Processed  string `yaml:"processed"`
	} `yaml:"files"`
	S3 struct {
		Bucket   string `yaml:"bucket"`
		Key      string `yaml:"key"`
		Region   string `yaml:"region"`
		Endpoint string `yaml:"endpoint"`
	} `yaml:"s3"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
		Table      string `yaml:"table"`
	} `yaml:"database"`
	Dashboard struct {
		Addr string `yaml:"addr"`
	} `yaml:"dashboard"`
	Logging struct {
		Level         string `yaml:"level"`
		Format        string `yaml:"format"`
		FilePath      string `yaml:"file_path"`
		RotationSize  int    `yaml:"rotation_size"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"logging"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A missing file is not an error; every field has a default.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	// Numeric fields where zero is a legal setting get their defaults before
	// decoding, so an explicit "delay: 0s" or "retries: 0" survives.
	cfg.DataSource.Retries = 3
	cfg.DataSource.Delay = 5 * time.Second
	cfg.DataSource.Timeout = 30 * time.Second

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	// Environment variable overrides
	if v := os.Getenv("STOCKPIPE_TICKER"); v != "" {
		cfg.DataSource.Symbol = v
	}
	if v := os.Getenv("STOCKPIPE_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("parse STOCKPIPE_RETRIES: %w", err)
		}
		cfg.DataSource.Retries = n
	}
	if v := os.Getenv("STOCKPIPE_BUCKET"); v != "" {
		cfg.S3.Bucket = v
	}
	if v := os.Getenv("AWS_ENDPOINT_URL"); v != "" {
		cfg.S3.Endpoint = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("DASHBOARD_ADDR"); v != "" {
		cfg.Dashboard.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}

	// Defaults
	if cfg.DataSource.Symbol == "" {
		cfg.DataSource.Symbol = "AAPL"
	}
	if cfg.Files.Raw == "" {
		cfg.Files.Raw = "stock_data.csv"
	}
	if cfg.Files.Downloaded == "" {
		cfg.Files.Downloaded = "downloaded_stock_data.csv"
	}
	if cfg.Files.Cleaned == "" {
		cfg.Files.Cleaned = "cleaned_stock_data.csv"
	}
	if cfg.Files.Aggregated == "" {
		cfg.Files.Aggregated = "aggregated_stock_data.csv"
	}
	if cfg.Files.Processed == "" {
		cfg.Files.Processed = "processed_stock_data"
	}
	if cfg.S3.Bucket == "" {
		cfg.S3.Bucket = "newpipeline"
	}
	if cfg.S3.Key == "" {
		cfg.S3.Key = "stock_data.csv"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "stock_data.db"
	}
	if cfg.Database.Table == "" {
		cfg.Database.Table = "stocks"
	}
	if cfg.Dashboard.Addr == "" {
		cfg.Dashboard.Addr = "127.0.0.1:8501"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "pretty"
	}
	if cfg.Logging.RotationSize == 0 {
		cfg.Logging.RotationSize = 50
	}
	if cfg.Logging.RetentionDays == 0 {
		cfg.Logging.RetentionDays = 14
	}

	return cfg, nil
}

var tickerPattern = regexp.MustCompile(`^[A-Z][A-Z0-9.\-]{0,9}$`)

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if !tickerPattern.MatchString(c.DataSource.Symbol) {
		return fmt.Errorf("data_source.symbol %q is not a ticker", c.DataSource.Symbol)
	}
	if c.DataSource.Retries < 0 {
		return fmt.Errorf("data_source.retries must not be negative")
	}
	if c.DataSource.Delay < 0 {
		return fmt.Errorf("data_source.delay must not be negative")
	}
	if c.DataSource.Timeout <= 0 {
		return fmt.Errorf("data_source.timeout must be positive")
	}
	if c.Database.SQLitePath == "" {
		return fmt.Errorf("database.sqlite_path is required")
	}
	if c.Database.Table == "" {
		return fmt.Errorf("database.table is required")
	}
	return nil
}
