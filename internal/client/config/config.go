package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Remote store kinds.
const (
	RemoteGRPC = "grpc"
	RemoteS3   = "s3"
	RemoteNone = "none"
)

// Config holds runtime settings for the timekeeper client.
type Config struct {
	Remote     string        `env:"TIMEKEEPER_REMOTE"`
	ServerAddr string        `env:"TIMEKEEPER_SERVER_ADDR"`
	RPCTimeout time.Duration `env:"TIMEKEEPER_RPC_TIMEOUT"`

	S3Bucket    string `env:"TIMEKEEPER_S3_BUCKET"`
	S3Region    string `env:"TIMEKEEPER_S3_REGION"`
	S3Endpoint  string `env:"TIMEKEEPER_S3_ENDPOINT"`
	S3AccessKey string `env:"TIMEKEEPER_S3_ACCESS_KEY"`
	S3SecretKey string `env:"TIMEKEEPER_S3_SECRET_KEY"`
	// S3Lookback is how far below the checkpoint an S3 pull re-reads.
	S3Lookback time.Duration `env:"TIMEKEEPER_S3_LOOKBACK"`

	DBPath  string `env:"TIMEKEEPER_DB"`
	LogPath string `env:"TIMEKEEPER_LOG_FILE"`

	SyncInterval        time.Duration `env:"TIMEKEEPER_SYNC_INTERVAL"`
	OnlineCheckInterval time.Duration `env:"TIMEKEEPER_ONLINE_CHECK_INTERVAL"`
	MaxConflictRetries  int           `env:"TIMEKEEPER_MAX_CONFLICT_RETRIES"`

	GCRetention     time.Duration `env:"TIMEKEEPER_GC_RETENTION"`
	GCRequireSynced bool          `env:"TIMEKEEPER_GC_REQUIRE_SYNCED"`

	CacheTTL     time.Duration `env:"TIMEKEEPER_CACHE_TTL"`
	OTelEndpoint string        `env:"TIMEKEEPER_OTEL_ENDPOINT"`
}

// dataDir is where the database and log file live unless configured.
func dataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "timekeeper")
	}
	return "."
}

// LoadDefaults populates c with defaults suitable for a single-user desktop.
func (c *Config) LoadDefaults() {
	dir := dataDir()

	c.Remote = RemoteGRPC
	c.ServerAddr = "127.0.0.1:50051"
	c.RPCTimeout = 10 * time.Second
	c.S3Region = "us-east-1"
	c.S3Lookback = 2 * time.Minute
	c.DBPath = filepath.Join(dir, "timekeeper.db")
	c.LogPath = filepath.Join(dir, "timekeeper.log")
	c.SyncInterval = 30 * time.Second
	c.OnlineCheckInterval = 3 * time.Second
	c.MaxConflictRetries = 3
	c.GCRetention = 7 * 24 * time.Hour
	c.GCRequireSynced = true
	c.CacheTTL = 5 * time.Second
}

// Defaults returns a Config with LoadDefaults applied.
func Defaults() *Config {
	c := &Config{}
	c.LoadDefaults()
	return c
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	switch c.Remote {
	case RemoteGRPC:
		if c.ServerAddr == "" {
			return errors.New("server address is required for the grpc remote")
		}
	case RemoteS3:
		if c.S3Bucket == "" {
			return errors.New("bucket is required for the s3 remote")
		}
	case RemoteNone:
	default:
		return fmt.Errorf("unknown remote %q (want grpc, s3 or none)", c.Remote)
	}
	if c.S3Lookback < 0 {
		return errors.New("s3 lookback must not be negative")
	}
	if c.DBPath == "" {
		return errors.New("database path is required")
	}
	if c.MaxConflictRetries < 0 {
		return errors.New("max conflict retries must not be negative")
	}
	if c.CacheTTL <= 0 {
		return errors.New("cache ttl must be positive")
	}
	if c.GCRetention < 0 {
		return errors.New("gc retention must not be negative")
	}
	return nil
}

// SyncEnabled reports whether a remote store is configured.
func (c *Config) SyncEnabled() bool {
	return c.Remote != RemoteNone
}
