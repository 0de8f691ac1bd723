package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

// Flag names shared with the cli package.
const (
	FlagConfig = "config"
	FlagRemote = "remote"
	FlagServer = "server"
	FlagDB     = "db"
)

// RegisterFlags adds the client's persistent flags to fs, showing defaults
// in the usage text.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Defaults()

	fs.StringP(FlagConfig, "c", "", "path to JSON config file")
	fs.StringP(FlagRemote, "r", d.Remote, "remote store: grpc, s3 or none")
	fs.StringP(FlagServer, "a", d.ServerAddr, "address and port of the sync server")
	fs.Duration("rpc-timeout", d.RPCTimeout, "timeout of a single remote call")
	fs.String("s3-bucket", d.S3Bucket, "S3 bucket")
	fs.String("s3-region", d.S3Region, "S3 region")
	fs.String("s3-endpoint", d.S3Endpoint, "S3 endpoint for S3-compatible storage")
	fs.Duration("s3-lookback", d.S3Lookback, "how far below the checkpoint S3 pulls re-read")
	fs.String(FlagDB, d.DBPath, "path to the local database")
	fs.String("log-file", d.LogPath, "path to the log file")
	fs.Duration("sync-interval", d.SyncInterval, "background sync interval, 0 disables it")
	fs.DurationP("online-check-interval", "i", d.OnlineCheckInterval, "online status check interval")
	fs.Int("max-conflict-retries", d.MaxConflictRetries, "push retries after a conflict")
	fs.Duration("gc-retention", d.GCRetention, "how long deleted records are kept")
	fs.Bool("gc-require-synced", d.GCRequireSynced, "keep tombstones until the remote has them")
	fs.Duration("cache-ttl", d.CacheTTL, "read cache lifetime")
	fs.String("otel-endpoint", d.OTelEndpoint, "OTLP HTTP endpoint for traces")
}

// parseFlags copies the flags the user set explicitly into cfg.
func parseFlags(cfg *Config, fs *pflag.FlagSet) error {
	var err error
	fs.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case FlagRemote:
			cfg.Remote, err = fs.GetString(f.Name)
		case FlagServer:
			cfg.ServerAddr, err = fs.GetString(f.Name)
		case "rpc-timeout":
			cfg.RPCTimeout, err = fs.GetDuration(f.Name)
		case "s3-bucket":
			cfg.S3Bucket, err = fs.GetString(f.Name)
		case "s3-region":
			cfg.S3Region, err = fs.GetString(f.Name)
		case "s3-endpoint":
			cfg.S3Endpoint, err = fs.GetString(f.Name)
		case "s3-lookback":
			cfg.S3Lookback, err = fs.GetDuration(f.Name)
		case FlagDB:
			cfg.DBPath, err = fs.GetString(f.Name)
		case "log-file":
			cfg.LogPath, err = fs.GetString(f.Name)
		case "sync-interval":
			cfg.SyncInterval, err = fs.GetDuration(f.Name)
		case "online-check-interval":
			cfg.OnlineCheckInterval, err = fs.GetDuration(f.Name)
		case "max-conflict-retries":
			cfg.MaxConflictRetries, err = fs.GetInt(f.Name)
		case "gc-retention":
			cfg.GCRetention, err = fs.GetDuration(f.Name)
		case "gc-require-synced":
			cfg.GCRequireSynced, err = fs.GetBool(f.Name)
		case "cache-ttl":
			cfg.CacheTTL, err = fs.GetDuration(f.Name)
		case "otel-endpoint":
			cfg.OTelEndpoint, err = fs.GetString(f.Name)
		}
	})
	if err != nil {
		return fmt.Errorf("read flags: %w", err)
	}
	return nil
}
