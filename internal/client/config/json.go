package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Absent keys leave
// the corresponding Config field untouched.
type JsonConfig struct {
	Remote              *string         `json:"remote"`
	ServerAddr          *string         `json:"server_addr"`
	RPCTimeout          *timex.Duration `json:"rpc_timeout"`
	S3Bucket            *string         `json:"s3_bucket"`
	S3Region            *string         `json:"s3_region"`
	S3Endpoint          *string         `json:"s3_endpoint"`
	S3AccessKey         *string         `json:"s3_access_key"`
	S3SecretKey         *string         `json:"s3_secret_key"`
	S3Lookback          *timex.Duration `json:"s3_lookback"`
	DBPath              *string         `json:"db_path"`
	LogPath             *string         `json:"log_path"`
	SyncInterval        *timex.Duration `json:"sync_interval"`
	OnlineCheckInterval *timex.Duration `json:"online_check_interval"`
	MaxConflictRetries  *int            `json:"max_conflict_retries"`
	GCRetention         *timex.Duration `json:"gc_retention"`
	GCRequireSynced     *bool           `json:"gc_require_synced"`
	CacheTTL            *timex.Duration `json:"cache_ttl"`
	OTelEndpoint        *string         `json:"otel_endpoint"`
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setDuration(dst *time.Duration, src *timex.Duration) {
	if src != nil {
		*dst = src.Duration
	}
}

// parseJson overlays cfg with the file at path. An empty path is a no-op.
func parseJson(cfg *Config, path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&cfg.Remote, jc.Remote)
	setString(&cfg.ServerAddr, jc.ServerAddr)
	setDuration(&cfg.RPCTimeout, jc.RPCTimeout)
	setString(&cfg.S3Bucket, jc.S3Bucket)
	setString(&cfg.S3Region, jc.S3Region)
	setString(&cfg.S3Endpoint, jc.S3Endpoint)
	setString(&cfg.S3AccessKey, jc.S3AccessKey)
	setString(&cfg.S3SecretKey, jc.S3SecretKey)
	setDuration(&cfg.S3Lookback, jc.S3Lookback)
	setString(&cfg.DBPath, jc.DBPath)
	setString(&cfg.LogPath, jc.LogPath)
	setDuration(&cfg.SyncInterval, jc.SyncInterval)
	setDuration(&cfg.OnlineCheckInterval, jc.OnlineCheckInterval)
	if jc.MaxConflictRetries != nil {
		cfg.MaxConflictRetries = *jc.MaxConflictRetries
	}
	setDuration(&cfg.GCRetention, jc.GCRetention)
	if jc.GCRequireSynced != nil {
		cfg.GCRequireSynced = *jc.GCRequireSynced
	}
	setDuration(&cfg.CacheTTL, jc.CacheTTL)
	setString(&cfg.OTelEndpoint, jc.OTelEndpoint)
	return nil
}
