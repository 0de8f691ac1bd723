package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, RemoteGRPC, c.Remote)
	assert.Equal(t, "127.0.0.1:50051", c.ServerAddr)
	assert.Equal(t, 3*time.Second, c.OnlineCheckInterval)
	assert.Equal(t, 7*24*time.Hour, c.GCRetention)
	assert.Equal(t, 5*time.Second, c.CacheTTL)
	assert.True(t, c.GCRequireSynced)
	assert.Equal(t, 2*time.Minute, c.S3Lookback)
	assert.Equal(t, "timekeeper.db", filepath.Base(c.DBPath))
	require.NoError(t, c.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "unknown remote", mutate: func(c *Config) { c.Remote = "ftp" }, wantErr: "unknown remote"},
		{name: "grpc without address", mutate: func(c *Config) { c.ServerAddr = "" }, wantErr: "server address"},
		{name: "s3 without bucket", mutate: func(c *Config) { c.Remote = RemoteS3 }, wantErr: "bucket"},
		{name: "s3 with bucket", mutate: func(c *Config) { c.Remote = RemoteS3; c.S3Bucket = "tk" }},
		{name: "none", mutate: func(c *Config) { c.Remote = RemoteNone; c.ServerAddr = "" }},
		{name: "negative retries", mutate: func(c *Config) { c.MaxConflictRetries = -1 }, wantErr: "retries"},
		{name: "zero ttl", mutate: func(c *Config) { c.CacheTTL = 0 }, wantErr: "ttl"},
		{name: "no db", mutate: func(c *Config) { c.DBPath = "" }, wantErr: "database"},
		{name: "negative s3 lookback", mutate: func(c *Config) { c.S3Lookback = -time.Second }, wantErr: "lookback"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Defaults()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSyncEnabled(t *testing.T) {
	c := Defaults()
	assert.True(t, c.SyncEnabled())
	c.Remote = RemoteNone
	assert.False(t, c.SyncEnabled())
}

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func parsedFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("timekeeper", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func Test_parseJson_OverlaysOnlyPresentKeys(t *testing.T) {
	path := writeTempJSON(t, map[string]any{
		"remote":            "s3",
		"s3_bucket":         "tk",
		"sync_interval":     "1m",
		"gc_require_synced": false,
		"cache_ttl":         int64(2 * time.Second),
	})

	cfg := Defaults()
	require.NoError(t, parseJson(cfg, path))

	want := Defaults()
	want.Remote = RemoteS3
	want.S3Bucket = "tk"
	want.SyncInterval = time.Minute
	want.GCRequireSynced = false
	want.CacheTTL = 2 * time.Second
	assert.Empty(t, cmp.Diff(want, cfg))
}

func Test_parseJson_Errors(t *testing.T) {
	require.NoError(t, parseJson(Defaults(), ""))

	err := parseJson(Defaults(), filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))
	require.Error(t, parseJson(Defaults(), bad))
}

func Test_parseEnv(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, parseEnv(cfg, map[string]string{
		"TIMEKEEPER_SERVER_ADDR":          "sync.example:443",
		"TIMEKEEPER_SYNC_INTERVAL":        "45s",
		"TIMEKEEPER_MAX_CONFLICT_RETRIES": "5",
	}))

	assert.Equal(t, "sync.example:443", cfg.ServerAddr)
	assert.Equal(t, 45*time.Second, cfg.SyncInterval)
	assert.Equal(t, 5, cfg.MaxConflictRetries)
	assert.Equal(t, RemoteGRPC, cfg.Remote, "unset variables keep earlier values")

	require.Error(t, parseEnv(Defaults(), map[string]string{"TIMEKEEPER_CACHE_TTL": "soon"}))
}

func TestLoad_Precedence(t *testing.T) {
	path := writeTempJSON(t, map[string]any{
		"server_addr":   "from-json:1",
		"db_path":       "/tmp/json.db",
		"sync_interval": "10s",
		"otel_endpoint": "collector:4318",
	})

	fs := parsedFlags(t, "-c", path, "--server", "from-flag:3", "-i", "7s")
	cfg, err := load(fs, map[string]string{
		"TIMEKEEPER_SERVER_ADDR": "from-env:2",
		"TIMEKEEPER_DB":          "/tmp/env.db",
	})
	require.NoError(t, err)

	want := Defaults()
	want.ServerAddr = "from-flag:3"
	want.DBPath = "/tmp/env.db"
	want.SyncInterval = 10 * time.Second
	want.OnlineCheckInterval = 7 * time.Second
	want.OTelEndpoint = "collector:4318"
	assert.Empty(t, cmp.Diff(want, cfg))
}

func TestLoad_UnsetFlagsDoNotOverride(t *testing.T) {
	fs := parsedFlags(t)
	cfg, err := load(fs, map[string]string{"TIMEKEEPER_REMOTE": "none"})
	require.NoError(t, err)
	assert.Equal(t, RemoteNone, cfg.Remote)
}

func TestLoad_RejectsInvalid(t *testing.T) {
	fs := parsedFlags(t, "--remote", "carrier-pigeon")
	_, err := load(fs, map[string]string{})
	require.Error(t, err)
}
