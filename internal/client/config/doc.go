// Package config loads runtime configuration for the timekeeper CLI.
//
// Sources, later ones winning:
//
//  1. Built-in defaults (see Defaults).
//  2. Optional JSON file given with -c/--config.
//  3. TIMEKEEPER_* environment variables.
//  4. Command-line flags the user actually set.
//
// # JSON schema
//
// Intervals use timex.Duration, so values are either strings like "30s" or
// integer nanoseconds:
//
//	{
//	  "remote": "grpc",
//	  "server_addr": "127.0.0.1:50051",
//	  "db_path": "/home/me/.config/timekeeper/timekeeper.db",
//	  "sync_interval": "30s",
//	  "gc_retention": "168h"
//	}
package config
