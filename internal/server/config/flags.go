package config

import (
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/timekeeper/internal/flagx"
)

// parseFlags overlays config with command-line flags.
//
// Supported flags:
//
//	-a string     gRPC bind address (e.g., ":50051")
//	-d string     PostgreSQL DSN; empty keeps records in memory
//	-s string     JWT HMAC secret key
//	-t duration   access token validity (e.g., "720h")
//	-o string     OTLP/HTTP trace endpoint
//	-issue string print an access token for this user id and exit
//
// -c/-config is consumed by parseJson and filtered out here.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-d", "-s", "-t", "-o", "-issue"})

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.DurationVar(&config.AccessTokenValidityDuration, "t", config.AccessTokenValidityDuration, "access token validity")
	fs.StringVar(&config.OTelEndpoint, "o", config.OTelEndpoint, "OTLP/HTTP trace endpoint")
	fs.StringVar(&config.IssueFor, "issue", config.IssueFor, "print an access token for the user id and exit")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}
