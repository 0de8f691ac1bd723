// Package client holds the client's connections to the outside world: the
// local SQLite database bootstrap (InitDatabase, RunMigrations) and the
// RemoteStore implementations a sync cycle talks to.
//
// Two remotes exist. GRPCClient speaks to the timekeeper sync server and
// authenticates every call with the signed-in user's access token.
// S3Client keeps records as JSON objects in an S3-compatible bucket and
// applies the same acceptance rule as the server on push.
//
// Network failures surface as *common.TransportError, auth failures as
// common.ErrUnauthorized, so callers can match with errors.Is.
package client
