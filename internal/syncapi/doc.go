// Package syncapi is the wire contract between the timekeeper client and
// the sync server: request/response messages, a JSON codec for them and the
// gRPC service description both sides register against.
//
// Messages travel as JSON under the "timekeeper-json" content-subtype. Protobuf
// messages that share the connection (the standard health service) keep
// working because the codec falls back to protojson for them.
package syncapi
