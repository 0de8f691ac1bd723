// Package models defines the client-side entities (domains, tags and time
// slots), their shared lifecycle fields and the Record envelope exchanged
// with a remote store during sync.
package models
