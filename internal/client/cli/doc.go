// Package cli provides the timekeeper command-line client.
//
// App wires configuration, the local store, the auth session and the
// optional remote. Without a sub-command the root command opens a REPL
// (App.Root) while the online watcher and the background sync ticker run
// alongside it. Sub-commands such as "stats" or "sync" run once and exit.
//
// Records are referred to by id, unique id prefix or name, so
// "domains rename work Deep Work" and "domains rename 3f2a Deep Work" are
// equivalent when unambiguous.
package cli
