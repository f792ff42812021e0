// Package auth produces a Pocket Casts bearer token for a sync run.
//
// Authenticate reuses the stored credential while it is unexpired and
// otherwise logs in with the configured account, replacing the stored
// credential wholesale. A cache hit or a failed login never writes to the
// store; a successful refresh writes exactly once.
package auth
