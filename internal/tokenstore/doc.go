// Package tokenstore persists the Pocket Casts bearer token in a small SQLite
// database so consecutive runs can skip the login call while it is valid.
//
// The database holds at most one row per service name in the auth table.
// Writes are wholesale: Replace deletes every row and inserts the new
// credential inside one transaction, and nothing is ever updated in place.
// Expired credentials are left untouched until the next Replace.
package tokenstore
