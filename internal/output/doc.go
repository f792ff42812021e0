// Package output stages cached episodes into the output directory under
// sequence-numbered sanitized names, optionally rewrites their ID3 tags, and
// writes the M3U playlist that enumerates them.
//
// Every file is published through a temp file and rename, so a device synced
// from the output directory never sees a half-copied episode.
package output
