// Package cache manages the episode cache directory: a flat directory of
// completed downloads, each named by its episode UUID with no extension.
// Presence of a file means the download finished; partial downloads only ever
// exist under hidden temp names.
package cache
