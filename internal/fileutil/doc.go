// Package fileutil holds the write-to-temp-then-rename helpers that keep every
// visible file in the cache and output directories complete.
package fileutil
