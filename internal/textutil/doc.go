// Package textutil provides filename sanitization for staged episode files
// and other path segments derived from remote metadata.
package textutil
