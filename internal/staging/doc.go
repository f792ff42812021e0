// Package staging removes incomplete temp files that an interrupted run left
// in the cache or output directory.
package staging
