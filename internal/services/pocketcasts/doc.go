// Package pocketcasts implements the small slice of the Pocket Casts web API
// that pcsync needs: password login, the signed-in user's new releases, and a
// single podcast's full episode catalog.
//
// Responses are decoded into explicit record types. Entries without a uuid or
// url are skipped and logged, missing titles become empty strings, and the
// duration field accepts a number, a numeric string, or null (null means the
// episode length is unknown and is reported as zero).
package pocketcasts
