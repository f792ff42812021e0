// Package syncrun drives one end-to-end sync: prepare the directories, take
// the run lock, authenticate, resolve candidates, reconcile the cache,
// download what is missing, stage every cached episode, and write the
// playlist.
//
// Fatal failures (storage, authentication, resolution, a held lock) abort the
// run and are returned. Per-episode download and stage failures are logged,
// recorded in the Summary, and skipped. Files already staged when a run aborts
// stay in place.
package syncrun
