// Package episodes resolves the candidate list for a sync run, either from
// the account's new releases or from a single show's catalog, and applies the
// minimum-duration filter and the episode limit in that order.
package episodes
