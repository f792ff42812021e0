// Package services defines shared utilities consumed by the sync pipeline
// stages and the Pocket Casts integration.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, and episode UUIDs for
//     logging.
//   - Structured error markers plus the Wrap helper that let the runner decide
//     whether a failure aborts the run or only skips one episode.
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
