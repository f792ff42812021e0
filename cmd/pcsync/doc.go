// Package main hosts the pcsync CLI entrypoint and command graph.
//
// The Cobra command tree turns terminal invocations into sync runs, stored
// credential maintenance, cache inspection, preflight status checks, and
// configuration scaffolding. It centralizes configuration resolution and
// structured logging setup so subcommands can focus on user experience
// instead of wiring.
//
// Keep this package lean: new behaviour belongs in the internal packages
// first and is surfaced here through dedicated commands or flags.
package main
