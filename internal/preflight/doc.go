// Package preflight runs the environment checks behind `pcsync status` and
// the directory access check the sync runner performs before touching the
// cache and output directories.
package preflight
