package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"pcsync/internal/preflight"
)

// Checks whose failure does not block a sync are reported as warnings.
var advisoryChecks = map[string]bool{
	"Stored token": true,
}

// statusGroups orders preflight results under headings. Results not listed
// land under "Other".
var statusGroups = []struct {
	title string
	names []string
}{
	{"Storage", []string{"Cache directory", "Output directory", "State directory"}},
	{"Pocket Casts account", []string{"Account", "Stored token"}},
	{"Network", []string{"Login API", "Podcast API"}},
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var network bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check directories, credentials and (optionally) API reachability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			out := cmd.OutOrStdout()
			results := preflight.RunAll(cmd.Context(), cfg, preflight.Options{Network: network})
			if failed := writeStatusReport(out, results, useColor(out)); failed > 0 {
				return errors.New("pcsync is not ready to sync; fix the failed checks above")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&network, "network", false, "Also check that the Pocket Casts API endpoints are reachable")
	return cmd
}

func checkStateOf(r preflight.Result) checkState {
	switch {
	case r.Passed:
		return checkPassed
	case advisoryChecks[r.Name]:
		return checkWarned
	default:
		return checkFailed
	}
}

// writeStatusReport prints grouped results plus a tally and returns the number
// of blocking failures.
func writeStatusReport(out io.Writer, results []preflight.Result, colorize bool) int {
	byName := make(map[string]preflight.Result, len(results))
	for _, r := range results {
		byName[r.Name] = r
	}
	printed := make(map[string]bool, len(results))
	counts := make(map[checkState]int, 3)

	var lines []string
	emit := func(title string, group []preflight.Result) {
		if len(group) == 0 {
			return
		}
		if len(lines) > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, renderGroupTitle(title, colorize))
		for _, r := range group {
			state := checkStateOf(r)
			counts[state]++
			printed[r.Name] = true
			lines = append(lines, renderCheck(r.Name, state, r.Detail, colorize))
		}
	}

	for _, g := range statusGroups {
		var group []preflight.Result
		for _, name := range g.names {
			if r, ok := byName[name]; ok {
				group = append(group, r)
			}
		}
		emit(g.title, group)
	}
	var rest []preflight.Result
	for _, r := range results {
		if !printed[r.Name] {
			rest = append(rest, r)
		}
	}
	emit("Other", rest)

	lines = append(lines, "", renderTally(counts, colorize))
	fmt.Fprintln(out, strings.Join(lines, "\n"))
	return counts[checkFailed]
}
