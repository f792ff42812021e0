package main

import (
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"pcsync/internal/config"
	"pcsync/internal/logging"
	"pcsync/internal/services"
	"pcsync/internal/syncrun"
)

type syncFlags struct {
	podcast      string
	output       string
	retag        bool
	number       int
	minMinutes   int
	playlistName string
	clearCache   bool
	clearOut     bool
}

func newSyncCommand(ctx *commandContext) *cobra.Command {
	var flags syncFlags

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Download the latest episodes and stage them with a playlist",
		Long: `Authenticate with Pocket Casts, resolve the newest episodes (or one show's
catalog with --podcast), download what is not cached yet, and copy the
episodes into the output directory with numbered names and an M3U playlist.

Episodes that fail to download or stage are skipped and retried on the next
run; the command still exits zero. Configuration, authentication, resolution
and storage failures abort the run with a non-zero exit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			runCfg, err := applySyncOverrides(cmd, cfg, flags)
			if err != nil {
				return err
			}
			return runSync(cmd, ctx, runCfg, buildSyncRequest(cmd, runCfg, flags))
		},
	}

	cmd.Flags().StringVar(&flags.podcast, "podcast", "", "Sync one show by podcast UUID instead of new releases")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Output directory for staged episodes")
	cmd.Flags().BoolVar(&flags.retag, "retag", false, "Rewrite ID3 tags on staged copies")
	cmd.Flags().IntVarP(&flags.number, "number", "n", 30, "Maximum number of episodes to sync (0 for no limit)")
	cmd.Flags().IntVar(&flags.minMinutes, "min-podcast-length", 0, "Skip episodes shorter than this many minutes")
	cmd.Flags().StringVar(&flags.playlistName, "m3u-filename", "playlist.m3u", "Playlist file name inside the output directory")
	cmd.Flags().BoolVar(&flags.clearCache, "clear-cache", false, "Remove cached downloads once staged")
	cmd.Flags().BoolVar(&flags.clearOut, "clear-out", false, "Remove media and playlists from the output directory before staging")

	return cmd
}

// applySyncOverrides returns a copy of cfg with flag-level path overrides applied.
func applySyncOverrides(cmd *cobra.Command, cfg *config.Config, flags syncFlags) (*config.Config, error) {
	runCfg := *cfg
	if cmd.Flags().Changed("output") {
		dir, err := config.ExpandPath(strings.TrimSpace(flags.output))
		if err != nil {
			return nil, fmt.Errorf("resolve --output: %w", err)
		}
		runCfg.Paths.OutputDir = dir
	}
	if cmd.Flags().Changed("m3u-filename") {
		runCfg.Sync.PlaylistName = strings.TrimSpace(flags.playlistName)
	}
	if err := runCfg.Validate(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "sync", "flags", "invalid override", err)
	}
	return &runCfg, nil
}

func buildSyncRequest(cmd *cobra.Command, cfg *config.Config, flags syncFlags) syncrun.Request {
	req := syncrun.RequestFromConfig(cfg)
	req.ShowUUID = strings.TrimSpace(flags.podcast)
	changed := cmd.Flags().Changed
	if changed("number") {
		req.Limit = flags.number
	}
	if changed("min-podcast-length") {
		req.MinMinutes = flags.minMinutes
	}
	if changed("retag") {
		req.Retag = flags.retag
	}
	if changed("clear-cache") {
		req.EvictCache = flags.clearCache
	}
	if changed("clear-out") {
		req.ClearOutput = flags.clearOut
	}
	return req
}

func runSync(cmd *cobra.Command, ctx *commandContext, cfg *config.Config, req syncrun.Request) error {
	signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := syncrun.NewRunID()
	logger, logPath, err := logging.NewFromConfig(cfg, runID, ctx.logLevel())
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, logging.RetentionTarget{
		Dir:     cfg.Paths.LogDir,
		Pattern: logging.RunLogPrefix + "*.log",
		Exclude: []string{logPath},
	})

	runner, err := syncrun.New(cfg, logger, syncrun.WithRunID(runID))
	if err != nil {
		return err
	}
	summary, runErr := runner.Run(signalCtx, req)

	out := cmd.OutOrStdout()
	printSyncSummary(out, summary, logPath)
	if runErr != nil {
		if errors.Is(runErr, services.ErrLocked) {
			return fmt.Errorf("%w (remove %s only if no other pcsync is running)", runErr, syncrun.LockFileName)
		}
		return runErr
	}
	return nil
}

func printSyncSummary(out io.Writer, summary syncrun.Summary, logPath string) {
	rows := [][]string{
		{"Mode", summary.Mode},
		{"Resolved", strconv.Itoa(summary.Resolved)},
		{"Already cached", strconv.Itoa(summary.Cached)},
		{"Downloaded", strconv.Itoa(summary.Downloaded)},
		{"Download failures", strconv.Itoa(summary.DownloadFailures)},
		{"Staged", strconv.Itoa(summary.Staged)},
		{"Stage failures", strconv.Itoa(summary.StageFailures)},
	}
	if summary.OutputCleared > 0 {
		rows = append(rows, []string{"Output files cleared", strconv.Itoa(summary.OutputCleared)})
	}
	if summary.PlaylistPath != "" {
		rows = append(rows, []string{"Playlist", fmt.Sprintf("%s (%s)", summary.PlaylistPath,
			humanize.Comma(int64(summary.PlaylistEntries))+" entries")})
	}
	rows = append(rows, []string{"Elapsed", summary.Duration.Round(time.Millisecond).String()})
	if logPath != "" {
		rows = append(rows, []string{"Log", logPath})
	}
	fmt.Fprintf(out, "Sync %s\n", summary.RunID)
	fmt.Fprintln(out, renderTable([]string{"Item", "Value"}, rows, []columnAlignment{alignLeft, alignRight}))

	if len(summary.Failures) == 0 {
		return
	}
	failures := make([][]string, 0, len(summary.Failures))
	for _, f := range summary.Failures {
		failures = append(failures, []string{f.Stage, f.Show, f.Title, services.Kind(f.Err), errorText(f.Err)})
	}
	fmt.Fprintln(out, "Skipped episodes (retried next run):")
	fmt.Fprintln(out, renderTable([]string{"Stage", "Show", "Episode", "Kind", "Error"}, failures, nil))
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
