package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"pcsync/internal/cache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the episode download cache",
	}
	cacheCmd.AddCommand(newCacheListCommand(ctx))
	return cacheCmd
}

func newCacheListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached episodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			entries, err := cache.List(cfg.Paths.CacheDir)
			if err != nil {
				return fmt.Errorf("list cache: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintf(out, "Cache %s is empty\n", cfg.Paths.CacheDir)
				return nil
			}

			var total int64
			rows := make([][]string, 0, len(entries))
			for i, e := range entries {
				total += e.Size
				rows = append(rows, []string{
					fmt.Sprintf("%d", i+1),
					e.UUID,
					humanize.Bytes(uint64(e.Size)),
					humanize.Time(e.ModTime),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Episode", "Size", "Modified"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft},
			))
			fmt.Fprintf(out, "%d episodes, %s in %s\n", len(entries), humanize.Bytes(uint64(total)), cfg.Paths.CacheDir)
			return nil
		},
	}
}
