package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"pcsync/internal/tokenstore"
)

func newAuthCommand(ctx *commandContext) *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Inspect or drop the stored Pocket Casts credential",
	}
	authCmd.AddCommand(newAuthStatusCommand(ctx))
	authCmd.AddCommand(newAuthClearCommand(ctx))
	return authCmd
}

func newAuthStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether a valid token is stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			out := cmd.OutOrStdout()
			dbPath := cfg.TokenDBPath()

			rows := [][]string{
				{"Account", valueOrNone(cfg.Account.Username)},
				{"Password set", yesNo(cfg.Account.Password != "")},
				{"Token store", dbPath},
			}
			if _, err := os.Stat(dbPath); os.IsNotExist(err) {
				rows = append(rows, []string{"Token", "none"})
				fmt.Fprintln(out, renderTable([]string{"Item", "Value"}, rows, nil))
				return nil
			}

			store, err := tokenstore.Open(dbPath)
			if err != nil {
				return fmt.Errorf("open token store: %w", err)
			}
			defer store.Close()
			cred, err := store.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("read token: %w", err)
			}

			switch {
			case !cred.Present():
				rows = append(rows, []string{"Token", "none"})
			case cred.Valid(time.Now()):
				rows = append(rows,
					[]string{"Token", "valid"},
					[]string{"Expires", fmt.Sprintf("%s (%s)", cred.ExpiresAt.Local().Format(time.DateTime), humanize.Time(cred.ExpiresAt))},
				)
			default:
				rows = append(rows,
					[]string{"Token", "expired"},
					[]string{"Expired", humanize.Time(cred.ExpiresAt)},
				)
			}
			fmt.Fprintln(out, renderTable([]string{"Item", "Value"}, rows, nil))
			return nil
		},
	}
}

func newAuthClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the stored token so the next sync logs in again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			store, err := tokenstore.Open(cfg.TokenDBPath())
			if err != nil {
				return fmt.Errorf("open token store: %w", err)
			}
			defer store.Close()
			if err := store.Clear(cmd.Context()); err != nil {
				return fmt.Errorf("clear token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Stored token cleared")
			return nil
		},
	}
}

func valueOrNone(value string) string {
	if value == "" {
		return "none"
	}
	return value
}
