package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"organisekaro/backend/internal/app"
	"organisekaro/backend/internal/config"
	"organisekaro/backend/internal/logger"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	var dataDir string

	root := &cobra.Command{
		Use:           "posctl",
		Short:         "Maintenance commands for the Organise Karo data store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&dataDir, "data-dir", "", "override DATA_DIR for the file persister")

	// withApp hydrates the store, runs fn and flushes before returning.
	withApp := func(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if dataDir != "" {
			cfg.DataDir = dataDir
		}
		log := logger.NewWithWriter(logger.Config{Level: cfg.LogLevel, Format: "console"}, cmd.ErrOrStderr())

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		a, err := app.Build(ctx, cfg, log)
		if err != nil {
			return err
		}
		runErr := fn(ctx, a)
		if err := a.Close(ctx); err != nil && runErr == nil {
			runErr = err
		}
		return runErr
	}

	var outPath string
	backup := &cobra.Command{
		Use:   "backup",
		Short: "Export the full data document as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				name, doc, err := a.Service.Backup(ctx)
				if err != nil {
					return err
				}
				target := outPath
				if target == "" {
					target = name
				} else if info, err := os.Stat(target); err == nil && info.IsDir() {
					target = filepath.Join(target, name)
				}
				if err := os.WriteFile(target, doc, 0o644); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "backup written to %s\n", target)
				return nil
			})
		},
	}
	backup.Flags().StringVarP(&outPath, "out", "o", "", "output file or directory")

	restore := &cobra.Command{
		Use:   "restore <file>",
		Short: "Replace all data with a backup document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				resp, err := a.Service.Restore(ctx, data)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "restored %d items, %d parties, %d invoices\n", resp.Inventory, resp.Parties, resp.Invoices)
				return nil
			})
		},
	}

	var confirm bool
	reset := &cobra.Command{
		Use:   "reset",
		Short: "Discard all data and restore the starting dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !confirm {
				return errors.New("reset erases all data; pass --yes to confirm")
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				a.Service.Reset(ctx)
				fmt.Fprintln(cmd.OutOrStdout(), "data reset to defaults")
				return nil
			})
		},
	}
	reset.Flags().BoolVar(&confirm, "yes", false, "confirm the reset")

	summary := &cobra.Command{
		Use:   "summary",
		Short: "Print the dashboard summary as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(a.Service.Dashboard(ctx))
			})
		},
	}

	root.AddCommand(backup, restore, reset, summary)
	return root
}
