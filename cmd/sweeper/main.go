package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tprmgrc/internal/config"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		envFile  string
		interval time.Duration
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "sweeper",
		Short: "Expire overdue approvals and lapsed contracts",
		Long: `Moves ASSIGNED and IN_PROGRESS approvals past their due date to EXPIRED
and ACTIVE contracts past their end date to EXPIRED. Runs once unless
--interval is given.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if envFile != "" {
				if err := godotenv.Load(envFile); err != nil {
					return fmt.Errorf("loading %s: %w", envFile, err)
				}
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, interval, limit)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Load environment from this file first")
	cmd.Flags().DurationVar(&interval, "interval", 0, "Repeat every interval until interrupted (0 runs once)")
	cmd.Flags().IntVar(&limit, "limit", 500, "Max rows handled per pass")

	return cmd
}

func run(ctx context.Context, interval time.Duration, limit int) error {
	cfg, err := config.NewConfig()
	if err != nil {
		return fmt.Errorf("creating config: %w", err)
	}
	defer cfg.CloseAll()

	if err := sweep(ctx, cfg, limit); err != nil || interval <= 0 {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := sweep(ctx, cfg, limit); err != nil {
				cfg.Log().Error("sweep failed", err)
			}
		}
	}
}

// sweep runs one pass of both expiries
func sweep(ctx context.Context, cfg *config.App, limit int) error {
	started := time.Now()

	approvals, err := cfg.Approvals.ExpireOverdue(ctx, started, limit)
	if err != nil {
		return fmt.Errorf("expiring approvals: %w", err)
	}
	contracts, err := cfg.Contracts.ExpireLapsed(ctx, limit)
	if err != nil {
		return fmt.Errorf("expiring contracts: %w", err)
	}
	cfg.Bus.Wait()

	cfg.Log().Info("sweep done", map[string]interface{}{
		"approvals_expired": approvals,
		"contracts_expired": contracts,
		"duration_ms":       time.Since(started).Milliseconds(),
	})
	return nil
}
