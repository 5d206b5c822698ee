package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"warehouse-backend/internal/config"
	"warehouse-backend/internal/database"
	"warehouse-backend/internal/observability"
	"warehouse-backend/internal/validation"

	"github.com/spf13/cobra"
)

var buildTime = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "warehouse",
		Short:         "Warehouse order fulfillment and inventory reconciliation API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API (default)",
			RunE: func(cmd *cobra.Command, args []string) error {
				return serve()
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create or update the database schema",
			RunE: func(cmd *cobra.Command, args []string) error {
				return migrate()
			},
		},
		reconcileCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Printf("%s version %s (build: %s)\n", observability.ServiceName, observability.ServiceVersion, buildTime)
			},
		},
	)
	return cmd
}

func loadConfig() *config.Config {
	cfg := config.Load()
	config.SetLogLevel(cfg.LogLevel)
	validation.SetDefaultCountry(cfg.DefaultCountryCode)
	return cfg
}

func serve() error {
	cfg := loadConfig()
	cfg.Validate()
	logger := config.GetLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, shutdownTracing, err := observability.SetupTracing(ctx, cfg)
	if err != nil {
		logger.WithError(err).Warn("tracing disabled")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	a, err := build(ctx, cfg, tp)
	if err != nil {
		return err
	}
	defer a.close()

	srv := newServer(a)
	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		_ = srv.ShutdownWithTimeout(10 * time.Second)
	}()

	logger.WithField("port", cfg.HTTPPort).WithField("store", cfg.StoreDriver).Info("warehouse API listening")
	return srv.Listen(":" + cfg.HTTPPort)
}

func migrate() error {
	cfg := loadConfig()
	if err := database.Init(cfg); err != nil {
		return err
	}
	return database.Migrate(database.DB)
}

func reconcileCmd() *cobra.Command {
	var failOnFindings bool
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Check stored quantities and totals against the journal and receipts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			a, err := build(cmd.Context(), cfg, nil)
			if err != nil {
				return err
			}
			defer a.close()

			rep, err := a.checker.Run(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(rep); err != nil {
				return err
			}
			if failOnFindings && !rep.OK() {
				return fmt.Errorf("%d discrepancies found", len(rep.Findings))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&failOnFindings, "fail", true, "exit non-zero when discrepancies are found")
	return cmd
}
