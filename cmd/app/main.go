package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"FinLoad/internal/di"
	"FinLoad/internal/domain/models"
	"FinLoad/internal/usecase"
	"FinLoad/pkg/config"
	"FinLoad/pkg/util"
)

// exitFailedSymbols is returned by "run --fail-on-error" when any symbol failed.
const exitFailedSymbols = 2

var (
	configPath string
	cfg        *config.Config
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "finload",
		Short:         "Historical price ingestion from Twelve Data",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.LoadWithEnv(configPath)
			if err != nil {
				return fmt.Errorf("config load failed: %w", err)
			}
			cfg = c
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config/config.yaml", "config file path")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	var ee exitError
	switch {
	case errors.As(err, &ee):
		os.Exit(int(ee))
	case err != nil:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type exitError int

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", int(e)) }

func runCmd() *cobra.Command {
	var (
		start, end, interval, symbolsFile string
		failOnError                       bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch and store bars for every symbol in the symbols file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.RequireProvider(); err != nil {
				return err
			}
			if interval == "" {
				interval = cfg.Ingest.Interval
			}
			if symbolsFile == "" {
				symbolsFile = cfg.Ingest.SymbolsFile
			}

			rc, err := models.NewRunConfig(start, end, interval, cfg.Provider.OutputSize)
			if err != nil {
				return err
			}
			rc.Workers = cfg.Ingest.Workers
			rc.SkipBadRows = cfg.Ingest.SkipBadRows
			rc.RunTimeout = cfg.Ingest.RunTimeout

			symbols, err := util.ReadSymbols(symbolsFile)
			if err != nil {
				return fmt.Errorf("symbols file: %w", err)
			}

			app, cleanup, err := di.InitializeApp(cfg)
			if err != nil {
				return fmt.Errorf("app initialization failed: %w", err)
			}
			defer cleanup()

			report, err := app.Ingest(cmd.Context(), rc, symbols)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), usecase.FormatSummary(report))

			if failOnError && report.Failed() > 0 {
				return exitError(exitFailedSymbols)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "first calendar date, YYYY-MM-DD")
	cmd.Flags().StringVar(&end, "end", "", "last calendar date, YYYY-MM-DD (inclusive)")
	cmd.Flags().StringVar(&interval, "interval", "", "bar interval (default from config, 1h)")
	cmd.Flags().StringVar(&symbolsFile, "symbols", "", "symbols file, one ticker per line (default from config, stocks.txt)")
	cmd.Flags().BoolVar(&failOnError, "fail-on-error", false, "exit with status 2 if any symbol failed")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve stored prices and metrics over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cleanup, err := di.InitializeApp(cfg)
			if err != nil {
				return fmt.Errorf("app initialization failed: %w", err)
			}
			defer cleanup()

			if err := app.Migrate(cmd.Context()); err != nil {
				return err
			}
			return app.Serve(cmd.Context())
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the price table if missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cleanup, err := di.InitializeApp(cfg)
			if err != nil {
				return fmt.Errorf("app initialization failed: %w", err)
			}
			defer cleanup()
			return app.Migrate(cmd.Context())
		},
	}
}
