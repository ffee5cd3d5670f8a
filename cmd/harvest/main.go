package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quantfold/harvest/internal/runner"
	"github.com/quantfold/harvest/pkg/collector"
	"github.com/quantfold/harvest/pkg/config"
	"github.com/quantfold/harvest/pkg/logger"
	"github.com/quantfold/harvest/pkg/registry"
	"github.com/quantfold/harvest/pkg/store"

	// Import all providers to register their collectors
	_ "github.com/quantfold/harvest/pkg/source/alphavantage"
	_ "github.com/quantfold/harvest/pkg/source/bea"
	_ "github.com/quantfold/harvest/pkg/source/bls"
	_ "github.com/quantfold/harvest/pkg/source/fiscaldata"
	_ "github.com/quantfold/harvest/pkg/source/fred"
	_ "github.com/quantfold/harvest/pkg/source/investing"
	_ "github.com/quantfold/harvest/pkg/source/marketwatch"
	_ "github.com/quantfold/harvest/pkg/source/multpl"
	_ "github.com/quantfold/harvest/pkg/source/ons"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	var (
		databaseURL string
		logLevel    string
		configFile  string
		exit        int
	)

	root := &cobra.Command{
		Use:   "harvest",
		Short: "Harvest - incremental economic data collection",
		Long: `Harvest pulls economic and market time series from public providers
(FRED, BLS, BEA, Treasury FiscalData, ONS, and others) and keeps a
PostgreSQL sink up to date through watermark-driven incremental
collection. Without --database-url it runs dry: everything is fetched
and counted, nothing is stored.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config.SetOverridesPath(configFile)
			return logger.Init(logger.Config{Level: logLevel, Encoding: "console"})
		},
	}

	root.PersistentFlags().StringVar(&databaseURL, "database-url",
		os.Getenv("DATABASE_URL"), "PostgreSQL connection URL (empty = dry run)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&configFile, "config",
		os.Getenv("HARVEST_CONFIG"), "YAML file with collector config overrides")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Harvest v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List available collectors",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Available collectors:")
			for _, entry := range registry.List() {
				fmt.Printf("  %-22s %-13s %s\n", entry.Name, entry.Provider, entry.Description)
			}
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "init-config <path>",
		Short: "Write the default collector configuration to a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.Save(args[0], config.NewConfig("default", ""))
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "collect <name>",
		Short: "Run one collector",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(databaseURL, func(ctx context.Context, r *runner.Runner) error {
				res, err := r.RunOne(ctx, args[0])
				if err != nil {
					return err
				}
				printResult(res)
				exit = exitCode([]*collector.CollectionResult{res})
				return nil
			})
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "collect-all",
		Short: "Run every registered collector",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(databaseURL, func(ctx context.Context, r *runner.Runner) error {
				results := r.RunAll(ctx)
				for _, res := range results {
					printResult(res)
				}
				exit = exitCode(results)
				return nil
			})
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "recompute <name>",
		Short: "Rebuild derived fields for one collector from stored history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(databaseURL, func(ctx context.Context, r *runner.Runner) error {
				res, err := r.RecomputeOne(ctx, args[0])
				if err != nil {
					return err
				}
				printResult(res)
				exit = exitCode([]*collector.CollectionResult{res})
				return nil
			})
		},
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	os.Exit(exit)
}

// withRunner opens the sink, runs fn under a signal-aware context,
// and closes the sink afterwards.
func withRunner(databaseURL string, fn func(context.Context, *runner.Runner) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.Get()
	defer func() { _ = logger.Sync() }()

	st, err := store.New(ctx, databaseURL, log)
	if err != nil {
		return err
	}
	defer st.Close()

	return fn(ctx, runner.New(st, log))
}

func printResult(res *collector.CollectionResult) {
	fmt.Printf("%-22s %-16s fetched=%-6d written=%-6d dropped=%-5d elapsed=%s\n",
		res.Series, res.Status, res.RecordsFetched, res.RecordsWritten,
		res.RecordsDropped, res.Elapsed.Round(time.Millisecond))
	for _, f := range res.Failures {
		fmt.Printf("  failed window %s: %v\n", f.Window, f.Err)
	}
	for _, w := range res.NotAttempted {
		fmt.Printf("  not attempted: %s\n", w)
	}
	if res.Err != nil {
		fmt.Printf("  error: %v\n", res.Err)
	}
	if res.Status == collector.StatusFailed {
		logger.Get().Error("collection failed",
			zap.String("series", res.Series), zap.Error(res.Err))
	}
}

// exitCode maps run outcomes to process exit codes: 0 when everything
// committed or there was nothing new, 2 when some windows failed, 1
// when a run failed outright.
func exitCode(results []*collector.CollectionResult) int {
	code := 0
	for _, res := range results {
		switch res.Status {
		case collector.StatusFailed:
			return 1
		case collector.StatusPartialFailure:
			code = 2
		}
	}
	return code
}
