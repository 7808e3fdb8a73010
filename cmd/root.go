// Package cmd implements the dealdates CLI commands.
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/theirongolddev/dealdates/internal/config"
	"github.com/theirongolddev/dealdates/internal/dates"
	"github.com/theirongolddev/dealdates/internal/logging"
	"github.com/theirongolddev/dealdates/internal/model"
	"github.com/theirongolddev/dealdates/internal/pipeline"
	"github.com/theirongolddev/dealdates/internal/store"
)

var (
	flagDB      string
	flagToday   string
	flagQuiet   bool
	flagVerbose bool
)

var (
	appCfg config.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "dealdates",
	Short: "Important dates for real-estate transactions",
	Long: "Track contract milestones, business-day deadlines and task reminders\n" +
		"for real-estate transactions.",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		_ = logger.Sync()
	},
	RunE: runSummary,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "SQLite database path (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagToday, "today", "", "Treat this YYYY-MM-DD date as today")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Debug logging to stderr")
}

// setup loads config and builds the CLI logger before any command runs.
func setup(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	appCfg = cfg

	log, err := logging.New(logging.CLI, flagVerbose)
	if err != nil {
		return err
	}
	logger = log
	return nil
}

// openStore opens the configured backend. --db always selects SQLite.
func openStore(ctx context.Context) (store.Store, error) {
	if flagDB == "" && appCfg.Store.Driver == config.DriverPostgres {
		dsn := appCfg.PostgresDSN()
		if dsn == "" {
			return nil, fmt.Errorf("store driver is postgres but no dsn is configured (set store.dsn or DEALDATES_PG_DSN)")
		}
		return store.OpenPostgres(ctx, dsn, logger)
	}

	path := flagDB
	if path == "" {
		path = appCfg.DBPath()
	}
	return store.OpenSQLite(path, logger)
}

// withStore runs fn with an open store and closes it afterwards.
func withStore(cmd *cobra.Command, fn func(ctx context.Context, st store.Store) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()
	return fn(ctx, st)
}

// today returns --today or the current date in the configured zone.
func today() (time.Time, error) {
	if flagToday != "" {
		d, err := dates.Parse(flagToday)
		if err != nil {
			return time.Time{}, fmt.Errorf("--today: %w", err)
		}
		return d, nil
	}
	return dates.Today(appCfg.Location()), nil
}

func catalog() (model.Catalog, error) {
	return appCfg.Catalog()
}

// loadDeals projects every transaction as of today.
func loadDeals(ctx context.Context, st store.Store) ([]pipeline.Deal, model.Catalog, time.Time, error) {
	cat, err := catalog()
	if err != nil {
		return nil, nil, time.Time{}, err
	}
	now, err := today()
	if err != nil {
		return nil, nil, time.Time{}, err
	}
	deals, err := pipeline.LoadDeals(ctx, st, cat, now)
	if err != nil {
		return nil, nil, time.Time{}, err
	}
	logger.Debug("deals loaded", zap.Int("count", len(deals)), zap.String("today", dates.Format(now)))
	return deals, cat, now, nil
}

// loadDeal projects the transaction matching ref.
func loadDeal(ctx context.Context, st store.Store, ref string) (pipeline.Deal, model.Catalog, time.Time, error) {
	cat, err := catalog()
	if err != nil {
		return pipeline.Deal{}, nil, time.Time{}, err
	}
	now, err := today()
	if err != nil {
		return pipeline.Deal{}, nil, time.Time{}, err
	}
	txn, err := store.Resolve(ctx, st, ref)
	if err != nil {
		return pipeline.Deal{}, nil, time.Time{}, err
	}
	rec, err := st.LoadRecord(ctx, txn.ID)
	if err != nil {
		return pipeline.Deal{}, nil, time.Time{}, err
	}
	tasks, err := st.ListTasks(ctx, txn.ID)
	if err != nil {
		return pipeline.Deal{}, nil, time.Time{}, err
	}
	return pipeline.NewDeal(rec, tasks, cat, now), cat, now, nil
}

// progress prints a status line to stderr unless --quiet.
func progress(format string, args ...any) {
	if flagQuiet {
		return
	}
	fmt.Fprintf(os.Stderr, format, args...)
}
