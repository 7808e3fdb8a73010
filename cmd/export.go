package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/dealdates/internal/ics"
	"github.com/theirongolddev/dealdates/internal/pipeline"
	"github.com/theirongolddev/dealdates/internal/store"
)

var (
	flagExportOut   string
	flagExportTasks bool
	flagExportAlarm int
)

var exportCmd = &cobra.Command{
	Use:   "export [txn]",
	Short: "Export milestones as an iCalendar (.ics) feed",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&flagExportOut, "out", "o", "", "Output file (default stdout)")
	exportCmd.Flags().BoolVar(&flagExportTasks, "tasks", false, "Include open task reminders")
	exportCmd.Flags().IntVar(&flagExportAlarm, "alarm-days", 0, "Reminder lead time in days (default from config, -1 disables)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	return withStore(cmd, func(ctx context.Context, st store.Store) error {
		var deals []pipeline.Deal
		name := "Important Dates"
		if len(args) == 1 {
			d, _, _, err := loadDeal(ctx, st, args[0])
			if err != nil {
				return err
			}
			deals = []pipeline.Deal{d}
			name = d.Txn.ShortAddress()
		} else {
			all, _, _, err := loadDeals(ctx, st)
			if err != nil {
				return err
			}
			deals = all
		}

		opts := ics.Options{
			Name:         name,
			AlarmDays:    appCfg.Calendar.AlarmDays,
			IncludeTasks: appCfg.Calendar.IncludeTasks || flagExportTasks,
		}
		if cmd.Flags().Changed("alarm-days") {
			opts.AlarmDays = flagExportAlarm
		}

		var w io.Writer = os.Stdout
		if flagExportOut != "" && flagExportOut != "-" {
			f, err := os.Create(flagExportOut)
			if err != nil {
				return fmt.Errorf("creating %s: %w", flagExportOut, err)
			}
			defer func() { _ = f.Close() }()
			w = f
		}

		if err := ics.Export(w, deals, opts); err != nil {
			return err
		}
		if flagExportOut != "" && flagExportOut != "-" {
			progress("  Wrote %d event(s) to %s\n", ics.Count(deals, opts), flagExportOut)
		}
		return nil
	})
}
