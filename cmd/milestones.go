package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/theirongolddev/dealdates/internal/cli"
	"github.com/theirongolddev/dealdates/internal/dates"
	"github.com/theirongolddev/dealdates/internal/model"
	"github.com/theirongolddev/dealdates/internal/pipeline"
	"github.com/theirongolddev/dealdates/internal/store"
)

var (
	flagMsStatus    string
	flagMsDate      string
	flagMsNotes     string
	flagMsOffset    string
	flagMsOverwrite bool
)

var milestonesCmd = &cobra.Command{
	Use:     "milestones <txn>",
	Aliases: []string{"ms"},
	Short:   "List a transaction's milestones in date order",
	Args:    cobra.ExactArgs(1),
	RunE:    runMilestones,
}

var boardCmd = &cobra.Command{
	Use:   "board <txn>",
	Short: "Group a transaction's milestones by status",
	Args:  cobra.ExactArgs(1),
	RunE:  runBoard,
}

var updateCmd = &cobra.Command{
	Use:   "update <txn> <milestone>",
	Short: "Set a milestone's date, status and notes",
	Long: "Set a milestone's date, status and notes. The three fields are written\n" +
		"together: omitted flags keep their stored value. --offset derives the date\n" +
		"from the milestone's base instead of taking --date.",
	Args: cobra.ExactArgs(2),
	RunE: runUpdate,
}

var deriveCmd = &cobra.Command{
	Use:   "derive <txn>",
	Short: "Fill milestone dates from their default offsets",
	Args:  cobra.ExactArgs(1),
	RunE:  runDerive,
}

func init() {
	updateCmd.Flags().StringVar(&flagMsDate, "date", "", "Date (YYYY-MM-DD); \"TBD\" clears it")
	updateCmd.Flags().StringVar(&flagMsStatus, "status", "", "Status: "+statusNames())
	updateCmd.Flags().StringVar(&flagMsNotes, "notes", "", "Free-form notes")
	updateCmd.Flags().StringVar(&flagMsOffset, "offset", "", "Days from the base milestone (e.g. 10, -3)")
	deriveCmd.Flags().BoolVar(&flagMsOverwrite, "overwrite", false, "Recompute milestones that already have a date")

	rootCmd.AddCommand(milestonesCmd, boardCmd, updateCmd, deriveCmd)
}

func runMilestones(cmd *cobra.Command, args []string) error {
	return withStore(cmd, func(ctx context.Context, st store.Store) error {
		d, _, _, err := loadDeal(ctx, st, args[0])
		if err != nil {
			return err
		}
		fmt.Println()
		fmt.Print(milestoneTable(d.Milestones, d.Txn.FullAddress()))
		return nil
	})
}

func runBoard(cmd *cobra.Command, args []string) error {
	return withStore(cmd, func(ctx context.Context, st store.Store) error {
		d, _, _, err := loadDeal(ctx, st, args[0])
		if err != nil {
			return err
		}

		fmt.Println()
		fmt.Println(cli.RenderTitle(d.Txn.FullAddress()))
		for _, g := range pipeline.GroupByStatus(d.Milestones) {
			fmt.Println()
			fmt.Printf("  %s (%d)\n", cli.RenderStatus(g.Status), len(g.Milestones))
			if len(g.Milestones) == 0 {
				fmt.Println("    " + cli.RenderMuted("none"))
				continue
			}
			for _, m := range g.Milestones {
				fmt.Printf("    %-10s  %-36s %s\n", m.DateLabel(), cli.Truncate(m.Label, 36),
					cli.RenderMuted(cli.FormatDaysRemaining(m.DaysRemaining)))
			}
		}
		return nil
	})
}

func runUpdate(cmd *cobra.Command, args []string) error {
	return withStore(cmd, func(ctx context.Context, st store.Store) error {
		cat, err := catalog()
		if err != nil {
			return err
		}
		def, err := cat.Must(args[1])
		if err != nil {
			return err
		}
		txn, err := store.Resolve(ctx, st, args[0])
		if err != nil {
			return err
		}
		rec, err := st.LoadRecord(ctx, txn.ID)
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		var edit milestoneEdit
		if flags.Changed("date") {
			edit.date = &flagMsDate
		}
		if flags.Changed("status") {
			edit.status = &flagMsStatus
		}
		if flags.Changed("notes") {
			edit.notes = &flagMsNotes
		}
		if flags.Changed("offset") {
			edit.offset = &flagMsOffset
		}
		u, err := edit.apply(currentUpdate(rec, def.Key))
		if err != nil {
			return err
		}

		patch, err := pipeline.NormalizeUpdate(def, u, rec.DateOf(def.Base))
		if err != nil {
			return err
		}
		if err := store.SaveMilestone(ctx, st, txn.ID, patch); err != nil {
			return err
		}
		logger.Info("milestone updated",
			zap.String("txn", txn.ID), zap.String("key", patch.Key), zap.String("status", string(patch.Status)))

		fmt.Printf("  Updated %s on %s\n", def.Label, txn.ShortAddress())
		fields := patch.Fields()
		for _, k := range []string{def.Key, def.Key + "_status", def.Key + "_notes"} {
			v := fields[k]
			if v == nil {
				v = "null"
			}
			fmt.Printf("    %-40s %v\n", k, v)
		}
		return nil
	})
}

// milestoneEdit holds the update flags that were passed; nil means the
// stored value is kept.
type milestoneEdit struct {
	date, status, notes, offset *string
}

// apply overlays the passed flags on the stored values. A new date or an
// offset replaces the stored offset.
func (e milestoneEdit) apply(u pipeline.MilestoneUpdate) (pipeline.MilestoneUpdate, error) {
	if e.status != nil {
		u.Status = *e.status
	}
	if e.notes != nil {
		u.Notes = *e.notes
	}
	if e.date != nil {
		u.Date = *e.date
		u.KeepOffset = nil
	}
	if e.offset != nil {
		n, err := dates.ParseOffset(*e.offset)
		if err != nil {
			return u, fmt.Errorf("--offset: %w", err)
		}
		u.Offset = &n
		u.KeepOffset = nil
		if e.date == nil {
			u.Date = ""
		}
	}
	return u, nil
}

// currentUpdate seeds an edit with the stored values so flags that are not
// passed keep them.
func currentUpdate(rec model.TransactionRecord, key string) pipeline.MilestoneUpdate {
	m, ok := rec.Milestone(key)
	if !ok {
		return pipeline.MilestoneUpdate{}
	}
	u := pipeline.MilestoneUpdate{Status: m.Status, Notes: m.Notes, KeepOffset: m.Offset}
	if m.Date != nil {
		u.Date = dates.Format(*m.Date)
	}
	if _, err := model.ParseMilestoneStatus(u.Status); err != nil {
		u.Status = ""
	}
	return u
}

func runDerive(cmd *cobra.Command, args []string) error {
	return withStore(cmd, func(ctx context.Context, st store.Store) error {
		cat, err := catalog()
		if err != nil {
			return err
		}
		txn, err := store.Resolve(ctx, st, args[0])
		if err != nil {
			return err
		}
		n, err := deriveAndSave(ctx, st, cat, txn.ID, flagMsOverwrite)
		if err != nil {
			return err
		}
		if n == 0 {
			fmt.Println("  Nothing to derive")
			return nil
		}
		fmt.Printf("  Derived %d milestone dates for %s\n", n, txn.ShortAddress())
		return nil
	})
}

// deriveAndSave fills offset-derived dates for one transaction and returns
// how many milestones were written.
func deriveAndSave(ctx context.Context, st store.Store, cat model.Catalog, txnID string, overwrite bool) (int, error) {
	rec, err := st.LoadRecord(ctx, txnID)
	if err != nil {
		return 0, err
	}
	patches, err := pipeline.DeriveAll(rec, cat, overwrite)
	if err != nil {
		return 0, err
	}
	if len(patches) == 0 {
		return 0, nil
	}
	if err := st.SaveMilestones(ctx, txnID, patches); err != nil {
		return 0, err
	}
	return len(patches), nil
}

// upcomingFor returns the open dated milestones of d, overdue first.
func upcomingFor(d pipeline.Deal, now time.Time) []pipeline.UpcomingItem {
	return pipeline.Upcoming([]pipeline.Deal{d}, now, 3650)
}

func milestoneTable(ms []model.MilestoneInstance, title string) string {
	rows := make([][]string, 0, len(ms))
	for _, m := range ms {
		rows = append(rows, []string{
			m.Key,
			m.Label,
			m.DateLabel(),
			m.Status.Label(),
			cli.FormatDaysRemaining(m.DaysRemaining),
			cli.Truncate(m.Notes, 30),
		})
	}
	return cli.RenderTable(cli.Table{
		Title:   title,
		Headers: []string{"Key", "Milestone", "Date", "Status", "Due", "Notes"},
		Rows:    rows,
	})
}

func statusNames() string {
	names := make([]string, len(model.MilestoneStatuses))
	for i, s := range model.MilestoneStatuses {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}
