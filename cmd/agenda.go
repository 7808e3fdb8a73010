package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/dealdates/internal/cli"
	"github.com/theirongolddev/dealdates/internal/dates"
	"github.com/theirongolddev/dealdates/internal/pipeline"
	"github.com/theirongolddev/dealdates/internal/store"
)

var (
	flagAgendaDays int
	flagCalMonth   string
)

var agendaCmd = &cobra.Command{
	Use:   "agenda",
	Short: "Overdue and upcoming milestones across all transactions",
	RunE:  runAgenda,
}

var calendarCmd = &cobra.Command{
	Use:     "calendar",
	Aliases: []string{"cal"},
	Short:   "Month grid of milestones and tasks",
	RunE:    runCalendar,
}

func init() {
	agendaCmd.Flags().IntVar(&flagAgendaDays, "days", 0, "Look-ahead window in days (default from config)")
	calendarCmd.Flags().StringVar(&flagCalMonth, "month", "", "Month to show (YYYY-MM, default current)")
	rootCmd.AddCommand(agendaCmd, calendarCmd)
}

func runAgenda(cmd *cobra.Command, _ []string) error {
	days := flagAgendaDays
	if days <= 0 {
		days = appCfg.General.UpcomingDays
	}

	return withStore(cmd, func(ctx context.Context, st store.Store) error {
		deals, _, now, err := loadDeals(ctx, st)
		if err != nil {
			return err
		}

		items := pipeline.Upcoming(deals, now, days)
		if len(items) == 0 {
			fmt.Printf("\n  Nothing due in the next %d days.\n", days)
			return nil
		}

		rows := make([][]string, 0, len(items)+1)
		lateDone := false
		for i, it := range items {
			late := it.Milestone.Date.Before(now)
			if !late && !lateDone && i > 0 {
				rows = append(rows, []string{"---"})
			}
			if !late {
				lateDone = true
			}
			rows = append(rows, []string{
				cli.FormatDay(*it.Milestone.Date),
				cli.FormatDaysRemaining(it.Milestone.DaysRemaining),
				it.Milestone.Label,
				cli.Truncate(it.Txn.ShortAddress(), 30),
				it.Milestone.Status.Label(),
			})
		}

		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   fmt.Sprintf("Agenda: next %d days", days),
			Headers: []string{"Date", "Due", "Milestone", "Property", "Status"},
			Rows:    rows,
		}))
		return nil
	})
}

func runCalendar(cmd *cobra.Command, _ []string) error {
	return withStore(cmd, func(ctx context.Context, st store.Store) error {
		deals, _, now, err := loadDeals(ctx, st)
		if err != nil {
			return err
		}

		month := dates.Of(now.Year(), now.Month(), 1)
		if flagCalMonth != "" {
			m, err := time.Parse("2006-01", flagCalMonth)
			if err != nil {
				return fmt.Errorf("--month: want YYYY-MM, got %q", flagCalMonth)
			}
			month = dates.Of(m.Year(), m.Month(), 1)
		}

		entries := pipeline.CalendarEntries(deals, now)
		weeks := pipeline.MonthGrid(month.Year(), month.Month(), entries)

		fmt.Println()
		fmt.Println(cli.RenderTitle(month.Format("January 2006")))
		fmt.Println()
		fmt.Print(indent(cli.RenderMonthGrid(weeks, now)))

		var rows [][]string
		for _, week := range weeks {
			for _, day := range week {
				if !day.InMonth {
					continue
				}
				for _, e := range day.Entries {
					rows = append(rows, []string{
						cli.FormatDay(day.Date),
						string(e.Kind()),
						cli.Truncate(e.Title(), 50),
						e.StatusLabel(),
					})
				}
			}
		}
		if len(rows) == 0 {
			fmt.Println("\n  Nothing scheduled this month.")
			return nil
		}
		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{
			Headers: []string{"Date", "Kind", "Entry", "Status"},
			Rows:    rows,
		}))
		return nil
	})
}

func indent(s string) string {
	out := "  "
	for i, r := range s {
		out += string(r)
		if r == '\n' && i < len(s)-1 {
			out += "  "
		}
	}
	return out
}
