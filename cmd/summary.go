package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/dealdates/internal/cli"
	"github.com/theirongolddev/dealdates/internal/model"
	"github.com/theirongolddev/dealdates/internal/pipeline"
	"github.com/theirongolddev/dealdates/internal/store"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Portfolio summary: status counts, this week, next deadline",
	RunE:  runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, _ []string) error {
	return withStore(cmd, func(ctx context.Context, st store.Store) error {
		deals, _, now, err := loadDeals(ctx, st)
		if err != nil {
			return err
		}

		if len(deals) == 0 {
			fmt.Println("\n  No transactions yet.")
			fmt.Println("  Add one with: dealdates txn add \"12 Oak St, Springfield\"")
			return nil
		}

		sum := pipeline.Summarize(deals, now)

		fmt.Println()
		fmt.Println(cli.RenderTitle(fmt.Sprintf("IMPORTANT DATES  %s", cli.FormatDay(now))))
		fmt.Println()

		rows := [][]string{
			{"Transactions", cli.FormatNumber(int64(sum.Transactions))},
			{"Milestones", fmt.Sprintf("%d (%d dated)", sum.Milestones, sum.Dated)},
			{"---"},
		}
		for _, s := range model.MilestoneStatuses {
			rows = append(rows, []string{s.Label(), cli.FormatNumber(int64(sum.ByStatus[s]))})
		}
		rows = append(rows,
			[]string{"---"},
			[]string{"Due this week", cli.FormatNumber(int64(sum.DueThisWeek))},
			[]string{"Open tasks", fmt.Sprintf("%d (%d overdue)", sum.OpenTasks, sum.OverdueTasks)},
		)
		if sum.NextDeadline != nil {
			n := sum.NextDeadline
			rows = append(rows, []string{"Next deadline", fmt.Sprintf("%s · %s · %s",
				n.Milestone.Label, n.Txn.ShortAddress(), cli.FormatDaysRemaining(n.Milestone.DaysRemaining))})
		}

		fmt.Print(cli.RenderTable(cli.Table{
			Headers: []string{"Metric", "Value"},
			Rows:    rows,
		}))

		if late := sum.ByStatus[model.StatusOverdue]; late > 0 {
			fmt.Println()
			fmt.Println("  " + cli.RenderWarn(fmt.Sprintf("%d overdue milestone(s); run `dealdates agenda` for details", late)))
		}
		return nil
	})
}
