package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/dealdates/internal/cli"
	"github.com/theirongolddev/dealdates/internal/dates"
	"github.com/theirongolddev/dealdates/internal/model"
	"github.com/theirongolddev/dealdates/internal/store"
)

var (
	flagTaskDate  string
	flagTaskNotes string
	flagTaskAll   bool
	flagTaskUndo  bool
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage task reminders",
}

var taskAddCmd = &cobra.Command{
	Use:   "add <txn> <label>",
	Short: "Add a task reminder to a transaction",
	Args:  cobra.ExactArgs(2),
	RunE:  runTaskAdd,
}

var taskListCmd = &cobra.Command{
	Use:     "list [txn]",
	Aliases: []string{"ls"},
	Short:   "List task reminders",
	Args:    cobra.MaximumNArgs(1),
	RunE:    runTaskList,
}

var taskDoneCmd = &cobra.Command{
	Use:   "done <task-id>",
	Short: "Mark a task completed",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskDone,
}

var taskRmCmd = &cobra.Command{
	Use:   "rm <task-id>",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskRm,
}

func init() {
	taskAddCmd.Flags().StringVar(&flagTaskDate, "date", "", "Due date (YYYY-MM-DD)")
	taskAddCmd.Flags().StringVar(&flagTaskNotes, "notes", "", "Notes")
	taskListCmd.Flags().BoolVarP(&flagTaskAll, "all", "a", false, "Include completed tasks")
	taskDoneCmd.Flags().BoolVar(&flagTaskUndo, "undo", false, "Reopen the task instead")

	taskCmd.AddCommand(taskAddCmd, taskListCmd, taskDoneCmd, taskRmCmd)
	rootCmd.AddCommand(taskCmd)
}

func runTaskAdd(cmd *cobra.Command, args []string) error {
	date, err := dates.ParseOptional(flagTaskDate)
	if err != nil {
		return fmt.Errorf("--date: %w", err)
	}
	label := strings.TrimSpace(args[1])
	if label == "" {
		return errors.New("task label is required")
	}

	return withStore(cmd, func(ctx context.Context, st store.Store) error {
		txn, err := store.Resolve(ctx, st, args[0])
		if err != nil {
			return err
		}
		t := model.Task{
			TransactionID: txn.ID,
			Label:         label,
			Date:          date,
			Notes:         strings.TrimSpace(flagTaskNotes),
		}
		if err := st.AddTask(ctx, &t); err != nil {
			return err
		}
		fmt.Printf("  Added task %s to %s\n", shortID(t.ID), txn.ShortAddress())
		return nil
	})
}

func runTaskList(cmd *cobra.Command, args []string) error {
	return withStore(cmd, func(ctx context.Context, st store.Store) error {
		now, err := today()
		if err != nil {
			return err
		}

		txnID := ""
		title := "Tasks"
		if len(args) == 1 {
			txn, err := store.Resolve(ctx, st, args[0])
			if err != nil {
				return err
			}
			txnID = txn.ID
			title = "Tasks: " + txn.ShortAddress()
		}

		tasks, err := st.ListTasks(ctx, txnID)
		if err != nil {
			return err
		}
		if !flagTaskAll {
			open := tasks[:0]
			for _, t := range tasks {
				if !t.Completed {
					open = append(open, t)
				}
			}
			tasks = open
		}
		if len(tasks) == 0 {
			fmt.Println("\n  No tasks.")
			return nil
		}

		fmt.Println()
		fmt.Print(taskTable(tasks, now, title, txnID == ""))
		return nil
	})
}

func runTaskDone(cmd *cobra.Command, args []string) error {
	return withStore(cmd, func(ctx context.Context, st store.Store) error {
		t, err := resolveTask(ctx, st, args[0])
		if err != nil {
			return err
		}
		if err := st.SetTaskCompleted(ctx, t.ID, !flagTaskUndo); err != nil {
			return err
		}
		verb := "Completed"
		if flagTaskUndo {
			verb = "Reopened"
		}
		fmt.Printf("  %s %q\n", verb, t.Label)
		return nil
	})
}

func runTaskRm(cmd *cobra.Command, args []string) error {
	return withStore(cmd, func(ctx context.Context, st store.Store) error {
		t, err := resolveTask(ctx, st, args[0])
		if err != nil {
			return err
		}
		if err := st.DeleteTask(ctx, t.ID); err != nil {
			return err
		}
		fmt.Printf("  Deleted %q\n", t.Label)
		return nil
	})
}

// resolveTask finds a task by exact ID or unique ID prefix.
func resolveTask(ctx context.Context, st store.Store, ref string) (model.Task, error) {
	tasks, err := st.ListTasks(ctx, "")
	if err != nil {
		return model.Task{}, err
	}
	var hits []model.Task
	for _, t := range tasks {
		if t.ID == ref {
			return t, nil
		}
		if strings.HasPrefix(t.ID, ref) {
			hits = append(hits, t)
		}
	}
	switch len(hits) {
	case 0:
		return model.Task{}, fmt.Errorf("task %q: %w", ref, store.ErrNotFound)
	case 1:
		return hits[0], nil
	default:
		return model.Task{}, fmt.Errorf("task %q matches %d tasks: %w", ref, len(hits), store.ErrAmbiguous)
	}
}

func taskTable(tasks []model.Task, now time.Time, title string, withTxn bool) string {
	headers := []string{"ID", "Task", "Due", "When", "Status"}
	if withTxn {
		headers = append(headers, "Transaction")
	}
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		due, when := "TBD", ""
		if t.Date != nil {
			due = dates.Format(*t.Date)
			n := dates.DaysBetween(now, *t.Date)
			when = cli.FormatDaysRemaining(&n)
		}
		row := []string{shortID(t.ID), cli.Truncate(t.Label, 40), due, when, t.StatusOn(now).Label()}
		if withTxn {
			row = append(row, shortID(t.TransactionID))
		}
		rows = append(rows, row)
	}
	return cli.RenderTable(cli.Table{
		Title:   title,
		Headers: headers,
		Rows:    rows,
	})
}
