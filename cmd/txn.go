package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/theirongolddev/dealdates/internal/cli"
	"github.com/theirongolddev/dealdates/internal/dates"
	"github.com/theirongolddev/dealdates/internal/model"
	"github.com/theirongolddev/dealdates/internal/store"
)

var (
	flagTxnCity     string
	flagTxnState    string
	flagTxnZip      string
	flagTxnClient   string
	flagTxnSide     string
	flagTxnContract string
	flagTxnOffer    string
	flagTxnDerive   bool
	flagTxnAddress  string
	flagTxnForce    bool
)

var txnCmd = &cobra.Command{
	Use:     "txn",
	Aliases: []string{"transaction", "deal"},
	Short:   "Manage transactions",
}

var txnAddCmd = &cobra.Command{
	Use:   "add <address>",
	Short: "Create a transaction",
	Args:  cobra.ExactArgs(1),
	RunE:  runTxnAdd,
}

var txnListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List transactions with their next deadline",
	RunE:    runTxnList,
}

var txnShowCmd = &cobra.Command{
	Use:   "show <txn>",
	Short: "Show a transaction with milestones and tasks",
	Args:  cobra.ExactArgs(1),
	RunE:  runTxnShow,
}

var txnRmCmd = &cobra.Command{
	Use:   "rm <txn>",
	Short: "Delete a transaction and everything attached to it",
	Args:  cobra.ExactArgs(1),
	RunE:  runTxnRm,
}

var txnSetCmd = &cobra.Command{
	Use:   "set <txn>",
	Short: "Edit transaction fields",
	Args:  cobra.ExactArgs(1),
	RunE:  runTxnSet,
}

func init() {
	for _, c := range []*cobra.Command{txnAddCmd, txnSetCmd} {
		c.Flags().StringVar(&flagTxnCity, "city", "", "City")
		c.Flags().StringVar(&flagTxnState, "state", "", "State")
		c.Flags().StringVar(&flagTxnZip, "zip", "", "ZIP code")
		c.Flags().StringVar(&flagTxnClient, "client", "", "Client name")
		c.Flags().StringVar(&flagTxnSide, "side", "", "buyer, seller or dual")
	}
	txnAddCmd.Flags().StringVar(&flagTxnContract, "contract", "", "Original contract date (YYYY-MM-DD)")
	txnAddCmd.Flags().StringVar(&flagTxnOffer, "offer", "", "Offer acceptance date (YYYY-MM-DD)")
	txnAddCmd.Flags().BoolVar(&flagTxnDerive, "derive", true, "Fill default milestone dates from the offer acceptance date")
	txnSetCmd.Flags().StringVar(&flagTxnAddress, "address", "", "Street address")
	txnRmCmd.Flags().BoolVarP(&flagTxnForce, "force", "f", false, "Do not ask for confirmation")

	txnCmd.AddCommand(txnAddCmd, txnListCmd, txnShowCmd, txnRmCmd, txnSetCmd)
	rootCmd.AddCommand(txnCmd)
}

func runTxnAdd(cmd *cobra.Command, args []string) error {
	side, err := model.ParseSide(flagTxnSide)
	if err != nil {
		return err
	}
	contract, err := dates.ParseOptional(flagTxnContract)
	if err != nil {
		return fmt.Errorf("--contract: %w", err)
	}
	offer, err := dates.ParseOptional(flagTxnOffer)
	if err != nil {
		return fmt.Errorf("--offer: %w", err)
	}

	return withStore(cmd, func(ctx context.Context, st store.Store) error {
		cat, err := catalog()
		if err != nil {
			return err
		}

		txn := model.Transaction{
			Address: strings.TrimSpace(args[0]),
			City:    flagTxnCity,
			State:   flagTxnState,
			Zip:     flagTxnZip,
			Client:  flagTxnClient,
			Side:    side,
		}
		if txn.Address == "" {
			return errors.New("address is required")
		}
		if err := st.CreateTransaction(ctx, &txn); err != nil {
			return err
		}
		logger.Info("transaction created", zap.String("id", txn.ID))

		var patches []model.MilestonePatch
		if contract != nil {
			patches = append(patches, model.MilestonePatch{Key: model.KeyOriginalContract, Date: contract, Status: model.StatusCompleted})
		}
		if offer != nil {
			patches = append(patches, model.MilestonePatch{Key: model.KeyOfferAcceptance, Date: offer, Status: model.StatusCompleted})
		}
		if len(patches) > 0 {
			if err := st.SaveMilestones(ctx, txn.ID, patches); err != nil {
				return err
			}
		}

		derived := 0
		if flagTxnDerive && offer != nil {
			n, err := deriveAndSave(ctx, st, cat, txn.ID, false)
			if err != nil {
				return err
			}
			derived = n
		}

		fmt.Printf("  Created %s  %s\n", shortID(txn.ID), txn.FullAddress())
		if derived > 0 {
			fmt.Printf("  Derived %d milestone dates from the offer acceptance date\n", derived)
		}
		return nil
	})
}

func runTxnList(cmd *cobra.Command, _ []string) error {
	return withStore(cmd, func(ctx context.Context, st store.Store) error {
		deals, _, now, err := loadDeals(ctx, st)
		if err != nil {
			return err
		}
		if len(deals) == 0 {
			fmt.Println("\n  No transactions yet.")
			return nil
		}

		rows := make([][]string, 0, len(deals))
		for _, d := range deals {
			overdue := 0
			next := "-"
			for _, m := range d.Milestones {
				if m.Status == model.StatusOverdue {
					overdue++
				}
			}
			if up := upcomingFor(d, now); len(up) > 0 {
				next = fmt.Sprintf("%s %s", up[0].Milestone.Label, up[0].Milestone.DateLabel())
			}
			rows = append(rows, []string{
				shortID(d.Txn.ID),
				cli.Truncate(d.Txn.FullAddress(), 40),
				d.Txn.Client,
				fmt.Sprintf("%d", overdue),
				next,
			})
		}

		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   fmt.Sprintf("Transactions (%d)", len(deals)),
			Headers: []string{"ID", "Address", "Client", "Late", "Next"},
			Rows:    rows,
			Right:   []int{3},
		}))
		return nil
	})
}

func runTxnShow(cmd *cobra.Command, args []string) error {
	return withStore(cmd, func(ctx context.Context, st store.Store) error {
		d, _, now, err := loadDeal(ctx, st, args[0])
		if err != nil {
			return err
		}
		t := d.Txn

		fmt.Println()
		fmt.Println(cli.RenderTitle(t.FullAddress()))
		fmt.Println()
		fmt.Printf("  ID:      %s\n", t.ID)
		if t.Client != "" {
			fmt.Printf("  Client:  %s\n", t.Client)
		}
		if t.Side != "" {
			fmt.Printf("  Side:    %s\n", t.Side)
		}
		if !t.Financials.SalesPrice.IsZero() {
			fmt.Printf("  Price:   %s\n", cli.FormatMoney(t.Financials.SalesPrice))
		}
		fmt.Println()

		fmt.Print(milestoneTable(d.Milestones, ""))

		if len(d.Tasks) > 0 {
			fmt.Println()
			fmt.Print(taskTable(d.Tasks, now, "Tasks", false))
		}
		return nil
	})
}

func runTxnRm(cmd *cobra.Command, args []string) error {
	return withStore(cmd, func(ctx context.Context, st store.Store) error {
		txn, err := store.Resolve(ctx, st, args[0])
		if err != nil {
			return err
		}
		if !flagTxnForce {
			ok, err := confirm(fmt.Sprintf("Delete %s and all its milestones and tasks?", txn.FullAddress()))
			if err != nil {
				return err
			}
			if !ok {
				fmt.Println("  Cancelled")
				return nil
			}
		}
		if err := st.DeleteTransaction(ctx, txn.ID); err != nil {
			return err
		}
		fmt.Printf("  Deleted %s  %s\n", shortID(txn.ID), txn.FullAddress())
		return nil
	})
}

func runTxnSet(cmd *cobra.Command, args []string) error {
	return withStore(cmd, func(ctx context.Context, st store.Store) error {
		txn, err := store.Resolve(ctx, st, args[0])
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		changed := 0
		set := func(name string, dst *string, val string) {
			if flags.Changed(name) {
				*dst = strings.TrimSpace(val)
				changed++
			}
		}
		set("address", &txn.Address, flagTxnAddress)
		set("city", &txn.City, flagTxnCity)
		set("state", &txn.State, flagTxnState)
		set("zip", &txn.Zip, flagTxnZip)
		set("client", &txn.Client, flagTxnClient)
		if flags.Changed("side") {
			side, err := model.ParseSide(flagTxnSide)
			if err != nil {
				return err
			}
			txn.Side = side
			changed++
		}
		if changed == 0 {
			return errors.New("nothing to change; pass at least one field flag")
		}
		if txn.Address == "" {
			return errors.New("address cannot be empty")
		}

		if err := st.UpdateTransaction(ctx, txn); err != nil {
			return err
		}
		fmt.Printf("  Updated %s  %s\n", shortID(txn.ID), txn.FullAddress())
		return nil
	})
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
