package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/dealdates/internal/cli"
	"github.com/theirongolddev/dealdates/internal/finance"
	"github.com/theirongolddev/dealdates/internal/model"
	"github.com/theirongolddev/dealdates/internal/store"
)

var financeFlags = map[finance.Field]*string{}

var financeCmd = &cobra.Command{
	Use:     "finance <txn>",
	Aliases: []string{"money"},
	Short:   "Show or edit price, earnest money and commissions",
	Long: "Show or edit price, earnest money and commissions. Setting a percentage\n" +
		"recomputes its amount from the sales price and setting an amount\n" +
		"recomputes its percentage.",
	Args: cobra.ExactArgs(1),
	RunE: runFinance,
}

func init() {
	for _, f := range finance.Fields {
		v := new(string)
		financeFlags[f] = v
		name := strings.ReplaceAll(string(f), "_", "-")
		financeCmd.Flags().StringVar(v, name, "", "Set "+strings.ReplaceAll(string(f), "_", " "))
	}
	rootCmd.AddCommand(financeCmd)
}

func runFinance(cmd *cobra.Command, args []string) error {
	return withStore(cmd, func(ctx context.Context, st store.Store) error {
		txn, err := store.Resolve(ctx, st, args[0])
		if err != nil {
			return err
		}

		f := txn.Financials
		changed := 0
		// Price first so percentages set in the same call reconcile against it.
		for _, field := range finance.Fields {
			name := strings.ReplaceAll(string(field), "_", "-")
			if !cmd.Flags().Changed(name) {
				continue
			}
			raw := strings.TrimSpace(strings.NewReplacer("$", "", ",", "", "%", "").Replace(*financeFlags[field]))
			v, err := decimal.NewFromString(raw)
			if err != nil {
				return fmt.Errorf("--%s: invalid number %q", name, *financeFlags[field])
			}
			f, err = finance.Set(f, field, v)
			if err != nil {
				return err
			}
			changed++
		}

		if changed > 0 {
			if err := st.SaveFinancials(ctx, txn.ID, f); err != nil {
				return err
			}
			progress("  Saved %d field(s)\n", changed)
		}

		fmt.Println()
		fmt.Print(financeTable(txn.ShortAddress(), f))
		return nil
	})
}

func financeTable(title string, f model.Financials) string {
	total := finance.TotalCommission(f)
	return cli.RenderTable(cli.Table{
		Title:   title,
		Headers: []string{"Item", "Percent", "Amount"},
		Rows: [][]string{
			{"Sales price", "", cli.FormatMoney(f.SalesPrice)},
			{"---"},
			{"Earnest money", cli.FormatPct(f.EMDPercent), cli.FormatMoney(f.EMDAmount)},
			{"Listing commission", cli.FormatPct(f.ListingCommissionPct), cli.FormatMoney(f.ListingCommission)},
			{"Buyer commission", cli.FormatPct(f.BuyerCommissionPct), cli.FormatMoney(f.BuyerCommission)},
			{"---"},
			{"Total commission", "", cli.FormatMoney(total)},
		},
		Right: []int{1, 2},
	})
}
