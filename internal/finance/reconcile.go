// Package finance keeps the percentage and flat-amount forms of a deal's
// earnest money and commissions consistent with its sales price.
package finance

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/dealdates/internal/model"
)

// Field names one editable financial value.
type Field string

// Editable fields.
const (
	SalesPrice           Field = "sales_price"
	EMDAmount            Field = "emd_amount"
	EMDPercent           Field = "emd_percent"
	ListingCommissionPct Field = "listing_commission_pct"
	ListingCommission    Field = "listing_commission"
	BuyerCommissionPct   Field = "buyer_commission_pct"
	BuyerCommission      Field = "buyer_commission"
)

// Fields lists every editable field.
var Fields = []Field{
	SalesPrice,
	EMDAmount, EMDPercent,
	ListingCommissionPct, ListingCommission,
	BuyerCommissionPct, BuyerCommission,
}

const (
	amountPlaces  = 2
	percentPlaces = 3
)

var hundred = decimal.NewFromInt(100)

// ParseField parses a field name. Dashes are accepted in place of
// underscores.
func ParseField(s string) (Field, error) {
	f := Field(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	for _, known := range Fields {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown financial field %q", s)
}

// pair links a percentage field to its amount field.
type pair struct {
	pct, amount       Field
	getPct, getAmount func(*model.Financials) *decimal.Decimal
}

var pairs = []pair{
	{
		pct: EMDPercent, amount: EMDAmount,
		getPct:    func(f *model.Financials) *decimal.Decimal { return &f.EMDPercent },
		getAmount: func(f *model.Financials) *decimal.Decimal { return &f.EMDAmount },
	},
	{
		pct: ListingCommissionPct, amount: ListingCommission,
		getPct:    func(f *model.Financials) *decimal.Decimal { return &f.ListingCommissionPct },
		getAmount: func(f *model.Financials) *decimal.Decimal { return &f.ListingCommission },
	},
	{
		pct: BuyerCommissionPct, amount: BuyerCommission,
		getPct:    func(f *model.Financials) *decimal.Decimal { return &f.BuyerCommissionPct },
		getAmount: func(f *model.Financials) *decimal.Decimal { return &f.BuyerCommission },
	},
}

// Reconcile recomputes the counterpart of changed. A percentage change sets
// the amount to price*pct/100 rounded to cents; an amount change sets the
// percentage to amount/price*100 rounded to three places. A price change
// recomputes every amount whose percentage is set. With no sales price
// nothing is recomputed.
func Reconcile(f model.Financials, changed Field) model.Financials {
	price := f.SalesPrice
	if !price.IsPositive() {
		return f
	}

	if changed == SalesPrice {
		for _, p := range pairs {
			if pct := *p.getPct(&f); !pct.IsZero() {
				*p.getAmount(&f) = amountFor(price, pct)
			}
		}
		return f
	}

	for _, p := range pairs {
		switch changed {
		case p.pct:
			*p.getAmount(&f) = amountFor(price, *p.getPct(&f))
		case p.amount:
			*p.getPct(&f) = percentFor(price, *p.getAmount(&f))
		}
	}
	return f
}

// Set assigns value to field and reconciles the counterpart.
func Set(f model.Financials, field Field, value decimal.Decimal) (model.Financials, error) {
	if value.IsNegative() {
		return f, fmt.Errorf("%s: negative value %s", field, value)
	}
	switch field {
	case SalesPrice:
		f.SalesPrice = value
	default:
		found := false
		for _, p := range pairs {
			switch field {
			case p.pct:
				*p.getPct(&f) = value
				found = true
			case p.amount:
				*p.getAmount(&f) = value
				found = true
			}
		}
		if !found {
			return f, fmt.Errorf("unknown financial field %q", field)
		}
	}
	return Reconcile(f, field), nil
}

func amountFor(price, pct decimal.Decimal) decimal.Decimal {
	return price.Mul(pct).Div(hundred).Round(amountPlaces)
}

func percentFor(price, amount decimal.Decimal) decimal.Decimal {
	return amount.Div(price).Mul(hundred).Round(percentPlaces)
}

// TotalCommission is the sum of listing and buyer commission amounts.
func TotalCommission(f model.Financials) decimal.Decimal {
	return f.ListingCommission.Add(f.BuyerCommission)
}
