package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/dealdates/internal/dates"
	"github.com/theirongolddev/dealdates/internal/model"
)

// financialColumns are the money columns in scan/insert order.
const financialColumns = `sales_price, emd_amount, emd_percent,
	listing_commission_pct, listing_commission, buyer_commission_pct, buyer_commission`

func financialValues(f model.Financials) []any {
	return []any{
		f.SalesPrice.String(), f.EMDAmount.String(), f.EMDPercent.String(),
		f.ListingCommissionPct.String(), f.ListingCommission.String(),
		f.BuyerCommissionPct.String(), f.BuyerCommission.String(),
	}
}

// moneyRow receives the money columns as text.
type moneyRow [7]string

func (r *moneyRow) targets() []any {
	return []any{&r[0], &r[1], &r[2], &r[3], &r[4], &r[5], &r[6]}
}

func (r moneyRow) decode() (model.Financials, error) {
	var out [7]decimal.Decimal
	for i, s := range r {
		if s == "" {
			continue
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return model.Financials{}, fmt.Errorf("decoding amount %q: %w", s, err)
		}
		out[i] = d
	}
	return model.Financials{
		SalesPrice:           out[0],
		EMDAmount:            out[1],
		EMDPercent:           out[2],
		ListingCommissionPct: out[3],
		ListingCommission:    out[4],
		BuyerCommissionPct:   out[5],
		BuyerCommission:      out[6],
	}, nil
}

func dateValue(d *time.Time) any {
	if d == nil {
		return nil
	}
	return dates.Format(*d)
}

func offsetValue(n *int) any {
	if n == nil {
		return nil
	}
	return int64(*n)
}

func decodeDate(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	return dates.ParseOptional(s.String)
}

func decodeOffset(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

// timeLayout is fixed-width so text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
