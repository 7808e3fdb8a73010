package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Side is the party the agent represents.
type Side string

// Transaction sides.
const (
	SideBuyer  Side = "buyer"
	SideSeller Side = "seller"
	SideDual   Side = "dual"
)

// ParseSide parses a side name. Empty means buyer.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToLower(strings.TrimSpace(s))) {
	case "", SideBuyer:
		return SideBuyer, nil
	case SideSeller:
		return SideSeller, nil
	case SideDual:
		return SideDual, nil
	}
	return "", fmt.Errorf("invalid side %q (want buyer, seller or dual)", s)
}

// Financials holds the denormalized money fields of a deal. Percentages are
// stored as whole-number percents (2.5 means 2.5%).
type Financials struct {
	SalesPrice           decimal.Decimal `json:"sales_price"`
	EMDAmount            decimal.Decimal `json:"emd_amount"`
	EMDPercent           decimal.Decimal `json:"emd_percent"`
	ListingCommissionPct decimal.Decimal `json:"listing_commission_pct"`
	ListingCommission    decimal.Decimal `json:"listing_commission"`
	BuyerCommissionPct   decimal.Decimal `json:"buyer_commission_pct"`
	BuyerCommission      decimal.Decimal `json:"buyer_commission"`
}

// Transaction is one tracked deal.
type Transaction struct {
	ID         string     `json:"id"`
	Address    string     `json:"address"`
	City       string     `json:"city"`
	State      string     `json:"state"`
	Zip        string     `json:"zip"`
	Client     string     `json:"client"`
	Side       Side       `json:"side"`
	Financials Financials `json:"financials"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// ShortAddress returns the street portion of the address, the text before
// the first comma.
func (t Transaction) ShortAddress() string {
	addr := strings.TrimSpace(t.Address)
	if i := strings.Index(addr, ","); i >= 0 {
		addr = strings.TrimSpace(addr[:i])
	}
	return addr
}

// FullAddress joins the address parts that are present.
func (t Transaction) FullAddress() string {
	parts := []string{}
	for _, p := range []string{t.Address, t.City} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	tail := strings.TrimSpace(strings.TrimSpace(t.State) + " " + strings.TrimSpace(t.Zip))
	if tail != "" {
		parts = append(parts, tail)
	}
	return strings.Join(parts, ", ")
}

// TransactionRecord is a transaction together with its stored milestone
// rows, keyed by milestone key.
type TransactionRecord struct {
	Transaction
	Milestones map[string]StoredMilestone
}

// Milestone returns the stored row for key, if any.
func (r TransactionRecord) Milestone(key string) (StoredMilestone, bool) {
	if r.Milestones == nil {
		return StoredMilestone{}, false
	}
	m, ok := r.Milestones[key]
	return m, ok
}

// DateOf returns the stored date for key, or nil.
func (r TransactionRecord) DateOf(key string) *time.Time {
	m, ok := r.Milestone(key)
	if !ok {
		return nil
	}
	return m.Date
}
