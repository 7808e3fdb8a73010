package model

import "fmt"

// Catalog is an ordered set of milestone definitions.
type Catalog []Definition

func days(n int) *int { return &n }

// DefaultCatalog returns the milestones of a standard residential purchase
// agreement. Offsets are the form defaults and are normally overridden per
// contract.
func DefaultCatalog() Catalog {
	return Catalog{
		{Key: KeyOriginalContract, Label: "Original Contract"},
		{Key: KeyOfferAcceptance, Label: "Offer Acceptance"},
		{Key: "emd_due_date", Label: "EMD Due", Base: KeyOfferAcceptance, BusinessDays: true, DefaultOffset: days(3)},
		{Key: "seller_disclosures_date", Label: "Seller Disclosures", Base: KeyOfferAcceptance, DefaultOffset: days(7)},
		{Key: "disclosures_due_back_date", Label: "Disclosures Due Back", Base: "seller_disclosures_date", DefaultOffset: days(5)},
		{Key: "investigation_contingency_date", Label: "Investigation Contingency", Base: KeyOfferAcceptance, DefaultOffset: days(17)},
		{Key: "appraisal_contingency_date", Label: "Appraisal Contingency", Base: KeyOfferAcceptance, DefaultOffset: days(17)},
		{Key: "loan_contingency_date", Label: "Loan Contingency", Base: KeyOfferAcceptance, DefaultOffset: days(21)},
		{Key: "removal_of_contingencies_date", Label: "Removal of Contingencies", Base: KeyOfferAcceptance, DefaultOffset: days(17)},
		{Key: "closing_date", Label: "Close of Escrow", Base: KeyOfferAcceptance, DefaultOffset: days(30), PushOffWeekend: true},
		{Key: "final_walkthrough_date", Label: "Final Walkthrough", Base: "closing_date", DefaultOffset: days(-5)},
		{Key: "possession_date", Label: "Possession", Base: "closing_date", DefaultOffset: days(0)},
	}
}

// Lookup returns the definition for key.
func (c Catalog) Lookup(key string) (Definition, bool) {
	for _, d := range c {
		if d.Key == key {
			return d, true
		}
	}
	return Definition{}, false
}

// Must returns the definition for key or ErrUnknownMilestone.
func (c Catalog) Must(key string) (Definition, error) {
	d, ok := c.Lookup(key)
	if !ok {
		return Definition{}, fmt.Errorf("%w: %q", ErrUnknownMilestone, key)
	}
	return d, nil
}

// Keys returns the catalog keys in catalog order.
func (c Catalog) Keys() []string {
	keys := make([]string, len(c))
	for i, d := range c {
		keys[i] = d.Key
	}
	return keys
}

// Ordered returns the definitions sorted so every milestone follows its
// base. It fails on unknown bases and cycles.
func (c Catalog) Ordered() (Catalog, error) {
	const (
		_ = iota
		visiting
		done
	)
	state := make(map[string]int, len(c))
	out := make(Catalog, 0, len(c))

	var visit func(d Definition) error
	visit = func(d Definition) error {
		switch state[d.Key] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("milestone %q: base cycle", d.Key)
		}
		state[d.Key] = visiting
		if !d.IsRoot() {
			base, ok := c.Lookup(d.Base)
			if !ok {
				return fmt.Errorf("milestone %q: %w base %q", d.Key, ErrUnknownMilestone, d.Base)
			}
			if err := visit(base); err != nil {
				return err
			}
		}
		state[d.Key] = done
		out = append(out, d)
		return nil
	}

	for _, d := range c {
		if err := visit(d); err != nil {
			return nil, err
		}
	}
	return out, nil
}
