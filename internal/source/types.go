package source

import "time"

// rawTerms is the on-disk shape of an extraction result. JSON files decode
// through the same YAML decoder.
type rawTerms struct {
	Transaction          string              `yaml:"transaction"`
	OriginalContractDate string              `yaml:"original_contract_date"`
	OfferAcceptanceDate  string              `yaml:"offer_acceptance_date"`
	Milestones           map[string]rawEntry `yaml:"milestones"`
}

// rawEntry is one milestone of an extraction result: either an explicit
// date or a day offset from the milestone's base.
type rawEntry struct {
	Date         string   `yaml:"date"`
	Days         *float64 `yaml:"days"`
	BusinessDays *bool    `yaml:"business_days"`
	Status       string   `yaml:"status"`
	Notes        string   `yaml:"notes"`
}

// Terms is a validated extraction result for one contract.
type Terms struct {
	Path                 string
	Transaction          string
	OriginalContractDate *time.Time
	OfferAcceptanceDate  *time.Time
	Milestones           map[string]TermEntry
}

// TermEntry is one validated milestone term. Exactly one of Date and Days
// is set.
type TermEntry struct {
	Date         *time.Time
	Days         *int
	BusinessDays *bool // overrides the definition when set
	Status       string
	Notes        string
}

// DiscoveredFile is a terms file found in an inbox directory.
type DiscoveredFile struct {
	Path   string
	Name   string // file name without extension
	Format string // "yaml" or "json"
}
