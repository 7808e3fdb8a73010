// Package source discovers and parses contract-terms files written by the
// document-extraction service.
package source

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/theirongolddev/dealdates/internal/dates"
	"github.com/theirongolddev/dealdates/internal/model"
)

// ParseResult holds the output of parsing a single terms file.
type ParseResult struct {
	File  DiscoveredFile
	Terms Terms
	Err   error
}

// ParseFile reads and validates one terms file against cat.
func ParseFile(df DiscoveredFile, cat model.Catalog) ParseResult {
	data, err := os.ReadFile(df.Path)
	if err != nil {
		return ParseResult{File: df, Err: err}
	}
	terms, err := ParseTerms(data, cat)
	if err != nil {
		return ParseResult{File: df, Err: fmt.Errorf("%s: %w", df.Path, err)}
	}
	terms.Path = df.Path
	return ParseResult{File: df, Terms: terms}
}

// ParseTerms decodes YAML or JSON terms and validates every date, offset and
// milestone key. All problems are reported together.
func ParseTerms(data []byte, cat model.Catalog) (Terms, error) {
	var raw rawTerms
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return Terms{}, fmt.Errorf("decoding terms: %w", err)
	}

	var errs []error
	t := Terms{
		Transaction: strings.TrimSpace(raw.Transaction),
		Milestones:  make(map[string]TermEntry, len(raw.Milestones)),
	}

	var err error
	if t.OriginalContractDate, err = dates.ParseOptional(raw.OriginalContractDate); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", model.KeyOriginalContract, err))
	}
	if t.OfferAcceptanceDate, err = dates.ParseOptional(raw.OfferAcceptanceDate); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", model.KeyOfferAcceptance, err))
	}

	keys := make([]string, 0, len(raw.Milestones))
	for k := range raw.Milestones {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		entry, err := parseEntry(key, raw.Milestones[key], cat)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		t.Milestones[key] = entry
	}

	if err := errors.Join(errs...); err != nil {
		return Terms{}, err
	}
	return t, nil
}

func parseEntry(key string, raw rawEntry, cat model.Catalog) (TermEntry, error) {
	def, err := cat.Must(key)
	if err != nil {
		return TermEntry{}, err
	}

	entry := TermEntry{
		BusinessDays: raw.BusinessDays,
		Status:       strings.TrimSpace(raw.Status),
		Notes:        strings.TrimSpace(raw.Notes),
	}
	if entry.Status != "" {
		if _, err := model.ParseMilestoneStatus(entry.Status); err != nil {
			return TermEntry{}, fmt.Errorf("%s: %w", key, err)
		}
	}

	hasDate := strings.TrimSpace(raw.Date) != ""
	switch {
	case hasDate && raw.Days != nil:
		return TermEntry{}, fmt.Errorf("%s: date and days are mutually exclusive", key)
	case hasDate:
		d, err := dates.ParseOptional(raw.Date)
		if err != nil {
			return TermEntry{}, fmt.Errorf("%s: %w", key, err)
		}
		entry.Date = d
	case raw.Days != nil:
		if def.IsRoot() {
			return TermEntry{}, fmt.Errorf("%s: root milestone cannot take a day offset", key)
		}
		n, err := dates.OffsetFromFloat(*raw.Days)
		if err != nil {
			return TermEntry{}, fmt.Errorf("%s: %w", key, err)
		}
		entry.Days = &n
	}
	return entry, nil
}
