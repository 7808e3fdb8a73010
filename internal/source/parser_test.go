package source

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/theirongolddev/dealdates/internal/dates"
	"github.com/theirongolddev/dealdates/internal/model"
)

// writeTerms creates a temp terms file and returns a DiscoveredFile for it.
func writeTerms(t *testing.T, name string, lines ...string) DiscoveredFile {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	df, ok := Discover(path)
	if !ok {
		t.Fatalf("Discover(%s) rejected the file", name)
	}
	return df
}

func TestParseFile_YAML(t *testing.T) {
	df := writeTerms(t, "oak.yaml",
		`transaction: abc`,
		`original_contract_date: 2024-02-28`,
		`offer_acceptance_date: 2024-03-01`,
		`milestones:`,
		`  emd_due_date: {days: 3, business_days: true}`,
		`  closing_date: {date: 2024-04-01, notes: per addendum 2}`,
		`  loan_contingency_date: {days: 21, status: negotiating}`,
	)

	result := ParseFile(df, model.DefaultCatalog())
	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	terms := result.Terms

	if terms.Transaction != "abc" {
		t.Errorf("Transaction = %q, want abc", terms.Transaction)
	}
	if terms.OfferAcceptanceDate == nil || dates.Format(*terms.OfferAcceptanceDate) != "2024-03-01" {
		t.Errorf("OfferAcceptanceDate = %v", terms.OfferAcceptanceDate)
	}
	emd := terms.Milestones["emd_due_date"]
	if emd.Days == nil || *emd.Days != 3 || emd.BusinessDays == nil || !*emd.BusinessDays {
		t.Errorf("emd_due_date = %+v", emd)
	}
	closing := terms.Milestones["closing_date"]
	if closing.Date == nil || dates.Format(*closing.Date) != "2024-04-01" {
		t.Errorf("closing_date = %+v", closing)
	}
	if closing.Notes != "per addendum 2" {
		t.Errorf("closing notes = %q", closing.Notes)
	}
	if got := terms.Milestones["loan_contingency_date"].Status; got != "negotiating" {
		t.Errorf("loan status = %q", got)
	}
	if terms.Path != df.Path {
		t.Errorf("Path = %q, want %q", terms.Path, df.Path)
	}
}

func TestParseFile_JSON(t *testing.T) {
	df := writeTerms(t, "elm.json",
		`{"offer_acceptance_date": "2024-03-01",`,
		` "milestones": {"seller_disclosures_date": {"days": 7}}}`,
	)

	result := ParseFile(df, model.DefaultCatalog())
	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if got := result.Terms.Milestones["seller_disclosures_date"].Days; got == nil || *got != 7 {
		t.Errorf("seller_disclosures_date days = %v", got)
	}
	if result.Terms.OriginalContractDate != nil {
		t.Errorf("OriginalContractDate = %v, want nil", result.Terms.OriginalContractDate)
	}
}

func TestParseTerms_Rejects(t *testing.T) {
	cat := model.DefaultCatalog()
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{"nan offset", "milestones:\n  emd_due_date: {days: .nan}\n", dates.ErrInvalidOffset},
		{"fractional offset", "milestones:\n  emd_due_date: {days: 2.5}\n", dates.ErrInvalidOffset},
		{"bad date", "offer_acceptance_date: 03/01/2024\n", dates.ErrInvalidDate},
		{"impossible date", "milestones:\n  closing_date: {date: 2024-02-30}\n", dates.ErrInvalidDate},
		{"unknown key", "milestones:\n  roof_inspection: {days: 3}\n", model.ErrUnknownMilestone},
		{"bad status", "milestones:\n  closing_date: {status: done}\n", model.ErrInvalidStatus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTerms([]byte(tt.body), cat)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ParseTerms error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseTerms_DateAndDaysExclusive(t *testing.T) {
	body := "milestones:\n  closing_date: {date: 2024-04-01, days: 30}\n"
	if _, err := ParseTerms([]byte(body), model.DefaultCatalog()); err == nil {
		t.Fatal("expected error for date plus days")
	}
}

func TestParseTerms_RootOffsetRejected(t *testing.T) {
	body := "milestones:\n  offer_acceptance_date: {days: 2}\n"
	if _, err := ParseTerms([]byte(body), model.DefaultCatalog()); err == nil {
		t.Fatal("expected error for root offset")
	}
}

func TestParseTerms_UnknownField(t *testing.T) {
	if _, err := ParseTerms([]byte("escrow_company: First\n"), model.DefaultCatalog()); err == nil {
		t.Fatal("expected error for unknown top-level field")
	}
}

func TestParseTerms_Empty(t *testing.T) {
	terms, err := ParseTerms(nil, model.DefaultCatalog())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(terms.Milestones) != 0 {
		t.Errorf("Milestones = %v, want empty", terms.Milestones)
	}
}

func TestScanDir(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.yaml", "b.yml", "c.json", "notes.txt", ".hidden.yaml"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}\n"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "sub", "d.yaml"), []byte("{}\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	files, err := ScanDir(dir)
	if err != nil {
		t.Fatalf("ScanDir: %v", err)
	}
	var names []string
	for _, f := range files {
		names = append(names, f.Name)
	}
	if got := strings.Join(names, ","); got != "a,b,c,d" {
		t.Errorf("discovered %s, want a,b,c,d", got)
	}
}

func TestScanDir_Missing(t *testing.T) {
	files, err := ScanDir(filepath.Join(t.TempDir(), "nope"))
	if err != nil || files != nil {
		t.Fatalf("ScanDir(missing) = %v, %v; want nil, nil", files, err)
	}
}
