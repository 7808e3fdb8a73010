package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/theirongolddev/dealdates/internal/dates"
	"github.com/theirongolddev/dealdates/internal/model"
	"github.com/theirongolddev/dealdates/internal/source"
)

func patchDates(patches []model.MilestonePatch) map[string]string {
	out := make(map[string]string, len(patches))
	for _, p := range patches {
		if p.Date == nil {
			out[p.Key] = "TBD"
			continue
		}
		out[p.Key] = dates.Format(*p.Date)
	}
	return out
}

func TestDeriveAll_DefaultCatalog(t *testing.T) {
	rec := record(model.StoredMilestone{Key: model.KeyOfferAcceptance, Date: datePtr(t, "2024-03-01")})

	patches, err := DeriveAll(rec, model.DefaultCatalog(), false)
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]string{
		"emd_due_date":                   "2024-03-06",
		"seller_disclosures_date":        "2024-03-08",
		"disclosures_due_back_date":      "2024-03-13",
		"investigation_contingency_date": "2024-03-18",
		"appraisal_contingency_date":     "2024-03-18",
		"loan_contingency_date":          "2024-03-22",
		"removal_of_contingencies_date":  "2024-03-18",
		"closing_date":                   "2024-04-01",
		"final_walkthrough_date":         "2024-03-27",
		"possession_date":                "2024-04-01",
	}
	if diff := cmp.Diff(want, patchDates(patches)); diff != "" {
		t.Errorf("derived dates mismatch (-want +got):\n%s", diff)
	}
}

func TestDeriveAll_KeepsExplicitDatesUnlessOverwrite(t *testing.T) {
	rec := record(
		model.StoredMilestone{Key: model.KeyOfferAcceptance, Date: datePtr(t, "2024-03-01")},
		model.StoredMilestone{Key: "closing_date", Date: datePtr(t, "2024-04-15"), Status: "extended", Notes: "moved"},
	)

	patches, err := DeriveAll(rec, model.DefaultCatalog(), false)
	if err != nil {
		t.Fatal(err)
	}
	got := patchDates(patches)
	if _, ok := got["closing_date"]; ok {
		t.Error("explicit closing_date was overwritten")
	}
	// Dependents chain from the stored closing date.
	if got["final_walkthrough_date"] != "2024-04-10" || got["possession_date"] != "2024-04-15" {
		t.Errorf("closing dependents = %s / %s", got["final_walkthrough_date"], got["possession_date"])
	}

	patches, err = DeriveAll(rec, model.DefaultCatalog(), true)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range patches {
		if p.Key != "closing_date" {
			continue
		}
		if dates.Format(*p.Date) != "2024-04-01" {
			t.Errorf("overwritten closing_date = %s", dates.Format(*p.Date))
		}
		if p.Status != model.StatusExtended || p.Notes != "moved" {
			t.Errorf("overwrite lost status/notes: %+v", p)
		}
	}
}

func TestDeriveAll_StoredOffsetWins(t *testing.T) {
	rec := record(
		model.StoredMilestone{Key: model.KeyOfferAcceptance, Date: datePtr(t, "2024-03-01")},
		model.StoredMilestone{Key: "emd_due_date", Offset: intPtr(1)},
	)
	patches, err := DeriveAll(rec, model.DefaultCatalog(), false)
	if err != nil {
		t.Fatal(err)
	}
	if got := patchDates(patches)["emd_due_date"]; got != "2024-03-04" {
		t.Errorf("emd_due_date = %s, want 2024-03-04", got)
	}
}

func TestDeriveAll_NoBaseDate(t *testing.T) {
	patches, err := DeriveAll(record(), model.DefaultCatalog(), false)
	if err != nil {
		t.Fatal(err)
	}
	if len(patches) != 0 {
		t.Errorf("got %d patches without any root date", len(patches))
	}
}

func TestApplyTerms(t *testing.T) {
	terms, err := source.ParseTerms([]byte(`
original_contract_date: 2024-02-28
offer_acceptance_date: 2024-03-01
milestones:
  emd_due_date: {days: 3}
  seller_disclosures_date: {days: 7, business_days: true}
  disclosures_due_back_date: {days: 5}
  closing_date: {date: 2024-04-05, status: negotiating}
  possession_date: {days: 1}
`), model.DefaultCatalog())
	if err != nil {
		t.Fatal(err)
	}

	rec := record(model.StoredMilestone{Key: model.KeyOriginalContract, Notes: "kept"})
	patches, err := ApplyTerms(rec, model.DefaultCatalog(), terms)
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]string{
		model.KeyOriginalContract:   "2024-02-28",
		model.KeyOfferAcceptance:    "2024-03-01",
		"emd_due_date":              "2024-03-06",
		"seller_disclosures_date":   "2024-03-12",
		"disclosures_due_back_date": "2024-03-17",
		"closing_date":              "2024-04-05",
		"possession_date":           "2024-04-06",
	}
	if diff := cmp.Diff(want, patchDates(patches)); diff != "" {
		t.Errorf("applied dates mismatch (-want +got):\n%s", diff)
	}
	for _, p := range patches {
		switch p.Key {
		case model.KeyOriginalContract:
			if p.Status != model.StatusCompleted || p.Notes != "kept" {
				t.Errorf("root patch = %+v", p)
			}
		case "closing_date":
			if p.Status != model.StatusNegotiating {
				t.Errorf("closing status = %q", p.Status)
			}
		}
	}
}

func TestApplyTerms_OffsetWithoutBase(t *testing.T) {
	terms, err := source.ParseTerms([]byte("milestones:\n  emd_due_date: {days: 3}\n"), model.DefaultCatalog())
	if err != nil {
		t.Fatal(err)
	}
	_, err = ApplyTerms(record(), model.DefaultCatalog(), terms)
	if !errors.Is(err, ErrBaseDateMissing) {
		t.Fatalf("error = %v, want ErrBaseDateMissing", err)
	}
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	write("a.yaml", "offer_acceptance_date: 2024-03-01\n")
	write("b.json", `{"offer_acceptance_date": "2024-03-02"}`)
	write("c.yaml", "offer_acceptance_date: not-a-date\n")

	var calls atomic.Int64
	result, err := LoadDir(dir, model.DefaultCatalog(), func(current, total int) {
		calls.Add(1)
		if total != 3 {
			t.Errorf("progress total = %d, want 3", total)
		}
	})
	if err != nil {
		t.Fatal(err)
	}

	if result.TotalFiles != 3 || result.Parsed != 2 || len(result.Failures) != 1 {
		t.Errorf("result = total %d parsed %d failures %d", result.TotalFiles, result.Parsed, len(result.Failures))
	}
	if calls.Load() != 3 {
		t.Errorf("progress called %d times, want 3", calls.Load())
	}
	if !errors.Is(result.Failures[0].Err, dates.ErrInvalidDate) {
		t.Errorf("failure error = %v", result.Failures[0].Err)
	}
	if got := dates.Format(*result.Terms[0].OfferAcceptanceDate); got != "2024-03-01" {
		t.Errorf("first terms = %s, want file order preserved", got)
	}
}
