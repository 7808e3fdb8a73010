package cli

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/dealdates/internal/dates"
	"github.com/theirongolddev/dealdates/internal/model"
	"github.com/theirongolddev/dealdates/internal/pipeline"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "-"},
		{"525000", "$525,000.00"},
		{"7875.5", "$7,875.50"},
		{"999.999", "$1,000.00"},
		{"-1200", "-$1,200.00"},
	}
	for _, tt := range tests {
		if got := FormatMoney(decimal.RequireFromString(tt.in)); got != tt.want {
			t.Errorf("FormatMoney(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatDaysRemaining(t *testing.T) {
	n := func(v int) *int { return &v }
	tests := []struct {
		in   *int
		want string
	}{
		{nil, ""},
		{n(0), "today"},
		{n(1), "tomorrow"},
		{n(12), "in 12 days"},
		{n(-1), "1 day late"},
		{n(-4), "4 days late"},
	}
	for _, tt := range tests {
		if got := FormatDaysRemaining(tt.in); got != tt.want {
			t.Errorf("FormatDaysRemaining = %q, want %q", got, tt.want)
		}
	}
}

func TestFormatNumber(t *testing.T) {
	tests := map[int64]string{0: "0", 999: "999", 1000: "1,000", 1234567: "1,234,567", -4500: "-4,500"}
	for in, want := range tests {
		if got := FormatNumber(in); got != want {
			t.Errorf("FormatNumber(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("Investigation Contingency", 10); got != "Investiga…" {
		t.Errorf("Truncate = %q", got)
	}
	if got := Truncate("EMD", 10); got != "EMD" {
		t.Errorf("Truncate = %q", got)
	}
}

func TestRenderProgressBar(t *testing.T) {
	if got := RenderProgressBar(3, 0, 10); got != "" {
		t.Errorf("empty total = %q, want empty", got)
	}
	tests := []struct {
		current, total int
		bar, count     string
	}{
		{0, 4, "░░░░░░░░", "0/4"},
		{1, 4, "██░░░░░░", "1/4"},
		{4, 4, "████████", "4/4"},
		{1500, 1000, "████████", "1,500/1,000"},
	}
	for _, tt := range tests {
		got := RenderProgressBar(tt.current, tt.total, 8)
		if !strings.Contains(got, tt.bar) || !strings.HasSuffix(got, "] "+tt.count) {
			t.Errorf("RenderProgressBar(%d, %d) = %q, want bar %q and %q", tt.current, tt.total, got, tt.bar, tt.count)
		}
	}
}

func TestRenderTable(t *testing.T) {
	out := RenderTable(Table{
		Headers: []string{"Milestone", "Date"},
		Rows:    [][]string{{"EMD Due", "2024-03-06"}, {"---"}, {"Close of Escrow", "TBD"}},
		Right:   []int{1},
	})
	for _, want := range []string{"Milestone", "Close of Escrow", "2024-03-06", "╭", "╯"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	if got := strings.Count(out, "\n"); got != 7 {
		t.Errorf("table has %d lines, want 7", got)
	}
}

func TestRenderMonthGrid(t *testing.T) {
	d := dates.Of(2024, 3, 5)
	es := []pipeline.Entry{pipeline.MilestoneEntry{
		Milestone: model.MilestoneInstance{Key: "emd_due_date", Date: &d, Status: model.StatusOverdue},
	}}
	out := RenderMonthGrid(pipeline.MonthGrid(2024, 3, es), dates.Of(2024, 3, 10))

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	// Header plus six week rows: March 2024 starts on a Friday.
	if len(lines) != 7 {
		t.Fatalf("got %d lines, want 7:\n%s", len(lines), out)
	}
	if !strings.Contains(out, " 5·1") {
		t.Errorf("grid missing entry count for the 5th:\n%s", out)
	}
	if !strings.Contains(out, "31") {
		t.Errorf("grid missing the 31st:\n%s", out)
	}
}
