package ics

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/theirongolddev/dealdates/internal/model"
	"github.com/theirongolddev/dealdates/internal/pipeline"
)

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func sampleDeal() pipeline.Deal {
	return pipeline.Deal{
		Txn: model.Transaction{ID: "txn-1", Address: "12 Oak St, Springfield, IL"},
		Milestones: []model.MilestoneInstance{
			{Key: "emd_due_date", Label: "EMD Due", Date: day(2024, 3, 6), Status: model.StatusInProgress},
			{Key: "closing_date", Label: "Close of Escrow", Date: day(2024, 4, 1), Notes: "Wire funds first"},
			{Key: "loan_contingency_date", Label: "Loan Contingency"},
		},
		Tasks: []model.Task{
			{ID: "t1", Label: "Order inspection", Date: day(2024, 3, 4)},
			{ID: "t2", Label: "Done already", Date: day(2024, 3, 2), Completed: true},
			{ID: "t3", Label: "No date"},
		},
	}
}

func TestBuild_MilestoneEvents(t *testing.T) {
	out := Build([]pipeline.Deal{sampleDeal()}, Options{Now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)})

	if !strings.HasPrefix(out, "BEGIN:VCALENDAR") || !strings.Contains(out, "END:VCALENDAR") {
		t.Fatalf("not a calendar:\n%s", out)
	}
	if n := strings.Count(out, "BEGIN:VEVENT"); n != 2 {
		t.Errorf("got %d events, want 2 (dateless skipped, tasks excluded)", n)
	}
	for _, want := range []string{
		"DTSTART;VALUE=DATE:20240306",
		"DTSTART;VALUE=DATE:20240401",
		"SUMMARY:EMD Due - 12 Oak St",
		"SUMMARY:Close of Escrow - 12 Oak St",
		"DESCRIPTION:EMD Due",
		"DESCRIPTION:Wire funds first",
		"TRIGGER:-P1D",
		"UID:txn-1-emd_due_date@dealdates",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if n := strings.Count(out, "BEGIN:VALARM"); n != 2 {
		t.Errorf("got %d alarms, want one per event", n)
	}
	if strings.Contains(out, "Loan Contingency") {
		t.Error("dateless milestone exported")
	}
}

func TestBuild_TasksAndAlarmLead(t *testing.T) {
	opts := Options{IncludeTasks: true, AlarmDays: 2, Now: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}
	out := Build([]pipeline.Deal{sampleDeal()}, opts)

	if n := strings.Count(out, "BEGIN:VEVENT"); n != 3 {
		t.Errorf("got %d events, want 3", n)
	}
	if n := Count([]pipeline.Deal{sampleDeal()}, opts); n != 3 {
		t.Errorf("Count = %d, want 3", n)
	}
	if !strings.Contains(out, "SUMMARY:Order inspection - 12 Oak St") {
		t.Error("open task missing")
	}
	if strings.Contains(out, "Done already") {
		t.Error("completed task exported")
	}
	if !strings.Contains(out, "TRIGGER:-P2D") {
		t.Error("alarm lead time not applied")
	}
}

func TestBuild_NoAlarms(t *testing.T) {
	out := Build([]pipeline.Deal{sampleDeal()}, Options{AlarmDays: -1})
	if strings.Contains(out, "VALARM") {
		t.Error("alarms emitted with AlarmDays < 0")
	}
}

func TestExport(t *testing.T) {
	var buf bytes.Buffer
	if err := Export(&buf, nil, Options{Name: "Deals"}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if strings.Contains(out, "BEGIN:VEVENT") {
		t.Error("empty feed has events")
	}
	if !strings.Contains(out, "X-WR-CALNAME:Deals") || !strings.Contains(out, "PRODID:"+ProductID) {
		t.Errorf("calendar header missing:\n%s", out)
	}
}
