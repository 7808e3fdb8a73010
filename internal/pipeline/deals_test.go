package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/theirongolddev/dealdates/internal/model"
)

type fakeSource struct {
	recs  []model.TransactionRecord
	tasks []model.Task
	err   error
}

func (f fakeSource) LoadRecords(context.Context) ([]model.TransactionRecord, error) {
	return f.recs, f.err
}

func (f fakeSource) ListTasks(context.Context, string) ([]model.Task, error) {
	return f.tasks, nil
}

func TestLoadDeals(t *testing.T) {
	a := record(model.StoredMilestone{Key: "closing_date", Date: datePtr(t, "2024-04-01")})
	b := record()
	b.ID = "txn-2"
	src := fakeSource{
		recs: []model.TransactionRecord{a, b},
		tasks: []model.Task{
			{ID: "t1", TransactionID: "txn-2", Label: "Call lender"},
			{ID: "t2", TransactionID: "txn-1", Label: "Order inspection"},
			{ID: "t3", TransactionID: "txn-2", Label: "Book movers"},
		},
	}

	deals, err := LoadDeals(context.Background(), src, model.DefaultCatalog(), mustDate(t, "2024-03-10"))
	if err != nil {
		t.Fatalf("LoadDeals: %v", err)
	}
	if len(deals) != 2 {
		t.Fatalf("got %d deals, want 2", len(deals))
	}
	if len(deals[0].Tasks) != 1 || len(deals[1].Tasks) != 2 {
		t.Errorf("tasks = %d/%d, want 1/2", len(deals[0].Tasks), len(deals[1].Tasks))
	}
	if n := len(deals[0].Milestones); n != len(model.DefaultCatalog()) {
		t.Errorf("milestones = %d, want full catalog", n)
	}
	if got := find(t, deals[0].Milestones, "closing_date").DateLabel(); got != "2024-04-01" {
		t.Errorf("closing = %s", got)
	}
}

func TestLoadDeals_Error(t *testing.T) {
	boom := errors.New("boom")
	_, err := LoadDeals(context.Background(), fakeSource{err: boom}, model.DefaultCatalog(), mustDate(t, "2024-03-10"))
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped boom", err)
	}
}
