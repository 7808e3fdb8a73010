package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/theirongolddev/dealdates/internal/model"
)

// RecordSource is the read side of a store.
type RecordSource interface {
	LoadRecords(ctx context.Context) ([]model.TransactionRecord, error)
	ListTasks(ctx context.Context, txnID string) ([]model.Task, error)
}

// NewDeal projects one record and attaches its tasks.
func NewDeal(rec model.TransactionRecord, tasks []model.Task, cat model.Catalog, today time.Time) Deal {
	return Deal{
		Txn:        rec.Transaction,
		Milestones: Project(rec, cat, today),
		Tasks:      tasks,
	}
}

// LoadDeals projects every stored transaction as of today.
func LoadDeals(ctx context.Context, src RecordSource, cat model.Catalog, today time.Time) ([]Deal, error) {
	recs, err := src.LoadRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading transactions: %w", err)
	}
	tasks, err := src.ListTasks(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("loading tasks: %w", err)
	}

	byTxn := make(map[string][]model.Task, len(recs))
	for _, t := range tasks {
		byTxn[t.TransactionID] = append(byTxn[t.TransactionID], t)
	}

	deals := make([]Deal, 0, len(recs))
	for _, rec := range recs {
		deals = append(deals, NewDeal(rec, byTxn[rec.ID], cat, today))
	}
	return deals, nil
}
