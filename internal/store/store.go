// Package store persists transactions, their milestone rows and task
// reminders. SQLite is the default backend; Postgres is available for a
// shared office database.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/theirongolddev/dealdates/internal/model"
)

var (
	// ErrNotFound is returned when a transaction or task does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAmbiguous is returned when a transaction reference matches more
	// than one transaction.
	ErrAmbiguous = errors.New("ambiguous reference")
)

// Store is the persistence contract shared by every backend. Concurrent
// writers are not coordinated; the last write to a milestone row wins.
type Store interface {
	CreateTransaction(ctx context.Context, t *model.Transaction) error
	UpdateTransaction(ctx context.Context, t model.Transaction) error
	GetTransaction(ctx context.Context, id string) (model.Transaction, error)
	ListTransactions(ctx context.Context) ([]model.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error
	SaveFinancials(ctx context.Context, id string, f model.Financials) error

	LoadRecord(ctx context.Context, id string) (model.TransactionRecord, error)
	LoadRecords(ctx context.Context) ([]model.TransactionRecord, error)
	SaveMilestones(ctx context.Context, txnID string, patches []model.MilestonePatch) error

	AddTask(ctx context.Context, t *model.Task) error
	ListTasks(ctx context.Context, txnID string) ([]model.Task, error)
	SetTaskCompleted(ctx context.Context, id string, done bool) error
	DeleteTask(ctx context.Context, id string) error

	Close() error
}

// SaveMilestone upserts a single milestone row.
func SaveMilestone(ctx context.Context, s Store, txnID string, p model.MilestonePatch) error {
	return s.SaveMilestones(ctx, txnID, []model.MilestonePatch{p})
}

// Resolve finds a transaction by exact ID, unique ID prefix, or unique
// case-insensitive address substring.
func Resolve(ctx context.Context, s Store, ref string) (model.Transaction, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return model.Transaction{}, fmt.Errorf("transaction %w: empty reference", ErrNotFound)
	}
	if t, err := s.GetTransaction(ctx, ref); err == nil {
		return t, nil
	} else if !errors.Is(err, ErrNotFound) {
		return model.Transaction{}, err
	}

	all, err := s.ListTransactions(ctx)
	if err != nil {
		return model.Transaction{}, err
	}

	match := func(pred func(model.Transaction) bool) ([]model.Transaction, bool) {
		var hits []model.Transaction
		for _, t := range all {
			if pred(t) {
				hits = append(hits, t)
			}
		}
		return hits, len(hits) > 0
	}

	hits, ok := match(func(t model.Transaction) bool { return strings.HasPrefix(t.ID, ref) })
	if !ok {
		needle := strings.ToLower(ref)
		hits, ok = match(func(t model.Transaction) bool {
			return strings.Contains(strings.ToLower(t.FullAddress()), needle)
		})
	}
	switch {
	case !ok:
		return model.Transaction{}, fmt.Errorf("transaction %q: %w", ref, ErrNotFound)
	case len(hits) > 1:
		return model.Transaction{}, fmt.Errorf("transaction %q matches %d deals: %w", ref, len(hits), ErrAmbiguous)
	}
	return hits[0], nil
}
