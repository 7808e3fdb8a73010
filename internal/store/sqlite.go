package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/theirongolddev/dealdates/internal/model"

	_ "modernc.org/sqlite" // register sqlite driver
)

// SQLite is the default single-user backend.
type SQLite struct {
	db  *sql.DB
	log *zap.Logger
}

var _ Store = (*SQLite)(nil)

// OpenSQLite opens or creates the database at path.
func OpenSQLite(path string, log *zap.Logger) (*SQLite, error) {
	if log == nil {
		log = zap.NewNop()
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	log.Debug("sqlite store opened", zap.String("path", path))
	return &SQLite{db: db, log: log}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// CreateTransaction inserts t, assigning an ID and timestamps when missing.
func (s *SQLite) CreateTransaction(ctx context.Context, t *model.Transaction) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Side == "" {
		t.Side = model.SideBuyer
	}
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	args := []any{t.ID, t.Address, t.City, t.State, t.Zip, t.Client, string(t.Side)}
	args = append(args, financialValues(t.Financials)...)
	args = append(args, formatTime(t.CreatedAt), formatTime(t.UpdatedAt))

	_, err := s.db.ExecContext(ctx, `INSERT INTO transactions
		(id, address, city, state, zip, client, side, `+financialColumns+`, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
	if err != nil {
		return fmt.Errorf("inserting transaction: %w", err)
	}
	s.log.Debug("transaction created", zap.String("id", t.ID), zap.String("address", t.Address))
	return nil
}

// UpdateTransaction replaces the descriptive fields and financials of t.
func (s *SQLite) UpdateTransaction(ctx context.Context, t model.Transaction) error {
	args := []any{t.Address, t.City, t.State, t.Zip, t.Client, string(t.Side)}
	args = append(args, financialValues(t.Financials)...)
	args = append(args, formatTime(time.Now()), t.ID)

	res, err := s.db.ExecContext(ctx, `UPDATE transactions SET
		address = ?, city = ?, state = ?, zip = ?, client = ?, side = ?,
		sales_price = ?, emd_amount = ?, emd_percent = ?,
		listing_commission_pct = ?, listing_commission = ?,
		buyer_commission_pct = ?, buyer_commission = ?,
		updated_at = ?
		WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("updating transaction: %w", err)
	}
	return expectRow(res, "transaction", t.ID)
}

// SaveFinancials replaces the money fields of transaction id.
func (s *SQLite) SaveFinancials(ctx context.Context, id string, f model.Financials) error {
	args := financialValues(f)
	args = append(args, formatTime(time.Now()), id)
	res, err := s.db.ExecContext(ctx, `UPDATE transactions SET
		sales_price = ?, emd_amount = ?, emd_percent = ?,
		listing_commission_pct = ?, listing_commission = ?,
		buyer_commission_pct = ?, buyer_commission = ?,
		updated_at = ?
		WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("saving financials: %w", err)
	}
	return expectRow(res, "transaction", id)
}

const selectTransaction = `SELECT id, address, city, state, zip, client, side, ` +
	financialColumns + `, created_at, updated_at FROM transactions`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (model.Transaction, error) {
	var t model.Transaction
	var side, created, updated string
	var money moneyRow

	dest := []any{&t.ID, &t.Address, &t.City, &t.State, &t.Zip, &t.Client, &side}
	dest = append(dest, money.targets()...)
	dest = append(dest, &created, &updated)
	if err := row.Scan(dest...); err != nil {
		return model.Transaction{}, err
	}

	f, err := money.decode()
	if err != nil {
		return model.Transaction{}, err
	}
	t.Side = model.Side(side)
	t.Financials = f
	t.CreatedAt = parseTime(created)
	t.UpdatedAt = parseTime(updated)
	return t, nil
}

// GetTransaction returns the transaction with the exact id.
func (s *SQLite) GetTransaction(ctx context.Context, id string) (model.Transaction, error) {
	t, err := scanTransaction(s.db.QueryRowContext(ctx, selectTransaction+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Transaction{}, fmt.Errorf("transaction %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Transaction{}, fmt.Errorf("reading transaction: %w", err)
	}
	return t, nil
}

// ListTransactions returns every transaction, oldest first.
func (s *SQLite) ListTransactions(ctx context.Context) ([]model.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, selectTransaction+` ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteTransaction removes a transaction together with its milestones and
// tasks.
func (s *SQLite) DeleteTransaction(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting transaction: %w", err)
	}
	if err := expectRow(res, "transaction", id); err != nil {
		return err
	}
	s.log.Debug("transaction deleted", zap.String("id", id))
	return nil
}

// LoadRecord returns transaction id with its milestone rows.
func (s *SQLite) LoadRecord(ctx context.Context, id string) (model.TransactionRecord, error) {
	t, err := s.GetTransaction(ctx, id)
	if err != nil {
		return model.TransactionRecord{}, err
	}
	ms, err := s.loadMilestones(ctx, `WHERE transaction_id = ?`, id)
	if err != nil {
		return model.TransactionRecord{}, err
	}
	return model.TransactionRecord{Transaction: t, Milestones: ms[id]}, nil
}

// LoadRecords returns every transaction with its milestone rows.
func (s *SQLite) LoadRecords(ctx context.Context) ([]model.TransactionRecord, error) {
	txns, err := s.ListTransactions(ctx)
	if err != nil {
		return nil, err
	}
	ms, err := s.loadMilestones(ctx, ``)
	if err != nil {
		return nil, err
	}
	out := make([]model.TransactionRecord, len(txns))
	for i, t := range txns {
		out[i] = model.TransactionRecord{Transaction: t, Milestones: ms[t.ID]}
	}
	return out, nil
}

func (s *SQLite) loadMilestones(ctx context.Context, where string, args ...any) (map[string]map[string]model.StoredMilestone, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, transaction_id, key, date, status, notes, offset_days, updated_at
		FROM milestones `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("loading milestones: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]map[string]model.StoredMilestone)
	for rows.Next() {
		var m model.StoredMilestone
		var txnID, updated string
		var date sql.NullString
		var offset sql.NullInt64
		if err := rows.Scan(&m.ID, &txnID, &m.Key, &date, &m.Status, &m.Notes, &offset, &updated); err != nil {
			return nil, fmt.Errorf("scanning milestone: %w", err)
		}
		if m.Date, err = decodeDate(date); err != nil {
			s.log.Warn("ignoring unreadable milestone date",
				zap.String("transaction", txnID), zap.String("key", m.Key), zap.Error(err))
		}
		m.Offset = decodeOffset(offset)
		m.UpdatedAt = parseTime(updated)

		if out[txnID] == nil {
			out[txnID] = make(map[string]model.StoredMilestone)
		}
		out[txnID][m.Key] = m
	}
	return out, rows.Err()
}

// SaveMilestones upserts one row per patch in a single database
// transaction, keyed by (transaction, milestone key).
func (s *SQLite) SaveMilestones(ctx context.Context, txnID string, patches []model.MilestonePatch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM transactions WHERE id = ?`, txnID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("transaction %q: %w", txnID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("checking transaction: %w", err)
	}

	now := formatTime(time.Now())
	for _, p := range patches {
		_, err = tx.ExecContext(ctx, `INSERT INTO milestones
			(id, transaction_id, key, date, status, notes, offset_days, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (transaction_id, key) DO UPDATE SET
				date = excluded.date,
				status = excluded.status,
				notes = excluded.notes,
				offset_days = excluded.offset_days,
				updated_at = excluded.updated_at`,
			uuid.NewString(), txnID, p.Key, dateValue(p.Date), string(p.Status), p.Notes, offsetValue(p.Offset), now,
		)
		if err != nil {
			return fmt.Errorf("saving milestone %s: %w", p.Key, err)
		}
	}

	if _, err = tx.ExecContext(ctx, `UPDATE transactions SET updated_at = ? WHERE id = ?`, now, txnID); err != nil {
		return fmt.Errorf("touching transaction: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.log.Debug("milestones saved", zap.String("transaction", txnID), zap.Int("count", len(patches)))
	return nil
}

// AddTask inserts a task reminder, assigning an ID when missing.
func (s *SQLite) AddTask(ctx context.Context, t *model.Task) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO tasks
		(id, transaction_id, label, date, completed, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.TransactionID, t.Label, dateValue(t.Date), boolInt(t.Completed), t.Notes, formatTime(t.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting task: %w", err)
	}
	return nil
}

// ListTasks returns tasks for txnID, or for every transaction when txnID is
// empty. Dated tasks come first in date order.
func (s *SQLite) ListTasks(ctx context.Context, txnID string) ([]model.Task, error) {
	q := `SELECT id, transaction_id, label, date, completed, notes, created_at FROM tasks`
	var args []any
	if txnID != "" {
		q += ` WHERE transaction_id = ?`
		args = append(args, txnID)
	}
	q += ` ORDER BY date IS NULL, date, created_at`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Task
	for rows.Next() {
		var t model.Task
		var date sql.NullString
		var completed int
		var created string
		if err := rows.Scan(&t.ID, &t.TransactionID, &t.Label, &date, &completed, &t.Notes, &created); err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		t.Date, _ = decodeDate(date)
		t.Completed = completed != 0
		t.CreatedAt = parseTime(created)
		out = append(out, t)
	}
	return out, rows.Err()
}

// SetTaskCompleted marks a task done or reopens it.
func (s *SQLite) SetTaskCompleted(ctx context.Context, id string, done bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE tasks SET completed = ? WHERE id = ?`, boolInt(done), id)
	if err != nil {
		return fmt.Errorf("updating task: %w", err)
	}
	return expectRow(res, "task", id)
}

// DeleteTask removes a task.
func (s *SQLite) DeleteTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	return expectRow(res, "task", id)
}

func expectRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
