package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/theirongolddev/dealdates/internal/model"
)

// Postgres is the shared-database backend.
type Postgres struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

var _ Store = (*Postgres)(nil)

// OpenPostgres connects to dsn, verifies the connection and creates the
// schema if needed.
func OpenPostgres(ctx context.Context, dsn string, log *zap.Logger) (*Postgres, error) {
	if log == nil {
		log = zap.NewNop()
	}

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres dsn: %w", err)
	}
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 1
	poolCfg.MaxConnIdleTime = time.Minute

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	if _, err := pool.Exec(connectCtx, schemaPostgres); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	log.Info("postgres store opened",
		zap.String("host", poolCfg.ConnConfig.Host),
		zap.String("database", poolCfg.ConnConfig.Database),
		zap.Int32("max_conns", poolCfg.MaxConns),
	)
	return &Postgres{pool: pool, log: log}, nil
}

// Close releases the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// CreateTransaction inserts t, assigning an ID and timestamps when missing.
func (p *Postgres) CreateTransaction(ctx context.Context, t *model.Transaction) error {
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
	args = append(args, t.CreatedAt, t.UpdatedAt)

	_, err := p.pool.Exec(ctx, `INSERT INTO transactions
		(id, address, city, state, zip, client, side, `+financialColumns+`, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`, args...)
	if err != nil {
		p.log.Error("insert transaction failed", zap.Error(err))
		return fmt.Errorf("inserting transaction: %w", err)
	}
	p.log.Debug("transaction created", zap.String("id", t.ID))
	return nil
}

// UpdateTransaction replaces the descriptive fields and financials of t.
func (p *Postgres) UpdateTransaction(ctx context.Context, t model.Transaction) error {
	args := []any{t.Address, t.City, t.State, t.Zip, t.Client, string(t.Side)}
	args = append(args, financialValues(t.Financials)...)
	args = append(args, time.Now().UTC(), t.ID)

	tag, err := p.pool.Exec(ctx, `UPDATE transactions SET
		address = $1, city = $2, state = $3, zip = $4, client = $5, side = $6,
		sales_price = $7, emd_amount = $8, emd_percent = $9,
		listing_commission_pct = $10, listing_commission = $11,
		buyer_commission_pct = $12, buyer_commission = $13,
		updated_at = $14
		WHERE id = $15`, args...)
	if err != nil {
		return fmt.Errorf("updating transaction: %w", err)
	}
	return expectTag(tag, "transaction", t.ID)
}

// SaveFinancials replaces the money fields of transaction id.
func (p *Postgres) SaveFinancials(ctx context.Context, id string, f model.Financials) error {
	args := financialValues(f)
	args = append(args, time.Now().UTC(), id)
	tag, err := p.pool.Exec(ctx, `UPDATE transactions SET
		sales_price = $1, emd_amount = $2, emd_percent = $3,
		listing_commission_pct = $4, listing_commission = $5,
		buyer_commission_pct = $6, buyer_commission = $7,
		updated_at = $8
		WHERE id = $9`, args...)
	if err != nil {
		return fmt.Errorf("saving financials: %w", err)
	}
	return expectTag(tag, "transaction", id)
}

func scanPgTransaction(row pgx.Row) (model.Transaction, error) {
	var t model.Transaction
	var side string
	var money moneyRow

	dest := []any{&t.ID, &t.Address, &t.City, &t.State, &t.Zip, &t.Client, &side}
	dest = append(dest, money.targets()...)
	dest = append(dest, &t.CreatedAt, &t.UpdatedAt)
	if err := row.Scan(dest...); err != nil {
		return model.Transaction{}, err
	}
	f, err := money.decode()
	if err != nil {
		return model.Transaction{}, err
	}
	t.Side = model.Side(side)
	t.Financials = f
	return t, nil
}

// GetTransaction returns the transaction with the exact id.
func (p *Postgres) GetTransaction(ctx context.Context, id string) (model.Transaction, error) {
	t, err := scanPgTransaction(p.pool.QueryRow(ctx, selectTransaction+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Transaction{}, fmt.Errorf("transaction %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Transaction{}, fmt.Errorf("reading transaction: %w", err)
	}
	return t, nil
}

// ListTransactions returns every transaction, oldest first.
func (p *Postgres) ListTransactions(ctx context.Context) ([]model.Transaction, error) {
	rows, err := p.pool.Query(ctx, selectTransaction+` ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	var out []model.Transaction
	for rows.Next() {
		t, err := scanPgTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteTransaction removes a transaction together with its milestones and
// tasks.
func (p *Postgres) DeleteTransaction(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting transaction: %w", err)
	}
	return expectTag(tag, "transaction", id)
}

// LoadRecord returns transaction id with its milestone rows.
func (p *Postgres) LoadRecord(ctx context.Context, id string) (model.TransactionRecord, error) {
	t, err := p.GetTransaction(ctx, id)
	if err != nil {
		return model.TransactionRecord{}, err
	}
	ms, err := p.loadMilestones(ctx, `WHERE transaction_id = $1`, id)
	if err != nil {
		return model.TransactionRecord{}, err
	}
	return model.TransactionRecord{Transaction: t, Milestones: ms[id]}, nil
}

// LoadRecords returns every transaction with its milestone rows.
func (p *Postgres) LoadRecords(ctx context.Context) ([]model.TransactionRecord, error) {
	txns, err := p.ListTransactions(ctx)
	if err != nil {
		return nil, err
	}
	ms, err := p.loadMilestones(ctx, ``)
	if err != nil {
		return nil, err
	}
	out := make([]model.TransactionRecord, len(txns))
	for i, t := range txns {
		out[i] = model.TransactionRecord{Transaction: t, Milestones: ms[t.ID]}
	}
	return out, nil
}

func (p *Postgres) loadMilestones(ctx context.Context, where string, args ...any) (map[string]map[string]model.StoredMilestone, error) {
	rows, err := p.pool.Query(ctx, `SELECT id, transaction_id, key, date, status, notes, offset_days, updated_at
		FROM milestones `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("loading milestones: %w", err)
	}
	defer rows.Close()

	out := make(map[string]map[string]model.StoredMilestone)
	for rows.Next() {
		var m model.StoredMilestone
		var txnID string
		var date sql.NullString
		var offset sql.NullInt64
		if err := rows.Scan(&m.ID, &txnID, &m.Key, &date, &m.Status, &m.Notes, &offset, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning milestone: %w", err)
		}
		if m.Date, err = decodeDate(date); err != nil {
			p.log.Warn("ignoring unreadable milestone date",
				zap.String("transaction", txnID), zap.String("key", m.Key), zap.Error(err))
		}
		m.Offset = decodeOffset(offset)

		if out[txnID] == nil {
			out[txnID] = make(map[string]model.StoredMilestone)
		}
		out[txnID][m.Key] = m
	}
	return out, rows.Err()
}

// SaveMilestones upserts one row per patch in a single database
// transaction, keyed by (transaction, milestone key).
func (p *Postgres) SaveMilestones(ctx context.Context, txnID string, patches []model.MilestonePatch) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var exists int
	err = tx.QueryRow(ctx, `SELECT 1 FROM transactions WHERE id = $1 FOR UPDATE`, txnID).Scan(&exists)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("transaction %q: %w", txnID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("checking transaction: %w", err)
	}

	now := time.Now().UTC()
	batch := &pgx.Batch{}
	for _, m := range patches {
		batch.Queue(`INSERT INTO milestones
			(id, transaction_id, key, date, status, notes, offset_days, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (transaction_id, key) DO UPDATE SET
				date = EXCLUDED.date,
				status = EXCLUDED.status,
				notes = EXCLUDED.notes,
				offset_days = EXCLUDED.offset_days,
				updated_at = EXCLUDED.updated_at`,
			uuid.NewString(), txnID, m.Key, dateValue(m.Date), string(m.Status), m.Notes, offsetValue(m.Offset), now,
		)
	}
	batch.Queue(`UPDATE transactions SET updated_at = $1 WHERE id = $2`, now, txnID)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		p.log.Error("saving milestones failed", zap.String("transaction", txnID), zap.Error(err))
		return fmt.Errorf("saving milestones: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	p.log.Debug("milestones saved", zap.String("transaction", txnID), zap.Int("count", len(patches)))
	return nil
}

// AddTask inserts a task reminder, assigning an ID when missing.
func (p *Postgres) AddTask(ctx context.Context, t *model.Task) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := p.pool.Exec(ctx, `INSERT INTO tasks
		(id, transaction_id, label, date, completed, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, t.TransactionID, t.Label, dateValue(t.Date), t.Completed, t.Notes, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting task: %w", err)
	}
	return nil
}

// ListTasks returns tasks for txnID, or for every transaction when txnID is
// empty. Dated tasks come first in date order.
func (p *Postgres) ListTasks(ctx context.Context, txnID string) ([]model.Task, error) {
	q := `SELECT id, transaction_id, label, date, completed, notes, created_at FROM tasks`
	var args []any
	if txnID != "" {
		q += ` WHERE transaction_id = $1`
		args = append(args, txnID)
	}
	q += ` ORDER BY date NULLS LAST, created_at`

	rows, err := p.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()

	var out []model.Task
	for rows.Next() {
		var t model.Task
		var date sql.NullString
		if err := rows.Scan(&t.ID, &t.TransactionID, &t.Label, &date, &t.Completed, &t.Notes, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		t.Date, _ = decodeDate(date)
		out = append(out, t)
	}
	return out, rows.Err()
}

// SetTaskCompleted marks a task done or reopens it.
func (p *Postgres) SetTaskCompleted(ctx context.Context, id string, done bool) error {
	tag, err := p.pool.Exec(ctx, `UPDATE tasks SET completed = $1 WHERE id = $2`, done, id)
	if err != nil {
		return fmt.Errorf("updating task: %w", err)
	}
	return expectTag(tag, "task", id)
}

// DeleteTask removes a task.
func (p *Postgres) DeleteTask(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	return expectTag(tag, "task", id)
}

func expectTag(tag pgconn.CommandTag, kind, id string) error {
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
	}
	return nil
}
