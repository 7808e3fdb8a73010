package store

// Dates are stored as YYYY-MM-DD text and money as decimal text in both
// dialects.

const schemaSQL = `
CREATE TABLE IF NOT EXISTS transactions (
    id                      TEXT PRIMARY KEY,
    address                 TEXT NOT NULL,
    city                    TEXT NOT NULL DEFAULT '',
    state                   TEXT NOT NULL DEFAULT '',
    zip                     TEXT NOT NULL DEFAULT '',
    client                  TEXT NOT NULL DEFAULT '',
    side                    TEXT NOT NULL DEFAULT 'buyer',
    sales_price             TEXT NOT NULL DEFAULT '0',
    emd_amount              TEXT NOT NULL DEFAULT '0',
    emd_percent             TEXT NOT NULL DEFAULT '0',
    listing_commission_pct  TEXT NOT NULL DEFAULT '0',
    listing_commission      TEXT NOT NULL DEFAULT '0',
    buyer_commission_pct    TEXT NOT NULL DEFAULT '0',
    buyer_commission        TEXT NOT NULL DEFAULT '0',
    created_at              TEXT NOT NULL,
    updated_at              TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS milestones (
    id                   TEXT PRIMARY KEY,
    transaction_id       TEXT NOT NULL REFERENCES transactions(id) ON DELETE CASCADE,
    key                  TEXT NOT NULL,
    date                 TEXT,
    status               TEXT NOT NULL DEFAULT 'in_progress',
    notes                TEXT NOT NULL DEFAULT '',
    offset_days          INTEGER,
    updated_at           TEXT NOT NULL,
    UNIQUE (transaction_id, key)
);

CREATE TABLE IF NOT EXISTS tasks (
    id                   TEXT PRIMARY KEY,
    transaction_id       TEXT NOT NULL REFERENCES transactions(id) ON DELETE CASCADE,
    label                TEXT NOT NULL,
    date                 TEXT,
    completed            INTEGER NOT NULL DEFAULT 0,
    notes                TEXT NOT NULL DEFAULT '',
    created_at           TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_milestones_date ON milestones(date);
CREATE INDEX IF NOT EXISTS idx_tasks_txn ON tasks(transaction_id);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS transactions (
    id                      TEXT PRIMARY KEY,
    address                 TEXT NOT NULL,
    city                    TEXT NOT NULL DEFAULT '',
    state                   TEXT NOT NULL DEFAULT '',
    zip                     TEXT NOT NULL DEFAULT '',
    client                  TEXT NOT NULL DEFAULT '',
    side                    TEXT NOT NULL DEFAULT 'buyer',
    sales_price             TEXT NOT NULL DEFAULT '0',
    emd_amount              TEXT NOT NULL DEFAULT '0',
    emd_percent             TEXT NOT NULL DEFAULT '0',
    listing_commission_pct  TEXT NOT NULL DEFAULT '0',
    listing_commission      TEXT NOT NULL DEFAULT '0',
    buyer_commission_pct    TEXT NOT NULL DEFAULT '0',
    buyer_commission        TEXT NOT NULL DEFAULT '0',
    created_at              TIMESTAMPTZ NOT NULL,
    updated_at              TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS milestones (
    id                   TEXT PRIMARY KEY,
    transaction_id       TEXT NOT NULL REFERENCES transactions(id) ON DELETE CASCADE,
    key                  TEXT NOT NULL,
    date                 TEXT,
    status               TEXT NOT NULL DEFAULT 'in_progress',
    notes                TEXT NOT NULL DEFAULT '',
    offset_days          INTEGER,
    updated_at           TIMESTAMPTZ NOT NULL,
    UNIQUE (transaction_id, key)
);

CREATE TABLE IF NOT EXISTS tasks (
    id                   TEXT PRIMARY KEY,
    transaction_id       TEXT NOT NULL REFERENCES transactions(id) ON DELETE CASCADE,
    label                TEXT NOT NULL,
    date                 TEXT,
    completed            BOOLEAN NOT NULL DEFAULT FALSE,
    notes                TEXT NOT NULL DEFAULT '',
    created_at           TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_milestones_date ON milestones(date);
CREATE INDEX IF NOT EXISTS idx_tasks_txn ON tasks(transaction_id);
`
