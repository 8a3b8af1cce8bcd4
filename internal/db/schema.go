package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema is the full database schema. Money columns hold decimal strings.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'manager', 'user')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS products (
    id          INTEGER PRIMARY KEY,
    name        TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    image       BLOB,
    image_mime  TEXT,
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS variants (
    id         INTEGER PRIMARY KEY,
    product_id INTEGER NOT NULL REFERENCES products(id),
    sku        TEXT NOT NULL UNIQUE,
    label      TEXT NOT NULL DEFAULT '',
    unit_cost  TEXT NOT NULL DEFAULT '0',
    unit_price TEXT NOT NULL DEFAULT '0',
    quantity   INTEGER NOT NULL DEFAULT 0,
    min_stock  INTEGER NOT NULL DEFAULT 0 CHECK (min_stock >= 0),
    active     INTEGER NOT NULL DEFAULT 1,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS stock_movements (
    id         INTEGER PRIMARY KEY,
    variant_id INTEGER NOT NULL REFERENCES variants(id),
    delta      INTEGER NOT NULL CHECK (delta <> 0),
    reason     TEXT NOT NULL CHECK (reason IN ('sale', 'sale_cancel', 'sale_edit', 'restock', 'correction')),
    sale_id    INTEGER,
    created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_stock_movements_variant
    ON stock_movements(variant_id, created_at);

CREATE TABLE IF NOT EXISTS sales (
    id         INTEGER PRIMARY KEY,
    seller_id  INTEGER NOT NULL REFERENCES users(id),
    total      TEXT NOT NULL,
    status     TEXT NOT NULL DEFAULT 'completed' CHECK (status IN ('completed', 'cancelled')),
    note       TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sales_created_at ON sales(created_at);
CREATE INDEX IF NOT EXISTS idx_sales_status ON sales(status);

CREATE TABLE IF NOT EXISTS sale_lines (
    id         INTEGER PRIMARY KEY,
    sale_id    INTEGER NOT NULL REFERENCES sales(id),
    position   INTEGER NOT NULL,
    variant_id INTEGER NOT NULL REFERENCES variants(id),
    quantity   INTEGER NOT NULL CHECK (quantity > 0),
    unit_price TEXT NOT NULL,
    subtotal   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sale_lines_sale ON sale_lines(sale_id, position);

CREATE TABLE IF NOT EXISTS sale_payments (
    id        INTEGER PRIMARY KEY,
    sale_id   INTEGER NOT NULL REFERENCES sales(id),
    position  INTEGER NOT NULL,
    method    TEXT NOT NULL CHECK (method IN ('cash', 'debit', 'credit', 'transfer', 'wallet', 'store_credit', 'other')),
    amount    TEXT NOT NULL,
    reference TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_sale_payments_sale ON sale_payments(sale_id, position);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sqlx.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
