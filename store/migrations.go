package store

// migration is one ordered, idempotent schema step. Migrations are
// applied in slice order and recorded in schema_migrations so a
// restart never re-applies one (spec.md §6's "schema applied at
// startup via ordered migrations").
type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS trades (
	swap_id TEXT PRIMARY KEY,
	quote_id TEXT NOT NULL,
	direction TEXT NOT NULL,
	secret_hash TEXT NOT NULL,
	usdc_amount INTEGER NOT NULL,
	xmr_amount INTEGER NOT NULL,
	monero_subaddress_text TEXT NOT NULL DEFAULT '',
	monero_subaddress_blob BLOB,
	monero_txid TEXT NOT NULL DEFAULT '',
	counterparty_key BLOB,
	created_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL,
	state TEXT NOT NULL,
	failure_reason TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_trades_quote_id ON trades(quote_id);
CREATE INDEX IF NOT EXISTS idx_trades_state ON trades(state);
`,
	},
}
