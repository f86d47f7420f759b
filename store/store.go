// Package store is the durable trade store: a single embedded SQLite
// database file holding swap_id->trade records, cross-indexed by
// quote_id, with writes atomic per record and a full rehydration read
// on startup (spec.md §4.5/§6).
package store

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/google/uuid"

	"github.com/stealthreserve/swapd/coordinator"
	"github.com/stealthreserve/swapd/escrow"
)

// Store is a SQLite-backed implementation of coordinator.Store.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (creating if necessary) the database file at path and
// applies any pending migrations.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("store: create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping %s: %w", path, err)
	}
	// SQLite supports exactly one writer; serialize through a single
	// connection so concurrent PutTrade calls never hit SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY, applied_at INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("store: create schema_migrations: %w", err)
	}

	for _, m := range migrations {
		var applied int
		err := s.db.QueryRow(`SELECT COUNT(1) FROM schema_migrations WHERE version = ?`, m.version).Scan(&applied)
		if err != nil {
			return fmt.Errorf("store: check migration %d: %w", m.version, err)
		}
		if applied > 0 {
			continue
		}
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("store: begin migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("store: apply migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`, m.version, time.Now().Unix()); err != nil {
			tx.Rollback()
			return fmt.Errorf("store: record migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("store: commit migration %d: %w", m.version, err)
		}
		log.Infof("applied migration %d", m.version)
	}
	return nil
}

// PutTrade upserts t as a single atomic statement.
func (s *Store) PutTrade(t *coordinator.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
INSERT INTO trades (
	swap_id, quote_id, direction, secret_hash, usdc_amount, xmr_amount,
	monero_subaddress_text, monero_subaddress_blob, monero_txid,
	counterparty_key, created_at, expires_at, state, failure_reason
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(swap_id) DO UPDATE SET
	quote_id=excluded.quote_id,
	direction=excluded.direction,
	secret_hash=excluded.secret_hash,
	usdc_amount=excluded.usdc_amount,
	xmr_amount=excluded.xmr_amount,
	monero_subaddress_text=excluded.monero_subaddress_text,
	monero_subaddress_blob=excluded.monero_subaddress_blob,
	monero_txid=excluded.monero_txid,
	counterparty_key=excluded.counterparty_key,
	expires_at=excluded.expires_at,
	state=excluded.state,
	failure_reason=excluded.failure_reason
`,
		hex.EncodeToString(t.SwapID[:]),
		t.QuoteID.String(),
		t.Direction.String(),
		hex.EncodeToString(t.SecretHash[:]),
		int64(t.USDCAmount),
		int64(t.XMRAmount),
		t.MoneroSubAddressText,
		t.MoneroSubAddress[:],
		t.MoneroTxID,
		t.CounterpartyKey[:],
		t.CreatedAt.Unix(),
		t.ExpiresAt.Unix(),
		string(t.State),
		t.FailureReason,
	)
	if err != nil {
		return fmt.Errorf("store: put trade %s: %w", t.SwapID, err)
	}
	return nil
}

// LoadAllTrades returns every persisted trade, for startup
// rehydration.
func (s *Store) LoadAllTrades() ([]*coordinator.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
SELECT swap_id, quote_id, direction, secret_hash, usdc_amount, xmr_amount,
	monero_subaddress_text, monero_subaddress_blob, monero_txid,
	counterparty_key, created_at, expires_at, state, failure_reason
FROM trades`)
	if err != nil {
		return nil, fmt.Errorf("store: load all trades: %w", err)
	}
	defer rows.Close()

	var out []*coordinator.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate trades: %w", err)
	}
	return out, nil
}

// DeleteTrade removes the persisted record for swapID.
func (s *Store) DeleteTrade(swapID chainhash.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`DELETE FROM trades WHERE swap_id = ?`, hex.EncodeToString(swapID[:]))
	if err != nil {
		return fmt.Errorf("store: delete trade %s: %w", swapID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTrade(row rowScanner) (*coordinator.Trade, error) {
	var (
		swapIDHex, quoteIDStr, directionStr, secretHashHex string
		usdcAmount, xmrAmount                              int64
		moneroSubText, moneroTxID                          string
		moneroSubBlob, counterpartyKey                     []byte
		createdAt, expiresAt                                int64
		stateStr, failureReason                             string
	)
	if err := row.Scan(
		&swapIDHex, &quoteIDStr, &directionStr, &secretHashHex, &usdcAmount, &xmrAmount,
		&moneroSubText, &moneroSubBlob, &moneroTxID,
		&counterpartyKey, &createdAt, &expiresAt, &stateStr, &failureReason,
	); err != nil {
		return nil, fmt.Errorf("store: scan trade row: %w", err)
	}

	t := &coordinator.Trade{
		QuoteID:              uuid.MustParse(quoteIDStr),
		USDCAmount:            uint64(usdcAmount),
		XMRAmount:             uint64(xmrAmount),
		MoneroSubAddressText:  moneroSubText,
		MoneroTxID:            moneroTxID,
		CreatedAt:             time.Unix(createdAt, 0),
		ExpiresAt:             time.Unix(expiresAt, 0),
		State:                 coordinator.State(stateStr),
		FailureReason:         failureReason,
	}

	if directionStr == "xmr_to_usdc" {
		t.Direction = escrow.XmrToUsdc
	} else {
		t.Direction = escrow.UsdcToXmr
	}

	if err := decodeHash(&t.SwapID, swapIDHex); err != nil {
		return nil, fmt.Errorf("store: decode swap_id: %w", err)
	}
	if err := decodeHash(&t.SecretHash, secretHashHex); err != nil {
		return nil, fmt.Errorf("store: decode secret_hash: %w", err)
	}
	copy(t.MoneroSubAddress[:], moneroSubBlob)
	copy(t.CounterpartyKey[:], counterpartyKey)

	return t, nil
}

func decodeHash(dst *chainhash.Hash, hexStr string) error {
	b, err := hex.DecodeString(hexStr)
	if err != nil {
		return err
	}
	copy(dst[:], b)
	return nil
}
