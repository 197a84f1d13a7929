// Package db persists ProtocolBootstrap and Blueprint snapshots submitted
// to the engine, so a restart doesn't lose track of which snapshot a given
// plan was built against (spec §3 "produced out of scope, consumed
// read-only here" — this is the read-only side's audit trail).
package db

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

// Connect initializes the connection pool to PostgreSQL using pgx.
func Connect(connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %v", err)
	}
	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping failed: %v", err)
	}
	log.Println("Successfully connected to PostgreSQL for the transaction engine")
	return &PostgresStore{pool: pool}, nil
}

// Close gracefully closes the connection pool.
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS bootstrap_snapshots (
	tx_hash    TEXT PRIMARY KEY,
	raw_json   JSONB NOT NULL,
	network    TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS blueprint_snapshots (
	title      TEXT NOT NULL,
	version    TEXT NOT NULL,
	raw_json   JSONB NOT NULL,
	loaded_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (title, version)
);

CREATE TABLE IF NOT EXISTS planned_transactions (
	idempotency_key TEXT PRIMARY KEY,
	operation       TEXT NOT NULL,
	policy_id       TEXT,
	body_hash       TEXT NOT NULL,
	fee_lovelace    BIGINT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// InitSchema creates the engine's persistence tables if they don't exist.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema migrations: %v", err)
	}
	log.Println("Engine schema initialized")
	return nil
}

// SaveBootstrapSnapshot records the ProtocolBootstrap document an operator
// submitted, keyed by its deployment transaction hash.
func (s *PostgresStore) SaveBootstrapSnapshot(ctx context.Context, txHashHex, network string, rawJSON []byte) error {
	const sql = `
		INSERT INTO bootstrap_snapshots (tx_hash, raw_json, network)
		VALUES ($1, $2, $3)
		ON CONFLICT (tx_hash) DO UPDATE SET raw_json = EXCLUDED.raw_json, network = EXCLUDED.network;
	`
	_, err := s.pool.Exec(ctx, sql, txHashHex, rawJSON, network)
	return err
}

// SaveBlueprintSnapshot records a compiled-validator catalogue document.
func (s *PostgresStore) SaveBlueprintSnapshot(ctx context.Context, title, version string, rawJSON []byte) error {
	const sql = `
		INSERT INTO blueprint_snapshots (title, version, raw_json)
		VALUES ($1, $2, $3)
		ON CONFLICT (title, version) DO UPDATE SET raw_json = EXCLUDED.raw_json, loaded_at = NOW();
	`
	_, err := s.pool.Exec(ctx, sql, title, version, rawJSON)
	return err
}

// RecordPlannedTransaction logs a successfully built unsigned transaction
// for idempotency and audit purposes: re-submitting the same idempotency
// key short-circuits assembly; the planner still runs before the lookup
// (spec §6 external interfaces).
func (s *PostgresStore) RecordPlannedTransaction(ctx context.Context, idempotencyKey, operation, policyIDHex, bodyHashHex string, feeLovelace int64) error {
	const sql = `
		INSERT INTO planned_transactions (idempotency_key, operation, policy_id, body_hash, fee_lovelace)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (idempotency_key) DO NOTHING;
	`
	_, err := s.pool.Exec(ctx, sql, idempotencyKey, operation, policyIDHex, bodyHashHex, feeLovelace)
	return err
}

// LookupPlannedTransaction returns the body hash previously recorded under
// idempotencyKey, if any, so a retried request can be answered without
// re-assembling the transaction. The API calls it after the planner has
// already run.
func (s *PostgresStore) LookupPlannedTransaction(ctx context.Context, idempotencyKey string) (bodyHashHex string, feeLovelace int64, found bool, err error) {
	const sql = `SELECT body_hash, fee_lovelace FROM planned_transactions WHERE idempotency_key = $1`
	row := s.pool.QueryRow(ctx, sql, idempotencyKey)
	if err := row.Scan(&bodyHashHex, &feeLovelace); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", 0, false, nil
		}
		return "", 0, false, err
	}
	return bodyHashHex, feeLovelace, true, nil
}
