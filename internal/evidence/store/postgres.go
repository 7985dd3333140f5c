package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"oact/internal/evidence"
)

// Schema creates the bundle table. Tier and priority are denormalised from the
// payload for querying.
const Schema = `
CREATE TABLE IF NOT EXISTS evidence_bundles (
	id               TEXT PRIMARY KEY,
	created_at       TIMESTAMPTZ NOT NULL,
	registry_version TEXT NOT NULL,
	tier             TEXT NOT NULL,
	is_high_priority BOOLEAN NOT NULL,
	affected_count   INTEGER NOT NULL,
	payload          JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS evidence_bundles_created_at_idx ON evidence_bundles (created_at DESC);`

const uniqueViolation = "23505"

// PostgresStore keeps bundles in PostgreSQL through database/sql and lib/pq.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the schema when missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("migrate evidence_bundles: %w", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, b *evidence.Bundle) error {
	payload, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode bundle %s: %w", b.ID(), err)
	}
	d := b.Decision()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO evidence_bundles (id, created_at, registry_version, tier, is_high_priority, affected_count, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		b.ID(), b.CreatedAt(), b.RegistryVersion(), d.Tier.String(), d.IsHighPriority, b.AffectedCount(), payload)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return conflict(b.ID())
		}
		return fmt.Errorf("save bundle %s: %w", b.ID(), err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*evidence.Bundle, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM evidence_bundles WHERE id = $1`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("get bundle %s: %w", id, err)
	}
	return evidence.Decode(payload)
}

func (s *PostgresStore) List(ctx context.Context, limit int) ([]*evidence.Bundle, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM evidence_bundles
		ORDER BY created_at DESC, id
		LIMIT $1`, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list bundles: %w", err)
	}
	defer rows.Close()

	out := []*evidence.Bundle{}
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan bundle: %w", err)
		}
		b, err := evidence.Decode(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list bundles: %w", err)
	}
	return out, nil
}
