// Package store reads registry entries from PostgreSQL.
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"oact/internal/registry"
)

// Schema creates the registry table. Delivery routes are kept as JSONB in the
// same shape as the file format.
const Schema = `
CREATE TABLE IF NOT EXISTS sme_registry (
	sme_id          TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	sector          TEXT NOT NULL,
	county          TEXT NOT NULL,
	latitude        DOUBLE PRECISION NOT NULL,
	longitude       DOUBLE PRECISION NOT NULL,
	delivery_routes JSONB NOT NULL DEFAULT '[]'::jsonb
)`

// PostgresSource is a registry.Source backed by the sme_registry table.
type PostgresSource struct {
	pool *pgxpool.Pool
}

// NewPostgresSource wraps an open pool.
func NewPostgresSource(pool *pgxpool.Pool) *PostgresSource {
	return &PostgresSource{pool: pool}
}

// Migrate creates the table when missing.
func (s *PostgresSource) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("migrate sme_registry: %w", err)
	}
	return nil
}

// Entries reads every row. Validation happens in registry.NewSnapshot.
func (s *PostgresSource) Entries(ctx context.Context) ([]registry.Entry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT sme_id, name, sector, county, latitude, longitude, delivery_routes
		FROM sme_registry
		ORDER BY sme_id`)
	if err != nil {
		return nil, fmt.Errorf("query sme_registry: %w", err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (registry.Entry, error) {
		var (
			e      registry.Entry
			routes []byte
		)
		if err := row.Scan(&e.ID, &e.Name, &e.Sector, &e.County, &e.Latitude, &e.Longitude, &routes); err != nil {
			return registry.Entry{}, err
		}
		if len(routes) > 0 {
			if err := json.Unmarshal(routes, &e.DeliveryRoutes); err != nil {
				return registry.Entry{}, fmt.Errorf("decode delivery_routes for %s: %w", e.ID, err)
			}
		}
		return e, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan sme_registry: %w", err)
	}
	return entries, nil
}

// Upsert writes entries, replacing rows with the same ID.
func (s *PostgresSource) Upsert(ctx context.Context, entries ...registry.Entry) error {
	batch := &pgx.Batch{}
	for _, e := range entries {
		routes := e.DeliveryRoutes
		if routes == nil {
			routes = []registry.DeliveryRoute{}
		}
		data, err := json.Marshal(routes)
		if err != nil {
			return fmt.Errorf("encode delivery_routes for %s: %w", e.ID, err)
		}
		batch.Queue(`
			INSERT INTO sme_registry (sme_id, name, sector, county, latitude, longitude, delivery_routes)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (sme_id) DO UPDATE SET
				name = EXCLUDED.name,
				sector = EXCLUDED.sector,
				county = EXCLUDED.county,
				latitude = EXCLUDED.latitude,
				longitude = EXCLUDED.longitude,
				delivery_routes = EXCLUDED.delivery_routes`,
			e.ID, e.Name, e.Sector, e.County, e.Latitude, e.Longitude, data)
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert sme_registry: %w", err)
	}
	return nil
}
