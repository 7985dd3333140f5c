// Package ports declares what the assessment service needs from the
// outside: where bundles are kept, who hears about them and where the
// registry comes from.
package ports

import (
	"context"

	"oact/internal/evidence"
	"oact/internal/registry"
)

// BundleStore persists bundles. Save of an existing ID must fail with an
// error wrapping sentinel.ErrConflict; Get of an unknown ID must wrap
// sentinel.ErrNotFound.
type BundleStore interface {
	Save(ctx context.Context, b *evidence.Bundle) error
	Get(ctx context.Context, id string) (*evidence.Bundle, error)
	List(ctx context.Context, limit int) ([]*evidence.Bundle, error)
}

// Broadcaster is told about every assessed bundle and decides itself whether
// it warrants an alert.
type Broadcaster interface {
	Broadcast(ctx context.Context, b *evidence.Bundle) error
}

// RegistryProvider hands out the current registry snapshot.
type RegistryProvider interface {
	Current() (*registry.Snapshot, error)
}
