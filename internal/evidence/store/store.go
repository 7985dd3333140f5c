// Package store persists evidence bundles. All stores share the same
// contract: bundles are write-once, Get of an unknown ID wraps
// sentinel.ErrNotFound, and List returns the newest bundles first.
package store

import (
	"fmt"

	"oact/pkg/platform/sentinel"
)

// DefaultListLimit caps List when the caller passes a non-positive limit.
const DefaultListLimit = 50

func notFound(id string) error {
	return fmt.Errorf("evidence bundle %s: %w", id, sentinel.ErrNotFound)
}

func conflict(id string) error {
	return fmt.Errorf("evidence bundle %s already stored: %w", id, sentinel.ErrConflict)
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
