// Package registry holds the SME registry: immutable snapshots built from a
// source, the holder that publishes them and the loaders that read them.
package registry

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"oact/pkg/platform/sentinel"
)

// ErrUnavailable is returned when an assessment is requested before any
// snapshot has been published.
var ErrUnavailable = fmt.Errorf("registry snapshot not loaded: %w", sentinel.ErrUnavailable)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func entryValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// EntryError reports why one registry entry was rejected at load time.
type EntryError struct {
	Index int
	ID    string
	Err   error
}

func (e *EntryError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("registry entry %d: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("registry entry %d (%s): %v", e.Index, e.ID, e.Err)
}

func (e *EntryError) Unwrap() error { return e.Err }

// ErrDuplicateID marks an entry whose ID was already used by an earlier entry.
var ErrDuplicateID = errors.New("duplicate sme_id")

// Snapshot is a read-only view of the registry at one point in time. It is
// safe for concurrent use; nothing mutates it after NewSnapshot returns.
type Snapshot struct {
	entries  []Entry
	byID     map[string]int
	version  string
	loadedAt time.Time
}

// NewSnapshot validates entries and builds a snapshot. String fields are
// trimmed before validation. Entries are stored ordered by ID. All invalid
// entries are reported together.
func NewSnapshot(entries []Entry, loadedAt time.Time) (*Snapshot, error) {
	v := entryValidator()
	snap := &Snapshot{
		entries:  make([]Entry, 0, len(entries)),
		byID:     make(map[string]int, len(entries)),
		loadedAt: loadedAt.UTC(),
	}

	seen := make(map[string]struct{}, len(entries))
	var errs []error
	for i, raw := range entries {
		e := normalize(raw)
		if err := v.Struct(e); err != nil {
			errs = append(errs, &EntryError{Index: i, ID: e.ID, Err: err})
			continue
		}
		if _, dup := seen[e.ID]; dup {
			errs = append(errs, &EntryError{Index: i, ID: e.ID, Err: ErrDuplicateID})
			continue
		}
		seen[e.ID] = struct{}{}
		snap.entries = append(snap.entries, e)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	sort.Slice(snap.entries, func(i, j int) bool { return snap.entries[i].ID < snap.entries[j].ID })
	for i, e := range snap.entries {
		snap.byID[e.ID] = i
	}

	version, err := digest(snap.entries)
	if err != nil {
		return nil, err
	}
	snap.version = version
	return snap, nil
}

func normalize(e Entry) Entry {
	e = e.Clone()
	e.ID = strings.TrimSpace(e.ID)
	e.Name = strings.TrimSpace(e.Name)
	e.Sector = strings.TrimSpace(e.Sector)
	e.County = strings.TrimSpace(e.County)
	for i := range e.DeliveryRoutes {
		e.DeliveryRoutes[i].Origin = strings.TrimSpace(e.DeliveryRoutes[i].Origin)
		e.DeliveryRoutes[i].Destination = strings.TrimSpace(e.DeliveryRoutes[i].Destination)
	}
	return e
}

// digest is a content hash of the entries in ID order, so two loads of the
// same data share a version regardless of file order or formatting.
func digest(entries []Entry) (string, error) {
	data, err := json.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("hashing registry: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8]), nil
}

// Entries returns a copy of the entries, ordered by ID.
func (s *Snapshot) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Clone()
	}
	return out
}

// Each calls fn for every entry in ID order without copying route slices.
// fn must not retain or modify the entry's slices.
func (s *Snapshot) Each(fn func(Entry)) {
	for _, e := range s.entries {
		fn(e)
	}
}

// Len returns the number of entries.
func (s *Snapshot) Len() int { return len(s.entries) }

// Lookup returns the entry with the given ID.
func (s *Snapshot) Lookup(id string) (Entry, bool) {
	i, ok := s.byID[id]
	if !ok {
		return Entry{}, false
	}
	return s.entries[i].Clone(), true
}

// Version identifies the snapshot content.
func (s *Snapshot) Version() string { return s.version }

// LoadedAt is when the snapshot was built.
func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }
