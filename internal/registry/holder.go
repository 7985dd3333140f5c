package registry

import "sync/atomic"

// Holder publishes the current snapshot. Readers take the pointer once per
// assessment; a later Publish never changes a snapshot already handed out.
type Holder struct {
	current atomic.Pointer[Snapshot]
}

// NewHolder returns a holder, optionally seeded with an initial snapshot.
func NewHolder(initial *Snapshot) *Holder {
	h := &Holder{}
	if initial != nil {
		h.current.Store(initial)
	}
	return h
}

// Current returns the published snapshot, or ErrUnavailable before the first
// Publish.
func (h *Holder) Current() (*Snapshot, error) {
	snap := h.current.Load()
	if snap == nil {
		return nil, ErrUnavailable
	}
	return snap, nil
}

// Publish replaces the current snapshot and returns the previous one.
func (h *Holder) Publish(snap *Snapshot) *Snapshot {
	if snap == nil {
		return h.current.Load()
	}
	return h.current.Swap(snap)
}
