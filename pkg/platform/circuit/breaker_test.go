package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	fail    = 'F'
	succeed = 'S'
)

func replay(b *Breaker, events string) {
	for _, e := range events {
		switch e {
		case fail:
			b.RecordFailure()
		case succeed:
			b.RecordSuccess()
		}
	}
}

func TestBreaker_New(t *testing.T) {
	b := New("alert-kafka")
	assert.Equal(t, "alert-kafka", b.Name())
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())
}

func TestBreaker_Sequences(t *testing.T) {
	tests := []struct {
		name     string
		failures int
		success  int
		events   string
		open     bool
	}{
		{name: "below failure threshold", failures: 3, success: 1, events: "FF", open: false},
		{name: "reaches failure threshold", failures: 3, success: 1, events: "FFF", open: true},
		{name: "success clears failure streak", failures: 3, success: 1, events: "FFSFF", open: false},
		{name: "streak after clear opens", failures: 3, success: 1, events: "FFSFFF", open: true},
		{name: "open needs full success streak", failures: 1, success: 2, events: "FS", open: true},
		{name: "success streak closes", failures: 1, success: 2, events: "FSS", open: false},
		{name: "failure interrupts recovery", failures: 1, success: 3, events: "FSSFSS", open: true},
		{name: "recovery after interruption", failures: 1, success: 3, events: "FSSFSSS", open: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New("alert-log", WithFailureThreshold(tt.failures), WithSuccessThreshold(tt.success))
			replay(b, tt.events)
			assert.Equal(t, tt.open, b.IsOpen())
		})
	}
}

func TestBreaker_Transitions(t *testing.T) {
	b := New("alert-log", WithFailureThreshold(2), WithSuccessThreshold(1))

	fallback, change := b.RecordFailure()
	assert.False(t, fallback)
	assert.Equal(t, Change{}, change)

	fallback, change = b.RecordFailure()
	assert.True(t, fallback)
	assert.True(t, change.Opened)

	fallback, change = b.RecordFailure()
	assert.True(t, fallback, "open breaker keeps reporting fallback")
	assert.False(t, change.Opened, "already open")

	primary, change := b.RecordSuccess()
	assert.True(t, primary)
	assert.True(t, change.Closed)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_Reset(t *testing.T) {
	b := New("alert-log", WithFailureThreshold(1))
	replay(b, "F")
	require.True(t, b.IsOpen())

	b.Reset()
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())
}

func TestBreaker_AllowsTrialAfterCooldown(t *testing.T) {
	now := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	b := New("alert-kafka",
		WithFailureThreshold(1),
		WithCooldown(time.Minute),
		WithClock(func() time.Time { return now }),
	)

	replay(b, "F")
	assert.False(t, b.Allow(), "rejects inside cooldown")

	now = now.Add(time.Minute)
	assert.True(t, b.Allow(), "one trial call after cooldown")
	assert.False(t, b.Allow(), "cooldown restarts after the trial")
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
}
