package alert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"oact/internal/alert/metrics"
	"oact/internal/decision"
	"oact/internal/evidence"
	"oact/pkg/platform/circuit"
	"oact/pkg/platform/sentinel"
)

var (
	// ErrCircuitOpen is returned while the notifier breaker rejects calls.
	ErrCircuitOpen = fmt.Errorf("alert notifier circuit open: %w", sentinel.ErrUnavailable)
	// ErrNothingToSend is returned by Digest when no bundle is high priority.
	ErrNothingToSend = errors.New("no high priority bundles to alert on")
)

// Broadcaster sends alerts for high-priority bundles through a notifier
// guarded by a circuit breaker, recording each attempt in its Log.
type Broadcaster struct {
	notifier Notifier
	breaker  *circuit.Breaker
	log      *Log
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

type Option func(*Broadcaster)

func WithBreaker(b *circuit.Breaker) Option {
	return func(br *Broadcaster) { br.breaker = b }
}

func WithLog(l *Log) Option {
	return func(br *Broadcaster) { br.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(br *Broadcaster) { br.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(br *Broadcaster) { br.logger = logger }
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(br *Broadcaster) { br.now = now }
}

// WithIDGenerator overrides alert ID generation (tests).
func WithIDGenerator(fn func() string) Option {
	return func(br *Broadcaster) { br.newID = fn }
}

func NewBroadcaster(n Notifier, opts ...Option) *Broadcaster {
	br := &Broadcaster{
		notifier: n,
		logger:   slog.Default(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(br)
	}
	if br.breaker == nil {
		br.breaker = circuit.New("alert-" + n.Name())
	}
	if br.log == nil {
		br.log = NewLog(DefaultLogSize)
	}
	return br
}

// Log exposes the broadcast history.
func (br *Broadcaster) Log() *Log {
	return br.log
}

// Broadcast alerts on b when it is high priority. Other bundles are ignored.
func (br *Broadcaster) Broadcast(ctx context.Context, b *evidence.Bundle) error {
	if !b.Decision().IsHighPriority {
		return nil
	}
	_, err := br.send(ctx, []evidence.Summary{b.Summary()})
	return err
}

// Digest sends one consolidated alert covering every high-priority bundle in
// bundles, in the order given.
func (br *Broadcaster) Digest(ctx context.Context, bundles []*evidence.Bundle) (Alert, error) {
	var summaries []evidence.Summary
	for _, b := range bundles {
		if b != nil && b.Decision().IsHighPriority {
			summaries = append(summaries, b.Summary())
		}
	}
	if len(summaries) == 0 {
		return Alert{}, ErrNothingToSend
	}
	return br.send(ctx, summaries)
}

func (br *Broadcaster) send(ctx context.Context, summaries []evidence.Summary) (Alert, error) {
	now := br.now().UTC()
	a := Alert{
		ID:        br.newID(),
		CreatedAt: now,
		Priority:  decision.PriorityHigh,
		Subject:   subject(summaries),
		Body:      body(summaries, now),
		BundleIDs: make([]string, len(summaries)),
		Summaries: summaries,
	}
	for i, s := range summaries {
		a.BundleIDs[i] = s.BundleID
	}

	entry := LogEntry{
		AlertID:   a.ID,
		Time:      now,
		Notifier:  br.notifier.Name(),
		Priority:  a.Priority,
		Subject:   a.Subject,
		BundleIDs: a.BundleIDs,
	}

	if !br.breaker.Allow() {
		entry.Status = StatusSkipped
		entry.Error = ErrCircuitOpen.Error()
		br.record(ctx, entry)
		return a, ErrCircuitOpen
	}

	if err := br.notifier.Notify(ctx, a); err != nil {
		_, change := br.breaker.RecordFailure()
		if change.Opened {
			br.logger.WarnContext(ctx, "alert notifier circuit opened", "notifier", br.notifier.Name())
		}
		entry.Status = StatusFailed
		entry.Error = err.Error()
		br.record(ctx, entry)
		return a, fmt.Errorf("notifying %s: %w", br.notifier.Name(), err)
	}

	_, change := br.breaker.RecordSuccess()
	if change.Closed {
		br.logger.InfoContext(ctx, "alert notifier circuit closed", "notifier", br.notifier.Name())
	}
	entry.Status = StatusSent
	br.record(ctx, entry)
	return a, nil
}

func (br *Broadcaster) record(ctx context.Context, e LogEntry) {
	br.log.Record(e)
	br.metrics.IncrementAttempt(e.Notifier, string(e.Status))
	br.metrics.SetBreakerOpen(e.Notifier, br.breaker.IsOpen())

	attrs := []any{
		"alert_id", e.AlertID,
		"notifier", e.Notifier,
		"status", e.Status,
		"bundle_ids", e.BundleIDs,
	}
	if e.Status == StatusSent {
		br.logger.InfoContext(ctx, "alert broadcast", attrs...)
		return
	}
	br.logger.WarnContext(ctx, "alert not delivered", append(attrs, "error", e.Error)...)
}
