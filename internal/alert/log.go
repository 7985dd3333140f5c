package alert

import (
	"sync"
	"time"
)

// DefaultLogSize is how many alert log entries are retained.
const DefaultLogSize = 20

// Status of a broadcast attempt.
type Status string

const (
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// LogEntry records one broadcast attempt.
type LogEntry struct {
	AlertID   string    `json:"alert_id"`
	Time      time.Time `json:"time"`
	Status    Status    `json:"status"`
	Notifier  string    `json:"notifier"`
	Priority  string    `json:"priority"`
	Subject   string    `json:"subject"`
	BundleIDs []string  `json:"bundle_ids"`
	Error     string    `json:"error,omitempty"`
}

// Log is a fixed-size ring of the most recent entries. Safe for concurrent use.
type Log struct {
	mu      sync.Mutex
	entries []LogEntry
	next    int
	full    bool
}

func NewLog(size int) *Log {
	if size <= 0 {
		size = DefaultLogSize
	}
	return &Log{entries: make([]LogEntry, size)}
}

func (l *Log) Record(e LogEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.BundleIDs = append([]string(nil), e.BundleIDs...)
	l.entries[l.next] = e
	l.next = (l.next + 1) % len(l.entries)
	if l.next == 0 {
		l.full = true
	}
}

func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.full {
		return len(l.entries)
	}
	return l.next
}

// Recent returns up to limit entries, newest first. limit <= 0 means all.
func (l *Log) Recent(limit int) []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := l.next
	if l.full {
		n = len(l.entries)
	}
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]LogEntry, 0, n)
	for i := 1; i <= n; i++ {
		idx := (l.next - i + len(l.entries)) % len(l.entries)
		e := l.entries[idx]
		e.BundleIDs = append([]string(nil), e.BundleIDs...)
		out = append(out, e)
	}
	return out
}
