package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/astroserve/astroserve/internal/chart"
)

// DefaultFlushInterval is how often the snapshot file is rewritten when the
// store has changed.
const DefaultFlushInterval = 30 * time.Second

// subjectDoc is everything stored for one subject.
type subjectDoc struct {
	Result        *ResultRecord  `json:"result,omitempty"`
	Notifications []Notification `json:"notifications,omitempty"`
}

// snapshot is the on-disk layout of the whole store.
type snapshot struct {
	Subjects map[string]*subjectDoc `json:"subjects"`
	NextSeq  int64                  `json:"next_seq"`
}

// Memory is a thread-safe in-memory document store implementing Results and
// Notifications, with optional JSON file persistence. A background goroutine
// (Run) rewrites the snapshot file whenever the store has changed since the
// last flush.
type Memory struct {
	mu    sync.RWMutex
	data  map[string]*subjectDoc
	seq   int64
	dirty bool

	path  string // snapshot file; empty disables persistence
	every time.Duration
	now   func() time.Time // injectable for deterministic tests
}

// Open creates a Memory store backed by the snapshot file at path, loading
// any previous snapshot. An empty path yields a purely in-memory store.
func Open(path string, flushInterval time.Duration) (*Memory, error) {
	if flushInterval <= 0 {
		flushInterval = DefaultFlushInterval
	}
	m := &Memory{
		data:  make(map[string]*subjectDoc),
		path:  path,
		every: flushInterval,
		now:   time.Now,
	}
	if path == "" {
		return m, nil
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read snapshot %q: %w", path, err)
	}

	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("store: parse snapshot %q: %w", path, err)
	}
	if snap.Subjects != nil {
		m.data = snap.Subjects
	}
	m.seq = snap.NextSeq
	return m, nil
}

// SetResult merge-upserts the subject's result slot. Input and Result merge
// only when set in rec; Status, Error, and ComputedAt always overwrite.
func (m *Memory) SetResult(_ context.Context, subject string, rec ResultRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc := m.doc(subject)
	if doc.Result == nil {
		doc.Result = &ResultRecord{}
	}
	if rec.Input != (chart.Input{}) {
		doc.Result.Input = rec.Input
	}
	if rec.Result != nil {
		doc.Result.Result = rec.Result
	}
	doc.Result.Status = rec.Status
	doc.Result.Error = rec.Error
	doc.Result.ComputedAt = rec.ComputedAt
	m.dirty = true
	return nil
}

// GetResult returns a copy of the subject's latest result, or ErrNoResult.
func (m *Memory) GetResult(_ context.Context, subject string) (ResultRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.data[subject]
	if !ok || doc.Result == nil {
		return ResultRecord{}, ErrNoResult
	}
	return *doc.Result, nil
}

// AddNotification appends n to the subject's log with a server-assigned ID
// and creation time, and returns the stored record.
func (m *Memory) AddNotification(_ context.Context, subject string, n Notification) (Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	n.ID = fmt.Sprintf("ntf-%d", m.seq)
	n.CreatedAt = m.now()
	n.Read = false

	doc := m.doc(subject)
	doc.Notifications = append(doc.Notifications, n)
	m.dirty = true
	return n, nil
}

// ListNotifications returns a copy of the subject's log, newest first.
func (m *Memory) ListNotifications(_ context.Context, subject string) ([]Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.data[subject]
	if !ok {
		return nil, nil
	}
	out := make([]Notification, 0, len(doc.Notifications))
	for i := len(doc.Notifications) - 1; i >= 0; i-- {
		out = append(out, doc.Notifications[i])
	}
	return out, nil
}

// MarkRead flips the read flag on one of the subject's notifications.
func (m *Memory) MarkRead(_ context.Context, subject, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.data[subject]
	if !ok {
		return ErrNotFound
	}
	for i := range doc.Notifications {
		if doc.Notifications[i].ID == id {
			doc.Notifications[i].Read = true
			m.dirty = true
			return nil
		}
	}
	return ErrNotFound
}

// Subjects returns the number of subjects with any stored state.
func (m *Memory) Subjects() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// Flush writes the snapshot file if the store changed since the last flush.
// It is a no-op for a store without a snapshot path.
func (m *Memory) Flush() error {
	if m.path == "" {
		return nil
	}

	m.mu.Lock()
	if !m.dirty {
		m.mu.Unlock()
		return nil
	}
	raw, err := json.Marshal(snapshot{Subjects: m.data, NextSeq: m.seq})
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("store: encode snapshot: %w", err)
	}
	m.dirty = false
	m.mu.Unlock()

	tmp := m.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(m.path), 0o750); err != nil {
		return fmt.Errorf("store: create snapshot dir: %w", err)
	}
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("store: write snapshot: %w", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		return fmt.Errorf("store: replace snapshot: %w", err)
	}
	return nil
}

// Run starts the background flush loop. It blocks until ctx is cancelled,
// then performs a final flush.
func (m *Memory) Run(ctx context.Context) {
	t := time.NewTicker(m.every)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := m.Flush(); err != nil {
				slog.Error("store: final flush failed", "err", err)
			}
			return
		case <-t.C:
			if err := m.Flush(); err != nil {
				slog.Error("store: flush failed", "err", err)
			}
		}
	}
}

// doc returns the subject's document, creating it if needed.
// Callers must hold mu.
func (m *Memory) doc(subject string) *subjectDoc {
	doc, ok := m.data[subject]
	if !ok {
		doc = &subjectDoc{}
		m.data[subject] = doc
	}
	return doc
}
