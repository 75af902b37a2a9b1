package store

import (
	"context"
	"errors"
	"time"

	"github.com/astroserve/astroserve/internal/chart"
)

// Result statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Notification kinds.
const (
	KindSuccess = "success"
	KindError   = "error"
)

var (
	// ErrNoResult is returned when a subject has no recorded computation.
	ErrNoResult = errors.New("store: no result recorded")

	// ErrNotFound is returned when a notification ID does not exist for
	// the subject.
	ErrNotFound = errors.New("store: notification not found")
)

// ResultRecord is the latest computation outcome for one subject. There is
// one logical slot per subject; writes merge into the existing record so a
// repeated submission overwrites rather than duplicates.
type ResultRecord struct {
	Input      chart.Input    `json:"input"`
	Result     map[string]any `json:"result,omitempty"`
	Status     string         `json:"status"`
	Error      string         `json:"error,omitempty"`
	ComputedAt time.Time      `json:"computed_at"`
}

// Notification is one entry in a subject's append-only notification log.
// Entries are never mutated after the append except for the Read flag.
type Notification struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Kind      string    `json:"kind"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// Results is the single-slot result store.
type Results interface {
	// SetResult merge-upserts the subject's result slot. Input and
	// Result merge only when set in rec; Status, Error, and ComputedAt
	// always overwrite.
	SetResult(ctx context.Context, subject string, rec ResultRecord) error

	// GetResult returns the subject's latest result, or ErrNoResult.
	GetResult(ctx context.Context, subject string) (ResultRecord, error)
}

// Notifications is the append-only per-subject notification log.
type Notifications interface {
	// AddNotification appends n to the subject's log, assigning the ID
	// and CreatedAt, and returns the stored record.
	AddNotification(ctx context.Context, subject string, n Notification) (Notification, error)

	// ListNotifications returns the subject's log, newest first.
	ListNotifications(ctx context.Context, subject string) ([]Notification, error)

	// MarkRead flips the read flag on one notification, or ErrNotFound.
	MarkRead(ctx context.Context, subject, id string) error
}
