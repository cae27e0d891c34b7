package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Storage persists ledger entries. Store must be idempotent on
// Entry.ExternalRef: inserting a duplicate reference is a silent no-op, not
// an error, because webhook redelivery makes duplicate writes routine.
type Storage interface {
	Store(ctx context.Context, entry Entry) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Entry, error)
}

// Recorder writes payment audit entries.
type Recorder interface {
	// Record persists one entry, filling in ID and CreatedAt.
	Record(ctx context.Context, entry Entry) error
}

// Reader queries the audit trail, typically for reconciliation tooling.
type Reader interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Entry, error)
}

type recorder struct {
	storage Storage
}

// NewRecorder creates a ledger recorder.
// Panics on nil storage to fail fast during initialization.
func NewRecorder(storage Storage) Recorder {
	if storage == nil {
		panic("ledger: storage cannot be nil")
	}
	return &recorder{storage: storage}
}

func (r *recorder) Record(ctx context.Context, entry Entry) error {
	entry.ID = uuid.New()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	if err := entry.Validate(); err != nil {
		return err
	}

	return r.storage.Store(ctx, entry)
}

// NewReader creates a ledger reader over the same storage.
func NewReader(storage Storage) Reader {
	if storage == nil {
		panic("ledger: storage cannot be nil")
	}
	return &reader{storage: storage}
}

type reader struct {
	storage Storage
}

func (r *reader) ListByUser(ctx context.Context, userID uuid.UUID) ([]Entry, error) {
	return r.storage.ListByUser(ctx, userID)
}
