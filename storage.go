package seglog

import (
	"context"
	"time"
)

// SectionMeta describes a sealed section held by a Storage.
type SectionMeta struct {
	Range
	// Name is the storage-specific location of the section.
	Name string
	// Size is the encoded size in bytes (0 if unknown).
	Size int64
}

// Checkpoint is a durably committed marker: the state up to LSN (exclusive)
// has been captured outside the log under the opaque Token.
type Checkpoint struct {
	Token     string
	LSN       LSN
	CreatedAt time.Time
}

// Storage is the durable-storage collaborator of a persistent Log.
//
// Implementations must be safe for concurrent use. Content corruption must be
// reported with an error satisfying errors.Is(err, ErrCorruptLog); a missing
// section with one satisfying errors.Is(err, fs.ErrNotExist).
type Storage interface {
	// ListSections enumerates the sealed sections of the log identity.
	// The result need not be ordered.
	ListSections(ctx context.Context) ([]SectionMeta, error)

	// ReadSection returns the records of a sealed section, in LSN order.
	ReadSection(ctx context.Context, meta SectionMeta) ([][]byte, error)

	// WriteSection atomically stores a sealed section starting at start.
	// Either the whole section is visible after a nil return, or nothing is.
	WriteSection(ctx context.Context, start LSN, records [][]byte) (SectionMeta, error)

	// DeleteSection atomically removes a section. Deleting a missing section
	// is not an error.
	DeleteSection(ctx context.Context, meta SectionMeta) error

	// ReadCheckpoint returns the last committed checkpoint, or ErrNoCheckpoint.
	ReadCheckpoint(ctx context.Context) (Checkpoint, error)

	// WriteCheckpoint durably commits a checkpoint before returning.
	WriteCheckpoint(ctx context.Context, cp Checkpoint) error
}
