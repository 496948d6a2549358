package seglog

import (
	"errors"
	"fmt"
)

var (
	// ErrSectionSealed is returned when appending to a sealed section.
	ErrSectionSealed = errors.New("section sealed")

	// ErrInvalidState is returned for an illegal state transition (double seal,
	// persisting an open section, persisting a volatile section, ...).
	ErrInvalidState = errors.New("invalid state")

	// ErrOutOfRange is returned when an LSN lies outside the addressed range.
	ErrOutOfRange = errors.New("lsn out of range")

	// ErrCorruptLog is returned when persisted sections violate contiguity or
	// fail content validation. The log is never repaired automatically.
	ErrCorruptLog = errors.New("corrupt log")

	// ErrInvalidatedIterator is returned when an iterator's section was evicted
	// by cleanup.
	ErrInvalidatedIterator = errors.New("iterator invalidated")

	// ErrClosedLog is returned by operations on a closed log.
	ErrClosedLog = errors.New("log closed")

	// ErrPersistence wraps failures of the durable storage collaborator.
	ErrPersistence = errors.New("persistence failure")

	// ErrNotMaterialized is returned when reading records of a persisted section
	// that has not been loaded. Call Log.LoadRequiredSections first.
	ErrNotMaterialized = fmt.Errorf("%w: section not materialized", ErrInvalidState)

	// ErrNoCheckpoint is returned by Storage.ReadCheckpoint when no checkpoint
	// marker was ever committed.
	ErrNoCheckpoint = errors.New("no checkpoint")

	// ErrMemoryLimitExceeded is returned when loading a section would exceed the
	// memory limit of the resource controller.
	ErrMemoryLimitExceeded = errors.New("memory limit exceeded")

	// ErrReadOnly is returned by mutations on a log opened with ReadOnly.
	ErrReadOnly = fmt.Errorf("%w: log is read-only", ErrInvalidState)
)

// RangeError reports an LSN lookup outside a section's range.
type RangeError struct {
	LSN   LSN
	Range Range
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("lsn %d outside %s", e.LSN, e.Range)
}

// Is makes errors.Is(err, ErrOutOfRange) true.
func (e *RangeError) Is(target error) bool { return target == ErrOutOfRange }

// CorruptionError describes why a log or section failed validation.
//
// The underlying error (if any) can be accessed via errors.Unwrap.
type CorruptionError struct {
	Section string
	Reason  string
	cause   error
}

func (e *CorruptionError) Error() string {
	msg := "corrupt log"
	if e.Section != "" {
		msg += " (section " + e.Section + ")"
	}
	msg += ": " + e.Reason
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

// Is makes errors.Is(err, ErrCorruptLog) true.
func (e *CorruptionError) Is(target error) bool { return target == ErrCorruptLog }

func (e *CorruptionError) Unwrap() error { return e.cause }

// PersistenceError wraps an error returned by the storage collaborator.
//
// The original error can be accessed via errors.Unwrap.
type PersistenceError struct {
	Op      string
	Section string
	cause   error
}

func (e *PersistenceError) Error() string {
	if e.Section != "" {
		return fmt.Sprintf("persistence: %s %s: %v", e.Op, e.Section, e.cause)
	}
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.cause)
}

// Is makes errors.Is(err, ErrPersistence) true.
func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

func (e *PersistenceError) Unwrap() error { return e.cause }

func corruptf(section string, cause error, format string, args ...any) error {
	return &CorruptionError{Section: section, Reason: fmt.Sprintf(format, args...), cause: cause}
}

func persistenceErr(op, section string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Section: section, cause: err}
}
