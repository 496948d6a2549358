package seglog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"
)

// Section is a read-only view of a contiguous run of records [Start, End).
//
// Append and seal are only reachable through Log, which enforces contiguity
// and single sealing centrally.
type Section interface {
	// Start is the first LSN of the section.
	Start() LSN
	// End is one past the last LSN. End == Start for an empty section.
	End() LSN
	// Range returns [Start, End).
	Range() Range
	// Len returns the number of records.
	Len() int
	// Sealed reports whether the section is immutable.
	Sealed() bool
	// Persisted reports whether the section is durably stored.
	Persisted() bool
	// Materialized reports whether the records are readable in memory.
	Materialized() bool
	// Name returns the storage location, empty for memory-only sections.
	Name() string
	// Covers reports whether lsn lies in [Start, End).
	Covers(lsn LSN) bool
	// RecordAt returns the payload stored at lsn. The returned slice must not
	// be modified.
	RecordAt(lsn LSN) ([]byte, error)
}

type backing uint8

const (
	// backingVolatile sections live only in memory.
	backingVolatile backing = iota
	// backingPersisted sections are written to and read from a Storage.
	backingPersisted
)

// section is the single implementation behind Section. Volatile and persisted
// flavours differ only in their backing; persisted sections may be unloaded.
type section struct {
	mu sync.RWMutex
	// loadMu serializes loads of the section.
	loadMu sync.Mutex

	start   LSN
	end     LSN
	sealed  bool
	backing backing

	storage   Storage
	name      string
	persisted bool

	// records is nil for a persisted section that has not been loaded.
	records [][]byte
	bytes   int64

	// reserved is the memory held with the resource controller for records.
	reserved int64
	// dropped is set once the section has left the sequence; it is never
	// materialized again.
	dropped bool
}

var _ Section = (*section)(nil)

func newVolatileSection(start LSN) *section {
	return &section{start: start, end: start, backing: backingVolatile, records: [][]byte{}}
}

// newTailSection creates an open section that is persisted once sealed.
func newTailSection(start LSN, st Storage) *section {
	return &section{start: start, end: start, backing: backingPersisted, storage: st, records: [][]byte{}}
}

// newStoredSection describes a sealed section discovered in storage. Its
// records are loaded lazily.
func newStoredSection(meta SectionMeta, st Storage) *section {
	return &section{
		start:     meta.Start,
		end:       meta.End,
		sealed:    true,
		backing:   backingPersisted,
		storage:   st,
		name:      meta.Name,
		persisted: true,
		bytes:     meta.Size,
	}
}

func (s *section) Start() LSN { return s.start }

func (s *section) End() LSN {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.end
}

func (s *section) Range() Range {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Range{Start: s.start, End: s.end}
}

func (s *section) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int(s.end - s.start)
}

func (s *section) Sealed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sealed
}

func (s *section) Persisted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.persisted
}

func (s *section) Materialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records != nil
}

func (s *section) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *section) Covers(lsn LSN) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lsn >= s.start && lsn < s.end
}

func (s *section) RecordAt(lsn LSN) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if lsn < s.start || lsn >= s.end {
		return nil, &RangeError{LSN: lsn, Range: Range{Start: s.start, End: s.end}}
	}
	if s.records == nil {
		return nil, ErrNotMaterialized
	}
	return s.records[lsn-s.start], nil
}

// sizeBytes returns the payload bytes held by the section.
func (s *section) sizeBytes() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bytes
}

// append stores a copy of payload at the next LSN.
func (s *section) append(payload []byte) (LSN, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealed {
		return 0, ErrSectionSealed
	}
	if s.end == NoLSN {
		return 0, &RangeError{LSN: s.end, Range: Range{Start: s.start, End: s.end}}
	}
	rec := make([]byte, len(payload))
	copy(rec, payload)
	s.records = append(s.records, rec)
	s.bytes += int64(len(rec))
	lsn := s.end
	s.end++
	return lsn, nil
}

// seal freezes the range. Sealing twice is an error.
func (s *section) seal() (LSN, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealed {
		return 0, ErrInvalidState
	}
	s.sealed = true
	return s.end, nil
}

// persist writes a sealed section to storage. Persisting twice is a no-op.
func (s *section) persist(ctx context.Context) error {
	s.mu.RLock()
	switch {
	case s.backing != backingPersisted:
		s.mu.RUnlock()
		return fmt.Errorf("%w: volatile section cannot be persisted", ErrInvalidState)
	case !s.sealed:
		s.mu.RUnlock()
		return fmt.Errorf("%w: open section cannot be persisted", ErrInvalidState)
	case s.persisted:
		s.mu.RUnlock()
		return nil
	case s.records == nil:
		s.mu.RUnlock()
		return ErrNotMaterialized
	}
	start, end, records := s.start, s.end, s.records
	s.mu.RUnlock()

	meta, err := s.storage.WriteSection(ctx, start, records)
	if err != nil {
		return persistenceErr("write", Range{Start: start, End: end}.String(), err)
	}
	if meta.Start != start || meta.End != end {
		return corruptf(meta.Name, nil, "storage wrote %s for section %s", meta.Range, Range{Start: start, End: end})
	}

	s.mu.Lock()
	s.persisted = true
	s.name = meta.Name
	s.mu.Unlock()
	return nil
}

// fetch reads the records of a persisted section and validates them against
// the section's range. The records are not installed.
func (s *section) fetch(ctx context.Context) ([][]byte, int64, error) {
	s.mu.RLock()
	if s.backing != backingPersisted {
		s.mu.RUnlock()
		return nil, 0, fmt.Errorf("%w: volatile section cannot be loaded", ErrInvalidState)
	}
	meta := SectionMeta{Range: Range{Start: s.start, End: s.end}, Name: s.name, Size: s.bytes}
	s.mu.RUnlock()

	records, err := s.storage.ReadSection(ctx, meta)
	if err != nil {
		switch {
		case errors.Is(err, ErrCorruptLog):
			return nil, 0, corruptf(meta.Name, err, "unreadable section")
		case errors.Is(err, fs.ErrNotExist):
			return nil, 0, corruptf(meta.Name, err, "section missing")
		default:
			return nil, 0, persistenceErr("read", meta.Name, err)
		}
	}
	if uint64(len(records)) != meta.Len() {
		return nil, 0, corruptf(meta.Name, nil, "holds %d records, range %s needs %d", len(records), meta.Range, meta.Len())
	}
	if records == nil {
		records = [][]byte{}
	}

	var size int64
	for _, r := range records {
		size += int64(len(r))
	}
	return records, size, nil
}

// install materializes fetched records together with the memory reserved for
// them. It reports false, taking nothing, if the section is already
// materialized or has been dropped.
func (s *section) install(records [][]byte, size, reserved int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.records != nil || s.dropped {
		return false
	}
	s.records = records
	s.bytes = size
	s.reserved += reserved
	return true
}

// release drops the in-memory records of a persisted, sealed section and
// returns the memory reservation it held.
func (s *section) release() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.persisted || !s.sealed || s.records == nil {
		return 0
	}
	s.records = nil
	r := s.reserved
	s.reserved = 0
	return r
}

// drop marks the section as removed from the sequence and returns its memory
// reservation.
func (s *section) drop() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropped = true
	r := s.reserved
	s.reserved = 0
	return r
}

// info returns the metadata of the section.
func (s *section) info() SectionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SectionInfo{
		Range:        Range{Start: s.start, End: s.end},
		Name:         s.name,
		Sealed:       s.sealed,
		Persisted:    s.persisted,
		Materialized: s.records != nil,
		Volatile:     s.backing == backingVolatile,
		Bytes:        s.bytes,
	}
}

// SectionInfo is a point-in-time description of a section, for diagnostics.
type SectionInfo struct {
	Range
	Name         string
	Sealed       bool
	Persisted    bool
	Materialized bool
	Volatile     bool
	// Bytes is the payload size once materialized, otherwise the encoded
	// size reported by storage.
	Bytes int64
}
