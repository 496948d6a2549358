package seglog

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// Log is an append-only sequence of records split into contiguous sections.
//
// The sections cover [Start, LastLSN] without gaps or overlaps. The last section
// is the open tail; all others are sealed. A Log supports one writer (Append,
// AdvanceTail, Cleanup, Flush, Close) and any number of concurrent readers.
type Log struct {
	// writeMu serializes writer operations, including their storage I/O.
	writeMu sync.Mutex

	// mu guards the section sequence and the checkpoint.
	mu            sync.RWMutex
	sections      []*section
	checkpoint    Checkpoint
	hasCheckpoint bool

	// generation is bumped on every structural change of sections.
	generation atomic.Uint64
	closed     atomic.Bool

	storage Storage // nil for volatile logs
	opts    options
}

// NewVolatile creates a memory-only log whose first record gets LSN start.
func NewVolatile(start LSN, optFns ...Option) *Log {
	return &Log{
		sections: []*section{newVolatileSection(start)},
		opts:     applyOptions(optFns),
	}
}

// NewVolatileFrom creates a memory-only log whose open tail already holds
// payloads at [start, start+len(payloads)).
func NewVolatileFrom(start LSN, payloads [][]byte, optFns ...Option) (*Log, error) {
	l := NewVolatile(start, optFns...)
	tail := l.sections[0]
	for _, p := range payloads {
		if _, err := tail.append(p); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Open discovers the sealed sections held by st and opens a log on top of
// them with a fresh open tail. Only section metadata is read; records are
// loaded by LoadRequiredSections.
//
// Sections wholly below the committed checkpoint are left over from an
// interrupted Cleanup and are deleted (ignored with ReadOnly). Any gap or
// overlap between the remaining sections fails with ErrCorruptLog.
func Open(ctx context.Context, st Storage, optFns ...Option) (*Log, error) {
	if st == nil {
		return nil, fmt.Errorf("%w: nil storage", ErrInvalidState)
	}
	opts := applyOptions(optFns)

	metas, err := st.ListSections(ctx)
	if err != nil {
		return nil, persistenceErr("list", "", err)
	}
	slices.SortFunc(metas, func(a, b SectionMeta) int {
		if c := cmp.Compare(a.Start, b.Start); c != 0 {
			return c
		}
		return cmp.Compare(a.End, b.End)
	})
	for _, m := range metas {
		if m.End < m.Start {
			return nil, corruptf(m.Name, nil, "invalid range %s", m.Range)
		}
	}

	cp, err := st.ReadCheckpoint(ctx)
	hasCheckpoint := true
	switch {
	case errors.Is(err, ErrNoCheckpoint):
		hasCheckpoint = false
	case errors.Is(err, ErrCorruptLog):
		return nil, corruptf("checkpoint", err, "unreadable checkpoint")
	case err != nil:
		return nil, persistenceErr("read checkpoint", "", err)
	}

	if hasCheckpoint {
		n := 0
		for n < len(metas) && metas[n].End <= cp.LSN {
			n++
		}
		stale := metas[:n]
		metas = metas[n:]
		if len(stale) > 0 {
			if opts.readOnly {
				opts.logger.WarnContext(ctx, "ignoring sections below checkpoint",
					"checkpoint_lsn", cp.LSN.String(),
					"sections", len(stale),
				)
			} else {
				for _, m := range stale {
					if err := st.DeleteSection(ctx, m); err != nil {
						return nil, persistenceErr("delete", m.Name, err)
					}
				}
				opts.logger.InfoContext(ctx, "completed interrupted cleanup",
					"checkpoint", cp.Token,
					"checkpoint_lsn", cp.LSN.String(),
					"removed", len(stale),
				)
			}
		}
	}

	tailStart := LSN(0)
	if hasCheckpoint {
		tailStart = cp.LSN
	}
	if len(metas) > 0 {
		first := metas[0]
		switch {
		case hasCheckpoint && first.Start > cp.LSN:
			return nil, corruptf(first.Name, nil, "gap between checkpoint %s and first section %s", cp.LSN, first.Range)
		case !hasCheckpoint && first.Start != 0:
			return nil, corruptf(first.Name, nil, "first section %s does not start at 0", first.Range)
		}
		for i := 1; i < len(metas); i++ {
			if metas[i].Start != metas[i-1].End {
				return nil, corruptf(metas[i].Name, nil, "section %s does not follow %s", metas[i].Range, metas[i-1].Range)
			}
		}
		tailStart = max(tailStart, metas[len(metas)-1].End)
	}

	l := &Log{
		storage:       st,
		opts:          opts,
		checkpoint:    cp,
		hasCheckpoint: hasCheckpoint,
		sections:      make([]*section, 0, len(metas)+1),
	}
	for _, m := range metas {
		l.sections = append(l.sections, newStoredSection(m, st))
	}
	l.sections = append(l.sections, newTailSection(tailStart, st))

	opts.logger.DebugContext(ctx, "log opened",
		"sections", len(metas),
		"tail_start", tailStart.String(),
		"read_only", opts.readOnly,
	)
	return l, nil
}

// Persistent reports whether the log is backed by a Storage.
func (l *Log) Persistent() bool { return l.storage != nil }

// Tail returns the open section currently accepting records.
func (l *Log) Tail() Section {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sections[len(l.sections)-1]
}

// LastLSN returns the highest LSN assigned so far, or NoLSN if the log has
// never held a record. The next Append gets LastLSN()+1.
func (l *Log) LastLSN() LSN {
	return l.Tail().End() - 1
}

// Start returns the first LSN of the retained log.
func (l *Log) Start() LSN {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sections[0].Start()
}

// Sections returns a snapshot of the section sequence, oldest first.
func (l *Log) Sections() []SectionInfo {
	l.mu.RLock()
	defer l.mu.RUnlock()
	infos := make([]SectionInfo, len(l.sections))
	for i, s := range l.sections {
		infos[i] = s.info()
	}
	return infos
}

// Checkpoint returns the last committed checkpoint.
func (l *Log) Checkpoint() (Checkpoint, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.checkpoint, l.hasCheckpoint
}

func (l *Log) tail() *section {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sections[len(l.sections)-1]
}

// writable must be called with writeMu held.
func (l *Log) writable() error {
	if l.closed.Load() {
		return ErrClosedLog
	}
	if l.opts.readOnly {
		return ErrReadOnly
	}
	return nil
}

// Append stores payload at the next LSN and returns it.
//
// With WithRotation the tail may be advanced afterwards. If that rotation
// fails the record is still appended: the LSN is returned together with the
// error.
func (l *Log) Append(ctx context.Context, payload []byte) (LSN, error) {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	if err := l.writable(); err != nil {
		l.opts.metricsCollector.RecordAppend(1, int64(len(payload)), err)
		return 0, err
	}
	lsn, err := l.tail().append(payload)
	l.opts.metricsCollector.RecordAppend(1, int64(len(payload)), err)
	if err != nil {
		return 0, err
	}
	return lsn, l.maybeRotateLocked(ctx)
}

// AppendBatch appends payloads at consecutive LSNs and returns the first.
// An empty batch is a no-op returning NoLSN.
func (l *Log) AppendBatch(ctx context.Context, payloads [][]byte) (LSN, error) {
	if len(payloads) == 0 {
		return NoLSN, nil
	}
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	var size int64
	for _, p := range payloads {
		size += int64(len(p))
	}
	if err := l.writable(); err != nil {
		l.opts.metricsCollector.RecordAppend(len(payloads), size, err)
		return 0, err
	}

	tail := l.tail()
	first := tail.End()
	for _, p := range payloads {
		if _, err := tail.append(p); err != nil {
			l.opts.metricsCollector.RecordAppend(len(payloads), size, err)
			return 0, err
		}
	}
	l.opts.metricsCollector.RecordAppend(len(payloads), size, nil)
	return first, l.maybeRotateLocked(ctx)
}

func (l *Log) maybeRotateLocked(ctx context.Context) error {
	o := l.opts
	if o.rotateRecords <= 0 && o.rotateBytes <= 0 {
		return nil
	}
	tail := l.tail()
	if (o.rotateRecords > 0 && tail.Len() >= o.rotateRecords) ||
		(o.rotateBytes > 0 && tail.sizeBytes() >= o.rotateBytes) {
		return l.advanceTailLocked(ctx)
	}
	return nil
}

// AdvanceTail seals the tail and opens a new one starting at its End.
//
// On a persistent log the sealed section is written to storage. If that
// fails the new tail is still in place and the error wraps ErrPersistence;
// the write is retried by the next AdvanceTail, Flush or Close.
func (l *Log) AdvanceTail(ctx context.Context) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	if err := l.writable(); err != nil {
		return err
	}
	return l.advanceTailLocked(ctx)
}

func (l *Log) advanceTailLocked(ctx context.Context) error {
	start := time.Now()

	old := l.tail()
	end, err := old.seal()
	if err != nil {
		return err
	}

	var next *section
	if l.storage != nil {
		next = newTailSection(end, l.storage)
	} else {
		next = newVolatileSection(end)
	}

	l.mu.Lock()
	l.sections = append(l.sections, next)
	l.generation.Add(1)
	l.mu.Unlock()

	err = l.persistPendingLocked(ctx)

	sealed := old.Range()
	l.opts.metricsCollector.RecordRotation(time.Since(start), err)
	l.opts.logger.LogRotation(ctx, sealed, time.Since(start), err)
	return err
}

// Flush persists sealed sections whose earlier write failed.
func (l *Log) Flush(ctx context.Context) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	if err := l.writable(); err != nil {
		return err
	}
	return l.persistPendingLocked(ctx)
}

// persistPendingLocked writes unpersisted sealed sections in LSN order and
// stops at the first failure, so storage always holds a contiguous prefix.
// Empty sections are never written.
func (l *Log) persistPendingLocked(ctx context.Context) error {
	if l.storage == nil {
		return nil
	}

	l.mu.RLock()
	pending := make([]*section, 0, 1)
	for _, s := range l.sections {
		if s.Sealed() && !s.Persisted() && s.Len() > 0 {
			pending = append(pending, s)
		}
	}
	l.mu.RUnlock()

	for _, s := range pending {
		if err := s.persist(ctx); err != nil {
			return err
		}
		l.opts.logger.DebugContext(ctx, "section persisted",
			"section", s.Range().String(),
			"name", s.Name(),
		)
	}
	return nil
}

// LoadRequiredSections materializes every section that holds LSNs at or
// above minLSN, reading them from storage in parallel. Sections wholly below
// minLSN are left unloaded.
//
// A section that is missing or fails validation aborts the load with
// ErrCorruptLog. With a memory limit, a section whose records do not fit
// beside the memory already reserved fails the load with
// ErrMemoryLimitExceeded instead of waiting; sections loaded before
// the failure stay materialized.
func (l *Log) LoadRequiredSections(ctx context.Context, minLSN LSN) error {
	if l.closed.Load() {
		return ErrClosedLog
	}
	start := time.Now()

	l.mu.RLock()
	var todo []*section
	for _, s := range l.sections {
		if s.End() > minLSN && !s.Materialized() {
			todo = append(todo, s)
		}
	}
	l.mu.RUnlock()

	if len(todo) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.opts.loadConcurrency)
	for _, s := range todo {
		g.Go(func() error {
			return l.loadSection(gctx, s)
		})
	}
	err := g.Wait()

	l.opts.metricsCollector.RecordLoad(len(todo), time.Since(start), err)
	l.opts.logger.LogLoad(ctx, minLSN, len(todo), time.Since(start), err)
	return err
}

func (l *Log) loadSection(ctx context.Context, s *section) error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	if s.Materialized() {
		return nil
	}

	rc := l.opts.resources
	if err := rc.AcquireLoad(ctx); err != nil {
		return err
	}
	defer rc.ReleaseLoad()

	if err := rc.AcquireIO(ctx, s.sizeBytes()); err != nil {
		return err
	}
	records, size, err := s.fetch(ctx)
	if err != nil {
		return err
	}
	if !rc.TryAcquireMemory(size) {
		return fmt.Errorf("%w: section %s needs %d bytes, %d of %d in use",
			ErrMemoryLimitExceeded, s.Name(), size, rc.MemoryUsage(), rc.MemoryLimit())
	}
	if !s.install(records, size, size) {
		rc.ReleaseMemory(size)
	}
	return nil
}

// Cleanup commits the checkpoint {marker, fromLSN} and then removes every
// sealed section with End <= fromLSN, oldest first.
//
// The checkpoint is durable before any section is deleted, so a crash in
// between leaves sections that Open removes later. The tail and sections
// that still hold LSNs at or above fromLSN are never removed. fromLSN may not
// be lower than the committed checkpoint nor beyond the next LSN to assign.
func (l *Log) Cleanup(ctx context.Context, fromLSN LSN, marker string) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	if err := l.writable(); err != nil {
		return err
	}

	start := time.Now()
	cp := Checkpoint{Token: marker, LSN: fromLSN, CreatedAt: start.UTC()}
	removed, err := l.cleanupLocked(ctx, cp)

	l.opts.metricsCollector.RecordCleanup(removed, time.Since(start), err)
	l.opts.logger.LogCleanup(ctx, cp, removed, err)
	return err
}

func (l *Log) cleanupLocked(ctx context.Context, cp Checkpoint) (int, error) {
	if next := l.tail().End(); cp.LSN > next {
		return 0, fmt.Errorf("%w: checkpoint %s beyond next LSN %s", ErrInvalidState, cp.LSN, next)
	}
	if prev, ok := l.Checkpoint(); ok && cp.LSN < prev.LSN {
		return 0, fmt.Errorf("%w: checkpoint %s below committed checkpoint %s", ErrInvalidState, cp.LSN, prev.LSN)
	}

	if l.storage != nil {
		if err := l.storage.WriteCheckpoint(ctx, cp); err != nil {
			return 0, persistenceErr("write checkpoint", cp.Token, err)
		}
	}
	l.mu.Lock()
	l.checkpoint, l.hasCheckpoint = cp, true
	l.mu.Unlock()

	l.mu.RLock()
	var victims []*section
	for _, s := range l.sections[:len(l.sections)-1] {
		if s.End() > cp.LSN {
			break
		}
		victims = append(victims, s)
	}
	l.mu.RUnlock()

	removed := 0
	var err error
	for _, s := range victims {
		if l.storage != nil && s.Persisted() {
			meta := SectionMeta{Range: s.Range(), Name: s.Name()}
			if derr := l.storage.DeleteSection(ctx, meta); derr != nil {
				err = persistenceErr("delete", meta.Name, derr)
				break
			}
		}
		removed++
	}

	if removed > 0 {
		l.mu.Lock()
		l.sections = slices.Clone(l.sections[removed:])
		l.generation.Add(1)
		l.mu.Unlock()

		for _, s := range victims[:removed] {
			l.opts.resources.ReleaseMemory(s.drop())
		}
	}
	return removed, err
}

// Close seals and persists the tail and releases loaded records. The log is
// closed even if persisting fails; the error is returned.
func (l *Log) Close(ctx context.Context) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	if l.closed.Load() {
		return ErrClosedLog
	}

	var err error
	if !l.opts.readOnly {
		if tail := l.tail(); !tail.Sealed() {
			if _, serr := tail.seal(); serr != nil {
				err = serr
			}
		}
		if err == nil {
			err = l.persistPendingLocked(ctx)
		}
	}

	l.mu.Lock()
	l.closed.Store(true)
	l.generation.Add(1)
	for _, s := range l.sections {
		l.opts.resources.ReleaseMemory(s.release())
		l.opts.resources.ReleaseMemory(s.drop())
	}
	l.mu.Unlock()

	if err != nil {
		l.opts.logger.ErrorContext(ctx, "log closed with unpersisted sections", "error", err)
	}
	return err
}

// indexOf returns the position of s in the sequence. Must be called with mu
// held.
func (l *Log) indexOf(s *section) (int, bool) {
	i := sort.Search(len(l.sections), func(i int) bool {
		return l.sections[i].start >= s.start
	})
	for ; i < len(l.sections) && l.sections[i].start == s.start; i++ {
		if l.sections[i] == s {
			return i, true
		}
	}
	return 0, false
}

// sectionFor returns the index of the section holding lsn, or of the tail if
// lsn is the next LSN to assign. Must be called with mu held.
func (l *Log) sectionFor(lsn LSN) int {
	i := sort.Search(len(l.sections), func(i int) bool {
		return l.sections[i].End() > lsn
	})
	if i == len(l.sections) {
		i--
	}
	return i
}
