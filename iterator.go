package seglog

// ForwardIterator walks records in ascending LSN order across section
// boundaries. It follows the bufio.Scanner idiom:
//
//	it := log.Begin()
//	for it.Next() {
//		lsn, payload := it.Record()
//		...
//	}
//	if err := it.Err(); err != nil {
//		...
//	}
//
// The upper bound is fixed when the iterator is created. An iterator is not
// safe for concurrent use and cannot be rewound.
type ForwardIterator struct {
	log *Log
	sec *section
	idx int
	gen uint64

	next LSN // next LSN to yield
	stop LSN // exclusive bound

	lsn LSN
	rec []byte
	err error
}

// Begin returns a forward iterator over the retained log.
func (l *Log) Begin() *ForwardIterator {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return &ForwardIterator{
		log:  l,
		sec:  l.sections[0],
		gen:  l.generation.Load(),
		next: l.sections[0].start,
		stop: l.sections[len(l.sections)-1].End(),
	}
}

// Seek returns a forward iterator positioned at lsn. lsn must lie in the
// retained log or be the next LSN to assign (yielding an empty iterator).
func (l *Log) Seek(lsn LSN) (*ForwardIterator, error) {
	if l.closed.Load() {
		return nil, ErrClosedLog
	}
	l.mu.RLock()
	defer l.mu.RUnlock()

	retained := Range{Start: l.sections[0].start, End: l.sections[len(l.sections)-1].End()}
	if lsn < retained.Start || lsn > retained.End {
		return nil, &RangeError{LSN: lsn, Range: retained}
	}
	idx := l.sectionFor(lsn)
	return &ForwardIterator{
		log:  l,
		sec:  l.sections[idx],
		idx:  idx,
		gen:  l.generation.Load(),
		next: lsn,
		stop: retained.End,
	}, nil
}

// Next advances to the next record. It returns false when the iterator is
// exhausted or fails; Err tells the two apart.
func (it *ForwardIterator) Next() bool {
	if it.err != nil || it.next >= it.stop {
		return false
	}
	if it.log.closed.Load() {
		return it.fail(ErrClosedLog)
	}
	if it.log.generation.Load() != it.gen || it.next >= it.sec.End() {
		if err := it.resolve(); err != nil {
			return it.fail(err)
		}
	}
	rec, err := it.sec.RecordAt(it.next)
	if err != nil {
		return it.fail(err)
	}
	it.lsn, it.rec = it.next, rec
	it.next++
	return true
}

// resolve re-validates the current section against the log and moves on to
// the section holding it.next.
func (it *ForwardIterator) resolve() error {
	l := it.log
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed.Load() {
		return ErrClosedLog
	}
	if gen := l.generation.Load(); gen != it.gen {
		idx, ok := l.indexOf(it.sec)
		if !ok {
			return ErrInvalidatedIterator
		}
		it.idx, it.gen = idx, gen
	}
	for it.next >= it.sec.End() {
		if it.idx+1 >= len(l.sections) {
			return ErrInvalidatedIterator
		}
		it.idx++
		it.sec = l.sections[it.idx]
	}
	return nil
}

func (it *ForwardIterator) fail(err error) bool {
	it.err = err
	it.rec = nil
	return false
}

// Record returns the current record. The payload must not be modified.
func (it *ForwardIterator) Record() (LSN, []byte) { return it.lsn, it.rec }

// Err returns the error that stopped the iterator, or nil on exhaustion.
func (it *ForwardIterator) Err() error { return it.err }

// BackwardIterator walks records in descending LSN order, stopping at the
// retained start. The usage mirrors ForwardIterator.
type BackwardIterator struct {
	log *Log
	sec *section
	idx int
	gen uint64

	next      LSN    // next LSN to yield
	remaining uint64 // records left to yield

	lsn LSN
	rec []byte
	err error
}

// RBegin returns a backward iterator starting at LastLSN.
func (l *Log) RBegin() *BackwardIterator {
	l.mu.RLock()
	defer l.mu.RUnlock()

	last := len(l.sections) - 1
	end := l.sections[last].End()
	return &BackwardIterator{
		log:       l,
		sec:       l.sections[last],
		idx:       last,
		gen:       l.generation.Load(),
		next:      end - 1,
		remaining: uint64(end - l.sections[0].start),
	}
}

// Next moves to the previous record. It returns false when the iterator is
// exhausted or fails; Err tells the two apart.
func (it *BackwardIterator) Next() bool {
	if it.err != nil || it.remaining == 0 {
		return false
	}
	if it.log.closed.Load() {
		return it.fail(ErrClosedLog)
	}
	if it.log.generation.Load() != it.gen || it.next < it.sec.start {
		if err := it.resolve(); err != nil {
			return it.fail(err)
		}
	}
	rec, err := it.sec.RecordAt(it.next)
	if err != nil {
		return it.fail(err)
	}
	it.lsn, it.rec = it.next, rec
	it.next--
	it.remaining--
	return true
}

func (it *BackwardIterator) resolve() error {
	l := it.log
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed.Load() {
		return ErrClosedLog
	}
	if gen := l.generation.Load(); gen != it.gen {
		idx, ok := l.indexOf(it.sec)
		if !ok {
			return ErrInvalidatedIterator
		}
		it.idx, it.gen = idx, gen
	}
	for it.next < it.sec.start {
		if it.idx == 0 {
			// The preceding sections were removed by a cleanup.
			return ErrInvalidatedIterator
		}
		it.idx--
		it.sec = l.sections[it.idx]
	}
	return nil
}

func (it *BackwardIterator) fail(err error) bool {
	it.err = err
	it.rec = nil
	return false
}

// Record returns the current record. The payload must not be modified.
func (it *BackwardIterator) Record() (LSN, []byte) { return it.lsn, it.rec }

// Err returns the error that stopped the iterator, or nil on exhaustion.
func (it *BackwardIterator) Err() error { return it.err }
