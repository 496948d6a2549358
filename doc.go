// Package seglog provides a segmented append-only log.
//
// A Log assigns every record a dense log sequence number (LSN), starting at 0,
// and keeps its records in contiguous sections. Only the last section, the
// tail, accepts appends; all others are sealed and immutable.
//
// # Quick Start
//
// Memory-only:
//
//	l := seglog.NewVolatile(0)
//	lsn, _ := l.Append(ctx, []byte("hello"))
//
// Persistent, on a local directory:
//
//	st := storage.New(blobstore.NewLocalStore("./data"), "orders")
//	l, _ := seglog.Open(ctx, st, seglog.WithRotation(10_000, 64<<20))
//	defer l.Close(ctx)
//
// # Sections
//
// AdvanceTail seals the tail and opens a new one at its End. On a persistent
// log the sealed section is written to storage as one immutable blob; if
// that fails the section stays pending and is retried by the next
// AdvanceTail, Flush or Close. Sections discovered by Open are not read
// until LoadRequiredSections asks for them.
//
// # Checkpoints
//
// Cleanup(fromLSN, marker) commits a checkpoint and then drops every sealed
// section that lies wholly below fromLSN. The checkpoint is durable before
// anything is deleted, so Open completes a cleanup interrupted by a crash.
// Recover replays from the committed checkpoint:
//
//	from, err := l.Recover(ctx, func(lsn seglog.LSN, payload []byte) error {
//		return state.Apply(payload)
//	})
//
// # Reading
//
// Begin, Seek and RBegin return iterators following the bufio.Scanner idiom.
// An iterator whose section is removed by Cleanup fails with
// ErrInvalidatedIterator rather than skipping records.
//
// # Concurrency
//
// A Log supports one writer and any number of concurrent readers. Writer
// operations serialize on an internal lock.
package seglog
