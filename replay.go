package seglog

import (
	"context"
	"fmt"
)

// ReplayFunc receives one record during replay. Returning an error stops the
// replay.
type ReplayFunc func(lsn LSN, payload []byte) error

// Replay loads the sections needed from fromLSN on and calls fn for every
// record in [fromLSN, LastLSN] in order. It stops at the first error, either
// from the log or from fn.
func (l *Log) Replay(ctx context.Context, fromLSN LSN, fn ReplayFunc) error {
	replayed, err := l.replay(ctx, fromLSN, fn)
	l.opts.logger.LogRecovery(ctx, fromLSN, replayed, err)
	return err
}

// Recover replays from the committed checkpoint, or from the retained start
// if no checkpoint was ever committed. It returns the LSN replay started at.
func (l *Log) Recover(ctx context.Context, fn ReplayFunc) (LSN, error) {
	from := l.Start()
	if cp, ok := l.Checkpoint(); ok {
		from = max(cp.LSN, from)
	}
	return from, l.Replay(ctx, from, fn)
}

func (l *Log) replay(ctx context.Context, fromLSN LSN, fn ReplayFunc) (int, error) {
	if err := l.LoadRequiredSections(ctx, fromLSN); err != nil {
		return 0, err
	}
	it, err := l.Seek(fromLSN)
	if err != nil {
		return 0, err
	}

	replayed := 0
	for it.Next() {
		if err := ctx.Err(); err != nil {
			return replayed, err
		}
		lsn, payload := it.Record()
		if err := fn(lsn, payload); err != nil {
			return replayed, fmt.Errorf("replay at lsn %s: %w", lsn, err)
		}
		replayed++
	}
	return replayed, it.Err()
}
