package seglog

import (
	"context"

	"github.com/hupe1980/seglog/codec"
)

// Typed is a view of a Log that encodes records of type T with a codec.
type Typed[T any] struct {
	log   *Log
	codec codec.Codec
}

// NewTyped wraps l. A nil codec selects codec.Default.
func NewTyped[T any](l *Log, c codec.Codec) *Typed[T] {
	if c == nil {
		c = codec.Default
	}
	return &Typed[T]{log: l, codec: c}
}

// Log returns the underlying log.
func (t *Typed[T]) Log() *Log { return t.log }

// Append encodes v and appends it.
func (t *Typed[T]) Append(ctx context.Context, v T) (LSN, error) {
	b, err := codec.Encode(t.codec, v)
	if err != nil {
		return 0, err
	}
	return t.log.Append(ctx, b)
}

// Replay decodes every record from fromLSN on and passes it to fn.
func (t *Typed[T]) Replay(ctx context.Context, fromLSN LSN, fn func(LSN, T) error) error {
	return t.log.Replay(ctx, fromLSN, t.decoder(fn))
}

// Recover decodes every record from the committed checkpoint on.
func (t *Typed[T]) Recover(ctx context.Context, fn func(LSN, T) error) (LSN, error) {
	return t.log.Recover(ctx, t.decoder(fn))
}

func (t *Typed[T]) decoder(fn func(LSN, T) error) ReplayFunc {
	return func(lsn LSN, payload []byte) error {
		v, err := codec.Decode[T](t.codec, payload)
		if err != nil {
			return err
		}
		return fn(lsn, v)
	}
}
