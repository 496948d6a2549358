package seglog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplay(t *testing.T) {
	ctx := context.Background()
	st := newMemStorage()
	st.seed(Range{Start: 0, End: 5})
	st.seed(Range{Start: 5, End: 10})
	l, err := Open(ctx, st)
	require.NoError(t, err)
	appendAll(t, l, "10", "11")

	var got []string
	require.NoError(t, l.Replay(ctx, 3, func(lsn LSN, p []byte) error {
		assert.Equal(t, lsn.String(), string(p))
		got = append(got, string(p))
		return nil
	}))
	assert.Equal(t, []string{"3", "4", "5", "6", "7", "8", "9", "10", "11"}, got)
}

func TestReplay_StopsOnCallbackError(t *testing.T) {
	ctx := context.Background()
	l := rotatingLog(t, 5)
	boom := errors.New("boom")

	calls := 0
	err := l.Replay(ctx, 0, func(lsn LSN, _ []byte) error {
		calls++
		if lsn == 2 {
			return boom
		}
		return nil
	})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "replay at lsn 2")
	assert.Equal(t, 3, calls)
}

func TestReplay_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l := rotatingLog(t, 3)

	err := l.Replay(ctx, 0, func(LSN, []byte) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReplay_OutOfRange(t *testing.T) {
	l := rotatingLog(t, 3)
	err := l.Replay(context.Background(), 7, func(LSN, []byte) error { return nil })
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestRecover(t *testing.T) {
	ctx := context.Background()

	t.Run("WithoutCheckpoint", func(t *testing.T) {
		st := newMemStorage()
		st.seed(Range{Start: 0, End: 4})
		l, err := Open(ctx, st)
		require.NoError(t, err)

		n := 0
		from, err := l.Recover(ctx, func(LSN, []byte) error { n++; return nil })
		require.NoError(t, err)
		assert.Equal(t, LSN(0), from)
		assert.Equal(t, 4, n)
	})

	t.Run("FromCheckpoint", func(t *testing.T) {
		st := newMemStorage()
		st.seed(Range{Start: 10, End: 20})
		st.cp = &Checkpoint{Token: "snap-7", LSN: 15}
		l, err := Open(ctx, st)
		require.NoError(t, err)

		var lsns []LSN
		from, err := l.Recover(ctx, func(lsn LSN, _ []byte) error {
			lsns = append(lsns, lsn)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, LSN(15), from)
		assert.Equal(t, []LSN{15, 16, 17, 18, 19}, lsns)
		assert.True(t, l.Sections()[0].Materialized)
	})
}
