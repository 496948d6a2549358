package seglog

import (
	"context"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rotatingLog returns a volatile log of n records "0".."n-1" in sections of
// three.
func rotatingLog(t *testing.T, n int) *Log {
	t.Helper()
	l := NewVolatile(0, WithRotation(3, 0))
	for i := range n {
		_, err := l.Append(context.Background(), []byte(LSN(i).String()))
		require.NoError(t, err)
	}
	return l
}

func TestIterators_Symmetric(t *testing.T) {
	l := rotatingLog(t, 10)

	forward, _ := collect(t, l.Begin())

	var backward []LSN
	it := l.RBegin()
	for it.Next() {
		lsn, p := it.Record()
		assert.Equal(t, lsn.String(), string(p))
		backward = append(backward, lsn)
	}
	require.NoError(t, it.Err())

	require.Len(t, forward, 10)
	slices.Reverse(backward)
	assert.Equal(t, forward, backward)
}

func TestIterators_EmptyLog(t *testing.T) {
	l := NewVolatile(0)
	assert.False(t, l.Begin().Next())
	assert.False(t, l.RBegin().Next())

	it, err := l.Seek(0)
	require.NoError(t, err)
	assert.False(t, it.Next())
	assert.NoError(t, it.Err())
}

func TestSeek(t *testing.T) {
	ctx := context.Background()
	l := rotatingLog(t, 10)

	it, err := l.Seek(4)
	require.NoError(t, err)
	lsns, _ := collect(t, it)
	assert.Equal(t, []LSN{4, 5, 6, 7, 8, 9}, lsns)

	it, err = l.Seek(10)
	require.NoError(t, err)
	assert.False(t, it.Next())

	_, err = l.Seek(11)
	assert.ErrorIs(t, err, ErrOutOfRange)

	require.NoError(t, l.Cleanup(ctx, 6, "m"))
	_, err = l.Seek(2)
	var re *RangeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, Range{Start: 6, End: 10}, re.Range)
}

func TestForwardIterator_BoundFixedAtCreation(t *testing.T) {
	ctx := context.Background()
	l := rotatingLog(t, 2)

	it := l.Begin()
	require.NoError(t, l.AdvanceTail(ctx))
	appendAll(t, l, "late")

	lsns, _ := collect(t, it)
	assert.Equal(t, []LSN{0, 1}, lsns)
}

func TestForwardIterator_SurvivesCleanupOfEarlierSections(t *testing.T) {
	ctx := context.Background()
	l := rotatingLog(t, 9)

	it, err := l.Seek(6)
	require.NoError(t, err)
	require.True(t, it.Next())

	require.NoError(t, l.Cleanup(ctx, 3, "m"))
	lsns, _ := collect(t, it)
	assert.Equal(t, []LSN{7, 8}, lsns)
}

func TestForwardIterator_InvalidatedByCleanup(t *testing.T) {
	ctx := context.Background()
	l := rotatingLog(t, 9)

	it := l.Begin()
	require.True(t, it.Next())

	require.NoError(t, l.Cleanup(ctx, 6, "m"))
	assert.False(t, it.Next())
	assert.ErrorIs(t, it.Err(), ErrInvalidatedIterator)
	assert.False(t, it.Next(), "a failed iterator stays failed")
}

func TestBackwardIterator_InvalidatedByCleanup(t *testing.T) {
	ctx := context.Background()
	l := rotatingLog(t, 6)

	it := l.RBegin()
	for range 3 {
		require.True(t, it.Next())
	}
	lsn, _ := it.Record()
	assert.Equal(t, LSN(3), lsn)

	require.NoError(t, l.Cleanup(ctx, 3, "m"))
	assert.False(t, it.Next())
	assert.ErrorIs(t, it.Err(), ErrInvalidatedIterator)
}

func TestIterators_ClosedLog(t *testing.T) {
	ctx := context.Background()
	l := rotatingLog(t, 4)

	fwd := l.Begin()
	bwd := l.RBegin()
	require.True(t, fwd.Next())
	require.True(t, bwd.Next())

	require.NoError(t, l.Close(ctx))
	assert.False(t, fwd.Next())
	assert.ErrorIs(t, fwd.Err(), ErrClosedLog)
	assert.False(t, bwd.Next())
	assert.ErrorIs(t, bwd.Err(), ErrClosedLog)
}
