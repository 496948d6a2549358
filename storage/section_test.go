package storage

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecords(n int) [][]byte {
	records := make([][]byte, n)
	for i := range records {
		records[i] = bytes.Repeat(fmt.Appendf(nil, "record-%04d;", i), 8)
	}
	return records
}

func TestSectionRoundTrip(t *testing.T) {
	tests := []struct {
		name        string
		compression Compression
		records     [][]byte
	}{
		{"none", CompressionNone, testRecords(50)},
		{"lz4", CompressionLZ4, testRecords(50)},
		{"zstd", CompressionZSTD, testRecords(50)},
		{"empty payloads", CompressionZSTD, [][]byte{{}, nil, []byte("x"), {}}},
		{"no records", CompressionLZ4, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := encodeSection(100, tt.records, tt.compression, 0)
			require.NoError(t, err)

			h, got, err := decodeSection(data)
			require.NoError(t, err)
			assert.Equal(t, uint64(100), h.Start)
			assert.Equal(t, uint64(len(tt.records)), h.Count)
			require.Len(t, got, len(tt.records))
			for i := range tt.records {
				assert.Equal(t, len(tt.records[i]), len(got[i]))
				assert.True(t, bytes.Equal(tt.records[i], got[i]), "record %d", i)
			}
		})
	}
}

func TestSectionCompressionShrinks(t *testing.T) {
	records := testRecords(200)
	plain, err := encodeSection(0, records, CompressionNone, 0)
	require.NoError(t, err)

	for _, c := range []Compression{CompressionLZ4, CompressionZSTD} {
		packed, err := encodeSection(0, records, c, 3)
		require.NoError(t, err)
		assert.Less(t, len(packed), len(plain)/2, c.String())

		h, err := unmarshalSectionHeader(packed)
		require.NoError(t, err)
		assert.Equal(t, c, h.Compression)
	}
}

func TestSectionIncompressibleFallsBack(t *testing.T) {
	// A single short record does not shrink.
	data, err := encodeSection(0, [][]byte{[]byte("abc")}, CompressionZSTD, 0)
	require.NoError(t, err)

	h, err := unmarshalSectionHeader(data)
	require.NoError(t, err)
	assert.Equal(t, CompressionNone, h.Compression)
}

func TestSectionCorruption(t *testing.T) {
	data, err := encodeSection(7, testRecords(10), CompressionNone, 0)
	require.NoError(t, err)

	mutate := func(fn func([]byte) []byte) []byte {
		c := bytes.Clone(data)
		return fn(c)
	}

	tests := []struct {
		name string
		data []byte
		msg  string
	}{
		{"short header", data[:20], "truncated"},
		{"bad magic", mutate(func(b []byte) []byte { b[0] = 'X'; return b }), "magic"},
		{"header bit flip", mutate(func(b []byte) []byte { b[9] ^= 1; return b }), "header checksum"},
		{"body bit flip", mutate(func(b []byte) []byte { b[len(b)-1] ^= 1; return b }), "body checksum"},
		{"truncated body", data[:len(data)-5], "body is"},
		{"appended garbage", append(bytes.Clone(data), 0, 0), "body is"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := decodeSection(tt.data)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestParseCompression(t *testing.T) {
	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
		got, err := ParseCompression(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
	_, err := ParseCompression("snappy")
	assert.Error(t, err)
}
