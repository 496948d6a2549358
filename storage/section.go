package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/hupe1980/seglog/internal/hash"
)

var sectionMagic = [4]byte{'S', 'G', 'L', 'S'}

const (
	sectionVersion    = uint16(1)
	sectionHeaderSize = 48
	recordHeaderSize  = 8
)

// sectionHeader is the fixed prefix of a section file.
//
// Layout (little endian):
//
//	Magic       [4]byte "SGLS"
//	Version     uint16
//	Compression uint8
//	Reserved    uint8
//	Start       uint64  first LSN
//	Count       uint64  number of records
//	RawLen      uint64  uncompressed body length
//	BodyLen     uint64  stored body length
//	BodyCRC     uint32  CRC32C of the stored body
//	HeaderCRC   uint32  CRC32C of the preceding 44 bytes
//
// The uncompressed body is a sequence of records, each
// [Len uint32][CRC32C uint32][Payload].
type sectionHeader struct {
	Compression Compression
	Start       uint64
	Count       uint64
	RawLen      uint64
	BodyLen     uint64
	BodyCRC     uint32
}

var errShortSection = errors.New("truncated section")

func (h *sectionHeader) marshal() []byte {
	buf := make([]byte, 0, sectionHeaderSize)
	buf = append(buf, sectionMagic[:]...)
	buf = binary.LittleEndian.AppendUint16(buf, sectionVersion)
	buf = append(buf, byte(h.Compression), 0)
	buf = binary.LittleEndian.AppendUint64(buf, h.Start)
	buf = binary.LittleEndian.AppendUint64(buf, h.Count)
	buf = binary.LittleEndian.AppendUint64(buf, h.RawLen)
	buf = binary.LittleEndian.AppendUint64(buf, h.BodyLen)
	buf = binary.LittleEndian.AppendUint32(buf, h.BodyCRC)
	return binary.LittleEndian.AppendUint32(buf, hash.CRC32C(buf))
}

func unmarshalSectionHeader(data []byte) (sectionHeader, error) {
	if len(data) < sectionHeaderSize {
		return sectionHeader{}, errShortSection
	}
	if [4]byte(data[0:4]) != sectionMagic {
		return sectionHeader{}, errors.New("invalid magic")
	}
	if crc := binary.LittleEndian.Uint32(data[44:48]); crc != hash.CRC32C(data[:44]) {
		return sectionHeader{}, errors.New("header checksum mismatch")
	}
	if v := binary.LittleEndian.Uint16(data[4:6]); v != sectionVersion {
		return sectionHeader{}, fmt.Errorf("unsupported version %d", v)
	}
	return sectionHeader{
		Compression: Compression(data[6]),
		Start:       binary.LittleEndian.Uint64(data[8:16]),
		Count:       binary.LittleEndian.Uint64(data[16:24]),
		RawLen:      binary.LittleEndian.Uint64(data[24:32]),
		BodyLen:     binary.LittleEndian.Uint64(data[32:40]),
		BodyCRC:     binary.LittleEndian.Uint32(data[40:44]),
	}, nil
}

// encodeSection serializes records starting at start.
func encodeSection(start uint64, records [][]byte, c Compression, level int) ([]byte, error) {
	rawLen := 0
	for _, rec := range records {
		if uint64(len(rec)) > math.MaxUint32 {
			return nil, fmt.Errorf("record of %d bytes exceeds the 4GiB limit", len(rec))
		}
		rawLen += recordHeaderSize + len(rec)
	}

	raw := make([]byte, 0, rawLen)
	for _, rec := range records {
		raw = binary.LittleEndian.AppendUint32(raw, uint32(len(rec))) //nolint:gosec // bounded above
		raw = binary.LittleEndian.AppendUint32(raw, hash.CRC32C(rec))
		raw = append(raw, rec...)
	}

	body, used, err := compress(raw, c, level)
	if err != nil {
		return nil, err
	}

	h := sectionHeader{
		Compression: used,
		Start:       start,
		Count:       uint64(len(records)),
		RawLen:      uint64(len(raw)),
		BodyLen:     uint64(len(body)),
		BodyCRC:     hash.CRC32C(body),
	}
	out := make([]byte, 0, sectionHeaderSize+len(body))
	out = append(out, h.marshal()...)
	return append(out, body...), nil
}

// decodeSection parses a section file. Record payloads alias the decoded
// body, which is data itself when the body is stored uncompressed.
func decodeSection(data []byte) (sectionHeader, [][]byte, error) {
	h, err := unmarshalSectionHeader(data)
	if err != nil {
		return h, nil, err
	}
	body := data[sectionHeaderSize:]
	if uint64(len(body)) != h.BodyLen {
		return h, nil, fmt.Errorf("body is %d bytes, header says %d", len(body), h.BodyLen)
	}
	if hash.CRC32C(body) != h.BodyCRC {
		return h, nil, errors.New("body checksum mismatch")
	}
	if h.RawLen > math.MaxInt32 || h.Count > h.RawLen/recordHeaderSize {
		return h, nil, fmt.Errorf("implausible header: %d records in %d bytes", h.Count, h.RawLen)
	}

	raw, err := decompress(body, h.Compression, int(h.RawLen))
	if err != nil {
		return h, nil, err
	}

	records := make([][]byte, 0, h.Count)
	for off := 0; off < len(raw); {
		if len(raw)-off < recordHeaderSize {
			return h, nil, fmt.Errorf("record %d: %w", len(records), errShortSection)
		}
		n := int(binary.LittleEndian.Uint32(raw[off:]))
		crc := binary.LittleEndian.Uint32(raw[off+4:])
		off += recordHeaderSize
		if n > len(raw)-off {
			return h, nil, fmt.Errorf("record %d: %w", len(records), errShortSection)
		}
		rec := raw[off : off+n : off+n]
		if hash.CRC32C(rec) != crc {
			return h, nil, fmt.Errorf("record %d: checksum mismatch", len(records))
		}
		records = append(records, rec)
		off += n
	}
	if uint64(len(records)) != h.Count {
		return h, nil, fmt.Errorf("holds %d records, header says %d", len(records), h.Count)
	}
	return h, records, nil
}
