package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/hupe1980/seglog"
	"github.com/hupe1980/seglog/internal/hash"
)

const (
	markerMagic      = 0x53474c43 // "SGLC"
	markerVersion    = 1
	markerHeaderSize = 16
	maxTokenLen      = 1<<16 - 1
)

// encodeMarker serializes a checkpoint marker.
//
// Format:
//
//	Magic (4 bytes)
//	Version (4 bytes)
//	Checksum (4 bytes) - CRC32C of payload
//	PayloadLength (4 bytes)
//	Payload:
//	  Seq (8 bytes)
//	  LSN (8 bytes)
//	  CreatedAt (8 bytes) - UnixNano
//	  Token (uint16 length + bytes)
func encodeMarker(seq uint64, cp seglog.Checkpoint) ([]byte, error) {
	pb := &payloadBuffer{buf: make([]byte, 0, 32+len(cp.Token))}
	pb.writeUint64(seq)
	pb.writeUint64(uint64(cp.LSN))
	pb.writeUint64(uint64(cp.CreatedAt.UnixNano()))
	pb.writeString(cp.Token)
	if pb.err != nil {
		return nil, pb.err
	}

	out := make([]byte, markerHeaderSize, markerHeaderSize+len(pb.buf))
	binary.LittleEndian.PutUint32(out[0:4], markerMagic)
	binary.LittleEndian.PutUint32(out[4:8], markerVersion)
	binary.LittleEndian.PutUint32(out[8:12], hash.CRC32C(pb.buf))
	binary.LittleEndian.PutUint32(out[12:16], uint32(len(pb.buf))) //nolint:gosec // token length is bounded
	return append(out, pb.buf...), nil
}

// decodeMarker parses a checkpoint marker and returns its sequence number.
func decodeMarker(data []byte) (uint64, seglog.Checkpoint, error) {
	if len(data) < markerHeaderSize {
		return 0, seglog.Checkpoint{}, io.ErrUnexpectedEOF
	}
	if magic := binary.LittleEndian.Uint32(data[0:4]); magic != markerMagic {
		return 0, seglog.Checkpoint{}, fmt.Errorf("invalid magic: %x", magic)
	}
	if v := binary.LittleEndian.Uint32(data[4:8]); v != markerVersion {
		return 0, seglog.Checkpoint{}, fmt.Errorf("unsupported version: %d", v)
	}
	checksum := binary.LittleEndian.Uint32(data[8:12])
	length := binary.LittleEndian.Uint32(data[12:16])

	payload := data[markerHeaderSize:]
	if uint64(len(payload)) != uint64(length) {
		return 0, seglog.Checkpoint{}, fmt.Errorf("payload is %d bytes, header says %d", len(payload), length)
	}
	if hash.CRC32C(payload) != checksum {
		return 0, seglog.Checkpoint{}, errors.New("checksum mismatch")
	}

	pb := &payloadBuffer{buf: payload}
	seq := pb.readUint64()
	cp := seglog.Checkpoint{
		LSN:       seglog.LSN(pb.readUint64()),
		CreatedAt: time.Unix(0, int64(pb.readUint64())), //nolint:gosec // round-trips UnixNano
		Token:     pb.readString(),
	}
	if pb.err != nil {
		return 0, seglog.Checkpoint{}, pb.err
	}
	if pb.pos != len(payload) {
		return 0, seglog.Checkpoint{}, fmt.Errorf("%d trailing bytes", len(payload)-pb.pos)
	}
	return seq, cp, nil
}

type payloadBuffer struct {
	buf []byte
	pos int
	err error
}

func (p *payloadBuffer) writeUint64(v uint64) {
	if p.err != nil {
		return
	}
	p.buf = binary.LittleEndian.AppendUint64(p.buf, v)
}

func (p *payloadBuffer) writeString(s string) {
	if p.err != nil {
		return
	}
	if len(s) > maxTokenLen {
		p.err = fmt.Errorf("token too long: %d bytes", len(s))
		return
	}
	p.buf = binary.LittleEndian.AppendUint16(p.buf, uint16(len(s))) //nolint:gosec // bounded above
	p.buf = append(p.buf, s...)
}

func (p *payloadBuffer) readUint64() uint64 {
	if p.err != nil {
		return 0
	}
	if p.pos+8 > len(p.buf) {
		p.err = io.ErrUnexpectedEOF
		return 0
	}
	v := binary.LittleEndian.Uint64(p.buf[p.pos:])
	p.pos += 8
	return v
}

func (p *payloadBuffer) readString() string {
	if p.err != nil {
		return ""
	}
	if p.pos+2 > len(p.buf) {
		p.err = io.ErrUnexpectedEOF
		return ""
	}
	l := int(binary.LittleEndian.Uint16(p.buf[p.pos:]))
	p.pos += 2
	if p.pos+l > len(p.buf) {
		p.err = io.ErrUnexpectedEOF
		return ""
	}
	s := string(p.buf[p.pos : p.pos+l])
	p.pos += l
	return s
}
