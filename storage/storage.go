package storage

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"sync"

	"github.com/hupe1980/seglog"
	"github.com/hupe1980/seglog/blobstore"
	"golang.org/x/sync/errgroup"
)

// BlobStorage implements seglog.Storage on a blobstore.BlobStore.
//
// Every sealed section is one immutable blob written with a single Put.
// Checkpoints follow the marker protocol: a new MARKER-<seq>.bin is written
// first, then CURRENT is pointed at it. A crash between the two leaves the
// previous checkpoint live.
type BlobStorage struct {
	store blobstore.BlobStore
	opts  Options

	mu      sync.Mutex // serializes checkpoint commits
	lastSeq uint64
}

var _ seglog.Storage = (*BlobStorage)(nil)

// New returns a BlobStorage for the log identity id.
func New(store blobstore.BlobStore, id string, optFns ...func(o *Options)) *BlobStorage {
	opts := DefaultOptions(id)
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Namer == nil {
		opts.Namer = DefaultNamer{ID: id}
	}
	if opts.PruneConcurrency <= 0 {
		opts.PruneConcurrency = 1
	}
	return &BlobStorage{store: store, opts: opts}
}

// Store returns the underlying blob store.
func (s *BlobStorage) Store() blobstore.BlobStore { return s.store }

// ListSections implements seglog.Storage. Blobs that are not sections of
// this identity are ignored.
func (s *BlobStorage) ListSections(ctx context.Context) ([]seglog.SectionMeta, error) {
	names, err := s.store.List(ctx, s.opts.Namer.Prefix())
	if err != nil {
		return nil, err
	}
	var metas []seglog.SectionMeta
	for _, name := range names {
		r, ok := s.opts.Namer.ParseSection(name)
		if !ok {
			continue
		}
		metas = append(metas, seglog.SectionMeta{Range: r, Name: name})
	}
	slices.SortFunc(metas, func(a, b seglog.SectionMeta) int {
		return cmp.Compare(a.Start, b.Start)
	})
	return metas, nil
}

// ReadSection implements seglog.Storage.
func (s *BlobStorage) ReadSection(ctx context.Context, meta seglog.SectionMeta) ([][]byte, error) {
	data, err := blobstore.ReadAll(ctx, s.store, meta.Name)
	if err != nil {
		return nil, err
	}
	h, records, err := decodeSection(data)
	if err != nil {
		return nil, &seglog.CorruptionError{Section: meta.Name, Reason: err.Error()}
	}
	if got := (seglog.Range{Start: seglog.LSN(h.Start), End: seglog.LSN(h.Start + h.Count)}); got != meta.Range {
		return nil, &seglog.CorruptionError{
			Section: meta.Name,
			Reason:  fmt.Sprintf("content covers %s, name says %s", got, meta.Range),
		}
	}
	return records, nil
}

// WriteSection implements seglog.Storage.
func (s *BlobStorage) WriteSection(ctx context.Context, start seglog.LSN, records [][]byte) (seglog.SectionMeta, error) {
	r := seglog.Range{Start: start, End: start + seglog.LSN(len(records))}
	data, err := encodeSection(uint64(start), records, s.opts.Compression, s.opts.CompressionLevel)
	if err != nil {
		return seglog.SectionMeta{}, err
	}
	name := s.opts.Namer.SectionName(r)
	if err := s.store.Put(ctx, name, data); err != nil {
		return seglog.SectionMeta{}, err
	}
	return seglog.SectionMeta{Range: r, Name: name, Size: int64(len(data))}, nil
}

// DeleteSection implements seglog.Storage.
func (s *BlobStorage) DeleteSection(ctx context.Context, meta seglog.SectionMeta) error {
	return s.store.Delete(ctx, meta.Name)
}

// ReadCheckpoint implements seglog.Storage.
func (s *BlobStorage) ReadCheckpoint(ctx context.Context) (seglog.Checkpoint, error) {
	_, cp, err := s.readCurrent(ctx)
	return cp, err
}

func (s *BlobStorage) readCurrent(ctx context.Context) (uint64, seglog.Checkpoint, error) {
	ptr, err := blobstore.ReadAll(ctx, s.store, s.opts.Namer.CurrentName())
	if errors.Is(err, fs.ErrNotExist) {
		return 0, seglog.Checkpoint{}, seglog.ErrNoCheckpoint
	}
	if err != nil {
		return 0, seglog.Checkpoint{}, err
	}

	name := strings.TrimSpace(string(ptr))
	want, ok := s.opts.Namer.ParseMarker(name)
	if !ok {
		return 0, seglog.Checkpoint{}, &seglog.CorruptionError{
			Section: s.opts.Namer.CurrentName(),
			Reason:  fmt.Sprintf("points at %q, not a marker", name),
		}
	}

	data, err := blobstore.ReadAll(ctx, s.store, name)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, seglog.Checkpoint{}, &seglog.CorruptionError{Section: name, Reason: "marker referenced by CURRENT is missing"}
	}
	if err != nil {
		return 0, seglog.Checkpoint{}, err
	}
	seq, cp, err := decodeMarker(data)
	if err != nil {
		return 0, seglog.Checkpoint{}, &seglog.CorruptionError{Section: name, Reason: err.Error()}
	}
	if seq != want {
		return 0, seglog.Checkpoint{}, &seglog.CorruptionError{
			Section: name,
			Reason:  fmt.Sprintf("holds sequence %d", seq),
		}
	}
	return seq, cp, nil
}

// WriteCheckpoint implements seglog.Storage. After CURRENT moves, markers
// older than the KeepMarkers most recent superseded ones are deleted; a
// failed prune is not an error since the checkpoint is already committed.
func (s *BlobStorage) WriteCheckpoint(ctx context.Context, cp seglog.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq, err := s.nextSeq(ctx)
	if err != nil {
		return err
	}
	data, err := encodeMarker(seq, cp)
	if err != nil {
		return err
	}

	name := s.opts.Namer.MarkerName(seq)
	if err := s.store.Put(ctx, name, data); err != nil {
		return err
	}
	if err := s.store.Put(ctx, s.opts.Namer.CurrentName(), []byte(name)); err != nil {
		return err
	}
	s.lastSeq = seq

	_ = s.prune(ctx, seq)
	return nil
}

// nextSeq returns one past the highest marker sequence in the store, which
// may be ahead of CURRENT after an interrupted commit.
func (s *BlobStorage) nextSeq(ctx context.Context) (uint64, error) {
	seqs, err := s.markers(ctx)
	if err != nil {
		return 0, err
	}
	last := s.lastSeq
	if len(seqs) > 0 {
		last = max(last, seqs[len(seqs)-1])
	}
	return last + 1, nil
}

func (s *BlobStorage) markers(ctx context.Context) ([]uint64, error) {
	names, err := s.store.List(ctx, s.opts.Namer.Prefix())
	if err != nil {
		return nil, err
	}
	var seqs []uint64
	for _, name := range names {
		if seq, ok := s.opts.Namer.ParseMarker(name); ok {
			seqs = append(seqs, seq)
		}
	}
	slices.Sort(seqs)
	return seqs, nil
}

// Markers returns the sequence numbers of all checkpoint markers, ascending.
func (s *BlobStorage) Markers(ctx context.Context) ([]uint64, error) {
	return s.markers(ctx)
}

// ReadMarker decodes the checkpoint marker seq.
func (s *BlobStorage) ReadMarker(ctx context.Context, seq uint64) (seglog.Checkpoint, error) {
	name := s.opts.Namer.MarkerName(seq)
	data, err := blobstore.ReadAll(ctx, s.store, name)
	if err != nil {
		return seglog.Checkpoint{}, err
	}
	got, cp, err := decodeMarker(data)
	if err != nil {
		return seglog.Checkpoint{}, &seglog.CorruptionError{Section: name, Reason: err.Error()}
	}
	if got != seq {
		return seglog.Checkpoint{}, &seglog.CorruptionError{Section: name, Reason: fmt.Sprintf("holds sequence %d", got)}
	}
	return cp, nil
}

func (s *BlobStorage) prune(ctx context.Context, live uint64) error {
	seqs, err := s.markers(ctx)
	if err != nil {
		return err
	}
	var victims []uint64
	kept := 0
	for i := len(seqs) - 1; i >= 0; i-- {
		switch seq := seqs[i]; {
		case seq >= live:
		case kept < s.opts.KeepMarkers:
			kept++
		default:
			victims = append(victims, seq)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.PruneConcurrency)
	for _, seq := range victims {
		g.Go(func() error {
			return s.store.Delete(gctx, s.opts.Namer.MarkerName(seq))
		})
	}
	return g.Wait()
}
