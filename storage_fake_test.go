package seglog

import (
	"cmp"
	"context"
	"fmt"
	"io/fs"
	"slices"
	"sync"
)

// memStorage is an in-memory Storage with fault hooks.
type memStorage struct {
	mu       sync.Mutex
	sections map[LSN]memSection
	cp       *Checkpoint

	failWrite      error
	failDelete     error
	failCheckpoint error
	failRead       error

	writes  int
	deletes []string
	reads   int
}

type memSection struct {
	meta    SectionMeta
	records [][]byte
}

func newMemStorage() *memStorage {
	return &memStorage{sections: make(map[LSN]memSection)}
}

func (m *memStorage) ListSections(context.Context) ([]SectionMeta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	metas := make([]SectionMeta, 0, len(m.sections))
	for _, s := range m.sections {
		metas = append(metas, s.meta)
	}
	slices.SortFunc(metas, func(a, b SectionMeta) int { return cmp.Compare(a.Start, b.Start) })
	return metas, nil
}

func (m *memStorage) ReadSection(_ context.Context, meta SectionMeta) ([][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if m.failRead != nil {
		return nil, m.failRead
	}
	s, ok := m.sections[meta.Start]
	if !ok || s.meta.Name != meta.Name {
		return nil, fmt.Errorf("section %s: %w", meta.Name, fs.ErrNotExist)
	}
	return slices.Clone(s.records), nil
}

func (m *memStorage) WriteSection(_ context.Context, start LSN, records [][]byte) (SectionMeta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite != nil {
		return SectionMeta{}, m.failWrite
	}
	m.writes++
	meta := SectionMeta{
		Range: Range{Start: start, End: start + LSN(len(records))},
		Name:  fmt.Sprintf("mem-%d-%d", start, start+LSN(len(records))),
	}
	for _, r := range records {
		meta.Size += int64(len(r))
	}
	m.sections[start] = memSection{meta: meta, records: slices.Clone(records)}
	return meta, nil
}

func (m *memStorage) DeleteSection(_ context.Context, meta SectionMeta) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDelete != nil {
		return m.failDelete
	}
	m.deletes = append(m.deletes, meta.Name)
	delete(m.sections, meta.Start)
	return nil
}

func (m *memStorage) ReadCheckpoint(context.Context) (Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cp == nil {
		return Checkpoint{}, ErrNoCheckpoint
	}
	return *m.cp, nil
}

func (m *memStorage) WriteCheckpoint(_ context.Context, cp Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCheckpoint != nil {
		return m.failCheckpoint
	}
	m.cp = &cp
	return nil
}

// seed stores a section with payloads "<lsn>" for every LSN in r.
func (m *memStorage) seed(r Range) SectionMeta {
	records := make([][]byte, 0, r.Len())
	for lsn := r.Start; lsn < r.End; lsn++ {
		records = append(records, []byte(lsn.String()))
	}
	meta, err := m.WriteSection(context.Background(), r.Start, records)
	if err != nil {
		panic(err)
	}
	return meta
}

func (m *memStorage) names() []string {
	metas, _ := m.ListSections(context.Background())
	names := make([]string, len(metas))
	for i, meta := range metas {
		names[i] = meta.Name
	}
	return names
}
