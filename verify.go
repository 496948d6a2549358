package seglog

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// Report is the outcome of Verify.
type Report struct {
	Sections int
	Records  uint64
	Bytes    int64
	// Span is the LSN range between the first Start and the last End.
	Span          Range
	Checkpoint    Checkpoint
	HasCheckpoint bool
	// Stale lists sections wholly below the checkpoint, left by an
	// interrupted cleanup.
	Stale    []SectionMeta
	Problems []string
}

// OK reports whether no problem was found.
func (r *Report) OK() bool { return len(r.Problems) == 0 }

// Err returns an error wrapping ErrCorruptLog if a problem was found.
func (r *Report) Err() error {
	if r.OK() {
		return nil
	}
	return corruptf("", nil, "%d problem(s), first: %s", len(r.Problems), r.Problems[0])
}

func (r *Report) problemf(format string, args ...any) {
	r.Problems = append(r.Problems, fmt.Sprintf(format, args...))
}

// Verify audits the sections held by st without opening a Log: every section
// is read and checked against its range, and every LSN between the checkpoint
// and the last section must be covered exactly once.
//
// Storage failures are returned as errors; corruption is reported in the
// Report.
func Verify(ctx context.Context, st Storage) (*Report, error) {
	metas, err := st.ListSections(ctx)
	if err != nil {
		return nil, persistenceErr("list", "", err)
	}
	slices.SortFunc(metas, func(a, b SectionMeta) int {
		return cmp.Compare(a.Start, b.Start)
	})

	r := &Report{Sections: len(metas)}

	cp, err := st.ReadCheckpoint(ctx)
	switch {
	case err == nil:
		r.Checkpoint, r.HasCheckpoint = cp, true
	case errors.Is(err, ErrNoCheckpoint):
	case errors.Is(err, ErrCorruptLog):
		r.problemf("checkpoint: %v", err)
	default:
		return nil, persistenceErr("read checkpoint", "", err)
	}

	covered := roaring64.New()
	for _, m := range metas {
		if m.End < m.Start {
			r.problemf("%s: invalid range %s", m.Name, m.Range)
			continue
		}
		if r.HasCheckpoint && m.End <= cp.LSN {
			r.Stale = append(r.Stale, m)
			continue
		}

		records, err := st.ReadSection(ctx, m)
		switch {
		case errors.Is(err, ErrCorruptLog):
			r.problemf("%s: %v", m.Name, err)
			continue
		case err != nil:
			return nil, persistenceErr("read", m.Name, err)
		}
		if uint64(len(records)) != m.Len() {
			r.problemf("%s: holds %d records, range %s needs %d", m.Name, len(records), m.Range, m.Len())
		}
		for _, rec := range records {
			r.Bytes += int64(len(rec))
		}

		if m.Empty() {
			continue
		}
		sec := roaring64.New()
		sec.AddRange(uint64(m.Start), uint64(m.End))
		if covered.Intersects(sec) {
			r.problemf("%s: range %s overlaps another section", m.Name, m.Range)
		}
		covered.Or(sec)
	}

	if covered.IsEmpty() {
		return r, nil
	}

	r.Records = covered.GetCardinality()
	r.Span = Range{Start: LSN(covered.Minimum()), End: LSN(covered.Maximum()) + 1}

	want := roaring64.New()
	from := r.Span.Start
	if r.HasCheckpoint {
		from = min(cp.LSN, from)
	} else if from != 0 {
		r.problemf("first section starts at %s without a checkpoint", from)
	}
	want.AddRange(uint64(from), uint64(r.Span.End))
	want.AndNot(covered)
	if !want.IsEmpty() {
		r.problemf("%d LSN(s) missing, first at %d", want.GetCardinality(), want.Minimum())
	}
	return r, nil
}
