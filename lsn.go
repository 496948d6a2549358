package seglog

import (
	"fmt"
	"strconv"
)

// LSN is a log sequence number. The first record of a log is assigned LSN 0.
type LSN uint64

// NoLSN is the sentinel returned by LastLSN when nothing has been assigned yet.
//
// NoLSN+1 wraps to 0, so the next LSN to assign is always LastLSN()+1.
const NoLSN LSN = ^LSN(0)

// String returns the decimal form of the LSN, or "none" for NoLSN.
func (l LSN) String() string {
	if l == NoLSN {
		return "none"
	}
	return strconv.FormatUint(uint64(l), 10)
}

// Range is the half-open LSN interval [Start, End).
type Range struct {
	Start LSN
	End   LSN
}

// Contains reports whether lsn lies within the range.
func (r Range) Contains(lsn LSN) bool {
	return lsn >= r.Start && lsn < r.End
}

// Len returns the number of LSNs covered by the range.
func (r Range) Len() uint64 {
	if r.End <= r.Start {
		return 0
	}
	return uint64(r.End - r.Start)
}

// Empty reports whether the range covers no LSN.
func (r Range) Empty() bool { return r.End <= r.Start }

// Last returns the highest LSN in the range, or NoLSN when End is 0.
func (r Range) Last() LSN { return r.End - 1 }

func (r Range) String() string {
	return fmt.Sprintf("[%d,%d)", r.Start, r.End)
}
