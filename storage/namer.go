package storage

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/hupe1980/seglog"
)

// Namer maps log objects to blob names. A Namer scopes one log identity;
// every name it produces must start with Prefix.
type Namer interface {
	// Prefix is the listing prefix of the log identity.
	Prefix() string
	// SectionName returns the blob name of the sealed section covering r.
	SectionName(r seglog.Range) string
	// ParseSection recovers the range from a section blob name.
	ParseSection(name string) (seglog.Range, bool)
	// MarkerName returns the blob name of the checkpoint marker seq.
	MarkerName(seq uint64) string
	// ParseMarker recovers the sequence number from a marker blob name.
	ParseMarker(name string) (uint64, bool)
	// CurrentName returns the blob name of the pointer to the live marker.
	CurrentName() string
}

const (
	sectionPrefix = "section-"
	sectionSuffix = ".log"
	markerPrefix  = "MARKER-"
	markerSuffix  = ".bin"
	currentName   = "CURRENT"
)

// DefaultNamer lays a log out under the directory id:
//
//	<id>/section-<start>-<end>.log   (20-digit zero padded)
//	<id>/MARKER-<seq>.bin            (6-digit zero padded)
//	<id>/CURRENT
type DefaultNamer struct {
	ID string
}

var _ Namer = DefaultNamer{}

func (n DefaultNamer) join(name string) string {
	if n.ID == "" {
		return name
	}
	return path.Join(n.ID, name)
}

// Prefix implements Namer.
func (n DefaultNamer) Prefix() string {
	if n.ID == "" {
		return ""
	}
	return n.ID + "/"
}

// SectionName implements Namer.
func (n DefaultNamer) SectionName(r seglog.Range) string {
	return n.join(fmt.Sprintf("%s%020d-%020d%s", sectionPrefix, uint64(r.Start), uint64(r.End), sectionSuffix))
}

// ParseSection implements Namer.
func (n DefaultNamer) ParseSection(name string) (seglog.Range, bool) {
	base, ok := n.base(name, sectionPrefix, sectionSuffix)
	if !ok {
		return seglog.Range{}, false
	}
	lo, hi, ok := strings.Cut(base, "-")
	if !ok {
		return seglog.Range{}, false
	}
	start, err := strconv.ParseUint(lo, 10, 64)
	if err != nil {
		return seglog.Range{}, false
	}
	end, err := strconv.ParseUint(hi, 10, 64)
	if err != nil {
		return seglog.Range{}, false
	}
	return seglog.Range{Start: seglog.LSN(start), End: seglog.LSN(end)}, true
}

// MarkerName implements Namer.
func (n DefaultNamer) MarkerName(seq uint64) string {
	return n.join(fmt.Sprintf("%s%06d%s", markerPrefix, seq, markerSuffix))
}

// ParseMarker implements Namer.
func (n DefaultNamer) ParseMarker(name string) (uint64, bool) {
	base, ok := n.base(name, markerPrefix, markerSuffix)
	if !ok {
		return 0, false
	}
	seq, err := strconv.ParseUint(base, 10, 64)
	return seq, err == nil
}

// CurrentName implements Namer.
func (n DefaultNamer) CurrentName() string {
	return n.join(currentName)
}

// base strips the identity directory and the given affixes. Names in nested
// directories are rejected.
func (n DefaultNamer) base(name, prefix, suffix string) (string, bool) {
	rest, ok := strings.CutPrefix(name, n.Prefix())
	if !ok || strings.Contains(rest, "/") {
		return "", false
	}
	rest, ok = strings.CutPrefix(rest, prefix)
	if !ok {
		return "", false
	}
	return strings.CutSuffix(rest, suffix)
}
