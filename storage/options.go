package storage

// Options configures a BlobStorage.
type Options struct {
	// Namer lays out the blobs of the log identity.
	// Default: DefaultNamer{ID: id}
	Namer Namer

	// Compression selects the section body compression.
	// Default: CompressionNone
	Compression Compression

	// CompressionLevel is the zstd level (1-22, 0 picks the default).
	// Ignored for other compressions.
	CompressionLevel int

	// KeepMarkers is how many superseded checkpoint markers survive a
	// checkpoint commit.
	// Default: 2
	KeepMarkers int

	// PruneConcurrency bounds the parallel deletes of superseded markers.
	// Default: 4
	PruneConcurrency int
}

// DefaultOptions returns the default storage options for id.
func DefaultOptions(id string) Options {
	return Options{
		Namer:            DefaultNamer{ID: id},
		Compression:      CompressionNone,
		KeepMarkers:      2,
		PruneConcurrency: 4,
	}
}
