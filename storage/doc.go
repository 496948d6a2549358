// Package storage implements seglog.Storage on top of a blobstore.BlobStore.
//
// # Layout
//
// With the DefaultNamer a log identity occupies one directory:
//
//	orders/section-00000000000000000000-00000000000000000100.log
//	orders/section-00000000000000000100-00000000000000000250.log
//	orders/MARKER-000007.bin
//	orders/CURRENT
//
// A section file is a 48-byte header followed by the (optionally LZ4 or
// ZSTD compressed) body of length-prefixed, CRC32C-checked records. The
// header carries the start LSN and record count, so a renamed or truncated
// file is detected on load.
//
// # Usage
//
//	st := storage.New(blobstore.NewLocalStore("/var/lib/app"), "orders",
//	    func(o *storage.Options) {
//	        o.Compression = storage.CompressionZSTD
//	    },
//	)
//	log, err := seglog.Open(ctx, st)
package storage
