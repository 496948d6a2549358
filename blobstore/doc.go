// Package blobstore provides the object storage that persisted log sections
// and checkpoint markers live in.
//
// A BlobStore holds immutable named blobs. Put must be atomic: a reader sees
// either the complete blob or none. Implementations must be safe for
// concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: local file system, tmp-file + rename writes, mmap reads
//   - MemoryStore: in-memory, for tests and ephemeral logs
//   - minio.Store: MinIO and other S3-compatible services
//   - s3.Store: Amazon S3, with s3.DDBCommitStore for atomic pointer updates
package blobstore
