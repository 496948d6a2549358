// Package s3 provides an S3 implementation of the blobstore.BlobStore interface.
//
// # Usage
//
//	cfg, err := config.LoadDefaultConfig(ctx)
//	client := awss3.NewFromConfig(cfg)
//	store := s3.NewStore(client, "my-bucket", "logs/")
//
//	log, err := seglog.Open(ctx, storage.New(store, "orders"))
//
// # Features
//
//   - Range reads for partial fetches
//   - Multipart uploads with CRC32C checksums for large sections
//   - Automatic pagination for listing
//   - DynamoDB conditional writes for the checkpoint pointer (DDBCommitStore)
package s3
