// Package minio provides a BlobStore implementation using the MinIO client.
//
// It works with MinIO and other S3-compatible services (Ceph, Garage,
// SeaweedFS) without AWS SDK dependencies.
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := minioblob.NewStore(client, "my-bucket", "logs/")
//	st := storage.New(store, "orders")
//	log, err := seglog.Open(ctx, st)
//
// A PUT on an object store is atomic, so sections and checkpoint markers
// are either fully visible or absent.
package minio
