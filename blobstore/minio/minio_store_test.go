package minio

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/hupe1980/seglog/blobstore"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMinioStore_Integration requires a running MinIO instance.
// Skip if not available.
func TestMinioStore_Integration(t *testing.T) {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		endpoint = "localhost:9000"
	}
	bucket := "test-seglog"

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
		Secure: false,
	})
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}

	ctx := t.Context()
	if _, err := client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	store := NewStore(client, bucket, fmt.Sprintf("run-%d/", time.Now().UnixNano()))

	data := []byte("hello minio world")
	require.NoError(t, store.Put(ctx, "log/section.log", data))

	blob, err := store.Open(ctx, "log/section.log")
	require.NoError(t, err)
	require.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, 5)
	n, err := blob.ReadAt(ctx, buf, 6)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	assert.Equal(t, "minio", string(buf))
	require.NoError(t, blob.Close())

	all, err := blobstore.ReadAll(ctx, store, "log/section.log")
	require.NoError(t, err)
	assert.Equal(t, data, all)

	names, err := store.List(ctx, "log/")
	require.NoError(t, err)
	assert.Equal(t, []string{"log/section.log"}, names)

	require.NoError(t, store.Delete(ctx, "log/section.log"))
	require.NoError(t, store.Delete(ctx, "log/section.log"))

	_, err = store.Open(ctx, "log/section.log")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}
