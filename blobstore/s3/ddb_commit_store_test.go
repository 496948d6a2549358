package s3

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/hupe1980/seglog/blobstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockDDBClient is an in-memory DynamoDB mock for testing.
type mockDDBClient struct {
	mu    sync.RWMutex
	items map[string]map[string]types.AttributeValue
}

func newMockDDBClient() *mockDDBClient {
	return &mockDDBClient{
		items: make(map[string]map[string]types.AttributeValue),
	}
}

func (m *mockDDBClient) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	uri := params.Item["log_uri"].(*types.AttributeValueMemberS).Value
	version := params.Item["version"].(*types.AttributeValueMemberN).Value
	key := uri + ":" + version

	if aws.ToString(params.ConditionExpression) == "attribute_not_exists(version)" {
		if _, exists := m.items[key]; exists {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("condition failed")}
		}
	}

	m.items[key] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockDDBClient) Query(_ context.Context, params *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	uri := params.ExpressionAttributeValues[":uri"].(*types.AttributeValueMemberS).Value

	var items []map[string]types.AttributeValue
	for _, item := range m.items {
		if item["log_uri"].(*types.AttributeValueMemberS).Value == uri {
			items = append(items, item)
		}
	}

	version := func(item map[string]types.AttributeValue) uint64 {
		v, _ := strconv.ParseUint(item["version"].(*types.AttributeValueMemberN).Value, 10, 64)
		return v
	}
	sort.Slice(items, func(i, j int) bool { return version(items[i]) > version(items[j]) })

	if params.Limit != nil && int(*params.Limit) < len(items) {
		items = items[:*params.Limit]
	}
	return &dynamodb.QueryOutput{Items: items}, nil
}

func readPointer(t *testing.T, store *DDBCommitStore, name string) string {
	t.Helper()
	b, err := blobstore.ReadAll(context.Background(), store, name)
	require.NoError(t, err)
	return string(b)
}

func TestDDBCommitStore_FirstCommit(t *testing.T) {
	ctx := context.Background()
	store := NewDDBCommitStore(blobstore.NewMemoryStore(), newMockDDBClient(), "seglog-commits", "s3://bucket/logs/")

	require.NoError(t, store.Put(ctx, "orders/CURRENT", []byte("CHECKPOINT-000001.bin")))
	assert.Equal(t, "CHECKPOINT-000001.bin", readPointer(t, store, "orders/CURRENT"))
}

func TestDDBCommitStore_MultipleCommits(t *testing.T) {
	ctx := context.Background()
	store := NewDDBCommitStore(blobstore.NewMemoryStore(), newMockDDBClient(), "seglog-commits", "s3://bucket/logs/")

	for i := 1; i <= 12; i++ {
		require.NoError(t, store.Put(ctx, "orders/CURRENT", fmt.Appendf(nil, "CHECKPOINT-%06d.bin", i)))
	}
	assert.Equal(t, "CHECKPOINT-000012.bin", readPointer(t, store, "orders/CURRENT"))
}

func TestDDBCommitStore_ConcurrentCommits(t *testing.T) {
	ctx := context.Background()
	store := NewDDBCommitStore(blobstore.NewMemoryStore(), newMockDDBClient(), "seglog-commits", "s3://bucket/logs/")

	require.NoError(t, store.Put(ctx, "orders/CURRENT", []byte("CHECKPOINT-000001.bin")))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := range 5 {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			err := store.Put(ctx, "orders/CURRENT", fmt.Appendf(nil, "CHECKPOINT-%06d.bin", id+2))
			mu.Lock()
			defer mu.Unlock()
			switch err {
			case nil:
				successes++
			case ErrConcurrentModification:
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Positive(t, successes)
}

func TestDDBCommitStore_NotFoundBeforeCommit(t *testing.T) {
	store := NewDDBCommitStore(blobstore.NewMemoryStore(), newMockDDBClient(), "seglog-commits", "s3://bucket/logs/")

	_, err := store.Open(context.Background(), "orders/CURRENT")
	require.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestDDBCommitStore_IsolatedLogs(t *testing.T) {
	ctx := context.Background()
	store := NewDDBCommitStore(blobstore.NewMemoryStore(), newMockDDBClient(), "seglog-commits", "s3://bucket/logs/")

	require.NoError(t, store.Put(ctx, "a/CURRENT", []byte("CHECKPOINT-A.bin")))
	require.NoError(t, store.Put(ctx, "b/CURRENT", []byte("CHECKPOINT-B.bin")))

	assert.Equal(t, "CHECKPOINT-A.bin", readPointer(t, store, "a/CURRENT"))
	assert.Equal(t, "CHECKPOINT-B.bin", readPointer(t, store, "b/CURRENT"))
}

func TestDDBCommitStore_DelegatesBlobs(t *testing.T) {
	ctx := context.Background()
	mem := blobstore.NewMemoryStore()
	store := NewDDBCommitStore(mem, newMockDDBClient(), "seglog-commits", "s3://bucket/logs/")

	require.NoError(t, store.Put(ctx, "orders/section.log", []byte("payload")))
	require.NoError(t, store.Put(ctx, "orders/CURRENT", []byte("CHECKPOINT-000001.bin")))

	names, err := store.List(ctx, "orders/")
	require.NoError(t, err)
	assert.Equal(t, []string{"orders/section.log"}, names)

	require.NoError(t, store.Delete(ctx, "orders/CURRENT"))
	assert.Equal(t, "CHECKPOINT-000001.bin", readPointer(t, store, "orders/CURRENT"))

	require.NoError(t, store.Delete(ctx, "orders/section.log"))
	_, err = mem.Open(ctx, "orders/section.log")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}
