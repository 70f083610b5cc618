package store_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/stocknews/internal/models"
	"github.com/xhad/stocknews/pkg/store"
)

// These tests need a Postgres with the pgvector extension; they skip
// when DATABASE_URL is unset.
func testStore(t *testing.T, dim int) *store.VectorStore {
	t.Helper()

	connString := os.Getenv("DATABASE_URL")
	if connString == "" {
		t.Skip("DATABASE_URL not set, skipping pgvector tests")
	}

	vs, err := store.NewWithConfig(store.VectorStoreConfig{
		ConnString: connString,
		TableName:  "news_chunks_test",
		VectorDim:  dim,
	})
	require.NoError(t, err)
	t.Cleanup(vs.Close)

	return vs
}

func vec(dim int, fill float32) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = fill
	}
	return v
}

func TestUpsert_Idempotent(t *testing.T) {
	vs := testStore(t, 3)
	ctx := context.Background()
	require.NoError(t, vs.EnsureIndex(ctx, 3))

	chunks := []models.Chunk{
		{ID: "https://a::0", Text: "alpha", SourceLink: "https://a", CreatedAt: time.Now()},
		{ID: "https://a::1", Text: "beta", SourceLink: "https://a", CreatedAt: time.Now()},
	}
	vectors := [][]float32{vec(3, 0.1), vec(3, 0.2)}

	n, err := vs.Upsert(ctx, chunks, vectors)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Running the identical upsert again must not grow the corpus
	n, err = vs.Upsert(ctx, chunks, vectors)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	hits, err := vs.Query(ctx, vec(3, 0.1), 10)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestUpsert_DimensionMismatch(t *testing.T) {
	vs := testStore(t, 3)
	ctx := context.Background()
	require.NoError(t, vs.EnsureIndex(ctx, 3))

	chunks := []models.Chunk{{ID: "https://b::0", Text: "x", SourceLink: "https://b"}}
	_, err := vs.Upsert(ctx, chunks, [][]float32{vec(4, 0.1)})

	var dimErr *store.DimensionError
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, 3, dimErr.Expected)
	assert.Equal(t, 4, dimErr.Actual)
}

func TestUpsert_CountMismatch(t *testing.T) {
	vs := testStore(t, 3)
	ctx := context.Background()

	chunks := []models.Chunk{{ID: "https://c::0", Text: "x", SourceLink: "https://c"}}
	_, err := vs.Upsert(ctx, chunks, nil)
	assert.Error(t, err)
}

func TestEnsureIndex_RejectsMismatchedDimension(t *testing.T) {
	vs := testStore(t, 3)
	ctx := context.Background()

	var dimErr *store.DimensionError
	err := vs.EnsureIndex(ctx, 8)
	require.ErrorAs(t, err, &dimErr)
}
