package search_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/stocknews/internal/models"
	"github.com/xhad/stocknews/internal/types"
	"github.com/xhad/stocknews/pkg/search"
)

func TestScore_HandComputed(t *testing.T) {
	w := search.DefaultWeights

	// 0.5*1.0 + 0.3*0.9 + 0.2*(1/1)
	assert.InDelta(t, 0.97, search.Score(w, 1.0, 0.9, 0), 1e-9)
	// 0.5*0.5 + 0.3*0.8 + 0.2*(1/2)
	assert.InDelta(t, 0.59, search.Score(w, 0.5, 0.8, 1), 1e-9)
	// 0.5*1.0 + 0.3*0.5 + 0.2*(1/3)
	assert.InDelta(t, 0.7166667, search.Score(w, 1.0, 0.5, 2), 1e-6)
}

func TestRerank_ThreeCandidateFixture(t *testing.T) {
	hits := []types.SearchHit{
		{ID: "a", Text: "apple earnings beat expectations", Similarity: 0.9},
		{ID: "b", Text: "apple supply chain update", Similarity: 0.8},
		{ID: "c", Text: "apple earnings call transcript", Similarity: 0.5},
	}

	got := search.Rerank(search.DefaultWeights, "apple earnings", hits, 3)

	// Combined scores: a=0.97, c=0.7167, b=0.59
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "c", got[1].ID)
	assert.Equal(t, "b", got[2].ID)

	assert.InDelta(t, 0.97, got[0].Similarity, 1e-9)
	assert.InDelta(t, 0.7166667, got[1].Similarity, 1e-6)
	assert.InDelta(t, 0.59, got[2].Similarity, 1e-9)
}

func TestRerank_TiesKeepOriginalOrder(t *testing.T) {
	// No position weight, identical inputs: everything ties
	w := search.Weights{Semantic: 0.5, Vector: 0.5, Position: 0}
	hits := []types.SearchHit{
		{ID: "first", Text: "same text", Similarity: 0.7},
		{ID: "second", Text: "same text", Similarity: 0.7},
	}

	got := search.Rerank(w, "same", hits, 2)
	assert.Equal(t, "first", got[0].ID)
	assert.Equal(t, "second", got[1].ID)
}

func TestRerank_TrimsToTopK(t *testing.T) {
	hits := []types.SearchHit{
		{ID: "a", Text: "x", Similarity: 0.9},
		{ID: "b", Text: "x", Similarity: 0.8},
		{ID: "c", Text: "x", Similarity: 0.7},
	}

	got := search.Rerank(search.DefaultWeights, "q", hits, 2)
	assert.Len(t, got, 2)
}

func TestSemanticRelevance(t *testing.T) {
	assert.Equal(t, 1.0, search.SemanticRelevance("apple earnings", "Apple earnings beat"))
	assert.Equal(t, 0.5, search.SemanticRelevance("apple earnings", "apple pie recipe"))
	assert.Equal(t, 0.0, search.SemanticRelevance("apple", "orange"))
	assert.Equal(t, 0.0, search.SemanticRelevance("", "anything"))
}

type fakeEmbedder struct {
	vector []float32
	calls  int
}

func (f *fakeEmbedder) CreateEmbedding(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector
	}
	return out, nil
}

type fakeIndex struct {
	hits     []types.SearchHit
	lastTopK int
}

func (f *fakeIndex) EnsureIndex(_ context.Context, _ int) error { return nil }

func (f *fakeIndex) Upsert(_ context.Context, _ []models.Chunk, _ [][]float32) (int, error) {
	return 0, nil
}

func (f *fakeIndex) Query(_ context.Context, _ []float32, topK int) ([]types.SearchHit, error) {
	f.lastTopK = topK
	return f.hits, nil
}

func TestSearcher_OverfetchesBeyondTopK(t *testing.T) {
	index := &fakeIndex{hits: []types.SearchHit{
		{ID: "a", Text: "market summary today", Link: "https://a", Similarity: 0.9},
		{ID: "b", Text: "unrelated", Link: "https://b", Similarity: 0.5},
	}}

	searcher := search.NewSearcher(search.SearcherConfig{
		Embedder: &fakeEmbedder{vector: []float32{0.1, 0.2}},
		Index:    index,
	})

	results, err := searcher.Query(context.Background(), "market summary", 2)
	require.NoError(t, err)

	assert.Equal(t, 6, index.lastTopK) // 2 * overfetch factor
	require.Len(t, results, 2)
	assert.Equal(t, "https://a", results[0].Link)
	assert.Greater(t, results[0].RelevanceScore, results[1].RelevanceScore)
}
