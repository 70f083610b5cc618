package search

import (
	"context"
	"fmt"

	"github.com/phuslu/log"

	"github.com/xhad/stocknews/internal/models"
	"github.com/xhad/stocknews/internal/types"
)

// overfetchFactor widens the nearest-neighbor pool handed to the
// reranker beyond the caller's topK.
const overfetchFactor = 3

// Searcher answers text queries against the chunk corpus: embed the
// query, over-fetch nearest neighbors, rerank, trim to topK.
type Searcher struct {
	embedder types.Embedder
	index    types.VectorIndex
	weights  Weights
	logger   *log.Logger
}

type SearcherConfig struct {
	Embedder types.Embedder
	Index    types.VectorIndex
	Weights  Weights
	Logger   *log.Logger
}

func NewSearcher(config SearcherConfig) *Searcher {
	if config.Weights == (Weights{}) {
		config.Weights = DefaultWeights
	}
	if config.Logger == nil {
		config.Logger = &log.DefaultLogger
	}

	return &Searcher{
		embedder: config.Embedder,
		index:    config.Index,
		weights:  config.Weights,
		logger:   config.Logger,
	}
}

// Query returns the topK most relevant chunks for text, best first.
func (s *Searcher) Query(ctx context.Context, text string, topK int) ([]models.RetrievalResult, error) {
	if topK <= 0 {
		topK = 3
	}

	vectors, err := s.embedder.CreateEmbedding(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("query embedding failed: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected one query vector, got %d", len(vectors))
	}

	hits, err := s.index.Query(ctx, vectors[0], topK*overfetchFactor)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	reranked := Rerank(s.weights, text, hits, topK)
	s.logger.Debug().Str("query", text).Int("candidates", len(hits)).Int("returned", len(reranked)).
		Msg("retrieval complete")

	results := make([]models.RetrievalResult, 0, len(reranked))
	for _, hit := range reranked {
		results = append(results, models.RetrievalResult{
			Text:           hit.Text,
			Link:           hit.Link,
			RelevanceScore: hit.Similarity,
		})
	}
	return results, nil
}
