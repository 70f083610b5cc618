package search

import (
	"sort"
	"strings"

	"github.com/xhad/stocknews/internal/types"
)

// Weights configures the rerank score combination. They should sum to
// 1.0; DefaultWeights is used when all three are zero.
type Weights struct {
	Semantic float64
	Vector   float64
	Position float64
}

// DefaultWeights is the standard 0.5/0.3/0.2 split.
var DefaultWeights = Weights{Semantic: 0.5, Vector: 0.3, Position: 0.2}

// Score combines the three rerank inputs for a candidate at the given
// original rank (0-based). Pure function.
func Score(w Weights, semantic, vector float64, rank int) float64 {
	return w.Semantic*semantic + w.Vector*vector + w.Position*(1.0/float64(1+rank))
}

type scored struct {
	hit      types.SearchHit
	rank     int
	combined float64
}

// Rerank reorders nearest-neighbor hits by the weighted score and
// returns the top topK. Ties keep the original vector-similarity order.
func Rerank(w Weights, query string, hits []types.SearchHit, topK int) []types.SearchHit {
	if w.Semantic == 0 && w.Vector == 0 && w.Position == 0 {
		w = DefaultWeights
	}

	candidates := make([]scored, len(hits))
	for i, hit := range hits {
		candidates[i] = scored{
			hit:      hit,
			rank:     i,
			combined: Score(w, SemanticRelevance(query, hit.Text), hit.Similarity, i),
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].combined != candidates[j].combined {
			return candidates[i].combined > candidates[j].combined
		}
		return candidates[i].rank < candidates[j].rank
	})

	if topK > len(candidates) {
		topK = len(candidates)
	}

	out := make([]types.SearchHit, 0, topK)
	for _, c := range candidates[:topK] {
		c.hit.Similarity = c.combined
		out = append(out, c.hit)
	}
	return out
}

// SemanticRelevance is the fraction of query terms present in text,
// case-insensitive. A purely local signal; no provider call involved.
func SemanticRelevance(query, text string) float64 {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return 0
	}

	lowered := strings.ToLower(text)
	matched := 0
	for _, term := range terms {
		if strings.Contains(lowered, term) {
			matched++
		}
	}
	return float64(matched) / float64(len(terms))
}
