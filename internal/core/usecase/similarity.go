package usecase

import (
	"fmt"
	"math"
	"sort"

	"github.com/kirillkom/hiring-pipeline/internal/core/domain"
)

// CosineSimilarity returns dot(a,b) / (||a||*||b||). A zero-norm vector on
// either side yields 0, never an error. Mismatched dimensions are a hard
// error: truncating silently would rank garbage.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, domain.WrapError(
			domain.ErrDimensionMismatch,
			"cosine similarity",
			fmt.Errorf("len(a)=%d len(b)=%d", len(a), len(b)),
		)
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// RankBySimilarity ranks corpus entries against the query vector in
// descending similarity. Ties keep corpus input order so identical inputs
// produce identical rankings. minSimilarity filters before topK truncation.
func RankBySimilarity(query []float32, corpus []domain.VectorEntry, topK int, minSimilarity float64) ([]domain.RankedMatch, error) {
	ranked := make([]domain.RankedMatch, 0, len(corpus))
	for _, entry := range corpus {
		similarity, err := CosineSimilarity(query, entry.Vector)
		if err != nil {
			return nil, fmt.Errorf("rank entry %s: %w", entry.ID, err)
		}
		if similarity < minSimilarity {
			continue
		}
		ranked = append(ranked, domain.RankedMatch{ID: entry.ID, Similarity: similarity})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Similarity > ranked[j].Similarity
	})

	if topK > 0 && len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked, nil
}
