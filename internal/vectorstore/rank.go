package vectorstore

import (
	"math"
	"sort"

	"ragpipeline/internal/domain"
)

// Cosine returns the cosine similarity of a and b, or 0 when their lengths
// differ or either is the zero vector.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Rank scores records against query and returns the best topK, highest
// first. Ties keep insertion order. topK <= 0 means 4.
func Rank(query []float64, records []domain.Record, topK int) []domain.SearchResult {
	if topK <= 0 {
		topK = 4
	}
	results := make([]domain.SearchResult, 0, len(records))
	for _, r := range records {
		results = append(results, domain.SearchResult{Record: r, Score: Cosine(query, r.Vector)})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if topK > len(results) {
		topK = len(results)
	}
	return results[:topK]
}
