package index

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync/atomic"

	"github.com/mvporto/fii-rag/internal/core/domain"
)

// Memory is a brute-force cosine-similarity index over passage embeddings.
// Replace installs a complete new snapshot with a single pointer swap, so a
// concurrent Query sees either the fully-old or the fully-new passage set.
// Once installed a snapshot is never mutated and needs no read locking.
type Memory struct {
	snap atomic.Pointer[snapshot]
}

type snapshot struct {
	passages  []domain.Passage
	vectors   [][]float32
	norms     []float64
	dimension int
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Replace(_ context.Context, passages []domain.Passage, vectors [][]float32) error {
	if len(passages) != len(vectors) {
		return domain.WrapError(domain.ErrInvalidInput, "index build",
			fmt.Errorf("passages/vectors mismatch: %d/%d", len(passages), len(vectors)))
	}
	if len(passages) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "index build", errors.New("no passages to index"))
	}

	dim := len(vectors[0])
	norms := make([]float64, len(vectors))
	for i, v := range vectors {
		if len(v) != dim {
			return domain.WrapError(domain.ErrInvalidInput, "index build",
				fmt.Errorf("vector %d has dimension %d, want %d", i, len(v), dim))
		}
		norms[i] = norm(v)
	}

	m.snap.Store(&snapshot{
		passages:  passages,
		vectors:   vectors,
		norms:     norms,
		dimension: dim,
	})
	return nil
}

func (m *Memory) Query(_ context.Context, queryVector []float32, k int) ([]domain.RetrievedPassage, error) {
	snap := m.snap.Load()
	if snap == nil {
		return nil, domain.WrapError(domain.ErrEmptyIndex, "index query", errors.New("no build has completed"))
	}
	if len(queryVector) != snap.dimension {
		return nil, domain.WrapError(domain.ErrInvalidInput, "index query",
			fmt.Errorf("query dimension %d, index dimension %d", len(queryVector), snap.dimension))
	}
	if k <= 0 {
		return nil, nil
	}

	queryNorm := norm(queryVector)
	results := make([]domain.RetrievedPassage, 0, len(snap.passages))
	for i := range snap.passages {
		results = append(results, domain.RetrievedPassage{
			Passage: snap.passages[i],
			Score:   cosine(queryVector, queryNorm, snap.vectors[i], snap.norms[i]),
		})
	}

	// Stable sort keeps insertion order for equal similarity.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

func cosine(a []float32, normA float64, b []float32, normB float64) float64 {
	if normA == 0 || normB == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (normA * normB)
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
