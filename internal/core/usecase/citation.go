package usecase

import (
	"fmt"
	"strings"

	"github.com/mvporto/fii-rag/internal/core/domain"
)

const excerptLimit = 240

// AssembleCitations numbers the retrieved passages 1..N in retrieval order
// (most similar first) and renders the context block embedded in the cited
// generation prompt. Pure function of its input: the same retrieval always
// yields the same numbering and the same block.
func AssembleCitations(retrieved []domain.RetrievedPassage) ([]domain.Citation, string) {
	citations := make([]domain.Citation, 0, len(retrieved))
	var block strings.Builder

	for i, hit := range retrieved {
		number := i + 1
		citations = append(citations, domain.Citation{
			Number:    number,
			Source:    hit.Passage.Document,
			Excerpt:   excerpt(hit.Passage.Text),
			PassageID: hit.Passage.ID,
		})
		fmt.Fprintf(&block, "[%d] source=%s score=%.3f\n%s\n\n",
			number, hit.Passage.Document, hit.Score, hit.Passage.Text)
	}
	return citations, block.String()
}

func excerpt(text string) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= excerptLimit {
		return string(runes)
	}
	return string(runes[:excerptLimit]) + "..."
}
