package chunking

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/mvporto/fii-rag/internal/core/domain"
)

// Splitter walks a rune window of Size over the document, advancing by
// Size-Overlap, so consecutive passages share exactly Overlap runes. Window
// ends prefer a sentence or whitespace boundary within Tolerance runes behind
// the target cut; the tail is always emitted exactly once.
type Splitter struct {
	Size      int
	Overlap   int
	Tolerance int
}

func NewSplitter(size, overlap int) (*Splitter, error) {
	if size <= 0 {
		return nil, domain.WrapError(domain.ErrInvalidConfig, "chunking", fmt.Errorf("chunk size must be positive, got %d", size))
	}
	if overlap < 0 || overlap >= size {
		return nil, domain.WrapError(domain.ErrInvalidConfig, "chunking", fmt.Errorf("overlap must be in [0,%d), got %d", size, overlap))
	}

	tolerance := size / 10
	if tolerance > 120 {
		tolerance = 120
	}
	return &Splitter{
		Size:      size,
		Overlap:   overlap,
		Tolerance: tolerance,
	}, nil
}

func (s *Splitter) Chunk(doc domain.Document) ([]domain.Passage, error) {
	runes := []rune(doc.Text)
	n := len(runes)
	if n == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "chunking", errors.New("document has no text"))
	}

	out := make([]domain.Passage, 0, n/(s.Size-s.Overlap)+1)
	start := 0
	for start < n {
		end := start + s.Size
		if end >= n {
			end = n
		} else {
			end = s.snapToBoundary(runes, end)
		}

		out = append(out, domain.Passage{
			ID:       fmt.Sprintf("%s:%d", doc.Name, len(out)),
			Document: doc.Name,
			Text:     string(runes[start:end]),
			Start:    start,
			End:      end,
		})

		if end == n {
			break
		}
		next := end - s.Overlap
		if next <= start {
			// Degenerate snap; force progress to keep the walk finite.
			next = start + 1
		}
		start = next
	}
	return out, nil
}

// snapToBoundary moves the cut backwards, at most Tolerance runes, to the
// nearest sentence end, falling back to whitespace, falling back to a hard
// cut at target. Only backward moves keep every window within Size.
func (s *Splitter) snapToBoundary(runes []rune, target int) int {
	limit := target - s.Tolerance
	if limit < 1 {
		limit = 1
	}

	whitespace := -1
	for i := target - 1; i >= limit; i-- {
		if isSentenceEnd(runes[i]) {
			return i + 1
		}
		if whitespace < 0 && unicode.IsSpace(runes[i]) {
			whitespace = i + 1
		}
	}
	if whitespace > 0 {
		return whitespace
	}
	return target
}

func isSentenceEnd(r rune) bool {
	return strings.ContainsRune(".!?\n", r)
}
