package ports

import (
	"context"

	"github.com/mvporto/fii-rag/internal/core/domain"
)

// CorpusSource lists and loads the document corpus.
type CorpusSource interface {
	// Signature fingerprints the current document set (file names and sizes)
	// so an unchanged corpus is never re-indexed.
	Signature(ctx context.Context) (string, error)
	Load(ctx context.Context) ([]domain.Document, error)
}

// Chunker splits an extracted document into overlapping passages.
type Chunker interface {
	Chunk(doc domain.Document) ([]domain.Passage, error)
}

// Embedder builds vectors for passages and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// PassageIndex is the similarity index over passage embeddings. Replace swaps
// the whole index atomically; readers see either the old or the new set.
type PassageIndex interface {
	Replace(ctx context.Context, passages []domain.Passage, vectors [][]float32) error
	Query(ctx context.Context, queryVector []float32, k int) ([]domain.RetrievedPassage, error)
}

// IndexSnapshotStore persists a built index keyed by corpus signature.
type IndexSnapshotStore interface {
	Load(ctx context.Context, signature string) ([]domain.Passage, [][]float32, bool, error)
	Save(ctx context.Context, signature string, passages []domain.Passage, vectors [][]float32) error
}

// AnswerGenerator produces the user-facing answer text.
type AnswerGenerator interface {
	// GeneratePlain sends the bare question, with no retrieved context.
	GeneratePlain(ctx context.Context, question string) (string, error)
	// GenerateCited sends the question plus the numbered context block and
	// instructs the model to answer only from it, citing [i] markers.
	GenerateCited(ctx context.Context, question, contextBlock string) (string, error)
}

// AnswerScorer turns a scoring prompt into a single value in [0,1].
type AnswerScorer interface {
	Score(ctx context.Context, prompt string) (float64, error)
}

// AnswerRecorder persists the answer audit log. Recording is best-effort and
// must never fail a request.
type AnswerRecorder interface {
	Record(ctx context.Context, rec domain.AnswerRecord) error
}
