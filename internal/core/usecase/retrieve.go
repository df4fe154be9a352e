package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mvporto/fii-rag/internal/core/domain"
	"github.com/mvporto/fii-rag/internal/core/ports"
)

const DefaultTopK = 4

// Retriever owns the corpus lifecycle: it builds the passage index at most
// once per corpus signature, reuses a persisted snapshot when one matches,
// and rebuilds wholesale when the corpus changes. After a build the index is
// read-shared; only the build itself is serialized.
type Retriever struct {
	corpus    ports.CorpusSource
	chunker   ports.Chunker
	embedder  ports.Embedder
	index     ports.PassageIndex
	snapshots ports.IndexSnapshotStore
	logger    *slog.Logger

	// mu serializes builds; concurrent cold-start requests collapse into a
	// single build, with late arrivals waiting on the in-flight one.
	mu       sync.Mutex
	readySig string

	buildObserver func(duration time.Duration, err error)
}

// SetBuildObserver registers a callback invoked after every full build
// (snapshot installs are not builds). Set it before the server starts
// serving; it is not synchronized with in-flight requests.
func (r *Retriever) SetBuildObserver(fn func(duration time.Duration, err error)) {
	r.buildObserver = fn
}

func NewRetriever(
	corpus ports.CorpusSource,
	chunker ports.Chunker,
	embedder ports.Embedder,
	index ports.PassageIndex,
	snapshots ports.IndexSnapshotStore,
	logger *slog.Logger,
) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{
		corpus:    corpus,
		chunker:   chunker,
		embedder:  embedder,
		index:     index,
		snapshots: snapshots,
		logger:    logger,
	}
}

// EnsureReady is idempotent: with an unchanged corpus the second call is a
// signature comparison and nothing more.
func (r *Retriever) EnsureReady(ctx context.Context) error {
	signature, err := r.corpus.Signature(ctx)
	if err != nil {
		return fmt.Errorf("corpus signature: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.readySig == signature {
		return nil
	}
	return r.buildLocked(ctx, signature)
}

// TryWarm loads a persisted snapshot if one is valid for the current corpus,
// and does nothing otherwise. It never triggers an embedding pass, so it is
// safe to call at process start.
func (r *Retriever) TryWarm(ctx context.Context) (bool, error) {
	signature, err := r.corpus.Signature(ctx)
	if err != nil {
		return false, fmt.Errorf("corpus signature: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.readySig == signature {
		return true, nil
	}

	passages, vectors, ok, err := r.snapshots.Load(ctx, signature)
	if err != nil || !ok {
		return false, err
	}
	if err := r.index.Replace(ctx, passages, vectors); err != nil {
		return false, fmt.Errorf("install snapshot: %w", err)
	}
	r.readySig = signature
	r.logger.Info("index_snapshot_loaded", "passages", len(passages))
	return true, nil
}

func (r *Retriever) buildLocked(ctx context.Context, signature string) error {
	if passages, vectors, ok, err := r.snapshots.Load(ctx, signature); err != nil {
		r.logger.Warn("index_snapshot_load_failed", "error", err)
	} else if ok {
		if err := r.index.Replace(ctx, passages, vectors); err != nil {
			return fmt.Errorf("install snapshot: %w", err)
		}
		r.readySig = signature
		r.logger.Info("index_snapshot_loaded", "passages", len(passages))
		return nil
	}

	start := time.Now()
	err := r.buildFromCorpus(ctx, signature)
	if r.buildObserver != nil {
		r.buildObserver(time.Since(start), err)
	}
	return err
}

func (r *Retriever) buildFromCorpus(ctx context.Context, signature string) error {
	start := time.Now()
	docs, err := r.corpus.Load(ctx)
	if err != nil {
		return fmt.Errorf("load corpus: %w", err)
	}

	var passages []domain.Passage
	for _, doc := range docs {
		chunks, err := r.chunker.Chunk(doc)
		if err != nil {
			return fmt.Errorf("chunk %s: %w", doc.Name, err)
		}
		passages = append(passages, chunks...)
	}

	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
	}
	vectors, err := r.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed corpus: %w", err)
	}
	if len(vectors) != len(passages) {
		return domain.WrapError(domain.ErrEmbedding, "embed corpus",
			fmt.Errorf("vectors/passages mismatch: %d/%d", len(vectors), len(passages)))
	}

	if err := r.index.Replace(ctx, passages, vectors); err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	r.readySig = signature

	if err := r.snapshots.Save(ctx, signature, passages, vectors); err != nil {
		// A failed persist costs a rebuild on restart, nothing else.
		r.logger.Warn("index_snapshot_save_failed", "error", err)
	}

	r.logger.Info("index_built",
		"documents", len(docs),
		"passages", len(passages),
		"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
	)
	return nil
}

// Fetch embeds the question and returns the top-k most similar passages.
// A not-yet-built index is recovered by building, not surfaced.
func (r *Retriever) Fetch(ctx context.Context, question string, k int) ([]domain.RetrievedPassage, error) {
	if k <= 0 {
		k = DefaultTopK
	}

	if err := r.EnsureReady(ctx); err != nil {
		return nil, domain.WrapError(domain.ErrNotReady, "fetch", err)
	}

	queryVector, err := r.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	results, err := r.index.Query(ctx, queryVector, k)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	return results, nil
}
