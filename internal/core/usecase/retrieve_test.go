package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/mvporto/fii-rag/internal/core/domain"
)

type corpusFake struct {
	mu        sync.Mutex
	signature string
	docs      []domain.Document
	loadCalls int
	loadErr   error
}

func (f *corpusFake) Signature(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signature, nil
}

func (f *corpusFake) Load(context.Context) ([]domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loadCalls++
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.docs, nil
}

func (f *corpusFake) setSignature(sig string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signature = sig
}

type chunkerFake struct{}

func (chunkerFake) Chunk(doc domain.Document) ([]domain.Passage, error) {
	return []domain.Passage{{ID: doc.Name + ":0", Document: doc.Name, Text: doc.Text, End: len(doc.Text)}}, nil
}

type retrieveEmbedderFake struct {
	queryErr error
}

func (f *retrieveEmbedderFake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (f *retrieveEmbedderFake) EmbedQuery(context.Context, string) ([]float32, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return []float32{1, 0}, nil
}

type indexFake struct {
	replaceCalls atomic.Int64
	mu           sync.Mutex
	passages     []domain.Passage
}

func (f *indexFake) Replace(_ context.Context, passages []domain.Passage, _ [][]float32) error {
	f.replaceCalls.Add(1)
	f.mu.Lock()
	f.passages = passages
	f.mu.Unlock()
	return nil
}

func (f *indexFake) Query(_ context.Context, _ []float32, k int) ([]domain.RetrievedPassage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.passages == nil {
		return nil, domain.WrapError(domain.ErrEmptyIndex, "index query", errors.New("no build"))
	}
	out := make([]domain.RetrievedPassage, 0, k)
	for i, p := range f.passages {
		if i >= k {
			break
		}
		out = append(out, domain.RetrievedPassage{Passage: p, Score: 1 - float64(i)*0.1})
	}
	return out, nil
}

type snapshotFake struct {
	mu        sync.Mutex
	signature string
	passages  []domain.Passage
	vectors   [][]float32
	saves     int
}

func (f *snapshotFake) Load(_ context.Context, signature string) ([]domain.Passage, [][]float32, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.signature != signature || f.passages == nil {
		return nil, nil, false, nil
	}
	return f.passages, f.vectors, true, nil
}

func (f *snapshotFake) Save(_ context.Context, signature string, passages []domain.Passage, vectors [][]float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signature = signature
	f.passages = passages
	f.vectors = vectors
	f.saves++
	return nil
}

func newTestRetriever(corpus *corpusFake, idx *indexFake, snaps *snapshotFake) *Retriever {
	return NewRetriever(corpus, chunkerFake{}, &retrieveEmbedderFake{}, idx, snaps, nil)
}

func TestEnsureReadyBuildsOnce(t *testing.T) {
	corpus := &corpusFake{signature: "sig-1", docs: []domain.Document{{Name: "a.pdf", Text: "text"}}}
	idx := &indexFake{}
	snaps := &snapshotFake{}
	retriever := newTestRetriever(corpus, idx, snaps)

	for i := 0; i < 2; i++ {
		if err := retriever.EnsureReady(context.Background()); err != nil {
			t.Fatalf("EnsureReady() call %d error = %v", i, err)
		}
	}
	if got := idx.replaceCalls.Load(); got != 1 {
		t.Fatalf("unchanged corpus must build exactly once, got %d builds", got)
	}
	if snaps.saves != 1 {
		t.Fatalf("expected one snapshot save, got %d", snaps.saves)
	}
}

func TestEnsureReadyRebuildsWhenCorpusChanges(t *testing.T) {
	corpus := &corpusFake{signature: "sig-1", docs: []domain.Document{{Name: "a.pdf", Text: "text"}}}
	idx := &indexFake{}
	retriever := newTestRetriever(corpus, idx, &snapshotFake{})

	if err := retriever.EnsureReady(context.Background()); err != nil {
		t.Fatalf("EnsureReady() error = %v", err)
	}
	corpus.setSignature("sig-2")
	if err := retriever.EnsureReady(context.Background()); err != nil {
		t.Fatalf("EnsureReady() after change error = %v", err)
	}
	if got := idx.replaceCalls.Load(); got != 2 {
		t.Fatalf("changed corpus must trigger a full rebuild, got %d builds", got)
	}
}

func TestEnsureReadyUsesValidSnapshot(t *testing.T) {
	corpus := &corpusFake{signature: "sig-1", docs: []domain.Document{{Name: "a.pdf", Text: "text"}}}
	idx := &indexFake{}
	snaps := &snapshotFake{
		signature: "sig-1",
		passages:  []domain.Passage{{ID: "a.pdf:0", Document: "a.pdf", Text: "cached"}},
		vectors:   [][]float32{{1, 0}},
	}
	retriever := newTestRetriever(corpus, idx, snaps)

	if err := retriever.EnsureReady(context.Background()); err != nil {
		t.Fatalf("EnsureReady() error = %v", err)
	}
	if corpus.loadCalls != 0 {
		t.Fatalf("a valid snapshot must skip the corpus load, got %d loads", corpus.loadCalls)
	}
	if got := idx.replaceCalls.Load(); got != 1 {
		t.Fatalf("expected the snapshot installed once, got %d", got)
	}
}

func TestConcurrentColdStartCollapsesIntoOneBuild(t *testing.T) {
	corpus := &corpusFake{signature: "sig-1", docs: []domain.Document{{Name: "a.pdf", Text: "text"}}}
	idx := &indexFake{}
	retriever := newTestRetriever(corpus, idx, &snapshotFake{})

	const n = 16
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results, err := retriever.Fetch(context.Background(), "question", 2)
			if err == nil && len(results) == 0 {
				err = errors.New("no results")
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent Fetch() error = %v", err)
		}
	}
	if got := idx.replaceCalls.Load(); got != 1 {
		t.Fatalf("%d cold-start requests must collapse into one build, got %d", n, got)
	}
}

func TestFetchUsesDefaultTopK(t *testing.T) {
	docs := make([]domain.Document, 0, 6)
	for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
		docs = append(docs, domain.Document{Name: name, Text: name})
	}
	corpus := &corpusFake{signature: "sig-1", docs: docs}
	retriever := newTestRetriever(corpus, &indexFake{}, &snapshotFake{})

	results, err := retriever.Fetch(context.Background(), "question", 0)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(results) != DefaultTopK {
		t.Fatalf("expected default k=%d results, got %d", DefaultTopK, len(results))
	}
}

func TestFetchEmbeddingErrorPropagates(t *testing.T) {
	corpus := &corpusFake{signature: "sig-1", docs: []domain.Document{{Name: "a.pdf", Text: "text"}}}
	embedder := &retrieveEmbedderFake{queryErr: domain.WrapError(domain.ErrEmbedding, "embed", errors.New("oracle down"))}
	retriever := NewRetriever(corpus, chunkerFake{}, embedder, &indexFake{}, &snapshotFake{}, nil)

	_, err := retriever.Fetch(context.Background(), "question", 3)
	if !domain.IsKind(err, domain.ErrEmbedding) {
		t.Fatalf("expected embedding error surfaced without retry, got %v", err)
	}
}

func TestFetchCorpusFailureIsNotReady(t *testing.T) {
	corpus := &corpusFake{signature: "sig-1", loadErr: errors.New("disk gone")}
	retriever := newTestRetriever(corpus, &indexFake{}, &snapshotFake{})

	_, err := retriever.Fetch(context.Background(), "question", 3)
	if !domain.IsKind(err, domain.ErrNotReady) {
		t.Fatalf("expected not-ready error, got %v", err)
	}
}

func TestTryWarmDoesNotBuild(t *testing.T) {
	corpus := &corpusFake{signature: "sig-1", docs: []domain.Document{{Name: "a.pdf", Text: "text"}}}
	idx := &indexFake{}
	retriever := newTestRetriever(corpus, idx, &snapshotFake{})

	warmed, err := retriever.TryWarm(context.Background())
	if err != nil {
		t.Fatalf("TryWarm() error = %v", err)
	}
	if warmed {
		t.Fatalf("no snapshot present, warm must report false")
	}
	if corpus.loadCalls != 0 || idx.replaceCalls.Load() != 0 {
		t.Fatalf("TryWarm must never build: loads=%d builds=%d", corpus.loadCalls, idx.replaceCalls.Load())
	}
}

func TestTryWarmInstallsMatchingSnapshot(t *testing.T) {
	corpus := &corpusFake{signature: "sig-1"}
	idx := &indexFake{}
	snaps := &snapshotFake{
		signature: "sig-1",
		passages:  []domain.Passage{{ID: "a.pdf:0", Document: "a.pdf", Text: "cached"}},
		vectors:   [][]float32{{1, 0}},
	}
	retriever := newTestRetriever(corpus, idx, snaps)

	warmed, err := retriever.TryWarm(context.Background())
	if err != nil {
		t.Fatalf("TryWarm() error = %v", err)
	}
	if !warmed {
		t.Fatalf("expected warm start from matching snapshot")
	}
	if idx.replaceCalls.Load() != 1 {
		t.Fatalf("expected snapshot installed")
	}
}
