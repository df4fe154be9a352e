package index

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mvporto/fii-rag/internal/core/domain"
)

// SnapshotStore persists a built index to a single JSON file so a restart
// with an unchanged corpus skips the embedding pass. A snapshot whose
// signature no longer matches the corpus is treated as a cache miss.
type SnapshotStore struct {
	path string
}

func NewSnapshotStore(path string) *SnapshotStore {
	return &SnapshotStore{path: path}
}

type snapshotFile struct {
	Signature string           `json:"signature"`
	Dimension int              `json:"dimension"`
	SavedAt   time.Time        `json:"saved_at"`
	Passages  []domain.Passage `json:"passages"`
	Vectors   [][]float32      `json:"vectors"`
}

func (s *SnapshotStore) Load(_ context.Context, signature string) ([]domain.Passage, [][]float32, bool, error) {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil, false, nil
	}
	if err != nil {
		return nil, nil, false, fmt.Errorf("read index snapshot: %w", err)
	}

	var file snapshotFile
	if err := json.Unmarshal(raw, &file); err != nil {
		// Corrupt snapshot is a cold start, not a failure.
		return nil, nil, false, nil
	}
	if file.Signature != signature || len(file.Passages) == 0 || len(file.Passages) != len(file.Vectors) {
		return nil, nil, false, nil
	}
	return file.Passages, file.Vectors, true, nil
}

func (s *SnapshotStore) Save(_ context.Context, signature string, passages []domain.Passage, vectors [][]float32) error {
	dimension := 0
	if len(vectors) > 0 {
		dimension = len(vectors[0])
	}
	raw, err := json.Marshal(snapshotFile{
		Signature: signature,
		Dimension: dimension,
		SavedAt:   time.Now().UTC(),
		Passages:  passages,
		Vectors:   vectors,
	})
	if err != nil {
		return fmt.Errorf("marshal index snapshot: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create snapshot dir: %w", err)
		}
	}

	// Write-then-rename keeps readers off half-written snapshots.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write index snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("install index snapshot: %w", err)
	}
	return nil
}
