package pdfdir

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/mvporto/fii-rag/internal/core/domain"
)

// Source serves the fund disclosure corpus from a directory of PDF files.
// The directory is the unit of truth: its file listing (names and sizes)
// fingerprints the corpus, and any change forces a full re-index.
type Source struct {
	dir    string
	logger *slog.Logger
}

func New(dir string, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{dir: dir, logger: logger}
}

func (s *Source) Signature(_ context.Context) (string, error) {
	files, err := s.listPDFs()
	if err != nil {
		return "", err
	}

	hash := sha256.New()
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", f, err)
		}
		fmt.Fprintf(hash, "%s:%d\n", filepath.Base(f), info.Size())
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

func (s *Source) Load(ctx context.Context) ([]domain.Document, error) {
	files, err := s.listPDFs()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "load corpus",
			fmt.Errorf("no PDF files in %s", s.dir))
	}

	docs := make([]domain.Document, 0, len(files))
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := extractText(path)
		if err != nil {
			// One broken disclosure must not sink the whole corpus.
			s.logger.Warn("pdf_extract_failed", "file", filepath.Base(path), "error", err)
			continue
		}
		if text == "" {
			s.logger.Warn("pdf_empty", "file", filepath.Base(path))
			continue
		}
		docs = append(docs, domain.Document{
			Name: filepath.Base(path),
			Path: path,
			Text: text,
		})
		s.logger.Info("pdf_loaded", "file", filepath.Base(path), "chars", len(text))
	}

	if len(docs) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "load corpus",
			errors.New("no document yielded extractable text"))
	}
	return docs, nil
}

func (s *Source) listPDFs() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read corpus dir %s: %w", s.dir, err)
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		files = append(files, filepath.Join(s.dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func extractText(path string) (string, error) {
	file, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer file.Close()

	var builder strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if builder.Len() > 0 {
			builder.WriteString("\n\n")
		}
		builder.WriteString(text)
	}
	return builder.String(), nil
}
