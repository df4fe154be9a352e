package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/mvporto/fii-rag/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*AnswerLogRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &AnswerLogRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestRecordInsertsNullScoresForUnevaluatedModes(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("INSERT INTO answer_log").
		WithArgs("rec-1", "what was the yield?", string(domain.ModeCited), 42, 3,
			nil, nil, nil, 12.5, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Record(context.Background(), domain.AnswerRecord{
		ID:            "rec-1",
		Question:      "what was the yield?",
		Mode:          domain.ModeCited,
		AnswerChars:   42,
		CitationCount: 3,
		DurationMS:    12.5,
		CreatedAt:     time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRecordInsertsScoresForEvaluatedMode(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("INSERT INTO answer_log").
		WithArgs("rec-2", "q", string(domain.ModeEvaluated), 10, 2,
			0.9, 0.8, 0.7, 5.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Record(context.Background(), domain.AnswerRecord{
		ID:            "rec-2",
		Question:      "q",
		Mode:          domain.ModeEvaluated,
		AnswerChars:   10,
		CitationCount: 2,
		Scores: domain.EvaluationScore{
			domain.MetricFaithfulness:     0.9,
			domain.MetricAnswerRelevance:  0.8,
			domain.MetricContextPrecision: 0.7,
		},
		DurationMS: 5.0,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRecordWrapsInsertError(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("INSERT INTO answer_log").
		WillReturnError(errors.New("connection reset"))

	err := repo.Record(context.Background(), domain.AnswerRecord{ID: "rec-3", Mode: domain.ModePlain})
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestRecentByModeScansNullableScores(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	createdAt := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "question", "mode", "answer_chars", "citation_count",
		"faithfulness", "answer_relevance", "context_precision", "duration_ms", "created_at",
	}).
		AddRow("rec-1", "q1", string(domain.ModeEvaluated), 20, 2, 0.9, 0.8, 0.7, 4.2, createdAt).
		AddRow("rec-2", "q2", string(domain.ModeEvaluated), 15, 1, nil, nil, nil, 3.1, createdAt)

	mock.ExpectQuery("SELECT id, question, mode").
		WithArgs(string(domain.ModeEvaluated), 10).
		WillReturnRows(rows)

	records, err := repo.RecentByMode(context.Background(), domain.ModeEvaluated, 10)
	if err != nil {
		t.Fatalf("RecentByMode() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Scores[domain.MetricFaithfulness] != 0.9 {
		t.Errorf("first record scores = %v", records[0].Scores)
	}
	if records[1].Scores != nil {
		t.Errorf("null columns must yield nil scores, got %v", records[1].Scores)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
