package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mvporto/fii-rag/internal/core/domain"
	"github.com/mvporto/fii-rag/internal/core/ports"
)

// AnswerUseCase routes a question through one of the three pipeline modes.
// The only state shared between requests is the retriever's index.
type AnswerUseCase struct {
	retriever *Retriever
	generator ports.AnswerGenerator
	evaluator *Evaluator
	recorder  ports.AnswerRecorder
	logger    *slog.Logger
}

func NewAnswerUseCase(
	retriever *Retriever,
	generator ports.AnswerGenerator,
	evaluator *Evaluator,
	recorder ports.AnswerRecorder,
	logger *slog.Logger,
) *AnswerUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnswerUseCase{
		retriever: retriever,
		generator: generator,
		evaluator: evaluator,
		recorder:  recorder,
		logger:    logger,
	}
}

func (uc *AnswerUseCase) AnswerPlain(ctx context.Context, question string) (*domain.Answer, error) {
	start := time.Now()
	text, err := uc.generator.GeneratePlain(ctx, question)
	if err != nil {
		uc.logFailure(question, domain.ModePlain, "generator", err)
		return nil, err
	}

	answer := &domain.Answer{
		Text:      text,
		Mode:      domain.ModePlain,
		Citations: []domain.Citation{},
	}
	uc.record(ctx, question, answer, start)
	return answer, nil
}

func (uc *AnswerUseCase) AnswerCited(ctx context.Context, question string, limit int) (*domain.Answer, error) {
	start := time.Now()
	answer, _, err := uc.citedAnswer(ctx, question, limit)
	if err != nil {
		return nil, err
	}
	uc.record(ctx, question, answer, start)
	return answer, nil
}

func (uc *AnswerUseCase) AnswerEvaluated(ctx context.Context, question string, limit int) (*domain.Answer, error) {
	start := time.Now()
	answer, retrieved, err := uc.citedAnswer(ctx, question, limit)
	if err != nil {
		return nil, err
	}
	answer.Mode = domain.ModeEvaluated

	evaluation, err := uc.evaluator.Evaluate(ctx, question, answer.Text, retrieved)
	if err != nil {
		// A scoring failure must not discard the answer we already have.
		uc.logFailure(question, domain.ModeEvaluated, "evaluator", err)
		answer.EvaluationError = err.Error()
	} else {
		answer.Evaluation = evaluation
	}

	uc.record(ctx, question, answer, start)
	return answer, nil
}

func (uc *AnswerUseCase) citedAnswer(ctx context.Context, question string, limit int) (*domain.Answer, []domain.RetrievedPassage, error) {
	retrieved, err := uc.retriever.Fetch(ctx, question, limit)
	if err != nil {
		uc.logFailure(question, domain.ModeCited, "retriever", err)
		return nil, nil, err
	}

	citations, contextBlock := AssembleCitations(retrieved)
	text, err := uc.generator.GenerateCited(ctx, question, contextBlock)
	if err != nil {
		uc.logFailure(question, domain.ModeCited, "generator", err)
		return nil, nil, err
	}

	return &domain.Answer{
		Text:      text,
		Mode:      domain.ModeCited,
		Citations: citations,
	}, retrieved, nil
}

func (uc *AnswerUseCase) record(ctx context.Context, question string, answer *domain.Answer, start time.Time) {
	uc.logger.Info("question_answered",
		"mode", answer.Mode,
		"question_chars", len(question),
		"answer_chars", len(answer.Text),
		"citations", len(answer.Citations),
		"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
	)

	if uc.recorder == nil {
		return
	}
	rec := domain.AnswerRecord{
		ID:            uuid.NewString(),
		Question:      question,
		Mode:          answer.Mode,
		AnswerChars:   len(answer.Text),
		CitationCount: len(answer.Citations),
		DurationMS:    float64(time.Since(start).Microseconds()) / 1000.0,
		CreatedAt:     time.Now().UTC(),
	}
	if answer.Evaluation != nil {
		rec.Scores = answer.Evaluation.Scores
	}
	if err := uc.recorder.Record(ctx, rec); err != nil {
		uc.logger.Warn("answer_record_failed", "error", err)
	}
}

func (uc *AnswerUseCase) logFailure(question string, mode domain.Mode, component string, err error) {
	uc.logger.Error("pipeline_failure",
		"component", component,
		"mode", mode,
		"question", snippet(question, 80),
		"error", err,
	)
}

func snippet(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return fmt.Sprintf("%s...", string(runes[:limit]))
}
