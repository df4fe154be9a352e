package ports

import (
	"context"

	"github.com/mvporto/fii-rag/internal/core/domain"
)

// QuestionService is the inbound contract for the three answer modes.
type QuestionService interface {
	AnswerPlain(ctx context.Context, question string) (*domain.Answer, error)
	AnswerCited(ctx context.Context, question string, limit int) (*domain.Answer, error)
	AnswerEvaluated(ctx context.Context, question string, limit int) (*domain.Answer, error)
}
