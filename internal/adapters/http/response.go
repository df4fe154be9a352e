package httpadapter

import (
	"math"
	"time"

	"github.com/mvporto/fii-rag/internal/core/domain"
)

type citationPayload struct {
	Number  int    `json:"number"`
	Source  string `json:"source"`
	Excerpt string `json:"excerpt"`
}

type answerResponse struct {
	Question        string             `json:"question"`
	Answer          string             `json:"answer"`
	Method          string             `json:"method"`
	ProcessingTime  float64            `json:"processing_time"`
	Citations       []citationPayload  `json:"citations"`
	Evaluation      *domain.Evaluation `json:"evaluation,omitempty"`
	EvaluationError string             `json:"evaluation_error,omitempty"`
	Warning         string             `json:"warning,omitempty"`
}

func newAnswerResponse(question string, answer *domain.Answer, elapsed time.Duration) answerResponse {
	citations := make([]citationPayload, 0, len(answer.Citations))
	for _, c := range answer.Citations {
		citations = append(citations, citationPayload{
			Number:  c.Number,
			Source:  c.Source,
			Excerpt: c.Excerpt,
		})
	}

	resp := answerResponse{
		Question:        question,
		Answer:          answer.Text,
		Method:          methodName(answer.Mode),
		ProcessingTime:  math.Round(elapsed.Seconds()*1000) / 1000,
		Citations:       citations,
		Evaluation:      answer.Evaluation,
		EvaluationError: answer.EvaluationError,
	}
	if answer.Mode == domain.ModePlain {
		resp.Warning = llmWarning
	}
	return resp
}

func methodName(mode domain.Mode) string {
	switch mode {
	case domain.ModePlain:
		return "llm"
	case domain.ModeCited:
		return "rag"
	case domain.ModeEvaluated:
		return "rag_with_evaluation"
	default:
		return string(mode)
	}
}
