package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/mvporto/fii-rag/internal/config"
	"github.com/mvporto/fii-rag/internal/core/domain"
	"github.com/mvporto/fii-rag/internal/core/ports"
	"github.com/mvporto/fii-rag/internal/observability/metrics"
)

const serviceName = "fii-rag-api"

// llmWarning flags answers produced without document grounding.
const llmWarning = "answer generated without consulting the fund documents; it may contain outdated or invented figures"

type Router struct {
	cfg       config.Config
	questions ports.QuestionService
	metrics   *metrics.HTTPServerMetrics
}

func NewRouter(cfg config.Config, questions ports.QuestionService, m *metrics.HTTPServerMetrics) *Router {
	return &Router{
		cfg:       cfg,
		questions: questions,
		metrics:   m,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", rt.health)
	mux.HandleFunc("/llm", rt.answerPlain)
	mux.HandleFunc("/rag", rt.answerCited)
	mux.HandleFunc("/evaluate", rt.answerEvaluated)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.cfg.MaxConcurrent, 50*time.Millisecond)
	handler = rateLimitMiddleware(handler, rt.cfg.RateLimitRPS, rt.cfg.RateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"endpoints": map[string]string{
			"/llm":      "answer from the model alone, no documents",
			"/rag":      "answer grounded in the fund documents, with citations",
			"/evaluate": "grounded answer plus automated quality scores",
		},
	})
}

func (rt *Router) answerPlain(w http.ResponseWriter, r *http.Request) {
	rt.answer(w, r, func(question string) (*domain.Answer, error) {
		return rt.questions.AnswerPlain(r.Context(), question)
	})
}

func (rt *Router) answerCited(w http.ResponseWriter, r *http.Request) {
	rt.answer(w, r, func(question string) (*domain.Answer, error) {
		return rt.questions.AnswerCited(r.Context(), question, rt.cfg.RAGTopK)
	})
}

func (rt *Router) answerEvaluated(w http.ResponseWriter, r *http.Request) {
	rt.answer(w, r, func(question string) (*domain.Answer, error) {
		return rt.questions.AnswerEvaluated(r.Context(), question, rt.cfg.RAGTopK)
	})
}

func (rt *Router) answer(w http.ResponseWriter, r *http.Request, serve func(question string) (*domain.Answer, error)) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}

	start := time.Now()
	answer, err := serve(question)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	elapsed := time.Since(start)

	if rt.metrics != nil {
		rt.metrics.RecordAnswer(serviceName, methodName(answer.Mode), len(answer.Citations), elapsed)
		if answer.EvaluationError != "" {
			rt.metrics.RecordEvaluationFailure(serviceName)
		}
	}

	writeJSON(w, http.StatusOK, newAnswerResponse(question, answer, elapsed))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
