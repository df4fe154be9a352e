package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/mvporto/fii-rag/internal/core/domain"
	"github.com/mvporto/fii-rag/internal/core/ports"
)

// Evaluator scores a generated answer against the question and the retrieved
// context with a fixed RAGAS-style rubric, using the language model as the
// grading oracle. Every metric is computed fresh per request; nothing is
// cached or shared across requests. It also generates a context-free baseline
// answer and compares the two on relevance.
type Evaluator struct {
	generator ports.AnswerGenerator
	scorer    ports.AnswerScorer
}

func NewEvaluator(generator ports.AnswerGenerator, scorer ports.AnswerScorer) *Evaluator {
	return &Evaluator{generator: generator, scorer: scorer}
}

func (e *Evaluator) Evaluate(
	ctx context.Context,
	question, answerText string,
	contexts []domain.RetrievedPassage,
) (*domain.Evaluation, error) {
	contextBlock := joinContexts(contexts)

	scores := domain.EvaluationScore{}
	metricPrompts := map[string]string{
		domain.MetricFaithfulness:     faithfulnessPrompt(answerText, contextBlock),
		domain.MetricAnswerRelevance:  relevancePrompt(question, answerText),
		domain.MetricContextPrecision: contextPrecisionPrompt(question, contextBlock),
	}
	for metric, prompt := range metricPrompts {
		score, err := e.scorer.Score(ctx, prompt)
		if err != nil {
			return nil, domain.WrapError(domain.ErrEvaluation, "score "+metric, err)
		}
		scores[metric] = score
	}

	baselineAnswer, err := e.generator.GeneratePlain(ctx, question)
	if err != nil {
		return nil, domain.WrapError(domain.ErrEvaluation, "baseline answer", err)
	}
	baselineRelevance, err := e.scorer.Score(ctx, relevancePrompt(question, baselineAnswer))
	if err != nil {
		return nil, domain.WrapError(domain.ErrEvaluation, "score baseline relevance", err)
	}

	interpretation := make(map[string]string, len(scores))
	for metric, score := range scores {
		interpretation[metric] = interpretScore(metric, score)
	}

	return &domain.Evaluation{
		Scores:         scores,
		Interpretation: interpretation,
		Baseline: domain.BaselineEvaluation{
			Answer:         baselineAnswer,
			Relevance:      baselineRelevance,
			Interpretation: interpretScore(domain.MetricAnswerRelevance, baselineRelevance),
		},
		Comparison:     compareWithBaseline(scores, baselineRelevance),
		Recommendation: recommend(scores, baselineRelevance),
	}, nil
}

// Prompt builders are pure so the rubric is testable without an oracle.

func faithfulnessPrompt(answer, contextBlock string) string {
	return fmt.Sprintf(`You are grading an answer for faithfulness.
Rate from 0 to 1 how well every factual claim in the answer is supported by the context. 1 means fully supported, 0 means unsupported or contradicted.
Return strict JSON: {"score": <number>}. No other text.

Context:
%s

Answer:
%s`, contextBlock, answer)
}

func relevancePrompt(question, answer string) string {
	return fmt.Sprintf(`You are grading an answer for relevance.
Rate from 0 to 1 how directly the answer addresses the question. Ignore whether it is factually correct.
Return strict JSON: {"score": <number>}. No other text.

Question:
%s

Answer:
%s`, question, answer)
}

func contextPrecisionPrompt(question, contextBlock string) string {
	return fmt.Sprintf(`You are grading retrieved context for precision.
Rate from 0 to 1 what fraction of the context passages are actually useful for answering the question.
Return strict JSON: {"score": <number>}. No other text.

Question:
%s

Context:
%s`, question, contextBlock)
}

func joinContexts(contexts []domain.RetrievedPassage) string {
	parts := make([]string, 0, len(contexts))
	for _, hit := range contexts {
		parts = append(parts, hit.Passage.Text)
	}
	return strings.Join(parts, "\n\n")
}

// Interpretation bands: >=0.8 excellent, >=0.6 good, >=0.4 moderate, else low.
func interpretScore(metric string, score float64) string {
	subject := map[string]string{
		domain.MetricFaithfulness:     "answer is grounded in the documents",
		domain.MetricAnswerRelevance:  "answer addresses the question",
		domain.MetricContextPrecision: "retrieved passages are relevant",
	}[metric]

	switch {
	case score >= 0.8:
		return "excellent - " + subject
	case score >= 0.6:
		return "good - " + subject + " for the most part"
	case score >= 0.4:
		return "moderate - " + subject + " only partially"
	default:
		return "low - " + subject + " poorly, treat with caution"
	}
}

func compareWithBaseline(scores domain.EvaluationScore, baselineRelevance float64) string {
	ragRelevance := scores[domain.MetricAnswerRelevance]
	switch {
	case ragRelevance > baselineRelevance:
		return fmt.Sprintf("grounded answer beats the context-free baseline on relevance (%.3f vs %.3f)", ragRelevance, baselineRelevance)
	case baselineRelevance > ragRelevance:
		return fmt.Sprintf("context-free baseline beats the grounded answer on relevance (%.3f vs %.3f)", baselineRelevance, ragRelevance)
	default:
		return fmt.Sprintf("grounded answer and baseline are equally relevant (%.3f)", ragRelevance)
	}
}

func recommend(scores domain.EvaluationScore, baselineRelevance float64) string {
	var notes []string
	if scores[domain.MetricFaithfulness] < 0.6 {
		notes = append(notes, "improve document quality or adjust chunking")
	}
	if scores[domain.MetricAnswerRelevance] < 0.6 {
		notes = append(notes, "improve the answer prompt or the retriever")
	}
	if baselineRelevance > scores[domain.MetricAnswerRelevance]+0.2 {
		notes = append(notes, "consider improving the retrieval strategy")
	}
	if scores[domain.MetricContextPrecision] < 0.6 {
		notes = append(notes, "adjust the chunking or embedding setup")
	}
	if len(notes) == 0 {
		return "system performing well - keep the current configuration"
	}
	return strings.Join(notes, " | ")
}
