package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mvporto/fii-rag/internal/core/domain"
)

type generatorFake struct {
	plainAnswer string
	plainErr    error
	citedAnswer string
	citedErr    error
	plainCalls  int
	lastContext string
}

func (f *generatorFake) GeneratePlain(_ context.Context, _ string) (string, error) {
	f.plainCalls++
	return f.plainAnswer, f.plainErr
}

func (f *generatorFake) GenerateCited(_ context.Context, _ string, contextBlock string) (string, error) {
	f.lastContext = contextBlock
	return f.citedAnswer, f.citedErr
}

// scorerFake resolves each prompt to a score by substring match, so tests can
// pin different values per metric.
type scorerFake struct {
	byFragment map[string]float64
	err        error
	calls      int
}

func (f *scorerFake) Score(_ context.Context, prompt string) (float64, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	for fragment, score := range f.byFragment {
		if strings.Contains(prompt, fragment) {
			return score, nil
		}
	}
	return 0.5, nil
}

func TestEvaluateScoresAllMetrics(t *testing.T) {
	generator := &generatorFake{plainAnswer: "baseline answer"}
	scorer := &scorerFake{byFragment: map[string]float64{
		"faithfulness": 0.9,
		"baseline answer": 0.3,
	}}
	evaluator := NewEvaluator(generator, scorer)

	result, err := evaluator.Evaluate(context.Background(), "What was the yield?", "0.75% in the month", []domain.RetrievedPassage{
		{Passage: domain.Passage{Text: "Dividend yield of 0.75%."}},
	})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	for _, metric := range []string{domain.MetricFaithfulness, domain.MetricAnswerRelevance, domain.MetricContextPrecision} {
		if _, ok := result.Scores[metric]; !ok {
			t.Errorf("missing score for %s", metric)
		}
		if result.Interpretation[metric] == "" {
			t.Errorf("missing interpretation for %s", metric)
		}
	}
	if result.Scores[domain.MetricFaithfulness] != 0.9 {
		t.Errorf("faithfulness = %v, want 0.9", result.Scores[domain.MetricFaithfulness])
	}
	if generator.plainCalls != 1 {
		t.Errorf("expected exactly one baseline generation, got %d", generator.plainCalls)
	}
	if result.Baseline.Answer != "baseline answer" || result.Baseline.Relevance != 0.3 {
		t.Errorf("baseline = %+v", result.Baseline)
	}
	// 3 metrics + baseline relevance.
	if scorer.calls != 4 {
		t.Errorf("scorer calls = %d, want 4", scorer.calls)
	}
}

func TestEvaluateScorerErrorIsEvaluationKind(t *testing.T) {
	generator := &generatorFake{plainAnswer: "x"}
	scorer := &scorerFake{err: errors.New("oracle timeout")}
	evaluator := NewEvaluator(generator, scorer)

	result, err := evaluator.Evaluate(context.Background(), "q", "a", nil)
	if result != nil {
		t.Fatalf("expected nil result on failure, got %+v", result)
	}
	if !domain.IsKind(err, domain.ErrEvaluation) {
		t.Fatalf("expected evaluation error kind, got %v", err)
	}
}

func TestEvaluateBaselineErrorIsEvaluationKind(t *testing.T) {
	generator := &generatorFake{plainErr: errors.New("oracle down")}
	evaluator := NewEvaluator(generator, &scorerFake{})

	_, err := evaluator.Evaluate(context.Background(), "q", "a", nil)
	if !domain.IsKind(err, domain.ErrEvaluation) {
		t.Fatalf("expected evaluation error kind, got %v", err)
	}
}

func TestInterpretScoreBands(t *testing.T) {
	cases := []struct {
		score float64
		want  string
	}{
		{0.95, "excellent"},
		{0.8, "excellent"},
		{0.7, "good"},
		{0.6, "good"},
		{0.5, "moderate"},
		{0.4, "moderate"},
		{0.1, "low"},
	}
	for _, tc := range cases {
		got := interpretScore(domain.MetricFaithfulness, tc.score)
		if !strings.HasPrefix(got, tc.want) {
			t.Errorf("interpretScore(%.2f) = %q, want prefix %q", tc.score, got, tc.want)
		}
	}
}

func TestCompareWithBaseline(t *testing.T) {
	scores := domain.EvaluationScore{domain.MetricAnswerRelevance: 0.8}
	if got := compareWithBaseline(scores, 0.5); !strings.Contains(got, "beats the context-free baseline") {
		t.Errorf("rag ahead: %q", got)
	}
	if got := compareWithBaseline(scores, 0.9); !strings.Contains(got, "baseline beats the grounded answer") {
		t.Errorf("baseline ahead: %q", got)
	}
	if got := compareWithBaseline(scores, 0.8); !strings.Contains(got, "equally relevant") {
		t.Errorf("tied: %q", got)
	}
}

func TestRecommend(t *testing.T) {
	healthy := domain.EvaluationScore{
		domain.MetricFaithfulness:     0.9,
		domain.MetricAnswerRelevance:  0.9,
		domain.MetricContextPrecision: 0.9,
	}
	if got := recommend(healthy, 0.5); !strings.Contains(got, "performing well") {
		t.Errorf("healthy scores: %q", got)
	}

	weak := domain.EvaluationScore{
		domain.MetricFaithfulness:     0.3,
		domain.MetricAnswerRelevance:  0.3,
		domain.MetricContextPrecision: 0.3,
	}
	got := recommend(weak, 0.9)
	for _, fragment := range []string{"chunking", "retriever", "retrieval strategy"} {
		if !strings.Contains(got, fragment) {
			t.Errorf("weak scores missing %q in %q", fragment, got)
		}
	}
	if !strings.Contains(got, " | ") {
		t.Errorf("multiple notes must be joined: %q", got)
	}
}
