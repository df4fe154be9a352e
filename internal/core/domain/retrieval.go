package domain

type Mode string

const (
	ModePlain     Mode = "plain"
	ModeCited     Mode = "cited"
	ModeEvaluated Mode = "evaluated"
)

// RetrievedPassage pairs a passage with its similarity to the query.
type RetrievedPassage struct {
	Passage Passage `json:"passage"`
	Score   float64 `json:"score"`
}

// Citation is a request-local 1-based reference into the retrieved passages.
// Numbering follows retrieval order, so the most similar passage is [1].
type Citation struct {
	Number    int    `json:"number"`
	Source    string `json:"source"`
	Excerpt   string `json:"excerpt"`
	PassageID string `json:"passage_id"`
}

// Metric names reported by the evaluator.
const (
	MetricFaithfulness     = "faithfulness"
	MetricAnswerRelevance  = "answer_relevance"
	MetricContextPrecision = "context_precision"
)

// EvaluationScore maps metric name to a value in [0,1].
type EvaluationScore map[string]float64

// BaselineEvaluation scores a context-free answer to the same question, the
// hallucination-prone reference the grounded answer is compared against.
type BaselineEvaluation struct {
	Answer         string  `json:"answer"`
	Relevance      float64 `json:"relevance"`
	Interpretation string  `json:"interpretation"`
}

type Evaluation struct {
	Scores         EvaluationScore    `json:"scores"`
	Interpretation map[string]string  `json:"interpretation"`
	Baseline       BaselineEvaluation `json:"baseline"`
	Comparison     string             `json:"comparison"`
	Recommendation string             `json:"recommendation"`
}

// Answer is the per-request response payload. Evaluation is nil unless the
// request ran in evaluated mode and the scoring oracle succeeded;
// EvaluationError carries the failure without discarding the answer.
type Answer struct {
	Text            string      `json:"text"`
	Mode            Mode        `json:"mode"`
	Citations       []Citation  `json:"citations"`
	Evaluation      *Evaluation `json:"evaluation,omitempty"`
	EvaluationError string      `json:"evaluation_error,omitempty"`
}
