package domain

import "time"

// AnswerRecord is one row of the optional answer audit log.
type AnswerRecord struct {
	ID            string
	Question      string
	Mode          Mode
	AnswerChars   int
	CitationCount int
	Scores        EvaluationScore
	DurationMS    float64
	CreatedAt     time.Time
}
