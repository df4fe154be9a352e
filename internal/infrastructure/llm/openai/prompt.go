package openai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// buildCitedPrompt combines the question with the numbered context block.
// The block is the only channel through which the model learns the citation
// numbering; nothing downstream verifies the markers it emits.
func buildCitedPrompt(question, contextBlock string) string {
	return fmt.Sprintf(`Answer the question using only the numbered documents below.
Cite your sources inline with their numbers, like [1] or [2].
If the documents do not contain the answer, reply that there is insufficient information in the provided documents. Do not invent facts.

Documents:
%s
Question: %s

Answer (with citations):`, contextBlock, question)
}

var numberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// parseScore extracts a [0,1] value from a scoring reply. Models asked for
// strict JSON still occasionally wrap it in prose, so fall back to the first
// number in the text.
func parseScore(raw string) (float64, error) {
	var payload struct {
		Score *float64 `json:"score"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &payload); err == nil && payload.Score != nil {
		return clampUnit(*payload.Score), nil
	}

	match := numberPattern.FindString(raw)
	if match == "" {
		return 0, fmt.Errorf("no score in reply: %q", truncate(raw, 120))
	}
	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, fmt.Errorf("parse score %q: %w", match, err)
	}
	return clampUnit(value), nil
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
