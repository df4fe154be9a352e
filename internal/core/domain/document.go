package domain

// Document is one source file after text extraction. Immutable once loaded;
// only the chunker consumes it.
type Document struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Text string `json:"text"`
}

// Passage is a fixed-size overlapping slice of a document, the unit of
// retrieval. Offsets are rune positions into the extracted text.
type Passage struct {
	ID       string `json:"id"`
	Document string `json:"document"`
	Text     string `json:"text"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
}
