package types

// DuplicateReason explains why a candidate was flagged as a duplicate.
type DuplicateReason string

const (
	ReasonURL     DuplicateReason = "url"
	ReasonContent DuplicateReason = "content"
	ReasonNone    DuplicateReason = "none"
)

// Match is one historical article that resembles the candidate.
type Match struct {
	ArticleID  string  `json:"article_id"`
	Title      string  `json:"title"`
	Similarity float64 `json:"similarity"`
}

// Verdict is the outcome of a duplicate check. When the reason is
// ReasonContent, Matches holds the similar articles sorted by
// descending similarity.
type Verdict struct {
	IsDuplicate bool            `json:"is_duplicate"`
	Reason      DuplicateReason `json:"reason"`
	Matches     []Match         `json:"matches,omitempty"`
}
