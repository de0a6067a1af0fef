package types

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// ArticleStatus tracks where an article sits in the review workflow.
type ArticleStatus string

const (
	StatusPendingReview ArticleStatus = "pending_review"
	StatusApproved      ArticleStatus = "approved"
	StatusRejected      ArticleStatus = "rejected"
)

// Candidate is a raw feed item that has not been classified yet.
// It only lives for the duration of one pipeline pass.
type Candidate struct {
	Link        string    `json:"link"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Author      string    `json:"author,omitempty"`
	PublishedAt time.Time `json:"published_at"`
	Source      string    `json:"source"`
}

// Article is the persisted record of a classified candidate.
// The (OrgID, Link) pair is unique within the store.
type Article struct {
	ID          string        `json:"id"`
	OrgID       string        `json:"org_id"`
	Link        string        `json:"link"`
	Title       string        `json:"title"`
	Body        string        `json:"body"`
	Author      string        `json:"author,omitempty"`
	PublishedAt time.Time     `json:"published_at"`
	Embedding   []float32     `json:"-"`
	Score       float64       `json:"score"`
	Summary     string        `json:"summary,omitempty"`
	Categories  []string      `json:"categories,omitempty"`
	Status      ArticleStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
}

// GenerateID creates a short stable ID from a canonical link.
func GenerateID(link string) string {
	hash := sha256.Sum256([]byte(link))
	return hex.EncodeToString(hash[:])[:16]
}
