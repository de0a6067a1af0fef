// Package dedup decides whether a candidate duplicates a tenant's
// article history, using an exact link check first and a vector
// similarity scan second.
package dedup

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"

	"curator/store"
	"curator/types"
)

const (
	// DefaultSimilarityThreshold flags content duplicates when no
	// tenant-specific threshold is configured.
	DefaultSimilarityThreshold = 0.85
	// DefaultLookbackDays bounds the similarity scan window.
	DefaultLookbackDays = 30
)

// ArticleIndex is the slice of tenant storage the engine needs. A
// store.TenantStore satisfies it, keeping every lookup org-scoped.
type ArticleIndex interface {
	ExistsByLink(ctx context.Context, link string) (bool, error)
	RecentEmbeddings(ctx context.Context, lookbackDays int) ([]store.EmbeddingRecord, error)
}

// Engine runs the two-stage duplicate check. The optional bloom filter
// short-circuits the exact-link query; the storage uniqueness
// constraint remains the authoritative guard either way.
type Engine struct {
	bloom *LinkFilter
}

// Config holds engine construction options.
type Config struct {
	// Bloom is optional; when nil the fast path is skipped.
	Bloom *LinkFilter
}

// NewEngine creates a deduplication engine.
func NewEngine(cfg Config) *Engine {
	return &Engine{bloom: cfg.Bloom}
}

// CheckDuplicate classifies the candidate link+embedding against the
// tenant history behind index. The exact-key check always runs before
// the similarity scan: it is the cheap test and decides alone when it
// hits. Callers must reject candidates with unusable embeddings before
// calling; an empty embedding here only disables the content stage.
// lookbackDays bounds the similarity window; zero means the default.
func (e *Engine) CheckDuplicate(ctx context.Context, index ArticleIndex, orgID, link string, embedding []float32, threshold float64, lookbackDays int) (*types.Verdict, error) {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	// Stage 1: exact canonical-link check.
	if e.bloom != nil {
		seen, err := e.bloom.Exists(ctx, orgID, link)
		if err != nil {
			log.Printf("Warning: bloom check failed for %s: %v", link, err)
		} else if seen {
			// Probabilistic hit; confirm against the store before
			// declaring a duplicate.
			exists, err := index.ExistsByLink(ctx, link)
			if err != nil {
				return nil, fmt.Errorf("confirm link: %w", err)
			}
			if exists {
				return &types.Verdict{IsDuplicate: true, Reason: types.ReasonURL}, nil
			}
		}
	}

	exists, err := index.ExistsByLink(ctx, link)
	if err != nil {
		return nil, fmt.Errorf("check link: %w", err)
	}
	if exists {
		return &types.Verdict{IsDuplicate: true, Reason: types.ReasonURL}, nil
	}

	// Stage 2: cosine similarity against the lookback window.
	history, err := index.RecentEmbeddings(ctx, lookbackDays)
	if err != nil {
		return nil, fmt.Errorf("load recent embeddings: %w", err)
	}

	var matches []types.Match
	for _, rec := range history {
		similarity := Cosine(embedding, rec.Embedding)
		if similarity >= threshold {
			matches = append(matches, types.Match{
				ArticleID:  rec.ArticleID,
				Title:      rec.Title,
				Similarity: similarity,
			})
		}
	}

	if len(matches) > 0 {
		sort.Slice(matches, func(i, j int) bool {
			return matches[i].Similarity > matches[j].Similarity
		})
		return &types.Verdict{IsDuplicate: true, Reason: types.ReasonContent, Matches: matches}, nil
	}

	return &types.Verdict{IsDuplicate: false, Reason: types.ReasonNone}, nil
}

// MarkSeen records the link in the fast-path filter after an article
// has been persisted.
func (e *Engine) MarkSeen(ctx context.Context, orgID, link string) {
	if e.bloom == nil {
		return
	}
	if err := e.bloom.Add(ctx, orgID, link); err != nil {
		log.Printf("Warning: failed to add %s to link filter: %v", link, err)
	}
}

// Bind returns a checker fixed to one tenant's article index.
func (e *Engine) Bind(orgID string, index ArticleIndex) *TenantChecker {
	return &TenantChecker{engine: e, orgID: orgID, index: index}
}

// TenantChecker runs duplicate checks against a single tenant.
type TenantChecker struct {
	engine *Engine
	orgID  string
	index  ArticleIndex
}

// CheckDuplicate classifies a candidate against this tenant's history.
func (t *TenantChecker) CheckDuplicate(ctx context.Context, link string, embedding []float32, threshold float64, lookbackDays int) (*types.Verdict, error) {
	return t.engine.CheckDuplicate(ctx, t.index, t.orgID, link, embedding, threshold, lookbackDays)
}

// MarkSeen records a persisted link in the fast-path filter.
func (t *TenantChecker) MarkSeen(ctx context.Context, link string) {
	t.engine.MarkSeen(ctx, t.orgID, link)
}

// Cosine returns the cosine similarity of two vectors: their dot
// product divided by the product of their magnitudes. Vectors of
// different dimensionality or zero magnitude never match and yield 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
