package curation

import (
	"context"
	"errors"
	"fmt"

	"curator/config"
	"curator/store"
	"curator/types"
)

// Disposition is the outcome class of a single-item curation.
type Disposition string

const (
	DispositionCurated   Disposition = "curated"
	DispositionRejected  Disposition = "rejected"
	DispositionDuplicate Disposition = "duplicate"
)

// Outcome reports what happened to a manually submitted item.
type Outcome struct {
	Disposition Disposition    `json:"disposition"`
	Score       float64        `json:"score,omitempty"`
	Verdict     *types.Verdict `json:"verdict,omitempty"`
	Article     *types.Article `json:"article,omitempty"`
}

// CurateOne runs the dedup → score → (summarize+categorize | reject)
// decision for one externally supplied item, without job tracking.
// Used for manual and administrative curation.
func (c *Curator) CurateOne(ctx context.Context, link, title, body string) (*Outcome, error) {
	settings, err := c.deps.Store.LoadSettings(ctx)
	if errors.Is(err, store.ErrNotFound) {
		settings = config.Defaults()
	} else if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	candidate := types.Candidate{Link: link, Title: title, Body: body, Source: "manual"}

	embedding, err := c.deps.Embedder.Embed(ctx, embedText(candidate))
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if len(embedding) == 0 {
		return nil, fmt.Errorf("embed: empty vector for %s", link)
	}

	verdict, err := c.deps.Deduper.CheckDuplicate(ctx, link, embedding, settings.SimilarityThreshold, settings.LookbackDays)
	if err != nil {
		return nil, fmt.Errorf("dedup check: %w", err)
	}
	if verdict.IsDuplicate {
		return &Outcome{Disposition: DispositionDuplicate, Verdict: verdict}, nil
	}

	score, err := c.deps.Intel.Score(ctx, title, body, settings.BrandVoice)
	if err != nil {
		return nil, fmt.Errorf("score: %w", err)
	}

	article := articleFrom(candidate, embedding, score)
	if score < settings.RelevanceThreshold {
		article.Status = types.StatusRejected
		inserted, err := c.insertOne(ctx, article)
		if err != nil {
			return nil, err
		}
		if !inserted {
			return &Outcome{Disposition: DispositionDuplicate, Verdict: &types.Verdict{IsDuplicate: true, Reason: types.ReasonURL}}, nil
		}
		return &Outcome{Disposition: DispositionRejected, Score: score, Verdict: verdict, Article: article}, nil
	}

	summary, err := c.deps.Intel.Summarize(ctx, title, body, settings.BrandVoice)
	if err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}
	categories, err := c.deps.Intel.Categorize(ctx, title, body, settings.BrandVoice)
	if err != nil {
		return nil, fmt.Errorf("categorize: %w", err)
	}

	article.Status = types.StatusPendingReview
	article.Summary = summary
	article.Categories = categories
	inserted, err := c.insertOne(ctx, article)
	if err != nil {
		return nil, err
	}
	if !inserted {
		return &Outcome{Disposition: DispositionDuplicate, Verdict: &types.Verdict{IsDuplicate: true, Reason: types.ReasonURL}}, nil
	}
	return &Outcome{Disposition: DispositionCurated, Score: score, Verdict: verdict, Article: article}, nil
}

// insertOne persists the article; a uniqueness collision reports false
// so the caller can surface a duplicate outcome.
func (c *Curator) insertOne(ctx context.Context, article *types.Article) (bool, error) {
	err := c.deps.Store.InsertArticle(ctx, article)
	if errors.Is(err, store.ErrDuplicateLink) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("persist article: %w", err)
	}
	c.deps.Deduper.MarkSeen(ctx, article.Link)
	return true, nil
}
