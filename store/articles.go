package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"curator/types"
)

// InsertArticle persists a classified article for this tenant. The
// schema-level UNIQUE (org_id, link) constraint is the final guard
// against concurrent pipeline runs inserting the same link; a
// collision is reported as ErrDuplicateLink.
func (t *TenantStore) InsertArticle(ctx context.Context, a *types.Article) error {
	if a.ID == "" {
		a.ID = types.GenerateID(t.orgID + "|" + a.Link)
	}
	a.OrgID = t.orgID
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	embedding, err := json.Marshal(a.Embedding)
	if err != nil {
		return fmt.Errorf("marshal embedding: %w", err)
	}
	categories, err := json.Marshal(a.Categories)
	if err != nil {
		return fmt.Errorf("marshal categories: %w", err)
	}

	var summary sql.NullString
	if a.Summary != "" {
		summary = sql.NullString{String: a.Summary, Valid: true}
	}

	_, err = t.db.ExecContext(ctx,
		`INSERT INTO articles (id, org_id, link, title, body, author, published_at,
		                       embedding, score, summary, categories, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, t.orgID, a.Link, a.Title, a.Body, a.Author, formatTime(a.PublishedAt),
		string(embedding), a.Score, summary, string(categories), string(a.Status),
		formatTime(a.CreatedAt),
	)
	if isUniqueViolation(err) {
		return ErrDuplicateLink
	}
	if err != nil {
		return fmt.Errorf("insert article: %w", err)
	}
	return nil
}

// ExistsByLink reports whether this tenant already has an article with
// the given canonical link.
func (t *TenantStore) ExistsByLink(ctx context.Context, link string) (bool, error) {
	var count int
	err := t.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM articles WHERE org_id = ? AND link = ?`,
		t.orgID, link,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check link: %w", err)
	}
	return count > 0, nil
}

// EmbeddingRecord is a historical embedding used for similarity checks.
type EmbeddingRecord struct {
	ArticleID string
	Title     string
	Embedding []float32
}

// RecentEmbeddings returns the embeddings of this tenant's articles
// created within the lookback window, newest first.
func (t *TenantStore) RecentEmbeddings(ctx context.Context, lookbackDays int) ([]EmbeddingRecord, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -lookbackDays)
	rows, err := t.db.QueryContext(ctx,
		`SELECT id, title, embedding FROM articles
		 WHERE org_id = ? AND created_at >= ?
		 ORDER BY created_at DESC`,
		t.orgID, formatTime(cutoff),
	)
	if err != nil {
		return nil, fmt.Errorf("query embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []EmbeddingRecord
	for rows.Next() {
		var rec EmbeddingRecord
		var raw string
		if err := rows.Scan(&rec.ArticleID, &rec.Title, &raw); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}
		if err := json.Unmarshal([]byte(raw), &rec.Embedding); err != nil {
			return nil, fmt.Errorf("decode embedding for %s: %w", rec.ArticleID, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetArticle returns a single article by ID.
func (t *TenantStore) GetArticle(ctx context.Context, id string) (*types.Article, error) {
	row := t.db.QueryRowContext(ctx,
		`SELECT id, org_id, link, title, body, author, published_at,
		        embedding, score, summary, categories, status, created_at
		 FROM articles WHERE org_id = ? AND id = ?`,
		t.orgID, id,
	)
	return scanArticle(row)
}

// ListArticles returns this tenant's articles, optionally filtered by
// status, newest first, with page starting at 1.
func (t *TenantStore) ListArticles(ctx context.Context, status types.ArticleStatus, page, pageSize int) ([]types.Article, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	where := `org_id = ?`
	args := []any{t.orgID}
	if status != "" {
		where += ` AND status = ?`
		args = append(args, string(status))
	}

	var total int
	if err := t.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM articles WHERE `+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count articles: %w", err)
	}

	args = append(args, pageSize, (page-1)*pageSize)
	rows, err := t.db.QueryContext(ctx,
		`SELECT id, org_id, link, title, body, author, published_at,
		        embedding, score, summary, categories, status, created_at
		 FROM articles WHERE `+where+`
		 ORDER BY created_at DESC LIMIT ? OFFSET ?`, args...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("query articles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var articles []types.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, 0, err
		}
		articles = append(articles, *a)
	}
	return articles, total, rows.Err()
}

// UpdateArticleStatus moves an article through the review workflow.
func (t *TenantStore) UpdateArticleStatus(ctx context.Context, id string, status types.ArticleStatus) error {
	res, err := t.db.ExecContext(ctx,
		`UPDATE articles SET status = ? WHERE org_id = ? AND id = ?`,
		string(status), t.orgID, id,
	)
	if err != nil {
		return fmt.Errorf("update article status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (*types.Article, error) {
	var a types.Article
	var publishedAt, createdAt, embedding, categories, status string
	var summary sql.NullString

	err := row.Scan(&a.ID, &a.OrgID, &a.Link, &a.Title, &a.Body, &a.Author,
		&publishedAt, &embedding, &a.Score, &summary, &categories, &status, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan article: %w", err)
	}

	if err := json.Unmarshal([]byte(embedding), &a.Embedding); err != nil {
		return nil, fmt.Errorf("decode embedding: %w", err)
	}
	if err := json.Unmarshal([]byte(categories), &a.Categories); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	if summary.Valid {
		a.Summary = summary.String
	}
	a.Status = types.ArticleStatus(status)
	a.PublishedAt = parseTime(publishedAt)
	a.CreatedAt = parseTime(createdAt)
	return &a, nil
}
