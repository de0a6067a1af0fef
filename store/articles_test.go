package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"curator/types"
)

func sampleArticle(link string) *types.Article {
	return &types.Article{
		Link:        link,
		Title:       "Title for " + link,
		Body:        "body text",
		Author:      "author",
		PublishedAt: time.Now().UTC().Add(-time.Hour),
		Embedding:   []float32{0.1, 0.2, 0.3},
		Score:       7.5,
		Summary:     "a summary",
		Categories:  []string{"tech", "ai"},
		Status:      types.StatusPendingReview,
	}
}

func TestInsertArticleAndGet(t *testing.T) {
	ts := openTestDB(t).Tenant("org-1")
	ctx := context.Background()

	a := sampleArticle("https://example.com/a")
	if err := ts.InsertArticle(ctx, a); err != nil {
		t.Fatalf("InsertArticle error: %v", err)
	}
	if a.ID == "" {
		t.Fatalf("InsertArticle did not assign an ID")
	}
	if a.OrgID != "org-1" {
		t.Fatalf("OrgID = %q; want org-1", a.OrgID)
	}

	got, err := ts.GetArticle(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetArticle error: %v", err)
	}
	if diff := cmp.Diff(a.Embedding, got.Embedding); diff != "" {
		t.Fatalf("embedding mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(a.Categories, got.Categories); diff != "" {
		t.Fatalf("categories mismatch (-want +got):\n%s", diff)
	}
	if got.Summary != a.Summary || got.Score != a.Score || got.Status != a.Status {
		t.Fatalf("round-trip mismatch: got %+v", got)
	}
}

func TestInsertArticleDuplicateLink(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	ts := db.Tenant("org-1")

	if err := ts.InsertArticle(ctx, sampleArticle("https://example.com/a")); err != nil {
		t.Fatalf("first insert error: %v", err)
	}
	err := ts.InsertArticle(ctx, sampleArticle("https://example.com/a"))
	if !errors.Is(err, ErrDuplicateLink) {
		t.Fatalf("second insert err = %v; want ErrDuplicateLink", err)
	}

	// The same link is fine for a different tenant.
	if err := db.Tenant("org-2").InsertArticle(ctx, sampleArticle("https://example.com/a")); err != nil {
		t.Fatalf("other-tenant insert error: %v", err)
	}
}

func TestExistsByLinkScopedToTenant(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Tenant("org-1").InsertArticle(ctx, sampleArticle("https://example.com/a")); err != nil {
		t.Fatalf("insert error: %v", err)
	}

	exists, err := db.Tenant("org-1").ExistsByLink(ctx, "https://example.com/a")
	if err != nil || !exists {
		t.Fatalf("ExistsByLink = %v, %v; want true", exists, err)
	}
	exists, err = db.Tenant("org-2").ExistsByLink(ctx, "https://example.com/a")
	if err != nil || exists {
		t.Fatalf("other tenant ExistsByLink = %v, %v; want false", exists, err)
	}
}

func TestRecentEmbeddingsLookback(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	ts := db.Tenant("org-1")

	recent := sampleArticle("https://example.com/recent")
	if err := ts.InsertArticle(ctx, recent); err != nil {
		t.Fatalf("insert error: %v", err)
	}
	old := sampleArticle("https://example.com/old")
	old.CreatedAt = time.Now().UTC().AddDate(0, 0, -60)
	if err := ts.InsertArticle(ctx, old); err != nil {
		t.Fatalf("insert error: %v", err)
	}

	records, err := ts.RecentEmbeddings(ctx, 30)
	if err != nil {
		t.Fatalf("RecentEmbeddings error: %v", err)
	}
	if len(records) != 1 || records[0].ArticleID != recent.ID {
		t.Fatalf("records = %+v; want only the recent article", records)
	}
}

func TestListArticlesFilterAndPagination(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	ts := db.Tenant("org-1")

	for i, link := range []string{"https://e.com/1", "https://e.com/2", "https://e.com/3"} {
		a := sampleArticle(link)
		if i == 2 {
			a.Status = types.StatusRejected
		}
		a.CreatedAt = time.Now().UTC().Add(time.Duration(i) * time.Second)
		if err := ts.InsertArticle(ctx, a); err != nil {
			t.Fatalf("insert error: %v", err)
		}
	}

	pending, total, err := ts.ListArticles(ctx, types.StatusPendingReview, 1, 10)
	if err != nil {
		t.Fatalf("ListArticles error: %v", err)
	}
	if total != 2 || len(pending) != 2 {
		t.Fatalf("pending total=%d len=%d; want 2/2", total, len(pending))
	}

	page1, total, err := ts.ListArticles(ctx, "", 1, 2)
	if err != nil {
		t.Fatalf("ListArticles error: %v", err)
	}
	if total != 3 || len(page1) != 2 {
		t.Fatalf("page1 total=%d len=%d; want 3/2", total, len(page1))
	}
	page2, _, err := ts.ListArticles(ctx, "", 2, 2)
	if err != nil {
		t.Fatalf("ListArticles error: %v", err)
	}
	if len(page2) != 1 {
		t.Fatalf("page2 len=%d; want 1", len(page2))
	}
	// Newest first.
	if page1[0].Link != "https://e.com/3" {
		t.Fatalf("page1[0] = %s; want newest article first", page1[0].Link)
	}
}

func TestUpdateArticleStatus(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	ts := db.Tenant("org-1")

	a := sampleArticle("https://example.com/a")
	if err := ts.InsertArticle(ctx, a); err != nil {
		t.Fatalf("insert error: %v", err)
	}

	if err := ts.UpdateArticleStatus(ctx, a.ID, types.StatusApproved); err != nil {
		t.Fatalf("UpdateArticleStatus error: %v", err)
	}
	got, err := ts.GetArticle(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetArticle error: %v", err)
	}
	if got.Status != types.StatusApproved {
		t.Fatalf("status = %q; want approved", got.Status)
	}

	err = ts.UpdateArticleStatus(ctx, "missing", types.StatusApproved)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing article err = %v; want ErrNotFound", err)
	}

	// Other tenants cannot reach across.
	err = db.Tenant("org-2").UpdateArticleStatus(ctx, a.ID, types.StatusRejected)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-tenant update err = %v; want ErrNotFound", err)
	}
}
