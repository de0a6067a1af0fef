package feeds

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"curator/store"
)

func rssDoc(items string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>test feed</title>` + items + `</channel></rss>`
}

func rssItem(link, title, pubDate string) string {
	return fmt.Sprintf(
		`<item><title>%s</title><link>%s</link><description>desc</description><pubDate>%s</pubDate></item>`,
		title, link, pubDate)
}

func TestFetchCandidatesMapsItems(t *testing.T) {
	recent := time.Now().UTC().Add(-2 * time.Hour).Format(time.RFC1123Z)
	stale := time.Now().UTC().AddDate(0, 0, -30).Format(time.RFC1123Z)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, rssDoc(
			rssItem("https://example.com/fresh", "fresh item", recent)+
				rssItem("https://example.com/stale", "stale item", stale)+
				`<item><title>no link</title><description>skipped</description></item>`,
		))
	}))
	defer server.Close()

	fetcher := NewFetcher()
	sources := []store.Source{{Name: "test", URL: server.URL, IsActive: true}}

	got, err := fetcher.FetchCandidates(context.Background(), sources, 7, nil)
	if err != nil {
		t.Fatalf("FetchCandidates error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d candidates; want 1 (stale and linkless items dropped): %+v", len(got), got)
	}
	c := got[0]
	if c.Link != "https://example.com/fresh" || c.Title != "fresh item" || c.Source != "test" {
		t.Fatalf("candidate = %+v", c)
	}
	if c.Body != "desc" {
		t.Fatalf("body = %q; want the item description", c.Body)
	}
}

func TestFetchCandidatesIsolatesFailingSource(t *testing.T) {
	recent := time.Now().UTC().Add(-time.Hour).Format(time.RFC1123Z)

	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, rssDoc(rssItem("https://example.com/a", "a", recent)))
	}))
	defer good.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()

	fetcher := NewFetcher()
	sources := []store.Source{
		{Name: "bad", URL: bad.URL},
		{Name: "good", URL: good.URL},
	}

	got, err := fetcher.FetchCandidates(context.Background(), sources, 7, nil)
	if err != nil {
		t.Fatalf("FetchCandidates error: %v (one healthy source should be enough)", err)
	}
	if len(got) != 1 || got[0].Source != "good" {
		t.Fatalf("candidates = %+v; want one item from the healthy source", got)
	}
}

func TestFetchCandidatesAllSourcesFailing(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()

	fetcher := NewFetcher()
	sources := []store.Source{{Name: "bad", URL: bad.URL}}

	_, err := fetcher.FetchCandidates(context.Background(), sources, 7, nil)
	if !errors.Is(err, ErrNoSourcesReachable) {
		t.Fatalf("err = %v; want ErrNoSourcesReachable", err)
	}
}

func TestFetchCandidatesNoSources(t *testing.T) {
	fetcher := NewFetcher()
	got, err := fetcher.FetchCandidates(context.Background(), nil, 7, nil)
	if err != nil || got != nil {
		t.Fatalf("FetchCandidates on empty sources = %v, %v; want nil, nil", got, err)
	}
}

func TestSelectSources(t *testing.T) {
	sources := []store.Source{
		{Name: "Hacker News"},
		{Name: "lobsters"},
		{Name: "ars"},
	}

	all := selectSources(sources, nil)
	if len(all) != 3 {
		t.Fatalf("empty filter should keep all sources, got %d", len(all))
	}

	picked := selectSources(sources, []string{"  hacker news ", "ARS"})
	if len(picked) != 2 {
		t.Fatalf("got %d sources; want 2 (case and whitespace insensitive)", len(picked))
	}
	if picked[0].Name != "Hacker News" || picked[1].Name != "ars" {
		t.Fatalf("picked = %+v", picked)
	}

	none := selectSources(sources, []string{"unknown"})
	if len(none) != 0 {
		t.Fatalf("unknown filter matched %d sources; want 0", len(none))
	}
}
