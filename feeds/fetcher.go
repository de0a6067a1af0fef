// Package feeds pulls candidate items from a tenant's configured
// RSS/Atom sources.
package feeds

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"curator/store"
	"curator/types"
)

// ErrNoSourcesReachable is returned when every configured source
// failed, which aborts the whole pipeline pass.
var ErrNoSourcesReachable = errors.New("no feed sources reachable")

// Fetcher retrieves candidates from feed sources.
type Fetcher struct {
	parser *gofeed.Parser
}

// NewFetcher creates a feed fetcher.
func NewFetcher() *Fetcher {
	return &Fetcher{parser: gofeed.NewParser()}
}

// FetchCandidates pulls items from the given sources, keeping only
// those published within maxAgeDays. When filter is non-empty, only
// sources whose name appears in it are polled. One failing source
// never prevents others from contributing; the pass only fails when
// every polled source failed.
func (f *Fetcher) FetchCandidates(ctx context.Context, sources []store.Source, maxAgeDays int, filter []string) ([]types.Candidate, error) {
	selected := selectSources(sources, filter)
	if len(selected) == 0 {
		return nil, nil
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -maxAgeDays)

	var candidates []types.Candidate
	failures := 0
	for _, src := range selected {
		items, err := f.fetchOne(ctx, src, cutoff)
		if err != nil {
			log.Printf("Warning: source %s failed: %v", src.Name, err)
			failures++
			continue
		}
		candidates = append(candidates, items...)
	}

	if failures == len(selected) {
		return nil, ErrNoSourcesReachable
	}
	return candidates, nil
}

func (f *Fetcher) fetchOne(ctx context.Context, src store.Source, cutoff time.Time) ([]types.Candidate, error) {
	feed, err := f.parser.ParseURLWithContext(src.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", src.URL, err)
	}

	var candidates []types.Candidate
	for _, item := range feed.Items {
		if item.Link == "" {
			continue
		}

		var publishedAt time.Time
		if item.PublishedParsed != nil {
			publishedAt = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			publishedAt = *item.UpdatedParsed
		}
		if !publishedAt.IsZero() && publishedAt.Before(cutoff) {
			continue
		}

		author := ""
		if item.Author != nil {
			author = item.Author.Name
		}

		body := item.Content
		if body == "" {
			body = item.Description
		}

		candidates = append(candidates, types.Candidate{
			Link:        item.Link,
			Title:       item.Title,
			Body:        body,
			Author:      author,
			PublishedAt: publishedAt,
			Source:      src.Name,
		})
	}
	return candidates, nil
}

func selectSources(sources []store.Source, filter []string) []store.Source {
	if len(filter) == 0 {
		return sources
	}

	wanted := make(map[string]bool, len(filter))
	for _, name := range filter {
		wanted[strings.ToLower(strings.TrimSpace(name))] = true
	}

	var selected []store.Source
	for _, src := range sources {
		if wanted[strings.ToLower(src.Name)] {
			selected = append(selected, src)
		}
	}
	return selected
}
