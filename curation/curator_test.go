package curation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"curator/config"
	"curator/store"
	"curator/types"
)

// fakeStore is an in-memory Store for pipeline tests.
type fakeStore struct {
	orgID       string
	settings    *config.Settings
	settingsErr error
	sources     []store.Source

	articles    map[string]*types.Article
	insertErrs  map[string]error
	job         *types.Job
	logs        []types.JobLogEntry
	cancelAfter int // cancel reported after this many IsCancelled polls; 0 = never
	polls       int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orgID:    "org-1",
		articles: map[string]*types.Article{},
		sources:  []store.Source{{Name: "feed", URL: "https://example.com/rss", IsActive: true}},
	}
}

func (f *fakeStore) OrgID() string { return f.orgID }

func (f *fakeStore) LoadSettings(context.Context) (config.Settings, error) {
	if f.settingsErr != nil {
		return config.Settings{}, f.settingsErr
	}
	if f.settings == nil {
		return config.Settings{}, store.ErrNotFound
	}
	return *f.settings, nil
}

func (f *fakeStore) ListSources(context.Context) ([]store.Source, error) {
	return f.sources, nil
}

func (f *fakeStore) InsertArticle(_ context.Context, a *types.Article) error {
	if err := f.insertErrs[a.Link]; err != nil {
		return err
	}
	if _, ok := f.articles[a.Link]; ok {
		return store.ErrDuplicateLink
	}
	f.articles[a.Link] = a
	return nil
}

func (f *fakeStore) CreateJob(context.Context) (*types.Job, error) {
	f.job = &types.Job{ID: "job-1", OrgID: f.orgID, Status: types.JobRunning}
	return f.job, nil
}

func (f *fakeStore) RunningJob(context.Context) (string, bool, error) {
	if f.job != nil && f.job.Status == types.JobRunning {
		return f.job.ID, true, nil
	}
	return "", false, nil
}

func (f *fakeStore) UpdateCounters(_ context.Context, _ string, delta store.CounterDelta) error {
	if f.job.Status != types.JobRunning {
		return nil
	}
	c := &f.job.Counters
	if delta.TotalFound != nil {
		c.TotalFound = *delta.TotalFound
	}
	c.Processed += delta.Processed
	c.Duplicates += delta.Duplicates
	c.LowScore += delta.LowScore
	c.Curated += delta.Curated
	c.Errors += delta.Errors
	return nil
}

func (f *fakeStore) AppendJobLog(_ context.Context, _, level, message, data string) error {
	f.logs = append(f.logs, types.JobLogEntry{Level: level, Message: message, Data: data})
	return nil
}

func (f *fakeStore) CompleteJob(context.Context, string) error {
	f.job.Status = types.JobCompleted
	return nil
}

func (f *fakeStore) FailJob(_ context.Context, _ string, message string) error {
	f.job.Status = types.JobFailed
	f.logs = append(f.logs, types.JobLogEntry{Level: types.LogError, Message: message})
	return nil
}

func (f *fakeStore) CancelJob(context.Context, string) error {
	if f.job.Status == types.JobRunning {
		f.job.Status = types.JobCancelled
	}
	return nil
}

func (f *fakeStore) IsCancelled(context.Context, string) (bool, error) {
	f.polls++
	if f.cancelAfter > 0 && f.polls > f.cancelAfter {
		f.job.Status = types.JobCancelled
	}
	return f.job.Status == types.JobCancelled, nil
}

// fakeDeduper flags configured links as duplicates.
type fakeDeduper struct {
	urlDups     map[string]bool
	contentDups map[string][]types.Match
	seen        []string
}

func (f *fakeDeduper) CheckDuplicate(_ context.Context, link string, _ []float32, _ float64, _ int) (*types.Verdict, error) {
	if f.urlDups[link] {
		return &types.Verdict{IsDuplicate: true, Reason: types.ReasonURL}, nil
	}
	if matches, ok := f.contentDups[link]; ok {
		return &types.Verdict{IsDuplicate: true, Reason: types.ReasonContent, Matches: matches}, nil
	}
	return &types.Verdict{IsDuplicate: false, Reason: types.ReasonNone}, nil
}

func (f *fakeDeduper) MarkSeen(_ context.Context, link string) {
	f.seen = append(f.seen, link)
}

// fakeEmbedder returns a fixed vector, or an error for titles listed
// in failFor. The embed text always starts with the candidate title.
type fakeEmbedder struct {
	failFor map[string]bool
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	for title := range f.failFor {
		if strings.HasPrefix(text, title) {
			return nil, errors.New("embedding provider error")
		}
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

// fakeIntel scores by title and records which items were summarized.
type fakeIntel struct {
	scores     map[string]float64 // by title; missing = 8.0
	summarized []string
}

func (f *fakeIntel) Score(_ context.Context, title, _, _ string) (float64, error) {
	if score, ok := f.scores[title]; ok {
		return score, nil
	}
	return 8.0, nil
}

func (f *fakeIntel) Summarize(_ context.Context, title, _, _ string) (string, error) {
	f.summarized = append(f.summarized, title)
	return "summary of " + title, nil
}

func (f *fakeIntel) Categorize(context.Context, string, string, string) ([]string, error) {
	return []string{"tech"}, nil
}

func candidates(n int) []types.Candidate {
	out := make([]types.Candidate, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, types.Candidate{
			Link:  fmt.Sprintf("https://example.com/%d", i),
			Title: fmt.Sprintf("article %d", i),
			Body:  "body",
		})
	}
	return out
}

func fetchOf(items []types.Candidate) FetchFunc {
	return func(context.Context, []store.Source, int, []string) ([]types.Candidate, error) {
		return items, nil
	}
}

type harness struct {
	store   *fakeStore
	deduper *fakeDeduper
	intel   *fakeIntel
	curator *Curator
	events  []types.ProgressEvent
}

func newHarness(items []types.Candidate) *harness {
	h := &harness{
		store:   newFakeStore(),
		deduper: &fakeDeduper{urlDups: map[string]bool{}, contentDups: map[string][]types.Match{}},
		intel:   &fakeIntel{scores: map[string]float64{}},
	}
	h.curator = New(Deps{
		Store:    h.store,
		Deduper:  h.deduper,
		Embedder: &fakeEmbedder{},
		Intel:    h.intel,
		Fetch:    fetchOf(items),
	})
	return h
}

func (h *harness) run(t *testing.T) (*types.Result, error) {
	t.Helper()
	return h.curator.Run(context.Background(), RunOptions{}, func(e types.ProgressEvent) {
		h.events = append(h.events, e)
	})
}

func (h *harness) stages() []types.Stage {
	stages := make([]types.Stage, 0, len(h.events))
	for _, e := range h.events {
		stages = append(stages, e.Stage)
	}
	return stages
}

func TestRunAllCurated(t *testing.T) {
	h := newHarness(candidates(3))

	result, err := h.run(t)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if result.Total != 3 || result.Curated != 3 || result.Duplicates != 0 || result.LowScore != 0 {
		t.Fatalf("result = %+v; want 3 curated of 3", result)
	}
	if h.store.job.Status != types.JobCompleted {
		t.Fatalf("job status = %q; want completed", h.store.job.Status)
	}
	want := types.JobCounters{TotalFound: 3, Processed: 3, Curated: 3}
	if h.store.job.Counters != want {
		t.Fatalf("counters = %+v; want %+v", h.store.job.Counters, want)
	}
	if len(h.store.articles) != 3 {
		t.Fatalf("persisted %d articles; want 3", len(h.store.articles))
	}
	for _, a := range h.store.articles {
		if a.Status != types.StatusPendingReview {
			t.Fatalf("article status = %q; want pending_review", a.Status)
		}
		if a.Summary == "" || len(a.Categories) == 0 {
			t.Fatalf("curated article missing annotations: %+v", a)
		}
	}
	if len(h.deduper.seen) != 3 {
		t.Fatalf("MarkSeen called %d times; want 3", len(h.deduper.seen))
	}

	stages := h.stages()
	if stages[0] != types.StageFetch || stages[len(stages)-1] != types.StageComplete {
		t.Fatalf("event stream must start with fetch and end with complete: %v", stages)
	}
}

func TestRunCountsDuplicates(t *testing.T) {
	h := newHarness(candidates(3))
	h.deduper.urlDups["https://example.com/1"] = true
	h.deduper.contentDups["https://example.com/2"] = []types.Match{{ArticleID: "old", Similarity: 0.91}}

	result, err := h.run(t)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if result.Duplicates != 2 || result.Curated != 1 {
		t.Fatalf("result = %+v; want 2 duplicates, 1 curated", result)
	}
	if len(h.store.articles) != 1 {
		t.Fatalf("persisted %d articles; want 1 (duplicates are not stored)", len(h.store.articles))
	}
	if _, ok := h.store.articles["https://example.com/3"]; !ok {
		t.Fatalf("the non-duplicate candidate was not persisted")
	}
}

func TestRunRejectsLowScoreWithoutAnnotating(t *testing.T) {
	h := newHarness(candidates(2))
	h.intel.scores["article 1"] = 4.0 // below the 6.0 default

	result, err := h.run(t)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if result.LowScore != 1 || result.Curated != 1 {
		t.Fatalf("result = %+v; want 1 low-score, 1 curated", result)
	}

	rejected := h.store.articles["https://example.com/1"]
	if rejected == nil || rejected.Status != types.StatusRejected {
		t.Fatalf("low-score article = %+v; want persisted as rejected", rejected)
	}
	if rejected.Summary != "" || len(rejected.Categories) != 0 {
		t.Fatalf("rejected article should carry no annotations: %+v", rejected)
	}
	// Summarize must only have run for the accepted item.
	if len(h.intel.summarized) != 1 || h.intel.summarized[0] != "article 2" {
		t.Fatalf("summarized = %v; want only the accepted article", h.intel.summarized)
	}
}

func TestRunThresholdBoundaryCurates(t *testing.T) {
	h := newHarness(candidates(1))
	h.intel.scores["article 1"] = config.DefaultRelevanceThreshold // exactly at threshold

	result, err := h.run(t)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if result.Curated != 1 || result.LowScore != 0 {
		t.Fatalf("result = %+v; score equal to threshold must be curated", result)
	}
}

func TestRunCancellationStopsBetweenItems(t *testing.T) {
	h := newHarness(candidates(5))
	h.store.cancelAfter = 2

	_, err := h.run(t)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("Run err = %v; want ErrCancelled", err)
	}
	if h.store.job.Status != types.JobCancelled {
		t.Fatalf("job status = %q; want cancelled", h.store.job.Status)
	}
	if got := len(h.store.articles); got != 2 {
		t.Fatalf("persisted %d articles before cancel; want 2", got)
	}

	stages := h.stages()
	if stages[len(stages)-1] != types.StageCancelled {
		t.Fatalf("last event = %q; want cancelled", stages[len(stages)-1])
	}
}

func TestRunContextCancellationMarksJob(t *testing.T) {
	h := newHarness(candidates(3))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.curator.Run(ctx, RunOptions{}, nil)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("Run err = %v; want ErrCancelled", err)
	}
	if h.store.job.Status != types.JobCancelled {
		t.Fatalf("job status = %q; want cancelled", h.store.job.Status)
	}
}

func TestRunRefusesConcurrentJob(t *testing.T) {
	h := newHarness(candidates(1))
	if _, err := h.store.CreateJob(context.Background()); err != nil {
		t.Fatalf("CreateJob error: %v", err)
	}

	_, err := h.curator.Run(context.Background(), RunOptions{}, nil)
	if !errors.Is(err, ErrJobAlreadyRunning) {
		t.Fatalf("Run err = %v; want ErrJobAlreadyRunning", err)
	}
}

func TestRunItemErrorDoesNotAbortPass(t *testing.T) {
	items := candidates(3)
	h := newHarness(items)
	h.curator.deps.Embedder = &fakeEmbedder{failFor: map[string]bool{"article 2": true}}

	result, err := h.run(t)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("result.Errors = %v; want one entry", result.Errors)
	}
	if result.Curated != 2 {
		t.Fatalf("curated = %d; want 2 (pass continues past a bad item)", result.Curated)
	}
	if h.store.job.Status != types.JobCompleted {
		t.Fatalf("job status = %q; a per-item error must not fail the job", h.store.job.Status)
	}
	if h.store.job.Counters.Errors != 1 {
		t.Fatalf("error counter = %d; want 1", h.store.job.Counters.Errors)
	}
}

func TestRunInsertRaceCountsDuplicate(t *testing.T) {
	h := newHarness(candidates(1))
	h.store.insertErrs = map[string]error{"https://example.com/1": store.ErrDuplicateLink}

	result, err := h.run(t)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if result.Duplicates != 1 || result.Curated != 0 {
		t.Fatalf("result = %+v; want the raced insert counted as a duplicate", result)
	}
	if len(h.deduper.seen) != 0 {
		t.Fatalf("MarkSeen must not run for a lost insert race")
	}
}

func TestRunFatalFetchErrorFailsJob(t *testing.T) {
	h := newHarness(nil)
	h.curator.deps.Fetch = func(context.Context, []store.Source, int, []string) ([]types.Candidate, error) {
		return nil, errors.New("all sources down")
	}

	_, err := h.run(t)
	if err == nil || errors.Is(err, ErrCancelled) {
		t.Fatalf("Run err = %v; want fatal error", err)
	}
	if h.store.job.Status != types.JobFailed {
		t.Fatalf("job status = %q; want failed", h.store.job.Status)
	}

	stages := h.stages()
	if stages[len(stages)-1] != types.StageFatalError {
		t.Fatalf("last event = %q; want fatal_error", stages[len(stages)-1])
	}
}

func TestRunUsesDefaultSettingsWhenNoneSaved(t *testing.T) {
	h := newHarness(candidates(1))
	h.intel.scores["article 1"] = config.DefaultRelevanceThreshold - 0.1

	result, err := h.run(t)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	// Just below the system-default threshold: only defaults explain
	// the rejection, since no tenant settings exist.
	if result.LowScore != 1 {
		t.Fatalf("result = %+v; want rejection under default threshold", result)
	}
}

func TestRunHonorsTenantSettings(t *testing.T) {
	h := newHarness(candidates(1))
	h.store.settings = &config.Settings{
		RelevanceThreshold:  3.0,
		SimilarityThreshold: 0.85,
		MaxAgeDays:          7,
		LookbackDays:        30,
	}
	h.intel.scores["article 1"] = 4.0 // below default, above tenant threshold

	result, err := h.run(t)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if result.Curated != 1 || result.LowScore != 0 {
		t.Fatalf("result = %+v; tenant threshold of 3.0 should curate a 4.0", result)
	}
}
