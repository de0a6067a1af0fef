// Package curation runs the pipeline that turns raw feed candidates
// into classified, deduplicated, persisted articles under a tracked,
// cancellable job.
package curation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"curator/config"
	"curator/store"
	"curator/types"
)

var (
	// ErrCancelled signals that a run stopped early because its job
	// was cancelled. It is control flow, not a failure.
	ErrCancelled = errors.New("curation run cancelled")
	// ErrJobAlreadyRunning is returned when the tenant already has a
	// pipeline pass in flight.
	ErrJobAlreadyRunning = errors.New("a curation job is already running for this tenant")
)

// Sink receives progress events in emission order. It may be nil.
type Sink func(types.ProgressEvent)

// Store is the tenant-bound persistence view the curator drives.
// *store.TenantStore satisfies it.
type Store interface {
	OrgID() string
	LoadSettings(ctx context.Context) (config.Settings, error)
	ListSources(ctx context.Context) ([]store.Source, error)
	InsertArticle(ctx context.Context, a *types.Article) error

	CreateJob(ctx context.Context) (*types.Job, error)
	RunningJob(ctx context.Context) (string, bool, error)
	UpdateCounters(ctx context.Context, jobID string, delta store.CounterDelta) error
	AppendJobLog(ctx context.Context, jobID, level, message, data string) error
	CompleteJob(ctx context.Context, jobID string) error
	FailJob(ctx context.Context, jobID, message string) error
	CancelJob(ctx context.Context, jobID string) error
	IsCancelled(ctx context.Context, jobID string) (bool, error)
}

// Deduper classifies a candidate link+embedding for one tenant.
// *dedup.TenantChecker satisfies it.
type Deduper interface {
	CheckDuplicate(ctx context.Context, link string, embedding []float32, threshold float64, lookbackDays int) (*types.Verdict, error)
	MarkSeen(ctx context.Context, link string)
}

// Embedder matches intel.Embedder.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Intelligence matches intel.TextIntelligence.
type Intelligence interface {
	Score(ctx context.Context, title, body, voice string) (float64, error)
	Summarize(ctx context.Context, title, body, voice string) (string, error)
	Categorize(ctx context.Context, title, body, voice string) ([]string, error)
}

// FetchFunc pulls candidates from the given sources.
type FetchFunc func(ctx context.Context, sources []store.Source, maxAgeDays int, filter []string) ([]types.Candidate, error)

// Publisher mirrors progress events to an external stream.
// *kafka.Publisher satisfies it; a nil publisher is a no-op.
type Publisher interface {
	Publish(orgID, jobID string, event types.ProgressEvent) error
}

// Archiver stores curated article records externally.
// *archive.Archiver satisfies it; a nil archiver is a no-op.
type Archiver interface {
	ArchiveArticle(ctx context.Context, article *types.Article) error
}

// Deps wires one tenant's collaborators into a Curator.
type Deps struct {
	Store    Store
	Deduper  Deduper
	Embedder Embedder
	Intel    Intelligence
	Fetch    FetchFunc
	// Extract optionally enriches candidate bodies in place before
	// processing (readability extraction).
	Extract func([]types.Candidate)
	// Publisher and Archiver may be nil.
	Publisher Publisher
	Archiver  Archiver
	// ItemDelay throttles external-provider calls between candidates.
	ItemDelay time.Duration
}

// Curator executes curation passes for a single tenant.
type Curator struct {
	deps Deps
}

// New creates a Curator from its dependencies.
func New(deps Deps) *Curator {
	return &Curator{deps: deps}
}

// RunOptions tune a single pipeline pass.
type RunOptions struct {
	// JobID reuses an already-created RUNNING job instead of creating
	// one. Empty means create.
	JobID string
	// Sources restricts the pass to the named feed sources.
	Sources []string
}

// Run executes one full pipeline pass: fetch, then for each candidate
// in sequence embed, dedup-check, score, branch on the relevance
// threshold, and persist. Candidates are processed strictly one at a
// time so the inter-item delay throttles provider calls and progress
// events stay in deterministic order. Cancellation is polled once per
// candidate; a cancelled run returns ErrCancelled after the job has
// been marked CANCELLED.
func (c *Curator) Run(ctx context.Context, opts RunOptions, onProgress Sink) (*types.Result, error) {
	s := c.deps.Store

	jobID := opts.JobID
	if jobID == "" {
		if _, running, err := s.RunningJob(ctx); err != nil {
			return nil, fmt.Errorf("check running job: %w", err)
		} else if running {
			return nil, ErrJobAlreadyRunning
		}
		job, err := s.CreateJob(ctx)
		if err != nil {
			return nil, fmt.Errorf("create job: %w", err)
		}
		jobID = job.ID
	}

	settings := c.loadSettings(ctx, jobID)
	emit := c.emitter(jobID, onProgress)

	result, err := c.runPass(ctx, jobID, settings, opts.Sources, emit)
	switch {
	case errors.Is(err, ErrCancelled):
		// The job row is already CANCELLED (that is how the signal
		// arose, or the context fired and we marked it ourselves).
		emit(types.ProgressEvent{Stage: types.StageCancelled, Message: "run cancelled"})
		return nil, err
	case err != nil:
		emit(types.ProgressEvent{Stage: types.StageFatalError, Message: err.Error()})
		if ferr := s.FailJob(ctx, jobID, err.Error()); ferr != nil {
			log.Printf("Warning: failed to mark job %s failed: %v", jobID, ferr)
		}
		return nil, err
	}

	emit(types.ProgressEvent{
		Stage:   types.StageComplete,
		Message: fmt.Sprintf("curation complete: %d curated, %d duplicates, %d low-score, %d errors", result.Curated, result.Duplicates, result.LowScore, len(result.Errors)),
		Total:   result.Total,
	})
	if err := s.CompleteJob(ctx, jobID); err != nil {
		return nil, fmt.Errorf("complete job: %w", err)
	}
	return result, nil
}

// runPass performs the fetch stage and the per-candidate loop.
// Returned errors are pipeline-fatal except ErrCancelled.
func (c *Curator) runPass(ctx context.Context, jobID string, settings config.Settings, sourceFilter []string, emit Sink) (*types.Result, error) {
	s := c.deps.Store
	result := &types.Result{}

	emit(types.ProgressEvent{Stage: types.StageFetch, Message: "fetching candidates"})

	sources, err := s.ListSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	candidates, err := c.deps.Fetch(ctx, sources, settings.MaxAgeDays, sourceFilter)
	if err != nil {
		return nil, fmt.Errorf("fetch candidates: %w", err)
	}
	if c.deps.Extract != nil {
		c.deps.Extract(candidates)
	}

	result.Total = len(candidates)
	total := len(candidates)
	if err := s.UpdateCounters(ctx, jobID, store.CounterDelta{TotalFound: &total}); err != nil {
		return nil, fmt.Errorf("record total: %w", err)
	}
	c.jobLog(ctx, jobID, types.LogInfo, fmt.Sprintf("fetched %d candidates", total))
	emit(types.ProgressEvent{
		Stage:   types.StageFetchComplete,
		Message: fmt.Sprintf("fetched %d candidates", total),
		Total:   total,
	})

	for i, candidate := range candidates {
		if err := c.checkCancelled(ctx, jobID); err != nil {
			return nil, err
		}

		emit(types.ProgressEvent{
			Stage:   types.StageProcessing,
			Message: candidate.Title,
			Current: i + 1,
			Total:   total,
		})

		if err := c.processCandidate(ctx, jobID, settings, candidate, i+1, total, result, emit); err != nil {
			// A single bad candidate never aborts the pass.
			c.recordItemError(ctx, jobID, candidate, err, result, emit)
		}

		if i < len(candidates)-1 {
			if err := sleepCtx(ctx, c.deps.ItemDelay); err != nil {
				return nil, c.markCancelled(ctx, jobID)
			}
		}
	}

	if len(result.Errors) > config.DefaultMaxErrorsReported {
		result.Errors = result.Errors[:config.DefaultMaxErrorsReported]
	}
	return result, nil
}

// processCandidate runs steps embed → dedup → score → branch for one
// candidate. A returned error is a per-item error.
func (c *Curator) processCandidate(ctx context.Context, jobID string, settings config.Settings, candidate types.Candidate, current, total int, result *types.Result, emit Sink) error {
	s := c.deps.Store

	// Candidates whose embedding cannot be computed are rejected here;
	// the dedup engine never sees them.
	embedding, err := c.deps.Embedder.Embed(ctx, embedText(candidate))
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}
	if len(embedding) == 0 {
		return fmt.Errorf("embed: empty vector for %s", candidate.Link)
	}

	verdict, err := c.deps.Deduper.CheckDuplicate(ctx, candidate.Link, embedding, settings.SimilarityThreshold, settings.LookbackDays)
	if err != nil {
		return fmt.Errorf("dedup check: %w", err)
	}
	if verdict.IsDuplicate {
		c.jobLog(ctx, jobID, types.LogInfo, fmt.Sprintf("duplicate (%s): %s", verdict.Reason, candidate.Link))
		if err := s.UpdateCounters(ctx, jobID, store.CounterDelta{Duplicates: 1}); err != nil {
			return err
		}
		result.Duplicates++
		emit(types.ProgressEvent{
			Stage:   types.StageDuplicate,
			Message: fmt.Sprintf("duplicate (%s): %s", verdict.Reason, candidate.Title),
			Current: current,
			Total:   total,
		})
		return nil
	}

	score, err := c.deps.Intel.Score(ctx, candidate.Title, candidate.Body, settings.BrandVoice)
	if err != nil {
		return fmt.Errorf("score: %w", err)
	}
	emit(types.ProgressEvent{
		Stage:   types.StageScored,
		Message: fmt.Sprintf("scored %.1f: %s", score, candidate.Title),
		Current: current,
		Total:   total,
		Score:   score,
	})

	if score < settings.RelevanceThreshold {
		// Below threshold: persist as rejected without spending the
		// summarize/categorize calls.
		article := articleFrom(candidate, embedding, score)
		article.Status = types.StatusRejected
		inserted, err := c.persist(ctx, jobID, article, result, emit, current, total)
		if err != nil {
			return err
		}
		if !inserted {
			return nil // lost the insert race; counted as duplicate
		}
		if err := s.UpdateCounters(ctx, jobID, store.CounterDelta{LowScore: 1}); err != nil {
			return err
		}
		result.LowScore++
		emit(types.ProgressEvent{
			Stage:   types.StageRejected,
			Message: fmt.Sprintf("rejected (%.1f < %.1f): %s", score, settings.RelevanceThreshold, candidate.Title),
			Current: current,
			Total:   total,
			Score:   score,
		})
		return nil
	}

	emit(types.ProgressEvent{
		Stage:   types.StageSummarizing,
		Message: candidate.Title,
		Current: current,
		Total:   total,
	})
	summary, err := c.deps.Intel.Summarize(ctx, candidate.Title, candidate.Body, settings.BrandVoice)
	if err != nil {
		return fmt.Errorf("summarize: %w", err)
	}
	categories, err := c.deps.Intel.Categorize(ctx, candidate.Title, candidate.Body, settings.BrandVoice)
	if err != nil {
		return fmt.Errorf("categorize: %w", err)
	}

	article := articleFrom(candidate, embedding, score)
	article.Status = types.StatusPendingReview
	article.Summary = summary
	article.Categories = categories
	inserted, err := c.persist(ctx, jobID, article, result, emit, current, total)
	if err != nil {
		return err
	}
	if !inserted {
		return nil // lost the insert race; counted as duplicate
	}

	if err := s.UpdateCounters(ctx, jobID, store.CounterDelta{Processed: 1, Curated: 1}); err != nil {
		return err
	}
	result.Processed++
	result.Curated++

	if c.deps.Archiver != nil {
		if err := c.deps.Archiver.ArchiveArticle(ctx, article); err != nil {
			log.Printf("Warning: failed to archive article %s: %v", article.ID, err)
		}
	}

	emit(types.ProgressEvent{
		Stage:   types.StageCurated,
		Message: fmt.Sprintf("curated (%.1f): %s", score, candidate.Title),
		Current: current,
		Total:   total,
		Score:   score,
	})
	return nil
}

// persist inserts the article, treating a storage-level uniqueness
// collision as a duplicate rather than an error: that race means a
// concurrent pass already classified the same link. It returns false
// when the insert lost such a race.
func (c *Curator) persist(ctx context.Context, jobID string, article *types.Article, result *types.Result, emit Sink, current, total int) (bool, error) {
	err := c.deps.Store.InsertArticle(ctx, article)
	if errors.Is(err, store.ErrDuplicateLink) {
		c.jobLog(ctx, jobID, types.LogWarn, fmt.Sprintf("insert raced with concurrent pass: %s", article.Link))
		if err := c.deps.Store.UpdateCounters(ctx, jobID, store.CounterDelta{Duplicates: 1}); err != nil {
			return false, err
		}
		result.Duplicates++
		emit(types.ProgressEvent{
			Stage:   types.StageDuplicate,
			Message: fmt.Sprintf("duplicate (url): %s", article.Title),
			Current: current,
			Total:   total,
		})
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("persist article: %w", err)
	}
	c.deps.Deduper.MarkSeen(ctx, article.Link)
	return true, nil
}

// checkCancelled polls both the context and the job row. Either one
// converts the pass into a cancelled run.
func (c *Curator) checkCancelled(ctx context.Context, jobID string) error {
	if ctx.Err() != nil {
		return c.markCancelled(ctx, jobID)
	}
	cancelled, err := c.deps.Store.IsCancelled(ctx, jobID)
	if err != nil {
		return fmt.Errorf("poll cancellation: %w", err)
	}
	if cancelled {
		return ErrCancelled
	}
	return nil
}

// markCancelled ensures the job row reflects a context-driven cancel
// before surfacing the sentinel. Store calls use a detached context
// because the run context is already dead.
func (c *Curator) markCancelled(_ context.Context, jobID string) error {
	bg, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.deps.Store.CancelJob(bg, jobID); err != nil {
		log.Printf("Warning: failed to mark job %s cancelled: %v", jobID, err)
	}
	return ErrCancelled
}

// recordItemError captures a per-item failure: logged, counted,
// appended to the result, loop continues.
func (c *Curator) recordItemError(ctx context.Context, jobID string, candidate types.Candidate, err error, result *types.Result, emit Sink) {
	message := fmt.Sprintf("%s: %v", candidate.Link, err)
	result.Errors = append(result.Errors, message)
	c.jobLog(ctx, jobID, types.LogError, message)
	if cerr := c.deps.Store.UpdateCounters(ctx, jobID, store.CounterDelta{Errors: 1}); cerr != nil {
		log.Printf("Warning: failed to count error on job %s: %v", jobID, cerr)
	}
	emit(types.ProgressEvent{Stage: types.StageError, Message: message})
}

// loadSettings resolves tenant settings with an explicit fallback to
// system defaults when none are stored or the load fails.
func (c *Curator) loadSettings(ctx context.Context, jobID string) config.Settings {
	settings, err := c.deps.Store.LoadSettings(ctx)
	if err == nil {
		return settings
	}
	if errors.Is(err, store.ErrNotFound) {
		c.jobLog(ctx, jobID, types.LogInfo, "no tenant settings saved, using system defaults")
	} else {
		log.Printf("Warning: failed to load settings for %s: %v (using defaults)", c.deps.Store.OrgID(), err)
		c.jobLog(ctx, jobID, types.LogWarn, fmt.Sprintf("settings unavailable (%v), using system defaults", err))
	}
	return config.Defaults()
}

// emitter fans each event out to the caller's sink and the optional
// external publisher.
func (c *Curator) emitter(jobID string, onProgress Sink) Sink {
	return func(event types.ProgressEvent) {
		if onProgress != nil {
			onProgress(event)
		}
		if c.deps.Publisher != nil {
			if err := c.deps.Publisher.Publish(c.deps.Store.OrgID(), jobID, event); err != nil {
				log.Printf("Warning: failed to publish progress event: %v", err)
			}
		}
	}
}

func (c *Curator) jobLog(ctx context.Context, jobID, level, message string) {
	if err := c.deps.Store.AppendJobLog(ctx, jobID, level, message, ""); err != nil {
		log.Printf("Warning: failed to append job log: %v", err)
	}
}

func articleFrom(candidate types.Candidate, embedding []float32, score float64) *types.Article {
	return &types.Article{
		Link:        candidate.Link,
		Title:       candidate.Title,
		Body:        candidate.Body,
		Author:      candidate.Author,
		PublishedAt: candidate.PublishedAt,
		Embedding:   embedding,
		Score:       score,
	}
}

func embedText(candidate types.Candidate) string {
	if candidate.Body != "" {
		return candidate.Title + "\n\n" + candidate.Body
	}
	return candidate.Title
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
