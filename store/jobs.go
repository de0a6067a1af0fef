package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"curator/types"
)

// CreateJob inserts a new RUNNING job with zeroed counters.
func (t *TenantStore) CreateJob(ctx context.Context) (*types.Job, error) {
	job := &types.Job{
		ID:        uuid.NewString(),
		OrgID:     t.orgID,
		Status:    types.JobRunning,
		StartedAt: time.Now().UTC(),
	}

	_, err := t.db.ExecContext(ctx,
		`INSERT INTO jobs (id, org_id, status, started_at) VALUES (?, ?, ?, ?)`,
		job.ID, t.orgID, string(job.Status), formatTime(job.StartedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return job, nil
}

// CounterDelta names the counters to bump in one atomic update. The
// TotalFound field is absolute; the rest are additive.
type CounterDelta struct {
	TotalFound *int
	Processed  int
	Duplicates int
	LowScore   int
	Curated    int
	Errors     int
}

// UpdateCounters applies the delta in a single UPDATE statement, so two
// writers can never lose each other's increments. Updates against a
// terminal job are a silent no-op.
func (t *TenantStore) UpdateCounters(ctx context.Context, jobID string, delta CounterDelta) error {
	query := `UPDATE jobs SET
		processed = processed + ?,
		duplicates = duplicates + ?,
		low_score = low_score + ?,
		curated = curated + ?,
		errors = errors + ?`
	args := []any{delta.Processed, delta.Duplicates, delta.LowScore, delta.Curated, delta.Errors}

	if delta.TotalFound != nil {
		query += `, total_found = ?`
		args = append(args, *delta.TotalFound)
	}

	query += ` WHERE org_id = ? AND id = ? AND status = ?`
	args = append(args, t.orgID, jobID, string(types.JobRunning))

	if _, err := t.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update counters: %w", err)
	}
	return nil
}

// AppendJobLog appends one entry to the job's log. Each entry is its
// own row, so concurrent appends never clobber each other.
func (t *TenantStore) AppendJobLog(ctx context.Context, jobID, level, message, data string) error {
	_, err := t.db.ExecContext(ctx,
		`INSERT INTO job_logs (job_id, timestamp, level, message, data)
		 SELECT ?, ?, ?, ?, ? WHERE EXISTS (SELECT 1 FROM jobs WHERE org_id = ? AND id = ?)`,
		jobID, formatTime(time.Now()), level, message, data, t.orgID, jobID,
	)
	if err != nil {
		return fmt.Errorf("append job log: %w", err)
	}
	return nil
}

// CompleteJob transitions a RUNNING job to COMPLETED.
func (t *TenantStore) CompleteJob(ctx context.Context, jobID string) error {
	return t.finishJob(ctx, jobID, types.JobCompleted)
}

// FailJob transitions a RUNNING job to FAILED and records the message.
func (t *TenantStore) FailJob(ctx context.Context, jobID, message string) error {
	if err := t.finishJob(ctx, jobID, types.JobFailed); err != nil {
		return err
	}
	return t.AppendJobLog(ctx, jobID, types.LogError, message, "")
}

// CancelJob transitions a RUNNING job to CANCELLED. Cancelling a job
// already in a terminal state is an idempotent no-op.
func (t *TenantStore) CancelJob(ctx context.Context, jobID string) error {
	transitioned, err := t.tryFinishJob(ctx, jobID, types.JobCancelled)
	if err != nil {
		return err
	}
	if !transitioned {
		return nil
	}
	return t.AppendJobLog(ctx, jobID, types.LogInfo, "cancellation requested", "")
}

// IsCancelled is the cheap status poll the orchestrator uses once per
// candidate.
func (t *TenantStore) IsCancelled(ctx context.Context, jobID string) (bool, error) {
	var status string
	err := t.db.QueryRowContext(ctx,
		`SELECT status FROM jobs WHERE org_id = ? AND id = ?`,
		t.orgID, jobID,
	).Scan(&status)
	if err == sql.ErrNoRows {
		return false, ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("read job status: %w", err)
	}
	return types.JobStatus(status) == types.JobCancelled, nil
}

// RunningJob returns the ID of this tenant's RUNNING job, if any.
func (t *TenantStore) RunningJob(ctx context.Context) (string, bool, error) {
	var id string
	err := t.db.QueryRowContext(ctx,
		`SELECT id FROM jobs WHERE org_id = ? AND status = ? ORDER BY started_at DESC LIMIT 1`,
		t.orgID, string(types.JobRunning),
	).Scan(&id)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query running job: %w", err)
	}
	return id, true, nil
}

// GetJob returns a job together with its full log.
func (t *TenantStore) GetJob(ctx context.Context, jobID string) (*types.Job, error) {
	row := t.db.QueryRowContext(ctx,
		`SELECT id, org_id, status, total_found, processed, duplicates, low_score,
		        curated, errors, started_at, completed_at, duration_ms
		 FROM jobs WHERE org_id = ? AND id = ?`,
		t.orgID, jobID,
	)
	job, err := scanJob(row)
	if err != nil {
		return nil, err
	}

	rows, err := t.db.QueryContext(ctx,
		`SELECT timestamp, level, message, data FROM job_logs WHERE job_id = ? ORDER BY id`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("query job logs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var entry types.JobLogEntry
		var ts string
		if err := rows.Scan(&ts, &entry.Level, &entry.Message, &entry.Data); err != nil {
			return nil, fmt.Errorf("scan job log: %w", err)
		}
		entry.Timestamp = parseTime(ts)
		job.Logs = append(job.Logs, entry)
	}
	return job, rows.Err()
}

// ListJobs returns this tenant's jobs newest first, optionally filtered
// by status, with page starting at 1. Logs are not included.
func (t *TenantStore) ListJobs(ctx context.Context, status types.JobStatus, page, pageSize int) ([]types.Job, int, error) {
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
		`SELECT COUNT(*) FROM jobs WHERE `+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count jobs: %w", err)
	}

	args = append(args, pageSize, (page-1)*pageSize)
	rows, err := t.db.QueryContext(ctx,
		`SELECT id, org_id, status, total_found, processed, duplicates, low_score,
		        curated, errors, started_at, completed_at, duration_ms
		 FROM jobs WHERE `+where+`
		 ORDER BY started_at DESC LIMIT ? OFFSET ?`, args...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("query jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var jobs []types.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, 0, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, total, rows.Err()
}

// DeleteJob removes one job and its log.
func (t *TenantStore) DeleteJob(ctx context.Context, jobID string) error {
	res, err := t.db.ExecContext(ctx,
		`DELETE FROM jobs WHERE org_id = ? AND id = ?`, t.orgID, jobID,
	)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	_, err = t.db.ExecContext(ctx, `DELETE FROM job_logs WHERE job_id = ?`, jobID)
	if err != nil {
		return fmt.Errorf("delete job logs: %w", err)
	}
	return nil
}

// DeleteJobsOlderThan removes this tenant's terminal jobs started more
// than the given number of days ago. RUNNING jobs are never touched.
func (t *TenantStore) DeleteJobsOlderThan(ctx context.Context, days int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	_, err := t.db.ExecContext(ctx,
		`DELETE FROM job_logs WHERE job_id IN (
		   SELECT id FROM jobs WHERE org_id = ? AND status != ? AND started_at < ?)`,
		t.orgID, string(types.JobRunning), formatTime(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("delete old job logs: %w", err)
	}

	res, err := t.db.ExecContext(ctx,
		`DELETE FROM jobs WHERE org_id = ? AND status != ? AND started_at < ?`,
		t.orgID, string(types.JobRunning), formatTime(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("delete old jobs: %w", err)
	}
	return res.RowsAffected()
}

// finishJob is the strict variant of tryFinishJob for transitions that
// are only legal from RUNNING.
func (t *TenantStore) finishJob(ctx context.Context, jobID string, status types.JobStatus) error {
	transitioned, err := t.tryFinishJob(ctx, jobID, status)
	if err != nil {
		return err
	}
	if !transitioned {
		return fmt.Errorf("job %s is not running", jobID)
	}
	return nil
}

// tryFinishJob performs the one-shot terminal transition as an atomic
// compare-and-set on the status column. It returns false when the job
// was already terminal (or does not exist).
func (t *TenantStore) tryFinishJob(ctx context.Context, jobID string, status types.JobStatus) (bool, error) {
	var startedAt string
	err := t.db.QueryRowContext(ctx,
		`SELECT started_at FROM jobs WHERE org_id = ? AND id = ?`,
		t.orgID, jobID,
	).Scan(&startedAt)
	if err == sql.ErrNoRows {
		return false, ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("read job: %w", err)
	}

	now := time.Now().UTC()
	duration := now.Sub(parseTime(startedAt)).Milliseconds()

	res, err := t.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, completed_at = ?, duration_ms = ?
		 WHERE org_id = ? AND id = ? AND status = ?`,
		string(status), formatTime(now), duration,
		t.orgID, jobID, string(types.JobRunning),
	)
	if err != nil {
		return false, fmt.Errorf("finish job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func scanJob(row rowScanner) (*types.Job, error) {
	var job types.Job
	var status, startedAt string
	var completedAt sql.NullString

	err := row.Scan(&job.ID, &job.OrgID, &status,
		&job.Counters.TotalFound, &job.Counters.Processed, &job.Counters.Duplicates,
		&job.Counters.LowScore, &job.Counters.Curated, &job.Counters.Errors,
		&startedAt, &completedAt, &job.DurationMS)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan job: %w", err)
	}

	job.Status = types.JobStatus(status)
	job.StartedAt = parseTime(startedAt)
	if completedAt.Valid {
		ts := parseTime(completedAt.String)
		job.CompletedAt = &ts
	}
	return &job, nil
}
