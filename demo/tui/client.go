package tui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"curator/types"
)

// APIClient is a thin HTTP client for the curator service.
type APIClient struct {
	baseURL string
	orgID   string
	client  *http.Client
}

// NewAPIClient creates a client bound to one tenant.
func NewAPIClient(baseURL, orgID string) *APIClient {
	return &APIClient{
		baseURL: baseURL,
		orgID:   orgID,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type runResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// StartRun triggers a curation pass and returns the new job ID.
func (c *APIClient) StartRun() (string, error) {
	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/api/curation/run", bytes.NewReader(nil))
	if err != nil {
		return "", err
	}
	req.Header.Set("X-Org-ID", c.orgID)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to reach curator API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("run request returned %d: %s", resp.StatusCode, string(body))
	}

	var out runResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode run response: %w", err)
	}
	return out.JobID, nil
}

// GetJob fetches a job's current state including its log.
func (c *APIClient) GetJob(jobID string) (*types.Job, error) {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+"/api/jobs/"+jobID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Org-ID", c.orgID)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach curator API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("job request returned %d: %s", resp.StatusCode, string(body))
	}

	var job types.Job
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	return &job, nil
}

// CancelJob requests cooperative cancellation of the job.
func (c *APIClient) CancelJob(jobID string) error {
	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/api/jobs/"+jobID+"/cancel", nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-Org-ID", c.orgID)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach curator API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("cancel request returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
