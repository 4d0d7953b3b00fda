package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

/* GitHub REST implementation of Client
 * Plain net/http with per-call timeouts carried by the injected client;
 * pagination is capped at one page of 100 entries because a single
 * commit never accumulates more runs or artifacts than that before the
 * resolver's recency sort makes the tail irrelevant.
 */

const defaultBaseURL = "https://api.github.com"

type GitHubClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewGitHubClient creates a REST client for the GitHub API. An empty
// baseURL selects api.github.com; tests point it at a local server.
func NewGitHubClient(baseURL, token string, timeout time.Duration) *GitHubClient {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &GitHubClient{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

// ListWorkflowRuns implements RunLister for a single commit.
func (c *GitHubClient) ListWorkflowRuns(ctx context.Context, repo Repo, headSHA string) ([]WorkflowRun, error) {
	path := fmt.Sprintf("/repos/%s/%s/actions/runs?head_sha=%s&per_page=100",
		url.PathEscape(repo.Owner), url.PathEscape(repo.Name), url.QueryEscape(headSHA))

	var response struct {
		WorkflowRuns []struct {
			ID         int64     `json:"id"`
			HeadSHA    string    `json:"head_sha"`
			Status     string    `json:"status"`
			Conclusion string    `json:"conclusion"`
			CreatedAt  time.Time `json:"created_at"`
		} `json:"workflow_runs"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &response); err != nil {
		return nil, fmt.Errorf("listing workflow runs: %w", err)
	}

	runs := make([]WorkflowRun, 0, len(response.WorkflowRuns))
	for _, r := range response.WorkflowRuns {
		runs = append(runs, WorkflowRun{
			ID:         r.ID,
			HeadSHA:    r.HeadSHA,
			Status:     r.Status,
			Conclusion: r.Conclusion,
			CreatedAt:  r.CreatedAt,
		})
	}
	return runs, nil
}

// ListArtifacts implements ArtifactFetcher.
func (c *GitHubClient) ListArtifacts(ctx context.Context, repo Repo, runID int64) ([]Artifact, error) {
	path := fmt.Sprintf("/repos/%s/%s/actions/runs/%d/artifacts?per_page=100",
		url.PathEscape(repo.Owner), url.PathEscape(repo.Name), runID)

	var response struct {
		Artifacts []struct {
			ID      int64  `json:"id"`
			Name    string `json:"name"`
			Expired bool   `json:"expired"`
		} `json:"artifacts"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &response); err != nil {
		return nil, fmt.Errorf("listing artifacts: %w", err)
	}

	artifacts := make([]Artifact, 0, len(response.Artifacts))
	for _, a := range response.Artifacts {
		artifacts = append(artifacts, Artifact{ID: a.ID, Name: a.Name, Expired: a.Expired})
	}
	return artifacts, nil
}

// DownloadArtifact implements ArtifactFetcher, returning the zip bytes.
func (c *GitHubClient) DownloadArtifact(ctx context.Context, repo Repo, artifactID int64) ([]byte, error) {
	path := fmt.Sprintf("/repos/%s/%s/actions/artifacts/%d/zip",
		url.PathEscape(repo.Owner), url.PathEscape(repo.Name), artifactID)

	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("downloading artifact: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading artifact body: %w", err)
	}
	return data, nil
}

// ListCheckRuns implements CheckRunWriter's read side for idempotent upserts.
func (c *GitHubClient) ListCheckRuns(ctx context.Context, repo Repo, headSHA, checkName string) ([]CheckRun, error) {
	path := fmt.Sprintf("/repos/%s/%s/commits/%s/check-runs?check_name=%s&per_page=100",
		url.PathEscape(repo.Owner), url.PathEscape(repo.Name), url.PathEscape(headSHA), url.QueryEscape(checkName))

	var response struct {
		CheckRuns []checkRunResponse `json:"check_runs"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &response); err != nil {
		return nil, fmt.Errorf("listing check runs: %w", err)
	}

	runs := make([]CheckRun, 0, len(response.CheckRuns))
	for _, cr := range response.CheckRuns {
		runs = append(runs, cr.toCheckRun())
	}
	return runs, nil
}

// CreateCheckRun implements CheckRunWriter.
func (c *GitHubClient) CreateCheckRun(ctx context.Context, repo Repo, params CheckRunParams) (CheckRun, error) {
	path := fmt.Sprintf("/repos/%s/%s/check-runs", url.PathEscape(repo.Owner), url.PathEscape(repo.Name))

	var response checkRunResponse
	if err := c.doJSON(ctx, http.MethodPost, path, checkRunRequest(params), &response); err != nil {
		return CheckRun{}, fmt.Errorf("creating check run: %w", err)
	}
	return response.toCheckRun(), nil
}

// UpdateCheckRun implements CheckRunWriter.
func (c *GitHubClient) UpdateCheckRun(ctx context.Context, repo Repo, id int64, params CheckRunParams) (CheckRun, error) {
	path := fmt.Sprintf("/repos/%s/%s/check-runs/%d", url.PathEscape(repo.Owner), url.PathEscape(repo.Name), id)

	var response checkRunResponse
	if err := c.doJSON(ctx, http.MethodPatch, path, checkRunRequest(params), &response); err != nil {
		return CheckRun{}, fmt.Errorf("updating check run: %w", err)
	}
	return response.toCheckRun(), nil
}

// checkRunResponse mirrors the subset of the API check-run object we use.
type checkRunResponse struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	HeadSHA    string `json:"head_sha"`
	Status     string `json:"status"`
	Conclusion string `json:"conclusion"`
}

func (r checkRunResponse) toCheckRun() CheckRun {
	return CheckRun{
		ID:         r.ID,
		Name:       r.Name,
		HeadSHA:    r.HeadSHA,
		Status:     r.Status,
		Conclusion: r.Conclusion,
	}
}

// checkRunRequest renders params as the API's check-run body.
func checkRunRequest(params CheckRunParams) map[string]any {
	body := map[string]any{
		"name":     params.Name,
		"head_sha": params.HeadSHA,
		"status":   params.Status,
		"output": map[string]any{
			"title":   params.Title,
			"summary": params.Summary,
		},
	}
	if params.Conclusion != "" {
		body["conclusion"] = params.Conclusion
	}
	return body
}

// doJSON performs a request and decodes a JSON response into out.
func (c *GitHubClient) doJSON(ctx context.Context, method, path string, body any, out any) error {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		// A 2xx with an undecodable body is a permanent failure, not a retryable one
		return &APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("decoding response: %v", err)}
	}
	return nil
}

// do performs a request, mapping non-2xx responses to APIError.
func (c *GitHubClient) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling %s %s: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		message, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &APIError{StatusCode: resp.StatusCode, Message: string(message)}
	}
	return resp, nil
}
