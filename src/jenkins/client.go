// Package jenkins provides a client for the Jenkins REST API.
package jenkins

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"jenkins-monitor/src/provider"
)

// Per-call timeouts. Metadata calls stay short so a slow Jenkins cannot stall
// a dashboard request.
const (
	JobsTimeout    = 5 * time.Second
	BuildTimeout   = 3 * time.Second
	StagesTimeout  = 2 * time.Second
	ConsoleTimeout = 5 * time.Second
)

// maxConsoleBytes caps how much console text is read into memory.
const maxConsoleBytes = 16 << 20

// Client is a Jenkins API client authenticating with a user and API token.
type Client struct {
	baseURL    string
	username   string
	token      string
	maxTimeout time.Duration
	httpClient *http.Client
}

// NewClient creates a new Jenkins API client.
func NewClient(baseURL, username, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		username:   username,
		token:      token,
		httpClient: &http.Client{},
	}
}

// SetTimeoutCap lowers every per-call timeout to at most d. Zero removes the cap.
func (c *Client) SetTimeoutCap(d time.Duration) {
	c.maxTimeout = d
}

func (c *Client) timeout(d time.Duration) time.Duration {
	if c.maxTimeout > 0 && c.maxTimeout < d {
		return c.maxTimeout
	}
	return d
}

// JobPath maps a job name to its URL path. Folder jobs written as "team/app"
// become "/job/team/job/app".
func JobPath(job string) string {
	var b strings.Builder
	for _, part := range strings.Split(strings.Trim(job, "/"), "/") {
		if part == "" {
			continue
		}
		b.WriteString("/job/")
		b.WriteString(url.PathEscape(part))
	}
	return b.String()
}

// GetJobs fetches the top-level job list.
func (c *Client) GetJobs(ctx context.Context) ([]JobEntry, error) {
	var list JobList
	if err := c.getJSON(ctx, "/api/json", JobsTimeout, provider.ErrJobNotFound, &list); err != nil {
		return nil, err
	}
	return list.Jobs, nil
}

// GetJob fetches a job with its build history.
func (c *Client) GetJob(ctx context.Context, job string) (*JobDetail, error) {
	var detail JobDetail
	path := JobPath(job) + "/api/json"
	if err := c.getJSON(ctx, path, JobsTimeout, provider.ErrJobNotFound, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// GetJobParameters fetches the parameter definitions of a job. ok is false
// when the job declares no parameters property.
func (c *Client) GetJobParameters(ctx context.Context, job string) (defs []ParameterDefinition, ok bool, err error) {
	detail, err := c.GetJob(ctx, job)
	if err != nil {
		return nil, false, err
	}
	for _, prop := range detail.Property {
		if prop.Class == ParametersPropertyClass && prop.ParameterDefinitions != nil {
			return prop.ParameterDefinitions, true, nil
		}
	}
	return nil, false, nil
}

// GetBuild fetches a build's metadata.
func (c *Client) GetBuild(ctx context.Context, job string, number int) (*Build, error) {
	var build Build
	path := fmt.Sprintf("%s/%d/api/json", JobPath(job), number)
	if err := c.getJSON(ctx, path, BuildTimeout, provider.ErrBuildNotFound, &build); err != nil {
		return nil, err
	}
	return &build, nil
}

// GetWorkflowRun fetches the pipeline stage description of a build.
func (c *Client) GetWorkflowRun(ctx context.Context, job string, number int) (*WorkflowRun, error) {
	var run WorkflowRun
	path := fmt.Sprintf("%s/%d/wfapi/describe", JobPath(job), number)
	if err := c.getJSON(ctx, path, StagesTimeout, provider.ErrBuildNotFound, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// GetConsoleText fetches the raw console log of a build.
func (c *Client) GetConsoleText(ctx context.Context, job string, number int) (string, error) {
	path := fmt.Sprintf("%s/%d/consoleText", JobPath(job), number)

	ctx, cancel := context.WithTimeout(ctx, c.timeout(ConsoleTimeout))
	defer cancel()

	resp, err := c.do(ctx, path, "text/plain", provider.ErrBuildNotFound)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxConsoleBytes))
	if err != nil {
		return "", classify(ctx, fmt.Errorf("failed to read console text: %w", err))
	}
	return string(data), nil
}

func (c *Client) getJSON(ctx context.Context, path string, timeout time.Duration, notFound error, v interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout(timeout))
	defer cancel()

	resp, err := c.do(ctx, path, "application/json", notFound)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return classify(ctx, fmt.Errorf("failed to decode response from %s: %w", path, err))
	}
	return nil
}

// do issues an authenticated GET and maps non-200 statuses to provider errors.
// The caller closes the body on success.
func (c *Client) do(ctx context.Context, path, accept string, notFound error) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.username, c.token)
	req.Header.Set("Accept", accept)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classify(ctx, fmt.Errorf("failed to execute request: %w", err))
	}

	if resp.StatusCode == http.StatusOK {
		return resp, nil
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d from %s", provider.ErrAuthFailed, resp.StatusCode, path)
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", notFound, path)
	}
	return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}

// classify marks deadline failures as ErrNetworkTimeout. Cancellation by the
// caller is passed through unchanged.
func classify(ctx context.Context, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var netErr net.Error
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", provider.ErrNetworkTimeout, err)
	}
	return err
}
