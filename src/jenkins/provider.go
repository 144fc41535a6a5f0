package jenkins

import (
	"context"
	"fmt"

	"jenkins-monitor/src/provider"
	"jenkins-monitor/src/sanitize"
)

func init() {
	// Register the Jenkins provider factory
	provider.RegisterProvider("jenkins", func(creds provider.Credentials) provider.Provider {
		return NewProvider(creds)
	})
}

// Provider implements provider.Provider for Jenkins
type Provider struct {
	client *Client
}

// NewProvider creates a Jenkins provider from credentials
func NewProvider(creds provider.Credentials) *Provider {
	client := NewClient(creds.BaseURL, creds.Username, creds.Token)
	client.SetTimeoutCap(creds.Timeout)
	return &Provider{client: client}
}

// Name returns "jenkins"
func (p *Provider) Name() string {
	return "jenkins"
}

// ParseURL delegates to provider.ParseURL
func (p *Provider) ParseURL(url string) (*provider.BuildRef, error) {
	return provider.ParseURL(url)
}

// ListJobs returns the server's top-level jobs
func (p *Provider) ListJobs(ctx context.Context) ([]provider.Job, error) {
	entries, err := p.client.GetJobs(ctx)
	if err != nil {
		return nil, err
	}

	jobs := make([]provider.Job, 0, len(entries))
	for _, e := range entries {
		jobs = append(jobs, provider.Job{Name: e.Name, URL: e.URL, Color: e.Color})
	}
	return jobs, nil
}

// RecentBuilds returns up to limit build numbers, newest first
func (p *Provider) RecentBuilds(ctx context.Context, job string, limit int) ([]int, error) {
	detail, err := p.client.GetJob(ctx, job)
	if err != nil {
		return nil, err
	}

	builds := detail.Builds
	if limit > 0 && len(builds) > limit {
		builds = builds[:limit]
	}
	numbers := make([]int, 0, len(builds))
	for _, b := range builds {
		numbers = append(numbers, b.Number)
	}
	return numbers, nil
}

// FetchBuildMetadata retrieves a build's result and timing
func (p *Provider) FetchBuildMetadata(ctx context.Context, job string, number int) (*provider.BuildMetadata, error) {
	b, err := p.client.GetBuild(ctx, job, number)
	if err != nil {
		return nil, err
	}

	meta := &provider.BuildMetadata{
		Number:    b.Number,
		Building:  b.Building,
		Timestamp: b.Timestamp,
		Duration:  b.Duration,
	}
	if b.Result != nil {
		meta.Result = *b.Result
	}
	return meta, nil
}

// FetchStageList retrieves the workflow stages in execution order
func (p *Provider) FetchStageList(ctx context.Context, job string, number int) ([]provider.StageRecord, error) {
	run, err := p.client.GetWorkflowRun(ctx, job, number)
	if err != nil {
		return nil, err
	}

	stages := make([]provider.StageRecord, 0, len(run.Stages))
	for _, s := range run.Stages {
		stages = append(stages, provider.StageRecord{Name: s.Name, Status: s.Status})
	}
	return stages, nil
}

// FetchConsoleText retrieves the console log with annotations and colors removed
func (p *Provider) FetchConsoleText(ctx context.Context, job string, number int) (string, error) {
	text, err := p.client.GetConsoleText(ctx, job, number)
	if err != nil {
		return "", err
	}
	return sanitize.Clean(text), nil
}

// FetchJobParameters retrieves the job's parameter definitions
func (p *Provider) FetchJobParameters(ctx context.Context, job string) (*provider.JobParameters, error) {
	defs, ok, err := p.client.GetJobParameters(ctx, job)
	if err != nil {
		return nil, err
	}
	if !ok {
		return provider.NoParameters(), nil
	}

	params := make([]provider.JobParameter, 0, len(defs))
	for _, d := range defs {
		param := provider.JobParameter{
			Name:        d.Name,
			Type:        d.Type,
			Description: d.Description,
			Choices:     d.Choices,
		}
		if param.Type == "" {
			param.Type = d.Class
		}
		if d.DefaultParameterValue != nil {
			param.DefaultValue = defaultText(d.DefaultParameterValue.Value)
		}
		if param.Choices == nil {
			param.Choices = []string{}
		}
		params = append(params, param)
	}
	return &provider.JobParameters{HasParameters: true, Parameters: params}, nil
}

// defaultText renders a default value. Empty, false and zero defaults read as "".
func defaultText(v interface{}) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if v {
			return "true"
		}
		return ""
	case float64:
		if v == 0 {
			return ""
		}
		return fmt.Sprint(v)
	}
	return fmt.Sprint(v)
}
