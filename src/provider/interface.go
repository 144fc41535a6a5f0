package provider

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
)

var (
	ErrInvalidURL      = errors.New("invalid build URL")
	ErrProviderUnknown = errors.New("unknown CI provider")
)

// Provider defines the interface for CI server integrations
type Provider interface {
	// Name returns the provider name (e.g., "jenkins")
	Name() string

	// ParseURL extracts a build reference from a build URL
	ParseURL(url string) (*BuildRef, error)

	// ListJobs returns every job visible to the configured credentials
	ListJobs(ctx context.Context) ([]Job, error)

	// RecentBuilds returns up to limit build numbers, newest first
	RecentBuilds(ctx context.Context, job string, limit int) ([]int, error)

	// FetchBuildMetadata retrieves the build's result and timing
	FetchBuildMetadata(ctx context.Context, job string, number int) (*BuildMetadata, error)

	// FetchStageList retrieves the structured stage list in execution order
	FetchStageList(ctx context.Context, job string, number int) ([]StageRecord, error)

	// FetchConsoleText retrieves the raw console log
	FetchConsoleText(ctx context.Context, job string, number int) (string, error)

	// FetchJobParameters retrieves the build parameters a job declares
	FetchJobParameters(ctx context.Context, job string) (*JobParameters, error)
}

// Factory creates a provider from credentials
type Factory func(creds Credentials) Provider

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// RegisterProvider makes a provider factory available under name.
// Provider packages call it from init.
func RegisterProvider(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// GetProvider returns a provider instance for the registered name
func GetProvider(name string, creds Credentials) (Provider, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderUnknown, name)
	}
	return factory(creds), nil
}

// Providers lists registered provider names in sorted order
func Providers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseURL parses a Jenkins build URL of the form
// https://host[/prefix]/job/<a>/job/<b>/<number>[/...] into a build reference.
func ParseURL(rawURL string) (*BuildRef, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %s", ErrInvalidURL, rawURL)
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")

	var jobParts []string
	number := 0
	for i := 0; i < len(segments); i++ {
		if segments[i] == "job" && i+1 < len(segments) {
			name, err := url.PathUnescape(segments[i+1])
			if err != nil {
				return nil, fmt.Errorf("%w: %s", ErrInvalidURL, rawURL)
			}
			jobParts = append(jobParts, name)
			i++
			continue
		}
		if len(jobParts) > 0 {
			n, err := strconv.Atoi(segments[i])
			if err == nil && n > 0 {
				number = n
			}
			break
		}
	}

	if len(jobParts) == 0 || number == 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidURL, rawURL)
	}

	return &BuildRef{
		Provider: "jenkins",
		Job:      strings.Join(jobParts, "/"),
		Number:   number,
	}, nil
}
