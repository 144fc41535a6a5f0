package main

import (
	"context"
	"sync"

	"jenkins-monitor/src/provider"
)

// fakeProvider serves builds from memory. Tests mutate builds between polls.
type fakeProvider struct {
	mu       sync.Mutex
	numbers  []int
	builds   map[int]*provider.BuildMetadata
	stages   map[int][]provider.StageRecord
	consoles map[int]string
	params   *provider.JobParameters
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		builds:   make(map[int]*provider.BuildMetadata),
		stages:   make(map[int][]provider.StageRecord),
		consoles: make(map[int]string),
	}
}

func (f *fakeProvider) set(meta provider.BuildMetadata, stages []provider.StageRecord, console string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.builds[meta.Number]; !ok {
		f.numbers = append([]int{meta.Number}, f.numbers...)
	}
	m := meta
	f.builds[meta.Number] = &m
	f.stages[meta.Number] = stages
	f.consoles[meta.Number] = console
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) ParseURL(url string) (*provider.BuildRef, error) {
	return provider.ParseURL(url)
}

func (f *fakeProvider) ListJobs(ctx context.Context) ([]provider.Job, error) {
	return []provider.Job{{Name: "backend"}}, nil
}

func (f *fakeProvider) RecentBuilds(ctx context.Context, job string, limit int) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if job != "backend" {
		return nil, provider.ErrJobNotFound
	}
	out := append([]int(nil), f.numbers...)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeProvider) FetchBuildMetadata(ctx context.Context, job string, number int) (*provider.BuildMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.builds[number]
	if !ok {
		return nil, provider.ErrBuildNotFound
	}
	m := *b
	return &m, nil
}

func (f *fakeProvider) FetchStageList(ctx context.Context, job string, number int) ([]provider.StageRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stages[number], nil
}

func (f *fakeProvider) FetchConsoleText(ctx context.Context, job string, number int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	text, ok := f.consoles[number]
	if !ok {
		return "", provider.ErrBuildNotFound
	}
	return text, nil
}

func (f *fakeProvider) FetchJobParameters(ctx context.Context, job string) (*provider.JobParameters, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if job != "backend" {
		return nil, provider.ErrJobNotFound
	}
	if f.params == nil {
		return provider.NoParameters(), nil
	}
	return f.params, nil
}
