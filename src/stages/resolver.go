// Package stages turns raw Jenkins build data into dashboard snapshots.
package stages

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"jenkins-monitor/src/loganalyzer"
	"jenkins-monitor/src/logger"
	"jenkins-monitor/src/provider"
)

// Build statuses reported in a snapshot.
const (
	StatusSuccess    = "SUCCESS"
	StatusFailure    = "FAILURE"
	StatusAborted    = "ABORTED"
	StatusUnstable   = "UNSTABLE"
	StatusUnknown    = "UNKNOWN"
	StatusInProgress = "IN_PROGRESS"
)

// RecentLimit is how many builds a job listing resolves.
const RecentLimit = 5

// recentConcurrency bounds the outbound calls of one RecentBuilds request.
const recentConcurrency = 3

// failedStageStatuses are the stage statuses that count as a failure when
// picking from the structured stage list. UNSTABLE is included here even though
// an UNSTABLE build is not failure-class.
var failedStageStatuses = map[string]bool{
	"FAILED":   true,
	"FAILURE":  true,
	"ABORTED":  true,
	"UNSTABLE": true,
}

// BuildSnapshot is the dashboard view of one build.
// CurrentStage and FailedStage are never both set.
type BuildSnapshot struct {
	BuildNumber  int    `json:"buildNumber"`
	Status       string `json:"status"`
	Timestamp    int64  `json:"timestamp"`
	Duration     *int64 `json:"duration,omitempty"`
	Building     bool   `json:"building"`
	CurrentStage string `json:"currentStage,omitempty"`
	FailedStage  string `json:"failedStage,omitempty"`
}

// ConsoleTextFunc lazily fetches the console text of the build being resolved.
type ConsoleTextFunc func(ctx context.Context) (string, error)

// Fetcher is the slice of provider.Provider the resolver needs.
type Fetcher interface {
	RecentBuilds(ctx context.Context, job string, limit int) ([]int, error)
	FetchBuildMetadata(ctx context.Context, job string, number int) (*provider.BuildMetadata, error)
	FetchStageList(ctx context.Context, job string, number int) ([]provider.StageRecord, error)
	FetchConsoleText(ctx context.Context, job string, number int) (string, error)
}

// Status derives the snapshot status from raw metadata. Results are
// upper-cased so every status is one of the Status constants' spellings.
func Status(build provider.BuildMetadata) string {
	if build.Result != "" {
		return strings.ToUpper(build.Result)
	}
	if build.Building {
		return StatusInProgress
	}
	return StatusUnknown
}

// IsFailureClass reports whether a build status should carry a failed stage.
func IsFailureClass(status string) bool {
	s := strings.ToUpper(status)
	return s == StatusFailure || s == StatusAborted
}

// PickFailedStageFromStages returns the last failed stage of the list.
// Synthetic declarative stages are ignored unless nothing else is named.
func PickFailedStageFromStages(stages []provider.StageRecord) (string, bool) {
	var named, real []provider.StageRecord
	for _, s := range stages {
		if s.Name == "" {
			continue
		}
		named = append(named, s)
		if !loganalyzer.IsSyntheticStage(s.Name) {
			real = append(real, s)
		}
	}

	candidates := real
	if len(candidates) == 0 {
		candidates = named
	}

	for i := len(candidates) - 1; i >= 0; i-- {
		if failedStageStatuses[strings.ToUpper(candidates[i].Status)] {
			return candidates[i].Name, true
		}
	}
	return "", false
}

// Resolve builds the snapshot for one build. console is only called for
// failure-class builds, and a console error counts as no text.
func Resolve(ctx context.Context, build provider.BuildMetadata, stages []provider.StageRecord, console ConsoleTextFunc) BuildSnapshot {
	snap := BuildSnapshot{
		BuildNumber: build.Number,
		Status:      Status(build),
		Timestamp:   build.Timestamp,
		Building:    build.Building,
	}
	if snap.Status != StatusInProgress {
		d := build.Duration
		snap.Duration = &d
	}

	if build.Building {
		for _, s := range stages {
			if strings.EqualFold(s.Status, StatusInProgress) {
				snap.CurrentStage = s.Name
				break
			}
		}
		return snap
	}

	if !IsFailureClass(snap.Status) {
		return snap
	}

	if console != nil {
		if text, err := console(ctx); err == nil && text != "" {
			if name, ok := loganalyzer.FindFailedStage(text); ok {
				snap.FailedStage = name
				return snap
			}
		}
	}

	if name, ok := PickFailedStageFromStages(stages); ok {
		snap.FailedStage = name
	}
	return snap
}

// Resolver fetches build data and resolves snapshots.
type Resolver struct {
	fetcher Fetcher
	log     logger.Logger
}

// NewResolver creates a resolver over fetcher.
func NewResolver(fetcher Fetcher, log logger.Logger) *Resolver {
	if log == nil {
		log = logger.NewSilentLogger()
	}
	return &Resolver{fetcher: fetcher, log: log}
}

// Build resolves one build. The only error is unavailable metadata; stage list
// and console failures degrade to empty values.
func (r *Resolver) Build(ctx context.Context, job string, number int) (BuildSnapshot, error) {
	meta, err := r.fetcher.FetchBuildMetadata(ctx, job, number)
	if err != nil {
		return BuildSnapshot{}, err
	}

	var stageList []provider.StageRecord
	if meta.Building || IsFailureClass(Status(*meta)) {
		stageList, err = r.fetcher.FetchStageList(ctx, job, number)
		if err != nil {
			r.log.Warn("stage list unavailable for %s #%d: %v", job, number, err)
			stageList = nil
		}
	}

	console := func(ctx context.Context) (string, error) {
		text, err := r.fetcher.FetchConsoleText(ctx, job, number)
		if err != nil {
			r.log.Warn("console text unavailable for %s #%d: %v", job, number, err)
			return "", err
		}
		return text, nil
	}

	snap := Resolve(ctx, *meta, stageList, console)
	r.log.Debug("resolved %s #%d: status=%s current=%q failed=%q",
		job, number, snap.Status, snap.CurrentStage, snap.FailedStage)
	return snap, nil
}

// RecentBuilds resolves the most recent builds of job, newest first.
// Builds that cannot be resolved are skipped.
func (r *Resolver) RecentBuilds(ctx context.Context, job string) ([]BuildSnapshot, error) {
	numbers, err := r.fetcher.RecentBuilds(ctx, job, RecentLimit)
	if err != nil {
		return nil, err
	}
	if len(numbers) > RecentLimit {
		numbers = numbers[:RecentLimit]
	}

	results := make([]*BuildSnapshot, len(numbers))
	var g errgroup.Group
	g.SetLimit(recentConcurrency)
	for i, n := range numbers {
		g.Go(func() error {
			snap, err := r.Build(ctx, job, n)
			if err != nil {
				r.log.Warn("skipping %s #%d: %v", job, n, err)
				return nil
			}
			results[i] = &snap
			return nil
		})
	}
	_ = g.Wait()

	snaps := make([]BuildSnapshot, 0, len(results))
	for _, s := range results {
		if s != nil {
			snaps = append(snaps, *s)
		}
	}
	return snaps, nil
}
