package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"jenkins-monitor/src/broker"
	"jenkins-monitor/src/contracts"
	"jenkins-monitor/src/loganalyzer"
	"jenkins-monitor/src/logger"
	"jenkins-monitor/src/provider"
	"jenkins-monitor/src/stages"
)

var (
	watchInterval time.Duration
	eventsGroup   string
)

// watcher polls a job and turns newly finished failure-class builds into events.
type watcher struct {
	job      string
	fetcher  stages.Fetcher
	resolver *stages.Resolver
	broker   broker.Broker
	log      logger.Logger
	now      func() time.Time

	// done holds the builds of the recent window that were reported or were
	// already terminal when first seen.
	done   map[int]bool
	seeded bool
}

func newWatcher(job string, p provider.Provider, b broker.Broker, log logger.Logger) *watcher {
	return &watcher{
		job:      job,
		fetcher:  p,
		resolver: stages.NewResolver(p, log),
		broker:   b,
		log:      log,
		now:      time.Now,
		done:     make(map[int]bool),
	}
}

// poll resolves the recent builds once and publishes an event for every build
// that reached a failure-class status since the previous poll. Builds that were
// already finished on the first poll are history and are not reported.
// A build is marked done only once its event is published, so a failed publish
// is retried on the next poll.
func (w *watcher) poll(ctx context.Context) ([]contracts.StageFailureEvent, error) {
	numbers, err := w.fetcher.RecentBuilds(ctx, w.job, stages.RecentLimit)
	if err != nil {
		return nil, err
	}
	w.prune(numbers)

	var events []contracts.StageFailureEvent
	for _, n := range numbers {
		if w.done[n] {
			continue
		}
		snap, err := w.resolver.Build(ctx, w.job, n)
		if err != nil {
			w.log.Warn("skipping %s #%d until next poll: %v", w.job, n, err)
			continue
		}
		if snap.Building {
			continue
		}
		if !w.seeded || !stages.IsFailureClass(snap.Status) {
			w.done[n] = true
			continue
		}

		ev := w.event(ctx, snap)
		data, err := json.Marshal(ev)
		if err != nil {
			return events, fmt.Errorf("failed to marshal event: %w", err)
		}
		if err := w.broker.Publish(ctx, contracts.TopicBuildFailures, w.job, data); err != nil {
			return events, fmt.Errorf("failed to publish event: %w", err)
		}
		w.done[n] = true
		w.log.Info("%s #%d %s in stage %q", w.job, n, snap.Status, ev.FailedStage)
		events = append(events, ev)
	}
	w.seeded = true
	return events, nil
}

// prune forgets builds that left the recent window. They are never listed again.
func (w *watcher) prune(numbers []int) {
	listed := make(map[int]bool, len(numbers))
	for _, n := range numbers {
		listed[n] = true
	}
	for n := range w.done {
		if !listed[n] {
			delete(w.done, n)
		}
	}
}

func (w *watcher) event(ctx context.Context, snap stages.BuildSnapshot) contracts.StageFailureEvent {
	ev := contracts.StageFailureEvent{
		ID:          uuid.New().String(),
		Source:      "jenkins",
		Job:         w.job,
		BuildNumber: snap.BuildNumber,
		Status:      snap.Status,
		FailedStage: snap.FailedStage,
		Timestamp:   snap.Timestamp,
		DetectedAt:  w.now().UTC().Format(time.RFC3339),
	}
	if text, err := w.fetcher.FetchConsoleText(ctx, w.job, snap.BuildNumber); err == nil {
		ev.FailingCommand, _ = loganalyzer.FindFailingCommand(text)
	}
	return ev
}

// run polls until ctx is done. Poll errors are logged and retried next tick.
func (w *watcher) run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := w.poll(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.log.Warn("poll %s: %v", w.job, provider.WrapError(err))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// watchCmd publishes failure events for a job
var watchCmd = &cobra.Command{
	Use:   "watch <job>",
	Short: "Poll a job and publish an event whenever a build fails",
	Long: `Poll a job and publish a StageFailureEvent to the jenkins.builds.failures
topic whenever a build finishes with FAILURE or ABORTED.

Events go to Redpanda when REDPANDA_BROKERS is set. Without it they stay in
process and are only logged.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}

		b, err := broker.New(e.cfg.RedpandaBrokers, e.log.With("broker"))
		if err != nil {
			return err
		}
		defer b.Close()

		if len(e.cfg.RedpandaBrokers) == 0 {
			e.log.Warn("REDPANDA_BROKERS not set, events are not shared with other processes")
		}

		e.log.Info("watching %s every %s", args[0], watchInterval)
		return newWatcher(args[0], e.provider, b, e.log.With("watch")).run(cmd.Context(), watchInterval)
	},
}

// eventsCmd prints failure events as they arrive
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Print failure events published by watch",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		if len(e.cfg.RedpandaBrokers) == 0 {
			return fmt.Errorf("REDPANDA_BROKERS environment variable is required for events")
		}

		b, err := broker.NewRedpandaBroker(e.cfg.RedpandaBrokers, e.log.With("broker"))
		if err != nil {
			return err
		}
		defer b.Close()

		ch, err := b.Subscribe(cmd.Context(), contracts.TopicBuildFailures, eventsGroup)
		if err != nil {
			return err
		}
		return printEvents(cmd, ch, e.log)
	},
}

func printEvents(cmd *cobra.Command, ch <-chan broker.Message, log logger.Logger) error {
	out := cmd.OutOrStdout()
	for msg := range ch {
		var ev contracts.StageFailureEvent
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			log.Warn("skipping malformed event at offset %d: %v", msg.Offset, err)
			continue
		}
		if jsonOutput {
			if err := printJSON(out, ev); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintln(out, eventLine(ev))
	}
	return nil
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 30*time.Second, "poll interval")
	eventsCmd.Flags().StringVar(&eventsGroup, "group", "jenkins-monitor-events", "consumer group")
}
