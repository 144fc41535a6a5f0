package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"jenkins-monitor/src/contracts"
)

func receive(t *testing.T, ch <-chan Message) Message {
	t.Helper()
	select {
	case msg, ok := <-ch:
		if !ok {
			t.Fatal("channel closed before a message arrived")
		}
		return msg
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
	return Message{}
}

func TestInMemoryBroker_FailureEventRoundTrip(t *testing.T) {
	b := NewInMemoryBroker()
	defer b.Close()
	ctx := context.Background()

	ch, err := b.Subscribe(ctx, contracts.TopicBuildFailures, "events")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	want := contracts.StageFailureEvent{
		ID:             "7f3c",
		Source:         "jenkins",
		Job:            "team/api",
		BuildNumber:    42,
		Status:         "FAILURE",
		FailedStage:    "Unit Tests",
		FailingCommand: "go test ./...",
		Timestamp:      1700000000000,
		DetectedAt:     "2026-01-02T03:04:05Z",
	}
	data, _ := json.Marshal(want)
	if err := b.Publish(ctx, contracts.TopicBuildFailures, want.Job, data); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	msg := receive(t, ch)
	if msg.Topic != contracts.TopicBuildFailures || msg.Key != "team/api" {
		t.Errorf("message = %s/%s, want %s/team/api", msg.Topic, msg.Key, contracts.TopicBuildFailures)
	}
	var got contracts.StageFailureEvent
	if err := json.Unmarshal(msg.Value, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got != want {
		t.Errorf("event = %+v, want %+v", got, want)
	}
}

func TestInMemoryBroker_EverySubscriberGetsEveryMessage(t *testing.T) {
	b := NewInMemoryBroker()
	defer b.Close()
	ctx := context.Background()

	// The in-memory broker has no consumer groups: sharing a group still fans out.
	watchers := make([]<-chan Message, 0, 3)
	for _, group := range []string{"dashboard", "events", "events"} {
		ch, err := b.Subscribe(ctx, contracts.TopicBuildFailures, group)
		if err != nil {
			t.Fatalf("Subscribe(%s) error = %v", group, err)
		}
		watchers = append(watchers, ch)
	}

	if err := b.Publish(ctx, contracts.TopicBuildFailures, "backend", []byte(`{"job":"backend"}`)); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	for i, ch := range watchers {
		if msg := receive(t, ch); msg.Key != "backend" {
			t.Errorf("subscriber %d key = %q, want backend", i, msg.Key)
		}
	}
}

func TestInMemoryBroker_ClosedBroker(t *testing.T) {
	b := NewInMemoryBroker()
	b.Close()
	ctx := context.Background()

	if err := b.Publish(ctx, contracts.TopicBuildFailures, "backend", nil); !errors.Is(err, ErrClosed) {
		t.Errorf("Publish() error = %v, want ErrClosed", err)
	}
	if _, err := b.Subscribe(ctx, contracts.TopicBuildFailures, "events"); !errors.Is(err, ErrClosed) {
		t.Errorf("Subscribe() error = %v, want ErrClosed", err)
	}
}

func TestInMemoryBroker_PublishHonorsContext(t *testing.T) {
	b := NewInMemoryBroker()
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := b.Publish(ctx, contracts.TopicBuildFailures, "backend", nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Publish() error = %v, want context.Canceled", err)
	}
}
