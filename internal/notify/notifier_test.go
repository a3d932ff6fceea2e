package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/user/ytlive-tracker-go/internal/model"
)

// scriptedSink returns its scripted errors in order, then nil.
type scriptedSink struct {
	mu     sync.Mutex
	script []error
	sent   []string
}

func (s *scriptedSink) Send(ctx context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, text)
	if len(s.script) == 0 {
		return nil
	}
	err := s.script[0]
	s.script = s.script[1:]
	return err
}

func (s *scriptedSink) Sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}

func newTestNotifier(sink Sink) (*Notifier, *[]string) {
	n := New(sink)
	n.cooldown = 5 * time.Millisecond

	var outcomes []string
	n.OnResult(func(outcome string) {
		outcomes = append(outcomes, outcome)
	})
	return n, &outcomes
}

func TestNotifier_Notify_SendsWatchURLPerVideo(t *testing.T) {
	sink := &scriptedSink{}
	n, outcomes := newTestNotifier(sink)

	n.Notify(context.Background(), []*model.Video{
		{ID: "dQw4w9WgXcQ"},
		{ID: "abc12345678"},
	})

	sent := sink.Sent()
	if len(sent) != 2 {
		t.Fatalf("sent %d messages, want 2", len(sent))
	}
	if sent[0] != "https://www.youtube.com/watch?v=dQw4w9WgXcQ" {
		t.Errorf("sent[0] = %q", sent[0])
	}
	if fmt.Sprint(*outcomes) != "[sent sent]" {
		t.Errorf("outcomes = %v, want [sent sent]", *outcomes)
	}
}

func TestNotifier_Notify_RateLimitedRetriesOnceAfterCooldown(t *testing.T) {
	sink := &scriptedSink{script: []error{fmt.Errorf("webhook: %w", ErrRateLimited)}}
	n, outcomes := newTestNotifier(sink)

	start := time.Now()
	n.Notify(context.Background(), []*model.Video{{ID: "a"}})

	if elapsed := time.Since(start); elapsed < n.cooldown {
		t.Errorf("retry happened after %v, want at least the %v cooldown", elapsed, n.cooldown)
	}
	if len(sink.Sent()) != 2 {
		t.Fatalf("sent %d messages, want original plus one retry", len(sink.Sent()))
	}
	if fmt.Sprint(*outcomes) != "[retried sent]" {
		t.Errorf("outcomes = %v, want [retried sent]", *outcomes)
	}
}

func TestNotifier_Notify_TimeoutRetriesOnce(t *testing.T) {
	sink := &scriptedSink{script: []error{fmt.Errorf("webhook: %w", ErrTimeout)}}
	n, outcomes := newTestNotifier(sink)

	n.Notify(context.Background(), []*model.Video{{ID: "a"}})

	if len(sink.Sent()) != 2 {
		t.Fatalf("sent %d messages, want 2", len(sink.Sent()))
	}
	if fmt.Sprint(*outcomes) != "[retried sent]" {
		t.Errorf("outcomes = %v, want [retried sent]", *outcomes)
	}
}

func TestNotifier_Notify_SecondFailureDropsMessage(t *testing.T) {
	sink := &scriptedSink{script: []error{
		fmt.Errorf("webhook: %w", ErrRateLimited),
		fmt.Errorf("webhook: %w", ErrRateLimited),
	}}
	n, outcomes := newTestNotifier(sink)

	n.Notify(context.Background(), []*model.Video{{ID: "a"}})

	// Exactly one retry, never a second.
	if len(sink.Sent()) != 2 {
		t.Fatalf("sent %d messages, want 2", len(sink.Sent()))
	}
	if fmt.Sprint(*outcomes) != "[retried dropped]" {
		t.Errorf("outcomes = %v, want [retried dropped]", *outcomes)
	}
}

func TestNotifier_Notify_OtherErrorIsFinal(t *testing.T) {
	sink := &scriptedSink{script: []error{errors.New("invalid payload")}}
	n, outcomes := newTestNotifier(sink)

	n.Notify(context.Background(), []*model.Video{{ID: "a"}})

	if len(sink.Sent()) != 1 {
		t.Fatalf("sent %d messages, want 1: non-transient errors are not retried", len(sink.Sent()))
	}
	if fmt.Sprint(*outcomes) != "[dropped]" {
		t.Errorf("outcomes = %v, want [dropped]", *outcomes)
	}
}

func TestNotifier_Notify_FailureDoesNotAbortBatch(t *testing.T) {
	sink := &scriptedSink{script: []error{errors.New("invalid payload")}}
	n, outcomes := newTestNotifier(sink)

	n.Notify(context.Background(), []*model.Video{{ID: "a"}, {ID: "b"}})

	if len(sink.Sent()) != 2 {
		t.Fatalf("sent %d messages, want 2: one drop must not abort the batch", len(sink.Sent()))
	}
	if fmt.Sprint(*outcomes) != "[dropped sent]" {
		t.Errorf("outcomes = %v, want [dropped sent]", *outcomes)
	}
}

func TestNotifier_Notify_NilReceiverAndEmptyBatch(t *testing.T) {
	var n *Notifier
	n.Notify(context.Background(), []*model.Video{{ID: "a"}})

	sink := &scriptedSink{}
	n2, _ := newTestNotifier(sink)
	n2.Notify(context.Background(), nil)
	if len(sink.Sent()) != 0 {
		t.Errorf("sent %d messages, want 0", len(sink.Sent()))
	}
}

func TestNotifier_Notify_CancelledContextStopsRetry(t *testing.T) {
	sink := &scriptedSink{script: []error{
		fmt.Errorf("webhook: %w", ErrRateLimited),
	}}
	n, outcomes := newTestNotifier(sink)
	n.cooldown = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n.Notify(ctx, []*model.Video{{ID: "a"}})

	if len(sink.Sent()) != 0 && len(sink.Sent()) != 1 {
		t.Fatalf("sent %d messages, want at most the first attempt", len(sink.Sent()))
	}
	if fmt.Sprint(*outcomes) != "[dropped]" {
		t.Errorf("outcomes = %v, want [dropped]", *outcomes)
	}
}
