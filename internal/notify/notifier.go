package notify

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/user/ytlive-tracker-go/internal/model"
	"golang.org/x/time/rate"
)

var (
	// ErrRateLimited marks a delivery the sink refused for pacing reasons.
	ErrRateLimited = errors.New("notification rate limited")
	// ErrTimeout marks a delivery that timed out in transit.
	ErrTimeout = errors.New("notification timed out")
)

// retryCooldown is how long to wait before the single retry of a
// rate-limited or timed-out delivery.
const retryCooldown = 5 * time.Second

// Sink delivers one outbound message. Implementations classify their
// transport's pacing and timeout failures as ErrRateLimited / ErrTimeout.
type Sink interface {
	Send(ctx context.Context, text string) error
}

// Notifier announces newly-inserted videos to the outbound sink. It must
// only ever see videos whose insert actually happened; refreshed duplicates
// never reach it.
type Notifier struct {
	sink     Sink
	limiter  *rate.Limiter
	cooldown time.Duration

	// onResult, when set, observes the outcome of each delivery ("sent",
	// "retried", "dropped"). Used to feed metrics.
	onResult func(outcome string)
}

// New creates a notifier over sink.
func New(sink Sink) *Notifier {
	return &Notifier{
		sink: sink,
		// Global outbound cap, well under every sink's own limit.
		limiter:  rate.NewLimiter(rate.Limit(30), 1),
		cooldown: retryCooldown,
	}
}

// OnResult registers a delivery outcome observer.
func (n *Notifier) OnResult(fn func(outcome string)) {
	n.onResult = fn
}

// Notify sends one message per video. Failures after the bounded retry are
// logged and dropped; a bad delivery never aborts the rest of the batch.
func (n *Notifier) Notify(ctx context.Context, videos []*model.Video) {
	if n == nil || len(videos) == 0 {
		return
	}

	for _, video := range videos {
		if err := n.deliver(ctx, video.WatchURL()); err != nil {
			log.Error().Err(err).Str("videoId", video.ID).Msg("Notification dropped")
			n.observe("dropped")
			continue
		}
		n.observe("sent")
	}
}

// deliver sends one message, retrying exactly once after a cooldown when the
// sink reports a rate limit or timeout. Any other error is final.
func (n *Notifier) deliver(ctx context.Context, text string) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return err
	}

	err := n.sink.Send(ctx, text)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrRateLimited):
		log.Warn().Dur("cooldown", n.cooldown).Msg("Sink rate limited, waiting before retry")
	case errors.Is(err, ErrTimeout):
		log.Warn().Dur("cooldown", n.cooldown).Msg("Sink timed out, waiting before retry")
	default:
		return err
	}

	if err := n.wait(ctx); err != nil {
		return err
	}
	n.observe("retried")
	return n.sink.Send(ctx, text)
}

func (n *Notifier) wait(ctx context.Context) error {
	timer := time.NewTimer(n.cooldown)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *Notifier) observe(outcome string) {
	if n.onResult != nil {
		n.onResult(outcome)
	}
}
