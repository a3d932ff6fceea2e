package event

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/user/ytlive-tracker-go/internal/model"
	"github.com/user/ytlive-tracker-go/internal/server"
)

// Gateway is the persistence surface the bus drives.
type Gateway interface {
	ApplySave(ctx context.Context, videos []*model.Video) ([]string, error)
	ApplyUpdate(ctx context.Context, videos []*model.Video) (int, error)
	ApplyChannelUpdate(ctx context.Context, channels []*model.Channel) (int, error)
}

// Notifier announces newly-inserted videos.
type Notifier interface {
	Notify(ctx context.Context, videos []*model.Video)
}

// Bus is the in-process replacement for an event-emitter database manager:
// typed channels decouple discovery and refresh producers from the
// persistence consumer. Delivery is at-least-once per published batch, with
// ordering guaranteed only within a single emission.
type Bus struct {
	gateway  Gateway
	notifier Notifier

	saveCh    chan []*model.Video
	updateCh  chan []*model.Video
	channelCh chan []*model.Channel

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewBus creates a bus over the given gateway and notifier. The notifier may
// be nil when no sink is configured.
func NewBus(gateway Gateway, notifier Notifier) *Bus {
	return &Bus{
		gateway:   gateway,
		notifier:  notifier,
		saveCh:    make(chan []*model.Video, 16),
		updateCh:  make(chan []*model.Video, 16),
		channelCh: make(chan []*model.Channel, 16),
	}
}

// Start launches the consumer loops. ctx bounds the persistence calls.
func (b *Bus) Start(ctx context.Context) {
	b.wg.Add(3)
	go b.consumeSaves(ctx)
	go b.consumeUpdates(ctx)
	go b.consumeChannelUpdates(ctx)
}

// Stop closes the bus and waits until queued batches have been consumed.
// Publishers must be stopped first.
func (b *Bus) Stop() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.saveCh)
	close(b.updateCh)
	close(b.channelCh)
	b.mu.Unlock()

	b.wg.Wait()
}

// PublishSaveVideos queues one discovery batch for idempotent persistence.
func (b *Bus) PublishSaveVideos(videos []*model.Video) {
	if len(videos) == 0 {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		log.Warn().Int("count", len(videos)).Msg("Bus closed, dropping save-videos batch")
		return
	}
	b.saveCh <- videos
}

// PublishUpdateVideos queues one refresh batch for conditional update.
func (b *Bus) PublishUpdateVideos(videos []*model.Video) {
	if len(videos) == 0 {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		log.Warn().Int("count", len(videos)).Msg("Bus closed, dropping update-videos batch")
		return
	}
	b.updateCh <- videos
}

// PublishUpdateChannels queues one channel batch for overwrite.
func (b *Bus) PublishUpdateChannels(channels []*model.Channel) {
	if len(channels) == 0 {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		log.Warn().Int("count", len(channels)).Msg("Bus closed, dropping update-channels batch")
		return
	}
	b.channelCh <- channels
}

func (b *Bus) consumeSaves(ctx context.Context) {
	defer b.wg.Done()
	for videos := range b.saveCh {
		log.Info().Int("count", len(videos)).Msg("Saving videos")

		inserted, err := b.gateway.ApplySave(ctx, videos)
		if err != nil {
			server.CountError("save_videos")
			log.Error().Err(err).Msg("Failed to save videos")
			continue
		}

		log.Info().Int("saved", len(inserted)).Int("duplicates", len(videos)-len(inserted)).Msg("Videos saved")

		// Only records whose insert actually landed get announced; a
		// re-discovered id is a refresh, never a notification.
		if len(inserted) > 0 && b.notifier != nil {
			b.notifier.Notify(ctx, pickByID(videos, inserted))
		}
	}
}

func (b *Bus) consumeUpdates(ctx context.Context) {
	defer b.wg.Done()
	for videos := range b.updateCh {
		log.Info().Int("count", len(videos)).Msg("Updating videos")

		modified, err := b.gateway.ApplyUpdate(ctx, videos)
		if err != nil {
			server.CountError("update_videos")
			log.Error().Err(err).Msg("Failed to update videos")
			continue
		}
		log.Info().Int("modified", modified).Msg("Videos updated")
	}
}

func (b *Bus) consumeChannelUpdates(ctx context.Context) {
	defer b.wg.Done()
	for channels := range b.channelCh {
		log.Info().Int("count", len(channels)).Msg("Updating channels")

		modified, err := b.gateway.ApplyChannelUpdate(ctx, channels)
		if err != nil {
			server.CountError("update_channels")
			log.Error().Err(err).Msg("Failed to update channels")
			continue
		}
		log.Info().Int("modified", modified).Msg("Channels updated")
	}
}

func pickByID(videos []*model.Video, ids []string) []*model.Video {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	picked := make([]*model.Video, 0, len(ids))
	for _, v := range videos {
		if want[v.ID] {
			picked = append(picked, v)
			// One announcement per id, even if the batch repeats it.
			want[v.ID] = false
		}
	}
	return picked
}
