package channels

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/user/ytlive-tracker-go/internal/model"
	apiyt "github.com/user/ytlive-tracker-go/internal/youtube"
	"google.golang.org/api/youtube/v3"
)

// Clock supplies the current time. Injectable for tests.
type Clock func() time.Time

// ChannelAPI is the slice of the Data API client the updater consumes.
type ChannelAPI interface {
	ChannelDetails(ctx context.Context, ids []string) ([]*youtube.Channel, error)
}

// Publisher emits channel batches toward the persistence consumer.
type Publisher interface {
	PublishUpdateChannels(channels []*model.Channel)
}

// Updater refreshes channel names, descriptions and statistics from the
// platform, merging them with the registry seed.
type Updater struct {
	api ChannelAPI
	bus Publisher
	now Clock
}

// NewUpdater creates a channel stats updater. A nil clock defaults to
// time.Now.
func NewUpdater(api ChannelAPI, bus Publisher, clock Clock) *Updater {
	if clock == nil {
		clock = time.Now
	}
	return &Updater{api: api, bus: bus, now: clock}
}

// Run batches channels by the upstream id limit, fetches their details in
// parallel, and emits one update-channels event. A failed batch is logged
// and contributes nothing.
func (u *Updater) Run(ctx context.Context, channels []*model.Channel) int {
	if len(channels) == 0 {
		return 0
	}

	batchSize := apiyt.DetailsBatchSize()
	var batches [][]*model.Channel
	for len(channels) > 0 {
		n := batchSize
		if len(channels) < n {
			n = len(channels)
		}
		batches = append(batches, channels[:n])
		channels = channels[n:]
	}

	results := make([][]*model.Channel, len(batches))

	var wg sync.WaitGroup
	for i, batch := range batches {
		wg.Add(1)
		go func(i int, batch []*model.Channel) {
			defer wg.Done()
			results[i] = u.fetchBatch(ctx, batch)
		}(i, batch)
	}
	wg.Wait()

	var all []*model.Channel
	for _, updated := range results {
		all = append(all, updated...)
	}
	if len(all) == 0 {
		return 0
	}

	log.Info().Int("count", len(all)).Msg("Fetched channel details")

	u.bus.PublishUpdateChannels(all)
	return len(all)
}

func (u *Updater) fetchBatch(ctx context.Context, batch []*model.Channel) []*model.Channel {
	ids := make([]string, 0, len(batch))
	seeds := make(map[string]*model.Channel, len(batch))
	for _, c := range batch {
		ids = append(ids, c.ChannelID)
		seeds[c.ChannelID] = c
	}

	items, err := u.api.ChannelDetails(ctx, ids)
	if err != nil {
		log.Error().Err(err).Int("ids", len(ids)).Msg("Channel details fetch failed")
		return nil
	}

	now := u.now()
	updated := make([]*model.Channel, 0, len(items))
	for _, item := range items {
		seed, ok := seeds[item.Id]
		if !ok {
			continue
		}
		updated = append(updated, apiyt.MapChannel(item, seed, now))
	}
	return updated
}
