package refresh

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

// CandidateStore selects the persisted videos due for a status refresh.
type CandidateStore interface {
	RefreshCandidates(ctx context.Context, now time.Time) ([]string, error)
}

// DetailsAPI is the slice of the Data API client the selector consumes.
type DetailsAPI interface {
	VideoDetails(ctx context.Context, ids []string) ([]*youtube.Video, error)
}

// Publisher emits refresh batches toward the persistence consumer.
type Publisher interface {
	PublishUpdateVideos(videos []*model.Video)
}

// Selector re-validates tracked videos against the platform: new and live
// videos always, upcoming ones once their scheduled start is near. Ids the
// platform stopped serving transition to missing.
type Selector struct {
	store     CandidateStore
	api       DetailsAPI
	bus       Publisher
	now       Clock
	batchSize int
}

// NewSelector creates a refresh selector. A nil clock defaults to time.Now.
func NewSelector(store CandidateStore, api DetailsAPI, bus Publisher, clock Clock) *Selector {
	if clock == nil {
		clock = time.Now
	}
	return &Selector{
		store:     store,
		api:       api,
		bus:       bus,
		now:       clock,
		batchSize: apiyt.DetailsBatchSize(),
	}
}

// Run selects every eligible video, refetches details in parallel batches of
// the upstream id limit, and emits a single update-videos event. A failed
// batch is logged and skipped without synthesizing missing records for it:
// absence can only be concluded from a successful response.
func (s *Selector) Run(ctx context.Context) (int, error) {
	ids, err := s.store.RefreshCandidates(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		log.Debug().Msg("No videos to refresh")
		return 0, nil
	}

	log.Info().Int("count", len(ids)).Msg("Refreshing videos")

	batches := chunk(ids, s.batchSize)
	results := make([][]*model.Video, len(batches))

	var wg sync.WaitGroup
	for i, batch := range batches {
		wg.Add(1)
		go func(i int, batch []string) {
			defer wg.Done()

			items, err := s.api.VideoDetails(ctx, batch)
			if err != nil {
				log.Error().Err(err).Int("batch", i).Int("ids", len(batch)).Msg("Refresh batch fetch failed")
				return
			}

			now := s.now()
			updates := make([]*model.Video, 0, len(batch))
			for _, item := range items {
				updates = append(updates, apiyt.MapVideo(item, "", now))
			}
			updates = append(updates, apiyt.MissingVideos(batch, updates)...)
			results[i] = updates
		}(i, batch)
	}
	wg.Wait()

	var all []*model.Video
	for _, updates := range results {
		all = append(all, updates...)
	}
	if len(all) == 0 {
		return 0, nil
	}

	log.Info().Int("count", len(all)).Msg("Refreshed videos")

	s.bus.PublishUpdateVideos(all)
	return len(all), nil
}

func chunk(ids []string, size int) [][]string {
	var batches [][]string
	for len(ids) > 0 {
		n := size
		if len(ids) < n {
			n = len(ids)
		}
		batches = append(batches, ids[:n])
		ids = ids[n:]
	}
	return batches
}
