package discovery

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/user/ytlive-tracker-go/internal/model"
	apiyt "github.com/user/ytlive-tracker-go/internal/youtube"
	"google.golang.org/api/youtube/v3"
)

// VideoAPI is the slice of the Data API client playlist discovery consumes.
type VideoAPI interface {
	PlaylistPage(ctx context.Context, playlistID, pageToken string) (ids []string, next string, err error)
	VideoDetails(ctx context.Context, ids []string) ([]*youtube.Video, error)
}

// PlaylistDiscovery walks a channel's uploads playlist exhaustively and
// emits every video in a single save-videos event. Discovery is
// all-or-nothing per channel: any page or details failure aborts the run
// with nothing persisted, and the next scheduled run is the retry.
type PlaylistDiscovery struct {
	api VideoAPI
	bus Publisher
	now Clock
}

// NewPlaylistDiscovery creates a playlist walker. A nil clock defaults to
// time.Now.
func NewPlaylistDiscovery(api VideoAPI, bus Publisher, clock Clock) *PlaylistDiscovery {
	if clock == nil {
		clock = time.Now
	}
	return &PlaylistDiscovery{api: api, bus: bus, now: clock}
}

// Discover paginates the channel's uploads playlist, fanning out one details
// fetch per page, and returns the number of videos emitted. An empty
// playlist is success with count 0.
func (d *PlaylistDiscovery) Discover(ctx context.Context, channelID, group string) (int, error) {
	playlistID := apiyt.UploadsPlaylistID(channelID)
	log.Info().Str("channelId", channelID).Str("playlistId", playlistID).Msg("Scraping channel backlog")

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		pages    [][]*model.Video
		fetchErr error
	)

	// fetchPage resolves full details for one page's ids in the background.
	fetchPage := func(page int, ids []string) {
		defer wg.Done()

		items, err := d.api.VideoDetails(ctx, ids)

		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			if fetchErr == nil {
				fetchErr = err
			}
			return
		}

		now := d.now()
		videos := make([]*model.Video, 0, len(items))
		for _, item := range items {
			videos = append(videos, apiyt.MapVideo(item, group, now))
		}
		pages[page] = videos
	}

	pageToken := ""
	for page := 0; ; page++ {
		ids, next, err := d.api.PlaylistPage(ctx, playlistID, pageToken)
		if err != nil {
			log.Error().Err(err).Str("playlistId", playlistID).Msg("Playlist page fetch failed")
			wg.Wait()
			return 0, err
		}

		mu.Lock()
		pages = append(pages, nil)
		mu.Unlock()

		if len(ids) > 0 {
			wg.Add(1)
			go fetchPage(page, ids)
		}

		if next == "" {
			break
		}
		pageToken = next
	}

	wg.Wait()

	if fetchErr != nil {
		log.Error().Err(fetchErr).Str("channelId", channelID).Msg("Video details fetch failed, dropping run")
		return 0, fetchErr
	}

	var all []*model.Video
	for _, videos := range pages {
		all = append(all, videos...)
	}

	if len(all) == 0 {
		log.Info().Str("channelId", channelID).Msg("Channel backlog is empty")
		return 0, nil
	}

	log.Info().Str("channelId", channelID).Int("count", len(all)).Msg("Channel backlog scraped")

	d.bus.PublishSaveVideos(all)
	return len(all), nil
}
