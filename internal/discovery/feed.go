package discovery

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog/log"
	"github.com/user/ytlive-tracker-go/internal/model"
)

const (
	feedURLTemplate = "https://www.youtube.com/feeds/videos.xml?channel_id=%s"
	feedSource      = "yt"
	feedTimeout     = 30 * time.Second
)

// Publisher emits domain events toward the persistence consumer.
type Publisher interface {
	PublishSaveVideos(videos []*model.Video)
}

// FeedDiscovery polls per-channel Atom feeds for videos the tracker has not
// seen yet. It is the incremental, low-latency half of discovery.
type FeedDiscovery struct {
	parser *gofeed.Parser
	cache  *FeedCache
	bus    Publisher
	now    Clock

	// FeedURL overrides the feed endpoint, for tests.
	FeedURL string
}

// NewFeedDiscovery creates a feed poller backed by cache and bus. A nil
// clock defaults to time.Now.
func NewFeedDiscovery(cache *FeedCache, bus Publisher, clock Clock) *FeedDiscovery {
	if clock == nil {
		clock = time.Now
	}
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: feedTimeout}
	return &FeedDiscovery{
		parser:  parser,
		cache:   cache,
		bus:     bus,
		now:     clock,
		FeedURL: feedURLTemplate,
	}
}

// Poll fetches one channel's feed and emits a save-videos event for the
// entries strictly newer than the cached timestamp. Fetch or parse failures
// are logged and yield zero so one channel cannot block a sweep.
func (d *FeedDiscovery) Poll(ctx context.Context, channelID, group string) int {
	feed, err := d.parser.ParseURLWithContext(fmt.Sprintf(d.FeedURL, channelID), ctx)
	if err != nil {
		log.Warn().Err(err).Str("channelId", channelID).Msg("Feed fetch failed")
		return 0
	}

	videos := d.mapEntries(feed, channelID, group)
	if len(videos) == 0 {
		log.Warn().Str("channelId", channelID).Msg("Feed returned no entries")
		return 0
	}

	// Newest first; the head entry carries the timestamp the cache advances to.
	sort.Slice(videos, func(i, j int) bool {
		return videos[i].CrawledAt.After(videos[j].CrawledAt)
	})

	key := CacheKey(feedSource, channelID)
	latest := d.cache.Get(key)

	newVideos := make([]*model.Video, 0, len(videos))
	for _, v := range videos {
		if v.CrawledAt.After(latest) {
			newVideos = append(newVideos, v)
		}
	}
	if len(newVideos) == 0 {
		log.Debug().Str("channelId", channelID).Msg("No new feed entries")
		return 0
	}

	d.cache.Set(key, newVideos[0].CrawledAt)

	log.Info().
		Str("channelId", channelID).
		Int("entries", len(videos)).
		Int("new", len(newVideos)).
		Msg("Feed poll found new videos")

	d.bus.PublishSaveVideos(newVideos)
	return len(newVideos)
}

// mapEntries converts feed items to candidate records. Entries without a
// video id or published time are skipped, not fatal.
func (d *FeedDiscovery) mapEntries(feed *gofeed.Feed, channelID, group string) []*model.Video {
	now := d.now()
	videos := make([]*model.Video, 0, len(feed.Items))
	for _, item := range feed.Items {
		videoID := ytExtension(item, "videoId")
		if videoID == "" || item.PublishedParsed == nil {
			continue
		}

		entryChannel := ytExtension(item, "channelId")
		if entryChannel == "" {
			entryChannel = channelID
		}

		published := *item.PublishedParsed
		videos = append(videos, &model.Video{
			ID:          videoID,
			PlatformID:  "yt",
			ChannelID:   entryChannel,
			Group:       group,
			Title:       item.Title,
			Thumbnail:   entryThumbnail(item),
			Status:      model.StatusNew,
			Archived:    false,
			PublishedAt: &published,
			// Feed entries enter tracking stamped with their published
			// time, so refresh ordering follows publication order.
			CrawledAt: published,
			UpdatedAt: now,
		})
	}
	return videos
}

// ytExtension reads a yt-namespace extension value from a feed item.
func ytExtension(item *gofeed.Item, name string) string {
	exts, ok := item.Extensions["yt"]
	if !ok {
		return ""
	}
	values, ok := exts[name]
	if !ok || len(values) == 0 {
		return ""
	}
	return values[0].Value
}

// entryThumbnail digs the media:group thumbnail URL out of a feed item.
func entryThumbnail(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	groups, ok := item.Extensions["media"]["group"]
	if !ok || len(groups) == 0 {
		return ""
	}
	thumbs, ok := groups[0].Children["thumbnail"]
	if !ok || len(thumbs) == 0 {
		return ""
	}
	return thumbs[0].Attrs["url"]
}
