package youtube

import (
	"time"

	"github.com/user/ytlive-tracker-go/internal/model"
	"google.golang.org/api/youtube/v3"
)

// Classify derives the lifecycle state from a video's live-streaming details.
// Total over its input: every shape of details maps to exactly one state.
func Classify(details *youtube.VideoLiveStreamingDetails) model.VideoStatus {
	if details == nil {
		return model.StatusUploaded
	}
	if details.ActualEndTime != "" {
		return model.StatusEnded
	}
	if details.ActualStartTime != "" {
		return model.StatusLive
	}
	return model.StatusUpcoming
}

// MapVideo converts a Data API video item into a canonical record. Partially
// populated payloads degrade to absent fields, never to a panic.
func MapVideo(item *youtube.Video, group string, now time.Time) *model.Video {
	video := &model.Video{
		ID:         item.Id,
		PlatformID: "yt",
		Group:      group,
		Status:     Classify(item.LiveStreamingDetails),
		Archived:   false,
		CrawledAt:  now,
		UpdatedAt:  now,
	}

	if snippet := item.Snippet; snippet != nil {
		video.ChannelID = snippet.ChannelId
		video.Title = snippet.Title
		video.PublishedAt = parseTime(snippet.PublishedAt)
	}

	if details := item.LiveStreamingDetails; details != nil {
		video.ScheduledAt = parseTime(details.ScheduledStartTime)
		video.StartedAt = parseTime(details.ActualStartTime)
		video.EndedAt = parseTime(details.ActualEndTime)
		// A zero viewer count means "not broadcasting", not zero watchers.
		if details.ConcurrentViewers > 0 {
			viewers := int64(details.ConcurrentViewers)
			video.Viewers = &viewers
		}
	}

	return video
}

// MapChannel merges a Data API channel item with its registry seed. Counts
// the platform withholds coerce to 0.
func MapChannel(item *youtube.Channel, seed *model.Channel, now time.Time) *model.Channel {
	channel := &model.Channel{
		ChannelID:  seed.ChannelID,
		PlatformID: "yt",
		Group:      seed.Group,
		Name:       seed.Name,
		Details:    seed.Details,
		CrawledAt:  seed.CrawledAt,
		UpdatedAt:  now,
	}

	if snippet := item.Snippet; snippet != nil {
		channel.ChannelName = snippet.Title
		channel.Description = snippet.Description
		channel.Stats.PublishedAt = parseTime(snippet.PublishedAt)
		if snippet.Thumbnails != nil && snippet.Thumbnails.High != nil {
			channel.Thumbnail = snippet.Thumbnails.High.Url
		}
	}

	if stats := item.Statistics; stats != nil {
		channel.Stats.Subscribers = int64(stats.SubscriberCount)
		channel.Stats.Videos = int64(stats.VideoCount)
		channel.Stats.Views = int64(stats.ViewCount)
	}

	return channel
}

// MissingVideos synthesizes minimal missing-state records for requested ids
// absent from the upstream response.
func MissingVideos(requested []string, got []*model.Video) []*model.Video {
	seen := make(map[string]bool, len(got))
	for _, v := range got {
		seen[v.ID] = true
	}

	var missing []*model.Video
	for _, id := range requested {
		if !seen[id] {
			missing = append(missing, &model.Video{
				ID:     id,
				Status: model.StatusMissing,
			})
		}
	}
	return missing
}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}
