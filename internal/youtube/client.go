package youtube

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const (
	// playlistPageSize is the maxResults cap of playlistItems.list.
	playlistPageSize = 50
	// detailsBatchSize is the id-count cap of videos.list and channels.list.
	// It happens to equal playlistPageSize but is a separate upstream limit.
	detailsBatchSize = 50
)

// DetailsBatchSize is the maximum number of ids a single details lookup accepts.
func DetailsBatchSize() int { return detailsBatchSize }

// Client wraps the YouTube Data API v3 endpoints the tracker consumes.
type Client struct {
	svc *youtube.Service
}

// NewClient creates an API-key authenticated Data API client.
func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key required")
	}

	svc, err := youtube.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}

	return &Client{svc: svc}, nil
}

// UploadsPlaylistID derives the uploads playlist id from a channel id.
// YouTube exposes a channel's full backlog as playlist "UU" + the channel id
// without its "UC" prefix.
func UploadsPlaylistID(channelID string) string {
	if strings.HasPrefix(channelID, "UC") {
		return "UU" + channelID[2:]
	}
	return channelID
}

// PlaylistPage fetches one page of video ids from a playlist. An empty next
// token means the listing is exhausted.
func (c *Client) PlaylistPage(ctx context.Context, playlistID, pageToken string) (ids []string, next string, err error) {
	call := c.svc.PlaylistItems.List([]string{"snippet"}).
		PlaylistId(playlistID).
		MaxResults(playlistPageSize).
		Fields(googleapi.Field("nextPageToken,items(snippet(channelId,title,resourceId/videoId))")).
		Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	resp, err := call.Do()
	if err != nil {
		return nil, "", fmt.Errorf("list playlist %s: %w", playlistID, err)
	}

	ids = make([]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Snippet == nil || item.Snippet.ResourceId == nil {
			continue
		}
		ids = append(ids, item.Snippet.ResourceId.VideoId)
	}
	return ids, resp.NextPageToken, nil
}

// VideoDetails fetches snippet and live-streaming details for up to 50 ids.
func (c *Client) VideoDetails(ctx context.Context, ids []string) ([]*youtube.Video, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > detailsBatchSize {
		return nil, fmt.Errorf("videos lookup limited to %d ids, got %d", detailsBatchSize, len(ids))
	}

	resp, err := c.svc.Videos.List([]string{"snippet", "liveStreamingDetails"}).
		Id(ids...).
		Fields(googleapi.Field("items(id,snippet(channelId,title,publishedAt),liveStreamingDetails(scheduledStartTime,actualStartTime,actualEndTime,concurrentViewers))")).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	return resp.Items, nil
}

// ChannelDetails fetches snippet and statistics for up to 50 channel ids.
func (c *Client) ChannelDetails(ctx context.Context, ids []string) ([]*youtube.Channel, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > detailsBatchSize {
		return nil, fmt.Errorf("channels lookup limited to %d ids, got %d", detailsBatchSize, len(ids))
	}

	resp, err := c.svc.Channels.List([]string{"snippet", "statistics"}).
		Id(ids...).
		Fields(googleapi.Field("items(id,snippet(title,publishedAt,description,thumbnails/high/url),statistics(subscriberCount,videoCount,viewCount))")).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	return resp.Items, nil
}
