package store

import (
	"context"
	"time"

	"github.com/user/ytlive-tracker-go/internal/model"
)

// Store defines the interface for data persistence operations. It is the
// sole writer of the durable video/channel collections; discovery and
// refresh only produce candidate records.
type Store interface {
	// ApplySave upserts videos keyed by id with insert-if-absent semantics:
	// an existing document is never touched. It returns the ids that were
	// newly inserted. A single record's failure is logged and does not
	// abort its siblings.
	ApplySave(ctx context.Context, videos []*model.Video) (inserted []string, err error)

	// ApplyUpdate overwrites, per record, the fields the record carries,
	// keyed by id. Records that change nothing are not counted as modified.
	// It never touches the archived flag or crawl ordering.
	ApplyUpdate(ctx context.Context, videos []*model.Video) (modified int, err error)

	// ApplyChannelUpdate overwrites channel fields keyed by channelId.
	ApplyChannelUpdate(ctx context.Context, channels []*model.Channel) (modified int, err error)

	// SeedChannels inserts registry channels that are not yet tracked.
	SeedChannels(ctx context.Context, channels []*model.Channel) (inserted int, err error)

	// RefreshCandidates returns ids due for a status refresh: new or live,
	// or upcoming with a scheduled time within the next hour. Oldest
	// tracked first.
	RefreshCandidates(ctx context.Context, now time.Time) ([]string, error)

	// ArchiveCandidates returns up to limit unarchived videos in a terminal
	// uploaded/ended state, oldest tracked first.
	ArchiveCandidates(ctx context.Context, limit int) ([]*model.Video, error)

	// MarkArchived flips the archived flag for a single video.
	MarkArchived(ctx context.Context, id string) error

	// Channel reads
	UncrawledChannels(ctx context.Context) ([]*model.Channel, error)
	AllChannels(ctx context.Context) ([]*model.Channel, error)

	// Health check
	CountVideos(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}
