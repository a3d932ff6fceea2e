package model

import (
	"time"
)

// ChannelStats holds the upstream statistics for a channel. Counts are
// non-negative; values the platform withholds coerce to 0.
type ChannelStats struct {
	PublishedAt *time.Time
	Subscribers int64
	Videos      int64
	Views       int64
}

// Channel represents a tracked publisher. Identity is the platform channel id.
type Channel struct {
	ChannelID  string `gorm:"primaryKey;size:32"`
	PlatformID string `gorm:"size:8"`
	Group      string `gorm:"column:group_name;size:64"`

	// Name comes from the channel registry; ChannelName is the title the
	// platform reports.
	Name        string `gorm:"size:200"`
	ChannelName string `gorm:"size:200"`
	Description string `gorm:"type:text"`
	Thumbnail   string `gorm:"size:500"`

	// Details carries opaque registry metadata (socials, website).
	Details map[string]string `gorm:"serializer:json;type:json"`

	Stats ChannelStats `gorm:"embedded;embeddedPrefix:stats_"`

	// CrawledAt is set once the channel's backlog has been scraped; nil
	// channels are backfill candidates.
	CrawledAt *time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for Channel
func (Channel) TableName() string {
	return "channels"
}
