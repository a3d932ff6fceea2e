package model

import (
	"time"
)

// VideoStatus is the lifecycle state of a tracked video.
type VideoStatus string

const (
	// StatusNew marks a video first seen through the feed crawler, before
	// its live-streaming details are known.
	StatusNew VideoStatus = "new"
	// StatusUploaded marks plain (non-live) content. Terminal.
	StatusUploaded VideoStatus = "uploaded"
	// StatusUpcoming marks a scheduled broadcast that has not started.
	StatusUpcoming VideoStatus = "upcoming"
	// StatusLive marks a broadcast currently on air.
	StatusLive VideoStatus = "live"
	// StatusEnded marks a finished broadcast. Terminal.
	StatusEnded VideoStatus = "ended"
	// StatusMissing marks an id the platform no longer serves. Terminal,
	// reachable from any state.
	StatusMissing VideoStatus = "missing"
)

// Video represents a tracked video. Identity is the platform-global video id.
type Video struct {
	ID         string      `gorm:"primaryKey;size:24"`
	PlatformID string      `gorm:"size:8"`
	ChannelID  string      `gorm:"index;size:32"`
	Group      string      `gorm:"column:group_name;size:64"`
	Title      string      `gorm:"size:500"`
	Thumbnail  string      `gorm:"size:500"`
	Status     VideoStatus `gorm:"size:16;index;not null"`
	Archived   bool        `gorm:"default:false;index"`

	// Optional timestamps stay nil until the upstream source reports them.
	PublishedAt *time.Time
	ScheduledAt *time.Time
	StartedAt   *time.Time
	EndedAt     *time.Time

	// Viewers is nil for anything that is not a live broadcast.
	Viewers *int64

	// CrawledAt is when the video entered tracking. Refresh and archive
	// selection order by it, oldest first.
	CrawledAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

// TableName returns the table name for Video
func (Video) TableName() string {
	return "videos"
}

// WatchURL returns the platform watch page for the video.
func (v *Video) WatchURL() string {
	return "https://www.youtube.com/watch?v=" + v.ID
}

// Terminal reports whether no further automatic status transition is
// expected for the video.
func (s VideoStatus) Terminal() bool {
	return s == StatusUploaded || s == StatusEnded || s == StatusMissing
}
