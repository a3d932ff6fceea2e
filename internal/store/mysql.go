package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/user/ytlive-tracker-go/internal/config"
	"github.com/user/ytlive-tracker-go/internal/model"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// MySQLStore implements Store interface using MySQL database
type MySQLStore struct {
	db *gorm.DB
}

// NewMySQLStore creates a new MySQL store instance
func NewMySQLStore(cfg *config.DBConfig) (*MySQLStore, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(mysql.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxConns)
	sqlDB.SetMaxIdleConns(cfg.MaxConns / 2)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// Auto migrate tables
	if err := db.AutoMigrate(&model.Video{}, &model.Channel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &MySQLStore{db: db}, nil
}

// ApplySave upserts videos with insert-if-absent semantics. Each record is
// written independently; the batch commits its successes.
func (s *MySQLStore) ApplySave(ctx context.Context, videos []*model.Video) ([]string, error) {
	if len(videos) == 0 {
		return nil, nil
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		inserted []string
	)

	for _, video := range videos {
		wg.Add(1)
		go func(v *model.Video) {
			defer wg.Done()

			result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoNothing: true,
			}).Create(v)

			if result.Error != nil {
				log.Error().Err(result.Error).Str("videoId", v.ID).Msg("Failed to save video")
				return
			}

			// RowsAffected is 0 when the id already existed.
			if result.RowsAffected > 0 {
				mu.Lock()
				inserted = append(inserted, v.ID)
				mu.Unlock()
			}
		}(video)
	}

	wg.Wait()
	return inserted, nil
}

// ApplyUpdate overwrites the fields each record carries, keyed by id.
func (s *MySQLStore) ApplyUpdate(ctx context.Context, videos []*model.Video) (int, error) {
	if len(videos) == 0 {
		return 0, nil
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		modified int
	)

	now := time.Now()
	for _, video := range videos {
		wg.Add(1)
		go func(v *model.Video) {
			defer wg.Done()

			result := s.db.WithContext(ctx).
				Model(&model.Video{}).
				Where("id = ?", v.ID).
				Updates(videoUpdateColumns(v, now))

			if result.Error != nil {
				log.Error().Err(result.Error).Str("videoId", v.ID).Msg("Failed to update video")
				return
			}

			// MySQL reports 0 affected rows for a no-op write.
			if result.RowsAffected > 0 {
				mu.Lock()
				modified++
				mu.Unlock()
			}
		}(video)
	}

	wg.Wait()
	return modified, nil
}

// videoUpdateColumns builds the column set a refresh record overwrites.
// Minimal records (only id and status, synthesized for ids the platform no
// longer serves) touch nothing but the status. The archived flag and
// crawled_at never appear here: archival state changes only through
// MarkArchived, and crawl ordering is fixed at first sight.
func videoUpdateColumns(v *model.Video, now time.Time) map[string]any {
	cols := map[string]any{
		"status":     v.Status,
		"updated_at": now,
	}

	minimal := v.Title == "" && v.PublishedAt == nil
	if minimal {
		return cols
	}

	cols["title"] = v.Title
	cols["published_at"] = v.PublishedAt
	cols["scheduled_at"] = v.ScheduledAt
	cols["started_at"] = v.StartedAt
	cols["ended_at"] = v.EndedAt
	cols["viewers"] = v.Viewers
	if v.ChannelID != "" {
		cols["channel_id"] = v.ChannelID
	}
	return cols
}

// ApplyChannelUpdate overwrites channel fields keyed by channelId.
func (s *MySQLStore) ApplyChannelUpdate(ctx context.Context, channels []*model.Channel) (int, error) {
	if len(channels) == 0 {
		return 0, nil
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		modified int
	)

	now := time.Now()
	for _, channel := range channels {
		wg.Add(1)
		go func(c *model.Channel) {
			defer wg.Done()

			result := s.db.WithContext(ctx).
				Model(&model.Channel{}).
				Where("channel_id = ?", c.ChannelID).
				Updates(channelUpdateColumns(c, now))

			if result.Error != nil {
				log.Error().Err(result.Error).Str("channelId", c.ChannelID).Msg("Failed to update channel")
				return
			}

			if result.RowsAffected > 0 {
				mu.Lock()
				modified++
				mu.Unlock()
			}
		}(channel)
	}

	wg.Wait()
	return modified, nil
}

func channelUpdateColumns(c *model.Channel, now time.Time) map[string]any {
	cols := map[string]any{
		"updated_at": now,
	}
	if c.Name != "" {
		cols["name"] = c.Name
	}
	if c.Group != "" {
		cols["group_name"] = c.Group
	}
	if c.PlatformID != "" {
		cols["platform_id"] = c.PlatformID
	}
	if c.ChannelName != "" {
		cols["channel_name"] = c.ChannelName
		cols["description"] = c.Description
		cols["thumbnail"] = c.Thumbnail
		cols["stats_published_at"] = c.Stats.PublishedAt
		cols["stats_subscribers"] = c.Stats.Subscribers
		cols["stats_videos"] = c.Stats.Videos
		cols["stats_views"] = c.Stats.Views
	}
	if c.CrawledAt != nil {
		cols["crawled_at"] = c.CrawledAt
	}
	return cols
}

// SeedChannels inserts registry channels that are not yet tracked.
func (s *MySQLStore) SeedChannels(ctx context.Context, channels []*model.Channel) (int, error) {
	if len(channels) == 0 {
		return 0, nil
	}

	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "channel_id"}},
		DoNothing: true,
	}).CreateInBatches(channels, 100)

	if result.Error != nil {
		return 0, fmt.Errorf("failed to seed channels: %w", result.Error)
	}

	return int(result.RowsAffected), nil
}

// RefreshCandidates returns ids due for a status refresh, oldest tracked first.
func (s *MySQLStore) RefreshCandidates(ctx context.Context, now time.Time) ([]string, error) {
	var ids []string
	result := s.db.WithContext(ctx).
		Model(&model.Video{}).
		Where("status IN ? OR (status = ? AND scheduled_at IS NOT NULL AND scheduled_at <= ?)",
			[]model.VideoStatus{model.StatusNew, model.StatusLive},
			model.StatusUpcoming, now.Add(time.Hour)).
		Order("crawled_at ASC").
		Pluck("id", &ids)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to select refresh candidates: %w", result.Error)
	}
	return ids, nil
}

// ArchiveCandidates returns up to limit videos eligible for archival.
func (s *MySQLStore) ArchiveCandidates(ctx context.Context, limit int) ([]*model.Video, error) {
	var videos []*model.Video
	result := s.db.WithContext(ctx).
		Where("archived = ? AND status IN ?",
			false, []model.VideoStatus{model.StatusUploaded, model.StatusEnded}).
		Order("crawled_at ASC").
		Limit(limit).
		Find(&videos)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to select archive candidates: %w", result.Error)
	}
	return videos, nil
}

// MarkArchived flips the archived flag for a single video.
func (s *MySQLStore) MarkArchived(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).
		Model(&model.Video{}).
		Where("id = ?", id).
		Update("archived", true)
	if result.Error != nil {
		return fmt.Errorf("failed to mark video as archived: %w", result.Error)
	}
	return nil
}

// UncrawledChannels returns channels whose backlog has not been scraped.
func (s *MySQLStore) UncrawledChannels(ctx context.Context) ([]*model.Channel, error) {
	var channels []*model.Channel
	result := s.db.WithContext(ctx).
		Where("crawled_at IS NULL").
		Find(&channels)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get uncrawled channels: %w", result.Error)
	}
	return channels, nil
}

// AllChannels returns every tracked channel.
func (s *MySQLStore) AllChannels(ctx context.Context) ([]*model.Channel, error) {
	var channels []*model.Channel
	result := s.db.WithContext(ctx).Find(&channels)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get channels: %w", result.Error)
	}
	return channels, nil
}

// CountVideos returns the total count of videos
func (s *MySQLStore) CountVideos(ctx context.Context) (int64, error) {
	var count int64
	result := s.db.WithContext(ctx).Model(&model.Video{}).Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to count videos: %w", result.Error)
	}
	return count, nil
}

// Ping checks database connectivity
func (s *MySQLStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying db: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (s *MySQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying db: %w", err)
	}
	return sqlDB.Close()
}

// DB returns the underlying gorm.DB instance (for testing purposes)
func (s *MySQLStore) DB() *gorm.DB {
	return s.db
}
