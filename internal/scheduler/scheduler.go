package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/user/ytlive-tracker-go/internal/model"
	"github.com/user/ytlive-tracker-go/internal/server"
)

// FeedPoller polls one channel's feed for unseen videos.
type FeedPoller interface {
	Poll(ctx context.Context, channelID, group string) int
}

// Backfiller scrapes a channel's full backlog.
type Backfiller interface {
	Discover(ctx context.Context, channelID, group string) (int, error)
}

// Refresher re-validates tracked videos.
type Refresher interface {
	Run(ctx context.Context) (int, error)
}

// Archiver drives terminal videos through archival.
type Archiver interface {
	Run(ctx context.Context) int
}

// StatsUpdater refreshes channel statistics.
type StatsUpdater interface {
	Run(ctx context.Context, channels []*model.Channel) int
}

// ChannelSource reads the tracked channel set.
type ChannelSource interface {
	AllChannels(ctx context.Context) ([]*model.Channel, error)
	UncrawledChannels(ctx context.Context) ([]*model.Channel, error)
}

// ChannelStamper records that a channel's backlog has been scraped.
type ChannelStamper interface {
	PublishUpdateChannels(channels []*model.Channel)
}

// Intervals configures the periodic jobs.
type Intervals struct {
	Feed    time.Duration
	Refresh time.Duration
	Archive time.Duration
}

// Scheduler runs the periodic feed polling, status refresh and archival
// jobs plus the one-shot startup backfill. Overlapping triggers of the
// same job are skipped, not queued.
type Scheduler struct {
	feed     FeedPoller
	backfill Backfiller
	refresh  Refresher
	archiver Archiver // nil when archiving is disabled
	stats    StatsUpdater
	source   ChannelSource
	stamper  ChannelStamper

	intervals Intervals

	feedMu    sync.Mutex
	refreshMu sync.Mutex
	archiveMu sync.Mutex

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler. archiver may be nil to disable archival.
func NewScheduler(
	feed FeedPoller,
	backfill Backfiller,
	refresh Refresher,
	archiver Archiver,
	stats StatsUpdater,
	source ChannelSource,
	stamper ChannelStamper,
	intervals Intervals,
) *Scheduler {
	return &Scheduler{
		feed:      feed,
		backfill:  backfill,
		refresh:   refresh,
		archiver:  archiver,
		stats:     stats,
		source:    source,
		stamper:   stamper,
		intervals: intervals,
		stopCh:    make(chan struct{}),
	}
}

// Start launches the periodic loops.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.loop(ctx, s.intervals.Feed, s.executeFeedSweep)

	s.wg.Add(1)
	go s.loop(ctx, s.intervals.Refresh, s.executeRefresh)

	if s.archiver != nil {
		s.wg.Add(1)
		go s.loop(ctx, s.intervals.Archive, s.executeArchive)
	}
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	log.Info().Msg("Stopping scheduler...")
	close(s.stopCh)
	s.wg.Wait()
	log.Info().Msg("Scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, interval time.Duration, job func(ctx context.Context)) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			job(ctx)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Backfill seeds the startup state: refresh channel statistics, then scrape
// the backlog of every channel not yet crawled, one channel at a time. The
// per-channel OK/FAIL outcomes are aggregated and logged.
func (s *Scheduler) Backfill(ctx context.Context) {
	all, err := s.source.AllChannels(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load channels for backfill")
		return
	}
	s.stats.Run(ctx, all)

	uncrawled, err := s.source.UncrawledChannels(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load uncrawled channels")
		return
	}
	if len(uncrawled) == 0 {
		log.Info().Msg("No channel backlogs to scrape")
		return
	}

	log.Info().Int("count", len(uncrawled)).Msg("Scraping channel backlogs")

	ok, failed, videoCount := 0, 0, 0
	for _, channel := range uncrawled {
		if ctx.Err() != nil {
			break
		}

		count, err := s.backfill.Discover(ctx, channel.ChannelID, channel.Group)
		if err != nil {
			failed++
			continue
		}

		ok++
		videoCount += count

		now := time.Now()
		s.stamper.PublishUpdateChannels([]*model.Channel{{
			ChannelID: channel.ChannelID,
			CrawledAt: &now,
		}})
	}

	log.Info().
		Int("ok", ok).
		Int("failed", failed).
		Int("videos", videoCount).
		Msg("Backfill finished")
}

// executeFeedSweep polls every channel's feed in turn. One channel's
// failure never blocks the others; Poll absorbs it.
func (s *Scheduler) executeFeedSweep(ctx context.Context) {
	if !s.feedMu.TryLock() {
		log.Warn().Msg("Feed sweep already running, skipping this trigger")
		return
	}
	defer s.feedMu.Unlock()

	channels, err := s.source.AllChannels(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load channels for feed sweep")
		return
	}

	start := time.Now()
	found := 0
	for _, channel := range channels {
		if ctx.Err() != nil {
			return
		}
		found += s.feed.Poll(ctx, channel.ChannelID, channel.Group)
	}

	server.ObserveSweep("feed", time.Since(start))
	log.Info().
		Int("channels", len(channels)).
		Int("new", found).
		Dur("duration", time.Since(start)).
		Msg("Feed sweep completed")
}

func (s *Scheduler) executeRefresh(ctx context.Context) {
	if !s.refreshMu.TryLock() {
		log.Warn().Msg("Refresh already running, skipping this trigger")
		return
	}
	defer s.refreshMu.Unlock()

	start := time.Now()
	count, err := s.refresh.Run(ctx)
	if err != nil {
		server.CountError("refresh")
		log.Error().Err(err).Msg("Refresh run failed")
		return
	}

	server.ObserveSweep("refresh", time.Since(start))
	log.Info().Int("count", count).Dur("duration", time.Since(start)).Msg("Refresh completed")
}

func (s *Scheduler) executeArchive(ctx context.Context) {
	if !s.archiveMu.TryLock() {
		log.Warn().Msg("Archive run already in progress, skipping this trigger")
		return
	}
	defer s.archiveMu.Unlock()

	start := time.Now()
	archived := s.archiver.Run(ctx)
	server.ObserveSweep("archive", time.Since(start))
	log.Info().Int("archived", archived).Dur("duration", time.Since(start)).Msg("Archive run completed")
}
