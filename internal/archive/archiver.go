package archive

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/user/ytlive-tracker-go/internal/model"
)

// defaultLimit bounds how many videos one archival run processes.
const defaultLimit = 5

// Format describes one downloadable encoding of a video.
type Format struct {
	ID        string
	Container string
	Bitrate   float64
	HasVideo  bool
	HasAudio  bool
}

// BestMuxed picks the highest-bitrate mp4 encoding that carries both audio
// and video. The bool is false when no such encoding exists.
func BestMuxed(formats []Format) (Format, bool) {
	var best Format
	found := false
	for _, f := range formats {
		if f.Container != "mp4" || !f.HasVideo || !f.HasAudio {
			continue
		}
		if !found || f.Bitrate > best.Bitrate {
			best = f
			found = true
		}
	}
	return best, found
}

// Store is the persistence surface the archiver consumes.
type Store interface {
	ArchiveCandidates(ctx context.Context, limit int) ([]*model.Video, error)
	MarkArchived(ctx context.Context, id string) error
}

// MediaClient resolves and downloads video encodings.
type MediaClient interface {
	ListFormats(ctx context.Context, videoID string) ([]Format, error)
	Download(ctx context.Context, videoID string, format Format, dest string) error
}

// Archiver drives terminal-state videos through download-and-mark-archived.
// Runs are strictly sequential to bound outbound download bandwidth.
type Archiver struct {
	store Store
	media MediaClient
	dir   string
	limit int
}

// NewArchiver creates an archiver saving into dir.
func NewArchiver(store Store, media MediaClient, dir string) *Archiver {
	return &Archiver{
		store: store,
		media: media,
		dir:   dir,
		limit: defaultLimit,
	}
}

// Run archives up to five of the oldest unarchived uploaded/ended videos,
// one after another. A failure on one video is logged and does not block
// the rest of the run; the archived flag only flips after the download
// landed.
func (a *Archiver) Run(ctx context.Context) int {
	videos, err := a.store.ArchiveCandidates(ctx, a.limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to select archive candidates")
		return 0
	}
	if len(videos) == 0 {
		log.Debug().Msg("No videos to archive")
		return 0
	}

	log.Info().Int("count", len(videos)).Msg("Archiving videos")

	archived := 0
	for _, video := range videos {
		if ctx.Err() != nil {
			break
		}
		if a.archiveOne(ctx, video) {
			archived++
		}
	}

	log.Info().Int("archived", archived).Msg("Archive run finished")
	return archived
}

func (a *Archiver) archiveOne(ctx context.Context, video *model.Video) bool {
	formats, err := a.media.ListFormats(ctx, video.ID)
	if err != nil {
		log.Error().Err(err).Str("videoId", video.ID).Msg("Failed to list formats")
		return false
	}

	format, ok := BestMuxed(formats)
	if !ok {
		log.Error().Str("videoId", video.ID).Msg("No muxed mp4 format available, skipping")
		return false
	}

	dest := filepath.Join(a.dir, video.ID+".mp4")
	log.Info().Str("videoId", video.ID).Str("format", format.ID).Msg("Downloading video")

	if err := a.media.Download(ctx, video.ID, format, dest); err != nil {
		log.Error().Err(err).Str("videoId", video.ID).Msg("Failed to download video")
		return false
	}

	if err := a.store.MarkArchived(ctx, video.ID); err != nil {
		log.Error().Err(err).Str("videoId", video.ID).Msg("Failed to mark video as archived")
		return false
	}

	log.Info().Str("videoId", video.ID).Msg("Video archived")
	return true
}
