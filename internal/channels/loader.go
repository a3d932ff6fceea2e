package channels

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/user/ytlive-tracker-go/internal/model"
)

var channelIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{24}$`)

// seedEntry is one channel in a registry file.
type seedEntry struct {
	Name       string            `json:"name"`
	ChannelID  string            `json:"channelId"`
	PlatformID string            `json:"platformId"`
	Details    map[string]string `json:"details"`
}

// Loader reads the channel registry: one JSON file per group, the filename
// (without extension) naming the group.
type Loader struct {
	dir string
}

// NewLoader creates a registry loader over dir.
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

// Load parses and validates every registry file. An invalid entry fails the
// whole load; a half-seeded registry is worse than a loud startup error.
func (l *Loader) Load() ([]*model.Channel, error) {
	files, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("read channels dir: %w", err)
	}

	var channels []*model.Channel
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}

		group := strings.TrimSuffix(file.Name(), ".json")
		data, err := os.ReadFile(filepath.Join(l.dir, file.Name()))
		if err != nil {
			return nil, fmt.Errorf("read channel file %s: %w", file.Name(), err)
		}

		var entries []seedEntry
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("parse channel file %s: %w", file.Name(), err)
		}

		for _, entry := range entries {
			if err := entry.validate(); err != nil {
				return nil, fmt.Errorf("channel file %s: %w", file.Name(), err)
			}
			channels = append(channels, &model.Channel{
				ChannelID:  entry.ChannelID,
				PlatformID: entry.PlatformID,
				Group:      group,
				Name:       entry.Name,
				Details:    entry.Details,
			})
		}
	}

	if len(channels) == 0 {
		return nil, fmt.Errorf("no channels found in %s", l.dir)
	}

	log.Info().Int("count", len(channels)).Msg("Loaded channel registry")
	return channels, nil
}

func (e *seedEntry) validate() error {
	if e.Name == "" {
		return fmt.Errorf("channel %q: name is required", e.ChannelID)
	}
	if e.PlatformID != "yt" {
		return fmt.Errorf("channel %q: unsupported platformId %q", e.ChannelID, e.PlatformID)
	}
	if !channelIDRegex.MatchString(e.ChannelID) {
		return fmt.Errorf("invalid channel id %q", e.ChannelID)
	}
	return nil
}
