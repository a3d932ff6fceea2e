package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

const (
	defaultYtdlpPath    = "yt-dlp"
	defaultYtdlpTimeout = 30 * time.Minute
)

// YtdlpClient implements MediaClient by shelling out to yt-dlp.
type YtdlpClient struct {
	// Path is the yt-dlp executable. Defaults to "yt-dlp" on PATH.
	Path string
	// Timeout bounds a single download.
	Timeout time.Duration
}

// NewYtdlpClient creates a yt-dlp backed media client.
func NewYtdlpClient(path string) *YtdlpClient {
	if path == "" {
		path = defaultYtdlpPath
	}
	return &YtdlpClient{
		Path:    path,
		Timeout: defaultYtdlpTimeout,
	}
}

// ytdlpInfo is the slice of yt-dlp's JSON dump the archiver reads.
type ytdlpInfo struct {
	Formats []struct {
		FormatID string  `json:"format_id"`
		Ext      string  `json:"ext"`
		TBR      float64 `json:"tbr"`
		VCodec   string  `json:"vcodec"`
		ACodec   string  `json:"acodec"`
	} `json:"formats"`
}

// ListFormats dumps the video's metadata and returns its encodings.
func (c *YtdlpClient) ListFormats(ctx context.Context, videoID string) ([]Format, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.Path,
		"-J",
		"--no-warnings",
		watchURL(videoID),
	)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("yt-dlp dump for %s: %w: %s", videoID, err, stderr.String())
	}

	var info ytdlpInfo
	if err := json.Unmarshal(stdout.Bytes(), &info); err != nil {
		return nil, fmt.Errorf("parse yt-dlp dump for %s: %w", videoID, err)
	}

	formats := make([]Format, 0, len(info.Formats))
	for _, f := range info.Formats {
		formats = append(formats, Format{
			ID:        f.FormatID,
			Container: f.Ext,
			Bitrate:   f.TBR,
			HasVideo:  f.VCodec != "" && f.VCodec != "none",
			HasAudio:  f.ACodec != "" && f.ACodec != "none",
		})
	}
	return formats, nil
}

// Download streams one encoding of the video to dest.
func (c *YtdlpClient) Download(ctx context.Context, videoID string, format Format, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create archive directory: %w", err)
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultYtdlpTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.Path,
		"-f", format.ID,
		"-o", dest,
		"--no-warnings",
		"--no-progress",
		watchURL(videoID),
	)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("yt-dlp download for %s: %w: %s", videoID, err, stderr.String())
	}
	return nil
}

func watchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}
