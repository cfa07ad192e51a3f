package hlsladder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/eleven-am/hlsladder/internal/domain"
	"github.com/eleven-am/hlsladder/internal/playlist"
	"github.com/eleven-am/hlsladder/internal/uri"
)

// stageTracks prepares tracks that arrive as local files: each resource is
// copied into the video's dir below the video root, and a missing duration
// is taken from the video's stored variant playlists. Tracks with their own
// sub-manifest or a remote resource are returned unchanged.
func (c *Controller) stageTracks(ctx context.Context, videoID string, m *playlist.Manifest, list []MediaTrack, dir string) ([]MediaTrack, error) {
	staged := make([]MediaTrack, len(list))
	copy(staged, list)

	var duration float64
	for i := range staged {
		track := &staged[i]
		if track.SubManifestURI != "" || track.Resource == "" || uri.IsAbsolute(track.Resource) {
			continue
		}

		dest, err := c.copyTrackResource(videoID, track.Resource, dir)
		if err != nil {
			return nil, err
		}
		track.Resource = dest

		if track.Duration <= 0 {
			if duration == 0 {
				duration = c.videoDuration(ctx, videoID, m)
			}
			track.Duration = duration
		}
	}
	return staged, nil
}

// copyTrackResource places src at {videoDir}/{dir}/{base(src)} and returns
// the destination path. A src that is already there, or that only exists
// there under the same name, is left alone.
func (c *Controller) copyTrackResource(videoID, src, dir string) (string, error) {
	dest := filepath.Join(c.videoDir(videoID), dir, filepath.Base(src))

	srcInfo, err := os.Stat(src)
	if errors.Is(err, fs.ErrNotExist) {
		if _, destErr := os.Stat(dest); destErr == nil {
			return dest, nil
		}
		return "", fmt.Errorf("track resource %s: %w", src, err)
	}
	if err != nil {
		return "", fmt.Errorf("track resource %s: %w", src, err)
	}
	if srcInfo.IsDir() {
		return "", fmt.Errorf("track resource %s is a directory", src)
	}

	if destInfo, err := os.Stat(dest); err == nil && os.SameFile(srcInfo, destInfo) {
		return dest, nil
	}

	if err := copyFile(src, dest); err != nil {
		return "", fmt.Errorf("copy track resource %s: %w", src, err)
	}
	c.logger.Info("track resource copied", "video_id", videoID, "source", src, "destination", dest)
	return dest, nil
}

// videoDuration sums the segments of the first stored variant playlist of
// m. It returns 0 when none can be read.
func (c *Controller) videoDuration(ctx context.Context, videoID string, m *playlist.Manifest) float64 {
	origin := c.template.Origin(videoID)

	for _, v := range m.Variants() {
		rel := v.URI
		if origin != "" && strings.HasPrefix(rel, origin+"/") {
			rel = strings.TrimPrefix(rel, origin+"/")
		} else if uri.IsAbsolute(rel) || strings.HasPrefix(rel, "/") {
			continue
		}

		key := domain.ManifestKey{VideoID: videoID, Role: domain.RoleVariant, Name: rel}
		data, err := c.opts.Storage.ReadManifest(ctx, key)
		if err != nil {
			continue
		}
		total, err := playlist.TotalDuration(string(data))
		if err != nil || total <= 0 {
			continue
		}
		return total
	}

	c.logger.Warn("video duration unknown, track playlists will declare zero length", "video_id", videoID)
	return 0
}

func copyFile(src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".track-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, dest)
}
