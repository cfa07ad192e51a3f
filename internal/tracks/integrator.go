// Package tracks turns audio and subtitle tracks into sub-manifests and media
// declarations on a master manifest.
package tracks

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strconv"
	"strings"

	"github.com/eleven-am/hlsladder/internal/domain"
	"github.com/eleven-am/hlsladder/internal/playlist"
	"github.com/eleven-am/hlsladder/internal/uri"
)

const (
	AudioGroup     = "audio"
	SubtitlesGroup = "subs"

	// AudioDir and SubtitlesDir hold track resources and their sub-manifests
	// below the video root.
	AudioDir     = "audio"
	SubtitlesDir = "subtitles"
)

type kind struct {
	mediaType playlist.MediaType
	groupID   string
	dir       string
}

var (
	audioKind     = kind{mediaType: playlist.MediaAudio, groupID: AudioGroup, dir: AudioDir}
	subtitlesKind = kind{mediaType: playlist.MediaSubtitles, groupID: SubtitlesGroup, dir: SubtitlesDir}
)

type Integrator struct {
	storage domain.Storage
	logger  *slog.Logger
}

func NewIntegrator(storage domain.Storage, logger *slog.Logger) *Integrator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Integrator{storage: storage, logger: logger}
}

// IntegrateAudio attaches audio tracks to m and returns how many
// declarations were added.
func (i *Integrator) IntegrateAudio(ctx context.Context, videoID string, m *playlist.Manifest, tracks []domain.MediaTrack) (int, error) {
	return i.integrate(ctx, videoID, m, tracks, audioKind)
}

// IntegrateSubtitles attaches subtitle tracks to m and returns how many
// declarations were added.
func (i *Integrator) IntegrateSubtitles(ctx context.Context, videoID string, m *playlist.Manifest, tracks []domain.MediaTrack) (int, error) {
	return i.integrate(ctx, videoID, m, tracks, subtitlesKind)
}

func (i *Integrator) integrate(ctx context.Context, videoID string, m *playlist.Manifest, tracks []domain.MediaTrack, k kind) (int, error) {
	names := existingNames(m, k.groupID)
	decls := make([]playlist.Media, 0, len(tracks))

	for _, track := range tracks {
		lang := CanonicalLanguage(track.Language)

		sub := track.SubManifestURI
		if sub == "" {
			generated, err := i.writeSubManifest(ctx, videoID, track, lang, k)
			if err != nil {
				return 0, err
			}
			sub = generated
		}

		u := uri.Normalize(sub, k.dir)
		if m.HasMedia(k.groupID, u) || containsURI(decls, u) {
			i.logger.Debug("track already declared", "video_id", videoID, "group", k.groupID, "uri", u)
			continue
		}

		decls = append(decls, playlist.Media{
			Type:     k.mediaType,
			GroupID:  k.groupID,
			Name:     uniqueName(names, trackName(track, lang)),
			Language: lang,
			Default:  track.IsDefault,
			URI:      u,
		})
	}

	if len(decls) == 0 {
		return 0, nil
	}

	added := m.AttachMedia(decls)
	i.logger.Info("tracks attached", "video_id", videoID, "group", k.groupID, "added", added)
	return added, nil
}

// writeSubManifest stores the fixed single-segment playlist for a track
// that has none and returns its URI relative to the video root.
func (i *Integrator) writeSubManifest(ctx context.Context, videoID string, track domain.MediaTrack, lang string, k kind) (string, error) {
	if track.Resource == "" {
		return "", fmt.Errorf("track %q has neither a sub-manifest nor a resource", track.ID)
	}

	stem := strings.TrimSuffix(path.Base(track.Resource), path.Ext(track.Resource))
	if stem == "" || stem == "." || stem == "/" {
		stem = lang
	}
	name := path.Join(k.dir, stem+".m3u8")

	resource := track.Resource
	if !uri.IsAbsolute(resource) {
		resource = path.Base(resource)
	}

	body := playlist.TrackPlaylist(resource, track.Duration)
	key := domain.ManifestKey{VideoID: videoID, Role: domain.RoleTrack, Name: name}
	if err := i.storage.WriteManifest(ctx, key, []byte(body)); err != nil {
		return "", fmt.Errorf("write track manifest %s: %w", name, err)
	}
	return name, nil
}

func trackName(track domain.MediaTrack, lang string) string {
	if label := strings.TrimSpace(track.Label); label != "" {
		return label
	}
	return DisplayName(lang)
}

func existingNames(m *playlist.Manifest, groupID string) map[string]bool {
	names := make(map[string]bool)
	for _, media := range m.Media() {
		if media.GroupID == groupID {
			names[media.Name] = true
		}
	}
	return names
}

// uniqueName keeps NAME unique within a group by numbering repeats.
func uniqueName(names map[string]bool, name string) string {
	candidate := name
	for n := 2; names[candidate]; n++ {
		candidate = name + " (" + strconv.Itoa(n) + ")"
	}
	names[candidate] = true
	return candidate
}

func containsURI(decls []playlist.Media, u string) bool {
	for _, d := range decls {
		if d.URI == u {
			return true
		}
	}
	return false
}
