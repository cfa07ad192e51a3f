package server

import (
	"errors"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/eleven-am/hlsladder/internal/domain"
)

var mediaContentTypes = map[string]string{
	".ts":  "video/mp2t",
	".m4s": "video/iso.segment",
	".mp4": "video/mp4",
	".aac": "audio/aac",
	".vtt": "text/vtt; charset=utf-8",
}

// serveFile answers every other request under a video: playlists come from
// manifest storage, media from the output directory.
func (s *Server) serveFile(w http.ResponseWriter, r *http.Request) {
	videoID := r.PathValue("videoId")
	rel := strings.TrimPrefix(path.Clean("/"+r.PathValue("path")), "/")
	if videoID == "" || videoID == "." || videoID == ".." || rel == "" {
		http.NotFound(w, r)
		return
	}

	ext := strings.ToLower(path.Ext(rel))
	if ext == ".m3u8" {
		s.servePlaylist(w, r, manifestKey(videoID, rel))
		return
	}

	if s.outputDir == "" {
		http.NotFound(w, r)
		return
	}
	if ct, ok := mediaContentTypes[ext]; ok {
		w.Header().Set("Content-Type", ct)
	}
	http.ServeFile(w, r, filepath.Join(s.outputDir, videoID, filepath.FromSlash(rel)))
}

func (s *Server) servePlaylist(w http.ResponseWriter, r *http.Request, key domain.ManifestKey) {
	data, err := s.manifests.Manifest(r.Context(), key)
	if err != nil {
		if errors.Is(err, domain.ErrManifestNotFound) {
			http.NotFound(w, r)
			return
		}
		s.logger.Error("failed to read manifest", "video_id", key.VideoID, "name", key.Name, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", playlistContentType)
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(data)
}

// manifestKey maps a playlist path below the video root to its storage key.
func manifestKey(videoID, rel string) domain.ManifestKey {
	if rel == "master.m3u8" {
		return domain.MasterKey(videoID)
	}
	role := domain.RoleVariant
	if dir, _, ok := strings.Cut(rel, "/"); ok && (dir == "audio" || dir == "subtitles") {
		role = domain.RoleTrack
	}
	return domain.ManifestKey{VideoID: videoID, Role: role, Name: rel}
}
