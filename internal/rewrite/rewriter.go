// Package rewrite turns a stored master manifest into the one served for a
// request: URIs are made request relative and duplicate declarations are
// dropped. Stored manifests are never modified.
package rewrite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"

	"github.com/eleven-am/hlsladder/internal/domain"
	"github.com/eleven-am/hlsladder/internal/metrics"
	"github.com/eleven-am/hlsladder/internal/playlist"
	"github.com/eleven-am/hlsladder/internal/uri"
)

// Context identifies the request a manifest is rewritten for.
type Context struct {
	VideoID     string
	RequestBase string
}

type Rewriter struct {
	storage  domain.Storage
	template playlist.URITemplate
	logger   *slog.Logger
	recorder *metrics.Recorder
}

// NewRewriter rewrites URIs built from template, the same template the
// manifests were assembled with.
func NewRewriter(storage domain.Storage, template playlist.URITemplate, logger *slog.Logger, recorder *metrics.Recorder) *Rewriter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Rewriter{storage: storage, template: template, logger: logger, recorder: recorder}
}

// Serve reads the stored master manifest of c.VideoID and returns it
// rewritten for c.
func (r *Rewriter) Serve(ctx context.Context, c Context) (string, error) {
	raw, err := r.storage.ReadManifest(ctx, domain.MasterKey(c.VideoID))
	if err != nil {
		if errors.Is(err, domain.ErrManifestNotFound) {
			r.recorder.Rewrite("not_found")
			return "", err
		}
		r.recorder.Rewrite("error")
		return "", fmt.Errorf("read master manifest: %w", err)
	}

	out, err := r.Rewrite(string(raw), c)
	if err != nil {
		r.logger.Warn("stored master manifest is malformed", "video_id", c.VideoID, "error", err)
		r.recorder.Rewrite("malformed")
		return "", err
	}

	r.recorder.Rewrite("success")
	return out, nil
}

// Rewrite is a pure function of raw and c.
func (r *Rewriter) Rewrite(raw string, c Context) (string, error) {
	m, err := playlist.Parse(raw)
	if err != nil {
		return "", err
	}

	origin := r.template.Origin(c.VideoID)
	for i, line := range m.Lines {
		switch l := line.(type) {
		case *playlist.Media:
			l.URI = rewriteURI(l.URI, origin, c.RequestBase)
		case *playlist.Variant:
			l.URI = rewriteURI(l.URI, origin, c.RequestBase)
		case playlist.Tag:
			if u, ok := l.URIAttribute(); ok {
				m.Lines[i] = l.WithURI(rewriteURI(u, origin, c.RequestBase))
			}
		}
	}

	stats := OptimizeManifest(m)
	if stats.Total() > 0 {
		r.logger.Debug("dropped duplicate declarations", "video_id", c.VideoID, "media", stats.Media, "variants", stats.Variants)
		r.recorder.DuplicatesRemoved("media", stats.Media)
		r.recorder.DuplicatesRemoved("variant", stats.Variants)
	}

	return m.Encode(), nil
}

// rewriteURI maps one URI into the request's namespace:
//   - under the build origin: the suffix is joined onto base
//   - relative: joined onto base
//   - a caption file (.vtt): replaced by base/subtitles/{stem}.m3u8
//   - root relative or foreign absolute: unchanged
func rewriteURI(u, origin, base string) string {
	if u == "" {
		return u
	}

	if origin != "" && (u == origin || strings.HasPrefix(u, origin+"/")) {
		u = strings.TrimPrefix(strings.TrimPrefix(u, origin), "/")
	} else if uri.IsAbsolute(u) || strings.HasPrefix(u, "/") {
		return u
	}

	if stem, ok := captionStem(u); ok {
		return uri.Join(base, "subtitles/"+stem+".m3u8")
	}
	return uri.Join(base, u)
}

func captionStem(u string) (string, bool) {
	p := u
	if parsed, err := url.Parse(u); err == nil {
		p = parsed.Path
	}
	name := path.Base(p)
	ext := path.Ext(name)
	if !strings.EqualFold(ext, ".vtt") {
		return "", false
	}
	stem := strings.TrimSuffix(name, ext)
	if stem == "" {
		return "", false
	}
	return stem, true
}
