// Package extract pulls the audio and subtitle streams of a source out into
// standalone track resources.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strconv"

	"github.com/eleven-am/hlsladder/internal/domain"
	"github.com/eleven-am/hlsladder/internal/ffmpeg"
	"github.com/eleven-am/hlsladder/internal/tracks"
	"github.com/eleven-am/hlsladder/internal/transcode"
)

// bitmapCodecs cannot be converted to WebVTT.
var bitmapCodecs = map[string]bool{
	"hdmv_pgs_subtitle": true,
	"dvd_subtitle":      true,
	"dvb_subtitle":      true,
	"xsub":              true,
}

type Extractor struct {
	binary       string
	builder      *ffmpeg.CommandBuilder
	audioBitrate int
	logger       *slog.Logger
}

func NewExtractor(binary string, builder *ffmpeg.CommandBuilder, audioBitrate int, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Extractor{binary: binary, builder: builder, audioBitrate: audioBitrate, logger: logger}
}

// Result lists the tracks that were extracted. Streams that failed are
// logged and left out.
type Result struct {
	Audio     []domain.MediaTrack
	Subtitles []domain.MediaTrack
}

// All extracts every audio and text subtitle stream of meta into videoDir.
func (e *Extractor) All(ctx context.Context, sourcePath string, meta domain.SourceMetadata, videoDir string) Result {
	var result Result

	stems := make(map[string]bool)
	for _, stream := range meta.Audios {
		track, err := e.Audio(ctx, sourcePath, stream, meta.Duration, videoDir, stem(stems, stream.Language))
		if err != nil {
			e.logger.Warn("audio extraction failed", "stream", stream.Index, "language", stream.Language, "error", err)
			continue
		}
		result.Audio = append(result.Audio, track)
	}

	stems = make(map[string]bool)
	for _, stream := range meta.Subtitles {
		if bitmapCodecs[stream.Codec] {
			e.logger.Info("skipping bitmap subtitle", "stream", stream.Index, "codec", stream.Codec)
			continue
		}
		track, err := e.Subtitles(ctx, sourcePath, stream, meta.Duration, videoDir, stem(stems, stream.Language))
		if err != nil {
			e.logger.Warn("subtitle extraction failed", "stream", stream.Index, "language", stream.Language, "error", err)
			continue
		}
		result.Subtitles = append(result.Subtitles, track)
	}

	return result
}

// Subtitles converts one subtitle stream to videoDir/subtitles/{name}.vtt.
func (e *Extractor) Subtitles(ctx context.Context, sourcePath string, stream domain.SubtitleStream, duration float64, videoDir, name string) (domain.MediaTrack, error) {
	rel := path.Join("subtitles", name+".vtt")
	out := filepath.Join(videoDir, filepath.FromSlash(rel))

	args := e.builder.Subtitle(ffmpeg.SubtitleParams{
		InputPath:   sourcePath,
		StreamIndex: stream.Index,
		OutputPath:  out,
	})
	if err := e.run(ctx, out, args); err != nil {
		return domain.MediaTrack{}, fmt.Errorf("extract subtitle stream %d: %w", stream.Index, err)
	}

	return domain.MediaTrack{
		ID:        "subtitle-" + strconv.Itoa(stream.Index),
		Language:  stream.Language,
		Label:     stream.Title,
		IsDefault: stream.Default || stream.Forced,
		Resource:  rel,
		Duration:  duration,
	}, nil
}

// Audio extracts one audio stream to videoDir/audio/{name}.aac.
func (e *Extractor) Audio(ctx context.Context, sourcePath string, stream domain.AudioStream, duration float64, videoDir, name string) (domain.MediaTrack, error) {
	rel := path.Join("audio", name+".aac")
	out := filepath.Join(videoDir, filepath.FromSlash(rel))

	args := e.builder.AudioTrack(ffmpeg.AudioTrackParams{
		InputPath:   sourcePath,
		StreamIndex: stream.Index,
		OutputPath:  out,
		Bitrate:     e.audioBitrate,
		Channels:    stream.Channels,
	})
	if err := e.run(ctx, out, args); err != nil {
		return domain.MediaTrack{}, fmt.Errorf("extract audio stream %d: %w", stream.Index, err)
	}

	return domain.MediaTrack{
		ID:        "audio-" + strconv.Itoa(stream.Index),
		Language:  stream.Language,
		Label:     stream.Title,
		IsDefault: stream.Default,
		Resource:  rel,
		Duration:  duration,
	}, nil
}

func (e *Extractor) run(ctx context.Context, out string, args []string) error {
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("create track dir: %w", err)
	}

	w := transcode.NewWorker(e.binary, args, e.logger)
	if err := w.Start(ctx); err != nil {
		return err
	}
	if err := w.Wait(); err != nil {
		_ = os.Remove(out)
		return err
	}

	if info, err := os.Stat(out); err != nil || info.Size() == 0 {
		_ = os.Remove(out)
		return fmt.Errorf("no output written to %s", filepath.Base(out))
	}
	return nil
}

// stem names a track file after its language, numbering repeats.
func stem(used map[string]bool, language string) string {
	base := tracks.CanonicalLanguage(language)
	name := base
	for n := 2; used[name]; n++ {
		name = base + "-" + strconv.Itoa(n)
	}
	used[name] = true
	return name
}
