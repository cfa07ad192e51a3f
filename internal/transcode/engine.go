package transcode

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/eleven-am/hlsladder/internal/domain"
	"github.com/eleven-am/hlsladder/internal/ffmpeg"
	"github.com/eleven-am/hlsladder/internal/hwaccel"
	"github.com/eleven-am/hlsladder/internal/playlist"
	"github.com/eleven-am/hlsladder/internal/probe"
)

type EngineOptions struct {
	FFmpegBinary    string
	FFprobeBinary   string
	HWAccel         *domain.HWAccelConfig
	SegmentDuration int
	AudioBitrate    int
	JobTimeout      time.Duration
	Logger          *slog.Logger
}

// FFmpegEngine is the domain.Engine backed by ffprobe and ffmpeg processes.
type FFmpegEngine struct {
	opts    EngineOptions
	prober  *probe.Prober
	builder *ffmpeg.CommandBuilder
	logger  *slog.Logger
}

func NewFFmpegEngine(opts EngineOptions) *FFmpegEngine {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.FFmpegBinary == "" {
		opts.FFmpegBinary = "ffmpeg"
	}
	if opts.HWAccel == nil {
		opts.HWAccel = hwaccel.NewConfig(domain.AccelNone)
	}

	return &FFmpegEngine{
		opts:    opts,
		prober:  probe.NewProber(opts.FFprobeBinary, opts.Logger),
		builder: ffmpeg.NewCommandBuilder(opts.HWAccel),
		logger:  opts.Logger,
	}
}

func (e *FFmpegEngine) Probe(ctx context.Context, sourcePath string) (domain.SourceMetadata, error) {
	return e.prober.Probe(ctx, sourcePath)
}

// Encode writes the rendition's media playlist and segments into
// job.OutputDir and reports the variant path relative to the video root.
func (e *FFmpegEngine) Encode(ctx context.Context, job domain.EncodeJob) (domain.EncodeResult, error) {
	if err := os.MkdirAll(job.OutputDir, 0o755); err != nil {
		return domain.EncodeResult{}, fmt.Errorf("create output dir: %w", err)
	}

	if e.opts.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.JobTimeout)
		defer cancel()
	}

	args := e.builder.Rendition(ffmpeg.RenditionParams{
		InputPath:       job.SourcePath,
		OutputDir:       job.OutputDir,
		Rendition:       job.Rendition,
		Mode:            job.Mode,
		SegmentDuration: e.opts.SegmentDuration,
		AudioBitrate:    e.opts.AudioBitrate,
	})

	w := NewWorker(e.opts.FFmpegBinary, args, e.logger.With("rendition", job.Rendition.Name, "job_id", job.ID))
	if err := w.Start(ctx); err != nil {
		return domain.EncodeResult{}, fmt.Errorf("start ffmpeg: %w", err)
	}
	if err := w.Wait(); err != nil {
		return domain.EncodeResult{}, err
	}

	data, err := os.ReadFile(filepath.Join(job.OutputDir, ffmpeg.VariantPlaylist))
	if err != nil {
		return domain.EncodeResult{}, fmt.Errorf("read variant playlist: %w", err)
	}

	fallback := job.Rendition.TargetBitrate + e.audioBitrate()
	bandwidth := MeasureBandwidth(job.OutputDir, string(data), fallback)

	return domain.EncodeResult{
		VariantPath: path.Join(job.Rendition.Name, ffmpeg.VariantPlaylist),
		Bandwidth:   bandwidth,
	}, nil
}

func (e *FFmpegEngine) audioBitrate() int {
	if e.opts.AudioBitrate > 0 {
		return e.opts.AudioBitrate
	}
	return ffmpeg.DefaultAudioBitrate
}

// MeasureBandwidth returns the peak bit rate over the segments listed in a
// media playlist, or fallback when no segment can be measured.
func MeasureBandwidth(dir, mediaPlaylist string, fallback int) int {
	segments, err := playlist.ParseSegments(mediaPlaylist)
	if err != nil {
		return fallback
	}

	var peak float64
	for _, seg := range segments {
		if seg.Duration <= 0 {
			continue
		}
		info, err := os.Stat(filepath.Join(dir, filepath.FromSlash(seg.URI)))
		if err != nil {
			continue
		}
		if rate := float64(info.Size()*8) / seg.Duration; rate > peak {
			peak = rate
		}
	}

	if peak == 0 {
		return fallback
	}
	return int(peak + 0.5)
}
