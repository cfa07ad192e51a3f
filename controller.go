// Package hlsladder converts a source video into an adaptive bitrate HLS
// ladder and serves the resulting master manifest.
//
// A conversion probes the source, plans the renditions, encodes them all in
// parallel and publishes a master manifest only when every rendition
// succeeded. Audio and subtitle tracks can be attached to a published
// master afterwards. When the master is requested it is rewritten for the
// request's base path and stripped of duplicate declarations.
//
// # Basic Usage
//
//	store, _ := storage.NewFS("/srv/hls")
//	controller, err := hlsladder.NewController(ctx, hlsladder.Options{
//	    Storage:     store,
//	    OutputDir:   "/srv/hls",
//	    URITemplate: "http://build-host/output/{videoId}",
//	})
//
//	result, err := controller.Convert(ctx, "movie-42", "/media/movie.mkv")
//	if errors.Is(err, hlsladder.ErrBatchConversionFailed) {
//	    // nothing was published; result.Failures says why
//	}
//
//	master, err := controller.Master(ctx, "movie-42", "/stream/movie-42")
package hlsladder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/eleven-am/hlsladder/internal/domain"
	"github.com/eleven-am/hlsladder/internal/extract"
	"github.com/eleven-am/hlsladder/internal/ffmpeg"
	"github.com/eleven-am/hlsladder/internal/hwaccel"
	"github.com/eleven-am/hlsladder/internal/lock"
	"github.com/eleven-am/hlsladder/internal/metrics"
	"github.com/eleven-am/hlsladder/internal/playlist"
	"github.com/eleven-am/hlsladder/internal/rendition"
	"github.com/eleven-am/hlsladder/internal/rewrite"
	"github.com/eleven-am/hlsladder/internal/tracks"
	"github.com/eleven-am/hlsladder/internal/transcode"
)

type (
	// Storage persists master, variant and track manifests. See the
	// internal storage package for filesystem, SQLite and Redis backends.
	Storage = domain.Storage

	// Engine probes sources and encodes renditions. The default engine runs
	// ffprobe and ffmpeg.
	Engine = domain.Engine

	Rendition      = domain.Rendition
	SourceMetadata = domain.SourceMetadata
	MediaTrack     = domain.MediaTrack
	EncodeOutcome  = domain.EncodeOutcome
	EncodeMode     = domain.EncodeMode
	ManifestKey    = domain.ManifestKey
	BatchError     = domain.BatchError
)

var (
	ErrInvalidSource         = domain.ErrInvalidSource
	ErrNoRenditionsPlanned   = domain.ErrNoRenditionsPlanned
	ErrBatchConversionFailed = domain.ErrBatchConversionFailed
	ErrManifestNotFound      = domain.ErrManifestNotFound
	ErrManifestMalformed     = domain.ErrManifestMalformed
	ErrReferentialIntegrity  = domain.ErrReferentialIntegrity
	ErrVideoBusy             = domain.ErrVideoBusy
)

// HWAccelAuto asks NewController to detect the best available encoder.
const HWAccelAuto = "auto"

// Options configures the Controller behavior and dependencies.
type Options struct {
	// Storage is required. Holds every manifest the controller writes.
	Storage Storage

	// OutputDir is required. Each video's renditions and tracks are written
	// below OutputDir/{videoId}.
	OutputDir string

	// URITemplate is required. The build-time origin of variant URIs,
	// e.g. "http://build-host/output/{videoId}". It must contain {videoId}
	// and may end in a {rendition} path segment.
	URITemplate string

	// Renditions is the configured ladder. When empty a ladder is derived
	// from each source.
	Renditions []Rendition

	// CopyThresholdHeight is the tallest original rendition that is stream
	// copied instead of re-encoded.
	// Default: 1080.
	CopyThresholdHeight int

	// MaxParallel bounds concurrent encode jobs per conversion.
	// Default: 0 (the whole batch at once).
	MaxParallel int

	// HWAccel is "auto", "none" or an accelerator name ("cuda", "qsv", ...).
	// Default: "none".
	HWAccel string

	// FFmpegBinary and FFprobeBinary default to "ffmpeg" and "ffprobe".
	FFmpegBinary  string
	FFprobeBinary string

	// SegmentDuration is the HLS segment length in seconds.
	// Default: 6.
	SegmentDuration int

	// AudioBitrate in bits per second for every AAC stream produced.
	// Default: 128000.
	AudioBitrate int

	// JobTimeout kills an encode job that runs longer. Zero disables it.
	JobTimeout time.Duration

	// ExtractAudio and ExtractSubtitles attach every embedded track of the
	// source after a successful conversion.
	ExtractAudio     bool
	ExtractSubtitles bool

	// LockDir holds per-video lock files.
	// Default: OutputDir/.locks.
	LockDir string

	// LockWait is how long a writer waits for a busy video before failing
	// with ErrVideoBusy. Zero fails immediately.
	LockWait time.Duration

	// Engine replaces the ffmpeg engine.
	Engine Engine

	Logger  *slog.Logger
	Metrics *metrics.Recorder
}

func (o *Options) setDefaults() {
	if o.CopyThresholdHeight == 0 {
		o.CopyThresholdHeight = 1080
	}
	if o.HWAccel == "" {
		o.HWAccel = string(domain.AccelNone)
	}
	if o.FFmpegBinary == "" {
		o.FFmpegBinary = "ffmpeg"
	}
	if o.FFprobeBinary == "" {
		o.FFprobeBinary = "ffprobe"
	}
	if o.SegmentDuration == 0 {
		o.SegmentDuration = ffmpeg.DefaultSegmentDuration
	}
	if o.AudioBitrate == 0 {
		o.AudioBitrate = ffmpeg.DefaultAudioBitrate
	}
	if o.LockDir == "" {
		o.LockDir = filepath.Join(o.OutputDir, ".locks")
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
}

func (o *Options) validate() error {
	if o.Storage == nil {
		return errors.New("hlsladder: Storage is required")
	}
	if o.OutputDir == "" {
		return errors.New("hlsladder: OutputDir is required")
	}
	if err := playlist.URITemplate(o.URITemplate).Validate(); err != nil {
		return fmt.Errorf("hlsladder: %w", err)
	}
	return nil
}

// ConversionResult reports what a conversion did. Published is false when
// any rendition failed; Successes and Failures are still filled in.
type ConversionResult struct {
	VideoID    string
	BatchID    string
	Source     SourceMetadata
	Renditions []Rendition
	Successes  []EncodeOutcome
	Failures   []EncodeOutcome

	Published      bool
	Master         string
	AudioTracks    int
	SubtitleTracks int
}

// Controller is the main entry point for ladder conversions and manifest
// serving. It is safe for concurrent use; writers of the same video are
// serialized through per-video locks.
type Controller struct {
	opts         Options
	engine       Engine
	orchestrator *transcode.Orchestrator
	integrator   *tracks.Integrator
	extractor    *extract.Extractor
	rewriter     *rewrite.Rewriter
	locker       *lock.Locker
	template     playlist.URITemplate
	logger       *slog.Logger
}

// NewController validates opts and wires the pipeline. Hardware detection
// runs here when HWAccel is "auto".
func NewController(ctx context.Context, opts Options) (*Controller, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	opts.setDefaults()

	var hwConfig *domain.HWAccelConfig
	if opts.HWAccel == HWAccelAuto {
		hwConfig = hwaccel.DetectBest(ctx, opts.FFmpegBinary)
		opts.Logger.Info("hardware acceleration selected", "accelerator", string(hwConfig.Accelerator))
	} else {
		hwConfig = hwaccel.NewConfig(domain.Accelerator(opts.HWAccel))
	}

	engine := opts.Engine
	if engine == nil {
		engine = transcode.NewFFmpegEngine(transcode.EngineOptions{
			FFmpegBinary:    opts.FFmpegBinary,
			FFprobeBinary:   opts.FFprobeBinary,
			HWAccel:         hwConfig,
			SegmentDuration: opts.SegmentDuration,
			AudioBitrate:    opts.AudioBitrate,
			JobTimeout:      opts.JobTimeout,
			Logger:          opts.Logger,
		})
	}

	locker, err := lock.NewLocker(opts.LockDir, opts.LockWait)
	if err != nil {
		return nil, err
	}

	template := playlist.URITemplate(opts.URITemplate)

	return &Controller{
		opts:         opts,
		engine:       engine,
		orchestrator: transcode.NewOrchestrator(engine, opts.MaxParallel, opts.Logger, opts.Metrics),
		integrator:   tracks.NewIntegrator(opts.Storage, opts.Logger),
		extractor:    extract.NewExtractor(opts.FFmpegBinary, ffmpeg.NewCommandBuilder(hwConfig), opts.AudioBitrate, opts.Logger),
		rewriter:     rewrite.NewRewriter(opts.Storage, template, opts.Logger, opts.Metrics),
		locker:       locker,
		template:     template,
		logger:       opts.Logger,
	}, nil
}

// Plan probes sourcePath and returns the renditions a conversion would
// encode, in ladder order.
func (c *Controller) Plan(ctx context.Context, sourcePath string) (SourceMetadata, []Rendition, error) {
	meta, err := c.engine.Probe(ctx, sourcePath)
	if err != nil {
		return SourceMetadata{}, nil, fmt.Errorf("probe source: %w", err)
	}

	configured := c.opts.Renditions
	if len(configured) == 0 {
		configured = rendition.Ladder(meta)
	}

	renditions, err := rendition.Plan(meta, configured)
	if err != nil {
		return meta, nil, err
	}
	return meta, renditions, nil
}

// EncodeMode reports whether r would be stream copied or re-encoded.
func (c *Controller) EncodeMode(r Rendition, source SourceMetadata) EncodeMode {
	return transcode.NewJob(r, source, "", "", c.opts.CopyThresholdHeight).Mode
}

// Convert encodes sourcePath into the ladder of videoID and publishes its
// master manifest.
//
// Publication is all-or-nothing: when any rendition fails, no manifest is
// written and the returned error is a *BatchError. The result is returned
// either way.
func (c *Controller) Convert(ctx context.Context, videoID, sourcePath string) (*ConversionResult, error) {
	release, err := c.locker.Acquire(ctx, videoID)
	if err != nil {
		return nil, err
	}
	defer c.unlock(videoID, release)

	logger := c.logger.With("video_id", videoID)
	start := time.Now()

	meta, renditions, err := c.Plan(ctx, sourcePath)
	if err != nil {
		c.opts.Metrics.Conversion("failed")
		return nil, err
	}

	result := &ConversionResult{VideoID: videoID, Source: meta, Renditions: renditions}
	logger.Info("conversion planned", "source", sourcePath, "renditions", len(renditions))

	videoDir := c.videoDir(videoID)
	jobs := transcode.NewJobs(renditions, meta, sourcePath, videoDir, c.opts.CopyThresholdHeight)

	batch, err := c.orchestrator.Run(ctx, jobs)
	result.BatchID = batch.BatchID
	result.Successes = batch.Successes
	result.Failures = batch.Failures
	if err != nil {
		if len(batch.Successes) > 0 {
			c.opts.Metrics.Conversion("partial")
		} else {
			c.opts.Metrics.Conversion("failed")
		}
		logger.Error("conversion not published", "failures", len(batch.Failures), "successes", len(batch.Successes), "error", err)
		return result, err
	}

	if err := c.storeVariants(ctx, videoID, batch.Successes); err != nil {
		c.opts.Metrics.Conversion("failed")
		return result, err
	}

	m := playlist.Build(videoID, batch.Successes, c.template)
	if err := c.storeMaster(ctx, videoID, m); err != nil {
		c.opts.Metrics.Conversion("failed")
		return result, err
	}
	result.Published = true

	if c.opts.ExtractAudio || c.opts.ExtractSubtitles {
		result.AudioTracks, result.SubtitleTracks = c.attachEmbeddedTracks(ctx, videoID, sourcePath, meta, m)
	}
	result.Master = m.Encode()

	c.opts.Metrics.Conversion("success")
	logger.Info("conversion published",
		"variants", len(m.Variants()),
		"audio_tracks", result.AudioTracks,
		"subtitle_tracks", result.SubtitleTracks,
		"duration", time.Since(start),
	)
	return result, nil
}

// AttachAudio declares tracks on the published master of videoID and
// returns how many were added. Tracks already declared are skipped.
func (c *Controller) AttachAudio(ctx context.Context, videoID string, audio []MediaTrack) (int, error) {
	return c.attach(ctx, videoID, audio, tracks.AudioDir, c.integrator.IntegrateAudio)
}

// AttachSubtitles is AttachAudio for subtitle tracks.
func (c *Controller) AttachSubtitles(ctx context.Context, videoID string, subtitles []MediaTrack) (int, error) {
	return c.attach(ctx, videoID, subtitles, tracks.SubtitlesDir, c.integrator.IntegrateSubtitles)
}

type integrateFunc func(ctx context.Context, videoID string, m *playlist.Manifest, tracks []domain.MediaTrack) (int, error)

func (c *Controller) attach(ctx context.Context, videoID string, list []MediaTrack, dir string, integrate integrateFunc) (int, error) {
	release, err := c.locker.Acquire(ctx, videoID)
	if err != nil {
		return 0, err
	}
	defer c.unlock(videoID, release)

	raw, err := c.opts.Storage.ReadManifest(ctx, domain.MasterKey(videoID))
	if err != nil {
		return 0, fmt.Errorf("read master manifest: %w", err)
	}
	m, err := playlist.Parse(string(raw))
	if err != nil {
		return 0, err
	}

	staged, err := c.stageTracks(ctx, videoID, m, list, dir)
	if err != nil {
		return 0, err
	}

	added, err := integrate(ctx, videoID, m, staged)
	if err != nil {
		return 0, err
	}
	if added == 0 {
		return 0, nil
	}

	if err := c.storeMaster(ctx, videoID, m); err != nil {
		return 0, err
	}
	return added, nil
}

// Master returns the stored master manifest of videoID rewritten for a
// request served under requestBase, e.g. "/stream/movie-42".
func (c *Controller) Master(ctx context.Context, videoID, requestBase string) (string, error) {
	return c.rewriter.Serve(ctx, rewrite.Context{VideoID: videoID, RequestBase: requestBase})
}

// Manifest returns a stored manifest unchanged.
func (c *Controller) Manifest(ctx context.Context, key ManifestKey) ([]byte, error) {
	return c.opts.Storage.ReadManifest(ctx, key)
}

func (c *Controller) videoDir(videoID string) string {
	return filepath.Join(c.opts.OutputDir, videoID)
}

// storeVariants copies the variant playlists the engine wrote into manifest
// storage.
func (c *Controller) storeVariants(ctx context.Context, videoID string, outcomes []EncodeOutcome) error {
	for _, o := range outcomes {
		data, err := os.ReadFile(filepath.Join(c.videoDir(videoID), filepath.FromSlash(o.VariantPath)))
		if err != nil {
			return fmt.Errorf("read variant playlist %s: %w", o.VariantPath, err)
		}
		key := domain.ManifestKey{VideoID: videoID, Role: domain.RoleVariant, Name: o.VariantPath}
		if err := c.opts.Storage.WriteManifest(ctx, key, data); err != nil {
			return fmt.Errorf("store variant playlist %s: %w", o.VariantPath, err)
		}
	}
	return nil
}

func (c *Controller) storeMaster(ctx context.Context, videoID string, m *playlist.Manifest) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if err := c.opts.Storage.WriteManifest(ctx, domain.MasterKey(videoID), []byte(m.Encode())); err != nil {
		return fmt.Errorf("store master manifest: %w", err)
	}
	return nil
}

// attachEmbeddedTracks extracts the source's own tracks and attaches them
// to the already published m. Failures are logged; the published master
// stays valid either way.
func (c *Controller) attachEmbeddedTracks(ctx context.Context, videoID, sourcePath string, meta SourceMetadata, m *playlist.Manifest) (int, int) {
	logger := c.logger.With("video_id", videoID)

	wanted := meta
	if !c.opts.ExtractAudio {
		wanted.Audios = nil
	}
	if !c.opts.ExtractSubtitles {
		wanted.Subtitles = nil
	}

	extracted := c.extractor.All(ctx, sourcePath, wanted, c.videoDir(videoID))

	updated := m.Clone()
	audio, err := c.integrator.IntegrateAudio(ctx, videoID, updated, extracted.Audio)
	if err != nil {
		logger.Warn("audio tracks not attached", "error", err)
		audio = 0
		updated = m.Clone()
	}
	subs, err := c.integrator.IntegrateSubtitles(ctx, videoID, updated, extracted.Subtitles)
	if err != nil {
		logger.Warn("subtitle tracks not attached", "error", err)
		subs = 0
	}

	if audio+subs == 0 {
		return 0, 0
	}
	if err := c.storeMaster(ctx, videoID, updated); err != nil {
		logger.Warn("master with tracks not stored", "error", err)
		return 0, 0
	}

	*m = *updated
	return audio, subs
}

func (c *Controller) unlock(videoID string, release func() error) {
	if err := release(); err != nil {
		c.logger.Warn("failed to release video lock", "video_id", videoID, "error", err)
	}
}
