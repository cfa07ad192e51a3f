package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"

	"github.com/eleven-am/hlsladder/internal/domain"
)

type Prober struct {
	binary string
	logger *slog.Logger
}

// NewProber runs the given ffprobe binary, "ffprobe" from PATH when empty.
func NewProber(binary string, logger *slog.Logger) *Prober {
	if binary == "" {
		binary = "ffprobe"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Prober{binary: binary, logger: logger}
}

type ffprobeOutput struct {
	Streams []ffprobeStream `json:"streams"`
	Format  ffprobeFormat   `json:"format"`
}

type ffprobeStream struct {
	Index       int               `json:"index"`
	CodecName   string            `json:"codec_name"`
	CodecType   string            `json:"codec_type"`
	Width       int               `json:"width"`
	Height      int               `json:"height"`
	Channels    int               `json:"channels"`
	BitRate     string            `json:"bit_rate"`
	Tags        map[string]string `json:"tags"`
	Disposition ffprobeDisp       `json:"disposition"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
	BitRate  string `json:"bit_rate"`
}

type ffprobeDisp struct {
	Default     int `json:"default"`
	Forced      int `json:"forced"`
	AttachedPic int `json:"attached_pic"`
}

// Probe reads dimensions, bitrate, duration and the audio and subtitle
// streams of the source at path. A source without a video stream is
// ErrInvalidSource.
func (p *Prober) Probe(ctx context.Context, path string) (domain.SourceMetadata, error) {
	cmd := exec.CommandContext(ctx, p.binary,
		"-v", "error",
		"-show_format",
		"-show_streams",
		"-of", "json",
		path,
	)

	output, err := cmd.Output()
	if err != nil {
		return domain.SourceMetadata{}, fmt.Errorf("run ffprobe: %w", err)
	}

	var ff ffprobeOutput
	if err := json.Unmarshal(output, &ff); err != nil {
		return domain.SourceMetadata{}, fmt.Errorf("decode ffprobe output: %w", err)
	}

	meta := parse(ff)
	if meta.Width <= 0 || meta.Height <= 0 {
		return domain.SourceMetadata{}, fmt.Errorf("%w: %s has no video stream", domain.ErrInvalidSource, path)
	}

	p.logger.Debug("probed source",
		"path", path,
		"frame_size", domain.FrameSize(meta.Width, meta.Height),
		"bitrate", meta.Bitrate,
		"duration", meta.Duration,
		"audio_streams", len(meta.Audios),
		"subtitle_streams", len(meta.Subtitles),
	)

	return meta, nil
}

func parse(ff ffprobeOutput) domain.SourceMetadata {
	var meta domain.SourceMetadata

	if dur, err := strconv.ParseFloat(ff.Format.Duration, 64); err == nil {
		meta.Duration = dur
	}

	var haveVideo bool
	for _, s := range ff.Streams {
		switch s.CodecType {
		case "video":
			if haveVideo || s.Disposition.AttachedPic == 1 {
				continue
			}
			haveVideo = true
			meta.Width = s.Width
			meta.Height = s.Height
			meta.Codec = s.CodecName
			meta.Bitrate = firstBitrate(s.BitRate, s.Tags["BPS"], ff.Format.BitRate)
		case "audio":
			meta.Audios = append(meta.Audios, domain.AudioStream{
				Index:    len(meta.Audios),
				Codec:    s.CodecName,
				Language: s.Tags["language"],
				Title:    s.Tags["title"],
				Channels: s.Channels,
				Bitrate:  firstBitrate(s.BitRate, s.Tags["BPS"]),
				Default:  s.Disposition.Default == 1,
			})
		case "subtitle":
			meta.Subtitles = append(meta.Subtitles, domain.SubtitleStream{
				Index:    len(meta.Subtitles),
				Codec:    s.CodecName,
				Language: s.Tags["language"],
				Title:    s.Tags["title"],
				Forced:   s.Disposition.Forced == 1,
				Default:  s.Disposition.Default == 1,
			})
		}
	}

	return meta
}

func firstBitrate(values ...string) int {
	for _, s := range values {
		if v := parseBitrate(s); v > 0 {
			return v
		}
	}
	return 0
}

func parseBitrate(s string) int {
	if s == "" {
		return 0
	}
	v, _ := strconv.Atoi(s)
	return v
}
