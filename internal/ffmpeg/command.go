package ffmpeg

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/eleven-am/hlsladder/internal/domain"
)

const (
	// VariantPlaylist is the media playlist name written into every rendition directory.
	VariantPlaylist = "playlist.m3u8"
	segmentPattern  = "segment-%05d.ts"

	DefaultSegmentDuration = 6
	DefaultAudioBitrate    = 128_000
	defaultAudioChannels   = 2
)

type CommandBuilder struct {
	HWAccel *domain.HWAccelConfig
}

func NewCommandBuilder(hwAccel *domain.HWAccelConfig) *CommandBuilder {
	return &CommandBuilder{HWAccel: hwAccel}
}

type RenditionParams struct {
	InputPath       string
	OutputDir       string
	Rendition       domain.Rendition
	Mode            domain.EncodeMode
	SegmentDuration int
	AudioBitrate    int
}

type SubtitleParams struct {
	InputPath   string
	StreamIndex int
	OutputPath  string
}

type AudioTrackParams struct {
	InputPath   string
	StreamIndex int
	OutputPath  string
	Bitrate     int
	Channels    int
}

// Rendition produces a complete VOD media playlist and its segments for one
// rendition in OutputDir.
func (b *CommandBuilder) Rendition(p RenditionParams) []string {
	segDuration := p.SegmentDuration
	if segDuration <= 0 {
		segDuration = DefaultSegmentDuration
	}
	audioBitrate := p.AudioBitrate
	if audioBitrate <= 0 {
		audioBitrate = DefaultAudioBitrate
	}

	args := []string{
		"-nostats", "-hide_banner", "-loglevel", "warning", "-y",
	}

	if p.Mode == domain.ModeReencode {
		args = append(args, b.HWAccel.DecodeFlags...)
	}

	args = append(args,
		"-i", p.InputPath,
		"-map", "0:V:0",
		"-map", "0:a:0?",
	)

	args = append(args, b.videoEncodeArgs(p, segDuration)...)

	args = append(args,
		"-c:a", "aac",
		"-ac", strconv.Itoa(defaultAudioChannels),
		"-b:a", strconv.Itoa(audioBitrate),
	)

	args = append(args,
		"-f", "hls",
		"-hls_time", strconv.Itoa(segDuration),
		"-hls_playlist_type", "vod",
		"-hls_segment_type", "mpegts",
		"-hls_flags", "independent_segments",
		"-hls_segment_filename", filepath.Join(p.OutputDir, segmentPattern),
		filepath.Join(p.OutputDir, VariantPlaylist),
	)

	return args
}

func (b *CommandBuilder) videoEncodeArgs(p RenditionParams, segDuration int) []string {
	if p.Mode == domain.ModeCopy {
		return []string{"-c:v", "copy"}
	}

	bitrate := p.Rendition.TargetBitrate
	width, height, _ := p.Rendition.Dimensions()

	args := make([]string, len(b.HWAccel.EncodeFlags))
	copy(args, b.HWAccel.EncodeFlags)

	args = append(args,
		"-vf", fmt.Sprintf(b.HWAccel.ScaleFilter, width, height),
		"-b:v", strconv.Itoa(bitrate),
		"-maxrate", strconv.Itoa(int(float64(bitrate)*1.5)),
		"-bufsize", strconv.Itoa(bitrate*2),
	)

	if b.HWAccel.Profile != "" {
		args = append(args, "-profile:v", b.HWAccel.Profile)
	}

	args = append(args, b.HWAccel.KeyframeFlag, fmt.Sprintf("expr:gte(t,n_forced*%d)", segDuration))

	if b.HWAccel.Accelerator == domain.AccelCUDA {
		args = append(args, "-forced-idr", "1")
	}

	return args
}

// Subtitle converts one subtitle stream to WebVTT. An empty OutputPath
// writes to stdout.
func (b *CommandBuilder) Subtitle(p SubtitleParams) []string {
	out := p.OutputPath
	if out == "" {
		out = "pipe:1"
	}
	return []string{
		"-nostats", "-hide_banner", "-loglevel", "warning", "-y",
		"-i", p.InputPath,
		"-map", fmt.Sprintf("0:s:%d", p.StreamIndex),
		"-c:s", "webvtt",
		"-f", "webvtt",
		out,
	}
}

// AudioTrack extracts one audio stream as packed ADTS AAC.
func (b *CommandBuilder) AudioTrack(p AudioTrackParams) []string {
	bitrate := p.Bitrate
	if bitrate <= 0 {
		bitrate = DefaultAudioBitrate
	}
	channels := p.Channels
	if channels <= 0 || channels > defaultAudioChannels {
		channels = defaultAudioChannels
	}
	return []string{
		"-nostats", "-hide_banner", "-loglevel", "warning", "-y",
		"-i", p.InputPath,
		"-map", fmt.Sprintf("0:a:%d", p.StreamIndex),
		"-vn",
		"-c:a", "aac",
		"-ac", strconv.Itoa(channels),
		"-b:a", strconv.Itoa(bitrate),
		"-f", "adts",
		p.OutputPath,
	}
}
