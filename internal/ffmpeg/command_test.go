package ffmpeg

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/eleven-am/hlsladder/internal/domain"
)

var testHW = &domain.HWAccelConfig{
	Accelerator:  domain.AccelNone,
	DecodeFlags:  []string{"-hwaccel", "none"},
	EncodeFlags:  []string{"-c:v", "libx264"},
	Encoder:      "libx264",
	Profile:      "main",
	KeyframeFlag: "-force_key_frames",
	ScaleFilter:  "scale=%d:%d",
}

func TestRenditionCommand_Reencode(t *testing.T) {
	builder := NewCommandBuilder(testHW)

	args := builder.Rendition(RenditionParams{
		InputPath:       "input.mp4",
		OutputDir:       "/tmp/out/720p",
		Rendition:       domain.Rendition{Name: "720p", FrameSize: "1280x720", TargetBitrate: 2_000_000},
		Mode:            domain.ModeReencode,
		SegmentDuration: 4,
	})

	joined := strings.Join(args, " ")
	for _, want := range []string{
		"-hwaccel none -i input.mp4",
		"-vf scale=1280:720",
		"-b:v 2000000 -maxrate 3000000 -bufsize 4000000",
		"-profile:v main",
		"-force_key_frames expr:gte(t,n_forced*4)",
		"-c:a aac -ac 2 -b:a 128000",
		"-hls_time 4 -hls_playlist_type vod",
		"-hls_segment_filename " + filepath.Join("/tmp/out/720p", "segment-%05d.ts"),
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("missing %q in %s", want, joined)
		}
	}
	if args[len(args)-1] != filepath.Join("/tmp/out/720p", VariantPlaylist) {
		t.Fatalf("playlist should be the final argument: %s", joined)
	}
}

func TestRenditionCommand_CopySkipsScalingAndDecodeFlags(t *testing.T) {
	builder := NewCommandBuilder(testHW)

	args := builder.Rendition(RenditionParams{
		InputPath:    "input.mkv",
		OutputDir:    "/tmp/out/1080p",
		Rendition:    domain.Rendition{Name: "1080p", FrameSize: "1920x1080", TargetBitrate: 5_000_000, IsOriginal: true},
		Mode:         domain.ModeCopy,
		AudioBitrate: 192_000,
	})

	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-c:v copy") {
		t.Fatalf("copy mode should copy video: %s", joined)
	}
	if strings.Contains(joined, "-vf") || strings.Contains(joined, "-hwaccel") {
		t.Fatalf("copy mode must not scale or decode on hardware: %s", joined)
	}
	if !strings.Contains(joined, "-b:a 192000") || !strings.Contains(joined, "-hls_time 6") {
		t.Fatalf("expected audio bitrate and default segment duration: %s", joined)
	}
}

func TestRenditionCommand_CUDAForcesIDR(t *testing.T) {
	hw := *testHW
	hw.Accelerator = domain.AccelCUDA
	builder := NewCommandBuilder(&hw)

	args := builder.Rendition(RenditionParams{
		InputPath: "in.mp4",
		OutputDir: "/out",
		Rendition: domain.Rendition{Name: "480p", FrameSize: "854x480", TargetBitrate: 1_000_000},
		Mode:      domain.ModeReencode,
	})

	if !strings.Contains(strings.Join(args, " "), "-forced-idr 1") {
		t.Fatalf("cuda encodes should force IDR frames: %v", args)
	}
}

func TestSubtitleCommand(t *testing.T) {
	builder := NewCommandBuilder(testHW)

	args := builder.Subtitle(SubtitleParams{InputPath: "in.mkv", StreamIndex: 2})
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-map 0:s:2 -c:s webvtt -f webvtt pipe:1") {
		t.Fatalf("unexpected subtitle args: %s", joined)
	}

	args = builder.Subtitle(SubtitleParams{InputPath: "in.mkv", OutputPath: "/out/en.vtt"})
	if args[len(args)-1] != "/out/en.vtt" {
		t.Fatalf("expected file output: %v", args)
	}
}

func TestAudioTrackCommand(t *testing.T) {
	builder := NewCommandBuilder(testHW)

	args := builder.AudioTrack(AudioTrackParams{InputPath: "in.mkv", StreamIndex: 1, OutputPath: "/out/es.aac", Channels: 6})
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-map 0:a:1 -vn -c:a aac -ac 2 -b:a 128000 -f adts /out/es.aac") {
		t.Fatalf("unexpected audio args: %s", joined)
	}
}
