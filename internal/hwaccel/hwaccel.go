package hwaccel

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/eleven-am/hlsladder/internal/domain"
)

// candidates pairs each accelerator with the hwaccel method and encoder
// ffmpeg must both report before the accelerator is considered usable.
var candidates = []struct {
	accel   domain.Accelerator
	method  string
	encoder string
}{
	{domain.AccelCUDA, "cuda", "h264_nvenc"},
	{domain.AccelVideoToolbox, "videotoolbox", "h264_videotoolbox"},
	{domain.AccelVAAPI, "vaapi", "h264_vaapi"},
	{domain.AccelQSV, "qsv", "h264_qsv"},
}

var priority = []domain.Accelerator{domain.AccelCUDA, domain.AccelQSV, domain.AccelVideoToolbox, domain.AccelVAAPI}

// Detect lists the accelerators usable through the given ffmpeg binary.
// AccelNone is always last.
func Detect(ctx context.Context, binary string) ([]domain.Accelerator, error) {
	if binary == "" {
		binary = "ffmpeg"
	}

	methods, err := listLines(ctx, binary, "-hwaccels")
	if err != nil {
		return nil, fmt.Errorf("list hwaccels: %w", err)
	}
	encoders, err := listLines(ctx, binary, "-encoders")
	if err != nil {
		return nil, fmt.Errorf("list encoders: %w", err)
	}

	var available []domain.Accelerator
	for _, c := range candidates {
		if methods[c.method] && hasEncoder(encoders, c.encoder) {
			available = append(available, c.accel)
		}
	}

	return append(available, domain.AccelNone), nil
}

func Select(available []domain.Accelerator) domain.Accelerator {
	for _, accel := range priority {
		for _, a := range available {
			if a == accel {
				return accel
			}
		}
	}
	return domain.AccelNone
}

// DetectBest falls back to software encoding when detection fails.
func DetectBest(ctx context.Context, binary string) *domain.HWAccelConfig {
	available, err := Detect(ctx, binary)
	if err != nil {
		return NewConfig(domain.AccelNone)
	}
	return NewConfig(Select(available))
}

func NewConfig(accel domain.Accelerator) *domain.HWAccelConfig {
	switch accel {
	case domain.AccelCUDA:
		return &domain.HWAccelConfig{
			Accelerator:  domain.AccelCUDA,
			DecodeFlags:  []string{"-hwaccel", "cuda", "-hwaccel_output_format", "cuda"},
			EncodeFlags:  []string{"-c:v", "h264_nvenc", "-preset", "p5", "-rc", "vbr"},
			Encoder:      "h264_nvenc",
			Profile:      "main",
			KeyframeFlag: "-force_key_frames",
			ScaleFilter:  "scale_cuda=%d:%d:format=nv12",
		}
	case domain.AccelVideoToolbox:
		return &domain.HWAccelConfig{
			Accelerator:  domain.AccelVideoToolbox,
			DecodeFlags:  []string{"-hwaccel", "videotoolbox"},
			EncodeFlags:  []string{"-c:v", "h264_videotoolbox", "-allow_sw", "1"},
			Encoder:      "h264_videotoolbox",
			Profile:      "main",
			KeyframeFlag: "-force_key_frames",
			ScaleFilter:  "scale=%d:%d",
		}
	case domain.AccelVAAPI:
		return &domain.HWAccelConfig{
			Accelerator:  domain.AccelVAAPI,
			DecodeFlags:  []string{"-hwaccel", "vaapi", "-vaapi_device", "/dev/dri/renderD128", "-hwaccel_output_format", "vaapi"},
			EncodeFlags:  []string{"-c:v", "h264_vaapi"},
			Encoder:      "h264_vaapi",
			Profile:      "main",
			KeyframeFlag: "-force_key_frames",
			ScaleFilter:  "scale_vaapi=%d:%d:format=nv12",
		}
	case domain.AccelQSV:
		return &domain.HWAccelConfig{
			Accelerator:  domain.AccelQSV,
			DecodeFlags:  []string{"-hwaccel", "qsv", "-hwaccel_output_format", "qsv"},
			EncodeFlags:  []string{"-c:v", "h264_qsv", "-preset", "medium"},
			Encoder:      "h264_qsv",
			Profile:      "main",
			KeyframeFlag: "-force_key_frames",
			ScaleFilter:  "scale_qsv=%d:%d:format=nv12",
		}
	default:
		return &domain.HWAccelConfig{
			Accelerator:  domain.AccelNone,
			DecodeFlags:  []string{},
			EncodeFlags:  []string{"-c:v", "libx264", "-preset", "veryfast"},
			Encoder:      "libx264",
			Profile:      "main",
			KeyframeFlag: "-force_key_frames",
			ScaleFilter:  "scale=%d:%d",
		}
	}
}

func listLines(ctx context.Context, binary string, flag string) (map[string]bool, error) {
	output, err := exec.CommandContext(ctx, binary, "-hide_banner", flag).Output()
	if err != nil {
		return nil, err
	}

	result := make(map[string]bool)
	scanner := bufio.NewScanner(strings.NewReader(string(output)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasSuffix(line, ":") {
			continue
		}
		result[line] = true
	}
	return result, scanner.Err()
}

func hasEncoder(lines map[string]bool, encoder string) bool {
	for line := range lines {
		for _, field := range strings.Fields(line) {
			if field == encoder {
				return true
			}
		}
	}
	return false
}
