package rendition

import (
	"fmt"

	"github.com/eleven-am/hlsladder/internal/domain"
)

type bounds struct {
	min int
	max int
}

var targetHeights = []int{2160, 1080, 720, 480, 360}

var bitrateBounds = map[int]bounds{
	2160: {min: 8000000, max: 20000000},
	1080: {min: 2000000, max: 8000000},
	720:  {min: 1000000, max: 4000000},
	480:  {min: 500000, max: 2000000},
	360:  {min: 300000, max: 1000000},
}

// Ladder derives a rendition ladder from the source when no renditions are
// configured: every standard height at or below the source, with bitrates
// scaled by pixel count and clamped per height.
func Ladder(source domain.SourceMetadata) []domain.Rendition {
	if source.Width <= 0 || source.Height <= 0 {
		return nil
	}

	srcBitrate := source.Bitrate
	if srcBitrate <= 0 {
		srcBitrate = estimateBitrate(source.Height)
	}
	srcPixels := source.Width * source.Height

	var renditions []domain.Rendition
	for _, targetHeight := range targetHeights {
		if targetHeight > source.Height {
			continue
		}

		targetWidth := calculateWidth(source.Width, source.Height, targetHeight)
		ratio := float64(targetWidth*targetHeight) / float64(srcPixels)
		bitrate := clampBitrate(targetHeight, int(float64(srcBitrate)*ratio))

		renditions = append(renditions, domain.Rendition{
			Name:          fmt.Sprintf("%dp", targetHeight),
			FrameSize:     domain.FrameSize(targetWidth, targetHeight),
			TargetBitrate: bitrate,
		})
	}

	return renditions
}

func calculateWidth(srcWidth, srcHeight, targetHeight int) int {
	aspectRatio := float64(srcWidth) / float64(srcHeight)
	width := int(float64(targetHeight) * aspectRatio)
	if width%2 != 0 {
		width++
	}
	return width
}

func clampBitrate(height, bitrate int) int {
	b, ok := bitrateBounds[height]
	if !ok {
		return bitrate
	}
	if bitrate < b.min {
		return b.min
	}
	if bitrate > b.max {
		return b.max
	}
	return bitrate
}

func estimateBitrate(height int) int {
	switch {
	case height >= 2160:
		return 15000000
	case height >= 1080:
		return 5000000
	case height >= 720:
		return 2500000
	case height >= 480:
		return 1200000
	default:
		return 800000
	}
}
