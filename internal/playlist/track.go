package playlist

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/Eyevinn/hls-m3u8/m3u8"
)

// TrackPlaylist renders the fixed VOD sub-manifest used for audio and
// subtitle tracks: a single segment that is the whole resource.
func TrackPlaylist(resource string, duration float64) string {
	var b strings.Builder

	target := int(math.Ceil(duration))
	if target < 1 {
		target = 1
	}

	b.WriteString("#EXTM3U\n")
	b.WriteString("#EXT-X-VERSION:3\n")
	b.WriteString("#EXT-X-PLAYLIST-TYPE:VOD\n")
	b.WriteString(fmt.Sprintf("#EXT-X-TARGETDURATION:%d\n", target))
	b.WriteString("#EXT-X-MEDIA-SEQUENCE:0\n")
	b.WriteString(fmt.Sprintf("#EXTINF:%.3f,\n", duration))
	b.WriteString(resource + "\n")
	b.WriteString("#EXT-X-ENDLIST\n")

	return b.String()
}

// Segment is one entry of a media playlist.
type Segment struct {
	Index    int
	URI      string
	Duration float64
}

// ParseSegments lists the segments of a media playlist in order.
func ParseSegments(text string) ([]Segment, error) {
	p, listType, err := m3u8.DecodeFrom(strings.NewReader(text), false)
	if err != nil {
		return nil, fmt.Errorf("decode media playlist: %w", err)
	}
	media, ok := p.(*m3u8.MediaPlaylist)
	if !ok || listType != m3u8.MEDIA {
		return nil, errors.New("decode media playlist: not a media playlist")
	}

	segments := make([]Segment, 0, media.Count())
	for _, seg := range media.Segments {
		if seg == nil {
			continue
		}
		segments = append(segments, Segment{
			Index:    len(segments),
			URI:      seg.URI,
			Duration: seg.Duration,
		})
	}
	return segments, nil
}

// TotalDuration sums the segment durations of a media playlist.
func TotalDuration(text string) (float64, error) {
	segments, err := ParseSegments(text)
	if err != nil {
		return 0, err
	}
	var total float64
	for _, seg := range segments {
		total += seg.Duration
	}
	return total, nil
}
