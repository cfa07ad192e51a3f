package rendition

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/eleven-am/hlsladder/internal/domain"
)

// Plan returns the renditions to encode for source: every configured
// rendition (deduplicated by frame size, first wins) plus the source's native
// resolution. When a configured rendition already covers the native frame
// size it is marked original instead of adding a duplicate. The result is
// ordered by the numeric prefix of the name.
func Plan(source domain.SourceMetadata, configured []domain.Rendition) ([]domain.Rendition, error) {
	if source.Width <= 0 || source.Height <= 0 {
		return nil, fmt.Errorf("%w: frame size %dx%d", domain.ErrInvalidSource, source.Width, source.Height)
	}

	native := domain.FrameSize(source.Width, source.Height)
	seen := make(map[string]bool, len(configured)+1)
	planned := make([]domain.Rendition, 0, len(configured)+1)
	var covered bool

	for _, r := range configured {
		key := canonicalFrameSize(r.FrameSize)
		if seen[key] {
			continue
		}
		seen[key] = true

		r.IsOriginal = key == native
		if r.IsOriginal {
			covered = true
		}
		planned = append(planned, r)
	}

	if !covered {
		planned = append(planned, domain.Rendition{
			Name:          fmt.Sprintf("%dp", source.Height),
			FrameSize:     native,
			TargetBitrate: source.Bitrate,
			IsOriginal:    true,
		})
	}

	sort.SliceStable(planned, func(i, j int) bool {
		return lessByName(planned[i].Name, planned[j].Name)
	})

	return planned, nil
}

// ParseBitrate accepts plain bits per second ("800000") or k/M suffixed
// values ("1200k", "5M", "2.5m").
func ParseBitrate(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty bitrate")
	}

	multiplier := 1.0
	switch s[len(s)-1] {
	case 'k', 'K':
		multiplier = 1_000
		s = s[:len(s)-1]
	case 'm', 'M':
		multiplier = 1_000_000
		s = s[:len(s)-1]
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid bitrate %q", s)
	}
	return int(v * multiplier), nil
}

func canonicalFrameSize(s string) string {
	w, h, err := domain.ParseFrameSize(s)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(s))
	}
	return domain.FrameSize(w, h)
}

// lessByName orders "360p" before "480p" before "1080p". Names without a
// numeric prefix sort after numbered ones, alphabetically.
func lessByName(a, b string) bool {
	na, okA := numericPrefix(a)
	nb, okB := numericPrefix(b)
	switch {
	case okA && okB && na != nb:
		return na < nb
	case okA != okB:
		return okA
	default:
		return a < b
	}
}

func numericPrefix(name string) (int, bool) {
	end := strings.IndexFunc(name, func(r rune) bool { return !unicode.IsDigit(r) })
	if end == -1 {
		end = len(name)
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(name[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
