package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Rendition is a value type; two renditions are the same rendition when
// their frame sizes match.
type Rendition struct {
	Name          string
	FrameSize     string
	TargetBitrate int
	IsOriginal    bool
}

func (r Rendition) Dimensions() (int, int, error) {
	return ParseFrameSize(r.FrameSize)
}

// Height returns the rendition height, or 0 when the frame size is unparsable.
func (r Rendition) Height() int {
	_, h, err := r.Dimensions()
	if err != nil {
		return 0
	}
	return h
}

func FrameSize(width, height int) string {
	return fmt.Sprintf("%dx%d", width, height)
}

func ParseFrameSize(s string) (int, int, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return 0, 0, fmt.Errorf("invalid frame size %q", s)
	}
	width, err := strconv.Atoi(w)
	if err != nil || width <= 0 {
		return 0, 0, fmt.Errorf("invalid frame size %q", s)
	}
	height, err := strconv.Atoi(h)
	if err != nil || height <= 0 {
		return 0, 0, fmt.Errorf("invalid frame size %q", s)
	}
	return width, height, nil
}
