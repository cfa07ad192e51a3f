package playlist

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/eleven-am/hlsladder/internal/domain"
)

// Parse decodes a master manifest. Unknown tags and attributes are kept,
// comments and blank lines are dropped and reconstructed by Encode.
func Parse(text string) (*Manifest, error) {
	lines := splitLines(text)

	i := 0
	for i < len(lines) && lines[i] == "" {
		i++
	}
	if i == len(lines) || lines[i] != tagHeader {
		return nil, fmt.Errorf("%w: missing %s header", domain.ErrManifestMalformed, tagHeader)
	}

	m := &Manifest{Lines: []Line{Header{}}}
	for i++; i < len(lines); i++ {
		line := lines[i]
		switch {
		case line == "" || line == tagHeader:
			continue
		case strings.HasPrefix(line, tagVersion+":"):
			n, err := strconv.Atoi(strings.TrimSpace(line[len(tagVersion)+1:]))
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: bad version", domain.ErrManifestMalformed, i+1)
			}
			m.Lines = append(m.Lines, Version{Number: n})
		case strings.HasPrefix(line, tagMedia+":"):
			media, err := parseMedia(line[len(tagMedia)+1:])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", domain.ErrManifestMalformed, i+1, err)
			}
			m.Lines = append(m.Lines, media)
		case strings.HasPrefix(line, tagStreamInf+":"):
			variant, err := parseVariant(line[len(tagStreamInf)+1:])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", domain.ErrManifestMalformed, i+1, err)
			}
			next := nextURILine(lines, i+1)
			if next == -1 {
				return nil, fmt.Errorf("%w: line %d: stream declaration without URI", domain.ErrManifestMalformed, i+1)
			}
			variant.URI = lines[next]
			i = next
			m.Lines = append(m.Lines, variant)
		case strings.HasPrefix(line, "#EXT"):
			name, value, _ := strings.Cut(line, ":")
			m.Lines = append(m.Lines, Tag{Name: name, Value: value})
		case strings.HasPrefix(line, "#"):
			continue
		default:
			return nil, fmt.Errorf("%w: line %d: URI %q without stream declaration", domain.ErrManifestMalformed, i+1, line)
		}
	}

	return m, nil
}

// Encode serializes the manifest, separating the header/version block, the
// declaration block and the variant block with a blank line.
func (m *Manifest) Encode() string {
	var b strings.Builder
	prev := -1
	for _, line := range m.Lines {
		g := line.group()
		if prev >= 1 && g != prev {
			b.WriteByte('\n')
		}
		line.encode(&b)
		prev = g
	}
	return b.String()
}

func (m *Manifest) String() string {
	return m.Encode()
}

func splitLines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, len(raw))
	for i, l := range raw {
		lines[i] = strings.TrimSpace(l)
	}
	return lines
}

// nextURILine skips blanks and comments; a tag before the URI is an error.
func nextURILine(lines []string, from int) int {
	for j := from; j < len(lines); j++ {
		l := lines[j]
		switch {
		case l == "":
			continue
		case strings.HasPrefix(l, "#EXT"):
			return -1
		case strings.HasPrefix(l, "#"):
			continue
		default:
			return j
		}
	}
	return -1
}

func parseMedia(value string) (*Media, error) {
	attrs, err := ParseAttributes(value)
	if err != nil {
		return nil, err
	}

	m := &Media{}
	for _, a := range attrs {
		switch a.Key {
		case "TYPE":
			m.Type = MediaType(a.Value)
		case "GROUP-ID":
			m.GroupID = a.Value
		case "NAME":
			m.Name = a.Value
		case "LANGUAGE":
			m.Language = a.Value
		case "DEFAULT":
			m.Default = a.Value == "YES"
		case "URI":
			m.URI = a.Value
		default:
			m.Extra = append(m.Extra, a)
		}
	}
	if m.Type == "" || m.GroupID == "" {
		return nil, fmt.Errorf("media declaration requires TYPE and GROUP-ID")
	}
	return m, nil
}

func parseVariant(value string) (*Variant, error) {
	attrs, err := ParseAttributes(value)
	if err != nil {
		return nil, err
	}

	v := &Variant{}
	var hasBandwidth bool
	for _, a := range attrs {
		switch a.Key {
		case "BANDWIDTH":
			n, err := strconv.Atoi(a.Value)
			if err != nil {
				return nil, fmt.Errorf("bad BANDWIDTH %q", a.Value)
			}
			v.Bandwidth = n
			hasBandwidth = true
		case "RESOLUTION":
			v.Resolution = a.Value
		case "CODECS":
			v.Codecs = a.Value
		case "AUDIO":
			v.Audio = a.Value
		case "SUBTITLES":
			v.Subtitles = a.Value
		default:
			v.Extra = append(v.Extra, a)
		}
	}
	if !hasBandwidth {
		return nil, fmt.Errorf("stream declaration requires BANDWIDTH")
	}
	return v, nil
}
