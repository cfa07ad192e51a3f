package rewrite

import (
	"github.com/eleven-am/hlsladder/internal/playlist"
)

// Stats counts the declarations Optimize dropped.
type Stats struct {
	Media    int
	Variants int
}

func (s Stats) Total() int {
	return s.Media + s.Variants
}

// Optimize parses a master manifest, drops repeated declarations and
// re-encodes it. Optimize(Optimize(x)) == Optimize(x).
func Optimize(text string) (string, error) {
	m, err := playlist.Parse(text)
	if err != nil {
		return "", err
	}
	OptimizeManifest(m)
	return m.Encode(), nil
}

// OptimizeManifest deduplicates m in place. Media declarations are keyed by
// (LANGUAGE, URI), variants by their serialized text; the first occurrence
// wins. The version line is moved right after the header, and added when
// missing. Variants are moved after every other line, keeping the relative
// order within each part.
func OptimizeManifest(m *playlist.Manifest) Stats {
	var stats Stats

	mediaSeen := make(map[[4]string]bool)
	variantSeen := make(map[string]bool)

	var version playlist.Line
	lines := make([]playlist.Line, 0, len(m.Lines))
	var variants []playlist.Line
	for _, line := range m.Lines {
		switch l := line.(type) {
		case playlist.Header:
			continue
		case playlist.Version:
			if version == nil {
				version = l
			}
			continue
		case *playlist.Media:
			key := mediaKey(l)
			if mediaSeen[key] {
				stats.Media++
				continue
			}
			mediaSeen[key] = true
		case *playlist.Variant:
			key := l.Text()
			if variantSeen[key] {
				stats.Variants++
				continue
			}
			variantSeen[key] = true
			variants = append(variants, line)
			continue
		}
		lines = append(lines, line)
	}
	lines = append(lines, variants...)

	if version == nil {
		version = playlist.Version{Number: playlist.MasterVersion}
	}
	m.Lines = append([]playlist.Line{playlist.Header{}, version}, lines...)

	return stats
}

// mediaKey is (language, uri). Declarations without a URI, such as closed
// captions, also key on type, group and name so distinct ones survive.
func mediaKey(m *playlist.Media) [4]string {
	if m.URI != "" {
		return [4]string{m.Language, m.URI}
	}
	return [4]string{m.Language, string(m.Type) + "\x00" + m.GroupID, m.Name, "-"}
}
