package playlist

import (
	"fmt"
	"sort"
	"strings"

	"github.com/eleven-am/hlsladder/internal/domain"
	"github.com/eleven-am/hlsladder/internal/uri"
)

// MasterVersion is the protocol version written by Build.
const MasterVersion = 3

// Manifest is a master manifest held as an ordered sequence of lines. All
// mutation goes through its methods so the uniqueness keys hold: one variant
// per URI, one media declaration per (group, URI).
type Manifest struct {
	Lines []Line
}

// URITemplate is the build-time origin of variant URIs, e.g.
// "http://build-host/output/{videoId}". {videoId} and {rendition} are replaced.
// {rendition}, when present, must be the last path segment.
type URITemplate string

const (
	videoToken     = "{videoId}"
	renditionToken = "{rendition}"
)

// Validate reports templates that cannot address every variant.
func (t URITemplate) Validate() error {
	s := string(t)
	if !strings.Contains(s, videoToken) {
		return fmt.Errorf("uri template %q must contain %s", s, videoToken)
	}
	if !strings.Contains(s, renditionToken) {
		return nil
	}
	trimmed := strings.TrimRight(s, "/")
	if strings.Count(s, renditionToken) != 1 || !strings.HasSuffix(trimmed, "/"+renditionToken) {
		return fmt.Errorf("uri template %q: %s must be the last path segment", s, renditionToken)
	}
	if strings.Index(s, videoToken) > strings.Index(s, renditionToken) {
		return fmt.Errorf("uri template %q: %s must come before %s", s, videoToken, renditionToken)
	}
	return nil
}

func (t URITemplate) Expand(videoID, rendition string) string {
	return strings.NewReplacer(videoToken, videoID, renditionToken, rendition).Replace(string(t))
}

// Origin is the part of the template shared by every variant of videoID:
// everything before {rendition}, expanded, without a trailing slash.
func (t URITemplate) Origin(videoID string) string {
	prefix, _, _ := strings.Cut(string(t), renditionToken)
	return strings.TrimRight(URITemplate(prefix).Expand(videoID, ""), "/")
}

// variantURI joins a variant path, relative to the video root, onto the
// expanded template. A template ending in {rendition} already names the
// rendition directory, so only the rest of the path is appended.
func (t URITemplate) variantURI(videoID, rendition, relative string) string {
	base := t.Expand(videoID, rendition)
	if strings.Contains(string(t), renditionToken) {
		relative = strings.TrimPrefix(strings.TrimPrefix(relative, "/"), rendition+"/")
	}
	if base == "" {
		return uri.Normalize(relative, "")
	}
	return uri.Join(base, relative)
}

func New() *Manifest {
	return &Manifest{Lines: []Line{Header{}, Version{Number: MasterVersion}}}
}

// Build assembles a master manifest from successful outcomes, one variant
// per distinct URI in ascending bandwidth order. Failed outcomes are ignored.
func Build(videoID string, outcomes []domain.EncodeOutcome, template URITemplate) *Manifest {
	successes := make([]domain.EncodeOutcome, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Succeeded() {
			successes = append(successes, o)
		}
	}
	sort.SliceStable(successes, func(i, j int) bool {
		return successes[i].Bandwidth < successes[j].Bandwidth
	})

	m := New()
	seen := make(map[string]bool, len(successes))
	for _, o := range successes {
		u := template.variantURI(videoID, o.Rendition.Name, o.VariantPath)
		if seen[u] {
			continue
		}
		seen[u] = true

		m.Lines = append(m.Lines, &Variant{
			Bandwidth:  o.Bandwidth,
			Resolution: o.Rendition.FrameSize,
			Codecs:     BaselineCodecs,
			URI:        u,
		})
	}
	return m
}

// AttachMedia inserts decls as one block right after the version line,
// skipping any whose (group, URI) is already declared, then points every
// variant lacking an audio or subtitles group at the declared group.
// It returns the number of declarations inserted.
func (m *Manifest) AttachMedia(decls []Media) int {
	pos := m.insertionPoint()
	var added int

	for i := range decls {
		decl := decls[i]
		if m.HasMedia(decl.GroupID, decl.URI) {
			continue
		}
		decl.Extra = append([]Attribute(nil), decl.Extra...)
		m.Lines = append(m.Lines, nil)
		copy(m.Lines[pos+1:], m.Lines[pos:])
		m.Lines[pos] = &decl
		pos++
		added++
	}

	for _, decl := range decls {
		for _, v := range m.Variants() {
			switch decl.Type {
			case MediaAudio:
				if v.Audio == "" {
					v.Audio = decl.GroupID
				}
			case MediaSubtitles:
				if v.Subtitles == "" {
					v.Subtitles = decl.GroupID
				}
			}
		}
	}

	return added
}

func (m *Manifest) insertionPoint() int {
	for i, line := range m.Lines {
		if _, ok := line.(Version); ok {
			return i + 1
		}
	}
	for i, line := range m.Lines {
		if _, ok := line.(Header); ok {
			return i + 1
		}
	}
	return 0
}

// HasMedia reports whether a declaration with this (group, URI) exists.
func (m *Manifest) HasMedia(groupID, u string) bool {
	for _, media := range m.Media() {
		if media.GroupID == groupID && media.URI == u {
			return true
		}
	}
	return false
}

// HasGroup reports whether a media declaration of type t uses groupID.
func (m *Manifest) HasGroup(t MediaType, groupID string) bool {
	for _, media := range m.Media() {
		if media.Type == t && media.GroupID == groupID {
			return true
		}
	}
	return false
}

func (m *Manifest) Variants() []*Variant {
	var out []*Variant
	for _, line := range m.Lines {
		if v, ok := line.(*Variant); ok {
			out = append(out, v)
		}
	}
	return out
}

func (m *Manifest) Media() []*Media {
	var out []*Media
	for _, line := range m.Lines {
		if media, ok := line.(*Media); ok {
			out = append(out, media)
		}
	}
	return out
}

// Clone returns a deep copy so callers can mutate without touching m.
func (m *Manifest) Clone() *Manifest {
	out := &Manifest{Lines: make([]Line, 0, len(m.Lines))}
	for _, line := range m.Lines {
		switch l := line.(type) {
		case *Media:
			c := *l
			c.Extra = append([]Attribute(nil), l.Extra...)
			out.Lines = append(out.Lines, &c)
		case *Variant:
			c := *l
			c.Extra = append([]Attribute(nil), l.Extra...)
			out.Lines = append(out.Lines, &c)
		default:
			out.Lines = append(out.Lines, line)
		}
	}
	return out
}

// Validate checks variant ordering, the uniqueness keys and that every group
// a variant references is declared.
func (m *Manifest) Validate() error {
	if len(m.Lines) == 0 {
		return fmt.Errorf("%w: empty manifest", domain.ErrManifestMalformed)
	}
	if _, ok := m.Lines[0].(Header); !ok {
		return fmt.Errorf("%w: header is not the first line", domain.ErrManifestMalformed)
	}

	mediaKeys := make(map[[2]string]bool)
	for _, media := range m.Media() {
		key := [2]string{media.GroupID, media.URI}
		if mediaKeys[key] {
			return fmt.Errorf("%w: duplicate media declaration group=%q uri=%q", domain.ErrManifestMalformed, media.GroupID, media.URI)
		}
		mediaKeys[key] = true
	}

	variantURIs := make(map[string]bool)
	last := -1
	for _, v := range m.Variants() {
		if variantURIs[v.URI] {
			return fmt.Errorf("%w: duplicate variant %q", domain.ErrManifestMalformed, v.URI)
		}
		variantURIs[v.URI] = true

		if v.Bandwidth < last {
			return fmt.Errorf("%w: variant %q bandwidth %d below previous %d", domain.ErrManifestMalformed, v.URI, v.Bandwidth, last)
		}
		last = v.Bandwidth

		if v.Audio != "" && !m.HasGroup(MediaAudio, v.Audio) {
			return &domain.IntegrityError{Kind: "audio", GroupID: v.Audio, URI: v.URI}
		}
		if v.Subtitles != "" && !m.HasGroup(MediaSubtitles, v.Subtitles) {
			return &domain.IntegrityError{Kind: "subtitles", GroupID: v.Subtitles, URI: v.URI}
		}
	}

	return nil
}
