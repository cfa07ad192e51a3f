package playlist

import (
	"strconv"
	"strings"
)

const (
	tagHeader    = "#EXTM3U"
	tagVersion   = "#EXT-X-VERSION"
	tagMedia     = "#EXT-X-MEDIA"
	tagStreamInf = "#EXT-X-STREAM-INF"
)

// BaselineCodecs is declared on every variant the assembler builds.
const BaselineCodecs = "avc1.4d401f,mp4a.40.2"

type MediaType string

const (
	MediaAudio          MediaType = "AUDIO"
	MediaSubtitles      MediaType = "SUBTITLES"
	MediaVideo          MediaType = "VIDEO"
	MediaClosedCaptions MediaType = "CLOSED-CAPTIONS"
)

// Line is one logical entry of a master manifest.
type Line interface {
	encode(b *strings.Builder)
	group() int
}

type Header struct{}

type Version struct {
	Number int
}

// Media is an #EXT-X-MEDIA declaration. Extra keeps attributes this package
// does not model so parsed manifests round-trip.
type Media struct {
	Type     MediaType
	GroupID  string
	Name     string
	Language string
	Default  bool
	URI      string
	Extra    []Attribute
}

// Variant is an #EXT-X-STREAM-INF declaration together with its URI line.
type Variant struct {
	Bandwidth  int
	Resolution string
	Codecs     string
	Audio      string
	Subtitles  string
	URI        string
	Extra      []Attribute
}

// Tag is any other tag, kept verbatim.
type Tag struct {
	Name  string
	Value string
}

func (Header) group() int { return 0 }
func (Version) group() int { return 1 }
func (*Media) group() int { return 2 }
func (Tag) group() int { return 2 }
func (*Variant) group() int { return 3 }

func (Header) encode(b *strings.Builder) {
	b.WriteString(tagHeader)
	b.WriteByte('\n')
}

func (v Version) encode(b *strings.Builder) {
	b.WriteString(tagVersion)
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(v.Number))
	b.WriteByte('\n')
}

func (m *Media) Attributes() []Attribute {
	attrs := []Attribute{
		plain("TYPE", string(m.Type)),
		quoted("GROUP-ID", m.GroupID),
		quoted("NAME", m.Name),
	}
	if m.Language != "" {
		attrs = append(attrs, quoted("LANGUAGE", m.Language))
	}
	if m.Default {
		attrs = append(attrs, plain("DEFAULT", "YES"))
	}
	if m.URI != "" {
		attrs = append(attrs, quoted("URI", m.URI))
	}
	return append(attrs, m.Extra...)
}

func (m *Media) encode(b *strings.Builder) {
	b.WriteString(tagMedia)
	b.WriteByte(':')
	b.WriteString(formatAttributes(m.Attributes()))
	b.WriteByte('\n')
}

func (v *Variant) Attributes() []Attribute {
	attrs := []Attribute{plain("BANDWIDTH", strconv.Itoa(v.Bandwidth))}
	if v.Resolution != "" {
		attrs = append(attrs, plain("RESOLUTION", v.Resolution))
	}
	if v.Codecs != "" {
		attrs = append(attrs, quoted("CODECS", v.Codecs))
	}
	if v.Audio != "" {
		attrs = append(attrs, quoted("AUDIO", v.Audio))
	}
	if v.Subtitles != "" {
		attrs = append(attrs, quoted("SUBTITLES", v.Subtitles))
	}
	return append(attrs, v.Extra...)
}

func (v *Variant) encode(b *strings.Builder) {
	b.WriteString(tagStreamInf)
	b.WriteByte(':')
	b.WriteString(formatAttributes(v.Attributes()))
	b.WriteByte('\n')
	b.WriteString(v.URI)
	b.WriteByte('\n')
}

// Text is the serialized form of the declaration and its URI line.
func (v *Variant) Text() string {
	var b strings.Builder
	v.encode(&b)
	return b.String()
}

func (t Tag) encode(b *strings.Builder) {
	b.WriteString(t.Name)
	if t.Value != "" {
		b.WriteByte(':')
		b.WriteString(t.Value)
	}
	b.WriteByte('\n')
}

// URIAttribute returns the tag's URI attribute when its value is an
// attribute list carrying one (I-FRAME-STREAM-INF, SESSION-DATA, ...).
func (t Tag) URIAttribute() (string, bool) {
	attrs, err := ParseAttributes(t.Value)
	if err != nil {
		return "", false
	}
	a, ok := lookup(attrs, "URI")
	return a.Value, ok
}

// WithURI returns a copy of t whose URI attribute is replaced.
func (t Tag) WithURI(u string) Tag {
	attrs, err := ParseAttributes(t.Value)
	if err != nil {
		return t
	}
	for i := range attrs {
		if attrs[i].Key == "URI" {
			attrs[i].Value = u
			attrs[i].Quoted = true
		}
	}
	return Tag{Name: t.Name, Value: formatAttributes(attrs)}
}
