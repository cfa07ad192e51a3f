package playlist

import (
	"errors"
	"strings"
	"testing"

	"github.com/eleven-am/hlsladder/internal/domain"
)

const storedMaster = `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-INDEPENDENT-SEGMENTS
#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID="audio",NAME="English",LANGUAGE="en",DEFAULT=YES,AUTOSELECT=YES,URI="audio/en.m3u8"

# generated
#EXT-X-STREAM-INF:BANDWIDTH=500000,RESOLUTION=640x360,CODECS="avc1.4d401f,mp4a.40.2",AUDIO="audio",FRAME-RATE=29.970

360p/playlist.m3u8
`

func TestParse_ReadsStructuredLines(t *testing.T) {
	m, err := Parse(storedMaster)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if len(m.Lines) != 5 {
		t.Fatalf("expected header, version, tag, media, variant; got %d lines", len(m.Lines))
	}
	if tag, ok := m.Lines[2].(Tag); !ok || tag.Name != "#EXT-X-INDEPENDENT-SEGMENTS" {
		t.Fatalf("passthrough tag missing: %#v", m.Lines[2])
	}

	media := m.Media()[0]
	if media.Type != MediaAudio || !media.Default || media.URI != "audio/en.m3u8" {
		t.Fatalf("unexpected media: %#v", media)
	}
	if len(media.Extra) != 1 || media.Extra[0].Key != "AUTOSELECT" {
		t.Fatalf("unknown media attributes should be preserved: %#v", media.Extra)
	}

	v := m.Variants()[0]
	if v.Bandwidth != 500_000 || v.Audio != "audio" || v.URI != "360p/playlist.m3u8" {
		t.Fatalf("unexpected variant: %#v", v)
	}
	if len(v.Extra) != 1 || v.Extra[0].String() != "FRAME-RATE=29.970" {
		t.Fatalf("unknown variant attributes should be preserved: %#v", v.Extra)
	}
}

func TestParse_EncodeIsStable(t *testing.T) {
	m, err := Parse(storedMaster)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	first := m.Encode()

	again, err := Parse(first)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if second := again.Encode(); second != first {
		t.Fatalf("encode not stable:\n%s\nvs\n%s", first, second)
	}
	if !strings.HasPrefix(first, "#EXTM3U\n#EXT-X-VERSION:3\n\n") {
		t.Fatalf("header and version must lead:\n%s", first)
	}
}

func TestParse_Malformed(t *testing.T) {
	cases := map[string]string{
		"empty":             "",
		"no header":         "#EXT-X-VERSION:3\n",
		"header not first":  "\n#EXT-X-VERSION:3\n#EXTM3U\n",
		"missing uri":       "#EXTM3U\n#EXT-X-STREAM-INF:BANDWIDTH=1\n",
		"tag before uri":    "#EXTM3U\n#EXT-X-STREAM-INF:BANDWIDTH=1\n#EXT-X-ENDLIST\na.m3u8\n",
		"orphan uri":        "#EXTM3U\nfoo.m3u8\n",
		"unterminated":      "#EXTM3U\n#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID=\"a\n",
		"missing bandwidth": "#EXTM3U\n#EXT-X-STREAM-INF:RESOLUTION=1x1\na.m3u8\n",
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse(text); !errors.Is(err, domain.ErrManifestMalformed) {
				t.Fatalf("expected ErrManifestMalformed, got %v", err)
			}
		})
	}
}

func TestParse_AcceptsLeadingBlankLinesAndCRLF(t *testing.T) {
	m, err := Parse("\r\n\r\n#EXTM3U\r\n#EXT-X-VERSION:3\r\n#EXT-X-STREAM-INF:BANDWIDTH=1\r\na.m3u8\r\n")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(m.Variants()) != 1 || m.Variants()[0].URI != "a.m3u8" {
		t.Fatalf("unexpected variants: %#v", m.Variants())
	}
}

func TestAttributes_EscapeRoundTrip(t *testing.T) {
	name := "Director's \"cut\"\tA\\B\nline\rend"
	media := &Media{Type: MediaSubtitles, GroupID: "subs", Name: name, URI: "subtitles/en,cc.m3u8"}

	var b strings.Builder
	media.encode(&b)
	line := strings.TrimSuffix(b.String(), "\n")
	if strings.ContainsAny(line, "\n\r\t") {
		t.Fatalf("control characters must be escaped: %q", line)
	}

	parsed, err := parseMedia(strings.TrimPrefix(line, tagMedia+":"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Name != name || parsed.URI != "subtitles/en,cc.m3u8" {
		t.Fatalf("round trip mismatch: %#v", parsed)
	}
}

func TestTag_URIAttribute(t *testing.T) {
	tag := Tag{Name: "#EXT-X-I-FRAME-STREAM-INF", Value: `BANDWIDTH=1000,URI="720p/iframes.m3u8"`}
	u, ok := tag.URIAttribute()
	if !ok || u != "720p/iframes.m3u8" {
		t.Fatalf("unexpected URI %q %v", u, ok)
	}

	rewritten := tag.WithURI("/stream/v1/720p/iframes.m3u8")
	if rewritten.Value != `BANDWIDTH=1000,URI="/stream/v1/720p/iframes.m3u8"` {
		t.Fatalf("unexpected rewrite %q", rewritten.Value)
	}

	if _, ok := (Tag{Name: "#EXT-X-INDEPENDENT-SEGMENTS"}).URIAttribute(); ok {
		t.Fatal("tag without value has no URI")
	}
}
