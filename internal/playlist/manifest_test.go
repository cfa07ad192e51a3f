package playlist

import (
	"errors"
	"strings"
	"testing"

	"github.com/eleven-am/hlsladder/internal/domain"
)

func success(name, frameSize string, bandwidth int, path string) domain.EncodeOutcome {
	return domain.EncodeOutcome{
		Rendition:   domain.Rendition{Name: name, FrameSize: frameSize},
		Bandwidth:   bandwidth,
		VariantPath: path,
	}
}

func TestBuild_OrdersVariantsByBandwidth(t *testing.T) {
	outcomes := []domain.EncodeOutcome{
		success("720p", "1280x720", 1_500_000, "720p/playlist.m3u8"),
		success("360p", "640x360", 500_000, "360p/playlist.m3u8"),
	}

	out := Build("v1", outcomes, "").Encode()

	i360 := strings.Index(out, "RESOLUTION=640x360")
	i720 := strings.Index(out, "RESOLUTION=1280x720")
	if i360 == -1 || i720 == -1 || i720 < i360 {
		t.Fatalf("720p declaration should follow 360p:\n%s", out)
	}

	want := "#EXTM3U\n" +
		"#EXT-X-VERSION:3\n" +
		"\n" +
		"#EXT-X-STREAM-INF:BANDWIDTH=500000,RESOLUTION=640x360,CODECS=\"avc1.4d401f,mp4a.40.2\"\n" +
		"360p/playlist.m3u8\n" +
		"#EXT-X-STREAM-INF:BANDWIDTH=1500000,RESOLUTION=1280x720,CODECS=\"avc1.4d401f,mp4a.40.2\"\n" +
		"720p/playlist.m3u8\n"
	if out != want {
		t.Fatalf("unexpected manifest:\n%s\nwant:\n%s", out, want)
	}
}

func TestBuild_ExpandsTemplateAndSkipsFailures(t *testing.T) {
	outcomes := []domain.EncodeOutcome{
		success("1080p", "1920x1080", 5_000_000, "1080p/playlist.m3u8"),
		{Rendition: domain.Rendition{Name: "480p"}, Err: errors.New("boom")},
		success("720p", "1280x720", 2_000_000, "720p/playlist.m3u8"),
		success("720p", "1280x720", 2_000_000, "720p/playlist.m3u8"),
	}

	m := Build("movie", outcomes, "http://build-host/output/{videoId}")
	variants := m.Variants()
	if len(variants) != 2 {
		t.Fatalf("expected 2 variants (failure and duplicate dropped), got %d", len(variants))
	}
	if variants[0].URI != "http://build-host/output/movie/720p/playlist.m3u8" {
		t.Fatalf("unexpected URI %q", variants[0].URI)
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("built manifest should validate: %v", err)
	}
}

func TestBuild_BandwidthOrderHoldsForAnyInputOrder(t *testing.T) {
	bandwidths := []int{900, 100, 500, 500, 50, 7000, 3}
	var outcomes []domain.EncodeOutcome
	for i, bw := range bandwidths {
		name := string(rune('a'+i)) + "p"
		outcomes = append(outcomes, success(name, "10x10", bw, name+"/playlist.m3u8"))
	}

	last := -1
	for _, v := range Build("v", outcomes, "").Variants() {
		if v.Bandwidth < last {
			t.Fatalf("bandwidth decreased: %d after %d", v.Bandwidth, last)
		}
		last = v.Bandwidth
	}
}

func TestURITemplateOrigin(t *testing.T) {
	cases := map[URITemplate]string{
		"http://build-host/output/{videoId}":             "http://build-host/output/v1",
		"http://build-host/output/{videoId}/":            "http://build-host/output/v1",
		"http://build-host/output/{videoId}/{rendition}": "http://build-host/output/v1",
		"": "",
	}
	for tpl, want := range cases {
		if got := tpl.Origin("v1"); got != want {
			t.Fatalf("Origin(%q) = %q, want %q", tpl, got, want)
		}
	}
}

func TestBuild_RenditionTemplateNamesDirectoryOnce(t *testing.T) {
	tpl := URITemplate("http://build-host/output/{videoId}/{rendition}")
	outcomes := []domain.EncodeOutcome{
		success("360p", "640x360", 500_000, "360p/playlist.m3u8"),
		success("720p", "1280x720", 1_500_000, "720p/playlist.m3u8"),
	}

	variants := Build("v1", outcomes, tpl).Variants()
	if len(variants) != 2 {
		t.Fatalf("expected 2 variants, got %d", len(variants))
	}
	if variants[0].URI != "http://build-host/output/v1/360p/playlist.m3u8" {
		t.Fatalf("unexpected URI %q", variants[0].URI)
	}

	origin := tpl.Origin("v1")
	for i, v := range variants {
		suffix := strings.TrimPrefix(v.URI, origin+"/")
		if suffix != outcomes[i].VariantPath {
			t.Fatalf("URI %q minus origin %q should be the variant path %q", v.URI, origin, outcomes[i].VariantPath)
		}
	}
}

func TestURITemplateValidate(t *testing.T) {
	valid := []URITemplate{
		"http://build-host/output/{videoId}",
		"http://build-host/output/{videoId}/{rendition}",
		"http://build-host/output/{videoId}/{rendition}/",
		"{videoId}",
	}
	for _, tpl := range valid {
		if err := tpl.Validate(); err != nil {
			t.Errorf("Validate(%q) = %v", tpl, err)
		}
	}

	invalid := []URITemplate{
		"http://build-host/output/",
		"http://build-host/{rendition}/{videoId}",
		"http://build-host/{videoId}/{rendition}/hls",
		"http://build-host/{videoId}/r-{rendition}",
		"http://build-host/{videoId}/{rendition}/{rendition}",
	}
	for _, tpl := range invalid {
		if err := tpl.Validate(); err == nil {
			t.Errorf("expected Validate(%q) to fail", tpl)
		}
	}
}

func audioDecl(lang string) Media {
	return Media{Type: MediaAudio, GroupID: "audio", Name: lang, Language: lang, URI: "audio/" + lang + ".m3u8"}
}

func TestAttachMedia_InsertsAfterVersionAndSetsGroupRefs(t *testing.T) {
	m := Build("v1", []domain.EncodeOutcome{
		success("360p", "640x360", 500_000, "360p/playlist.m3u8"),
		success("720p", "1280x720", 1_500_000, "720p/playlist.m3u8"),
	}, "")

	added := m.AttachMedia([]Media{audioDecl("en"), audioDecl("es")})
	if added != 2 {
		t.Fatalf("expected 2 declarations added, got %d", added)
	}

	if _, ok := m.Lines[1].(Version); !ok {
		t.Fatalf("version should remain second: %#v", m.Lines[1])
	}
	first, ok := m.Lines[2].(*Media)
	if !ok || first.Language != "en" {
		t.Fatalf("first declaration should follow version in given order: %#v", m.Lines[2])
	}
	if second := m.Lines[3].(*Media); second.Language != "es" {
		t.Fatalf("second declaration out of order: %#v", second)
	}

	for _, v := range m.Variants() {
		if v.Audio != "audio" || v.Subtitles != "" {
			t.Fatalf("variant group refs unexpected: %#v", v)
		}
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	out := m.Encode()
	if !strings.Contains(out, "#EXT-X-VERSION:3\n\n#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID=\"audio\",NAME=\"en\",LANGUAGE=\"en\",URI=\"audio/en.m3u8\"\n") {
		t.Fatalf("media block not placed after version:\n%s", out)
	}
	if !strings.Contains(out, "URI=\"audio/es.m3u8\"\n\n#EXT-X-STREAM-INF") {
		t.Fatalf("expected blank line between declarations and variants:\n%s", out)
	}
}

func TestAttachMedia_IsIdempotent(t *testing.T) {
	m := Build("v1", []domain.EncodeOutcome{success("360p", "640x360", 500_000, "360p/playlist.m3u8")}, "")
	decls := []Media{audioDecl("en"), {Type: MediaSubtitles, GroupID: "subs", Name: "Spanish", Language: "es", URI: "subtitles/es.m3u8"}}

	m.AttachMedia(decls)
	once := m.Encode()

	if added := m.AttachMedia(decls); added != 0 {
		t.Fatalf("second attach should add nothing, added %d", added)
	}
	if twice := m.Encode(); twice != once {
		t.Fatalf("attach not idempotent:\n%s\nvs\n%s", once, twice)
	}
}

func TestAttachMedia_KeepsExistingGroupRef(t *testing.T) {
	m := New()
	m.Lines = append(m.Lines,
		&Media{Type: MediaAudio, GroupID: "aac", Name: "main", URI: "audio/main.m3u8"},
		&Variant{Bandwidth: 1, URI: "a.m3u8", Audio: "aac"},
	)

	m.AttachMedia([]Media{audioDecl("en")})

	if v := m.Variants()[0]; v.Audio != "aac" {
		t.Fatalf("existing group ref must not be replaced, got %q", v.Audio)
	}
}

func TestValidate_ReportsMissingGroup(t *testing.T) {
	m := New()
	m.Lines = append(m.Lines, &Variant{Bandwidth: 1, URI: "a.m3u8", Subtitles: "subs"})

	err := m.Validate()
	if !errors.Is(err, domain.ErrReferentialIntegrity) {
		t.Fatalf("expected integrity violation, got %v", err)
	}
	var ie *domain.IntegrityError
	if !errors.As(err, &ie) || ie.GroupID != "subs" || ie.Kind != "subtitles" {
		t.Fatalf("unexpected error detail: %#v", err)
	}
}

func TestValidate_ReportsOrderingAndDuplicates(t *testing.T) {
	unordered := New()
	unordered.Lines = append(unordered.Lines, &Variant{Bandwidth: 10, URI: "a"}, &Variant{Bandwidth: 5, URI: "b"})
	if err := unordered.Validate(); !errors.Is(err, domain.ErrManifestMalformed) {
		t.Fatalf("expected ordering error, got %v", err)
	}

	dup := New()
	dup.Lines = append(dup.Lines, &Variant{Bandwidth: 1, URI: "a"}, &Variant{Bandwidth: 2, URI: "a"})
	if err := dup.Validate(); !errors.Is(err, domain.ErrManifestMalformed) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestClone_IsIndependent(t *testing.T) {
	m := Build("v1", []domain.EncodeOutcome{success("360p", "640x360", 1, "360p/playlist.m3u8")}, "")
	c := m.Clone()
	c.Variants()[0].URI = "changed"
	c.AttachMedia([]Media{audioDecl("en")})

	if m.Variants()[0].URI != "360p/playlist.m3u8" || len(m.Media()) != 0 {
		t.Fatalf("clone mutation leaked into original: %s", m.Encode())
	}
}
