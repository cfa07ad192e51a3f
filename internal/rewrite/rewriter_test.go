package rewrite

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/eleven-am/hlsladder/internal/domain"
	"github.com/eleven-am/hlsladder/internal/metrics"
	"github.com/eleven-am/hlsladder/internal/playlist"
)

const template = playlist.URITemplate("http://build-host/output/{videoId}")

var requestContext = Context{VideoID: "v1", RequestBase: "/stream/v1"}

type memoryStorage struct {
	manifests map[domain.ManifestKey][]byte
	err       error
}

func (m *memoryStorage) ReadManifest(ctx context.Context, key domain.ManifestKey) ([]byte, error) {
	if m.err != nil {
		return nil, m.err
	}
	data, ok := m.manifests[key]
	if !ok {
		return nil, domain.ErrManifestNotFound
	}
	return data, nil
}

func (m *memoryStorage) WriteManifest(ctx context.Context, key domain.ManifestKey, data []byte) error {
	m.manifests[key] = data
	return nil
}

func (m *memoryStorage) ManifestExists(ctx context.Context, key domain.ManifestKey) (bool, error) {
	_, ok := m.manifests[key]
	return ok, nil
}

const storedMaster = `#EXTM3U
#EXT-X-VERSION:3

#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID="audio",NAME="English",LANGUAGE="en",DEFAULT=YES,URI="http://build-host/output/v1/audio/en.m3u8"
#EXT-X-MEDIA:TYPE=SUBTITLES,GROUP-ID="subs",NAME="Spanish",LANGUAGE="es",URI="es.vtt"

#EXT-X-STREAM-INF:BANDWIDTH=500000,RESOLUTION=640x360,CODECS="avc1.4d401f,mp4a.40.2",AUDIO="audio",SUBTITLES="subs"
http://build-host/output/v1/360p/playlist.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=1500000,RESOLUTION=1280x720,CODECS="avc1.4d401f,mp4a.40.2",AUDIO="audio",SUBTITLES="subs"
720p/playlist.m3u8
`

func TestRewrite_CaptionBecomesSubManifest(t *testing.T) {
	r := NewRewriter(nil, template, nil, nil)

	out, err := r.Rewrite(storedMaster, requestContext)
	if err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if !strings.Contains(out, `URI="/stream/v1/subtitles/es.m3u8"`) {
		t.Fatalf("caption URI not rewritten:\n%s", out)
	}
	if strings.Contains(out, ".vtt") {
		t.Fatalf("raw caption file leaked:\n%s", out)
	}
}

func TestRewrite_AbsoluteOriginBecomesRequestRelative(t *testing.T) {
	r := NewRewriter(nil, template, nil, nil)

	raw := "#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-STREAM-INF:BANDWIDTH=1\nhttp://build-host/output/v1/audio/en.m3u8\n"
	out, err := r.Rewrite(raw, requestContext)
	if err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if !strings.Contains(out, "\n/stream/v1/audio/en.m3u8\n") {
		t.Fatalf("origin not stripped:\n%s", out)
	}
}

func TestRewrite_FullManifest(t *testing.T) {
	r := NewRewriter(nil, template, nil, nil)

	out, err := r.Rewrite(storedMaster, requestContext)
	if err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	want := `#EXTM3U
#EXT-X-VERSION:3

#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID="audio",NAME="English",LANGUAGE="en",DEFAULT=YES,URI="/stream/v1/audio/en.m3u8"
#EXT-X-MEDIA:TYPE=SUBTITLES,GROUP-ID="subs",NAME="Spanish",LANGUAGE="es",URI="/stream/v1/subtitles/es.m3u8"

#EXT-X-STREAM-INF:BANDWIDTH=500000,RESOLUTION=640x360,CODECS="avc1.4d401f,mp4a.40.2",AUDIO="audio",SUBTITLES="subs"
/stream/v1/360p/playlist.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=1500000,RESOLUTION=1280x720,CODECS="avc1.4d401f,mp4a.40.2",AUDIO="audio",SUBTITLES="subs"
/stream/v1/720p/playlist.m3u8
`
	if out != want {
		t.Fatalf("unexpected rewrite:\n%s\nwant:\n%s", out, want)
	}
}

func TestRewrite_LeavesForeignAndRootedURIs(t *testing.T) {
	r := NewRewriter(nil, template, nil, nil)

	raw := "#EXTM3U\n#EXT-X-VERSION:3\n" +
		"#EXT-X-STREAM-INF:BANDWIDTH=1\nhttps://cdn.example.com/v1/360p.m3u8\n" +
		"#EXT-X-STREAM-INF:BANDWIDTH=2\n/already/served/720p.m3u8\n" +
		"#EXT-X-STREAM-INF:BANDWIDTH=3\nhttp://build-host/output/v10/1080p.m3u8\n"
	out, err := r.Rewrite(raw, requestContext)
	if err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	for _, keep := range []string{
		"\nhttps://cdn.example.com/v1/360p.m3u8\n",
		"\n/already/served/720p.m3u8\n",
		"\nhttp://build-host/output/v10/1080p.m3u8\n",
	} {
		if !strings.Contains(out, keep) {
			t.Fatalf("expected %q untouched:\n%s", keep, out)
		}
	}
}

func TestRewrite_TagURIAttributes(t *testing.T) {
	r := NewRewriter(nil, template, nil, nil)

	raw := "#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-I-FRAME-STREAM-INF:BANDWIDTH=9000,URI=\"720p/iframes.m3u8\"\n"
	out, err := r.Rewrite(raw, requestContext)
	if err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if !strings.Contains(out, `#EXT-X-I-FRAME-STREAM-INF:BANDWIDTH=9000,URI="/stream/v1/720p/iframes.m3u8"`) {
		t.Fatalf("tag URI not rewritten:\n%s", out)
	}
}

func TestRewrite_IsDeterministic(t *testing.T) {
	r := NewRewriter(nil, template, nil, nil)

	first, err := r.Rewrite(storedMaster, requestContext)
	if err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := r.Rewrite(storedMaster, requestContext)
		if err != nil || again != first {
			t.Fatalf("rewrite %d differs (err %v):\n%s\nvs\n%s", i, err, again, first)
		}
	}
}

func TestRewrite_RenditionTemplateRoundTrip(t *testing.T) {
	tpl := playlist.URITemplate("http://build-host/output/{videoId}/{rendition}")
	built := playlist.Build("v1", []domain.EncodeOutcome{
		{Rendition: domain.Rendition{Name: "360p", FrameSize: "640x360"}, Bandwidth: 500_000, VariantPath: "360p/playlist.m3u8"},
	}, tpl).Encode()

	out, err := NewRewriter(nil, tpl, nil, nil).Rewrite(built, requestContext)
	if err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if !strings.Contains(out, "\n/stream/v1/360p/playlist.m3u8\n") {
		t.Fatalf("variant should resolve to the rendition playlist:\n%s", out)
	}
}

func TestRewrite_Malformed(t *testing.T) {
	r := NewRewriter(nil, template, nil, nil)

	if _, err := r.Rewrite("\n\n#EXT-X-VERSION:3\n#EXTM3U\n", requestContext); !errors.Is(err, domain.ErrManifestMalformed) {
		t.Fatalf("expected ErrManifestMalformed, got %v", err)
	}
}

func TestServe_ReadsStoredManifestWithoutChangingIt(t *testing.T) {
	storage := &memoryStorage{manifests: map[domain.ManifestKey][]byte{
		domain.MasterKey("v1"): []byte(storedMaster),
	}}
	r := NewRewriter(storage, template, nil, metrics.New())

	out, err := r.Serve(context.Background(), requestContext)
	if err != nil {
		t.Fatalf("serve: %v", err)
	}
	if !strings.Contains(out, "/stream/v1/720p/playlist.m3u8") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if string(storage.manifests[domain.MasterKey("v1")]) != storedMaster {
		t.Fatal("stored manifest must not be modified")
	}
}

func TestServe_Errors(t *testing.T) {
	storage := &memoryStorage{manifests: map[domain.ManifestKey][]byte{
		domain.MasterKey("broken"): []byte("not a manifest"),
	}}
	r := NewRewriter(storage, template, nil, nil)

	if _, err := r.Serve(context.Background(), Context{VideoID: "missing"}); !errors.Is(err, domain.ErrManifestNotFound) {
		t.Fatalf("expected ErrManifestNotFound, got %v", err)
	}
	if _, err := r.Serve(context.Background(), Context{VideoID: "broken"}); !errors.Is(err, domain.ErrManifestMalformed) {
		t.Fatalf("expected ErrManifestMalformed, got %v", err)
	}

	storage.err = errors.New("connection refused")
	if _, err := r.Serve(context.Background(), Context{VideoID: "v1"}); err == nil || errors.Is(err, domain.ErrManifestNotFound) {
		t.Fatalf("expected storage error, got %v", err)
	}
}
