package playlist

import (
	"math"
	"strings"
	"testing"
)

func TestTrackPlaylist_FixedShape(t *testing.T) {
	got := TrackPlaylist("es.vtt", 5.5)
	want := "#EXTM3U\n" +
		"#EXT-X-VERSION:3\n" +
		"#EXT-X-PLAYLIST-TYPE:VOD\n" +
		"#EXT-X-TARGETDURATION:6\n" +
		"#EXT-X-MEDIA-SEQUENCE:0\n" +
		"#EXTINF:5.500,\n" +
		"es.vtt\n" +
		"#EXT-X-ENDLIST\n"
	if got != want {
		t.Fatalf("unexpected track playlist:\n%s", got)
	}
}

func TestTrackPlaylist_TargetDurationAtLeastOne(t *testing.T) {
	got := TrackPlaylist("en.aac", 0)
	if !strings.Contains(got, "#EXT-X-TARGETDURATION:1\n") {
		t.Fatalf("target duration should floor at 1:\n%s", got)
	}
}

func TestParseSegments(t *testing.T) {
	text := "#EXTM3U\n#EXT-X-TARGETDURATION:7\n#EXTINF:5.5,\nsegment-00000.ts\n#EXTINF:6.2,title\nsegment-00001.ts\n#EXT-X-ENDLIST\n"
	segments, err := ParseSegments(text)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}
	if segments[1].Index != 1 || segments[1].URI != "segment-00001.ts" || math.Abs(segments[1].Duration-6.2) > 1e-9 {
		t.Fatalf("unexpected segment: %#v", segments[1])
	}

	master := "#EXTM3U\n#EXT-X-STREAM-INF:BANDWIDTH=500000\n360p/playlist.m3u8\n"
	if _, err := ParseSegments(master); err == nil {
		t.Fatal("expected error for a master playlist")
	}
}

func TestParseSegments_ReadsTrackPlaylist(t *testing.T) {
	segments, err := ParseSegments(TrackPlaylist("es.vtt", 95.25))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(segments) != 1 || segments[0].URI != "es.vtt" || math.Abs(segments[0].Duration-95.25) > 1e-3 {
		t.Fatalf("unexpected segments: %#v", segments)
	}
}

func TestTotalDuration(t *testing.T) {
	text := "#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-TARGETDURATION:6\n#EXT-X-PLAYLIST-TYPE:VOD\n" +
		"#EXTINF:6.000,\nsegment-00000.ts\n#EXTINF:6.000,\nsegment-00001.ts\n#EXTINF:2.500,\nsegment-00002.ts\n#EXT-X-ENDLIST\n"
	total, err := TotalDuration(text)
	if err != nil {
		t.Fatalf("total duration: %v", err)
	}
	if math.Abs(total-14.5) > 1e-9 {
		t.Fatalf("expected 14.5s, got %v", total)
	}
}
