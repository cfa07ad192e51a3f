package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/eleven-am/hlsladder/internal/domain"
)

// exerciseStore runs the behaviour every backend shares.
func exerciseStore(t *testing.T, s domain.Storage) {
	t.Helper()
	ctx := context.Background()

	master := domain.MasterKey("v1")
	if ok, err := s.ManifestExists(ctx, master); err != nil || ok {
		t.Fatalf("fresh store should not have a master: %v %v", ok, err)
	}

	_, err := s.ReadManifest(ctx, master)
	if !errors.Is(err, domain.ErrManifestNotFound) {
		t.Fatalf("expected ErrManifestNotFound, got %v", err)
	}

	if err := s.WriteManifest(ctx, master, []byte("#EXTM3U\n")); err != nil {
		t.Fatalf("write master: %v", err)
	}
	if err := s.WriteManifest(ctx, master, []byte("#EXTM3U\n#EXT-X-VERSION:3\n")); err != nil {
		t.Fatalf("overwrite master: %v", err)
	}

	got, err := s.ReadManifest(ctx, master)
	if err != nil {
		t.Fatalf("read master: %v", err)
	}
	if string(got) != "#EXTM3U\n#EXT-X-VERSION:3\n" {
		t.Fatalf("unexpected master body %q", got)
	}
	if ok, err := s.ManifestExists(ctx, master); err != nil || !ok {
		t.Fatalf("master should exist: %v %v", ok, err)
	}

	track := domain.ManifestKey{VideoID: "v1", Role: domain.RoleTrack, Name: "audio/en.m3u8"}
	if err := s.WriteManifest(ctx, track, []byte("#EXTM3U\n#EXT-X-ENDLIST\n")); err != nil {
		t.Fatalf("write track: %v", err)
	}
	if got, err := s.ReadManifest(ctx, track); err != nil || string(got) != "#EXTM3U\n#EXT-X-ENDLIST\n" {
		t.Fatalf("read track: %q %v", got, err)
	}

	other := domain.MasterKey("v2")
	if ok, _ := s.ManifestExists(ctx, other); ok {
		t.Fatal("videos must not share manifests")
	}
}

func TestRelativePath_RejectsEscapes(t *testing.T) {
	bad := []domain.ManifestKey{
		{VideoID: "", Role: domain.RoleMaster},
		{VideoID: "..", Role: domain.RoleMaster},
		{VideoID: "a/b", Role: domain.RoleMaster},
		{VideoID: "v1", Role: domain.RoleTrack, Name: "../other/master.m3u8"},
		{VideoID: "v1", Role: domain.RoleTrack, Name: "audio/../../x.m3u8"},
		{VideoID: "v1", Role: domain.RoleVariant, Name: ""},
	}
	for _, key := range bad {
		if _, err := relativePath(key); err == nil {
			t.Errorf("expected %+v to be rejected", key)
		}
	}

	rel, err := relativePath(domain.ManifestKey{VideoID: "v1", Role: domain.RoleVariant, Name: "720p/playlist.m3u8"})
	if err != nil || rel != "720p/playlist.m3u8" {
		t.Fatalf("unexpected path %q %v", rel, err)
	}
}

func TestFS_Contract(t *testing.T) {
	s, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("new fs store: %v", err)
	}
	exerciseStore(t, s)
}

func TestFS_Layout(t *testing.T) {
	root := t.TempDir()
	s, err := NewFS(root)
	if err != nil {
		t.Fatalf("new fs store: %v", err)
	}

	ctx := context.Background()
	if err := s.WriteManifest(ctx, domain.MasterKey("movie"), []byte("#EXTM3U\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "movie", "master.m3u8")); err != nil {
		t.Fatalf("master not at expected path: %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(root, "movie"))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}

func TestSQLite_Contract(t *testing.T) {
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "db", "manifests.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	exerciseStore(t, s)
}

func TestSQLite_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "manifests.db")

	s, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := s.WriteManifest(ctx, domain.MasterKey("v1"), []byte("#EXTM3U\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s, err = OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen sqlite: %v", err)
	}
	defer s.Close()

	if ok, err := s.ManifestExists(ctx, domain.MasterKey("v1")); err != nil || !ok {
		t.Fatalf("manifest lost across reopen: %v %v", ok, err)
	}
}

func TestSQLite_SchemaMismatch(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "manifests.db")

	s, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if _, err := s.db.ExecContext(ctx, "UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	_ = s.Close()

	if _, err := OpenSQLite(ctx, path); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestRedis_Contract(t *testing.T) {
	addr := os.Getenv("HLSLADDER_TEST_REDIS")
	if addr == "" {
		t.Skip("HLSLADDER_TEST_REDIS not set")
	}

	s, err := OpenRedis(context.Background(), RedisOptions{Addr: addr, Prefix: "hlsladder-test-" + t.Name()})
	if err != nil {
		t.Fatalf("open redis: %v", err)
	}
	t.Cleanup(func() {
		ctx := context.Background()
		keys, _ := s.client.Keys(ctx, s.prefix+":*").Result()
		if len(keys) > 0 {
			s.client.Del(ctx, keys...)
		}
		_ = s.Close()
	})
	exerciseStore(t, s)
}

func TestOpen_UnknownBackend(t *testing.T) {
	if _, err := Open(context.Background(), Options{Backend: "s3"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestOpen_DefaultsToFS(t *testing.T) {
	s, err := Open(context.Background(), Options{Root: t.TempDir()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, ok := s.(*FS); !ok {
		t.Fatalf("expected filesystem store, got %T", s)
	}
}
