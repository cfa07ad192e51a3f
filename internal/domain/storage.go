package domain

import "context"

type ManifestRole string

const (
	RoleMaster  ManifestRole = "master"
	RoleVariant ManifestRole = "variant"
	RoleTrack   ManifestRole = "track"
)

// ManifestKey addresses one stored manifest. Name is empty for the master
// and a path relative to the video root otherwise ("720p/playlist.m3u8").
type ManifestKey struct {
	VideoID string
	Role    ManifestRole
	Name    string
}

func MasterKey(videoID string) ManifestKey {
	return ManifestKey{VideoID: videoID, Role: RoleMaster}
}

// Storage persists manifests as text blobs. Missing manifests are reported
// as ErrManifestNotFound.
type Storage interface {
	ReadManifest(ctx context.Context, key ManifestKey) ([]byte, error)
	WriteManifest(ctx context.Context, key ManifestKey, data []byte) error
	ManifestExists(ctx context.Context, key ManifestKey) (bool, error)
}
