// Package storage persists manifests as text blobs addressed by
// domain.ManifestKey.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/eleven-am/hlsladder/internal/domain"
)

const (
	BackendFS     = "fs"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"

	masterFile = "master.m3u8"
)

// Store is a domain.Storage that holds resources until closed.
type Store interface {
	domain.Storage
	io.Closer
}

type Options struct {
	Backend string

	// Root is the filesystem backend's directory, usually the output dir.
	Root string

	SQLitePath string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// Open returns the store selected by opts.Backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", BackendFS:
		return NewFS(opts.Root)
	case BackendSQLite:
		return OpenSQLite(ctx, opts.SQLitePath)
	case BackendRedis:
		return OpenRedis(ctx, RedisOptions{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
			Prefix:   opts.RedisPrefix,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}

// relativePath is the path of key below the video root, or an error when
// the key could escape it.
func relativePath(key domain.ManifestKey) (string, error) {
	if key.VideoID == "" || key.VideoID == "." || key.VideoID == ".." || strings.ContainsAny(key.VideoID, `/\`) {
		return "", fmt.Errorf("invalid video id %q", key.VideoID)
	}

	if key.Role == domain.RoleMaster {
		return masterFile, nil
	}

	name := path.Clean("/" + strings.ReplaceAll(key.Name, `\`, "/"))
	if name == "/" || name != "/"+strings.TrimPrefix(key.Name, "/") {
		return "", fmt.Errorf("invalid manifest name %q", key.Name)
	}
	return strings.TrimPrefix(name, "/"), nil
}
