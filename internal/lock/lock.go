// Package lock serialises writers of the same video across processes with
// advisory file locks.
package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/eleven-am/hlsladder/internal/domain"
)

const retryDelay = 100 * time.Millisecond

// Locker hands out one lock file per video under dir.
type Locker struct {
	dir  string
	wait time.Duration
}

// NewLocker returns a Locker. A zero wait makes Acquire fail immediately
// when the video is already locked.
func NewLocker(dir string, wait time.Duration) (*Locker, error) {
	if dir == "" {
		return nil, fmt.Errorf("lock directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	return &Locker{dir: dir, wait: wait}, nil
}

// Acquire takes the video's lock. The returned func releases it.
func (l *Locker) Acquire(ctx context.Context, videoID string) (func() error, error) {
	if videoID == "" || strings.ContainsAny(videoID, `/\`) || videoID == "." || videoID == ".." {
		return nil, fmt.Errorf("invalid video id %q", videoID)
	}

	fl := flock.New(filepath.Join(l.dir, videoID+".lock"))

	var (
		ok  bool
		err error
	)
	if l.wait > 0 {
		waitCtx, cancel := context.WithTimeout(ctx, l.wait)
		ok, err = fl.TryLockContext(waitCtx, retryDelay)
		cancel()
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = nil
		}
	} else {
		ok, err = fl.TryLock()
	}
	if err != nil {
		return nil, fmt.Errorf("acquire lock for %s: %w", videoID, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrVideoBusy, videoID)
	}

	return fl.Unlock, nil
}
