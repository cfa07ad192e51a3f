package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/eleven-am/hlsladder/internal/domain"
	"github.com/eleven-am/hlsladder/internal/logging"
	"github.com/eleven-am/hlsladder/internal/metrics"
)

// ObservedStore reports every manifest write to a metrics recorder and logs
// failed ones. Reads pass straight through.
type ObservedStore struct {
	store    Store
	recorder *metrics.Recorder
	logger   *slog.Logger
}

func NewObservedStore(store Store, recorder *metrics.Recorder, logger *slog.Logger) *ObservedStore {
	return &ObservedStore{
		store:    store,
		recorder: recorder,
		logger:   logging.OrDiscard(logger),
	}
}

func (s *ObservedStore) ReadManifest(ctx context.Context, key domain.ManifestKey) ([]byte, error) {
	return s.store.ReadManifest(ctx, key)
}

func (s *ObservedStore) ManifestExists(ctx context.Context, key domain.ManifestKey) (bool, error) {
	return s.store.ManifestExists(ctx, key)
}

func (s *ObservedStore) WriteManifest(ctx context.Context, key domain.ManifestKey, data []byte) error {
	if err := s.store.WriteManifest(ctx, key, data); err != nil {
		s.recorder.ManifestWrite(string(key.Role), false)
		s.logger.Error("manifest write failed",
			logging.FieldVideoID, key.VideoID,
			"role", string(key.Role),
			"name", key.Name,
			logging.Error(err))
		return fmt.Errorf("storage write: %w", err)
	}

	s.recorder.ManifestWrite(string(key.Role), true)
	return nil
}

func (s *ObservedStore) Close() error {
	return s.store.Close()
}
