package repository

import (
	"context"
	"fmt"

	"DemandCast/internal/domain/repository"
	"DemandCast/internal/services/forecast"
)

// ModelStore persists trained models through an ArtifactStore backend.
type ModelStore struct {
	backend repository.ArtifactStore
	name    string
}

func NewModelStore(backend repository.ArtifactStore, name string) *ModelStore {
	return &ModelStore{backend: backend, name: name}
}

// Backend names the underlying store for logs.
func (s *ModelStore) Backend() string { return s.name }

// Save replaces the persisted model. A reader never observes a partial write.
func (s *ModelStore) Save(ctx context.Context, tm *forecast.TrainedModel) error {
	blob, err := EncodeArtifact(tm)
	if err != nil {
		return err
	}
	if err := s.backend.Put(ctx, blob); err != nil {
		return fmt.Errorf("save model (%s): %w", s.name, err)
	}
	return nil
}

// Load returns the persisted model, models.ErrNotFound when there is none,
// or models.ErrCorruptArtifact when it cannot be trusted.
func (s *ModelStore) Load(ctx context.Context) (*forecast.TrainedModel, error) {
	blob, err := s.backend.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load model (%s): %w", s.name, err)
	}
	tm, err := DecodeArtifact(blob)
	if err != nil {
		return nil, fmt.Errorf("load model (%s): %w", s.name, err)
	}
	return tm, nil
}

func (s *ModelStore) Close() error { return s.backend.Close() }
