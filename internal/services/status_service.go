package services

import (
	"fmt"
	"rsd/internal/models"
	"rsd/internal/providers"
	"rsd/internal/store"
	"time"
)

type StatusServiceInterface interface {
	// RecordObservation fingerprints a polled payload and, when it differs
	// from the stored snapshot, persists the new snapshot plus a history
	// entry and returns the change event. Returns nil when unchanged.
	RecordObservation(src models.Source, payload []byte) (*models.ChangeEvent, error)
	GetSnapshot(provider string, region models.Region) (*models.Snapshot, error)
	GetAllSnapshots() ([]*models.Snapshot, error)
	GetHistory(f store.HistoryFilter) ([]*models.HistoryEntry, error)
}

type StatusService struct {
	store   store.MetricStore
	logger  providers.Logger
	metrics providers.MetricsProviderInterface
}

func NewStatusService(st store.MetricStore, logger providers.Logger, metrics providers.MetricsProviderInterface) StatusServiceInterface {
	return &StatusService{
		store:   st,
		logger:  logger,
		metrics: metrics,
	}
}

func (s *StatusService) RecordObservation(src models.Source, payload []byte) (*models.ChangeEvent, error) {
	canonical, err := models.CanonicalPayload(payload)
	if err != nil {
		return nil, fmt.Errorf("canonicalize payload for %s: %w", src.Key(), err)
	}
	fingerprint := models.Fingerprint(canonical)

	prev, err := s.store.GetLatest(src.Provider, src.Region)
	if err != nil && err != store.ErrNotFound {
		return nil, fmt.Errorf("read snapshot for %s: %w", src.Key(), err)
	}
	if prev != nil && prev.Fingerprint == fingerprint {
		// The common case: nothing changed, nothing written.
		return nil, nil
	}

	now := time.Now().UTC()
	snap := &models.Snapshot{
		Provider:    src.Provider,
		Region:      src.Region,
		Payload:     canonical,
		Fingerprint: fingerprint,
		UpdatedAt:   now,
	}
	if err := s.store.UpsertLatest(snap); err != nil {
		return nil, fmt.Errorf("upsert snapshot for %s: %w", src.Key(), err)
	}
	if err := s.store.AppendHistory(&models.HistoryEntry{
		Provider:    src.Provider,
		Region:      src.Region,
		Payload:     canonical,
		Fingerprint: fingerprint,
		CreatedAt:   now,
	}); err != nil {
		return nil, fmt.Errorf("append history for %s: %w", src.Key(), err)
	}

	s.metrics.IncChangesTotal(src.Provider, string(src.Region))
	s.logger.Debugf(providers.TypePoll, "Snapshot changed for %s (fp %.12s)", src.Key(), fingerprint)

	return &models.ChangeEvent{
		Provider:    src.Provider,
		Region:      src.Region,
		Payload:     canonical,
		Fingerprint: fingerprint,
		Timestamp:   now,
	}, nil
}

func (s *StatusService) GetSnapshot(provider string, region models.Region) (*models.Snapshot, error) {
	return s.store.GetLatest(provider, region)
}

func (s *StatusService) GetAllSnapshots() ([]*models.Snapshot, error) {
	return s.store.GetAllLatest()
}

func (s *StatusService) GetHistory(f store.HistoryFilter) ([]*models.HistoryEntry, error) {
	return s.store.QueryHistory(f)
}
