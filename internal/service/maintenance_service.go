package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type documentRefLister interface {
	DocumentReferences(ctx context.Context) ([]string, error)
}

type uploadSweeper interface {
	CleanupOlderThan(ttl time.Duration, keep map[string]struct{}) ([]string, error)
}

// MaintenanceServiceConfig tunes the orphan sweep.
type MaintenanceServiceConfig struct {
	// OrphanTTL is how long an unreferenced upload file survives
	// before the sweep removes it. Freshly written files are kept so
	// an in-flight admission is never raced.
	OrphanTTL time.Duration
}

// MaintenanceService removes upload files no row references anymore,
// typically left behind by replaced documents.
type MaintenanceService struct {
	refs    documentRefLister
	storage uploadSweeper
	logger  *zap.Logger
	cfg     MaintenanceServiceConfig
}

// NewMaintenanceService constructs the maintenance service.
func NewMaintenanceService(refs documentRefLister, storage uploadSweeper, logger *zap.Logger, cfg MaintenanceServiceConfig) *MaintenanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.OrphanTTL <= 0 {
		cfg.OrphanTTL = 24 * time.Hour
	}
	return &MaintenanceService{refs: refs, storage: storage, logger: logger, cfg: cfg}
}

// SweepOrphans deletes unreferenced upload files older than the TTL.
func (s *MaintenanceService) SweepOrphans(ctx context.Context) error {
	refs, err := s.refs.DocumentReferences(ctx)
	if err != nil {
		return err
	}
	keep := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		keep[ref] = struct{}{}
	}

	deleted, err := s.storage.CleanupOlderThan(s.cfg.OrphanTTL, keep)
	if err != nil {
		return err
	}
	if len(deleted) > 0 {
		s.logger.Info("removed orphaned upload files", zap.Int("count", len(deleted)), zap.Strings("files", deleted))
	}
	return nil
}
