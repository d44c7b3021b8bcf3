package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/pustak-labs/library-admin-api/internal/models"
	appErrors "github.com/pustak-labs/library-admin-api/pkg/errors"
)

type counterRepository interface {
	Counters(ctx context.Context) (*models.ReportSummary, error)
}

// ReportService derives dashboard counters from the student table.
// Every call recomputes from current data; nothing is cached.
type ReportService struct {
	repo   counterRepository
	logger *zap.Logger
}

// NewReportService constructs the report service.
func NewReportService(repo counterRepository, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{repo: repo, logger: logger}
}

// Summary returns active/inactive counts and the fee total over
// active rows. The total is 0 when no active rows exist.
func (s *ReportService) Summary(ctx context.Context) (*models.ReportSummary, error) {
	summary, err := s.repo.Counters(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to derive report summary")
	}
	return summary, nil
}
