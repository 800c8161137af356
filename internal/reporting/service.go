package reporting

import (
	"context"
	"log/slog"
	"time"

	"github.com/krwhynot/pantry-crm/internal"
)

// RepositoryAPI defines the read-model queries behind the reports.
type RepositoryAPI interface {
	PipelineSummary(ctx context.Context) ([]*StageSummary, error)
	ActivityByType(ctx context.Context, filter ActivityFilter) ([]*ActivityCount, error)
	TopOrganizationsByOpenValue(ctx context.Context, limit int) ([]*OrganizationValue, error)
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (s *Service) PipelineSummary(ctx context.Context) ([]*StageSummary, error) {
	rows, err := s.repo.PipelineSummary(ctx)
	if err != nil {
		s.logger.Error("pipeline summary failed", "error", err)
		return nil, internal.NewInternalError("failed to build pipeline summary", err)
	}
	return rows, nil
}

// ActivityReport defaults to the trailing 30 days when the window is unset
// and rejects inverted ranges.
func (s *Service) ActivityReport(ctx context.Context, filter ActivityFilter) ([]*ActivityCount, error) {
	if filter.To.IsZero() {
		filter.To = time.Now()
	}
	if filter.From.IsZero() {
		filter.From = filter.To.AddDate(0, 0, -30)
	}
	if filter.From.After(filter.To) {
		return nil, internal.NewValidationFieldError("from", "from must not be after to", internal.ErrCodeValidationFailed)
	}

	rows, err := s.repo.ActivityByType(ctx, filter)
	if err != nil {
		s.logger.Error("activity report failed", "error", err)
		return nil, internal.NewInternalError("failed to build activity report", err)
	}
	return rows, nil
}

func (s *Service) TopOrganizations(ctx context.Context, limit int) ([]*OrganizationValue, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	rows, err := s.repo.TopOrganizationsByOpenValue(ctx, limit)
	if err != nil {
		s.logger.Error("top organizations report failed", "error", err)
		return nil, internal.NewInternalError("failed to rank organizations", err)
	}
	return rows, nil
}
