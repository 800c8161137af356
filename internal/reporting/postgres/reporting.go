package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/krwhynot/pantry-crm/internal/reporting"
)

// ReportingRepository runs the read-model queries over sqlx. Writes go
// through the domain repositories; this side only aggregates.
type ReportingRepository struct {
	db *sqlx.DB
}

func NewReportingRepository(db *sqlx.DB) reporting.RepositoryAPI {
	return &ReportingRepository{db: db}
}

func (r *ReportingRepository) PipelineSummary(ctx context.Context) ([]*reporting.StageSummary, error) {
	query := `
SELECT
  stage,
  COUNT(*) AS count,
  COALESCE(SUM(value_cents), 0) AS total_value_cents,
  COALESCE(SUM(value_cents * probability / 100), 0) AS weighted_cents
FROM opportunities
WHERE deleted_at IS NULL AND is_active = true
GROUP BY stage
ORDER BY MIN(CASE stage
  WHEN 'prospecting' THEN 1
  WHEN 'qualification' THEN 2
  WHEN 'proposal' THEN 3
  WHEN 'negotiation' THEN 4
  WHEN 'closed_won' THEN 5
  WHEN 'closed_lost' THEN 6
  ELSE 7
END)
`
	var rows []*reporting.StageSummary
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("pipeline summary query: %w", err)
	}
	return rows, nil
}

func (r *ReportingRepository) ActivityByType(ctx context.Context, filter reporting.ActivityFilter) ([]*reporting.ActivityCount, error) {
	query := `
SELECT
  type,
  COUNT(*) AS count,
  COUNT(*) FILTER (WHERE status = 'completed') AS completed
FROM interactions
WHERE deleted_at IS NULL
  AND interaction_at >= $1
  AND interaction_at < $2
  AND ($3 = 0 OR created_by = $3)
GROUP BY type
ORDER BY count DESC
`
	var rows []*reporting.ActivityCount
	if err := r.db.SelectContext(ctx, &rows, query, filter.From, filter.To, filter.UserID); err != nil {
		return nil, fmt.Errorf("activity report query: %w", err)
	}
	return rows, nil
}

func (r *ReportingRepository) TopOrganizationsByOpenValue(ctx context.Context, limit int) ([]*reporting.OrganizationValue, error) {
	query := `
SELECT
  o.organization_id,
  org.name,
  COUNT(*) AS open_count,
  COALESCE(SUM(o.value_cents), 0) AS open_value_cents
FROM opportunities o
JOIN organizations org ON org.id = o.organization_id
WHERE o.deleted_at IS NULL
  AND o.is_active = true
  AND o.stage NOT IN ('closed_won', 'closed_lost')
GROUP BY o.organization_id, org.name
ORDER BY open_value_cents DESC
LIMIT $1
`
	var rows []*reporting.OrganizationValue
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("top organizations query: %w", err)
	}
	return rows, nil
}
