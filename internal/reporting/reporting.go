package reporting

import "time"

// StageSummary is one row of the pipeline report.
type StageSummary struct {
	Stage           string `json:"stage" db:"stage"`
	Count           int64  `json:"count" db:"count"`
	TotalValueCents int64  `json:"total_value_cents" db:"total_value_cents"`
	WeightedCents   int64  `json:"weighted_cents" db:"weighted_cents"`
}

// ActivityCount is one row of the activity report: interactions of a type
// within the requested window.
type ActivityCount struct {
	Type      string `json:"type" db:"type"`
	Count     int64  `json:"count" db:"count"`
	Completed int64  `json:"completed" db:"completed"`
}

// OrganizationValue ranks an organization by its open pipeline.
type OrganizationValue struct {
	OrganizationID int64  `json:"organization_id" db:"organization_id"`
	Name           string `json:"name" db:"name"`
	OpenCount      int64  `json:"open_count" db:"open_count"`
	OpenValueCents int64  `json:"open_value_cents" db:"open_value_cents"`
}

// ActivityFilter bounds the activity report window. UserID of zero covers
// every rep.
type ActivityFilter struct {
	From   time.Time
	To     time.Time
	UserID int64
}
