package organization

import (
	"strings"
	"time"

	"github.com/krwhynot/pantry-crm/internal"
	orgDatamodel "github.com/krwhynot/pantry-crm/internal/core/datamodel/organization"
)

// ErrNotFound is the domain alias for the shared sentinel.
var ErrNotFound = internal.ErrOrganizationNotFound

// Organization types reflect the relationships a food-service rep works with.
const (
	TypeCustomer    = "customer"
	TypeProspect    = "prospect"
	TypeDistributor = "distributor"
	TypeVendor      = "vendor"
)

// Account priorities A (highest touch) through D.
var ValidPriorities = []string{"A", "B", "C", "D"}

var ValidTypes = []string{TypeCustomer, TypeProspect, TypeDistributor, TypeVendor}

// MaxHierarchyDepth bounds the parent-chain walk so pre-existing bad data
// cannot loop forever.
const MaxHierarchyDepth = 50

type Organization struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Type      string     `json:"type"`
	Priority  string     `json:"priority"`
	Segment   string     `json:"segment,omitempty"`
	ParentID  *int64     `json:"parent_id,omitempty"`
	Notes     string     `json:"notes,omitempty"`
	IsActive  bool       `json:"is_active"`
	CreatedBy int64      `json:"created_by"`
	UpdatedBy int64      `json:"updated_by"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

func (o *Organization) Deactivate(actor int64) {
	now := time.Now()
	o.IsActive = false
	o.UpdatedBy = actor
	o.UpdatedAt = now
	o.DeletedAt = &now
}

func IsValidType(t string) bool {
	for _, v := range ValidTypes {
		if v == t {
			return true
		}
	}
	return false
}

func IsValidPriority(p string) bool {
	for _, v := range ValidPriorities {
		if v == p {
			return true
		}
	}
	return false
}

// NormalizeName is the key used for duplicate detection: lowercased with
// surrounding and repeated whitespace collapsed.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

func ToDataModel(o *Organization) *orgDatamodel.Organization {
	dm := &orgDatamodel.Organization{
		ID:        o.ID,
		Name:      o.Name,
		Type:      o.Type,
		Priority:  o.Priority,
		Segment:   o.Segment,
		ParentID:  o.ParentID,
		Notes:     o.Notes,
		IsActive:  o.IsActive,
		CreatedBy: o.CreatedBy,
		UpdatedBy: o.UpdatedBy,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
	if o.DeletedAt != nil {
		dm.DeletedAt.Time = *o.DeletedAt
		dm.DeletedAt.Valid = true
	}
	return dm
}

func FromDataModel(dm *orgDatamodel.Organization) *Organization {
	o := &Organization{
		ID:        dm.ID,
		Name:      dm.Name,
		Type:      dm.Type,
		Priority:  dm.Priority,
		Segment:   dm.Segment,
		ParentID:  dm.ParentID,
		Notes:     dm.Notes,
		IsActive:  dm.IsActive,
		CreatedBy: dm.CreatedBy,
		UpdatedBy: dm.UpdatedBy,
		CreatedAt: dm.CreatedAt,
		UpdatedAt: dm.UpdatedAt,
	}
	if dm.DeletedAt.Valid {
		t := dm.DeletedAt.Time
		o.DeletedAt = &t
	}
	return o
}

func FromDataModelSlice(dms []*orgDatamodel.Organization) []*Organization {
	result := make([]*Organization, len(dms))
	for i, dm := range dms {
		result[i] = FromDataModel(dm)
	}
	return result
}
