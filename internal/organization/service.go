package organization

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/krwhynot/pantry-crm/internal"
)

// RepositoryAPI defines the data access methods for organizations.
type RepositoryAPI interface {
	Create(org *Organization) error
	GetByID(id int64) (*Organization, error)
	List(filter ListFilter) ([]*Organization, error)
	Update(org *Organization) error
	SoftDelete(id int64, actor int64) error
	CountChildren(id int64) (int64, error)
	FindByNormalizedName(normalized string) ([]*Organization, error)
	ReassignRelated(fromOrgID, toOrgID int64) error
}

// Service handles organization business logic.
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

func (s *Service) CreateOrganization(dto CreateOrganizationDTO, actor int64) (*Organization, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Error("organization validation failed", "error", err, "actor", actor)
		return nil, err
	}

	if dto.ParentID != nil {
		parent, err := s.repo.GetByID(*dto.ParentID)
		if err != nil {
			return nil, internal.ErrOrganizationNotFound
		}
		if !parent.IsActive {
			return nil, internal.ErrOrganizationNotFound
		}
	}

	now := time.Now()
	org := &Organization{
		Name:      dto.Name,
		Type:      dto.Type,
		Priority:  dto.Priority,
		Segment:   dto.Segment,
		ParentID:  dto.ParentID,
		Notes:     dto.Notes,
		IsActive:  true,
		CreatedBy: actor,
		UpdatedBy: actor,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(org); err != nil {
		s.logger.Error("failed to create organization", "error", err, "actor", actor)
		return nil, internal.NewInternalError("failed to create organization", err)
	}

	s.logger.Info("organization created",
		"organization_id", org.ID,
		"name", org.Name,
		"type", org.Type,
		"actor", actor)

	return org, nil
}

func (s *Service) GetOrganization(id int64) (*OrganizationResponse, error) {
	org, err := s.repo.GetByID(id)
	if err != nil {
		s.logger.Error("failed to get organization", "error", err, "organization_id", id)
		return nil, internal.ErrOrganizationNotFound
	}

	resp := &OrganizationResponse{Organization: org}

	if org.ParentID != nil {
		if parent, err := s.repo.GetByID(*org.ParentID); err == nil {
			resp.Parent = parent.ToSummary()
		}
	}

	count, err := s.repo.CountChildren(id)
	if err != nil {
		s.logger.Warn("failed to count children", "error", err, "organization_id", id)
	}
	resp.ChildCount = count

	return resp, nil
}

func (s *Service) ListOrganizations(filter ListFilter) ([]*Organization, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	orgs, err := s.repo.List(filter)
	if err != nil {
		s.logger.Error("failed to list organizations", "error", err)
		return nil, internal.NewInternalError("failed to list organizations", err)
	}
	return orgs, nil
}

func (s *Service) UpdateOrganization(id int64, dto UpdateOrganizationDTO, actor int64) (*Organization, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	org, err := s.repo.GetByID(id)
	if err != nil {
		return nil, internal.ErrOrganizationNotFound
	}

	if dto.Name != nil {
		org.Name = *dto.Name
	}
	if dto.Type != nil {
		org.Type = *dto.Type
	}
	if dto.Priority != nil {
		org.Priority = *dto.Priority
	}
	if dto.Segment != nil {
		org.Segment = *dto.Segment
	}
	if dto.Notes != nil {
		org.Notes = *dto.Notes
	}
	org.UpdatedBy = actor
	org.UpdatedAt = time.Now()

	if err := s.repo.Update(org); err != nil {
		s.logger.Error("failed to update organization", "error", err, "organization_id", id)
		return nil, internal.NewInternalError("failed to update organization", err)
	}

	return org, nil
}

// SetParent reassigns the parent organization after guarding the hierarchy
// against cycles. Self-assignment is rejected before any chain walk.
func (s *Service) SetParent(id int64, dto SetParentDTO, actor int64) (*Organization, error) {
	org, err := s.repo.GetByID(id)
	if err != nil {
		return nil, internal.ErrOrganizationNotFound
	}

	if dto.ParentID != nil {
		if *dto.ParentID == id {
			s.logger.Warn("rejected self-parent assignment", "organization_id", id)
			return nil, internal.ErrSelfParent
		}

		parent, err := s.repo.GetByID(*dto.ParentID)
		if err != nil {
			return nil, internal.ErrOrganizationNotFound
		}

		if err := s.checkCycle(id, parent); err != nil {
			return nil, err
		}
	}

	org.ParentID = dto.ParentID
	org.UpdatedBy = actor
	org.UpdatedAt = time.Now()

	if err := s.repo.Update(org); err != nil {
		s.logger.Error("failed to set parent", "error", err, "organization_id", id)
		return nil, internal.NewInternalError("failed to set parent organization", err)
	}

	s.logger.Info("organization parent reassigned",
		"organization_id", id,
		"parent_id", dto.ParentID,
		"actor", actor)

	return org, nil
}

// checkCycle walks the parent chain starting at the proposed parent. Finding
// the organization's own id before a nil parent means the reassignment would
// close a loop.
func (s *Service) checkCycle(orgID int64, proposedParent *Organization) error {
	current := proposedParent
	for depth := 0; depth < MaxHierarchyDepth; depth++ {
		if current.ID == orgID {
			s.logger.Warn("rejected circular parent assignment",
				"organization_id", orgID,
				"via", current.ID,
				"depth", depth)
			return internal.ErrCircularReference
		}
		if current.ParentID == nil {
			return nil
		}
		next, err := s.repo.GetByID(*current.ParentID)
		if err != nil {
			// broken chain reads as a terminated walk
			return nil
		}
		current = next
	}
	return internal.ErrCircularReference
}

// GetHierarchy returns the ancestor chain from the organization up to the
// root, nearest parent first.
func (s *Service) GetHierarchy(id int64) ([]*Summary, error) {
	org, err := s.repo.GetByID(id)
	if err != nil {
		return nil, internal.ErrOrganizationNotFound
	}

	var ancestors []*Summary
	current := org
	for depth := 0; depth < MaxHierarchyDepth && current.ParentID != nil; depth++ {
		parent, err := s.repo.GetByID(*current.ParentID)
		if err != nil {
			break
		}
		ancestors = append(ancestors, parent.ToSummary())
		current = parent
	}

	return ancestors, nil
}

func (s *Service) DeleteOrganization(id int64, actor int64) error {
	if _, err := s.repo.GetByID(id); err != nil {
		return internal.ErrOrganizationNotFound
	}

	if err := s.repo.SoftDelete(id, actor); err != nil {
		s.logger.Error("failed to delete organization", "error", err, "organization_id", id)
		return internal.NewInternalError("failed to delete organization", err)
	}

	s.logger.Info("organization soft-deleted", "organization_id", id, "actor", actor)
	return nil
}

// FindDuplicates returns active organizations whose normalized name matches
// the given name, excluding the organization itself when id is non-zero.
func (s *Service) FindDuplicates(name string, excludeID int64) ([]*Organization, error) {
	matches, err := s.repo.FindByNormalizedName(NormalizeName(name))
	if err != nil {
		s.logger.Error("duplicate lookup failed", "error", err, "name", name)
		return nil, internal.NewInternalError("failed to search for duplicates", err)
	}

	result := make([]*Organization, 0, len(matches))
	for _, m := range matches {
		if m.ID != excludeID && m.IsActive {
			result = append(result, m)
		}
	}
	return result, nil
}

// Merge moves all contacts, interactions and opportunities from the source
// organization onto the target, then soft-deletes the source.
func (s *Service) Merge(targetID int64, dto MergeDTO, actor int64) (*Organization, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if dto.SourceID == targetID {
		return nil, internal.NewValidationError("cannot merge an organization into itself", internal.ErrCodeValidationFailed)
	}

	target, err := s.repo.GetByID(targetID)
	if err != nil {
		return nil, internal.ErrOrganizationNotFound
	}
	source, err := s.repo.GetByID(dto.SourceID)
	if err != nil {
		return nil, internal.ErrOrganizationNotFound
	}

	if err := s.repo.ReassignRelated(source.ID, target.ID); err != nil {
		s.logger.Error("failed to reassign related records during merge",
			"error", err, "source_id", source.ID, "target_id", target.ID)
		return nil, internal.NewInternalError(fmt.Sprintf("failed to merge organization %d", source.ID), err)
	}

	if err := s.repo.SoftDelete(source.ID, actor); err != nil {
		return nil, internal.NewInternalError("failed to retire merged organization", err)
	}

	s.logger.Info("organizations merged",
		"source_id", source.ID,
		"target_id", target.ID,
		"actor", actor)

	return target, nil
}
