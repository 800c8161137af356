package contact

import (
	"log/slog"
	"time"

	"github.com/krwhynot/pantry-crm/internal"
	"github.com/krwhynot/pantry-crm/internal/organization"
)

type RepositoryAPI interface {
	Create(c *Contact) error
	GetByID(id int64) (*Contact, error)
	List(filter ListFilter) ([]*Contact, error)
	Update(c *Contact) error
	SoftDelete(id int64, actor int64) error
	PrimaryForOrganization(orgID int64) (*Contact, error)
	PromotePrimary(orgID, contactID int64, actor int64) error
}

// OrganizationAPI is the slice of the organization service contacts need.
type OrganizationAPI interface {
	GetOrganization(id int64) (*organization.OrganizationResponse, error)
}

type Service struct {
	repo   RepositoryAPI
	orgs   OrganizationAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, orgs OrganizationAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		orgs:   orgs,
		logger: logger,
	}
}

func (s *Service) verifyOrganization(orgID int64) error {
	org, err := s.orgs.GetOrganization(orgID)
	if err != nil {
		return organization.ErrNotFound
	}
	if !org.IsActive {
		return organization.ErrNotFound
	}
	return nil
}

// CreateContact adds a person to an organization. Marking the new contact
// primary demotes the current primary, if any.
func (s *Service) CreateContact(dto CreateContactDTO, actor int64) (*Contact, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if err := s.verifyOrganization(dto.OrganizationID); err != nil {
		return nil, err
	}

	method := dto.PreferredMethod
	if method == "" {
		method = MethodEmail
	}

	now := time.Now()
	c := &Contact{
		OrganizationID:  dto.OrganizationID,
		FirstName:       dto.FirstName,
		LastName:        dto.LastName,
		Email:           dto.Email,
		Phone:           dto.Phone,
		Position:        dto.Position,
		IsPrimary:       dto.IsPrimary,
		IsDecisionMaker: dto.IsDecisionMaker,
		PreferredMethod: method,
		Notes:           dto.Notes,
		IsActive:        true,
		CreatedBy:       actor,
		UpdatedBy:       actor,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Create(c); err != nil {
		s.logger.Error("CreateContact: failed to persist", "error", err, "organization_id", dto.OrganizationID)
		return nil, internal.NewInternalError("failed to create contact", err)
	}

	if c.IsPrimary {
		if err := s.repo.PromotePrimary(c.OrganizationID, c.ID, actor); err != nil {
			s.logger.Error("CreateContact: failed to promote primary", "error", err, "contact_id", c.ID)
			return nil, internal.NewInternalError("failed to set primary contact", err)
		}
	}

	s.logger.Info("contact created", "contact_id", c.ID, "organization_id", c.OrganizationID, "created_by", actor)
	return c, nil
}

func (s *Service) GetContact(id int64) (*Contact, error) {
	c, err := s.repo.GetByID(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return c, nil
}

func (s *Service) ListContacts(filter ListFilter) ([]*Contact, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}

	contacts, err := s.repo.List(filter)
	if err != nil {
		s.logger.Error("ListContacts: failed", "error", err)
		return nil, internal.NewInternalError("failed to list contacts", err)
	}
	return contacts, nil
}

func (s *Service) UpdateContact(id int64, dto UpdateContactDTO, actor int64) (*Contact, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	c, err := s.repo.GetByID(id)
	if err != nil {
		return nil, ErrNotFound
	}

	if dto.FirstName != nil {
		c.FirstName = *dto.FirstName
	}
	if dto.LastName != nil {
		c.LastName = *dto.LastName
	}
	if dto.Email != nil {
		c.Email = *dto.Email
	}
	if dto.Phone != nil {
		c.Phone = *dto.Phone
	}
	if dto.Position != nil {
		c.Position = *dto.Position
	}
	if dto.IsDecisionMaker != nil {
		c.IsDecisionMaker = *dto.IsDecisionMaker
	}
	if dto.PreferredMethod != nil {
		c.PreferredMethod = *dto.PreferredMethod
	}
	if dto.Notes != nil {
		c.Notes = *dto.Notes
	}
	c.UpdatedBy = actor
	c.UpdatedAt = time.Now()

	if err := s.repo.Update(c); err != nil {
		s.logger.Error("UpdateContact: failed", "error", err, "contact_id", id)
		return nil, internal.NewInternalError("failed to update contact", err)
	}
	return c, nil
}

// SetPrimary makes the contact the single primary for its organization.
func (s *Service) SetPrimary(id int64, actor int64) (*Contact, error) {
	c, err := s.repo.GetByID(id)
	if err != nil {
		return nil, ErrNotFound
	}

	if c.IsPrimary {
		return c, nil
	}

	if err := s.repo.PromotePrimary(c.OrganizationID, c.ID, actor); err != nil {
		s.logger.Error("SetPrimary: failed", "error", err, "contact_id", id)
		return nil, internal.NewInternalError("failed to set primary contact", err)
	}

	c.IsPrimary = true
	c.UpdatedBy = actor
	return c, nil
}

func (s *Service) DeleteContact(id int64, actor int64) error {
	if _, err := s.repo.GetByID(id); err != nil {
		return ErrNotFound
	}

	if err := s.repo.SoftDelete(id, actor); err != nil {
		s.logger.Error("DeleteContact: failed", "error", err, "contact_id", id)
		return internal.NewInternalError("failed to delete contact", err)
	}

	s.logger.Info("contact deleted", "contact_id", id, "deleted_by", actor)
	return nil
}

// VerifyInOrganization checks that a contact belongs to the given
// organization. Interactions and opportunities use this before linking a
// contact to a record.
func (s *Service) VerifyInOrganization(contactID, orgID int64) error {
	c, err := s.repo.GetByID(contactID)
	if err != nil {
		return ErrNotFound
	}
	if c.OrganizationID != orgID {
		return ErrOrgMismatch
	}
	return nil
}
