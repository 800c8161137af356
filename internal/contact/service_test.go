package contact_test

import (
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/krwhynot/pantry-crm/internal/contact"
	"github.com/krwhynot/pantry-crm/internal/organization"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestContactService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Contact Service Suite")
}

// MockRepository implements contact.RepositoryAPI for testing
type MockRepository struct {
	contacts   map[int64]*contact.Contact
	nextID     int64
	shouldFail bool
	failError  error
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		contacts: make(map[int64]*contact.Contact),
		nextID:   1,
	}
}

func (m *MockRepository) SetShouldFail(fail bool, err error) {
	m.shouldFail = fail
	m.failError = err
}

func (m *MockRepository) Create(c *contact.Contact) error {
	if m.shouldFail {
		return m.failError
	}
	c.ID = m.nextID
	m.nextID++
	m.contacts[c.ID] = c
	return nil
}

func (m *MockRepository) GetByID(id int64) (*contact.Contact, error) {
	if m.shouldFail {
		return nil, m.failError
	}
	c, exists := m.contacts[id]
	if !exists {
		return nil, contact.ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (m *MockRepository) List(filter contact.ListFilter) ([]*contact.Contact, error) {
	if m.shouldFail {
		return nil, m.failError
	}
	var result []*contact.Contact
	for _, c := range m.contacts {
		if filter.OrganizationID > 0 && c.OrganizationID != filter.OrganizationID {
			continue
		}
		if filter.PrimaryOnly && !c.IsPrimary {
			continue
		}
		result = append(result, c)
	}
	return result, nil
}

func (m *MockRepository) Update(c *contact.Contact) error {
	if m.shouldFail {
		return m.failError
	}
	m.contacts[c.ID] = c
	return nil
}

func (m *MockRepository) SoftDelete(id int64, actor int64) error {
	if m.shouldFail {
		return m.failError
	}
	c, exists := m.contacts[id]
	if !exists {
		return contact.ErrNotFound
	}
	c.IsActive = false
	return nil
}

func (m *MockRepository) PrimaryForOrganization(orgID int64) (*contact.Contact, error) {
	if m.shouldFail {
		return nil, m.failError
	}
	for _, c := range m.contacts {
		if c.OrganizationID == orgID && c.IsPrimary && c.IsActive {
			copied := *c
			return &copied, nil
		}
	}
	return nil, contact.ErrNotFound
}

func (m *MockRepository) PromotePrimary(orgID, contactID int64, actor int64) error {
	if m.shouldFail {
		return m.failError
	}
	for _, c := range m.contacts {
		if c.OrganizationID == orgID {
			c.IsPrimary = c.ID == contactID
		}
	}
	return nil
}

// MockOrganizationAPI returns a fixed organization
type MockOrganizationAPI struct {
	active  bool
	missing bool
}

func (m *MockOrganizationAPI) GetOrganization(id int64) (*organization.OrganizationResponse, error) {
	if m.missing {
		return nil, organization.ErrNotFound
	}
	return &organization.OrganizationResponse{
		Organization: &organization.Organization{ID: id, Name: "Lakeshore Bistro", IsActive: m.active},
	}, nil
}

var _ = Describe("Contact Service", func() {
	var (
		mockRepo *MockRepository
		orgs     *MockOrganizationAPI
		service  *contact.Service
	)

	BeforeEach(func() {
		mockRepo = NewMockRepository()
		orgs = &MockOrganizationAPI{active: true}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = contact.NewService(mockRepo, orgs, logger)
	})

	Describe("CreateContact", func() {
		Context("with a valid payload", func() {
			It("creates an active contact", func() {
				c, err := service.CreateContact(contact.CreateContactDTO{
					OrganizationID: 1,
					FirstName:      "Dana",
					LastName:       "Reyes",
					Email:          "dana.reyes@example.com",
				}, 7)
				Expect(err).NotTo(HaveOccurred())
				Expect(c.ID).NotTo(BeZero())
				Expect(c.IsActive).To(BeTrue())
				Expect(c.IsPrimary).To(BeFalse())
				Expect(c.PreferredMethod).To(Equal(contact.MethodEmail))
			})

			It("keeps the decision maker flag and preferred method", func() {
				c, err := service.CreateContact(contact.CreateContactDTO{
					OrganizationID:  1,
					FirstName:       "Dana",
					LastName:        "Reyes",
					IsDecisionMaker: true,
					PreferredMethod: contact.MethodSMS,
				}, 7)
				Expect(err).NotTo(HaveOccurred())
				Expect(c.IsDecisionMaker).To(BeTrue())
				Expect(c.PreferredMethod).To(Equal(contact.MethodSMS))
			})

			It("rejects an unknown preferred contact method", func() {
				_, err := service.CreateContact(contact.CreateContactDTO{
					OrganizationID:  1,
					FirstName:       "Dana",
					LastName:        "Reyes",
					PreferredMethod: "carrier_pigeon",
				}, 7)
				Expect(err).To(HaveOccurred())
			})
		})

		Context("when marked primary", func() {
			It("demotes the existing primary for the organization", func() {
				first, err := service.CreateContact(contact.CreateContactDTO{
					OrganizationID: 1,
					FirstName:      "Dana",
					LastName:       "Reyes",
					IsPrimary:      true,
				}, 7)
				Expect(err).NotTo(HaveOccurred())

				second, err := service.CreateContact(contact.CreateContactDTO{
					OrganizationID: 1,
					FirstName:      "Lee",
					LastName:       "Okafor",
					IsPrimary:      true,
				}, 7)
				Expect(err).NotTo(HaveOccurred())

				Expect(mockRepo.contacts[first.ID].IsPrimary).To(BeFalse())
				Expect(mockRepo.contacts[second.ID].IsPrimary).To(BeTrue())
			})
		})

		Context("when the organization is missing", func() {
			BeforeEach(func() {
				orgs.missing = true
			})

			It("rejects the create", func() {
				_, err := service.CreateContact(contact.CreateContactDTO{
					OrganizationID: 99,
					FirstName:      "Dana",
					LastName:       "Reyes",
				}, 7)
				Expect(err).To(MatchError(organization.ErrNotFound))
			})
		})

		Context("when the organization is inactive", func() {
			BeforeEach(func() {
				orgs.active = false
			})

			It("rejects the create", func() {
				_, err := service.CreateContact(contact.CreateContactDTO{
					OrganizationID: 1,
					FirstName:      "Dana",
					LastName:       "Reyes",
				}, 7)
				Expect(err).To(MatchError(organization.ErrNotFound))
			})
		})

		Context("with a malformed email", func() {
			It("fails validation", func() {
				_, err := service.CreateContact(contact.CreateContactDTO{
					OrganizationID: 1,
					FirstName:      "Dana",
					LastName:       "Reyes",
					Email:          "not-an-email",
				}, 7)
				Expect(err).To(HaveOccurred())
				Expect(mockRepo.contacts).To(BeEmpty())
			})
		})
	})

	Describe("SetPrimary", func() {
		It("promotes the contact and demotes the previous primary", func() {
			first, err := service.CreateContact(contact.CreateContactDTO{
				OrganizationID: 1,
				FirstName:      "Dana",
				LastName:       "Reyes",
				IsPrimary:      true,
			}, 7)
			Expect(err).NotTo(HaveOccurred())

			second, err := service.CreateContact(contact.CreateContactDTO{
				OrganizationID: 1,
				FirstName:      "Lee",
				LastName:       "Okafor",
			}, 7)
			Expect(err).NotTo(HaveOccurred())

			promoted, err := service.SetPrimary(second.ID, 7)
			Expect(err).NotTo(HaveOccurred())
			Expect(promoted.IsPrimary).To(BeTrue())
			Expect(mockRepo.contacts[first.ID].IsPrimary).To(BeFalse())
		})

		It("is a no-op for the current primary", func() {
			c, err := service.CreateContact(contact.CreateContactDTO{
				OrganizationID: 1,
				FirstName:      "Dana",
				LastName:       "Reyes",
				IsPrimary:      true,
			}, 7)
			Expect(err).NotTo(HaveOccurred())

			promoted, err := service.SetPrimary(c.ID, 7)
			Expect(err).NotTo(HaveOccurred())
			Expect(promoted.IsPrimary).To(BeTrue())
		})

		It("returns not found for a missing contact", func() {
			_, err := service.SetPrimary(999, 7)
			Expect(err).To(MatchError(contact.ErrNotFound))
		})
	})

	Describe("VerifyInOrganization", func() {
		var c *contact.Contact

		BeforeEach(func() {
			var err error
			c, err = service.CreateContact(contact.CreateContactDTO{
				OrganizationID: 1,
				FirstName:      "Dana",
				LastName:       "Reyes",
			}, 7)
			Expect(err).NotTo(HaveOccurred())
		})

		It("accepts a contact in the organization", func() {
			Expect(service.VerifyInOrganization(c.ID, 1)).To(Succeed())
		})

		It("rejects a contact from another organization", func() {
			Expect(service.VerifyInOrganization(c.ID, 2)).To(MatchError(contact.ErrOrgMismatch))
		})

		It("reports a missing contact as not found", func() {
			Expect(service.VerifyInOrganization(999, 1)).To(MatchError(contact.ErrNotFound))
		})
	})

	Describe("UpdateContact", func() {
		It("applies only the provided fields", func() {
			c, err := service.CreateContact(contact.CreateContactDTO{
				OrganizationID: 1,
				FirstName:      "Dana",
				LastName:       "Reyes",
				Position:       "Head Chef",
			}, 7)
			Expect(err).NotTo(HaveOccurred())

			phone := "+1-312-555-0188"
			updated, err := service.UpdateContact(c.ID, contact.UpdateContactDTO{Phone: &phone}, 8)
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Phone).To(Equal(phone))
			Expect(updated.Position).To(Equal("Head Chef"))
			Expect(updated.UpdatedBy).To(Equal(int64(8)))
		})
	})

	Describe("DeleteContact", func() {
		It("soft-deletes an existing contact", func() {
			c, err := service.CreateContact(contact.CreateContactDTO{
				OrganizationID: 1,
				FirstName:      "Dana",
				LastName:       "Reyes",
			}, 7)
			Expect(err).NotTo(HaveOccurred())

			Expect(service.DeleteContact(c.ID, 7)).To(Succeed())
			Expect(mockRepo.contacts[c.ID].IsActive).To(BeFalse())
		})

		It("surfaces store failures", func() {
			c, err := service.CreateContact(contact.CreateContactDTO{
				OrganizationID: 1,
				FirstName:      "Dana",
				LastName:       "Reyes",
			}, 7)
			Expect(err).NotTo(HaveOccurred())

			mockRepo.SetShouldFail(true, errors.New("database error"))
			Expect(service.DeleteContact(c.ID, 7)).To(HaveOccurred())
		})
	})
})
