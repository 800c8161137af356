package opportunity_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/krwhynot/pantry-crm/internal"
	"github.com/krwhynot/pantry-crm/internal/core/events"
	"github.com/krwhynot/pantry-crm/internal/opportunity"
	"github.com/krwhynot/pantry-crm/internal/organization"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestOpportunityService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Opportunity Service Suite")
}

// MockRepository implements opportunity.RepositoryAPI for testing
type MockRepository struct {
	opportunities map[int64]*opportunity.Opportunity
	history       []*opportunity.StageHistory
	nextID        int64
	shouldFail    bool
	failError     error
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		opportunities: make(map[int64]*opportunity.Opportunity),
		nextID:        1,
	}
}

func (m *MockRepository) Create(o *opportunity.Opportunity) error {
	if m.shouldFail {
		return m.failError
	}
	o.ID = m.nextID
	m.nextID++
	m.opportunities[o.ID] = o
	return nil
}

func (m *MockRepository) GetByID(id int64) (*opportunity.Opportunity, error) {
	if m.shouldFail {
		return nil, m.failError
	}
	o, exists := m.opportunities[id]
	if !exists {
		return nil, opportunity.ErrNotFound
	}
	copied := *o
	return &copied, nil
}

func (m *MockRepository) List(filter opportunity.ListFilter) ([]*opportunity.Opportunity, error) {
	if m.shouldFail {
		return nil, m.failError
	}
	var result []*opportunity.Opportunity
	for _, o := range m.opportunities {
		result = append(result, o)
	}
	return result, nil
}

func (m *MockRepository) Update(o *opportunity.Opportunity) error {
	if m.shouldFail {
		return m.failError
	}
	m.opportunities[o.ID] = o
	return nil
}

func (m *MockRepository) SoftDelete(id int64, actor int64) error {
	if m.shouldFail {
		return m.failError
	}
	delete(m.opportunities, id)
	return nil
}

func (m *MockRepository) ChangeStage(o *opportunity.Opportunity, history *opportunity.StageHistory) error {
	if m.shouldFail {
		return m.failError
	}
	m.opportunities[o.ID] = o
	m.history = append(m.history, history)
	return nil
}

func (m *MockRepository) StageHistory(opportunityID int64) ([]*opportunity.StageHistory, error) {
	if m.shouldFail {
		return nil, m.failError
	}
	var result []*opportunity.StageHistory
	for _, h := range m.history {
		if h.OpportunityID == opportunityID {
			result = append(result, h)
		}
	}
	return result, nil
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

type MockContactVerifier struct {
	err error
}

func (m *MockContactVerifier) VerifyInOrganization(contactID, orgID int64) error {
	return m.err
}

// MockBus records published events
type MockBus struct {
	published []events.Event
}

func (m *MockBus) Publish(ctx context.Context, event events.Event) error {
	m.published = append(m.published, event)
	return nil
}

var _ = Describe("Opportunity Service", func() {
	var (
		mockRepo *MockRepository
		orgs     *MockOrganizationAPI
		contacts *MockContactVerifier
		bus      *MockBus
		service  *opportunity.Service
	)

	BeforeEach(func() {
		mockRepo = NewMockRepository()
		orgs = &MockOrganizationAPI{active: true}
		contacts = &MockContactVerifier{}
		bus = &MockBus{}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = opportunity.NewService(mockRepo, orgs, contacts, bus, logger)
	})

	Describe("CreateOpportunity", func() {
		Context("with a valid payload", func() {
			It("defaults to prospecting with its fixed probability", func() {
				o, err := service.CreateOpportunity(opportunity.CreateOpportunityDTO{
					OrganizationID: 1,
					Name:           "House pasta program",
					ValueCents:     250000,
				}, 7)
				Expect(err).NotTo(HaveOccurred())
				Expect(o.Stage).To(Equal(opportunity.StageProspecting))
				Expect(o.Probability).To(Equal(10))
				Expect(o.ActualCloseDate).To(BeNil())
			})

			It("takes the probability from the stage table for explicit stages", func() {
				o, err := service.CreateOpportunity(opportunity.CreateOpportunityDTO{
					OrganizationID: 1,
					Name:           "Catering contract",
					Stage:          opportunity.StageNegotiation,
				}, 7)
				Expect(err).NotTo(HaveOccurred())
				Expect(o.Probability).To(Equal(75))
			})

			It("stamps the actual close date when created in a closed stage", func() {
				o, err := service.CreateOpportunity(opportunity.CreateOpportunityDTO{
					OrganizationID: 1,
					Name:           "Walk-in win",
					Stage:          opportunity.StageClosedWon,
				}, 7)
				Expect(err).NotTo(HaveOccurred())
				Expect(o.Probability).To(Equal(100))
				Expect(o.ActualCloseDate).NotTo(BeNil())
			})
		})

		Context("when the organization is inactive", func() {
			BeforeEach(func() {
				orgs.active = false
			})

			It("rejects the create", func() {
				_, err := service.CreateOpportunity(opportunity.CreateOpportunityDTO{
					OrganizationID: 1,
					Name:           "Doomed deal",
				}, 7)
				Expect(err).To(MatchError(organization.ErrNotFound))
			})
		})

		Context("when the contact belongs to another organization", func() {
			BeforeEach(func() {
				contacts.err = internal.NewValidationError("contact does not belong to the organization", internal.ErrCodeValidationFailed)
			})

			It("rejects the create", func() {
				contactID := int64(9)
				_, err := service.CreateOpportunity(opportunity.CreateOpportunityDTO{
					OrganizationID: 1,
					ContactID:      &contactID,
					Name:           "Cross-org deal",
				}, 7)
				Expect(err).To(HaveOccurred())
			})
		})

		Context("with a missing name", func() {
			It("fails validation before touching the store", func() {
				_, err := service.CreateOpportunity(opportunity.CreateOpportunityDTO{
					OrganizationID: 1,
				}, 7)
				Expect(err).To(HaveOccurred())
				Expect(mockRepo.opportunities).To(BeEmpty())
			})
		})

		Context("with a past expected close date", func() {
			It("fails validation before touching the store", func() {
				closeDate := time.Now().Add(-48 * time.Hour)
				_, err := service.CreateOpportunity(opportunity.CreateOpportunityDTO{
					OrganizationID:    1,
					Name:              "Summer menu rollout",
					ExpectedCloseDate: &closeDate,
				}, 7)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("must be in the future"))
				Expect(mockRepo.opportunities).To(BeEmpty())
			})
		})
	})

	Describe("ChangeStage", func() {
		var opp *opportunity.Opportunity

		BeforeEach(func() {
			var err error
			opp, err = service.CreateOpportunity(opportunity.CreateOpportunityDTO{
				OrganizationID: 1,
				Name:           "House pasta program",
				ValueCents:     250000,
			}, 7)
			Expect(err).NotTo(HaveOccurred())
		})

		It("updates stage and probability and appends exactly one history row", func() {
			updated, err := service.ChangeStage(opp.ID, opportunity.ChangeStageDTO{Stage: opportunity.StageProposal, Reason: "tasting went well"}, 7)
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Stage).To(Equal(opportunity.StageProposal))
			Expect(updated.Probability).To(Equal(50))

			Expect(mockRepo.history).To(HaveLen(1))
			Expect(mockRepo.history[0].FromStage).To(Equal(opportunity.StageProspecting))
			Expect(mockRepo.history[0].ToStage).To(Equal(opportunity.StageProposal))
			Expect(mockRepo.history[0].Reason).To(Equal("tasting went well"))
			Expect(mockRepo.history[0].Probability).To(Equal(50))
		})

		It("is a no-op for the current stage", func() {
			updated, err := service.ChangeStage(opp.ID, opportunity.ChangeStageDTO{Stage: opportunity.StageProspecting}, 7)
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Stage).To(Equal(opportunity.StageProspecting))
			Expect(mockRepo.history).To(BeEmpty())
		})

		It("stamps the actual close date on closed_won and publishes the won event", func() {
			updated, err := service.ChangeStage(opp.ID, opportunity.ChangeStageDTO{Stage: opportunity.StageClosedWon}, 7)
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.ActualCloseDate).NotTo(BeNil())

			types := make([]string, len(bus.published))
			for i, e := range bus.published {
				types[i] = e.EventType()
			}
			Expect(types).To(ContainElement(events.EventTypeOpportunityWon))
			Expect(types).To(ContainElement(events.EventTypeOpportunityStageChanged))
		})

		It("rejects further changes once closed", func() {
			_, err := service.ChangeStage(opp.ID, opportunity.ChangeStageDTO{Stage: opportunity.StageClosedLost}, 7)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.ChangeStage(opp.ID, opportunity.ChangeStageDTO{Stage: opportunity.StageProspecting}, 7)
			Expect(err).To(MatchError(opportunity.ErrClosed))
		})

		It("rejects unknown stages", func() {
			_, err := service.ChangeStage(opp.ID, opportunity.ChangeStageDTO{Stage: "daydreaming"}, 7)
			Expect(err).To(HaveOccurred())
			Expect(mockRepo.history).To(BeEmpty())
		})

		It("surfaces store failures", func() {
			mockRepo.shouldFail = true
			mockRepo.failError = errors.New("database error")

			_, err := service.ChangeStage(opp.ID, opportunity.ChangeStageDTO{Stage: opportunity.StageProposal}, 7)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("UpdateOpportunity", func() {
		It("rejects updates to closed deals", func() {
			o, err := service.CreateOpportunity(opportunity.CreateOpportunityDTO{
				OrganizationID: 1,
				Name:           "Won already",
				Stage:          opportunity.StageClosedWon,
			}, 7)
			Expect(err).NotTo(HaveOccurred())

			name := "Renamed"
			_, err = service.UpdateOpportunity(o.ID, opportunity.UpdateOpportunityDTO{Name: &name}, 7)
			Expect(err).To(MatchError(opportunity.ErrClosed))
		})

		It("never lets callers set the probability directly", func() {
			o, err := service.CreateOpportunity(opportunity.CreateOpportunityDTO{
				OrganizationID: 1,
				Name:           "Steady deal",
			}, 7)
			Expect(err).NotTo(HaveOccurred())

			value := int64(999999)
			updated, err := service.UpdateOpportunity(o.ID, opportunity.UpdateOpportunityDTO{ValueCents: &value}, 7)
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Probability).To(Equal(10))
		})
	})

	Describe("VerifyInOrganization", func() {
		It("accepts an opportunity in the organization", func() {
			o, err := service.CreateOpportunity(opportunity.CreateOpportunityDTO{
				OrganizationID: 1,
				Name:           "Linked deal",
			}, 7)
			Expect(err).NotTo(HaveOccurred())

			Expect(service.VerifyInOrganization(o.ID, 1)).To(Succeed())
		})

		It("rejects an opportunity from another organization", func() {
			o, err := service.CreateOpportunity(opportunity.CreateOpportunityDTO{
				OrganizationID: 1,
				Name:           "Linked deal",
			}, 7)
			Expect(err).NotTo(HaveOccurred())

			Expect(service.VerifyInOrganization(o.ID, 2)).NotTo(Succeed())
		})
	})
})
