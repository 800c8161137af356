package postgres_test

import (
	"testing"
	"time"

	"github.com/krwhynot/pantry-crm/internal/organization"
	orgPostgres "github.com/krwhynot/pantry-crm/internal/organization/postgres"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestOrganizationPostgres(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Organization Postgres Suite")
}

// SQLiteOrganization is a SQLite-compatible model for testing
type SQLiteOrganization struct {
	ID        int64      `gorm:"primaryKey"`
	Name      string     `gorm:"column:name;not null"`
	Type      string     `gorm:"column:org_type;not null"`
	Priority  string     `gorm:"column:priority;not null;default:C"`
	Segment   string     `gorm:"column:segment"`
	ParentID  *int64     `gorm:"column:parent_id"`
	Notes     string     `gorm:"column:notes"`
	IsActive  bool       `gorm:"column:is_active;default:true"`
	CreatedBy int64      `gorm:"column:created_by"`
	UpdatedBy int64      `gorm:"column:updated_by"`
	CreatedAt time.Time  `gorm:"column:created_at"`
	UpdatedAt time.Time  `gorm:"column:updated_at"`
	DeletedAt *time.Time `gorm:"column:deleted_at;index"`
}

func (SQLiteOrganization) TableName() string {
	return "organizations"
}

var _ = Describe("Organization PostgreSQL Repository", func() {
	var (
		db   *gorm.DB
		repo organization.RepositoryAPI
	)

	newOrg := func(name, orgType, priority string) *organization.Organization {
		return &organization.Organization{
			Name:     name,
			Type:     orgType,
			Priority: priority,
			IsActive: true,
		}
	}

	BeforeEach(func() {
		var err error
		// Use SQLite in-memory database for testing
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())

		err = db.AutoMigrate(&SQLiteOrganization{})
		Expect(err).NotTo(HaveOccurred())

		repo = orgPostgres.NewOrganizationRepository(db)
	})

	Describe("Create", func() {
		It("should create an organization and backfill its id", func() {
			org := newOrg("Lakeshore Bistro Group", organization.TypeCustomer, "A")

			err := repo.Create(org)
			Expect(err).NotTo(HaveOccurred())
			Expect(org.ID).To(BeNumerically(">", 0))
		})
	})

	Describe("GetByID", func() {
		It("should round-trip all fields", func() {
			org := newOrg("Lakeshore Bistro Group", organization.TypeCustomer, "A")
			org.Segment = "casual_dining"
			org.Notes = "Three locations downtown"
			Expect(repo.Create(org)).To(Succeed())

			found, err := repo.GetByID(org.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(found.Name).To(Equal("Lakeshore Bistro Group"))
			Expect(found.Type).To(Equal(organization.TypeCustomer))
			Expect(found.Segment).To(Equal("casual_dining"))
			Expect(found.Notes).To(Equal("Three locations downtown"))
		})

		It("should return not found for a missing id", func() {
			_, err := repo.GetByID(999)
			Expect(err).To(MatchError(organization.ErrNotFound))
		})
	})

	Describe("List", func() {
		BeforeEach(func() {
			Expect(repo.Create(newOrg("Alpha Foods", organization.TypeCustomer, "A"))).To(Succeed())
			Expect(repo.Create(newOrg("Beta Provisions", organization.TypeProspect, "B"))).To(Succeed())
			Expect(repo.Create(newOrg("Gamma Distribution", organization.TypeDistributor, "A"))).To(Succeed())
		})

		It("should filter by type", func() {
			orgs, err := repo.List(organization.ListFilter{Type: organization.TypeProspect, Limit: 10})
			Expect(err).NotTo(HaveOccurred())
			Expect(orgs).To(HaveLen(1))
			Expect(orgs[0].Name).To(Equal("Beta Provisions"))
		})

		It("should filter by priority ordered by name", func() {
			orgs, err := repo.List(organization.ListFilter{Priority: "A", Limit: 10})
			Expect(err).NotTo(HaveOccurred())
			Expect(orgs).To(HaveLen(2))
			Expect(orgs[0].Name).To(Equal("Alpha Foods"))
			Expect(orgs[1].Name).To(Equal("Gamma Distribution"))
		})

		It("should match names case-insensitively", func() {
			orgs, err := repo.List(organization.ListFilter{Search: "beta", Limit: 10})
			Expect(err).NotTo(HaveOccurred())
			Expect(orgs).To(HaveLen(1))
		})

		It("should hide soft-deleted organizations", func() {
			orgs, err := repo.List(organization.ListFilter{Limit: 10})
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.SoftDelete(orgs[0].ID, 1)).To(Succeed())

			remaining, err := repo.List(organization.ListFilter{Limit: 10})
			Expect(err).NotTo(HaveOccurred())
			Expect(remaining).To(HaveLen(2))
		})
	})

	Describe("SoftDelete", func() {
		It("should keep the row but hide it from lookups", func() {
			org := newOrg("Lakeshore Bistro Group", organization.TypeCustomer, "A")
			Expect(repo.Create(org)).To(Succeed())

			Expect(repo.SoftDelete(org.ID, 42)).To(Succeed())

			_, err := repo.GetByID(org.ID)
			Expect(err).To(MatchError(organization.ErrNotFound))

			var count int64
			Expect(db.Raw("SELECT COUNT(*) FROM organizations WHERE id = ?", org.ID).Scan(&count).Error).To(Succeed())
			Expect(count).To(Equal(int64(1)))
		})
	})

	Describe("CountChildren", func() {
		It("should count only active children", func() {
			parent := newOrg("Parent Group", organization.TypeCustomer, "A")
			Expect(repo.Create(parent)).To(Succeed())

			childA := newOrg("Child A", organization.TypeCustomer, "B")
			childA.ParentID = &parent.ID
			Expect(repo.Create(childA)).To(Succeed())

			childB := newOrg("Child B", organization.TypeCustomer, "B")
			childB.ParentID = &parent.ID
			Expect(repo.Create(childB)).To(Succeed())
			Expect(repo.SoftDelete(childB.ID, 1)).To(Succeed())

			count, err := repo.CountChildren(parent.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(int64(1)))
		})
	})

	Describe("FindByNormalizedName", func() {
		It("should match regardless of stored casing", func() {
			Expect(repo.Create(newOrg("Lakeshore Bistro", organization.TypeCustomer, "A"))).To(Succeed())
			Expect(repo.Create(newOrg("LAKESHORE BISTRO", organization.TypeProspect, "B"))).To(Succeed())
			Expect(repo.Create(newOrg("Other Kitchen", organization.TypeCustomer, "C"))).To(Succeed())

			matches, err := repo.FindByNormalizedName("lakeshore bistro")
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(HaveLen(2))
		})
	})

	Describe("ReassignRelated", func() {
		It("should repoint child organizations to the merge target", func() {
			source := newOrg("Absorbed Cafe", organization.TypeCustomer, "B")
			Expect(repo.Create(source)).To(Succeed())
			target := newOrg("Surviving Group", organization.TypeCustomer, "A")
			Expect(repo.Create(target)).To(Succeed())

			child := newOrg("Satellite Kitchen", organization.TypeCustomer, "C")
			child.ParentID = &source.ID
			Expect(repo.Create(child)).To(Succeed())

			// The related tables exist in the full schema; only the
			// organizations table is migrated here.
			Expect(db.Exec("CREATE TABLE contacts (id INTEGER PRIMARY KEY, organization_id INTEGER)").Error).To(Succeed())
			Expect(db.Exec("CREATE TABLE interactions (id INTEGER PRIMARY KEY, organization_id INTEGER)").Error).To(Succeed())
			Expect(db.Exec("CREATE TABLE opportunities (id INTEGER PRIMARY KEY, organization_id INTEGER)").Error).To(Succeed())
			Expect(db.Exec("INSERT INTO contacts (organization_id) VALUES (?)", source.ID).Error).To(Succeed())

			Expect(repo.ReassignRelated(source.ID, target.ID)).To(Succeed())

			found, err := repo.GetByID(child.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(*found.ParentID).To(Equal(target.ID))

			var orgID int64
			Expect(db.Raw("SELECT organization_id FROM contacts LIMIT 1").Scan(&orgID).Error).To(Succeed())
			Expect(orgID).To(Equal(target.ID))
		})
	})
})
