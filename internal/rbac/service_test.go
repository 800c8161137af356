package rbac_test

import (
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/krwhynot/pantry-crm/internal/auth"
	"github.com/krwhynot/pantry-crm/internal/rbac"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestRBACService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "RBAC Service Suite")
}

// MockRepository implements rbac.RepositoryAPI for testing
type MockRepository struct {
	roles       map[int64]*rbac.Role
	grants      map[int64][]*rbac.UserRole
	permissions map[int64][]*rbac.Permission
	nextGrantID int64
	shouldFail  bool
	failError   error
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		roles:       make(map[int64]*rbac.Role),
		grants:      make(map[int64][]*rbac.UserRole),
		permissions: make(map[int64][]*rbac.Permission),
		nextGrantID: 1,
	}
}

func (m *MockRepository) SetShouldFail(fail bool, err error) {
	m.shouldFail = fail
	m.failError = err
}

func (m *MockRepository) AddRole(role *rbac.Role, perms ...*rbac.Permission) {
	m.roles[role.ID] = role
	m.permissions[role.ID] = perms
}

func (m *MockRepository) Grant(userID, roleID int64, expiresAt *time.Time, active bool) {
	m.grants[userID] = append(m.grants[userID], &rbac.UserRole{
		ID:         m.nextGrantID,
		UserID:     userID,
		RoleID:     roleID,
		AssignedAt: time.Now(),
		ExpiresAt:  expiresAt,
		IsActive:   active,
	})
	m.nextGrantID++
}

func (m *MockRepository) GetRoleByID(id int64) (*rbac.Role, error) {
	if m.shouldFail {
		return nil, m.failError
	}
	role, exists := m.roles[id]
	if !exists {
		return nil, rbac.ErrRoleNotFound
	}
	return role, nil
}

func (m *MockRepository) GetRoleByName(name string) (*rbac.Role, error) {
	if m.shouldFail {
		return nil, m.failError
	}
	for _, role := range m.roles {
		if role.Name == name {
			return role, nil
		}
	}
	return nil, rbac.ErrRoleNotFound
}

func (m *MockRepository) ListRoles() ([]*rbac.Role, error) {
	if m.shouldFail {
		return nil, m.failError
	}
	var result []*rbac.Role
	for _, role := range m.roles {
		result = append(result, role)
	}
	return result, nil
}

func (m *MockRepository) ListUserRoles(userID int64) ([]*rbac.UserRole, error) {
	if m.shouldFail {
		return nil, m.failError
	}
	return m.grants[userID], nil
}

func (m *MockRepository) PermissionsForRoles(roleIDs []int64) ([]*rbac.Permission, error) {
	if m.shouldFail {
		return nil, m.failError
	}
	var result []*rbac.Permission
	for _, id := range roleIDs {
		result = append(result, m.permissions[id]...)
	}
	return result, nil
}

func (m *MockRepository) AssignRole(ur *rbac.UserRole) error {
	if m.shouldFail {
		return m.failError
	}
	ur.ID = m.nextGrantID
	m.nextGrantID++
	m.grants[ur.UserID] = append(m.grants[ur.UserID], ur)
	return nil
}

func (m *MockRepository) RevokeRole(userID, roleID int64) error {
	if m.shouldFail {
		return m.failError
	}
	for _, g := range m.grants[userID] {
		if g.RoleID == roleID {
			g.IsActive = false
		}
	}
	return nil
}

var _ = Describe("RBAC Service", func() {
	var (
		mockRepo *MockRepository
		service  *rbac.Service
	)

	adminRole := func() *rbac.Role { return &rbac.Role{ID: 1, Name: rbac.RoleAdmin, Level: auth.LevelAdmin} }
	repRole := func() *rbac.Role { return &rbac.Role{ID: 3, Name: rbac.RoleSalesRep, Level: auth.LevelSalesRep} }

	BeforeEach(func() {
		mockRepo = NewMockRepository()
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = rbac.NewService(mockRepo, logger)
	})

	Describe("PermissionsForUser", func() {
		It("returns an empty set for a user with no roles", func() {
			perms, err := service.PermissionsForUser(42)
			Expect(err).NotTo(HaveOccurred())
			Expect(perms).To(BeEmpty())
		})

		It("flattens and deduplicates permissions across roles", func() {
			mockRepo.AddRole(&rbac.Role{ID: 2, Name: rbac.RoleManager, Level: auth.LevelManager},
				&rbac.Permission{Resource: rbac.ResourceOrganizations, Action: rbac.ActionRead},
				&rbac.Permission{Resource: rbac.ResourceContacts, Action: rbac.ActionRead},
			)
			mockRepo.AddRole(repRole(),
				&rbac.Permission{Resource: rbac.ResourceOrganizations, Action: rbac.ActionRead},
			)
			mockRepo.Grant(42, 2, nil, true)
			mockRepo.Grant(42, 3, nil, true)

			perms, err := service.PermissionsForUser(42)
			Expect(err).NotTo(HaveOccurred())
			Expect(perms).To(ConsistOf("contacts:read", "organizations:read"))
		})

		It("collapses the full wildcard row to a single star", func() {
			mockRepo.AddRole(adminRole(), &rbac.Permission{Resource: rbac.Wildcard, Action: rbac.Wildcard})
			mockRepo.Grant(1, 1, nil, true)

			perms, err := service.PermissionsForUser(1)
			Expect(err).NotTo(HaveOccurred())
			Expect(perms).To(ConsistOf(auth.PermissionWildcard))
		})

		It("ignores expired grants", func() {
			expired := time.Now().Add(-time.Hour)
			mockRepo.AddRole(repRole(), &rbac.Permission{Resource: rbac.ResourceOrganizations, Action: rbac.ActionRead})
			mockRepo.Grant(42, 3, &expired, true)

			perms, err := service.PermissionsForUser(42)
			Expect(err).NotTo(HaveOccurred())
			Expect(perms).To(BeEmpty())
		})

		It("ignores inactive grants", func() {
			mockRepo.AddRole(repRole(), &rbac.Permission{Resource: rbac.ResourceOrganizations, Action: rbac.ActionRead})
			mockRepo.Grant(42, 3, nil, false)

			perms, err := service.PermissionsForUser(42)
			Expect(err).NotTo(HaveOccurred())
			Expect(perms).To(BeEmpty())
		})
	})

	Describe("HasPermission", func() {
		It("matches an exact resource and action", func() {
			mockRepo.AddRole(repRole(), &rbac.Permission{Resource: rbac.ResourceContacts, Action: rbac.ActionWrite})
			mockRepo.Grant(42, 3, nil, true)

			ok, err := service.HasPermission(42, rbac.ResourceContacts, rbac.ActionWrite)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())

			ok, err = service.HasPermission(42, rbac.ResourceContacts, rbac.ActionDelete)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})

		It("grants everything through the wildcard", func() {
			mockRepo.AddRole(adminRole(), &rbac.Permission{Resource: rbac.Wildcard, Action: rbac.Wildcard})
			mockRepo.Grant(1, 1, nil, true)

			ok, err := service.HasPermission(1, rbac.ResourceProducts, rbac.ActionDelete)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
		})
	})

	Describe("MaxLevelForUser", func() {
		It("returns zero for a user with no roles", func() {
			level, err := service.MaxLevelForUser(42)
			Expect(err).NotTo(HaveOccurred())
			Expect(level).To(BeZero())
		})

		It("returns the highest level across roles", func() {
			mockRepo.AddRole(&rbac.Role{ID: 2, Name: rbac.RoleManager, Level: auth.LevelManager})
			mockRepo.AddRole(repRole())
			mockRepo.Grant(42, 2, nil, true)
			mockRepo.Grant(42, 3, nil, true)

			level, err := service.MaxLevelForUser(42)
			Expect(err).NotTo(HaveOccurred())
			Expect(level).To(Equal(auth.LevelManager))
		})
	})

	Describe("AssignRole", func() {
		BeforeEach(func() {
			mockRepo.AddRole(repRole())
		})

		It("records the grant with the assigning actor", func() {
			grant, err := service.AssignRole(rbac.AssignRoleDTO{UserID: 42, RoleName: rbac.RoleSalesRep}, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(grant.RoleID).To(Equal(int64(3)))
			Expect(grant.AssignedBy).NotTo(BeNil())
			Expect(*grant.AssignedBy).To(Equal(int64(1)))
			Expect(grant.IsActive).To(BeTrue())
		})

		It("rejects an unknown role", func() {
			_, err := service.AssignRole(rbac.AssignRoleDTO{UserID: 42, RoleName: "superuser"}, 1)
			Expect(err).To(MatchError(rbac.ErrRoleNotFound))
		})

		It("surfaces store failures", func() {
			mockRepo.SetShouldFail(true, errors.New("database error"))
			_, err := service.AssignRole(rbac.AssignRoleDTO{UserID: 42, RoleName: rbac.RoleSalesRep}, 1)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("RevokeRole", func() {
		It("switches the grant off", func() {
			mockRepo.AddRole(repRole(), &rbac.Permission{Resource: rbac.ResourceContacts, Action: rbac.ActionRead})
			mockRepo.Grant(42, 3, nil, true)

			Expect(service.RevokeRole(42, rbac.RoleSalesRep, 1)).To(Succeed())

			perms, err := service.PermissionsForUser(42)
			Expect(err).NotTo(HaveOccurred())
			Expect(perms).To(BeEmpty())
		})
	})

	Describe("CanAccessOwned", func() {
		It("always lets the owner through", func() {
			actor := &auth.User{ID: 42, RoleLevel: auth.LevelSalesRep}
			Expect(rbac.CanAccessOwned(actor, 42)).To(BeTrue())
		})

		It("rejects a rep touching another rep's record", func() {
			actor := &auth.User{ID: 42, RoleLevel: auth.LevelSalesRep}
			Expect(rbac.CanAccessOwned(actor, 7)).To(BeFalse())
		})

		It("lets managers touch any record", func() {
			actor := &auth.User{ID: 42, RoleLevel: auth.LevelManager}
			Expect(rbac.CanAccessOwned(actor, 7)).To(BeTrue())
		})

		It("rejects a missing principal", func() {
			Expect(rbac.CanAccessOwned(nil, 7)).To(BeFalse())
		})
	})
})
