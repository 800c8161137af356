package auth_test

import (
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/krwhynot/pantry-crm/internal/auth"
	"github.com/krwhynot/pantry-crm/internal/session"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
)

func TestAuthService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Auth Service Suite")
}

// MockRepository implements auth.RepositoryAPI for testing
type MockRepository struct {
	users      map[string]*mockCredentials
	lastLogins map[int64]time.Time
}

type mockCredentials struct {
	userID       int64
	passwordHash string
	isActive     bool
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		users:      make(map[string]*mockCredentials),
		lastLogins: make(map[int64]time.Time),
	}
}

func (m *MockRepository) AddUser(email, password string, userID int64, active bool) {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	m.users[email] = &mockCredentials{userID: userID, passwordHash: string(hash), isActive: active}
}

func (m *MockRepository) GetCredentialsByEmail(email string) (int64, string, bool, error) {
	creds, exists := m.users[email]
	if !exists {
		return 0, "", false, auth.ErrInvalidCredentials
	}
	return creds.userID, creds.passwordHash, creds.isActive, nil
}

func (m *MockRepository) GetUserByID(userID int64) (*auth.User, error) {
	for email, creds := range m.users {
		if creds.userID == userID {
			return &auth.User{ID: userID, Email: email, Name: "Test User"}, nil
		}
	}
	return nil, auth.ErrInvalidCredentials
}

func (m *MockRepository) UpdateLastLogin(userID int64, at time.Time) error {
	m.lastLogins[userID] = at
	return nil
}

// MockSessionManager hands out deterministic session IDs
type MockSessionManager struct {
	nextID      int
	invalidated []string
	refreshErr  error
	validateErr error
}

func (m *MockSessionManager) Create(userID int64, ipAddress, userAgent string) (string, error) {
	m.nextID++
	return fmt.Sprintf("sess-%d", m.nextID), nil
}

func (m *MockSessionManager) Validate(id string) error {
	if m.validateErr != nil {
		return m.validateErr
	}
	for _, dead := range m.invalidated {
		if dead == id {
			return session.ErrInvalidated
		}
	}
	return nil
}

func (m *MockSessionManager) Refresh(id, ipAddress string) (string, error) {
	if m.refreshErr != nil {
		return "", m.refreshErr
	}
	return id + "-rotated", nil
}

func (m *MockSessionManager) Invalidate(id string) error {
	m.invalidated = append(m.invalidated, id)
	return nil
}

func (m *MockSessionManager) InvalidateAll(userID int64) error {
	return nil
}

type MockPermissionSource struct {
	perms []string
	level int
}

func (m *MockPermissionSource) PermissionsForUser(userID int64) ([]string, error) {
	return m.perms, nil
}

func (m *MockPermissionSource) MaxLevelForUser(userID int64) (int, error) {
	return m.level, nil
}

var _ = Describe("Auth Service", func() {
	var (
		mockRepo *MockRepository
		sessions *MockSessionManager
		perms    *MockPermissionSource
		tokenGen *auth.JWTTokenGenerator
		service  *auth.Service
	)

	BeforeEach(func() {
		mockRepo = NewMockRepository()
		mockRepo.AddUser("rep@pantrycrm.dev", "correct-horse", 42, true)
		sessions = &MockSessionManager{}
		perms = &MockPermissionSource{perms: []string{"organizations:read"}, level: auth.LevelSalesRep}
		tokenGen = auth.NewJWTTokenGenerator("access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour)
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = auth.NewService(mockRepo, tokenGen, sessions, perms, bcrypt.MinCost, logger)
	})

	Describe("Login", func() {
		It("issues a session-bound token pair", func() {
			tokens, err := service.Login(auth.LoginDTO{Email: "rep@pantrycrm.dev", Password: "correct-horse"}, "10.0.0.1", "cli/1.0")
			Expect(err).NotTo(HaveOccurred())
			Expect(tokens.AccessToken).NotTo(BeEmpty())
			Expect(tokens.RefreshToken).NotTo(BeEmpty())
			Expect(tokens.ExpiresIn).To(Equal(int64((15 * time.Minute).Seconds())))

			claims, err := tokenGen.ValidateAccessToken(tokens.AccessToken)
			Expect(err).NotTo(HaveOccurred())
			Expect(claims.UserID).To(Equal("42"))
			Expect(claims.SessionID).NotTo(BeEmpty())

			Expect(mockRepo.lastLogins).To(HaveKey(int64(42)))
		})

		It("rejects a wrong password", func() {
			_, err := service.Login(auth.LoginDTO{Email: "rep@pantrycrm.dev", Password: "wrong"}, "10.0.0.1", "cli/1.0")
			Expect(err).To(MatchError(auth.ErrInvalidCredentials))
		})

		It("rejects an unknown email with the same error", func() {
			_, err := service.Login(auth.LoginDTO{Email: "ghost@pantrycrm.dev", Password: "correct-horse"}, "10.0.0.1", "cli/1.0")
			Expect(err).To(MatchError(auth.ErrInvalidCredentials))
		})

		It("rejects a deactivated user after password verification", func() {
			mockRepo.AddUser("gone@pantrycrm.dev", "correct-horse", 43, false)
			_, err := service.Login(auth.LoginDTO{Email: "gone@pantrycrm.dev", Password: "correct-horse"}, "10.0.0.1", "cli/1.0")
			Expect(err).To(MatchError(auth.ErrUserInactive))
		})
	})

	Describe("Refresh", func() {
		It("exchanges a refresh token for a new pair bound to the refreshed session", func() {
			tokens, err := service.Login(auth.LoginDTO{Email: "rep@pantrycrm.dev", Password: "correct-horse"}, "10.0.0.1", "cli/1.0")
			Expect(err).NotTo(HaveOccurred())

			refreshed, err := service.Refresh(tokens.RefreshToken, "10.0.0.1")
			Expect(err).NotTo(HaveOccurred())

			claims, err := tokenGen.ValidateAccessToken(refreshed.AccessToken)
			Expect(err).NotTo(HaveOccurred())
			Expect(claims.SessionID).To(HaveSuffix("-rotated"))
		})

		It("rejects an access token presented as a refresh token", func() {
			tokens, err := service.Login(auth.LoginDTO{Email: "rep@pantrycrm.dev", Password: "correct-horse"}, "10.0.0.1", "cli/1.0")
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Refresh(tokens.AccessToken, "10.0.0.1")
			Expect(err).To(MatchError(auth.ErrInvalidToken))
		})

		It("fails when the session cannot be refreshed", func() {
			tokens, err := service.Login(auth.LoginDTO{Email: "rep@pantrycrm.dev", Password: "correct-horse"}, "10.0.0.1", "cli/1.0")
			Expect(err).NotTo(HaveOccurred())

			sessions.refreshErr = session.ErrIPMismatch
			_, err = service.Refresh(tokens.RefreshToken, "192.168.1.50")
			Expect(err).To(MatchError(session.ErrIPMismatch))
		})
	})

	Describe("Logout", func() {
		It("invalidates the session behind the access token", func() {
			tokens, err := service.Login(auth.LoginDTO{Email: "rep@pantrycrm.dev", Password: "correct-horse"}, "10.0.0.1", "cli/1.0")
			Expect(err).NotTo(HaveOccurred())

			Expect(service.Logout(tokens.AccessToken)).To(Succeed())
			Expect(sessions.invalidated).To(HaveLen(1))

			_, err = service.ValidateAccessToken(tokens.AccessToken)
			Expect(err).To(MatchError(auth.ErrInvalidToken))
		})
	})

	Describe("ValidateAccessToken", func() {
		It("rejects a token signed with the wrong secret", func() {
			other := auth.NewJWTTokenGenerator("other-secret", "other-refresh", time.Minute, time.Hour)
			forged, err := other.GenerateAccessToken(42, "rep@pantrycrm.dev", "sess-x")
			Expect(err).NotTo(HaveOccurred())

			_, err = service.ValidateAccessToken(forged)
			Expect(err).To(MatchError(auth.ErrInvalidToken))
		})

		It("rejects an expired token", func() {
			shortLived := &auth.JWTTokenGenerator{
				AccessTokenSecret: []byte("access-secret"),
				AccessTokenTTL:    -time.Minute,
			}
			stale, err := shortLived.GenerateAccessToken(42, "rep@pantrycrm.dev", "sess-x")
			Expect(err).NotTo(HaveOccurred())

			_, err = service.ValidateAccessToken(stale)
			Expect(err).To(MatchError(auth.ErrTokenExpired))
		})
	})

	Describe("GetUserWithPermissions", func() {
		It("loads permissions and role level onto the principal", func() {
			user, err := service.GetUserWithPermissions(42)
			Expect(err).NotTo(HaveOccurred())
			Expect(user.Permissions).To(ConsistOf("organizations:read"))
			Expect(user.RoleLevel).To(Equal(auth.LevelSalesRep))
			Expect(user.Can("organizations", "read")).To(BeTrue())
			Expect(user.Can("organizations", "delete")).To(BeFalse())
		})
	})
})
