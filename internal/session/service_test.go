package session_test

import (
	"errors"
	"log/slog"
	"os"
	"sort"
	"testing"
	"time"

	"github.com/krwhynot/pantry-crm/internal/session"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestSessionService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Session Service Suite")
}

// MockRepository implements session.RepositoryAPI for testing
type MockRepository struct {
	sessions   map[string]*session.Session
	shouldFail bool
	failError  error
}

func NewMockRepository() *MockRepository {
	return &MockRepository{sessions: make(map[string]*session.Session)}
}

func (m *MockRepository) SetShouldFail(fail bool, err error) {
	m.shouldFail = fail
	m.failError = err
}

func (m *MockRepository) Create(s *session.Session) error {
	if m.shouldFail {
		return m.failError
	}
	copied := *s
	m.sessions[s.ID] = &copied
	return nil
}

func (m *MockRepository) GetByID(id string) (*session.Session, error) {
	if m.shouldFail {
		return nil, m.failError
	}
	s, exists := m.sessions[id]
	if !exists {
		return nil, session.ErrNotFound
	}
	copied := *s
	return &copied, nil
}

func (m *MockRepository) ListByUser(userID int64) ([]*session.Session, error) {
	if m.shouldFail {
		return nil, m.failError
	}
	var result []*session.Session
	for _, s := range m.sessions {
		if s.UserID == userID {
			result = append(result, s)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].LastActiveAt.After(result[j].LastActiveAt)
	})
	return result, nil
}

func (m *MockRepository) CountActiveByUser(userID int64) (int64, error) {
	if m.shouldFail {
		return 0, m.failError
	}
	var count int64
	now := time.Now()
	for _, s := range m.sessions {
		if s.UserID == userID && s.Valid(now) {
			count++
		}
	}
	return count, nil
}

func (m *MockRepository) Touch(id string, at time.Time) error {
	if m.shouldFail {
		return m.failError
	}
	s, exists := m.sessions[id]
	if !exists {
		return session.ErrNotFound
	}
	s.LastActiveAt = at
	return nil
}

func (m *MockRepository) Rotate(oldID, newID string, expiresAt time.Time, at time.Time) error {
	if m.shouldFail {
		return m.failError
	}
	s, exists := m.sessions[oldID]
	if !exists {
		return session.ErrNotFound
	}
	delete(m.sessions, oldID)
	s.ID = newID
	s.LastActiveAt = at
	s.ExpiresAt = expiresAt
	m.sessions[newID] = s
	return nil
}

func (m *MockRepository) Invalidate(id string, at time.Time) error {
	if m.shouldFail {
		return m.failError
	}
	s, exists := m.sessions[id]
	if !exists {
		return session.ErrNotFound
	}
	s.InvalidatedAt = &at
	return nil
}

func (m *MockRepository) InvalidateAllForUser(userID int64, at time.Time) error {
	if m.shouldFail {
		return m.failError
	}
	for _, s := range m.sessions {
		if s.UserID == userID && s.InvalidatedAt == nil {
			t := at
			s.InvalidatedAt = &t
		}
	}
	return nil
}

func (m *MockRepository) OldestActiveForUser(userID int64) (*session.Session, error) {
	if m.shouldFail {
		return nil, m.failError
	}
	var oldest *session.Session
	now := time.Now()
	for _, s := range m.sessions {
		if s.UserID != userID || !s.Valid(now) {
			continue
		}
		if oldest == nil || s.LastActiveAt.Before(oldest.LastActiveAt) {
			oldest = s
		}
	}
	if oldest == nil {
		return nil, session.ErrNotFound
	}
	copied := *oldest
	return &copied, nil
}

func (m *MockRepository) DeleteExpiredBefore(cutoff time.Time) (int64, error) {
	if m.shouldFail {
		return 0, m.failError
	}
	var removed int64
	for id, s := range m.sessions {
		if s.ExpiresAt.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed, nil
}

var _ = Describe("Session Service", func() {
	var (
		mockRepo *MockRepository
		service  *session.Service
		logger   *slog.Logger
	)

	BeforeEach(func() {
		mockRepo = NewMockRepository()
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = session.NewService(mockRepo, session.Config{
			TTL:        time.Hour,
			MaxPerUser: 2,
		}, logger)
	})

	Describe("Create", func() {
		It("opens a session with the configured TTL", func() {
			sess, err := service.Create(1, "10.0.0.1", "cli/1.0")
			Expect(err).NotTo(HaveOccurred())
			Expect(sess.ID).NotTo(BeEmpty())
			Expect(sess.ExpiresAt).To(BeTemporally("~", time.Now().Add(time.Hour), time.Minute))
		})

		Context("when the user is at the session cap", func() {
			It("evicts the least recently active session", func() {
				first, err := service.Create(1, "10.0.0.1", "cli/1.0")
				Expect(err).NotTo(HaveOccurred())
				// Make the first session clearly the least recently active.
				mockRepo.sessions[first.ID].LastActiveAt = time.Now().Add(-time.Minute)

				_, err = service.Create(1, "10.0.0.2", "cli/1.0")
				Expect(err).NotTo(HaveOccurred())

				third, err := service.Create(1, "10.0.0.3", "cli/1.0")
				Expect(err).NotTo(HaveOccurred())
				Expect(third.ID).NotTo(BeEmpty())

				Expect(mockRepo.sessions[first.ID].InvalidatedAt).NotTo(BeNil())
				count, _ := mockRepo.CountActiveByUser(1)
				Expect(count).To(Equal(int64(2)))
			})
		})
	})

	Describe("Validate", func() {
		It("accepts a live session and bumps its activity", func() {
			sess, err := service.Create(1, "10.0.0.1", "cli/1.0")
			Expect(err).NotTo(HaveOccurred())

			earlier := time.Now().Add(-time.Minute)
			mockRepo.sessions[sess.ID].LastActiveAt = earlier

			validated, err := service.Validate(sess.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(validated.UserID).To(Equal(int64(1)))
			Expect(mockRepo.sessions[sess.ID].LastActiveAt).To(BeTemporally(">", earlier))
		})

		It("rejects an unknown session", func() {
			_, err := service.Validate("missing")
			Expect(err).To(MatchError(session.ErrNotFound))
		})

		It("rejects an expired session", func() {
			sess, err := service.Create(1, "10.0.0.1", "cli/1.0")
			Expect(err).NotTo(HaveOccurred())
			mockRepo.sessions[sess.ID].ExpiresAt = time.Now().Add(-time.Second)

			_, err = service.Validate(sess.ID)
			Expect(err).To(MatchError(session.ErrInvalidated))
		})

		It("rejects an invalidated session", func() {
			sess, err := service.Create(1, "10.0.0.1", "cli/1.0")
			Expect(err).NotTo(HaveOccurred())
			Expect(service.Invalidate(sess.ID)).To(Succeed())

			_, err = service.Validate(sess.ID)
			Expect(err).To(MatchError(session.ErrInvalidated))
		})
	})

	Describe("Refresh", func() {
		Context("with rotation enabled", func() {
			BeforeEach(func() {
				service = session.NewService(mockRepo, session.Config{
					TTL:             time.Hour,
					MaxPerUser:      2,
					RotateOnRefresh: true,
				}, logger)
			})

			It("issues a new session id and kills the old one", func() {
				sess, err := service.Create(1, "10.0.0.1", "cli/1.0")
				Expect(err).NotTo(HaveOccurred())
				oldID := sess.ID

				refreshed, err := service.Refresh(oldID, "10.0.0.1")
				Expect(err).NotTo(HaveOccurred())
				Expect(refreshed.ID).NotTo(Equal(oldID))

				_, err = service.Validate(oldID)
				Expect(err).To(MatchError(session.ErrNotFound))
			})
		})

		Context("with IP enforcement enabled", func() {
			BeforeEach(func() {
				service = session.NewService(mockRepo, session.Config{
					TTL:            time.Hour,
					MaxPerUser:     2,
					EnforceIPMatch: true,
				}, logger)
			})

			It("rejects a refresh from a different address", func() {
				sess, err := service.Create(1, "10.0.0.1", "cli/1.0")
				Expect(err).NotTo(HaveOccurred())

				_, err = service.Refresh(sess.ID, "192.168.1.50")
				Expect(err).To(MatchError(session.ErrIPMismatch))
			})

			It("accepts a refresh from the original address", func() {
				sess, err := service.Create(1, "10.0.0.1", "cli/1.0")
				Expect(err).NotTo(HaveOccurred())

				_, err = service.Refresh(sess.ID, "10.0.0.1")
				Expect(err).NotTo(HaveOccurred())
			})
		})

		It("extends the expiry without rotation by default", func() {
			sess, err := service.Create(1, "10.0.0.1", "cli/1.0")
			Expect(err).NotTo(HaveOccurred())
			mockRepo.sessions[sess.ID].ExpiresAt = time.Now().Add(time.Minute)

			refreshed, err := service.Refresh(sess.ID, "10.0.0.1")
			Expect(err).NotTo(HaveOccurred())
			Expect(refreshed.ID).To(Equal(sess.ID))
			Expect(refreshed.ExpiresAt).To(BeTemporally("~", time.Now().Add(time.Hour), time.Minute))
		})
	})

	Describe("InvalidateAll", func() {
		It("terminates every session the user has", func() {
			a, _ := service.Create(1, "10.0.0.1", "cli/1.0")
			b, _ := service.Create(1, "10.0.0.2", "cli/1.0")
			other, _ := service.Create(2, "10.0.0.3", "cli/1.0")

			Expect(service.InvalidateAll(1)).To(Succeed())

			Expect(mockRepo.sessions[a.ID].InvalidatedAt).NotTo(BeNil())
			Expect(mockRepo.sessions[b.ID].InvalidatedAt).NotTo(BeNil())
			Expect(mockRepo.sessions[other.ID].InvalidatedAt).To(BeNil())
		})
	})

	Describe("GetForUser", func() {
		It("hides sessions owned by other users", func() {
			sess, err := service.Create(2, "10.0.0.1", "cli/1.0")
			Expect(err).NotTo(HaveOccurred())

			_, err = service.GetForUser(1, sess.ID)
			Expect(err).To(MatchError(session.ErrNotFound))
		})
	})

	Describe("SweepExpired", func() {
		It("removes only sessions expired before the cutoff", func() {
			live, _ := service.Create(1, "10.0.0.1", "cli/1.0")
			dead, _ := service.Create(1, "10.0.0.2", "cli/1.0")
			mockRepo.sessions[dead.ID].ExpiresAt = time.Now().Add(-time.Hour)

			removed, err := service.SweepExpired(time.Now())
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(Equal(int64(1)))
			Expect(mockRepo.sessions).To(HaveKey(live.ID))
			Expect(mockRepo.sessions).NotTo(HaveKey(dead.ID))
		})

		It("surfaces store failures", func() {
			mockRepo.SetShouldFail(true, errors.New("database error"))
			_, err := service.SweepExpired(time.Now())
			Expect(err).To(HaveOccurred())
		})
	})
})
