package session_test

import (
	"log/slog"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/krwhynot/pantry-crm/internal/session"
)

var _ = Describe("Session Manager", func() {
	var (
		mockRepo *MockRepository
		manager  *session.Manager
	)

	newManager := func(cfg session.Config) *session.Manager {
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		return session.NewManager(session.NewService(mockRepo, cfg, logger))
	}

	BeforeEach(func() {
		mockRepo = NewMockRepository()
		manager = newManager(session.Config{TTL: time.Hour, MaxPerUser: 2})
	})

	It("creates a session and hands back its id", func() {
		id, err := manager.Create(1, "10.0.0.1", "cli/1.0")
		Expect(err).NotTo(HaveOccurred())
		Expect(id).NotTo(BeEmpty())
		Expect(mockRepo.sessions).To(HaveKey(id))
	})

	It("validates a live session by id", func() {
		id, err := manager.Create(1, "10.0.0.1", "cli/1.0")
		Expect(err).NotTo(HaveOccurred())
		Expect(manager.Validate(id)).To(Succeed())
	})

	It("propagates validation failures", func() {
		id, err := manager.Create(1, "10.0.0.1", "cli/1.0")
		Expect(err).NotTo(HaveOccurred())
		Expect(manager.Invalidate(id)).To(Succeed())

		Expect(manager.Validate(id)).To(MatchError(session.ErrInvalidated))
	})

	It("returns the rotated id on refresh when rotation is enabled", func() {
		manager = newManager(session.Config{TTL: time.Hour, MaxPerUser: 2, RotateOnRefresh: true})

		oldID, err := manager.Create(1, "10.0.0.1", "cli/1.0")
		Expect(err).NotTo(HaveOccurred())

		newID, err := manager.Refresh(oldID, "10.0.0.1")
		Expect(err).NotTo(HaveOccurred())
		Expect(newID).NotTo(Equal(oldID))
		Expect(manager.Validate(newID)).To(Succeed())
		Expect(manager.Validate(oldID)).To(MatchError(session.ErrNotFound))
	})

	It("terminates every session for the user", func() {
		a, _ := manager.Create(1, "10.0.0.1", "cli/1.0")
		b, _ := manager.Create(1, "10.0.0.2", "cli/1.0")

		Expect(manager.InvalidateAll(1)).To(Succeed())

		Expect(mockRepo.sessions[a].InvalidatedAt).NotTo(BeNil())
		Expect(mockRepo.sessions[b].InvalidatedAt).NotTo(BeNil())
	})
})
