package session

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/krwhynot/pantry-crm/internal/auth"
	"github.com/krwhynot/pantry-crm/internal/transport"
	"github.com/krwhynot/pantry-crm/pkg/logger"
)

type ServiceAPI interface {
	ListForUser(userID int64) ([]*Session, error)
	Invalidate(id string) error
	InvalidateAll(userID int64) error
	GetForUser(userID int64, sessionID string) (*Session, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

// List returns the caller's own active sessions.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	sessions, err := h.Service.ListForUser(user.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions})
}

// Revoke terminates one of the caller's sessions. Users can only revoke
// sessions that belong to them.
func (h *Handler) Revoke(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	sessionID := chi.URLParam(r, "id")
	if sessionID == "" {
		h.WriteError(w, http.StatusBadRequest, "session ID is required")
		return
	}

	if _, err := h.Service.GetForUser(user.ID, sessionID); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	if err := h.Service.Invalidate(sessionID); err != nil {
		h.Logger.Error("Revoke: failed", "error", err, "session_id", sessionID, "user_id", user.ID)
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RevokeAll terminates every session the caller has, including the current one.
func (h *Handler) RevokeAll(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.Service.InvalidateAll(user.ID); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"revoked_at": time.Now().UTC(),
	})
}
