package contact

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/krwhynot/pantry-crm/internal/auth"
	"github.com/krwhynot/pantry-crm/internal/rbac"
	"github.com/krwhynot/pantry-crm/internal/transport"
	"github.com/krwhynot/pantry-crm/pkg/logger"
)

type ServiceAPI interface {
	CreateContact(dto CreateContactDTO, actor int64) (*Contact, error)
	GetContact(id int64) (*Contact, error)
	ListContacts(filter ListFilter) ([]*Contact, error)
	UpdateContact(id int64, dto UpdateContactDTO, actor int64) (*Contact, error)
	SetPrimary(id int64, actor int64) (*Contact, error)
	DeleteContact(id int64, actor int64) error
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

func (h *Handler) contactID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid contact ID")
		return 0, false
	}
	return id, true
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto CreateContactDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := h.Service.CreateContact(dto, user.ID)
	if err != nil {
		h.Logger.Error("Create: service error", "error", err, "user_id", user.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, c)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.contactID(w, r)
	if !ok {
		return
	}

	c, err := h.Service.GetContact(id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{
		Search: r.URL.Query().Get("search"),
		Limit:  20,
	}

	if orgStr := r.URL.Query().Get("organization_id"); orgStr != "" {
		if orgID, err := strconv.ParseInt(orgStr, 10, 64); err == nil {
			filter.OrganizationID = orgID
		}
	}
	if primaryStr := r.URL.Query().Get("primary"); primaryStr != "" {
		if primary, err := strconv.ParseBool(primaryStr); err == nil {
			filter.PrimaryOnly = primary
		}
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			filter.Limit = l
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			filter.Offset = o
		}
	}

	contacts, err := h.Service.ListContacts(filter)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"contacts": contacts,
		"limit":    filter.Limit,
		"offset":   filter.Offset,
	})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, ok := h.contactID(w, r)
	if !ok {
		return
	}

	existing, err := h.Service.GetContact(id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if !rbac.CanAccessOwned(user, existing.CreatedBy) {
		h.WriteError(w, http.StatusForbidden, "cannot modify a contact owned by another user")
		return
	}

	var dto UpdateContactDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := h.Service.UpdateContact(id, dto, user.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) SetPrimary(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, ok := h.contactID(w, r)
	if !ok {
		return
	}

	c, err := h.Service.SetPrimary(id, user.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, ok := h.contactID(w, r)
	if !ok {
		return
	}

	existing, err := h.Service.GetContact(id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if !rbac.CanAccessOwned(user, existing.CreatedBy) {
		h.WriteError(w, http.StatusForbidden, "cannot delete a contact owned by another user")
		return
	}

	if err := h.Service.DeleteContact(id, user.ID); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
