package interaction

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"

	"github.com/krwhynot/pantry-crm/internal/auth"
	"github.com/krwhynot/pantry-crm/internal/rbac"
	"github.com/krwhynot/pantry-crm/internal/transport"
	"github.com/krwhynot/pantry-crm/pkg/logger"
)

type ServiceAPI interface {
	CreateInteraction(dto CreateInteractionDTO, actor int64) (*Interaction, error)
	GetInteraction(id int64) (*InteractionDetail, error)
	ListInteractions(filter ListFilter) ([]*Interaction, error)
	UpdateInteraction(id int64, dto UpdateInteractionDTO, actor int64) (*Interaction, error)
	Complete(id int64, dto CompleteInteractionDTO, actor int64) (*Interaction, error)
	Cancel(id int64, dto CancelInteractionDTO, actor int64) (*Interaction, error)
	DeleteInteraction(id int64, actor int64) error
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

func (h *Handler) interactionID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid interaction ID")
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

	var dto CreateInteractionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	i, err := h.Service.CreateInteraction(dto, user.ID)
	if err != nil {
		h.Logger.Error("Create: service error", "error", err, "user_id", user.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, i)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.interactionID(w, r)
	if !ok {
		return
	}

	detail, err := h.Service.GetInteraction(id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, detail)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{
		Type:   r.URL.Query().Get("type"),
		Status: r.URL.Query().Get("status"),
		Limit:  20,
	}

	parseID := func(name string) int64 {
		if s := r.URL.Query().Get(name); s != "" {
			if id, err := strconv.ParseInt(s, 10, 64); err == nil {
				return id
			}
		}
		return 0
	}
	filter.OrganizationID = parseID("organization_id")
	filter.ContactID = parseID("contact_id")
	filter.OpportunityID = parseID("opportunity_id")
	filter.OwnerID = parseID("owner_id")

	if fromStr := r.URL.Query().Get("from"); fromStr != "" {
		if from, err := time.Parse(time.RFC3339, fromStr); err == nil {
			filter.From = &from
		}
	}
	if toStr := r.URL.Query().Get("to"); toStr != "" {
		if to, err := time.Parse(time.RFC3339, toStr); err == nil {
			filter.To = &to
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

	interactions, err := h.Service.ListInteractions(filter)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"interactions": interactions,
		"limit":        filter.Limit,
		"offset":       filter.Offset,
	})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, ok := h.interactionID(w, r)
	if !ok {
		return
	}

	detail, err := h.Service.GetInteraction(id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if !rbac.CanAccessOwned(user, detail.CreatedBy) {
		h.WriteError(w, http.StatusForbidden, "cannot modify an interaction owned by another user")
		return
	}

	var dto UpdateInteractionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	i, err := h.Service.UpdateInteraction(id, dto, user.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, i)
}

func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, ok := h.interactionID(w, r)
	if !ok {
		return
	}

	var dto CompleteInteractionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	i, err := h.Service.Complete(id, dto, user.ID)
	if err != nil {
		h.Logger.Error("Complete: service error", "error", err, "interaction_id", id)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, i)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, ok := h.interactionID(w, r)
	if !ok {
		return
	}

	var dto CancelInteractionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	i, err := h.Service.Cancel(id, dto, user.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, i)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, ok := h.interactionID(w, r)
	if !ok {
		return
	}

	detail, err := h.Service.GetInteraction(id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if !rbac.CanAccessOwned(user, detail.CreatedBy) {
		h.WriteError(w, http.StatusForbidden, "cannot delete an interaction owned by another user")
		return
	}

	if err := h.Service.DeleteInteraction(id, user.ID); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
