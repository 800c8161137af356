package opportunity

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
	CreateOpportunity(dto CreateOpportunityDTO, actor int64) (*Opportunity, error)
	GetOpportunity(id int64) (*Opportunity, error)
	ListOpportunities(filter ListFilter) ([]*Opportunity, error)
	UpdateOpportunity(id int64, dto UpdateOpportunityDTO, actor int64) (*Opportunity, error)
	ChangeStage(id int64, dto ChangeStageDTO, actor int64) (*Opportunity, error)
	GetStageHistory(id int64) ([]*StageHistory, error)
	DeleteOpportunity(id int64, actor int64) error
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

func (h *Handler) opportunityID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid opportunity ID")
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

	var dto CreateOpportunityDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	o, err := h.Service.CreateOpportunity(dto, user.ID)
	if err != nil {
		h.Logger.Error("Create: service error", "error", err, "user_id", user.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, o)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.opportunityID(w, r)
	if !ok {
		return
	}

	o, err := h.Service.GetOpportunity(id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, o)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{
		Stage: r.URL.Query().Get("stage"),
		Limit: 20,
	}

	if orgStr := r.URL.Query().Get("organization_id"); orgStr != "" {
		if orgID, err := strconv.ParseInt(orgStr, 10, 64); err == nil {
			filter.OrganizationID = orgID
		}
	}
	if ownerStr := r.URL.Query().Get("owner_id"); ownerStr != "" {
		if ownerID, err := strconv.ParseInt(ownerStr, 10, 64); err == nil {
			filter.OwnerID = ownerID
		}
	}
	if openStr := r.URL.Query().Get("open"); openStr != "" {
		if open, err := strconv.ParseBool(openStr); err == nil {
			filter.OpenOnly = open
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

	opportunities, err := h.Service.ListOpportunities(filter)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"opportunities": opportunities,
		"limit":         filter.Limit,
		"offset":        filter.Offset,
	})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, ok := h.opportunityID(w, r)
	if !ok {
		return
	}

	existing, err := h.Service.GetOpportunity(id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if !rbac.CanAccessOwned(user, existing.CreatedBy) {
		h.WriteError(w, http.StatusForbidden, "cannot modify an opportunity owned by another user")
		return
	}

	var dto UpdateOpportunityDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	o, err := h.Service.UpdateOpportunity(id, dto, user.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, o)
}

func (h *Handler) ChangeStage(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, ok := h.opportunityID(w, r)
	if !ok {
		return
	}

	existing, err := h.Service.GetOpportunity(id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if !rbac.CanAccessOwned(user, existing.CreatedBy) {
		h.WriteError(w, http.StatusForbidden, "cannot modify an opportunity owned by another user")
		return
	}

	var dto ChangeStageDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	o, err := h.Service.ChangeStage(id, dto, user.ID)
	if err != nil {
		h.Logger.Error("ChangeStage: service error", "error", err, "opportunity_id", id)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, o)
}

func (h *Handler) StageHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.opportunityID(w, r)
	if !ok {
		return
	}

	history, err := h.Service.GetStageHistory(id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"history": history})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, ok := h.opportunityID(w, r)
	if !ok {
		return
	}

	existing, err := h.Service.GetOpportunity(id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if !rbac.CanAccessOwned(user, existing.CreatedBy) {
		h.WriteError(w, http.StatusForbidden, "cannot delete an opportunity owned by another user")
		return
	}

	if err := h.Service.DeleteOpportunity(id, user.ID); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
