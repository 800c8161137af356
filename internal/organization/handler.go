package organization

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/krwhynot/pantry-crm/internal/auth"
	"github.com/krwhynot/pantry-crm/internal/transport"
	"github.com/krwhynot/pantry-crm/pkg/logger"
)

type ServiceAPI interface {
	CreateOrganization(dto CreateOrganizationDTO, actor int64) (*Organization, error)
	GetOrganization(id int64) (*OrganizationResponse, error)
	ListOrganizations(filter ListFilter) ([]*Organization, error)
	UpdateOrganization(id int64, dto UpdateOrganizationDTO, actor int64) (*Organization, error)
	SetParent(id int64, dto SetParentDTO, actor int64) (*Organization, error)
	GetHierarchy(id int64) ([]*Summary, error)
	DeleteOrganization(id int64, actor int64) error
	FindDuplicates(name string, excludeID int64) ([]*Organization, error)
	Merge(targetID int64, dto MergeDTO, actor int64) (*Organization, error)
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

func (h *Handler) orgID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		h.Logger.Error("invalid organization ID", "id", idStr)
		h.WriteError(w, http.StatusBadRequest, "invalid organization ID")
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

	var dto CreateOrganizationDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	org, err := h.Service.CreateOrganization(dto, user.ID)
	if err != nil {
		h.Logger.Error("Create: service error", "error", err, "user_id", user.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, org)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orgID(w, r)
	if !ok {
		return
	}

	resp, err := h.Service.GetOrganization(id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{
		Type:     r.URL.Query().Get("type"),
		Priority: r.URL.Query().Get("priority"),
		Segment:  r.URL.Query().Get("segment"),
		Search:   r.URL.Query().Get("search"),
		Limit:    20,
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

	orgs, err := h.Service.ListOrganizations(filter)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"organizations": orgs,
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

	id, ok := h.orgID(w, r)
	if !ok {
		return
	}

	var dto UpdateOrganizationDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	org, err := h.Service.UpdateOrganization(id, dto, user.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, org)
}

func (h *Handler) SetParent(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, ok := h.orgID(w, r)
	if !ok {
		return
	}

	var dto SetParentDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	org, err := h.Service.SetParent(id, dto, user.ID)
	if err != nil {
		h.Logger.Error("SetParent: service error", "error", err, "organization_id", id)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, org)
}

func (h *Handler) Hierarchy(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orgID(w, r)
	if !ok {
		return
	}

	ancestors, err := h.Service.GetHierarchy(id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"ancestors": ancestors})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, ok := h.orgID(w, r)
	if !ok {
		return
	}

	if err := h.Service.DeleteOrganization(id, user.ID); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Duplicates(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		h.WriteError(w, http.StatusBadRequest, "name query parameter is required")
		return
	}

	var excludeID int64
	if excludeStr := r.URL.Query().Get("exclude_id"); excludeStr != "" {
		excludeID, _ = strconv.ParseInt(excludeStr, 10, 64)
	}

	dupes, err := h.Service.FindDuplicates(name, excludeID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"duplicates": dupes})
}

func (h *Handler) Merge(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, ok := h.orgID(w, r)
	if !ok {
		return
	}

	var dto MergeDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	org, err := h.Service.Merge(id, dto, user.ID)
	if err != nil {
		h.Logger.Error("Merge: service error", "error", err, "target_id", id, "source_id", dto.SourceID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, org)
}
