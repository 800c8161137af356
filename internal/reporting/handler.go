package reporting

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/krwhynot/pantry-crm/internal/transport"
	"github.com/krwhynot/pantry-crm/pkg/logger"
)

type ServiceAPI interface {
	PipelineSummary(ctx context.Context) ([]*StageSummary, error)
	ActivityReport(ctx context.Context, filter ActivityFilter) ([]*ActivityCount, error)
	TopOrganizations(ctx context.Context, limit int) ([]*OrganizationValue, error)
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

func (h *Handler) Pipeline(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Service.PipelineSummary(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, rows)
}

func (h *Handler) Activity(w http.ResponseWriter, r *http.Request) {
	var filter ActivityFilter

	if fromStr := r.URL.Query().Get("from"); fromStr != "" {
		t, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			h.WriteError(w, http.StatusBadRequest, "invalid from timestamp")
			return
		}
		filter.From = t
	}
	if toStr := r.URL.Query().Get("to"); toStr != "" {
		t, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			h.WriteError(w, http.StatusBadRequest, "invalid to timestamp")
			return
		}
		filter.To = t
	}
	if userStr := r.URL.Query().Get("user_id"); userStr != "" {
		if id, err := strconv.ParseInt(userStr, 10, 64); err == nil {
			filter.UserID = id
		}
	}

	rows, err := h.Service.ActivityReport(r.Context(), filter)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, rows)
}

func (h *Handler) TopOrganizations(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 50 {
			limit = l
		}
	}

	rows, err := h.Service.TopOrganizations(r.Context(), limit)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, rows)
}
