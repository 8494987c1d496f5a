package accesslog

import (
	"context"
	"net/http"
	"strconv"

	"github.com/frahmantamala/site-access/internal"
	"github.com/frahmantamala/site-access/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	History(ctx context.Context, employeeID int64, limit int) (*HistoryResponse, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

func (h *Handler) GetEmployeeAccessLogs(w http.ResponseWriter, r *http.Request) {
	employeeID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || employeeID <= 0 {
		h.HandleServiceError(w, internal.NewValidationError("invalid employee ID", internal.ErrCodeInvalidEmployeeID))
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	history, err := h.Service.History(r.Context(), employeeID, limit)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, history)
}
