package errorlog

import (
	"context"
	"net/http"
	"strconv"

	"github.com/frahmantamala/site-access/internal/transport"
)

type ServiceAPI interface {
	List(ctx context.Context, limit int) ([]*Entry, error)
	Clear(ctx context.Context) (int64, error)
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

func (h *Handler) ListErrorLogs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := h.Service.List(r.Context(), limit)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	if entries == nil {
		entries = []*Entry{}
	}
	h.WriteJSON(w, http.StatusOK, ListResponse{Entries: entries})
}

func (h *Handler) ClearErrorLogs(w http.ResponseWriter, r *http.Request) {
	n, err := h.Service.Clear(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}
