package access

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/frahmantamala/site-access/internal"
	"github.com/frahmantamala/site-access/internal/transport"
	"github.com/go-chi/chi"
)

type VerifierAPI interface {
	Verify(ctx context.Context, rfidTag, fingerprint string) (*Result, error)
	CheckRfid(ctx context.Context, rfidTag string) (*Probe, error)
}

type Handler struct {
	*transport.BaseHandler
	Verifier VerifierAPI
}

func NewHandler(baseHandler *transport.BaseHandler, verifier VerifierAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Verifier:    verifier,
	}
}

// Verify answers 200 for both grants and denials. Storage failures become a
// 503 carrying a storage_error denial so readers can show a message.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Warn("Verify: invalid request body", "error", err)
		h.HandleServiceError(w, internal.NewValidationError("invalid request body", internal.ErrCodeInvalidRequestBody))
		return
	}

	result, err := h.Verifier.Verify(r.Context(), req.RfidTag, req.Fingerprint)
	if errors.Is(err, context.Canceled) {
		// Reader hung up before a decision; nobody is left to answer.
		return
	}
	if err != nil {
		if appErr, ok := internal.IsAppError(err); ok && appErr.Type == internal.ErrorTypeValidation {
			h.HandleServiceError(w, appErr)
			return
		}
		h.Logger.Error("Verify: verification failed", "error", err)
		h.WriteJSON(w, http.StatusServiceUnavailable, VerifyResponse{
			Reason:  ReasonStorageError,
			Message: ReasonStorageError.Message(),
		})
		return
	}

	h.WriteJSON(w, http.StatusOK, result.ToResponse())
}

func (h *Handler) CheckRfid(w http.ResponseWriter, r *http.Request) {
	probe, err := h.Verifier.CheckRfid(r.Context(), chi.URLParam(r, "tag"))
	if errors.Is(err, context.Canceled) {
		return
	}
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	status := http.StatusOK
	switch probe.Reason {
	case ReasonRfidNotFound:
		status = http.StatusNotFound
	case ReasonNoFingerprint:
		status = http.StatusBadRequest
	case ReasonTimeout:
		status = http.StatusServiceUnavailable
	}
	h.WriteJSON(w, status, probe.ToResponse())
}
