package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vladislavdragonenkov/audiophile/internal/cart"
	"github.com/vladislavdragonenkov/audiophile/internal/domain"
)

// Коды ошибок API.
const (
	codeInvalidJSON            = "invalid_json"
	codeValidationFailed       = "validation_failed"
	codeEmptyCart              = "empty_cart"
	codeOrderPersistenceFailed = "order_persistence_failed"
	codeNotFound               = "not_found"
	codeSessionRequired        = "session_required"
	codeInternal               = "internal_error"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: msg,
	})
}

// writeDomainError переводит доменную ошибку в HTTP-ответ.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr *domain.ValidationError
		perr *domain.OrderPersistenceError
	)

	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:   codeValidationFailed,
			Message: verr.Error(),
			Fields:  verr.Fields,
		})
	case errors.Is(err, domain.ErrEmptyCart):
		writeError(w, http.StatusConflict, codeEmptyCart, err.Error())
	case errors.As(err, &perr):
		h.logger.WithError(err).WithField("order_id", perr.OrderID).Error("order persistence failed")
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{
			Error:     codeOrderPersistenceFailed,
			Message:   "order could not be saved, please try again",
			Retryable: true,
		})
	case errors.Is(err, domain.ErrOrderNotFound), errors.Is(err, domain.ErrProductNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, err.Error())
	case errors.Is(err, cart.ErrSessionRequired):
		writeError(w, http.StatusBadRequest, codeSessionRequired, err.Error())
	default:
		h.logger.WithError(err).WithField("path", r.URL.Path).Error("request failed")
		writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
	}
}
