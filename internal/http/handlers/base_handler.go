// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"farecard/internal/modules/bike"
	"farecard/internal/modules/card"
	"farecard/internal/modules/route"
)

type errorResponse struct {
	Error string `json:"error"`
}

// isValidID accepts uuid-like ids and line names: letters, digits, '-', '_'
// and spaces, at most 64 bytes.
func isValidID(v string) bool {
	if v == "" || len(v) > 64 {
		return false
	}
	for _, c := range v {
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '-' || c == '_' || c == ' ' {
			continue
		}
		return false
	}
	return true
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func writeFareError(c *gin.Context, err error) {
	_ = c.Error(err)
	switch {
	case errors.Is(err, card.ErrBadRequest), errors.Is(err, card.ErrInvalidAmount),
		errors.Is(err, route.ErrBadRequest), errors.Is(err, route.ErrUnknownKind):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, card.ErrNotFound), errors.Is(err, route.ErrNoTicket), errors.Is(err, bike.ErrNoReceipt):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, card.ErrInsufficientFunds):
		writeError(c, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, card.ErrCooldown), errors.Is(err, route.ErrKindMismatch):
		writeError(c, http.StatusConflict, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

// outcome labels a rejected operation for metrics.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, card.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, card.ErrCooldown):
		return "cooldown"
	case errors.Is(err, card.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, card.ErrNotFound):
		return "unknown_card"
	default:
		return "error"
	}
}
