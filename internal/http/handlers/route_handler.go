// README: Route handlers for boardings and the last ticket of a line.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"farecard/internal/infra"
	"farecard/internal/modules/route"
	"farecard/internal/types"
)

type RouteHandler struct {
	routes *route.Service
}

func NewRouteHandler(svc *route.Service) *RouteHandler {
	return &RouteHandler{routes: svc}
}

type boardReq struct {
	CardID string `json:"card_id"`
	Kind   string `json:"kind"`
}

func (h *RouteHandler) Board(c *gin.Context) {
	routeID := c.Param("id")
	if !isValidID(routeID) {
		writeError(c, http.StatusBadRequest, "invalid route id")
		return
	}
	var req boardReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if !isValidID(req.CardID) {
		writeError(c, http.StatusBadRequest, "invalid card id")
		return
	}

	ticket, err := h.routes.Board(c.Request.Context(), route.BoardCommand{
		RouteID: routeID,
		Kind:    route.Kind(req.Kind),
		CardID:  types.ID(req.CardID),
	})
	if err != nil {
		infra.Boardings.WithLabelValues(kindLabel(route.Kind(req.Kind)), outcome(err)).Inc()
		writeFareError(c, err)
		return
	}

	result := "charged"
	if ticket.Transfer {
		result = "transfer"
	}
	infra.Boardings.WithLabelValues(string(ticket.Kind), result).Inc()
	infra.FareRevenue.WithLabelValues(ticket.PolicyLabel).Add(ticket.AmountCharged.InexactFloat64())
	writeJSON(c, http.StatusCreated, ticket)
}

// kindLabel keeps the boardings metric to a fixed set of kind labels.
func kindLabel(k route.Kind) string {
	switch {
	case k == "":
		return "unspecified"
	case k.Valid():
		return string(k)
	default:
		return "invalid"
	}
}

func (h *RouteHandler) LastTicket(c *gin.Context) {
	routeID := c.Param("id")
	if !isValidID(routeID) {
		writeError(c, http.StatusBadRequest, "invalid route id")
		return
	}
	ticket, err := h.routes.LastTicket(routeID)
	if err != nil {
		writeFareError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, ticket)
}
