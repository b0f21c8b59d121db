// README: Bike station handlers for checkout, check-in and fines.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"farecard/internal/infra"
	"farecard/internal/modules/bike"
	"farecard/internal/types"
)

type BikeHandler struct {
	bikes *bike.Service
}

func NewBikeHandler(svc *bike.Service) *BikeHandler {
	return &BikeHandler{bikes: svc}
}

type bikeReq struct {
	CardID string `json:"card_id"`
}

func bindCardID(c *gin.Context) (types.ID, bool) {
	var req bikeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return "", false
	}
	if !isValidID(req.CardID) {
		writeError(c, http.StatusBadRequest, "invalid card id")
		return "", false
	}
	return types.ID(req.CardID), true
}

func (h *BikeHandler) CheckOut(c *gin.Context) {
	id, ok := bindCardID(c)
	if !ok {
		return
	}
	receipt, err := h.bikes.CheckOut(c.Request.Context(), id)
	infra.BikeCheckouts.WithLabelValues(outcome(err)).Inc()
	if err != nil {
		writeFareError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, receipt)
}

func (h *BikeHandler) CheckIn(c *gin.Context) {
	id, ok := bindCardID(c)
	if !ok {
		return
	}
	fines, err := h.bikes.CheckIn(c.Request.Context(), id)
	if err != nil {
		writeFareError(c, err)
		return
	}
	if fines > 0 {
		infra.BikeFines.Add(float64(fines))
	}
	writeJSON(c, http.StatusOK, gin.H{"card_id": id, "fines": fines})
}

func (h *BikeHandler) Fines(c *gin.Context) {
	id := c.Param("card_id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid card id")
		return
	}
	report, err := h.bikes.Fines(c.Request.Context(), types.ID(id))
	if err != nil {
		writeFareError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, report)
}

func (h *BikeHandler) LastReceipt(c *gin.Context) {
	receipt, err := h.bikes.LastReceipt()
	if err != nil {
		writeFareError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, receipt)
}
