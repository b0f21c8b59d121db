// README: Card handlers for balance lookup and top-ups.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"farecard/internal/infra"
	"farecard/internal/modules/card"
	"farecard/internal/types"
)

type CardHandler struct {
	cards *card.Service
}

func NewCardHandler(svc *card.Service) *CardHandler {
	return &CardHandler{cards: svc}
}

type topUpReq struct {
	Amount decimal.Decimal `json:"amount"`
}

type cardResp struct {
	card.Snapshot
	PolicyLabel string `json:"policy_label"`
	Currency    string `json:"currency"`
}

func newCardResp(s card.Snapshot) cardResp {
	return cardResp{Snapshot: s, PolicyLabel: s.Policy.Label(), Currency: types.Currency}
}

func (h *CardHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid card id")
		return
	}
	snap, err := h.cards.Get(c.Request.Context(), types.ID(id))
	if err != nil {
		writeFareError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, newCardResp(snap))
}

func (h *CardHandler) TopUp(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid card id")
		return
	}
	var req topUpReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	snap, err := h.cards.TopUp(c.Request.Context(), card.TopUpCommand{CardID: types.ID(id), Amount: req.Amount})
	infra.TopUps.WithLabelValues(outcome(err)).Inc()
	if err != nil {
		writeFareError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, newCardResp(snap))
}
