// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"farecard/internal/http/handlers"
	"farecard/internal/http/middleware"
	"farecard/internal/modules/bike"
	"farecard/internal/modules/card"
	"farecard/internal/modules/route"
)

type RouterDeps struct {
	Cards  *card.Service
	Routes *route.Service
	Bikes  *bike.Service
	Log    *zap.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.Use(middleware.Logging(log), middleware.Recovery(log))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")

	cardHandler := handlers.NewCardHandler(deps.Cards)
	api.GET("/cards/:id", cardHandler.Get)
	api.POST("/cards/:id/topups", cardHandler.TopUp)

	routeHandler := handlers.NewRouteHandler(deps.Routes)
	api.POST("/routes/:id/boardings", routeHandler.Board)
	api.GET("/routes/:id/last-ticket", routeHandler.LastTicket)

	bikeHandler := handlers.NewBikeHandler(deps.Bikes)
	api.POST("/bike/checkouts", bikeHandler.CheckOut)
	api.POST("/bike/checkins", bikeHandler.CheckIn)
	api.GET("/bike/fines/:card_id", bikeHandler.Fines)
	api.GET("/bike/last-receipt", bikeHandler.LastReceipt)

	return r
}
