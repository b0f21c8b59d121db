// README: Entry point; loads config, wires card/route/bike services and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"

	"farecard/internal/clock"
	"farecard/internal/config"
	httptransport "farecard/internal/http"
	"farecard/internal/infra"
	"farecard/internal/modules/bike"
	"farecard/internal/modules/card"
	"farecard/internal/modules/route"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger := infra.NewLogger(cfg.Log.Level, cfg.Log.Format)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load already validated these.
	loc, _ := cfg.Location()
	fares, _ := cfg.Pricing.Fares()
	rates, _ := cfg.Pricing.BikeRates()
	clk := clock.NewSystem(loc)

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		logger.Fatal("db init", zap.Error(err))
	}
	defer dbPool.Close()

	redisClient, err := infra.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.DB)
	if err != nil {
		logger.Fatal("redis init", zap.Error(err))
	}
	defer redisClient.Close()

	cardSvc := card.NewService(card.NewStore(dbPool), clk, logger.Named("card"))
	routeSvc := route.NewService(cardSvc, route.NewRegistry(fares, clk), logger.Named("route"))
	station := bike.NewStation(bike.NewRedisStore(redisClient), rates, clk)
	bikeSvc := bike.NewService(cardSvc, station, logger.Named("bike"))

	router := httptransport.NewRouter(httptransport.RouterDeps{
		Cards:  cardSvc,
		Routes: routeSvc,
		Bikes:  bikeSvc,
		Log:    logger.Named("http"),
	})
	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: router}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("fare api listening",
		zap.String("addr", cfg.HTTP.Addr),
		zap.String("timezone", loc.String()),
		zap.String("urban_base", fares.Urban.String()),
		zap.String("interurban_base", fares.Interurban.String()),
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("http server", zap.Error(err))
	}
}
