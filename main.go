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

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/papeleria-1x1/checkout-api/initializers"
	"github.com/papeleria-1x1/checkout-api/jobs"
	"github.com/papeleria-1x1/checkout-api/routes"
)

func init() {
	initializers.LoadEnv()
}

func main() {
	cfg, err := initializers.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := initializers.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sc := initializers.NewServiceContext(ctx, cfg, logger)
	defer sc.Close()

	scheduler := jobs.NewScheduler(logger.Named("jobs"))
	jobs.RegisterCleanup(scheduler, sc.Orders, cfg.CleanupInitialDelay, cfg.CleanupInterval)
	scheduler.Start(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           routes.NewServer(sc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening",
			zap.String("port", cfg.Port),
			zap.Bool("cardPayments", sc.Payments.Enabled()),
			zap.Bool("shippingQuotes", sc.Shipping.Enabled()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
