package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"vouchermart/coupon-market/internal/config"
	"vouchermart/coupon-market/internal/handler"
	"vouchermart/coupon-market/internal/logger"
	"vouchermart/coupon-market/internal/repository"
	"vouchermart/coupon-market/internal/service"
)

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Initialize(cfg.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// 2. Setup Database
	ctx := context.Background()
	dbPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		logger.Log.Fatal("Failed to ping database", zap.Error(err))
	}
	logger.Log.Info("Connected to database")

	store := repository.NewStore(dbPool)
	if err := store.Migrate(ctx); err != nil {
		logger.Log.Fatal("Failed to run migrations", zap.Error(err))
	}

	// 3. Setup Logic
	walletSvc := service.NewWalletService(store)
	purchaseSvc := service.NewPurchaseService(store)
	topupSvc := service.NewTopupService(store, walletSvc)
	inventorySvc := service.NewInventoryService(store)
	catalogSvc := service.NewCatalogService(store)

	h := handler.NewHandler(
		handler.NewCatalogHandler(catalogSvc),
		handler.NewPurchaseHandler(purchaseSvc),
		handler.NewWalletHandler(walletSvc),
		handler.NewTopupHandler(topupSvc),
		handler.NewAdminHandler(catalogSvc, inventorySvc, walletSvc, topupSvc),
	)

	// 4. Setup Server
	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: h,
	}

	// 5. Run Server with Graceful Shutdown
	go func() {
		logger.Log.Info("Starting server", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 2)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	// Create a deadline to wait for.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Log.Info("Server exiting")
}
