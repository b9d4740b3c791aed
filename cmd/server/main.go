package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chemshop-be/internal/abandoned"
	"chemshop-be/internal/checkout"
	"chemshop-be/internal/config"
	"chemshop-be/internal/customer"
	"chemshop-be/internal/db"
	"chemshop-be/internal/logger"
	"chemshop-be/internal/order"
	"chemshop-be/internal/payment"
	"chemshop-be/internal/payment/webhook"
	"chemshop-be/internal/product"
	"chemshop-be/internal/server"
	"chemshop-be/internal/storage"
	"chemshop-be/internal/syncmon"
	"chemshop-be/internal/wallet"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadConfig()

	logger.Init(cfg.AppEnv)
	defer logger.Sync()
	log := logger.L()

	database := db.InitDB(cfg)
	defer database.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer rdb.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	uploader, err := storage.NewS3Uploader(ctx, cfg)
	if err != nil {
		log.Fatal("failed to init object storage", zap.Error(err))
	}

	// repositories
	customerRepo := customer.NewRepository(database)
	walletRepo := wallet.NewRepository(database)
	productRepo := product.NewRepository(database)
	orderRepo := order.NewRepository(database)
	paymentRepo := payment.NewRepository(database)
	checkoutRepo := checkout.NewRepository(database)
	syncRepo := syncmon.NewRepository(database)
	abandonedRepo := abandoned.NewRepository(database)

	// services
	gateway := payment.NewTBIGateway(cfg)
	customerSvc := customer.NewService(customerRepo, cfg.JWTSecret)
	walletSvc := wallet.NewService(walletRepo)
	orderSvc := order.NewService(orderRepo, walletSvc, gateway, paymentRepo)
	checkoutSvc := checkout.NewService(checkoutRepo, orderRepo, productRepo, walletSvc, gateway, paymentRepo, cfg.BaseURL)
	syncSvc := syncmon.NewService(syncRepo, orderRepo)

	// background workers
	go syncmon.NewWorker(syncSvc, 30*time.Minute).Run(ctx)
	go abandoned.NewDispatcher(abandonedRepo, rdb, time.Minute).Run(ctx)

	router := server.NewRouter(server.Handlers{
		Customer:  customer.NewHandler(customerSvc),
		Checkout:  checkout.NewHandler(checkoutSvc),
		Order:     order.NewHandler(orderSvc),
		Receipt:   order.NewReceiptHandler(orderSvc, uploader),
		Wallet:    wallet.NewHandler(walletSvc),
		Webhook:   webhook.NewHandler(paymentRepo, orderSvc),
		Abandoned: abandoned.NewHandler(abandonedRepo),
		Sync:      syncmon.NewHandler(syncSvc),
	}, cfg.JWTSecret)

	port := cfg.AppPort
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}
