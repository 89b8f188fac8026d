package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"checkout-service/internal/auth"
	"checkout-service/internal/config"
	httpapi "checkout-service/internal/controllers/http"
	"checkout-service/internal/infra/gateway"
	mmysql "checkout-service/internal/infra/mysql"
	"checkout-service/internal/infra/rabbitmq"
	"checkout-service/internal/infra/redislock"
	mysqlrepo "checkout-service/internal/repository/mysql"
	"checkout-service/internal/services"
	"checkout-service/pkg/logkey"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config: load", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})).
		With(slog.String(logkey.Component, "checkout-service")))

	db, err := mmysql.NewMySQL(cfg.MySQL)
	if err != nil {
		slog.Error("db: connect", slog.String("error", err.Error()))
		os.Exit(1)
	}

	orderRepo := mysqlrepo.NewOrderRepository(db)
	cartRepo := mysqlrepo.NewCartRepository(db)
	addressRepo := mysqlrepo.NewAddressRepository(db)

	phonePe := gateway.NewPhonePe(cfg.Gateway)

	publisher, err := rabbitmq.NewPublisher(cfg.RabbitMQURL, cfg.Exchange)
	if err != nil {
		slog.Error("failed to init publisher", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer publisher.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		DB:           0,
		PoolSize:     50,
		MinIdleConns: 5,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		// checks still run, just without the cross-instance lock
		slog.Warn("redis unreachable at startup", slog.String("addr", cfg.RedisAddr), slog.String("error", err.Error()))
	}

	checkoutService := services.NewCheckoutService(orderRepo, cartRepo, addressRepo, phonePe, publisher,
		cfg.CallbackBaseURL, cfg.Gateway.Timeout)

	orderService := services.NewOrderService(orderRepo, phonePe, publisher, cfg.Gateway.Timeout)
	orderService.SetLocker(redislock.NewLocker(redisClient, "order:reconcile:"), cfg.ReconcileLockTTL)

	keys, err := auth.NewKeys(cfg.JWTSecret)
	if err != nil {
		slog.Error("auth: keys", slog.String("error", err.Error()))
		os.Exit(1)
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	r.Use(gin.Recovery(), httpapi.TraceLogger())

	handler := httpapi.NewHandler(checkoutService, orderService)
	handler.RegisterRoutes(r, httpapi.Authenticate(keys))

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("starting checkout service", slog.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server run", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown", slog.String("error", err.Error()))
	}
}
