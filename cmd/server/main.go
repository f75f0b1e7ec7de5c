package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"store-system/internal/config"
	"store-system/internal/database"
	"store-system/internal/handlers"
	"store-system/internal/kafka"
	"store-system/internal/logger"
	"store-system/internal/models"
	"store-system/internal/redis"
	"store-system/internal/services"

	"github.com/joho/godotenv"
)

// Фабричные функции для подключения внешних сервисов (подменяемые в тестах).
var (
	dbConnect        = database.Connect
	redisConnect     = redis.Connect
	newKafkaProducer = kafka.NewProducer
	newKafkaConsumer = kafka.NewConsumer
	kafkaHealthCheck = handlers.CheckKafkaHealth
	loadConfig       = config.Load
	newLogger        = logger.New
)

// application агрегирует собранные зависимости.
type application struct {
	cfg      *config.Config
	log      *logger.Logger
	db       *database.DB
	redis    *redis.Client
	producer *kafka.Producer
	consumer *kafka.Consumer
	mux      *http.ServeMux
	server   *http.Server
}

func main() {
	app, err := buildApplication()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build app: %v\n", err)
		os.Exit(1)
	}
	app.log.Info("Starting store system server...")

	go func() {
		app.log.WithField("address", app.server.Addr).Info("HTTP server starting")
		if err := app.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	app.log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = app.consumer.Stop()
	if err := app.server.Shutdown(ctx); err != nil {
		app.log.WithError(err).Error("Server forced to shutdown")
	}
	_ = app.producer.Close()
	_ = app.redis.Close()
	_ = app.db.Close()
	app.log.Info("Server exited")
}

// buildApplication создает все зависимости (подменяемые в тестах).
func buildApplication() (*application, error) {
	_ = godotenv.Load()

	cfg := loadConfig()
	log := newLogger(&cfg.Logger)

	loc, err := time.LoadLocation(cfg.Business.Timezone)
	if err != nil {
		log.WithError(err).WithField("timezone", cfg.Business.Timezone).Warn("Invalid business timezone, falling back to UTC")
		loc = time.UTC
	}

	db, err := dbConnect(&cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}

	redisClient, err := redisConnect(&cfg.Redis, log)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("redis connect: %w", err)
	}

	producer, err := newKafkaProducer(&cfg.Kafka, log)
	if err != nil {
		_ = redisClient.Close()
		_ = db.Close()
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	consumer, err := newKafkaConsumer(&cfg.Kafka, log)
	if err != nil {
		_ = producer.Close()
		_ = redisClient.Close()
		_ = db.Close()
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}

	hoursCalculator := services.NewBusinessHoursCalculator(loc, cfg.Business.OpenHour, cfg.Business.CloseHour)
	couponService := services.NewCouponService(db, log)
	cartService := services.NewCartService(db, redisClient, log, couponService)
	userService := services.NewUserService(db, log, loc)
	paymentMethodService := services.NewPaymentMethodService(db, log)
	purchaseService := services.NewPurchaseService(db, redisClient, log, cartService, couponService, userService, paymentMethodService, producer, &cfg.Business, loc)
	statisticsService := services.NewStatisticsService(db, redisClient, log, hoursCalculator, &cfg.Statistics)
	notificationService := services.NewNotificationService(db, log, producer)
	rateLimiter := services.NewRateLimiter(redisClient, log, &cfg.RateLimit)

	cartHandler := handlers.NewCartHandler(cartService, log)
	purchaseHandler := handlers.NewPurchaseHandler(purchaseService, log)
	couponHandler := handlers.NewCouponHandler(couponService, log)
	userHandler := handlers.NewUserHandler(userService, log)
	paymentMethodHandler := handlers.NewPaymentMethodHandler(paymentMethodService, log)
	notificationHandler := handlers.NewNotificationHandler(notificationService, log)
	statisticsHandler := handlers.NewStatisticsHandler(statisticsService, log, &cfg.Statistics)
	healthHandler := handlers.NewHealthHandler(db, redisClient, cfg.Kafka.Brokers, kafkaHealthCheck)
	rateLimitHandler := handlers.NewRateLimitHandler(rateLimiter, log, &cfg.RateLimit)

	registerEventHandlers(consumer, notificationService, log)
	if err := consumer.Start(); err != nil {
		_ = consumer.Stop()
		_ = producer.Close()
		_ = redisClient.Close()
		_ = db.Close()
		return nil, fmt.Errorf("kafka consumer start: %w", err)
	}

	mux := setupRoutes(cartHandler, purchaseHandler, couponHandler, userHandler, paymentMethodHandler, notificationHandler, statisticsHandler, healthHandler, rateLimitHandler, rateLimiter, log)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	return &application{
		cfg:      cfg,
		log:      log,
		db:       db,
		redis:    redisClient,
		producer: producer,
		consumer: consumer,
		mux:      mux,
		server:   server,
	}, nil
}

// setupRoutes настраивает маршруты HTTP сервера
func setupRoutes(cartHandler *handlers.CartHandler, purchaseHandler *handlers.PurchaseHandler, couponHandler *handlers.CouponHandler, userHandler *handlers.UserHandler, paymentMethodHandler *handlers.PaymentMethodHandler, notificationHandler *handlers.NotificationHandler, statisticsHandler *handlers.StatisticsHandler, healthHandler *handlers.HealthHandler, rateLimitHandler *handlers.RateLimitHandler, rateLimiter *services.RateLimiter, log *logger.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	applyAPI := func(h http.HandlerFunc) http.HandlerFunc {
		return corsMiddleware(handlers.RateLimitMiddleware(rateLimiter, log, handlers.AuthContextMiddleware(h)))
	}

	// Health check endpoints
	mux.HandleFunc("/health", corsMiddleware(healthHandler.Health))
	mux.HandleFunc("/health/readiness", corsMiddleware(healthHandler.Readiness))
	mux.HandleFunc("/health/liveness", corsMiddleware(healthHandler.Liveness))

	// Cart endpoints
	mux.HandleFunc("/api/cart", applyAPI(cartHandler.Cart))
	mux.HandleFunc("/api/cart/items", applyAPI(cartHandler.AddItem))
	mux.HandleFunc("/api/cart/items/", applyAPI(cartHandler.RemoveItem))
	mux.HandleFunc("/api/cart/coupon", applyAPI(cartHandler.Coupon))

	// Purchase endpoints
	mux.HandleFunc("/api/cart-purchases", applyAPI(purchaseHandler.Purchases))
	mux.HandleFunc("/api/cart-purchases/", applyAPI(purchaseHandler.Purchase))
	mux.HandleFunc("/api/cart-purchases/admin/all", applyAPI(purchaseHandler.AdminAll))

	// Statistics endpoints
	mux.HandleFunc("/api/cart-purchases/admin/statistics", applyAPI(statisticsHandler.PurchaseStatistics))
	mux.HandleFunc("/api/cart-purchases/admin/product-statistics", applyAPI(statisticsHandler.ProductStatistics))
	mux.HandleFunc("/api/cart-purchases/admin/response-time", applyAPI(statisticsHandler.ResponseTimeStatistics))

	// Coupon endpoints
	mux.HandleFunc("/api/coupons", applyAPI(couponHandler.Coupons))
	mux.HandleFunc("/api/coupons/", applyAPI(couponHandler.Coupon))

	// Staff endpoints
	mux.HandleFunc("/api/staff/", applyAPI(handleStaffRoute(userHandler)))

	// Payment method endpoints
	mux.HandleFunc("/api/payment-methods", applyAPI(paymentMethodHandler.List))

	// Notification endpoints
	mux.HandleFunc("/api/notifications", applyAPI(notificationHandler.Notifications))
	mux.HandleFunc("/api/notifications/", applyAPI(notificationHandler.MarkRead))

	// Rate limit status
	mux.HandleFunc("/api/rate-limit/status", applyAPI(rateLimitHandler.Status))

	return mux
}

// handleStaffRoute обрабатывает подмаршруты сотрудников
func handleStaffRoute(handler *handlers.UserHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/monthly-confirmed-count") {
			handler.MonthlyConfirmedCount(w, r)
			return
		}
		writeErrorResponse(w, http.StatusNotFound, "Not found")
	}
}

// registerEventHandlers регистрирует обработчики событий Kafka
func registerEventHandlers(consumer *kafka.Consumer, notifications *services.NotificationService, log *logger.Logger) {
	consumer.RegisterHandler(models.EventTypePurchaseCreated, notifications.HandlePurchaseCreated)
	consumer.RegisterHandler(models.EventTypePurchaseDeleted, notifications.HandlePurchaseDeleted)

	consumer.RegisterHandler(models.EventTypePurchaseStatusChanged, func(ctx context.Context, event *models.Event) error {
		log.WithField("event_id", event.ID).Info("Processing purchase status changed event")
		return nil
	})
}

// corsMiddleware и другие helper функции
func corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-User-Id, X-User-Serial, X-User-Role")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

func writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  "fail",
		"message": message,
	})
}
