package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/handlers"
	"storefront/internal/middleware"
	"storefront/internal/orders"
	"storefront/internal/payments"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("configuration invalid")
	}

	if cfg.IsProduction() {
		log.SetFormatter(&log.JSONFormatter{})
		gin.SetMode(gin.ReleaseMode)
	}

	client, err := database.Connect(cfg.MongoURI)
	if err != nil {
		log.WithError(err).Fatal("mongodb connection failed")
	}
	db := client.Database(cfg.DBName)
	log.WithField("db", db.Name()).Info("mongodb connected")

	if err := database.EnsureUserIndexes(db); err != nil {
		log.WithError(err).Warn("user index bootstrap failed")
	}
	if err := database.EnsureProductIndexes(db); err != nil {
		log.WithError(err).Warn("product index bootstrap failed")
	}
	if err := database.EnsureOrderIndexes(db); err != nil {
		log.WithError(err).Warn("order index bootstrap failed")
	}

	var limiter *middleware.RateLimiter
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		limiter = middleware.NewRateLimiter(redisClient, "ratelimit:")
		log.WithField("addr", cfg.RedisAddr).Info("auth rate limiting enabled")
	}

	orderSvc := orders.NewService(
		orders.NewMongoOrderRepository(db),
		orders.NewMongoProductRepository(db),
		orders.NewMongoUserRepository(db),
	)
	gateway := payments.NewGateway(cfg.RazorpayKeyID, cfg.RazorpayKeySecret)

	r := gin.Default()

	protect := middleware.Protect(db, cfg.JWTSecret)
	admin := middleware.AdminOnly()

	users := r.Group("/api/users")
	{
		users.POST("/register",
			middleware.RateLimit(limiter, "register", 10, time.Minute),
			handlers.Register(db, cfg.JWTSecret, cfg.TokenTTL))
		users.POST("/login",
			middleware.RateLimit(limiter, "login", 20, time.Minute),
			handlers.Login(db, cfg.JWTSecret, cfg.TokenTTL, cfg.IsProduction()))
		users.POST("/logout", handlers.Logout())
		users.GET("/profile", protect, handlers.GetProfile())
		users.PUT("/profile", protect, handlers.UpdateProfile(db, cfg.JWTSecret, cfg.TokenTTL))
	}

	products := r.Group("/api/products")
	{
		products.GET("", handlers.GetProducts(db))
		products.GET("/:id", handlers.GetProductByID(db))
		products.GET("/:id/image", handlers.GetProductImage(db))
		products.POST("/add", protect, admin, handlers.CreateProduct(db))
		products.PUT("/:id", protect, admin, handlers.UpdateProduct(db))
		products.DELETE("/:id", protect, admin, handlers.DeleteProduct(db))
	}

	ordersGroup := r.Group("/api/orders", protect)
	{
		ordersGroup.POST("", handlers.CreateOrder(orderSvc))
		ordersGroup.GET("/myorders", handlers.GetMyOrders(orderSvc))
		ordersGroup.GET("/:id", handlers.GetOrderByID(orderSvc))
		ordersGroup.GET("", admin, handlers.GetAllOrders(orderSvc))
		ordersGroup.PUT("/:id/pay", handlers.MarkOrderPaid(orderSvc))
		ordersGroup.PUT("/:id/deliver", admin, handlers.MarkOrderDelivered(orderSvc))
	}

	paymentsGroup := r.Group("/api/payments")
	{
		paymentsGroup.GET("/get-razorpay-key", handlers.GetRazorpayKey(cfg.RazorpayKeyID, cfg.PaymentTestMode()))
		paymentsGroup.POST("/create-order", protect, handlers.CreatePaymentOrder(gateway))
		paymentsGroup.POST("/verify", protect, handlers.VerifyPayment(orderSvc, cfg.RazorpayKeySecret))
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("shutdown failed")
	}
	if err := client.Disconnect(ctx); err != nil {
		log.WithError(err).Error("mongodb disconnect failed")
	}
}
