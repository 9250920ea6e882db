package main

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/takumbeng/covoit-backend/internal/database"
	"github.com/takumbeng/covoit-backend/internal/gateway"
	"github.com/takumbeng/covoit-backend/internal/handlers"
	"github.com/takumbeng/covoit-backend/internal/middleware"
	"github.com/takumbeng/covoit-backend/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	// Initialize database before serving any traffic
	db, err := database.InitDB()
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get database instance: %v", err)
	}

	// Configure connection pool
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// Initialize Redis
	if err := services.InitRedis(); err != nil {
		log.Fatalf("Failed to initialize Redis: %v", err)
	}

	// Initialize Firebase (optional - will log warning if not configured)
	if err := services.InitFirebase(); err != nil {
		log.Printf("Firebase initialization warning: %v", err)
	}

	// Initialize Storage (S3 or local fallback)
	if err := services.InitStorage(); err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	// Initialize WebSocket hub
	hub := services.NewHub()
	go hub.Run()

	// Stores and collaborators, assembled once at startup
	paymentStore := database.NewPaymentStore(db)
	journeyStore := database.NewJourneyStore(db)
	bookingStore := database.NewBookingStore(db)
	tokenStore := database.NewTokenStore(db)

	gatewayClient := gateway.NewClientFromEnv()
	notifier := services.NewDispatcher(hub, tokenStore)

	feePercent := 10
	if s := os.Getenv("PLATFORM_FEE_PERCENT"); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			feePercent = v
		}
	}

	paymentService := services.NewPaymentService(paymentStore, bookingStore, journeyStore, gatewayClient, notifier, feePercent)
	journeyService := services.NewJourneyService(journeyStore, bookingStore, paymentStore, paymentService, notifier)
	bookingService := services.NewBookingService(bookingStore, journeyService, journeyStore, paymentStore, paymentService, notifier)

	// Initialize router
	r := gin.Default()

	// Configure CORS
	config := cors.DefaultConfig()
	config.AllowOrigins = []string{"*"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	r.Use(cors.New(config))

	r.Static("/uploads", "/app/uploads")

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "wsClients": hub.GetConnectedClients()})
	})

	// Routes
	api := r.Group("/api")
	{
		// Public routes
		auth := api.Group("/auth")
		{
			auth.POST("/register", handlers.Register(db))
			auth.POST("/login", handlers.Login(db))
		}

		// Gateway webhook: public, gated by signature validation only
		api.POST("/payments/webhook", handlers.FlutterwaveWebhook(paymentService, gatewayClient))

		// WebSocket connection
		api.GET("/ws", middleware.AuthMiddleware(), handlers.WebSocketHandler(hub))

		// Protected routes
		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware())
		{
			users := protected.Group("/users")
			{
				users.GET("/profile", handlers.GetProfile(db))
				users.PUT("/profile", handlers.UpdateProfile(db))
				users.POST("/vehicle-photo", handlers.UploadVehiclePhoto(db))
			}

			journeys := protected.Group("/journeys")
			{
				journeys.POST("", handlers.CreateJourney(journeyService, hub))
				journeys.GET("", handlers.SearchJourneys(journeyService))
				journeys.GET("/driver", handlers.GetDriverJourneys(journeyService))
				journeys.GET("/:id", handlers.GetJourney(journeyService))
				journeys.POST("/:id/start", handlers.StartJourney(journeyService))
				journeys.POST("/:id/complete", handlers.CompleteJourney(journeyService))
				journeys.POST("/:id/cancel", handlers.CancelJourney(journeyService))
			}

			bookings := protected.Group("/bookings")
			{
				bookings.POST("", handlers.CreateBooking(bookingService))
				bookings.GET("/mine", handlers.GetMyBookings(bookingService))
				bookings.GET("/:id", handlers.GetBooking(bookingService))
				bookings.POST("/:id/cancel", handlers.CancelBooking(bookingService))
			}

			payments := protected.Group("/payments")
			{
				payments.POST("/initiate", handlers.InitiatePayment(paymentService))
				payments.GET("/:id", handlers.GetPaymentStatus(paymentService))
			}

			notifications := protected.Group("/notifications")
			{
				notifications.POST("/register-token", handlers.RegisterDeviceToken(tokenStore))
				notifications.DELETE("/remove-token", handlers.RemoveDeviceToken(tokenStore))
			}
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	if err := r.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
