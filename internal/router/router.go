// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/palettebid/backend/internal/config"
	"github.com/palettebid/backend/internal/handlers"
	"github.com/palettebid/backend/internal/middleware"
	"github.com/palettebid/backend/internal/services"
	"github.com/palettebid/backend/internal/utils"
)

// Services bundles everything the router and scheduler share.
type Services struct {
	Auth         *services.AuthService
	Artwork      *services.ArtworkService
	Auction      *services.AuctionService
	Purchase     *services.PurchaseService
	Notification *services.NotificationService
	Payment      *services.PaymentService
	Storage      *services.StorageService
}

// BuildServices wires the service graph in dependency order.
func BuildServices(db *gorm.DB, cfg *config.Config) *Services {
	notificationService := services.NewNotificationService(db, cfg)
	paymentService := services.NewPaymentService(db, cfg)
	storageService, _ := services.NewStorageService(cfg)

	purchaseService := services.NewPurchaseService(db, cfg, notificationService, paymentService)
	auctionService := services.NewAuctionService(db, cfg, purchaseService)

	return &Services{
		Auth:         services.NewAuthService(db, cfg),
		Artwork:      services.NewArtworkService(db),
		Auction:      auctionService,
		Purchase:     purchaseService,
		Notification: notificationService,
		Payment:      paymentService,
		Storage:      storageService,
	}
}

func Initialize(svcs *Services, cfg *config.Config) *gin.Engine {
	// Initialize handlers
	authHandler := handlers.NewAuthHandler(svcs.Auth)
	artworkHandler := handlers.NewArtworkHandler(svcs.Artwork, svcs.Storage)
	auctionHandler := handlers.NewAuctionHandler(svcs.Auction)
	purchaseHandler := handlers.NewPurchaseHandler(svcs.Purchase)
	adminHandler := handlers.NewAdminHandler(svcs.Purchase, svcs.Auction)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg))
	r.Use(middleware.GeneralRateLimit())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Authentication routes
		auth := v1.Group("/auth")
		auth.Use(middleware.AuthRateLimit())
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.GET("/me", middleware.AuthRequired(), authHandler.GetProfile)
		}

		// Artwork routes
		artworks := v1.Group("/artworks")
		{
			artworks.GET("", middleware.OptionalAuth(), artworkHandler.GetArtworks)
			artworks.GET("/:id", middleware.OptionalAuth(), artworkHandler.GetArtwork)

			protected := artworks.Group("")
			protected.Use(middleware.AuthRequired())
			{
				protected.POST("", artworkHandler.CreateArtwork)
				protected.PUT("/:id", artworkHandler.UpdateArtwork)
				protected.DELETE("/:id", artworkHandler.DeleteArtwork)
				protected.POST("/upload-images", middleware.UploadRateLimit(), artworkHandler.UploadArtworkImages)
			}
		}

		// Auction routes: snapshots and bid history are public, mutation is not
		auctions := v1.Group("/auctions")
		{
			auctions.GET("/:artworkId/info", auctionHandler.GetAuction)
			auctions.GET("/:artworkId/bids", auctionHandler.GetBids)

			protected := auctions.Group("")
			protected.Use(middleware.AuthRequired())
			{
				protected.POST("/:artworkId/bid", middleware.BidRateLimit(), auctionHandler.PlaceBid)
				protected.POST("/:artworkId/start", auctionHandler.StartAuction)
				protected.POST("/:artworkId/end", auctionHandler.EndAuction)
			}
		}

		// Purchase routes
		purchases := v1.Group("/auction-purchases")
		purchases.Use(middleware.AuthRequired())
		{
			purchases.GET("/:auctionId", purchaseHandler.GetPurchase)
			purchases.PUT("/:auctionId/shipping", purchaseHandler.ProvideShippingAddress)
			purchases.POST("/:auctionId/payment-intent", purchaseHandler.CreatePaymentIntent)
			purchases.POST("/:auctionId/payment", purchaseHandler.CompletePayment)
			purchases.PUT("/:auctionId/shipping-status", purchaseHandler.UpdateShippingStatus)
		}

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			admin.GET("/auction-purchases", adminHandler.ListPurchases)
			admin.POST("/auction-purchases/:auctionId/cancel", adminHandler.CancelPurchase)
			admin.POST("/auction-purchases/sweep", adminHandler.SweepPurchases)
			admin.POST("/auctions/sweep", adminHandler.SweepAuctions)
		}
	}

	// Static file serving (for development)
	if cfg.Environment == "development" {
		r.Static("/uploads", "./uploads")
	}

	return r
}
