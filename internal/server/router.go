package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	auction "auction-house/internal/auctionService"
	auth "auction-house/internal/authService"
	bidding "auction-house/internal/biddingService"
	exporter "auction-house/internal/exportService"
	importer "auction-house/internal/importService"
	model "auction-house/internal/models"
	auctionhandler "auction-house/services/auction/handler"
	authhandler "auction-house/services/auth/handler"
	biddinghandler "auction-house/services/bidding/handler"
)

// SetupRouter configures all Gin routes for the application
func SetupRouter(
	authService *auth.AuthService,
	auctionService *auction.AuctionService,
	biddingService *bidding.BiddingService,
	importService *importer.Importer,
	exportService *exporter.Exporter,
) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery())          // recover from panics
	router.Use(RequestLoggerMiddleware) // custom request logging

	authHandler := authhandler.NewAuthHandler(authService)
	auctionHandler := auctionhandler.NewAuctionHandler(auctionService, importService, exportService)
	biddingHandler := biddinghandler.NewBiddingHandler(biddingService)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.RegisterHandler)
		authRoutes.POST("/login", authHandler.LoginHandler)
		authRoutes.GET("/me", AuthRequired(authService), authHandler.MeHandler)
	}

	// public read paths; every read lazily closes expired auctions first
	auctions := router.Group("/auctions")
	{
		auctions.GET("", auctionHandler.ListAuctionsHandler)
		auctions.GET("/:auction_id", auctionHandler.GetAuctionHandler)
	}

	managers := router.Group("/managers", AuthRequired(authService), RoleRequired(model.RoleManager))
	{
		managers.POST("/auctions", auctionHandler.CreateAuctionHandler)
		managers.PUT("/auctions/:auction_id", auctionHandler.UpdateAuctionHandler)
		managers.POST("/auctions/:auction_id/items", auctionHandler.AddItemHandler)
		managers.POST("/auctions/:auction_id/end", auctionHandler.EndAuctionHandler)
		managers.POST("/auctions/import", auctionHandler.ImportHandler)
		managers.GET("/auctions/export", auctionHandler.ExportHandler)
	}

	customers := router.Group("/customers", AuthRequired(authService), RoleRequired(model.RoleCustomer))
	{
		customers.POST("/bids", biddingHandler.PlaceBidHandler)
		customers.GET("/bids", biddingHandler.MyBidsHandler)
	}

	return router
}
