package api

import (
	"net/http"

	authDelivery "sustainly-backend/internal/auth/delivery"
	historyDelivery "sustainly-backend/internal/history/delivery"
	productDelivery "sustainly-backend/internal/product/delivery"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, h *Handler) {
	authHandler := authDelivery.NewAuthHandler(h.authUsecase)
	productHandler := productDelivery.NewProductHandler(h.productUsecase)
	historyHandler := historyDelivery.NewHistoryHandler(h.historyUsecase)

	requireAuth := authDelivery.AuthMiddleware(h.authUsecase)
	requireKey := authDelivery.APIKeyMiddleware(h.config.APIKey)

	r.GET("/metrics", gin.WrapH(h.metrics.Handler()))

	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// SSE endpoint
		api.GET("/events", authDelivery.QueryTokenFallback(), requireAuth, func(c *gin.Context) {
			h.sseManager.ServeHTTP(c, c.GetString("userID"))
		})

		// Auth routes
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/google", authHandler.GoogleSignIn)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", requireAuth, authHandler.Me)
		}

		// Product score (signed-in lookups are added to history)
		api.GET("/product-score", requireKey, authDelivery.OptionalAuthMiddleware(h.authUsecase), productHandler.GetProductScore)

		// History routes (protected)
		history := api.Group("/user-history")
		history.Use(requireKey, requireAuth)
		{
			history.GET("", historyHandler.GetHistory)
			history.DELETE("", historyHandler.ClearHistory)
			history.POST("/:id/resolve", historyHandler.ResolveItem)
		}

		// Settings routes (protected) - Runtime configuration
		settings := api.Group("/settings")
		settings.Use(requireKey, requireAuth)
		{
			settings.GET("/ollama", h.settings.GetOllamaSettings)
			settings.PUT("/ollama", h.settings.UpdateOllamaSettings)
			settings.POST("/ollama/test", h.settings.TestOllamaConnection)
		}
	}
}
