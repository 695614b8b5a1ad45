package api

import (
	"net/http"

	notificationDelivery "newsroom-backend/internal/notification/delivery"
	recipientDelivery "newsroom-backend/internal/recipient/delivery"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, h *Handler) {
	optionalAuth := recipientDelivery.OptionalAuth(h.config.JWTSecret)

	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Push token registration: users by JWT, guests by device id
		push := api.Group("/push")
		push.Use(optionalAuth)
		{
			push.POST("/tokens", h.tokenHandler.RegisterToken)
			push.DELETE("/tokens", h.tokenHandler.UnregisterToken)
		}

		// Notification history
		notifications := api.Group("/notifications")
		notifications.Use(optionalAuth, recipientDelivery.RequireRecipient(h.tokenUsecase))
		{
			notifications.GET("", h.notificationHandler.GetNotifications)
			notifications.GET("/stats", h.notificationHandler.GetStats)
			notifications.PUT("/mark-all-read", h.notificationHandler.MarkAllAsRead)
			notifications.PUT("/:id/read", h.notificationHandler.MarkAsRead)
			notifications.DELETE("/:id", h.notificationHandler.DeleteNotification)
		}

		// CMS hook
		internal := api.Group("/internal")
		internal.Use(notificationDelivery.InternalKey(h.config.InternalAPIKey))
		{
			internal.POST("/events", h.notificationHandler.PublishEvent)
		}
	}
}
