package delivery

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"

	"newsroom-backend/internal/notification/domain"
	"newsroom-backend/internal/notification/usecase"
	recipientDelivery "newsroom-backend/internal/recipient/delivery"

	"github.com/gin-gonic/gin"
)

// InternalKeyHeader authenticates CMS event submissions.
const InternalKeyHeader = "X-Internal-Key"

type NotificationHandler struct {
	notifications usecase.NotificationUsecase
}

func NewNotificationHandler(notifications usecase.NotificationUsecase) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// GetNotifications handles GET /api/notifications
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	var filter domain.Filter
	if t := c.Query("type"); t != "" {
		typ := domain.NotificationType(t)
		filter.Type = &typ
	}
	if v := c.Query("isRead"); v != "" {
		isRead, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "isRead must be true or false"})
			return
		}
		filter.IsRead = &isRead
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	result, err := h.notifications.List(c.Request.Context(), recipientDelivery.RecipientID(c), filter, page, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetStats handles GET /api/notifications/stats
func (h *NotificationHandler) GetStats(c *gin.Context) {
	stats, err := h.notifications.Stats(c.Request.Context(), recipientDelivery.RecipientID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// MarkAsRead handles PUT /api/notifications/:id/read
func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	n, err := h.notifications.MarkRead(c.Request.Context(), recipientDelivery.RecipientID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

type markAllReadRequest struct {
	Type string `json:"type"`
}

// MarkAllAsRead handles PUT /api/notifications/mark-all-read
func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	var req markAllReadRequest
	// the body is optional
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	var typ *domain.NotificationType
	if req.Type != "" {
		t := domain.NotificationType(req.Type)
		typ = &t
	}
	n, err := h.notifications.MarkAllRead(c.Request.Context(), recipientDelivery.RecipientID(c), typ)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "modifiedCount": n})
}

// DeleteNotification handles DELETE /api/notifications/:id
func (h *NotificationHandler) DeleteNotification(c *gin.Context) {
	if err := h.notifications.Remove(c.Request.Context(), recipientDelivery.RecipientID(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// PublishEvent handles POST /api/internal/events. The event is queued and
// the response does not wait for delivery.
func (h *NotificationHandler) PublishEvent(c *gin.Context) {
	var ev domain.Event
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.notifications.Publish(ev); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"success": true})
}

// InternalKey rejects requests without the shared secret. An empty secret
// disables the internal endpoints.
func InternalKey(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(InternalKeyHeader)
		if secret == "" || subtle.ConstantTimeCompare([]byte(key), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

func writeError(c *gin.Context, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
	case errors.Is(err, domain.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrQueueFull):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
