package delivery

import (
	"errors"
	"net/http"

	"newsroom-backend/internal/recipient/domain"
	"newsroom-backend/internal/recipient/usecase"

	"github.com/gin-gonic/gin"
)

type TokenHandler struct {
	tokens usecase.TokenUsecase
}

func NewTokenHandler(tokens usecase.TokenUsecase) *TokenHandler {
	return &TokenHandler{tokens: tokens}
}

type registerTokenRequest struct {
	Token    string `json:"token" binding:"required"`
	Platform string `json:"platform" binding:"required"`
	DeviceID string `json:"deviceId"`
}

type unregisterTokenRequest struct {
	Token    string `json:"token" binding:"required"`
	DeviceID string `json:"deviceId"`
}

// RegisterToken handles POST /api/push/tokens.
func (h *TokenHandler) RegisterToken(c *gin.Context) {
	var req registerTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.DeviceID == "" {
		req.DeviceID = c.GetHeader(DeviceHeader)
	}

	res, err := h.tokens.Register(c.Request.Context(), usecase.Registration{
		UserID:   c.GetString(ctxUserID),
		DeviceID: req.DeviceID,
		Token:    req.Token,
		Platform: req.Platform,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	body := gin.H{
		"success":     true,
		"recipientId": res.Ref.ID,
		"kind":        res.Ref.Kind,
		"channel":     res.Channel,
	}
	if res.DeviceID != "" {
		body["deviceId"] = res.DeviceID
	}
	c.JSON(http.StatusOK, body)
}

// UnregisterToken handles DELETE /api/push/tokens.
func (h *TokenHandler) UnregisterToken(c *gin.Context) {
	var req unregisterTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.DeviceID == "" {
		req.DeviceID = c.GetHeader(DeviceHeader)
	}

	if err := h.tokens.Unregister(c.Request.Context(), c.GetString(ctxUserID), req.DeviceID, req.Token); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func writeError(c *gin.Context, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "recipient not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
