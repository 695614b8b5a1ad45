package delivery

import (
	"errors"
	"net/http"
	"strings"

	"newsroom-backend/internal/recipient/domain"
	"newsroom-backend/internal/recipient/usecase"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// DeviceHeader carries the guest device id.
	DeviceHeader = "X-Device-ID"

	ctxUserID      = "userID"
	ctxRecipientID = "recipientID"
)

type claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
}

// OptionalAuth accepts anonymous requests but rejects a malformed or invalid
// bearer token. On success the user id is stored under "userID".
func OptionalAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			return
		}

		cl := &claims{}
		token, err := jwt.ParseWithClaims(tokenString, cl, func(_ *jwt.Token) (any, error) {
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid || cl.UserID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(ctxUserID, cl.UserID)
		c.Next()
	}
}

// RequireRecipient resolves the caller to a recipient id, either the
// authenticated user or the guest owning the X-Device-ID header.
func RequireRecipient(tokens usecase.TokenUsecase) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := tokens.ResolveRecipient(c.Request.Context(), c.GetString(ctxUserID), c.GetHeader(DeviceHeader))
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication or device id required"})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve recipient"})
			return
		}
		SetRecipientID(c, id)
		c.Next()
	}
}

// SetRecipientID stores the resolved recipient on the request context.
func SetRecipientID(c *gin.Context, id string) {
	c.Set(ctxRecipientID, id)
}

// RecipientID returns the id stored by RequireRecipient.
func RecipientID(c *gin.Context) string {
	return c.GetString(ctxRecipientID)
}
