package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	notificationDelivery "newsroom-backend/internal/notification/delivery"
	notificationUsecase "newsroom-backend/internal/notification/usecase"
	recipientDelivery "newsroom-backend/internal/recipient/delivery"
	recipientUsecase "newsroom-backend/internal/recipient/usecase"
	"newsroom-backend/pkg/config"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Handler struct {
	config              *config.Config
	tokenUsecase        recipientUsecase.TokenUsecase
	tokenHandler        *recipientDelivery.TokenHandler
	notificationHandler *notificationDelivery.NotificationHandler
}

func NewHandler(cfg *config.Config, tokenUc recipientUsecase.TokenUsecase, notificationUc notificationUsecase.NotificationUsecase) *Handler {
	return &Handler{
		config:              cfg,
		tokenUsecase:        tokenUc,
		tokenHandler:        recipientDelivery.NewTokenHandler(tokenUc),
		notificationHandler: notificationDelivery.NewNotificationHandler(notificationUc),
	}
}

// Engine builds the gin engine with middleware and routes.
func (h *Handler) Engine() *gin.Engine {
	if h.config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, "+recipientDelivery.DeviceHeader)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	SetupRoutes(r, h)
	return r
}

// NewHTTPServer serves the API for the lifetime of the fx app.
func NewHTTPServer(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, h *Handler) *http.Server {
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Server starting", zap.String("addr", srv.Addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("Server stopped unexpectedly", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: srv.Shutdown,
	})

	return srv
}
