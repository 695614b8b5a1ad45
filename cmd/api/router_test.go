package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"newsroom-backend/internal/notification/domain"
	recipientDomain "newsroom-backend/internal/recipient/domain"
	recipientUsecase "newsroom-backend/internal/recipient/usecase"
	"newsroom-backend/pkg/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubTokens struct{}

func (stubTokens) Register(context.Context, recipientUsecase.Registration) (*recipientUsecase.Registered, error) {
	return &recipientUsecase.Registered{Ref: recipientDomain.TargetRef{Kind: recipientDomain.KindGuest, ID: "g1"}}, nil
}

func (stubTokens) Unregister(context.Context, string, string, string) error { return nil }

func (stubTokens) ResolveRecipient(_ context.Context, userID, deviceID string) (string, error) {
	if userID == "" && deviceID == "" {
		return "", recipientDomain.ErrNotFound
	}
	return "g1", nil
}

type stubNotifications struct{ published int }

func (s *stubNotifications) List(context.Context, string, domain.Filter, int, int) (*domain.Page, error) {
	return &domain.Page{Items: []domain.Notification{}, Page: 1, Limit: 20}, nil
}

func (s *stubNotifications) Stats(context.Context, string) (*domain.Stats, error) {
	return &domain.Stats{ByType: map[domain.NotificationType]domain.TypeStats{}}, nil
}

func (s *stubNotifications) MarkRead(context.Context, string, string) (*domain.Notification, error) {
	return nil, domain.ErrNotFound
}

func (s *stubNotifications) MarkAllRead(context.Context, string, *domain.NotificationType) (int64, error) {
	return 0, nil
}

func (s *stubNotifications) Remove(context.Context, string, string) error { return nil }

func (s *stubNotifications) Publish(domain.Event) error {
	s.published++
	return nil
}

func newTestEngine() (*gin.Engine, *stubNotifications) {
	notifications := &stubNotifications{}
	cfg := &config.Config{JWTSecret: "secret", InternalAPIKey: "key"}
	return NewHandler(cfg, stubTokens{}, notifications).Engine(), notifications
}

func serve(r http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRoutes(t *testing.T) {
	r, notifications := newTestEngine()

	t.Run("health", func(t *testing.T) {
		w := serve(r, http.MethodGet, "/api/health", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	})

	t.Run("cors preflight", func(t *testing.T) {
		w := serve(r, http.MethodOptions, "/api/push/tokens", "", map[string]string{"Origin": "https://news.example.com"})
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "https://news.example.com", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "X-Device-ID")
	})

	t.Run("history needs an identity", func(t *testing.T) {
		w := serve(r, http.MethodGet, "/api/notifications", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		w = serve(r, http.MethodGet, "/api/notifications", "", map[string]string{"X-Device-ID": "d1"})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("mark read maps not found", func(t *testing.T) {
		w := serve(r, http.MethodPut, "/api/notifications/abc/read", "", map[string]string{"X-Device-ID": "d1"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("guest token registration", func(t *testing.T) {
		w := serve(r, http.MethodPost, "/api/push/tokens", `{"token":"t","platform":"web"}`, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("internal events need the key", func(t *testing.T) {
		body := `{"kind":"breaking_news","id":"a1","title":"t"}`
		w := serve(r, http.MethodPost, "/api/internal/events", body, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = serve(r, http.MethodPost, "/api/internal/events", body, map[string]string{"X-Internal-Key": "key"})
		assert.Equal(t, http.StatusAccepted, w.Code)
		assert.Equal(t, 1, notifications.published)
	})
}
