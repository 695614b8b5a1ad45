package delivery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"newsroom-backend/internal/recipient/domain"
	"newsroom-backend/internal/recipient/usecase"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testSecret = "test-secret"

type stubTokens struct {
	lastReg    usecase.Registration
	unregister []string
	guests     map[string]string
}

func (s *stubTokens) Register(_ context.Context, req usecase.Registration) (*usecase.Registered, error) {
	s.lastReg = req
	if req.Platform == "pager" {
		return nil, &domain.ValidationError{Field: "platform", Message: "unsupported"}
	}
	if req.UserID != "" {
		return &usecase.Registered{Ref: domain.TargetRef{Kind: domain.KindUser, ID: req.UserID}, Channel: domain.ChannelWeb}, nil
	}
	return &usecase.Registered{Ref: domain.TargetRef{Kind: domain.KindGuest, ID: "g1"}, DeviceID: "generated", Channel: domain.ChannelMobile}, nil
}

func (s *stubTokens) Unregister(_ context.Context, userID, deviceID, token string) error {
	s.unregister = append(s.unregister, userID+"|"+deviceID+"|"+token)
	return nil
}

func (s *stubTokens) ResolveRecipient(_ context.Context, userID, deviceID string) (string, error) {
	if userID != "" {
		return userID, nil
	}
	if id, ok := s.guests[deviceID]; ok {
		return id, nil
	}
	return "", domain.ErrNotFound
}

func signToken(t *testing.T, userID string, ttl time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl))},
		UserID:           userID,
	})
	s, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func newRouter(stub *stubTokens) *gin.Engine {
	r := gin.New()
	h := NewTokenHandler(stub)
	r.POST("/push/tokens", OptionalAuth(testSecret), h.RegisterToken)
	r.DELETE("/push/tokens", OptionalAuth(testSecret), h.UnregisterToken)
	r.GET("/me", OptionalAuth(testSecret), RequireRecipient(stub), func(c *gin.Context) {
		c.String(http.StatusOK, RecipientID(c))
	})
	return r
}

func do(r http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterToken(t *testing.T) {
	t.Run("authenticated", func(t *testing.T) {
		stub := &stubTokens{}
		w := do(newRouter(stub), http.MethodPost, "/push/tokens", `{"token":"t1","platform":"web"}`,
			map[string]string{"Authorization": "Bearer " + signToken(t, "u1", time.Hour)})

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "u1", stub.lastReg.UserID)

		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "u1", body["recipientId"])
		assert.NotContains(t, body, "deviceId")
	})

	t.Run("guest uses device header", func(t *testing.T) {
		stub := &stubTokens{}
		w := do(newRouter(stub), http.MethodPost, "/push/tokens", `{"token":"t1","platform":"android"}`,
			map[string]string{DeviceHeader: "dev-9"})

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "dev-9", stub.lastReg.DeviceID)
		assert.Contains(t, w.Body.String(), `"deviceId":"generated"`)
	})

	t.Run("missing fields", func(t *testing.T) {
		w := do(newRouter(&stubTokens{}), http.MethodPost, "/push/tokens", `{"token":"t1"}`, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("bad platform", func(t *testing.T) {
		w := do(newRouter(&stubTokens{}), http.MethodPost, "/push/tokens", `{"token":"t1","platform":"pager"}`, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		w := do(newRouter(&stubTokens{}), http.MethodPost, "/push/tokens", `{"token":"t1","platform":"web"}`,
			map[string]string{"Authorization": "Bearer " + signToken(t, "u1", -time.Minute)})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestUnregisterToken(t *testing.T) {
	stub := &stubTokens{}
	w := do(newRouter(stub), http.MethodDelete, "/push/tokens", `{"token":"t1","deviceId":"d1"}`, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"|d1|t1"}, stub.unregister)
}

func TestRequireRecipient(t *testing.T) {
	stub := &stubTokens{guests: map[string]string{"d1": "g1"}}
	r := newRouter(stub)

	w := do(r, http.MethodGet, "/me", "", map[string]string{DeviceHeader: "d1"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "g1", w.Body.String())

	w = do(r, http.MethodGet, "/me", "", map[string]string{"Authorization": "Bearer " + signToken(t, "u7", time.Hour)})
	assert.Equal(t, "u7", w.Body.String())

	w = do(r, http.MethodGet, "/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
