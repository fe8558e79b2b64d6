package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolioParadise/internal/auth"
)

func TestWsHandler_RejectsBadAuthFrame(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens := tokenTable{"valid": {AccountID: uuid.New(), Role: auth.RoleStudent}}
	h := NewWsHandler(nil, tokens, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)

	r := gin.New()
	r.GET("/ws", h.HandleConnection)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	cases := []struct {
		name   string
		frame  string
		reason string
	}{
		{"not json", "hello", "invalid auth payload"},
		{"wrong type", `{"type":"subscribe","token":"valid"}`, "auth required"},
		{"missing token", `{"type":"auth"}`, "auth required"},
		{"unknown token", `{"type":"auth","token":"forged"}`, "unauthorized"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
			require.NoError(t, err)
			defer conn.Close()

			require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(tc.frame)))
			_, _, err = conn.ReadMessage()

			var closeErr *websocket.CloseError
			require.True(t, errors.As(err, &closeErr), "expected close frame, got %v", err)
			assert.Equal(t, websocket.ClosePolicyViolation, closeErr.Code)
			assert.Equal(t, tc.reason, closeErr.Text)
		})
	}
}

func TestOriginChecker(t *testing.T) {
	req := func(host, origin string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "http://"+host+"/api/v1/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}

	sameOrigin := originChecker(nil)
	assert.True(t, sameOrigin(req("portfolio.test", "")))
	assert.True(t, sameOrigin(req("portfolio.test", "https://PORTFOLIO.test")))
	assert.False(t, sameOrigin(req("portfolio.test", "https://evil.test")))

	listed := originChecker([]string{"https://app.portfolio.test"})
	assert.True(t, listed(req("api.portfolio.test", "https://app.portfolio.test")))
	assert.False(t, listed(req("api.portfolio.test", "https://portfolio.test")))
}
