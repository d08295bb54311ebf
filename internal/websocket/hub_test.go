package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"orderetl/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	claims["exp"] = time.Now().Add(time.Hour).Unix()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)
	return tok
}

func newRouter(hub *Hub) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws", hub.Handler(middleware.NewAuth(testSecret)))
	return r
}

// startHub runs hub on a test server and returns a dial URL without the token
func startHub(t *testing.T, hub *Hub) (string, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	srv := httptest.NewServer(newRouter(hub))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=", cancel
}

func TestHandler_RejectsBadTokens(t *testing.T) {
	tests := []struct {
		name  string
		query string
		code  int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"garbage token", "?token=not-a-jwt", http.StatusUnauthorized},
		{"no role", "?token=" + signed(t, jwt.MapClaims{"sub": "x"}), http.StatusForbidden},
		{"unknown role", "?token=" + signed(t, jwt.MapClaims{"role": "guest"}), http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			newRouter(NewHub()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws"+tt.query, nil))

			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestHub_BroadcastJSON_OneEventPerFrame(t *testing.T) {
	hub := NewHub()
	url, _ := startHub(t, hub)

	conn, _, err := websocket.DefaultDialer.Dial(url+signed(t, jwt.MapClaims{"role": middleware.RoleViewer}), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, hub.BroadcastJSON(map[string]string{"stage": "RATE", "status": "OK"}))
	require.NoError(t, hub.BroadcastJSON(map[string]string{"stage": "CONVERT", "status": "OK"}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, first, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"stage":"RATE","status":"OK"}`, string(first))
	_, second, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"stage":"CONVERT","status":"OK"}`, string(second))
}

func TestHub_RunStopsAndDisconnects(t *testing.T) {
	hub := NewHub()
	url, cancel := startHub(t, hub)

	conn, _, err := websocket.DefaultDialer.Dial(url+signed(t, jwt.MapClaims{"role": middleware.RoleOperator}), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()

	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}

func TestHub_BroadcastJSON_DropsWhenQueueFull(t *testing.T) {
	hub := NewHub() // not running, nothing drains the queue
	for i := 0; i < cap(hub.events); i++ {
		require.NoError(t, hub.BroadcastJSON(i))
	}

	assert.ErrorIs(t, hub.BroadcastJSON("one too many"), ErrHubBusy)
}
