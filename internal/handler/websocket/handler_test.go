package websocket_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wsHandler "github.com/abdulaziz-backend/pixelpainter/internal/handler/websocket"
	"github.com/abdulaziz-backend/pixelpainter/internal/hub"
	"github.com/abdulaziz-backend/pixelpainter/internal/middleware"
	"github.com/abdulaziz-backend/pixelpainter/internal/service"
)

type frame struct {
	Type    string     `json:"type"`
	Version uint64     `json:"version"`
	Col     int        `json:"col"`
	Row     int        `json:"row"`
	Color   string     `json:"color"`
	Width   int        `json:"width"`
	Grid    [][]string `json:"grid"`
	Message string     `json:"message"`
}

func setup(t *testing.T) (*httptest.Server, *service.SessionService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens, err := service.NewTokenService("ws-secret", 1)
	require.NoError(t, err)
	sessions := service.NewSessionService(tokens, service.SessionConfig{})
	h := hub.NewHub()
	go h.Run()

	r := gin.New()
	r.GET("/ws/session", middleware.Auth(tokens), wsHandler.NewWebSocketHandler(h, sessions, "").HandleConnection)
	srv := httptest.NewServer(r)

	t.Cleanup(func() {
		srv.Close()
		h.Stop()
		sessions.CloseAll()
	})
	return srv, sessions
}

func dial(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/session?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var f frame
	require.NoError(t, json.Unmarshal(data, &f))
	return f
}

func TestWebSocket_StateThenCellFrames(t *testing.T) {
	srv, sessions := setup(t)
	session, token, err := sessions.Create(context.Background(), 4, 4)
	require.NoError(t, err)

	conn := dial(t, srv, token)
	state := readFrame(t, conn)
	require.Equal(t, "state", state.Type)
	assert.Equal(t, 4, state.Width)
	assert.Len(t, state.Grid, 4)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "down", "x": 25, "y": 45}))
	cell := readFrame(t, conn)
	assert.Equal(t, "cell", cell.Type)
	assert.Equal(t, 1, cell.Col)
	assert.Equal(t, 2, cell.Row)
	assert.Equal(t, "#ffffff", cell.Color)

	// 其他入口产生的变更同样推送给观察者
	_, err = session.FillAll(context.Background())
	require.NoError(t, err)
	grid := readFrame(t, conn)
	assert.Equal(t, "grid", grid.Type)
	assert.Equal(t, "#ffffff", grid.Grid[3][3])
}

func TestWebSocket_BadMessageGetsErrorFrame(t *testing.T) {
	srv, sessions := setup(t)
	_, token, err := sessions.Create(context.Background(), 2, 2)
	require.NoError(t, err)

	conn := dial(t, srv, token)
	readFrame(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	f := readFrame(t, conn)
	assert.Equal(t, "error", f.Type)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "wiggle"}))
	f = readFrame(t, conn)
	assert.Equal(t, "error", f.Type)
	assert.Contains(t, f.Message, "invalid action")
}

func TestWebSocket_SessionCloseDisconnects(t *testing.T) {
	srv, sessions := setup(t)
	session, token, err := sessions.Create(context.Background(), 2, 2)
	require.NoError(t, err)

	conn := dial(t, srv, token)
	readFrame(t, conn)

	require.NoError(t, sessions.Close(context.Background(), session.ID()))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestWebSocket_RejectsUnknownSession(t *testing.T) {
	srv, _ := setup(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/session?token=bogus"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 401, resp.StatusCode)
}
