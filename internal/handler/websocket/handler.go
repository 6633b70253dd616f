package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/abdulaziz-backend/pixelpainter/internal/hub"
	"github.com/abdulaziz-backend/pixelpainter/internal/middleware"
	"github.com/abdulaziz-backend/pixelpainter/internal/service"
)

// WebSocketHandler 负责处理 WebSocket 升级请求和客户端注册
type WebSocketHandler struct {
	upgrader websocket.Upgrader
	hub      *hub.Hub
	sessions *service.SessionService
}

// NewWebSocketHandler 创建 WebSocketHandler 实例。
// allowedOrigin 为空时只允许同源连接。
func NewWebSocketHandler(h *hub.Hub, sessions *service.SessionService, allowedOrigin string) *WebSocketHandler {
	if h == nil {
		panic("Hub cannot be nil for WebSocketHandler")
	}
	if sessions == nil {
		panic("SessionService cannot be nil for WebSocketHandler")
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	if allowedOrigin != "" {
		upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || origin == allowedOrigin
		}
	}

	return &WebSocketHandler{
		upgrader: upgrader,
		hub:      h,
		sessions: sessions,
	}
}

// HandleConnection 处理 WebSocket 连接请求
// URL 预期格式: /ws/session?token=...
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	// 1. 获取认证的会话 ID (由 Auth 中间件设置)
	sessionID := c.GetString(middleware.SessionIDKey)
	if sessionID == "" {
		logrus.Warn("WS Handler: Session ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Session not authenticated"})
		return
	}
	logCtx := logrus.WithField("session_id", sessionID)

	// 2. 确认会话仍然存活
	session, err := h.sessions.Get(c.Request.Context(), sessionID)
	if err != nil {
		logCtx.WithError(err).Warn("WS Handler: Session not found")
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	// 3. 升级 HTTP 连接到 WebSocket
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 已经写回了 HTTP 错误响应
		logCtx.WithError(err).Error("WS Handler: Failed to upgrade connection")
		return
	}
	logCtx.Info("WS Handler: Connection upgraded to WebSocket")

	// 4. 注册到 Hub 并启动读写 goroutine
	client := hub.NewClient(h.hub, conn, session)
	if !h.hub.QueueMessage(hub.HubMessage{Type: "register", SessionID: sessionID, Client: client}) {
		logCtx.Error("WS Handler: Hub message channel full, failed to register client")
		client.CloseConn()
		return
	}
	client.Run()
	logCtx.Info("WS Handler: Client read/write pumps started")
}
