package hub

import (
	"time"

	"github.com/abdulaziz-backend/pixelpainter/internal/service"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Client 代表一个观察某个编辑器会话的 WebSocket 连接
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	session *service.Session
	send    chan []byte // 用于向此客户端发送消息的缓冲通道
	log     *logrus.Entry
}

// NewClient 创建一个新的 Client 实例
func NewClient(hub *Hub, conn *websocket.Conn, session *service.Session) *Client {
	return &Client{
		hub:     hub,
		conn:    conn,
		session: session,
		send:    make(chan []byte, 256),
		log:     logrus.WithFields(logrus.Fields{"component": "ws_client", "session_id": session.ID()}),
	}
}

// Run 启动客户端的读写 goroutine
func (c *Client) Run() {
	go c.WritePump()
	go c.ReadPump()
}

// ReadPump 将消息从 WebSocket 连接泵送到 Hub 的 messageChan。
func (c *Client) ReadPump() {
	defer func() {
		// 请求 Hub 注销此客户端，Hub 已停止时直接放弃
		select {
		case c.hub.messageChan <- HubMessage{Type: "unregister", SessionID: c.SessionID(), Client: c}:
		case <-c.hub.quit:
		case <-time.After(1 * time.Second):
			c.log.Warn("Timeout sending unregister message to Hub channel")
		}
		c.conn.Close()
		c.log.Info("readPump exited, unregistered client")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.WithError(err).Warn("WebSocket read error (unexpected close)")
			} else {
				c.log.Debug("WebSocket connection closed normally or read error")
			}
			break
		}

		if messageType != websocket.TextMessage {
			c.log.Debugf("Received non-text message type: %d", messageType)
			continue
		}

		// 指针事件不能丢弃，否则按下/抬起会错位，这里阻塞等待 Hub
		select {
		case c.hub.messageChan <- HubMessage{Type: "action", SessionID: c.SessionID(), Client: c, RawData: message}:
		case <-c.hub.quit:
			return
		}
	}
}

// WritePump 将消息从 Client 的 send 通道泵送到 WebSocket 连接。
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.log.Info("writePump exited")
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// send 通道被 Hub 关闭 (注销或会话结束)
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.log.WithError(err).Warn("Failed to write message to websocket")
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.log.WithError(err).Warn("Failed to send ping message")
				return
			}
		}
	}
}

func (c *Client) SessionID() string { return c.session.ID() }
func (c *Client) CloseConn()        { c.conn.Close() }
