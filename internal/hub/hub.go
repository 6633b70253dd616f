package hub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/abdulaziz-backend/pixelpainter/internal/domain"
	"github.com/abdulaziz-backend/pixelpainter/internal/dto"
	"github.com/abdulaziz-backend/pixelpainter/internal/service"

	"github.com/sirupsen/logrus"
)

// 包级别的 WebSocket 常量，供 hub 和 client 使用
const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 1024

	// 单个指针事件在会话事件循环中的最长等待时间
	actionTimeout = 5 * time.Second
)

// HubMessage 定义了在 Hub 内部通道传递的消息类型
type HubMessage struct {
	Type      string  // "register", "unregister", "action", "session_closed"
	SessionID string  // 会话 ID
	Client    *Client // register/unregister/action 关联的 client
	RawData   []byte  // 仅用于 action (原始 WebSocket 消息)
}

// Hub 维护活跃客户端集合，把指针事件交给会话处理，并把会话的变更推送给所有观察者
type Hub struct {
	// 内部通道，处理所有来自 Client 的事件
	messageChan chan HubMessage
	quit        chan struct{}
	stopOnce    sync.Once

	// 客户端集合，按会话组织
	// map[sessionID]map[*Client]bool
	sessions   map[string]map[*Client]bool
	sessionsMu sync.RWMutex

	// 每个有观察者的会话对应一个订阅。只在 Run 中访问。
	subscriptions map[string]*subscription
}

// subscription 是 Hub 对一个会话的监听：变更监听器加上等待会话关闭的 goroutine
type subscription struct {
	unsubscribe func()
	stop        chan struct{} // 关闭后监听 goroutine 退出
}

// NewHub 创建并返回一个新的 Hub 实例
func NewHub() *Hub {
	return &Hub{
		messageChan:   make(chan HubMessage, 512),
		quit:          make(chan struct{}),
		sessions:      make(map[string]map[*Client]bool),
		subscriptions: make(map[string]*subscription),
	}
}

// Run 启动 Hub 的主事件处理循环。
// 它应该在一个单独的 goroutine 中运行，Stop 之后返回。
func (h *Hub) Run() {
	log := logrus.WithField("component", "hub")
	log.Info("Hub is running...")

	for {
		select {
		case msg := <-h.messageChan:
			switch msg.Type {
			case "register":
				h.registerClient(msg.Client)
			case "unregister":
				h.unregisterClient(msg.Client)
			case "action":
				// 同步处理：同一会话的指针事件必须按到达顺序执行
				h.handleClientAction(msg)
			case "session_closed":
				h.closeSession(msg.SessionID)
			default:
				log.Warnf("Hub: Received unknown message type: %s for session %s", msg.Type, msg.SessionID)
			}
		case <-h.quit:
			h.StopAllSubscriptions()
			log.Info("Hub is shutting down...")
			return
		}
	}
}

// Stop 结束 Run 循环
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.quit) })
}

// registerClient 处理客户端注册逻辑
func (h *Hub) registerClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: Attempted to register a nil client")
		return
	}
	sessionID := client.SessionID()
	logCtx := logrus.WithFields(logrus.Fields{
		"session_id": sessionID,
		"action":     "registerClient",
	})

	h.sessionsMu.Lock()
	_, watched := h.sessions[sessionID]
	if !watched {
		h.sessions[sessionID] = make(map[*Client]bool)
	}
	h.sessions[sessionID][client] = true
	h.sessionsMu.Unlock()

	if !watched {
		h.watchSession(client.session)
		logCtx.Info("Subscribed to session changes")
	}
	logCtx.Info("Client registered to Hub")

	go h.sendInitialState(client)
}

// watchSession 订阅会话的变更，并在会话关闭时通知 Hub
func (h *Hub) watchSession(session *service.Session) {
	sessionID := session.ID()
	sub := &subscription{stop: make(chan struct{})}
	sub.unsubscribe = session.Subscribe(func(change domain.Change, state domain.EditorState) {
		// 运行在会话的事件循环中，只做序列化和非阻塞投递
		payload, err := json.Marshal(dto.FrameForChange(change, state))
		if err != nil {
			logrus.WithError(err).WithField("session_id", sessionID).Error("Failed to marshal change frame")
			return
		}
		h.broadcast(sessionID, payload)
	})
	h.subscriptions[sessionID] = sub

	go func() {
		select {
		case <-session.Done():
			h.QueueMessage(HubMessage{Type: "session_closed", SessionID: sessionID})
		case <-sub.stop:
		case <-h.quit:
		}
	}()
}

// unregisterClient 处理客户端注销逻辑
func (h *Hub) unregisterClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: Attempted to unregister a nil client")
		return
	}
	sessionID := client.SessionID()
	logCtx := logrus.WithFields(logrus.Fields{
		"session_id": sessionID,
		"action":     "unregisterClient",
	})

	h.sessionsMu.Lock()
	clients, ok := h.sessions[sessionID]
	if !ok || !clients[client] {
		h.sessionsMu.Unlock()
		logCtx.Debug("Client already removed")
		return
	}
	delete(clients, client)
	// 关闭 send 通道，WritePump 随之退出
	close(client.send)
	empty := len(clients) == 0
	if empty {
		delete(h.sessions, sessionID)
	}
	h.sessionsMu.Unlock()

	if empty {
		h.stopSubscription(sessionID)
		logCtx.Info("No observers left, unsubscribed from session")
	}
	logCtx.Info("Client unregistered from Hub")
}

// closeSession 在会话被关闭后断开它的所有客户端
func (h *Hub) closeSession(sessionID string) {
	h.sessionsMu.Lock()
	clients := h.sessions[sessionID]
	delete(h.sessions, sessionID)
	for client := range clients {
		close(client.send)
	}
	h.sessionsMu.Unlock()

	h.stopSubscription(sessionID)
	logrus.WithFields(logrus.Fields{
		"session_id":   sessionID,
		"client_count": len(clients),
	}).Info("Session closed, clients disconnected")
}

// stopSubscription 取消会话的变更监听，并让对应的关闭监听 goroutine 退出
func (h *Hub) stopSubscription(sessionID string) {
	sub, ok := h.subscriptions[sessionID]
	if !ok {
		return
	}
	sub.unsubscribe()
	close(sub.stop)
	delete(h.subscriptions, sessionID)
}

// StopAllSubscriptions 取消所有会话监听器
func (h *Hub) StopAllSubscriptions() {
	for sessionID := range h.subscriptions {
		h.stopSubscription(sessionID)
	}
}

// sendInitialState 把当前完整状态发送给新连接的客户端
func (h *Hub) sendInitialState(client *Client) {
	logCtx := logrus.WithFields(logrus.Fields{
		"session_id": client.SessionID(),
		"operation":  "sendInitialState",
	})

	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()
	state, err := client.session.State(ctx)
	if err != nil {
		logCtx.WithError(err).Warn("Failed to read session state")
		h.sendTo(client, mustMarshal(dto.NewError("Failed to load editor state")))
		return
	}

	if h.sendTo(client, mustMarshal(dto.NewState(state))) {
		logCtx.WithField("version", state.Version).Debug("State frame sent to client channel")
	} else {
		logCtx.Warn("Client send channel full when trying to send state, message dropped")
	}
}

// handleClientAction 把客户端的指针事件交给会话执行
func (h *Hub) handleClientAction(msg HubMessage) {
	logCtx := logrus.WithFields(logrus.Fields{
		"session_id": msg.SessionID,
		"operation":  "handleClientAction",
	})

	var pm dto.PointerMessage
	if err := json.Unmarshal(msg.RawData, &pm); err != nil {
		logCtx.WithError(err).Debug("Malformed pointer message")
		h.sendTo(msg.Client, mustMarshal(dto.NewError("malformed pointer message")))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()
	// 变更帧由会话监听器广播，这里只需要处理错误
	if _, err := msg.Client.session.HandlePointer(ctx, pm.Event()); err != nil {
		if errors.Is(err, service.ErrSessionClosed) {
			return
		}
		logCtx.WithError(err).Debug("Pointer event rejected")
		h.sendTo(msg.Client, mustMarshal(dto.NewError(err.Error())))
	}
}

// broadcast 将消息发送给会话的所有客户端
func (h *Hub) broadcast(sessionID string, message []byte) {
	// 在持有读锁期间投递，保证不会向已关闭的 send 通道写入
	h.sessionsMu.RLock()
	defer h.sessionsMu.RUnlock()

	for client := range h.sessions[sessionID] {
		// 使用非阻塞发送，避免单个慢客户端阻塞会话的事件循环
		select {
		case client.send <- message:
		default:
			logrus.WithField("session_id", sessionID).Warn("Client send channel full during broadcast, skipping this client")
		}
	}
}

// sendTo 向单个仍然注册着的客户端投递消息 (非阻塞)
func (h *Hub) sendTo(client *Client, message []byte) bool {
	h.sessionsMu.RLock()
	defer h.sessionsMu.RUnlock()
	if !h.sessions[client.SessionID()][client] {
		return false
	}
	select {
	case client.send <- message:
		return true
	default:
		return false
	}
}

// ClientCount 返回会话当前的观察者数量
func (h *Hub) ClientCount(sessionID string) int {
	h.sessionsMu.RLock()
	defer h.sessionsMu.RUnlock()
	return len(h.sessions[sessionID])
}

// QueueMessage 将消息放入 Hub 的处理队列 (非阻塞)。
// 返回 true 如果消息成功入队，false 如果队列已满或 Hub 已停止。
func (h *Hub) QueueMessage(msg HubMessage) bool {
	select {
	case <-h.quit:
		return false
	default:
	}
	select {
	case h.messageChan <- msg:
		return true
	default:
		logrus.WithFields(logrus.Fields{
			"message_type": msg.Type,
			"session_id":   msg.SessionID,
		}).Warn("Hub message channel full, dropping message")
		return false
	}
}

func mustMarshal(v interface{}) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
