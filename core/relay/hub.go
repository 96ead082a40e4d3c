package relay

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"SyncBeat/core/protocol"
	"SyncBeat/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 64 * 1024
	sendBufferSize = 256
)

// Client 一个成员的 WebSocket 连接
type Client struct {
	Hub      *RoomHub
	Conn     *websocket.Conn
	Send     chan []byte
	RoomID   string
	MemberID string
}

// NewClient 创建客户端，Send 缓冲由 Hub 统一设置
func NewClient(hub *RoomHub, conn *websocket.Conn, roomID, memberID string) *Client {
	return &Client{
		Hub:      hub,
		Conn:     conn,
		Send:     make(chan []byte, sendBufferSize),
		RoomID:   roomID,
		MemberID: memberID,
	}
}

// RoomHub 中继：按房间码转发帧，不解析业务状态
type RoomHub struct {
	// 房间 -> 客户端集合
	rooms map[string]map[*Client]bool

	// 成员 -> 客户端（一个成员在一个房间只能有一个连接）
	memberClients map[string]*Client // key: roomID:memberID

	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage

	mu   sync.RWMutex
	done chan struct{}
}

// BroadcastMessage 广播消息
type BroadcastMessage struct {
	RoomID    string
	Message   []byte
	ExcludeID string // 不向发送者回发
}

// RoomInfo 房间在线概况
type RoomInfo struct {
	Code    string `json:"code"`
	Members int    `json:"members"`
}

// NewRoomHub 创建房间 Hub
func NewRoomHub() *RoomHub {
	return &RoomHub{
		rooms:         make(map[string]map[*Client]bool),
		memberClients: make(map[string]*Client),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		broadcast:     make(chan *BroadcastMessage, 256),
		done:          make(chan struct{}),
	}
}

// Run 启动 Hub 主循环
func (h *RoomHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.broadcastToRoom(msg)

		case <-h.done:
			h.cleanup()
			return
		}
	}
}

// Stop 停止 Hub
func (h *RoomHub) Stop() {
	close(h.done)
}

func (h *RoomHub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	roomID := client.RoomID
	key := memberKey(roomID, client.MemberID)

	// 同一成员重连时踢掉旧连接
	if old, exists := h.memberClients[key]; exists {
		h.removeClient(old)
	}

	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Client]bool)
	}
	h.rooms[roomID][client] = true
	h.memberClients[key] = client

	logger.Info("relay client registered",
		logger.String("room", roomID),
		logger.String("member", client.MemberID),
		logger.Int("clients", len(h.rooms[roomID])))
}

func (h *RoomHub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeClient(client)
}

// removeClient 需要持有锁
func (h *RoomHub) removeClient(client *Client) {
	roomID := client.RoomID

	clients, ok := h.rooms[roomID]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	close(client.Send)
	if len(clients) == 0 {
		delete(h.rooms, roomID)
	}

	key := memberKey(roomID, client.MemberID)
	if h.memberClients[key] == client {
		delete(h.memberClients, key)
	}

	logger.Info("relay client unregistered",
		logger.String("room", roomID),
		logger.String("member", client.MemberID))
}

func (h *RoomHub) broadcastToRoom(msg *BroadcastMessage) {
	h.mu.RLock()
	clients, ok := h.rooms[msg.RoomID]
	if !ok {
		h.mu.RUnlock()
		return
	}
	clientList := make([]*Client, 0, len(clients))
	for client := range clients {
		clientList = append(clientList, client)
	}
	h.mu.RUnlock()

	var slow []*Client
	for _, client := range clientList {
		if msg.ExcludeID != "" && client.MemberID == msg.ExcludeID {
			continue
		}
		select {
		case client.Send <- msg.Message:
		default:
			slow = append(slow, client)
		}
	}

	// 发送缓冲区满的客户端直接断开，它重连后会重新请求同步
	for _, client := range slow {
		logger.Warn("relay send buffer full, dropping client",
			logger.String("room", client.RoomID),
			logger.String("member", client.MemberID))
		h.unregisterClient(client)
	}
}

func (h *RoomHub) cleanup() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, clients := range h.rooms {
		for client := range clients {
			close(client.Send)
		}
	}
	h.rooms = make(map[string]map[*Client]bool)
	h.memberClients = make(map[string]*Client)
}

func memberKey(roomID, memberID string) string {
	return fmt.Sprintf("%s:%s", roomID, memberID)
}

// Register 注册客户端
func (h *RoomHub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

// Unregister 注销客户端
func (h *RoomHub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast 转发到房间内除发送者外的所有连接
func (h *RoomHub) Broadcast(roomID string, message []byte, excludeMemberID string) {
	select {
	case h.broadcast <- &BroadcastMessage{RoomID: roomID, Message: message, ExcludeID: excludeMemberID}:
	case <-h.done:
	}
}

// RoomClientCount 房间连接数
func (h *RoomHub) RoomClientCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.rooms[roomID])
}

// Rooms 所有有连接的房间，按房间码排序
func (h *RoomHub) Rooms() []RoomInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()

	infos := make([]RoomInfo, 0, len(h.rooms))
	for code, clients := range h.rooms {
		infos = append(infos, RoomInfo{Code: code, Members: len(clients)})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Code < infos[j].Code })
	return infos
}

// ========== Client 方法 ==========

// ReadPump 读取帧并转发；帧格式不对的直接丢弃，未知类型照常转发
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.Warn("websocket read error",
					logger.ErrorField(err),
					logger.String("room", c.RoomID),
					logger.String("member", c.MemberID))
			}
			return
		}

		if _, err := protocol.Decode(message); err != nil && !errors.Is(err, protocol.ErrUnknownType) {
			logger.Warn("invalid message format",
				logger.ErrorField(err),
				logger.String("room", c.RoomID),
				logger.String("member", c.MemberID))
			continue
		}

		c.Hub.Broadcast(c.RoomID, message, c.MemberID)
	}
}

// WritePump 每帧一条消息，定时 ping 保活
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub 关闭了通道
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
