package transport

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"SyncBeat/logger"

	"github.com/gorilla/websocket"
)

const (
	relayWriteWait = 10 * time.Second
	relayPongWait  = 60 * time.Second
)

// RelayTransport 连接 `syncbeat relay` 的 WebSocket 客户端
type RelayTransport struct {
	baseURL string
	dialer  *websocket.Dialer
}

// NewRelayTransport baseURL 形如 ws://127.0.0.1:8765
func NewRelayTransport(baseURL string) *RelayTransport {
	return &RelayTransport{baseURL: strings.TrimRight(baseURL, "/"), dialer: websocket.DefaultDialer}
}

// RelayURL 拼出房间的 WebSocket 地址
func RelayURL(baseURL, roomCode, memberID string) string {
	return fmt.Sprintf("%s/ws/%s?member=%s", strings.TrimRight(baseURL, "/"), url.PathEscape(roomCode), url.QueryEscape(memberID))
}

func (t *RelayTransport) Join(ctx context.Context, roomCode, memberID string) (Channel, error) {
	target := RelayURL(t.baseURL, roomCode, memberID)
	conn, _, err := t.dialer.DialContext(ctx, target, nil)
	if err != nil {
		return nil, fmt.Errorf("dial relay %s: %w", target, err)
	}

	ch := &relayChannel{conn: conn, room: roomCode, inbox: make(chan []byte, inboxSize)}
	go ch.readPump()
	return ch, nil
}

type relayChannel struct {
	conn      *websocket.Conn
	room      string
	inbox     chan []byte
	writeMu   sync.Mutex
	closeOnce sync.Once
}

// readPump 读取中继转发的帧；服务端的 ping 由默认处理器回 pong
func (c *relayChannel) readPump() {
	defer close(c.inbox)

	c.conn.SetReadDeadline(time.Now().Add(relayPongWait))
	c.conn.SetPingHandler(func(appData string) error {
		c.conn.SetReadDeadline(time.Now().Add(relayPongWait))
		err := c.conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(relayWriteWait))
		if err == websocket.ErrCloseSent {
			return nil
		}
		return err
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("relay read error", logger.ErrorField(err), logger.String("room", c.room))
			}
			return
		}
		select {
		case c.inbox <- message:
		default:
			logger.Warn("relay inbox full, message dropped", logger.String("room", c.room))
		}
	}
}

func (c *relayChannel) Publish(ctx context.Context, payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline := time.Now().Add(relayWriteWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	c.conn.SetWriteDeadline(deadline)
	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("relay write: %w", err)
	}
	return nil
}

func (c *relayChannel) Messages() <-chan []byte { return c.inbox }

func (c *relayChannel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}
