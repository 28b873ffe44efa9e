package gateway

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/to404hanga/online_judge_duel/pkg/identity"
	"github.com/to404hanga/online_judge_duel/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 256 << 10
	sendBufferSize = 64
)

// Client 一条对战连接; identity 来自握手令牌, userID 在 exchangeId 后绑定
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	identity *identity.Identity
	log      logger.Logger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	mu     sync.RWMutex
	userID string
}

func newClient(hub *Hub, conn *websocket.Conn, id *identity.Identity, log logger.Logger) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		identity: id,
		log:      log,
		send:     make(chan []byte, sendBufferSize),
		done:     make(chan struct{}),
	}
}

// UserID exchangeId 之前为空
func (c *Client) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

func (c *Client) bind(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = userID
}

// Identity 握手时校验通过的身份
func (c *Client) Identity() *identity.Identity {
	return c.identity
}

func (c *Client) enqueue(frame []byte) {
	select {
	case <-c.done:
	case c.send <- frame:
	default:
		c.log.Warn("client send buffer full, dropping frame", logger.String("user_id", c.UserID()))
	}
}

// Reply 向本连接发送事件
func (c *Client) Reply(event string, data any) {
	frame, err := encodeFrame(event, data)
	if err != nil {
		c.log.Error("Reply failed at encode frame", logger.Error(err), logger.String("event", event))
		return
	}
	c.enqueue(frame)
}

// Close 关闭连接, 可重复调用
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// readPump 逐帧读取并交给 dispatcher, 返回断开原因
func (c *Client) readPump(ctx context.Context, d *Dispatcher) string {
	defer c.Close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, msg, err := c.conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			switch {
			case errors.As(err, &closeErr):
				return "closed"
			case errors.Is(err, websocket.ErrReadLimit):
				return "read_limit"
			}
			select {
			case <-c.done:
				return "shutdown"
			default:
			}
			c.log.InfoContext(ctx, "read frame failed", logger.Error(err))
			return "read_error"
		}
		if msgType != websocket.TextMessage {
			continue
		}
		d.Dispatch(ctx, c, msg)
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		}
	}
}
