package ws

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mmuslimabdulj/pairchat/internal/domain"
	"github.com/mmuslimabdulj/pairchat/internal/logger"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Buffered outbound frames per connection
	sendBufferSize = 256

	// Buffered inbound frames waiting for the handshake or the relay
	inboundBufferSize = 64
)

var (
	// ErrClientClosed is returned when sending to a released client
	ErrClientClosed = errors.New("client closed")

	// ErrSendBufferFull is returned when a slow client's queue is full
	ErrSendBufferFull = errors.New("send buffer full")
)

// Client represents a single websocket connection
type Client struct {
	ID   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	// set by the hub on add; orders the presence roster
	joined uint64

	mu       sync.RWMutex
	identity domain.Identity
	closed   bool

	heartbeat *Heartbeat
	handshake *Handshake
}

// NewClient creates a new, unauthenticated Client
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		ID:   uuid.New().String(),
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
}

// Identity returns the attached identity; zero until the handshake succeeds
func (c *Client) Identity() domain.Identity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.identity
}

// Alive reports the heartbeat liveness flag. Clients without a heartbeat are alive.
func (c *Client) Alive() bool {
	if c.heartbeat == nil {
		return true
	}
	return c.heartbeat.Alive()
}

// attach sets the identity once and tells the hub. Later calls are ignored.
func (c *Client) attach(id domain.Identity) bool {
	c.mu.Lock()
	if !c.identity.IsZero() || id.IsZero() {
		c.mu.Unlock()
		return false
	}
	c.identity = id
	c.mu.Unlock()

	c.hub.Identified(c)
	return true
}

// Send adds a message to the client's send queue without blocking
func (c *Client) Send(msg []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClientClosed
	}
	select {
	case c.send <- msg:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// release stops the heartbeat and closes the send queue; the write pump
// then sends a close frame. Safe to call more than once.
func (c *Client) release() {
	if c.heartbeat != nil {
		c.heartbeat.Stop()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// Close sends a close frame with code and reason and drops the connection.
// The read pump then fails and unregisters the client.
func (c *Client) Close(code int, reason string) {
	if c.conn == nil {
		return
	}
	msg := websocket.FormatCloseMessage(code, reason)
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	_ = c.conn.Close()
}

// ping writes a ping control frame; safe alongside the write pump
func (c *Client) ping() error {
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// ReadPump pumps frames from the websocket connection into inbound. It
// owns unregistration: when it returns the client is gone.
func (c *Client) ReadPump(maxMessageSize int64, inbound chan<- []byte) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("read pump panic", zap.String("conn", c.ID), zap.Any("panic", r))
		}
		close(inbound)
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		if c.heartbeat != nil {
			c.heartbeat.Pong()
		}
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("unexpected close", zap.String("conn", c.ID), zap.Error(err))
			}
			return
		}
		// Never block here: pong handling only runs inside ReadMessage.
		select {
		case inbound <- message:
		default:
			logger.Warn("inbound queue full, dropping frame", zap.String("conn", c.ID))
			frame := domain.ErrorFrame{Error: domain.ErrorBody{
				Code:    domain.ErrorCodeOverloaded,
				Message: "too many pending messages, frame dropped",
			}}
			_ = c.Send(domain.Encode(frame))
		}
	}
}

// WritePump pumps messages from the send queue to the websocket connection
func (c *Client) WritePump() {
	defer c.conn.Close()

	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			logger.Debug("write failed", zap.String("conn", c.ID), zap.Error(err))
			return
		}
	}

	// Hub closed the channel
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
