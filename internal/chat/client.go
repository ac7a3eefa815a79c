package chat

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 256
)

var clientIDCounter atomic.Uint64

// MessageHandler is called for every chat message a client sends.
type MessageHandler func(ctx context.Context, text string)

// Client is one websocket connection in the room.
type Client struct {
	id        uint64
	hub       *Hub
	conn      *websocket.Conn
	send      chan Frame
	pong      chan struct{}
	onMessage MessageHandler
}

// NewClient wraps an upgraded connection.
func NewClient(hub *Hub, conn *websocket.Conn, onMessage MessageHandler) *Client {
	return &Client{
		id:        clientIDCounter.Add(1),
		hub:       hub,
		conn:      conn,
		send:      make(chan Frame, sendBuffer),
		pong:      make(chan struct{}, 1),
		onMessage: onMessage,
	}
}

// Start registers the client with the hub and runs its pumps. Registration
// completes before Start returns.
func (c *Client) Start(ctx context.Context) {
	select {
	case c.hub.register <- c:
	case <-ctx.Done():
		_ = c.conn.Close()
		return
	}
	go c.writePump()
	go c.readPump(ctx)
}

func (c *Client) readPump(ctx context.Context) {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-ctx.Done():
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug().Err(err).Uint64("client", c.id).Msg("unexpected websocket close")
			}
			return
		}

		// Anything that is not a typed frame, including valid JSON such as
		// null or {}, is chat text.
		var f Frame
		if err := json.Unmarshal(data, &f); err != nil || f.Type == "" {
			f = Frame{Type: FrameMessage, Data: string(data)}
		}

		switch f.Type {
		case FrameMessage:
			if c.onMessage != nil {
				c.onMessage(ctx, f.Data)
			}
		case FramePing:
			// send is owned by the hub and may already be closed.
			select {
			case c.pong <- struct{}{}:
			default:
			}
		default:
			c.hub.log.Debug().Str("type", f.Type).Uint64("client", c.id).Msg("ignoring unknown frame type")
		}
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
		case f, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				// The hub closed the channel.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			payload, err := MarshalFrame(f)
			if err != nil {
				c.hub.log.Error().Err(err).Msg("failed to encode chat frame")
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-c.pong:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			payload, err := MarshalFrame(Frame{Type: FramePong})
			if err != nil {
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
