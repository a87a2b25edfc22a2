package collab

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
	sendBuffer   = 256

	// Operations carry whole entity versions with their properties.
	maxMessageSize = 1 << 20
)

// Client is one websocket connection to a chart room. Messages queued with
// Send are written in order by WritePump.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	out  chan *Message

	UserID      string
	DisplayName string
	ChartID     string
	ClientID    string

	mu     sync.Mutex
	closed bool
}

func NewClient(hub *Hub, conn *websocket.Conn, userID, displayName, chartID, clientID string) *Client {
	return &Client{
		hub:         hub,
		conn:        conn,
		out:         make(chan *Message, sendBuffer),
		UserID:      userID,
		DisplayName: displayName,
		ChartID:     chartID,
		ClientID:    clientID,
	}
}

// ReadPump hands incoming messages to the hub, stamped with the client's
// identity, until the connection drops or a frame is not a valid message.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()
	c.conn.SetReadLimit(maxMessageSize)

	for {
		var msg Message
		if err := wsjson.Read(ctx, c.conn, &msg); err != nil {
			if websocket.CloseStatus(err) == -1 && !errors.Is(err, context.Canceled) {
				slog.Debug("room read failed", "error", err, "client", c.ClientID, "chart", c.ChartID)
			}
			return
		}
		msg.UserID = c.UserID
		msg.ClientID = c.ClientID
		msg.ChartID = c.ChartID
		c.hub.handleMessage(c, &msg)
	}
}

// WritePump writes queued messages and keeps the connection alive with
// pings. It closes the connection once the queue is closed and drained.
func (c *Client) WritePump(ctx context.Context) {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case msg, ok := <-c.out:
			if !ok {
				c.conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			if err := c.write(ctx, msg); err != nil {
				slog.Debug("room write failed", "error", err, "client", c.ClientID, "type", msg.Type)
				c.conn.Close(websocket.StatusInternalError, "write failed")
				return
			}
		case <-ping.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) write(ctx context.Context, msg *Message) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, c.conn, msg)
}

// Send queues msg for the client. The same message may be queued for many
// clients, so it must not be modified afterwards. A slow client that fills
// its queue misses messages rather than stalling the room.
func (c *Client) Send(msg *Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.out <- msg:
	default:
		slog.Warn("room client queue full, dropping message", "client", c.ClientID, "type", msg.Type)
	}
}

// closeSend ends WritePump once queued messages are written.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.out)
	}
}
