package collab

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	// room for a document.replace carrying a whole drawing
	maxMsgSize = 1 << 20
	sendBuffer = 256
)

// Client is one websocket connection inside a pictogram room. Outgoing
// messages are queued on send and written by WritePump until the hub
// closes done.
type Client struct {
	hub         *Hub
	conn        *websocket.Conn
	send        chan *Message
	done        chan struct{}
	closeOnce   sync.Once
	UserID      string
	DisplayName string
	PictogramID string
	ClientID    string
}

func NewClient(hub *Hub, conn *websocket.Conn, userID, displayName, pictogramID, clientID string) *Client {
	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan *Message, sendBuffer),
		done:        make(chan struct{}),
		UserID:      userID,
		DisplayName: displayName,
		PictogramID: pictogramID,
		ClientID:    clientID,
	}
}

// Serve joins the room and pumps messages until the connection ends.
func (c *Client) Serve(ctx context.Context) {
	c.hub.Register(c)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go c.WritePump(ctx)
	c.ReadPump(ctx)
}

func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	c.conn.SetReadLimit(maxMsgSize)

	for {
		typ, data, err := c.conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				slog.Debug("read error", "error", err, "user", c.UserID)
			}
			return
		}
		if typ != websocket.MessageText {
			slog.Warn("ignoring binary message", "user", c.UserID)
			continue
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("invalid message", "error", err, "user", c.UserID)
			c.Send(newMessage(TypeError, ErrorPayload{Message: "invalid message"}))
			continue
		}

		// Identity comes from the connection, never from the payload.
		msg.UserID = c.UserID
		msg.ClientID = c.ClientID
		msg.PictogramID = c.PictogramID

		c.hub.handleMessage(c, &msg)
	}
}

func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case msg := <-c.send:
			if err := c.write(ctx, msg); err != nil {
				slog.Debug("write error", "error", err, "user", c.UserID)
				return
			}

		case <-c.done:
			// flush what was queued before the hub let go, such as a
			// final error message
			for {
				select {
				case msg := <-c.send:
					if c.write(ctx, msg) != nil {
						return
					}
				default:
					return
				}
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
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
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshal message", "error", err, "type", msg.Type)
		return nil
	}
	writeCtx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()
	return c.conn.Write(writeCtx, websocket.MessageText, data)
}

// close stops delivery. It is safe to call more than once.
func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Send queues msg without blocking. A client that stops reading loses
// messages rather than stalling the room.
func (c *Client) Send(msg *Message) {
	if msg == nil {
		return
	}
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- msg:
	default:
		slog.Warn("client send buffer full, dropping message", "user", c.UserID, "type", msg.Type)
	}
}
