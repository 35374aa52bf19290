package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"github.com/angelmondragon/parkfinder-backend/pkg/auth"
	"github.com/angelmondragon/parkfinder-backend/pkg/logger"
)

const (
	defaultSendBuffer   = 32
	defaultPingInterval = 30 * time.Second
	writeWait           = 10 * time.Second
	maxMessageBytes     = 4096
)

// ClientOptions tunes a connection's queue and keepalive.
type ClientOptions struct {
	SendBuffer   int
	PingInterval time.Duration
}

func (o ClientOptions) withDefaults() ClientOptions {
	if o.SendBuffer <= 0 {
		o.SendBuffer = defaultSendBuffer
	}
	if o.PingInterval <= 0 {
		o.PingInterval = defaultPingInterval
	}
	return o
}

// Client is one authenticated websocket connection.
type Client struct {
	hub   *Hub
	conn  *websocket.Conn
	send  chan []byte
	actor auth.Actor
	opts  ClientOptions
	logg  *logger.Logger
}

// NewClient wraps an upgraded connection for the given caller.
func NewClient(hub *Hub, conn *websocket.Conn, actor auth.Actor, opts ClientOptions, logg *logger.Logger) *Client {
	opts = opts.withDefaults()
	return &Client{
		hub:   hub,
		conn:  conn,
		send:  make(chan []byte, opts.SendBuffer),
		actor: actor,
		opts:  opts,
		logg:  logg,
	}
}

// Actor returns the caller bound to the connection.
func (c *Client) Actor() auth.Actor {
	return c.actor
}

// Serve registers the client, greets it and pumps frames until the connection ends.
// It blocks for the lifetime of the connection.
func (c *Client) Serve(ctx context.Context) error {
	if err := c.hub.Register(c); err != nil {
		_ = c.conn.Close()
		return err
	}
	c.hub.Send(c, mustEncode(EventAuthenticated, map[string]any{
		"userId": c.actor.UserID.String(),
		"role":   c.actor.Role,
	}))

	go c.writePump()
	c.readPump(ctx)
	return nil
}

func (c *Client) readPump(ctx context.Context) {
	defer c.hub.Unregister(c)

	pongWait := c.opts.PingInterval * 10 / 9
	c.conn.SetReadLimit(maxMessageBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) && c.logg != nil {
				c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "realtime.read_failed")
			}
			return
		}
		c.handle(data)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handle(data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.fail("malformed message")
		return
	}

	switch msg.Event {
	case EventJoinParkingRoom, EventLeaveParkingRoom:
		parkingID, ok := parseParkingID(msg.Data)
		if !ok {
			c.fail("parkingId is required")
			return
		}
		if msg.Event == EventJoinParkingRoom {
			c.hub.Join(c, parkingID)
		} else {
			c.hub.Leave(c, parkingID)
		}
	default:
		c.fail("unknown event " + msg.Event)
	}
}

func (c *Client) fail(message string) {
	c.hub.Send(c, mustEncode(EventError, errorPayload{Message: message}))
}

func mustEncode(event string, data any) []byte {
	payload, err := encode(event, data)
	if err != nil {
		payload, _ = encode(EventError, errorPayload{Message: "encoding failed"})
	}
	return payload
}
