package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

// MessageHandler is a function that handles incoming messages.
type MessageHandler func(client *Client, msg *Message)

// DisconnectHandler runs once when the client's read pump exits.
type DisconnectHandler func(client *Client)

// Client represents one connected browser tab.
type Client struct {
	Hub          *Hub
	Conn         *websocket.Conn
	ConnectionID string
	Send         chan []byte

	closeMu sync.Mutex
	closed  bool

	onDisconnect DisconnectHandler
}

// NewClient creates a new client.
func NewClient(hub *Hub, conn *websocket.Conn, connectionID string) *Client {
	return &Client{
		Hub:          hub,
		Conn:         conn,
		ConnectionID: connectionID,
		Send:         make(chan []byte, 256),
	}
}

// SetOnDisconnect installs the disconnect callback.
func (c *Client) SetOnDisconnect(fn DisconnectHandler) {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	c.onDisconnect = fn
}

func (c *Client) disconnectHandler() DisconnectHandler {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	return c.onDisconnect
}

// Close closes the client connection.
func (c *Client) Close() {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
	if c.Conn != nil {
		c.Conn.Close()
	}
}

// IsClosed returns whether the client is closed.
func (c *Client) IsClosed() bool {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	return c.closed
}

// SendMessage queues a message for this client. The lock is held
// across the channel send so a concurrent Close cannot close the
// channel underneath it.
func (c *Client) SendMessage(msg *Message) error {
	bytes, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if c.closed {
		return nil
	}

	select {
	case c.Send <- bytes:
		return nil
	default:
		return ErrChannelFull
	}
}

// WritePump pumps queued messages to the websocket connection and
// keeps the connection alive with pings.
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
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Debug().Err(err).Str("conn", c.ConnectionID).Msg("write error")
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

// ReadPump pumps messages from the websocket connection to the
// handler. It runs in the per-connection goroutine; on exit the
// disconnect callback fires and the client unregisters.
func (c *Client) ReadPump(handler MessageHandler) {
	defer func() {
		if callback := c.disconnectHandler(); callback != nil {
			callback(c)
		}
		c.Hub.Unregister(c)
		c.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Debug().Err(err).Str("conn", c.ConnectionID).Msg("websocket read error")
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Warn().Err(err).Str("conn", c.ConnectionID).Msg("malformed message")
			continue
		}

		handler(c, &msg)
	}
}

// HubError is a sentinel transport error.
type HubError string

func (e HubError) Error() string { return string(e) }

const (
	ErrChannelFull HubError = "send channel full"
)
