package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/mohammedbilalns/LogIt-sub002/internal/models"
	"github.com/mohammedbilalns/LogIt-sub002/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Connection is one live transport session bound to a user. A user may
// hold several concurrent connections (multi-device); each is owned
// exclusively by the gateway and torn down independently.
type Connection struct {
	id     string
	userID string
	sock   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	gw     *Gateway

	closeOnce sync.Once
}

func newConnection(sock *websocket.Conn, userID string, gw *Gateway, sendBuffer int) *Connection {
	return &Connection{
		id:     uuid.NewString(),
		userID: userID,
		sock:   sock,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
		gw:     gw,
	}
}

func (c *Connection) ID() string {
	return c.id
}

func (c *Connection) UserID() string {
	return c.userID
}

// Enqueue queues a frame for delivery. A full buffer or closing
// connection fails immediately; the caller treats that as a dead
// connection.
func (c *Connection) Enqueue(frame *models.ServerFrame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// close releases the transport. Safe to call more than once.
func (c *Connection) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.sock != nil {
			c.sock.Close()
		}
	})
}

func (c *Connection) readPump() {
	defer c.gw.Disconnect(c.id)

	c.sock.SetReadDeadline(time.Now().Add(c.gw.cfg.PongWait))
	c.sock.SetPongHandler(func(string) error {
		c.sock.SetReadDeadline(time.Now().Add(c.gw.cfg.PongWait))
		return nil
	})

	for {
		_, data, err := c.sock.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Error("WebSocket error on connection %s: %v", c.id, err)
			}
			return
		}

		var frame models.ClientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.gw.sendError(c, models.ErrCodeBadRequest, "malformed frame")
			continue
		}

		c.gw.dispatch(context.Background(), c, &frame)
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(c.gw.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case msg := <-c.send:
			c.sock.SetWriteDeadline(time.Now().Add(c.gw.cfg.WriteDeadline))
			if err := c.sock.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Error("Write error on connection %s: %v", c.id, err)
				return
			}

		case <-ticker.C:
			c.sock.SetWriteDeadline(time.Now().Add(c.gw.cfg.WriteDeadline))
			if err := c.sock.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.sock.SetWriteDeadline(time.Now().Add(c.gw.cfg.WriteDeadline))
			c.sock.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
