package chat

import (
	"sync"
	"time"

	"LinkChat/logger"
	"LinkChat/tools/errs"

	"github.com/gorilla/websocket"
)

const writeDeadline = 5 * time.Second

// Client is one live websocket connection for one user. Frames are queued on Send
// and drained by a single writer goroutine, so socket writes never happen under
// the registry lock and per-receiver order is preserved.
type Client struct {
	ConnID string
	UserID string
	WS     *websocket.Conn
	Send   chan []byte

	closeOnce sync.Once
	closed    chan struct{}
}

func NewClient(connID, userID string, ws *websocket.Conn, sendQueueSize int) *Client {
	if sendQueueSize <= 0 {
		sendQueueSize = 64
	}
	return &Client{
		ConnID: connID,
		UserID: userID,
		WS:     ws,
		Send:   make(chan []byte, sendQueueSize),
		closed: make(chan struct{}),
	}
}

// Emit encodes the event envelope and enqueues it. A full queue drops the frame
// rather than blocking the caller; durability is the store's job, not this path's.
func (c *Client) Emit(event string, data interface{}) error {
	b, err := EncodeFrame(event, data)
	if err != nil {
		return err
	}
	select {
	case <-c.closed:
		return errs.ErrEmission.WithDetail("connection closed conn=" + c.ConnID)
	default:
	}
	select {
	case c.Send <- b:
		WSPushOK.Inc()
		return nil
	default:
		WSPushBackpressure.Inc()
		return errs.ErrEmission.WithDetail("send queue full conn=" + c.ConnID)
	}
}

// Close stops the writer and closes the socket. Safe to call more than once;
// a superseded connection gets closed by the registry while its pumps still run.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.WS.Close()
	})
}

// WritePump drains the send queue onto the socket. One per connection.
func (c *Client) WritePump() {
	for {
		select {
		case <-c.closed:
			return
		case data := <-c.Send:
			if err := c.WS.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
				c.Close()
				return
			}
			if err := c.WS.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Infof("[WS] write err user=%s conn=%s err=%v", c.UserID, c.ConnID, err)
				c.Close()
				return
			}
		}
	}
}
