package chat

import (
	"net"
	"net/http"

	"LinkChat/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type Server struct {
	reg      *Registry
	sendQLen int
}

func NewServer(reg *Registry, sendQLen int) *Server {
	return &Server{reg: reg, sendQLen: sendQLen}
}

func (s *Server) Registry() *Registry { return s.reg }

// HandleWS upgrades GET /ws?userId=<id> and keeps the connection registered for
// its lifetime. Clients emit no custom events; the read loop exists to detect
// close and to drain pings.
func (s *Server) HandleWS(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "userId required"})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[HandleWS] upgrade websocket error: %v", err)
		return
	}

	connID := uuid.NewString()
	client := NewClient(connID, userID, ws, s.sendQLen)
	go client.WritePump()

	ctx := c.Request.Context()
	s.reg.Connect(ctx, userID, client)
	logger.Infof("[HandleWS] connected user=%s conn=%s", userID, connID)

	defer func() {
		client.Close()
		// stale guard inside Disconnect handles the superseded case
		s.reg.Disconnect(ctx, userID, client)
		logger.Infof("[HandleWS] disconnected user=%s conn=%s", userID, connID)
	}()

	for {
		mt, data, rerr := ws.ReadMessage()
		if rerr != nil {
			if websocket.IsCloseError(rerr,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[WS] peer closed user=%s conn=%s", userID, connID)
			} else if ne, ok := rerr.(net.Error); ok && ne.Timeout() {
				logger.Infof("[WS] read timeout user=%s conn=%s err=%v", userID, connID, rerr)
			} else {
				logger.Infof("[WS] read err user=%s conn=%s err=%v", userID, connID, rerr)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		if len(data) > 0 {
			logger.Debug("[WS] ignoring inbound frame; clients emit no custom events")
		}
	}
}
