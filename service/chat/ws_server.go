package chat

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"chathub/logger"
	midsec "chathub/middleware/security"
	"chathub/tools/errs"
	"chathub/tools/ids"
	"chathub/tools/safe"
)

var errNilConn = errors.New("nil websocket conn")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HandleWS upgrades an authenticated request and runs the connection's
// read loop until the transport dies. The auth middleware has already
// verified the token and stashed the identity in the gin context.
func (s *Server) HandleWS(c *gin.Context) {
	userID := c.GetString(midsec.CtxUserIDKey)
	if userID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrTokenInvalid)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[ws] upgrade failed user=%s err=%v", userID, err)
		return
	}

	client := NewClient(ids.GenerateString(), userID, ws)
	if prev := s.reg.Register(client); prev != nil {
		// A second connection under the same identity displaces the
		// first: the old transport is told why and force-closed.
		logger.Infof("[ws] user=%s reconnected, closing conn=%s", userID, prev.ConnID)
		if prev.WS != nil {
			_ = prev.WS.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "session replaced"),
				time.Now().Add(writeWait))
		}
		s.disconnect(prev, "session replaced")
	}

	ws.SetPongHandler(func(string) error {
		client.markAlive()
		if s.deps.Presence != nil {
			// Keep the external presence TTL fresh off the read path.
			safe.Go(func() {
				ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
				defer cancel()
				s.deps.Presence.SetOnline(ctx, userID, true)
			})
		}
		return nil
	})

	if s.deps.Presence != nil {
		safe.Go(func() {
			ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
			defer cancel()
			s.deps.Presence.SetOnline(ctx, userID, true)
		})
	}
	logger.Infof("[ws] connected user=%s conn=%s remote=%s", userID, client.ConnID, ws.RemoteAddr())

	go s.writePump(client)
	s.readLoop(client)
}

// readLoop consumes inbound frames sequentially, so a single sender's
// envelopes are handled in receipt order. Exiting for any reason runs the
// disconnect path.
func (s *Server) readLoop(c *Client) {
	defer s.disconnect(c, "transport closed")
	for {
		mt, data, err := c.WS.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[ws] peer closed user=%s conn=%s", c.UserID, c.ConnID)
			} else if ne, ok := err.(net.Error); ok && ne.Timeout() {
				logger.Infof("[ws] read timeout user=%s conn=%s err=%v", c.UserID, c.ConnID, err)
			} else {
				logger.Infof("[ws] read err user=%s conn=%s err=%v", c.UserID, c.ConnID, err)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		env, perr := ParseEnvelope(data)
		if perr != nil {
			logger.Infof("[ws] bad frame user=%s len=%d err=%v", c.UserID, len(data), perr)
			s.sendError(c, errs.ErrMalformedMessage)
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
		s.router.Dispatch(ctx, c, env)
		cancel()
	}
}

// writePump is the single writer for one connection. It drains the Send
// queue until teardown closes it, then emits a close frame best-effort.
func (s *Server) writePump(c *Client) {
	for payload := range c.Send {
		if err := writeText(c.WS, payload, writeWait); err != nil {
			logger.Infof("[ws] write failed user=%s conn=%s err=%v", c.UserID, c.ConnID, err)
			s.disconnect(c, "write failure")
			for range c.Send {
				// Drain until teardown closes the channel.
			}
			return
		}
	}
	if c.WS != nil {
		_ = c.WS.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
	}
}

func writeText(conn *websocket.Conn, data []byte, d time.Duration) error {
	if conn == nil {
		return errs.Wrap(errNilConn)
	}
	if err := conn.SetWriteDeadline(time.Now().Add(d)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}
