package chat

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	"chathub/logger"
	"chathub/tools/errs"
	"chathub/tools/safe"
)

const (
	writeWait     = 5 * time.Second
	handleTimeout = 10 * time.Second
	fanoutQueue   = 1024
)

// Deps are the external collaborators the hub delegates to. Oracle and
// Store are required; Presence and Feed are optional best-effort sinks.
type Deps struct {
	Oracle   RoomOracle
	Store    MessageStore
	Presence PresenceSink
	Feed     EventFeed
}

// Server is the connection hub: it owns the session registry, the typing
// debounce state, the liveness monitor, and fan-out delivery.
type Server struct {
	deps    Deps
	reg     *Registry
	router  *Router
	fanout  *Fanout
	typing  *typingState
	monitor *livenessMonitor
}

func NewServer(deps Deps) *Server {
	return newServer(deps, livenessPeriod, typingDebounce)
}

// newServer exists so tests can shrink the fixed periods; the wire
// behavior always uses the protocol constants via NewServer.
func newServer(deps Deps, probeEvery, debounce time.Duration) *Server {
	s := &Server{
		deps: deps,
		reg:  NewRegistry(),
	}
	// One dispatcher keeps same-recipient frames in submission order.
	s.fanout = NewFanout(1, fanoutQueue)
	s.typing = newTypingState(debounce, func(c *Client, roomID string, typing bool) {
		ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
		defer cancel()
		s.broadcastTyping(ctx, c, roomID, typing)
	})
	s.monitor = newLivenessMonitor(probeEvery, s.reg, s.probeConn, s.evictConn)

	s.router = NewRouter()
	s.router.Register(&joinRoomHandler{s})
	s.router.Register(&leaveRoomHandler{s})
	s.router.Register(&sendMessageHandler{s})
	s.router.Register(&privateMessageHandler{s})
	s.router.Register(&typingHandler{s: s, start: true})
	s.router.Register(&typingHandler{s: s, start: false})

	go s.monitor.run()
	return s
}

// Close stops the monitor and tears down every live connection.
func (s *Server) Close() {
	s.monitor.stop()
	for _, c := range s.reg.Snapshot() {
		s.disconnect(c, "server shutdown")
	}
	s.fanout.Close()
}

func (s *Server) Registry() *Registry { return s.reg }

// probeConn clears nothing itself; the monitor already consumed the flag.
// It just sends the ping and expects the pong handler to set the flag.
func (s *Server) probeConn(c *Client) error {
	if c.WS == nil {
		return nil
	}
	return c.WS.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeWait))
}

func (s *Server) evictConn(c *Client) {
	s.disconnect(c, "liveness probe missed")
}

// disconnect runs the single teardown path for a connection, no matter
// which failure triggered it: transport close, write failure, liveness
// eviction, or displacement by a reconnect. Cleanup effects run exactly
// once; the offline signals are skipped when the registry entry already
// points at a successor connection.
func (s *Server) disconnect(c *Client, reason string) {
	rooms, first := c.teardown()
	if !first {
		return
	}
	closeQuiet(c.WS)

	current := s.reg.Unregister(c)
	logger.Infof("[hub] conn closed user=%s conn=%s reason=%s current=%v", c.UserID, c.ConnID, reason, current)
	if !current {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()
	for _, roomID := range rooms {
		s.broadcastToRoom(ctx, roomID, BuildUserStatus(c.UserID, StatusOffline, roomID), nil)
	}
	if s.deps.Presence != nil {
		userID := c.UserID
		safe.Go(func() {
			pctx, pcancel := context.WithTimeout(context.Background(), handleTimeout)
			defer pcancel()
			s.deps.Presence.SetOnline(pctx, userID, false)
		})
	}
	s.publishStatus(c.UserID, StatusOffline, "")
}

// broadcastToRoom resolves current membership from the oracle, then walks
// a registry snapshot and fans the serialized envelope out to every
// registered member not in the exclusion set. Per-recipient failures are
// dropped by the fanout; nothing propagates to the caller.
func (s *Server) broadcastToRoom(ctx context.Context, roomID string, env *Envelope, exclude map[string]struct{}) {
	payload, err := Marshal(env)
	if err != nil {
		logger.Errorf("[hub] marshal broadcast room=%s err=%v", roomID, err)
		return
	}
	members := s.deps.Oracle.MembersOf(ctx, roomID)
	if len(members) == 0 {
		return
	}
	var targets []*Client
	for _, c := range s.reg.Snapshot() {
		if _, ok := members[c.UserID]; !ok {
			continue
		}
		if _, skip := exclude[c.UserID]; skip {
			continue
		}
		targets = append(targets, c)
	}
	s.fanout.Broadcast(targets, payload)
}

// broadcastTyping emits a typing presence event to the room, excluding the
// typist: their own client already knows.
func (s *Server) broadcastTyping(ctx context.Context, c *Client, roomID string, typing bool) {
	s.broadcastToRoom(ctx, roomID, BuildTyping(typing, c.UserID, roomID),
		map[string]struct{}{c.UserID: {}})
}

// sendError replies a structured error to one sender only. The reply goes
// through the dispatcher like every other outbound frame, keeping the
// sender's view in submission order.
func (s *Server) sendError(c *Client, e errs.CodeError) {
	payload, err := Marshal(BuildError(e))
	if err != nil {
		logger.Errorf("[hub] marshal error reply: %v", err)
		return
	}
	s.fanout.Broadcast([]*Client{c}, payload)
}

// publishStatus forwards a presence transition to the external feed.
func (s *Server) publishStatus(userID, status, roomID string) {
	if s.deps.Feed == nil {
		return
	}
	s.deps.Feed.PublishStatus(StatusEvent{
		UserID: userID,
		RoomID: roomID,
		Status: status,
		Ts:     time.Now().UnixMilli(),
	})
}

func closeQuiet(c *websocket.Conn) {
	if c != nil {
		_ = c.Close()
	}
}
