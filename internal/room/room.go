package room

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/roomcast/roomcast/internal/metrics"
	"github.com/roomcast/roomcast/internal/protocol"
)

const (
	commandTimeout = 5 * time.Second
	stopTimeout    = 10 * time.Second
)

const invalidFrameMessage = "Invalid message format"

// roomCmd is the command interface for the Room actor.
type roomCmd interface{ isRoomCmd() }

type baseRoomCmd struct{}

func (baseRoomCmd) isRoomCmd() {}

type joinCmd struct {
	baseRoomCmd
	conn         *websocket.Conn
	username     string
	errorChannel chan error
}

type leaveCmd struct {
	baseRoomCmd
	conn *websocket.Conn
}

type frameCmd struct {
	baseRoomCmd
	conn        *websocket.Conn
	messageType int
	data        []byte
}

type rosterCmd struct {
	baseRoomCmd
	replyChannel chan []string
}

type clientCountCmd struct {
	baseRoomCmd
	replyChannel chan int
}

type stopCmd struct {
	baseRoomCmd
}

// Room coordinates one chat room: it owns the session registry and processes
// joins, leaves and inbound frames as a strictly serialized sequence of
// reactions on a single goroutine. Independent Room instances share nothing.
type Room struct {
	cmdCh       chan roomCmd
	clock       clockwork.Clock
	registry    *registry
	maxClients  int
	done        chan struct{}
	stopTimeout time.Duration
}

// NewRoom creates a room and starts its actor goroutine.
// maxClients caps concurrent sessions (prevents resource exhaustion).
func NewRoom(clock clockwork.Clock, maxClients int) *Room {
	r := &Room{
		cmdCh:       make(chan roomCmd, 256),
		clock:       clock,
		registry:    newRegistry(),
		maxClients:  maxClients,
		done:        make(chan struct{}),
		stopTimeout: stopTimeout,
	}
	go r.run()
	return r
}

// Join admits a connection under the given display name. The username is
// trimmed of surrounding whitespace and must be non-empty; the transport
// layer rejects blank names before the room is ever invoked, so an error
// here means the caller skipped validation. On a capacity rejection the
// connection is closed by the room.
//
// Admission publishes the updated roster and a join notice before any frame
// for this session is processed.
func (r *Room) Join(conn *websocket.Conn, username string) error {
	errCh := make(chan error, 1)
	r.cmdCh <- joinCmd{conn: conn, username: username, errorChannel: errCh}

	timer := r.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case err := <-errCh:
		return err
	case <-timer.Chan():
		return fmt.Errorf("join command timed out after %v", commandTimeout)
	}
}

// Leave evicts the session for conn, publishes the updated roster and
// broadcasts a departure notice. Idempotent: leaving an unknown connection
// (never admitted, or already swept after a failed send) is a no-op.
func (r *Room) Leave(conn *websocket.Conn) {
	r.cmdCh <- leaveCmd{conn: conn}
}

// HandleFrame hands an inbound frame to the room for processing. The caller
// is the connection's read pump; frames for evicted sessions are dropped.
func (r *Room) HandleFrame(conn *websocket.Conn, messageType int, data []byte) {
	r.cmdCh <- frameCmd{conn: conn, messageType: messageType, data: data}
}

// Roster returns the current list of connected usernames.
// Returns nil if the command times out.
func (r *Room) Roster() []string {
	replyCh := make(chan []string, 1)
	r.cmdCh <- rosterCmd{replyChannel: replyCh}

	timer := r.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case users := <-replyCh:
		return users
	case <-timer.Chan():
		slog.Warn("Roster command timed out", "timeout", commandTimeout)
		return nil
	}
}

// ClientCount returns the number of registered sessions.
// Returns -1 if the command times out.
func (r *Room) ClientCount() int {
	replyCh := make(chan int, 1)
	r.cmdCh <- clientCountCmd{replyChannel: replyCh}

	timer := r.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case count := <-replyCh:
		return count
	case <-timer.Chan():
		slog.Warn("ClientCount command timed out", "timeout", commandTimeout)
		return -1
	}
}

// Stop shuts down the room, closing every client connection with a close
// frame. Blocks until the actor goroutine has exited or the timeout is hit.
func (r *Room) Stop() {
	r.cmdCh <- stopCmd{}

	timeout := r.clock.NewTimer(r.stopTimeout)
	defer timeout.Stop()

	select {
	case <-r.done:
		slog.Info("Room stopped gracefully")
	case <-timeout.Chan():
		slog.Warn("Room stop timeout exceeded, forcing exit", "timeout", r.stopTimeout)
		metrics.RoomStopTimeoutsTotal.Inc()
		close(r.done)
	}
}

func (r *Room) run() {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Room panic recovered", "panic", rec)
			metrics.RoomPanicsTotal.Inc()
			r.closeAllSessions("room panic")
		}
	}()
	defer close(r.done)

	depthTicker := r.clock.NewTicker(1 * time.Second)
	defer depthTicker.Stop()

	for {
		select {
		case <-depthTicker.Chan():
			metrics.RoomCommandChannelDepth.Set(float64(len(r.cmdCh)))
		case cmd := <-r.cmdCh:
			switch c := cmd.(type) {
			case joinCmd:
				r.handleJoin(c)
			case leaveCmd:
				r.handleLeave(c.conn)
			case frameCmd:
				r.handleFrame(c)
			case rosterCmd:
				c.replyChannel <- r.registry.usernames()
			case clientCountCmd:
				c.replyChannel <- r.registry.len()
			case stopCmd:
				r.handleStop()
				return
			default:
				slog.Warn("Room received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
			}
		}
	}
}

func (r *Room) handleJoin(c joinCmd) {
	username := strings.TrimSpace(c.username)
	if username == "" {
		c.errorChannel <- fmt.Errorf("username must not be empty")
		return
	}

	if r.registry.len() >= r.maxClients {
		slog.Warn("Rejecting client: room full", "max_clients", r.maxClients)
		c.conn.Close()
		c.errorChannel <- fmt.Errorf("room is full (%d clients)", r.maxClients)
		return
	}

	writer := newSessionWriter(c.conn, r.clock)
	r.registry.admit(c.conn, username, writer)

	metrics.RoomJoinsTotal.Inc()
	metrics.RoomConnectedClients.Set(float64(r.registry.len()))
	slog.Info("Client joined", "username", username, "total_clients", r.registry.len())

	r.publishRoster()
	r.broadcastChat(protocol.SystemUsername, username+" joined the chat")

	c.errorChannel <- nil
}

func (r *Room) handleLeave(conn *websocket.Conn) {
	session := r.registry.get(conn)
	if session == nil {
		return
	}

	session.writer.stop()
	r.registry.evict(conn)

	metrics.RoomLeavesTotal.WithLabelValues("disconnect").Inc()
	metrics.RoomConnectedClients.Set(float64(r.registry.len()))
	slog.Info("Client left", "username", session.username, "remaining_clients", r.registry.len())

	r.publishRoster()
	r.broadcastChat(protocol.SystemUsername, session.username+" left the chat")
}

func (r *Room) handleFrame(c frameCmd) {
	session := r.registry.get(c.conn)
	if session == nil || session.removalPending {
		return
	}

	if c.messageType != websocket.TextMessage {
		metrics.RoomMalformedFramesTotal.Inc()
		r.sendTo(session, protocol.NewErrorMessage(invalidFrameMessage))
		return
	}

	inbound, err := protocol.ParseInbound(c.data)
	if err != nil {
		metrics.RoomMalformedFramesTotal.Inc()
		slog.Debug("Malformed frame", "username", session.username, "error", err)
		r.sendTo(session, protocol.NewErrorMessage(invalidFrameMessage))
		return
	}

	switch inbound.Kind {
	case protocol.KindChat:
		r.broadcastChat(session.username, inbound.Text)
	case protocol.KindPing:
		metrics.RoomPingsTotal.Inc()
		r.sendTo(session, protocol.NewPong(inbound.ID, r.clock.Now()))
	case protocol.KindIgnored:
		// Valid JSON of a shape the server does not act on.
	}
}

// publishRoster broadcasts the full membership set. Clients replace their
// roster wholesale, so there is no diff-application ordering to get wrong.
func (r *Room) publishRoster() {
	r.broadcast(protocol.TypeUserList, protocol.NewUserList(r.registry.usernames()))
}

// broadcastChat relays a chat line to the whole room, stamped with the
// broadcast instant rather than the instant the frame arrived.
func (r *Room) broadcastChat(username, text string) {
	r.broadcast(protocol.TypeMessage, protocol.NewChatMessage(username, text, r.clock.Now()))
}

// broadcast serializes payload once and fans the identical bytes out to every
// registered session. Failed sends mark their session during the pass; marked
// sessions are swept afterwards, so the registry never mutates while it is
// being iterated for this broadcast. Sweep evictions deliberately skip the
// roster rebroadcast: the next membership change publishes a roster that
// already excludes them.
func (r *Room) broadcast(msgType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Failed to marshal broadcast message", "type", msgType, "error", err)
		return
	}

	start := r.clock.Now()
	sessions := r.registry.snapshot()

	for _, session := range sessions {
		if session.removalPending {
			continue
		}
		if err := session.writer.trySend(data); err != nil {
			session.removalPending = true
			metrics.RoomSendFailuresTotal.Inc()
			slog.Warn("Send failed, marking session for removal", "username", session.username, "error", err)
		}
	}

	r.sweep(sessions)

	metrics.RoomBroadcastsTotal.WithLabelValues(msgType).Inc()
	metrics.RoomBroadcastDuration.Observe(r.clock.Since(start).Seconds())
}

// sendTo delivers a payload to a single session, bypassing the broadcast
// fan-out. Used for error replies and pongs, which only the originating
// connection may see.
func (r *Room) sendTo(session *Session, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Failed to marshal direct message", "error", err)
		return
	}

	if err := session.writer.trySend(data); err != nil {
		session.removalPending = true
		metrics.RoomSendFailuresTotal.Inc()
		slog.Warn("Direct send failed, marking session for removal", "username", session.username, "error", err)
		r.sweep([]*Session{session})
	}
}

// sweep evicts every session marked for removal during a send pass.
func (r *Room) sweep(sessions []*Session) {
	for _, session := range sessions {
		if !session.removalPending {
			continue
		}
		session.writer.stop()
		r.registry.evict(session.conn)
		metrics.RoomLeavesTotal.WithLabelValues("send_failure").Inc()
	}
	metrics.RoomConnectedClients.Set(float64(r.registry.len()))
}

func (r *Room) handleStop() {
	slog.Info("Room shutting down", "clients", r.registry.len())
	r.closeAllSessions("Server shutting down")
	slog.Info("Room shutdown complete")
}

// closeAllSessions closes every connection with the given reason.
// Used during graceful shutdown and panic recovery.
func (r *Room) closeAllSessions(reason string) {
	for _, session := range r.registry.snapshot() {
		session.writer.stopGraceful(reason)
		r.registry.evict(session.conn)
		metrics.RoomLeavesTotal.WithLabelValues("shutdown").Inc()
	}
	metrics.RoomConnectedClients.Set(0)
}
