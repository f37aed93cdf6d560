package room

import (
	"github.com/gorilla/websocket"
)

// registry is the live collection of sessions for one room, keyed by
// connection identity. It is owned by the room goroutine and is not safe for
// concurrent use.
type registry struct {
	sessions map[*websocket.Conn]*Session
	order    []*websocket.Conn
}

func newRegistry() *registry {
	return &registry{
		sessions: make(map[*websocket.Conn]*Session),
	}
}

// admit stores a new session for conn. The caller has already validated the
// username (trimmed, non-empty) before reaching this point.
func (r *registry) admit(conn *websocket.Conn, username string, writer *sessionWriter) *Session {
	session := &Session{
		conn:     conn,
		username: username,
		writer:   writer,
	}
	r.sessions[conn] = session
	r.order = append(r.order, conn)
	return session
}

// evict removes the session keyed by conn. Idempotent: evicting an absent key
// is a no-op.
func (r *registry) evict(conn *websocket.Conn) {
	if _, exists := r.sessions[conn]; !exists {
		return
	}
	delete(r.sessions, conn)
	for i, c := range r.order {
		if c == conn {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// get returns the session for conn, or nil if not registered.
func (r *registry) get(conn *websocket.Conn) *Session {
	return r.sessions[conn]
}

// snapshot returns the sessions in admission order as a fresh slice, so the
// registry may mutate while the caller iterates.
func (r *registry) snapshot() []*Session {
	sessions := make([]*Session, 0, len(r.sessions))
	for _, conn := range r.order {
		sessions = append(sessions, r.sessions[conn])
	}
	return sessions
}

// usernames returns the roster: display names of every registered session not
// marked for removal, in admission order.
func (r *registry) usernames() []string {
	users := make([]string, 0, len(r.sessions))
	for _, conn := range r.order {
		if s := r.sessions[conn]; !s.removalPending {
			users = append(users, s.username)
		}
	}
	return users
}

func (r *registry) len() int {
	return len(r.sessions)
}
