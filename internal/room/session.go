package room

import (
	"github.com/gorilla/websocket"
)

// Session binds one live connection to its chosen username for the time it is
// registered in the room. A session is created exactly once at admission and
// destroyed exactly once; a reconnecting user gets a brand-new session.
type Session struct {
	conn     *websocket.Conn
	username string
	writer   *sessionWriter

	// removalPending is set when a send to this session fails. The session
	// receives no further sends and is swept from the registry after the
	// current fan-out pass completes. Only the room goroutine touches it.
	removalPending bool
}

// Username returns the display name claimed at admission. Trimmed, non-empty,
// not guaranteed unique.
func (s *Session) Username() string {
	return s.username
}
