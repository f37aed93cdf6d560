package room

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/roomcast/roomcast/internal/metrics"
)

const (
	writeDeadline     = 5 * time.Second
	keepaliveInterval = 30 * time.Second
	pongDeadline      = 60 * time.Second
	sendBufferSize    = 16
)

var (
	errWriterStopped  = errors.New("session writer stopped")
	errSendBufferFull = errors.New("session send buffer full")
)

// sessionWriter owns all writes to one connection. The room goroutine hands
// frames over through a buffered channel; a full buffer or a stopped writer
// surfaces synchronously as a send failure, which is the only way a send fails
// from the room's point of view.
type sessionWriter struct {
	conn        *websocket.Conn
	clock       clockwork.Clock
	sendChannel chan []byte
	doneChannel chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

func newSessionWriter(conn *websocket.Conn, clock clockwork.Clock) *sessionWriter {
	w := &sessionWriter{
		conn:        conn,
		clock:       clock,
		sendChannel: make(chan []byte, sendBufferSize),
		doneChannel: make(chan struct{}),
	}
	w.configurePongHandler()
	w.wg.Add(1)
	go w.run()
	return w
}

func (w *sessionWriter) run() {
	ticker := w.clock.NewTicker(keepaliveInterval)
	defer ticker.Stop()
	defer w.wg.Done()

	for {
		select {
		case msg, ok := <-w.sendChannel:
			if !ok {
				return
			}
			start := w.clock.Now()
			w.updateWriteDeadline()
			if err := w.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
			metrics.WebSocketMessageSendDuration.Observe(w.clock.Since(start).Seconds())
		case <-ticker.Chan():
			w.updateWriteDeadline()
			if err := w.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				metrics.WebSocketPingFailures.Inc()
				return
			}
		case <-w.doneChannel:
			return
		}
	}
}

// trySend enqueues a frame without blocking. It fails synchronously if the
// writer has stopped or the buffer is full; the caller marks the session for
// removal on failure.
func (w *sessionWriter) trySend(data []byte) error {
	select {
	case <-w.doneChannel:
		return errWriterStopped
	default:
	}

	select {
	case w.sendChannel <- data:
		return nil
	default:
		return errSendBufferFull
	}
}

func (w *sessionWriter) stop() {
	w.stopOnce.Do(func() {
		close(w.doneChannel)
		_ = w.conn.Close()
	})
	w.wg.Wait()
}

// stopGraceful sends a WebSocket close frame with reason before closing.
func (w *sessionWriter) stopGraceful(reason string) {
	w.stopOnce.Do(func() {
		// Signal the run goroutine to exit and wait for it, so the close
		// frame is not written concurrently with a queued frame.
		close(w.doneChannel)
		w.wg.Wait()

		closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
		w.updateWriteDeadline()
		_ = w.conn.WriteMessage(websocket.CloseMessage, closeMsg)
		_ = w.conn.Close()
	})
}

func (w *sessionWriter) configurePongHandler() {
	w.updateReadDeadline()
	w.conn.SetPongHandler(func(string) error {
		w.updateReadDeadline()
		return nil
	})
}

func (w *sessionWriter) updateWriteDeadline() {
	_ = w.conn.SetWriteDeadline(w.clock.Now().Add(writeDeadline))
}

func (w *sessionWriter) updateReadDeadline() {
	_ = w.conn.SetReadDeadline(w.clock.Now().Add(pongDeadline))
}
