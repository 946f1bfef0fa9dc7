package stream

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WebSocketHandler streams events as JSON text frames.
func WebSocketHandler(sub Subscriber, cfg Config, logger zerolog.Logger) http.Handler {
	cfg = cfg.withDefaults()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn().Err(err).Msg("WebSocket upgrade failed")
			return
		}
		defer conn.Close()

		s := sub.Subscribe()
		defer sub.Unsubscribe(s)

		logger.Debug().Str("subscription", s.ID().String()).Str("remote", r.RemoteAddr).Msg("WebSocket client connected")
		defer logger.Debug().Str("subscription", s.ID().String()).Msg("WebSocket client disconnected")

		closed := make(chan struct{})
		go readPump(conn, cfg.KeepAlive, closed)

		if cfg.Version != "" {
			_ = conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := conn.WriteJSON(newVersionMessage(cfg.Version)); err != nil {
				return
			}
		}

		ticker := time.NewTicker(cfg.KeepAlive)
		defer ticker.Stop()

		for {
			select {
			case <-closed:
				return
			case ev, ok := <-s.C():
				_ = conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
				if !ok {
					_ = conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseGoingAway, "subscription dropped"))
					return
				}
				if err := conn.WriteJSON(ev); err != nil {
					return
				}
			case <-ticker.C:
				_ = conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	})
}

// readPump discards client messages and closes done when the peer goes away.
func readPump(conn *websocket.Conn, keepAlive time.Duration, done chan<- struct{}) {
	defer close(done)

	deadline := 2 * keepAlive
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(deadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(deadline))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
