package stream

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// SSEHandler streams events as server-sent events.
func SSEHandler(sub Subscriber, cfg Config, logger zerolog.Logger) http.Handler {
	cfg = cfg.withDefaults()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			logger.Error().Str("writer", fmt.Sprintf("%T", w)).Msg("Streaming unsupported")
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")

		s := sub.Subscribe()
		defer sub.Unsubscribe(s)

		logger.Debug().Str("subscription", s.ID().String()).Str("remote", r.RemoteAddr).Msg("SSE client connected")
		defer logger.Debug().Str("subscription", s.ID().String()).Msg("SSE client disconnected")

		if cfg.Version != "" {
			data, _ := json.Marshal(newVersionMessage(cfg.Version))
			fmt.Fprintf(w, "event: version\ndata: %s\n\n", data)
		}
		fmt.Fprint(w, ": connected\n\n")
		flusher.Flush()

		ticker := time.NewTicker(cfg.KeepAlive)
		defer ticker.Stop()

		ctx := r.Context()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-s.C():
				if !ok {
					return
				}
				data, err := json.Marshal(ev)
				if err != nil {
					logger.Warn().Err(err).Msg("Failed to marshal event")
					continue
				}
				if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
					return
				}
				flusher.Flush()
			case <-ticker.C:
				if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	})
}
