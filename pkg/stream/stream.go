// Package stream pushes cache change events to HTTP clients.
//
// SSEHandler serves text/event-stream and WebSocketHandler serves JSON text
// frames. Both register one notifier subscription per connection and end the
// connection when the notifier drops it. There is no replay on reconnect.
package stream

import (
	"time"

	"github.com/vuorinet/spot/pkg/notify"
)

// Subscriber is the part of the notifier used by the handlers.
type Subscriber interface {
	Subscribe() *notify.Subscription
	Unsubscribe(sub *notify.Subscription)
}

// Config holds the stream configuration.
type Config struct {
	// KeepAlive is the interval of SSE comments and WebSocket pings.
	KeepAlive time.Duration

	// WriteTimeout bounds each WebSocket write.
	WriteTimeout time.Duration

	// Version is announced to clients on connect when non-empty.
	Version string
}

// DefaultConfig returns the default stream configuration.
func DefaultConfig(version string) Config {
	return Config{
		KeepAlive:    30 * time.Second,
		WriteTimeout: 10 * time.Second,
		Version:      version,
	}
}

func (c Config) withDefaults() Config {
	if c.KeepAlive <= 0 {
		c.KeepAlive = 30 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	return c
}

// versionMessage is sent once per connection.
type versionMessage struct {
	Type    string `json:"type"`
	Version string `json:"version"`
}

func newVersionMessage(version string) versionMessage {
	return versionMessage{Type: "version", Version: version}
}
