package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vuorinet/spot/pkg/notify"
)

var testDay = civil.Date{Year: 2025, Month: 8, Day: 13}

func testEvent() notify.Event {
	return notify.NewEvent(notify.KindTomorrowUpdated, testDay, notify.ReasonPriceValuesChanged, time.Now())
}

// readUntil returns the first line with prefix.
func readUntil(t *testing.T, r *bufio.Reader, prefix string) string {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, prefix))
		}
	}
}

func TestSSEHandler(t *testing.T) {
	n := notify.New(4, zerolog.Nop())
	srv := httptest.NewServer(SSEHandler(n, DefaultConfig("1.2.3"), zerolog.Nop()))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	reader := bufio.NewReader(resp.Body)

	version := readUntil(t, reader, "data: ")
	assert.JSONEq(t, `{"type":"version","version":"1.2.3"}`, version)

	require.Eventually(t, func() bool { return n.Len() == 1 }, time.Second, 5*time.Millisecond)
	n.Publish(testEvent())

	var ev notify.Event
	require.NoError(t, json.Unmarshal([]byte(readUntil(t, reader, "data: ")), &ev))
	assert.Equal(t, notify.KindTomorrowUpdated, ev.Type)
	assert.Equal(t, notify.ReasonPriceValuesChanged, ev.Reason)
	require.NotNil(t, ev.Date)
	assert.Equal(t, testDay, *ev.Date)

	cancel()
	assert.Eventually(t, func() bool { return n.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestSSEHandler_KeepAlive(t *testing.T) {
	n := notify.New(4, zerolog.Nop())
	cfg := Config{KeepAlive: 10 * time.Millisecond}
	srv := httptest.NewServer(SSEHandler(n, cfg, zerolog.Nop()))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	readUntil(t, reader, ": keep-alive")
}

func TestSSEHandler_EndsWhenDropped(t *testing.T) {
	n := notify.New(4, zerolog.Nop())
	srv := httptest.NewServer(SSEHandler(n, DefaultConfig(""), zerolog.Nop()))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Eventually(t, func() bool { return n.Len() == 1 }, time.Second, 5*time.Millisecond)
	n.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		buf := make([]byte, 512)
		for {
			if _, err := resp.Body.Read(buf); err != nil {
				return
			}
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream not closed after subscription was dropped")
	}
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	return conn
}

func TestWebSocketHandler(t *testing.T) {
	n := notify.New(4, zerolog.Nop())
	srv := httptest.NewServer(WebSocketHandler(n, DefaultConfig("1.2.3"), zerolog.Nop()))
	defer srv.Close()

	conn := dialWS(t, srv)

	var version versionMessage
	require.NoError(t, conn.ReadJSON(&version))
	assert.Equal(t, "1.2.3", version.Version)

	require.Eventually(t, func() bool { return n.Len() == 1 }, time.Second, 5*time.Millisecond)
	n.Publish(testEvent())

	var ev notify.Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, notify.KindTomorrowUpdated, ev.Type)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return n.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestWebSocketHandler_CloseWhenDropped(t *testing.T) {
	n := notify.New(4, zerolog.Nop())
	srv := httptest.NewServer(WebSocketHandler(n, DefaultConfig(""), zerolog.Nop()))
	defer srv.Close()

	conn := dialWS(t, srv)
	defer conn.Close()

	require.Eventually(t, func() bool { return n.Len() == 1 }, time.Second, 5*time.Millisecond)
	n.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}
