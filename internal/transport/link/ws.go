package link

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zenoh-pico/pico/internal/status"
)

// wsLink adapts a gorilla/websocket connection to the Link interface by
// carrying a partially-read binary frame across Read calls, since a
// websocket message boundary does not have to line up with the caller's
// buffer size.
type wsLink struct {
	conn    *websocket.Conn
	locator string
	pending []byte
}

func (l *wsLink) Read(p []byte) (int, error) {
	for len(l.pending) == 0 {
		kind, data, err := l.conn.ReadMessage()
		if err != nil {
			return 0, status.Wrap(status.KindTransport, "websocket read", err)
		}
		if kind != websocket.BinaryMessage {
			continue
		}
		l.pending = data
	}
	n := copy(p, l.pending)
	l.pending = l.pending[n:]
	return n, nil
}

func (l *wsLink) Write(p []byte) (int, error) {
	if err := l.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, status.Wrap(status.KindTransport, "websocket write", err)
	}
	return len(p), nil
}

func (l *wsLink) Close() error     { return l.conn.Close() }
func (l *wsLink) Locator() string  { return l.locator }
func (l *wsLink) IsReliable() bool { return true }

// WSDialer dials "ws/host:port/path"-style locators as outbound websocket
// clients, for environments where a raw TCP egress is blocked but HTTP
// upgrade traffic is not.
type WSDialer struct{}

func (WSDialer) Dial(ctx context.Context, locator string) (Link, error) {
	addr, err := stripScheme(locator, "ws/")
	if err != nil {
		return nil, err
	}
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, "ws://"+addr, nil)
	if err != nil {
		return nil, status.Wrap(status.KindTransport, "dial "+locator, err)
	}
	return &wsLink{conn: conn, locator: locator}, nil
}

// WSUpgrader turns an already-accepted HTTP request into a Link, for a
// server-side HTTP handler.
type WSUpgrader struct {
	Upgrader websocket.Upgrader
}

func (u WSUpgrader) Upgrade(w http.ResponseWriter, r *http.Request, locator string) (Link, error) {
	conn, err := u.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, status.Wrap(status.KindTransport, "websocket upgrade", err)
	}
	return &wsLink{conn: conn, locator: locator}, nil
}
