package link

import (
	"context"
	"net"
	"strings"

	"github.com/zenoh-pico/pico/internal/status"
)

// tcpLink wraps a net.Conn as a Link, stripping the "tcp/" locator prefix
// zenoh-pico's locator syntax uses.
type tcpLink struct {
	conn    net.Conn
	locator string
}

func (l *tcpLink) Read(p []byte) (int, error)  { return l.conn.Read(p) }
func (l *tcpLink) Write(p []byte) (int, error) { return l.conn.Write(p) }
func (l *tcpLink) Close() error                { return l.conn.Close() }
func (l *tcpLink) Locator() string             { return l.locator }
func (l *tcpLink) IsReliable() bool            { return true }

// TCPDialer dials TCP locators of the form "tcp/host:port".
type TCPDialer struct{}

func (TCPDialer) Dial(ctx context.Context, locator string) (Link, error) {
	addr, err := stripScheme(locator, "tcp/")
	if err != nil {
		return nil, err
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, status.Wrap(status.KindTransport, "dial "+locator, err)
	}
	return &tcpLink{conn: conn, locator: locator}, nil
}

// TCPListener listens on TCP locators of the form "tcp/host:port".
type TCPListener struct{}

type tcpAcceptor struct {
	ln      net.Listener
	locator string
}

func (TCPListener) Listen(ctx context.Context, locator string) (Acceptor, error) {
	addr, err := stripScheme(locator, "tcp/")
	if err != nil {
		return nil, err
	}
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, status.Wrap(status.KindTransport, "listen "+locator, err)
	}
	return &tcpAcceptor{ln: ln, locator: locator}, nil
}

func (a *tcpAcceptor) Accept(ctx context.Context) (Link, error) {
	conn, err := a.ln.Accept()
	if err != nil {
		return nil, status.Wrap(status.KindTransport, "accept on "+a.locator, err)
	}
	return &tcpLink{conn: conn, locator: "tcp/" + conn.RemoteAddr().String()}, nil
}

func (a *tcpAcceptor) Close() error { return a.ln.Close() }

func stripScheme(locator, scheme string) (string, error) {
	if !strings.HasPrefix(locator, scheme) {
		return "", status.New(status.KindInput, "locator missing "+scheme+" prefix: "+locator)
	}
	return strings.TrimPrefix(locator, scheme), nil
}
