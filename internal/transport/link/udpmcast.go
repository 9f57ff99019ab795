package link

import (
	"context"
	"net"

	"github.com/zenoh-pico/pico/internal/status"
)

// udpMulticastLink carries scouting and peer-to-peer group traffic. Unlike
// tcpLink it is not reliable: UDP datagrams may be lost or reordered, and
// IsReliable reports false.
type udpMulticastLink struct {
	conn    *net.UDPConn
	group   *net.UDPAddr
	locator string
}

func (l *udpMulticastLink) Read(p []byte) (int, error) {
	n, _, err := l.conn.ReadFromUDP(p)
	if err != nil {
		return 0, status.Wrap(status.KindTransport, "multicast read", err)
	}
	return n, nil
}

func (l *udpMulticastLink) Write(p []byte) (int, error) {
	n, err := l.conn.WriteToUDP(p, l.group)
	if err != nil {
		return 0, status.Wrap(status.KindTransport, "multicast write", err)
	}
	return n, nil
}

func (l *udpMulticastLink) Close() error  { return l.conn.Close() }
func (l *udpMulticastLink) Locator() string { return l.locator }
func (l *udpMulticastLink) IsReliable() bool { return false }

// UDPMulticastJoiner joins a UDP multicast group for locators of the form
// "udp/224.0.0.224:7446".
type UDPMulticastJoiner struct {
	// Iface restricts which network interface joins the group; nil selects
	// the system default, appropriate for most single-homed peers.
	Iface *net.Interface
}

// Dial joins the multicast group named by locator, satisfying the Dialer
// interface so scouting can treat a udp/ locator the same as a tcp/ or ws/
// one.
func (j UDPMulticastJoiner) Dial(ctx context.Context, locator string) (Link, error) {
	return j.Join(ctx, locator)
}

func (j UDPMulticastJoiner) Join(ctx context.Context, locator string) (Link, error) {
	addr, err := stripScheme(locator, "udp/")
	if err != nil {
		return nil, err
	}
	group, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, status.Wrap(status.KindTransport, "resolve "+locator, err)
	}
	conn, err := net.ListenMulticastUDP("udp", j.Iface, group)
	if err != nil {
		return nil, status.Wrap(status.KindTransport, "join "+locator, err)
	}
	return &udpMulticastLink{conn: conn, group: group, locator: locator}, nil
}
