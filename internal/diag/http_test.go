package diag

import (
	"context"
	"encoding/json"
	"net"
	"net/http/httptest"
	"testing"

	"github.com/zenoh-pico/pico/config"
	"github.com/zenoh-pico/pico/internal/domain/model"
	"github.com/zenoh-pico/pico/internal/session"
	"github.com/zenoh-pico/pico/internal/transport"
	"github.com/zenoh-pico/pico/internal/transport/codec"
)

type memLink struct {
	net.Conn
	locator string
}

func (m memLink) Locator() string  { return m.locator }
func (m memLink) IsReliable() bool { return true }

func newTestSession(t *testing.T) *session.Session {
	t.Helper()
	a, _ := net.Pipe()
	ua := transport.NewUnicast(memLink{a, "mem/diag"}, codec.VarintLengthCodec{}, 16)
	zid, err := model.NewZenohId()
	if err != nil {
		t.Fatalf("NewZenohId: %v", err)
	}
	sess, err := session.Open(context.Background(), config.New(), zid, ua, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { sess.Close() })
	return sess
}

func TestServerInfoZid(t *testing.T) {
	sess := newTestSession(t)
	srv := NewServer(sess)

	req := httptest.NewRequest("GET", "/info/zid", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["zid"] != sess.Zid().String() {
		t.Fatalf("zid = %q, want %q", body["zid"], sess.Zid().String())
	}
}

// Unicast has no scouting group, so /info/peers and /info/routers must
// report an empty list rather than erroring.
func TestServerInfoPeersAndRoutersEmptyOnUnicast(t *testing.T) {
	sess := newTestSession(t)
	srv := NewServer(sess)

	for _, path := range []string{"/info/peers", "/info/routers"} {
		req := httptest.NewRequest("GET", path, nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		var zids []string
		if err := json.Unmarshal(rec.Body.Bytes(), &zids); err != nil {
			t.Fatalf("%s decode: %v", path, err)
		}
		if len(zids) != 0 {
			t.Fatalf("%s = %v, want empty", path, zids)
		}
	}
}

func TestServerScoutHonorsTimeoutParam(t *testing.T) {
	sess := newTestSession(t)
	srv := NewServer(sess)

	req := httptest.NewRequest("GET", "/scout?timeout=1ms", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != 204 {
		t.Fatalf("status = %d, want 204 (no Hello within 1ms)", rec.Code)
	}
}
