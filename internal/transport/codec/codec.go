// Package codec frames opaque payloads for a Link. The wire encoding of
// Zenoh's own message bodies (zenoh-pico's zint/zbuf layer) is outside this
// module's scope; this package only solves the framing problem a stream
// link like TCP or WebSocket introduces — knowing where one message ends
// and the next begins — so that internal/session can treat every Link the
// same way regardless of whether the carrier preserves message boundaries.
package codec

import (
	"bufio"
	"io"
)

// Codec writes and reads length-delimited frames over a byte stream.
// ReadFrame takes a *bufio.Reader rather than a plain io.Reader so that a
// length prefix and the bytes read while decoding it never get re-read
// from the same unbuffered position on the next call.
type Codec interface {
	WriteFrame(w io.Writer, payload []byte) error
	ReadFrame(r *bufio.Reader) ([]byte, error)
}
