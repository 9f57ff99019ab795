package codec

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/zenoh-pico/pico/internal/status"
)

// MaxFrameSize bounds a single frame so a corrupt or malicious length
// prefix cannot force an unbounded allocation.
const MaxFrameSize = 64 << 20

// VarintLengthCodec frames each payload with its length as a base-128
// varint, the same encoding Zenoh's own zint wire type uses for every
// variable-length integer. There is no ecosystem package that speaks this
// exact bespoke format, and the wire codec is explicitly out of scope for
// this module beyond framing, so this implementation stays on
// encoding/binary's Uvarint helpers rather than reaching for a general
// serialization library that would still need a hand-rolled length prefix
// underneath it.
type VarintLengthCodec struct{}

func (VarintLengthCodec) WriteFrame(w io.Writer, payload []byte) error {
	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(payload)))
	if _, err := w.Write(lenBuf[:n]); err != nil {
		return status.Wrap(status.KindTransport, "write frame length", err)
	}
	if _, err := w.Write(payload); err != nil {
		return status.Wrap(status.KindTransport, "write frame payload", err)
	}
	return nil
}

// ReadFrame requires r to be a *bufio.Reader (or another type implementing
// both io.Reader and io.ByteReader) so that the varint length prefix and
// the payload that follows it come from the same buffered stream position.
// Callers reading repeated frames off one Link should wrap it once in a
// bufio.Reader and reuse it across calls rather than passing the raw Link.
func (VarintLengthCodec) ReadFrame(r *bufio.Reader) ([]byte, error) {
	size, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, status.Wrap(status.KindTransport, "read frame length", err)
	}
	if size > MaxFrameSize {
		return nil, status.New(status.KindTransport, "frame exceeds maximum size")
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, status.Wrap(status.KindTransport, "read frame payload", err)
	}
	return payload, nil
}
