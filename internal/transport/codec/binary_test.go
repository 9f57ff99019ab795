package codec

import (
	"bufio"
	"bytes"
	"testing"
)

func TestVarintLengthCodecRoundTrip(t *testing.T) {
	var c VarintLengthCodec
	var buf bytes.Buffer

	frames := [][]byte{
		[]byte("hello"),
		{},
		bytes.Repeat([]byte{0xAB}, 300),
	}
	for _, f := range frames {
		if err := c.WriteFrame(&buf, f); err != nil {
			t.Fatalf("WriteFrame: %v", err)
		}
	}

	r := bufio.NewReader(&buf)
	for i, want := range frames {
		got, err := c.ReadFrame(r)
		if err != nil {
			t.Fatalf("ReadFrame[%d]: %v", i, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("ReadFrame[%d] = %v, want %v", i, got, want)
		}
	}
}

func TestVarintLengthCodecRejectsOversizedFrame(t *testing.T) {
	var buf bytes.Buffer
	// Hand-encode a length prefix beyond MaxFrameSize without the payload bytes.
	oversized := uint64(MaxFrameSize) + 1
	var lenBuf [10]byte
	n := 0
	for {
		b := byte(oversized & 0x7f)
		oversized >>= 7
		if oversized != 0 {
			b |= 0x80
		}
		lenBuf[n] = b
		n++
		if oversized == 0 {
			break
		}
	}
	buf.Write(lenBuf[:n])

	var c VarintLengthCodec
	if _, err := c.ReadFrame(bufio.NewReader(&buf)); err == nil {
		t.Fatal("ReadFrame accepted a frame larger than MaxFrameSize")
	}
}
