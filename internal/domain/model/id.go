package model

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// ZenohId is a 16-byte LSB-first non-zero identifier. It is represented
// directly as a uuid.UUID: both are 16 raw bytes, and google/uuid already
// gives us parsing, hex formatting and RNG-backed generation for free —
// there is no reason to hand-roll a second 128-bit id type next to it.
type ZenohId uuid.UUID

// ZeroZenohId is the reserved all-zero value; a ZenohId is only valid once
// assigned at session open.
var ZeroZenohId ZenohId

// IsZero reports whether z is the unassigned gravestone value.
func (z ZenohId) IsZero() bool { return z == ZeroZenohId }

func (z ZenohId) String() string {
	return hex.EncodeToString(z[:])
}

// Bytes returns the 16 raw octets, LSB-first.
func (z ZenohId) Bytes() [16]byte { return [16]byte(z) }

// NewZenohId generates a random non-zero ZenohId.
func NewZenohId() (ZenohId, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return ZeroZenohId, err
	}
	return ZenohId(u), nil
}

// ParseZenohId decodes a hex-encoded ZenohId, as accepted by the
// SESSION_ZID configuration key.
func ParseZenohId(hexStr string) (ZenohId, error) {
	raw, err := hex.DecodeString(hexStr)
	if err != nil {
		return ZeroZenohId, err
	}
	var z ZenohId
	// ids may be shorter than 16 bytes on the wire; the remaining
	// high-order bytes stay zero rather than rejecting the value.
	copy(z[:], raw)
	return z, nil
}
