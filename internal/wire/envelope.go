// Package wire defines the decoded shape of one protocol message exchanged
// between sessions: Declare, Undeclare, Data, Query, Reply, KeepAlive,
// Join, Scout, and Hello, the same message set internal/session/dispatch.go
// classifies against. Its Encode/Decode pair is the Codec the transport layer frames —
// a self-contained envelope format, not a bit-compatible re-implementation
// of Zenoh's own wire format, which this module does not attempt beyond the
// length-prefixed framing internal/transport/codec already provides. No
// library in the retrieval pack targets Zenoh's bespoke zint/zbuf layout, so
// this envelope is deliberately encoding/gob: a single self-describing
// format for the handful of structs below, with no code generation step.
package wire

import (
	"bytes"
	"encoding/gob"

	"github.com/zenoh-pico/pico/internal/domain/model"
	"github.com/zenoh-pico/pico/internal/status"
)

// Kind classifies an Envelope. Exactly one of the corresponding body
// pointers on Envelope is non-nil for a given Kind.
type Kind uint8

const (
	KindDeclare Kind = iota
	KindUndeclare
	KindData
	KindQuery
	KindReply
	KindKeepAlive
	KindJoin
	KindScout
	KindHello
)

func (k Kind) String() string {
	switch k {
	case KindDeclare:
		return "declare"
	case KindUndeclare:
		return "undeclare"
	case KindData:
		return "data"
	case KindQuery:
		return "query"
	case KindReply:
		return "reply"
	case KindKeepAlive:
		return "keep_alive"
	case KindJoin:
		return "join"
	case KindScout:
		return "scout"
	case KindHello:
		return "hello"
	default:
		return "unknown"
	}
}

// EntityKind distinguishes which registry a Declare/Undeclare body targets.
type EntityKind uint8

const (
	EntityResource EntityKind = iota
	EntitySubscriber
	EntityQueryable
)

// DeclareBody registers a resource alias, subscriber, or queryable on the
// receiving side.
type DeclareBody struct {
	Entity      EntityKind
	ResourceId  uint16
	KeyExpr     model.KeyExpr
	Reliability model.Reliability
	Complete    bool
}

// UndeclareBody removes a previously declared resource alias, subscriber,
// or queryable.
type UndeclareBody struct {
	Entity     EntityKind
	ResourceId uint16
}

// DataBody carries one Sample, addressed by a possibly-aliased KeyExpr.
type DataBody struct {
	KeyExpr    model.KeyExpr
	Payload    []byte
	Encoding   model.Encoding
	Kind       model.SampleKind
	Timestamp  model.Timestamp
	QoS        model.QoS
	Attachment *model.Attachment
}

// QueryBody carries one get request.
type QueryBody struct {
	Token         model.ZenohId
	ReplierId     model.ZenohId
	KeyExpr       model.KeyExpr
	Parameters    string
	Value         *model.Value
	Attachment    *model.Attachment
	Target        model.QueryTarget
	Consolidation model.ConsolidationMode
}

// ReplyBody carries one reply to a previously issued query, correlated by
// Token.
type ReplyBody struct {
	Token     model.ZenohId
	ReplierId model.ZenohId
	Ok        bool
	Data      DataBody
	Err       model.Value
}

// JoinBody announces this peer's presence and liveness parameters on a
// multicast group.
type JoinBody struct {
	Zid        model.ZenohId
	WhatAmI    model.WhatAmI
	LeaseNanos int64
}

// ScoutBody is a scouting probe broadcast to discover peers matching What.
type ScoutBody struct {
	What model.WhatAmI
}

// HelloBody answers a ScoutBody.
type HelloBody struct {
	WhatAmI  model.WhatAmI
	Zid      model.ZenohId
	Locators []string
}

// Envelope is the decoded form of one on-the-wire protocol message.
type Envelope struct {
	Kind      Kind
	Declare   *DeclareBody
	Undeclare *UndeclareBody
	Data      *DataBody
	Query     *QueryBody
	Reply     *ReplyBody
	Join      *JoinBody
	Scout     *ScoutBody
	Hello     *HelloBody
}

func init() {
	gob.Register(Envelope{})
}

// Encode serializes e for transmission as one transport.Message payload.
func Encode(e Envelope) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(e); err != nil {
		return nil, status.Wrap(status.KindProtocol, "encode envelope", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a transport.Message payload back into an Envelope.
func Decode(payload []byte) (Envelope, error) {
	var e Envelope
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&e); err != nil {
		return Envelope{}, status.Wrap(status.KindProtocol, "decode envelope", err)
	}
	return e, nil
}
