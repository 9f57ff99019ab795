package model

// Value is a (encoding, payload) pair — the body of a put or a query.
type Value struct {
	Payload  []byte
	Encoding Encoding
}

// Sample is the value object delivered to subscription callbacks.
type Sample struct {
	KeyExpr   string // fully expanded, never aliased — see keyexpr.Resolve
	Payload   []byte
	Encoding  Encoding
	Kind      SampleKind
	Timestamp Timestamp
	QoS       QoS
	Attachment *Attachment
}

// Hello is produced by scouting and handed to the user's hello callback.
type Hello struct {
	WhatAmI  WhatAmI
	Zid      ZenohId
	Locators []string
}

// ReplyData is the content of one reply to a query.
type ReplyData struct {
	Sample    Sample
	ReplierId ZenohId
}

// Reply wraps ReplyData plus whether the responder reported success.
type Reply struct {
	Ok   bool
	Data ReplyData
	Err  Value
}
