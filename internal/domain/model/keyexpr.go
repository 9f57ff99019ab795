package model

// ResourceIdNone is the reserved "no alias" resource id.
const ResourceIdNone uint16 = 0

// KeyExpr is either a literal suffix, a bare resource-id alias, or the pair
// (id, suffix) meaning "the prefix stored under id, concatenated with
// suffix". OwnsSuffix tracks whether this value owns its
// backing string, so an owning handle can be canonized in place while a
// borrowed one must copy before rewriting.
type KeyExpr struct {
	Id         uint16
	Suffix     string
	OwnsSuffix bool
}

// IsZero reports whether ke is the gravestone ("no key") value.
func (ke KeyExpr) IsZero() bool {
	return ke.Id == ResourceIdNone && ke.Suffix == ""
}

// HasResourceId reports whether ke carries a non-reserved resource alias.
func (ke KeyExpr) HasResourceId() bool {
	return ke.Id != ResourceIdNone
}

// FromString builds an owning KeyExpr with no resource-id aliasing.
func FromString(s string) KeyExpr {
	return KeyExpr{Suffix: s, OwnsSuffix: true}
}

// WithResourceId builds a KeyExpr that aliases a previously declared
// resource id, optionally with a literal suffix appended to its prefix.
func WithResourceId(id uint16, suffix string) KeyExpr {
	return KeyExpr{Id: id, Suffix: suffix}
}

// Clone returns an independent owning copy of ke, per the owned/borrowed
// discipline: clone produces an independent copy; the source is left
// untouched (unlike a move, which would reset it to gravestone).
func (ke KeyExpr) Clone() KeyExpr {
	return KeyExpr{Id: ke.Id, Suffix: ke.Suffix, OwnsSuffix: true}
}

// Encoding is a MIME-like (prefix, suffix) payload encoding tag.
type Encoding struct {
	Prefix uint16
	Suffix string
}

// DefaultEncoding is the zero-value "unspecified" encoding.
var DefaultEncoding = Encoding{}

// Timestamp pairs a logical clock with the ZenohId that stamped it, used to
// order replies under Monotonic/Latest consolidation.
type Timestamp struct {
	Time uint64
	Id   ZenohId
}

// Valid reports whether this timestamp was ever assigned.
func (t Timestamp) Valid() bool { return t.Time != 0 || !t.Id.IsZero() }

// After reports whether t is strictly later than other.
func (t Timestamp) After(other Timestamp) bool {
	return t.Time > other.Time
}

// QoS carries the quality-of-service bits attached to every message on the wire.
type QoS struct {
	Priority          Priority
	CongestionControl CongestionControl
	Express           bool
}

// DefaultQoS is the QoS applied when a publisher or put call does not
// override it explicitly.
var DefaultQoS = QoS{Priority: PriorityDefault, CongestionControl: CongestionControlDrop}
