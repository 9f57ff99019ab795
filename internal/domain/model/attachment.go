package model

// Attachment is the optional byte-string → byte-string map carried
// alongside a sample or query. It is implemented as an ordered pair list
// rather than a Go map so that re-inserting at an existing key replaces
// the value in place rather than needing a separate index to detect it.
type Attachment struct {
	pairs []attachmentPair
}

type attachmentPair struct {
	key   []byte
	value []byte
}

// NewAttachment returns an empty attachment map.
func NewAttachment() *Attachment {
	return &Attachment{}
}

// Empty reports whether the attachment carries no pairs; callers must treat
// a nil *Attachment identically to an empty one.
func (a *Attachment) Empty() bool {
	return a == nil || len(a.pairs) == 0
}

// Insert associates value with key, aliasing both. Re-inserting at an
// existing key replaces its value in place rather than appending a
// duplicate pair.
func (a *Attachment) Insert(key, value []byte) {
	for i := range a.pairs {
		if string(a.pairs[i].key) == string(key) {
			a.pairs[i].value = value
			return
		}
	}
	a.pairs = append(a.pairs, attachmentPair{key: key, value: value})
}

// Get returns the value of the first pair whose key equals key, or nil,
// false if absent. The scan moves past every non-matching pair, so a miss
// costs a single linear pass rather than stalling on the first mismatched
// entry.
func (a *Attachment) Get(key []byte) ([]byte, bool) {
	if a == nil {
		return nil, false
	}
	for _, p := range a.pairs {
		if string(p.key) == string(key) {
			return p.value, true
		}
		// no match: move on to the next pair — see doc comment above
	}
	return nil, false
}

// Iter calls body once per pair in insertion order, stopping early if body
// returns false.
func (a *Attachment) Iter(body func(key, value []byte) bool) {
	if a == nil {
		return
	}
	for _, p := range a.pairs {
		if !body(p.key, p.value) {
			return
		}
	}
}

// Len returns the number of pairs currently stored.
func (a *Attachment) Len() int {
	if a == nil {
		return 0
	}
	return len(a.pairs)
}
