// Package keyexpr implements the pure, allocation-light string algorithms
// for canonicalization and the three set relations (includes, intersects,
// equals) over slash-separated, wildcard-bearing key expressions. None of
// these functions touch a Session; resolution of an aliased (id, suffix)
// pair against a session's resource table lives in internal/domain/registry,
// which calls back into this package once it has the expanded literal
// string.
package keyexpr

import "strings"

// Status is the non-OK reason a key expression fails canon-form checks.
type Status int

const (
	StatusOK Status = iota
	StatusLonePunctuation
	StatusSinglestarAfterDoublestar
	StatusEmptyChunk
	StatusDollarAfterDollar
	StatusStarsInChunk
	StatusContiguousSlashes
	StatusLoneDollarstar
)

func (s Status) Error() string {
	switch s {
	case StatusOK:
		return "canon"
	case StatusLonePunctuation:
		return "lone punctuation segment"
	case StatusSinglestarAfterDoublestar:
		return "single star immediately adjacent to a double star"
	case StatusEmptyChunk:
		return "empty segment"
	case StatusDollarAfterDollar:
		return "dollar immediately following another dollar"
	case StatusStarsInChunk:
		return "star combined with other characters in one segment (only a whole-segment * or ** or a $* may appear)"
	case StatusContiguousSlashes:
		return "contiguous slashes"
	case StatusLoneDollarstar:
		return "$ not followed by *"
	default:
		return "unknown canon violation"
	}
}

// IsCanon reports whether s is already in canon form: no empty segments,
// no "**/**", no single "*" redundantly adjacent to a "**", and no
// trailing slash.
func IsCanon(s string) Status {
	if s == "" {
		return StatusEmptyChunk
	}
	if s[len(s)-1] == '/' {
		return StatusContiguousSlashes
	}

	segments := strings.Split(s, "/")
	var prevDoubleStar bool
	for i, seg := range segments {
		if seg == "" {
			return StatusEmptyChunk
		}
		if st := checkSegment(seg); st != StatusOK {
			return st
		}
		isDoubleStar := seg == "**"
		if isDoubleStar && prevDoubleStar {
			return StatusContiguousSlashes
		}
		if seg == "*" && i > 0 && segments[i-1] == "**" {
			return StatusSinglestarAfterDoublestar
		}
		if isDoubleStar && i > 0 && segments[i-1] == "*" {
			return StatusSinglestarAfterDoublestar
		}
		prevDoubleStar = isDoubleStar
	}
	return StatusOK
}

// checkSegment validates the wildcard rules inside a single path segment:
// "*" and "**" must stand alone, "$*" may be combined with literal text but
// two "$*" tokens must never sit back to back (the match would be
// ambiguous), and a bare segment must not contain two or more consecutive
// '*' outside of a whole-segment "**".
func checkSegment(seg string) Status {
	if seg == "*" || seg == "**" {
		return StatusOK
	}
	if strings.Contains(seg, "**") {
		// "**" only has meaning as a whole segment.
		return StatusStarsInChunk
	}
	if strings.Contains(seg, "$*$*") {
		return StatusDollarAfterDollar
	}
	for i := 0; i < len(seg); i++ {
		switch seg[i] {
		case '$':
			if i+1 >= len(seg) || seg[i+1] != '*' {
				return StatusLoneDollarstar
			}
		case '*':
			if i == 0 || seg[i-1] != '$' {
				return StatusStarsInChunk
			}
		}
	}
	return StatusOK
}

// Canonize rewrites s into canon form, collapsing redundant wildcards and
// empty segments. It returns the canon string and the Status the input had
// before rewriting (StatusOK if it was already canon). The result is
// always len(result) <= len(s).
func Canonize(s string) (string, Status) {
	before := IsCanon(s)
	if before == StatusOK {
		return s, StatusOK
	}

	raw := strings.Split(s, "/")
	out := make([]string, 0, len(raw))
	for _, seg := range raw {
		if seg == "" {
			continue // drop empty segments (contiguous or leading/trailing slashes)
		}
		if seg == "**" && len(out) > 0 && out[len(out)-1] == "**" {
			continue // collapse "**/**" into a single "**"
		}
		out = append(out, seg)
	}

	// A lone "*" adjacent to a "**" is rejected by IsCanon but deliberately
	// not rewritten here: collapsing it away would change match semantics,
	// not just tidy notation. Canonize limits itself to whitespace-equivalent
	// cleanups: empty segments and duplicate "**".

	result := strings.Join(out, "/")
	if result == "" && s != "" {
		// every segment was empty (all-slashes input): the only well-formed
		// key expression of zero meaningful segments is the wildcard "**".
		result = "**"
	}
	return result, before
}
