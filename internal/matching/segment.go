package matching

import (
	"strings"

	"github.com/google/uuid"
)

// SegmentKind classifies a path or query segment as a structural identifier
// placeholder or a literal value.
type SegmentKind string

const (
	KindLiteral     SegmentKind = "literal"
	KindNumeric     SegmentKind = "numeric"
	KindUUID        SegmentKind = "uuid"
	KindObjectID    SegmentKind = "objectId"
	KindULID        SegmentKind = "ulid"
	KindBase64Token SegmentKind = "base64token"
)

// minTokenLen is the floor below which a mixed alphanumeric segment is kept
// as a literal. Short codes like "v2" or enum values like "ACTIVE8" sit on
// an inherently ambiguous boundary; the cutoff trades false positives
// (folding a real enum) against false negatives (failing to fold a short
// token). Raising it makes classification more conservative.
const minTokenLen = 8

// SegmentClass is the result of classifying a single segment.
type SegmentClass struct {
	Kind      SegmentKind
	Canonical string
}

// ClassifySegment decides whether a segment is a structural identifier
// (numeric id, UUID, Mongo ObjectId, ULID, base64-like token) or a literal.
// Narrower classes win over the base64-token heuristic, and anything
// ambiguous falls back to literal. Canonical is a placeholder for
// non-literal kinds and the segment itself for literals.
func ClassifySegment(segment string) SegmentClass {
	switch {
	case isNumeric(segment):
		return SegmentClass{Kind: KindNumeric, Canonical: "{numeric}"}
	case isUUID(segment):
		return SegmentClass{Kind: KindUUID, Canonical: "{uuid}"}
	case isObjectID(segment):
		return SegmentClass{Kind: KindObjectID, Canonical: "{objectId}"}
	case isULID(segment):
		return SegmentClass{Kind: KindULID, Canonical: "{ulid}"}
	case isBase64Token(segment):
		return SegmentClass{Kind: KindBase64Token, Canonical: "{token}"}
	default:
		return SegmentClass{Kind: KindLiteral, Canonical: segment}
	}
}

// SegmentsEquivalent reports whether two segments are structurally equal:
// literals must match exactly, while two values of the same non-literal kind
// are equal regardless of value.
func SegmentsEquivalent(a, b string) bool {
	if a == b {
		return true
	}
	ca, cb := ClassifySegment(a), ClassifySegment(b)
	return ca.Kind != KindLiteral && ca.Kind == cb.Kind
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// isUUID requires the canonical 8-4-4-4-12 dashed form. uuid.Parse alone is
// too permissive (it accepts braced and undashed variants).
func isUUID(s string) bool {
	if len(s) != 36 || s[8] != '-' || s[13] != '-' || s[18] != '-' || s[23] != '-' {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

func isObjectID(s string) bool {
	if len(s) != 24 {
		return false
	}
	return isHex(s)
}

// crockford32 is the ULID alphabet: base32 without I, L, O and U.
const crockford32 = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

func isULID(s string) bool {
	if len(s) != 26 {
		return false
	}
	for _, r := range strings.ToUpper(s) {
		if !strings.ContainsRune(crockford32, r) {
			return false
		}
	}
	return true
}

// isBase64Token is a heuristic for opaque tokens: minimum length, the
// base64/url-safe character set, and at least one digit alongside at least
// one letter. Pure alphabetic words stay literals no matter how long.
func isBase64Token(s string) bool {
	if len(s) < minTokenLen {
		return false
	}
	var hasDigit, hasAlpha bool
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			hasAlpha = true
		case r == '+' || r == '/' || r == '=' || r == '_' || r == '-':
		default:
			return false
		}
	}
	return hasDigit && hasAlpha
}

func isHex(s string) bool {
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') && (r < 'A' || r > 'F') {
			return false
		}
	}
	return s != ""
}
