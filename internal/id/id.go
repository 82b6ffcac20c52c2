// Package id generates unique identifiers for diff records and recordings.
//
// Two formats are provided: UUID v4 for general-purpose identifiers, and
// ULID (26-character, Crockford base32) where chronological sortability
// matters, such as diff records listed newest first.
package id

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// UUID returns a random UUID v4 string.
func UUID() string {
	return uuid.NewString()
}

// encoding is Crockford's base32 alphabet, which excludes I, L, O and U.
const encoding = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

var (
	mu        sync.Mutex
	lastMs    int64
	monotonic uint16
)

// ULID returns a 26-character, time-sortable identifier: 48 bits of
// millisecond timestamp followed by 80 bits of randomness. IDs generated
// within the same millisecond stay unique via a monotonic counter mixed
// into the random component.
func ULID() string {
	mu.Lock()
	now := time.Now().UnixMilli()
	if now == lastMs {
		monotonic++
	} else {
		lastMs = now
		monotonic = 0
	}
	counter := monotonic
	mu.Unlock()

	// 16 bytes: 6 for the timestamp, 10 random. 128 bits encode to 26
	// base32 characters with 2 bits to spare.
	var b [16]byte
	for i := 5; i >= 0; i-- {
		b[i] = byte(now)
		now >>= 8
	}
	_, _ = rand.Read(b[6:])
	b[6] ^= byte(counter >> 8)
	b[7] ^= byte(counter)

	out := make([]byte, 26)
	// Consume the 128 bits as 26 five-bit groups, most significant first.
	// The first group takes only the top 3 bits so the timestamp stays
	// aligned with the canonical ULID layout.
	var acc uint64
	bits := 0
	j := 0
	for i := 0; i < 26; i++ {
		want := 5
		if i == 0 {
			want = 3
		}
		for bits < want {
			acc = acc<<8 | uint64(b[j])
			j++
			bits += 8
		}
		shift := bits - want
		out[i] = encoding[(acc>>shift)&(1<<want-1)]
		acc &= 1<<shift - 1
		bits = shift
	}
	return string(out)
}

// Valid reports whether s is a well-formed ULID.
func Valid(s string) bool {
	if len(s) != 26 {
		return false
	}
	for i := 0; i < len(s); i++ {
		ok := false
		for j := 0; j < len(encoding); j++ {
			if encoding[j] == s[i] {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}
