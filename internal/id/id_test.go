package id

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDFormat(t *testing.T) {
	u := UUID()
	require.Len(t, u, 36)
	assert.Equal(t, byte('-'), u[8])
	assert.Equal(t, byte('4'), u[14], "version nibble")
}

func TestULIDValid(t *testing.T) {
	u := ULID()
	assert.True(t, Valid(u), "generated ULID %q should validate", u)
	assert.Len(t, u, 26)
}

func TestULIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		u := ULID()
		require.False(t, seen[u], "duplicate ULID %q", u)
		seen[u] = true
	}
}

func TestULIDSortable(t *testing.T) {
	a := ULID()
	time.Sleep(2 * time.Millisecond)
	b := ULID()
	assert.Less(t, a[:10], b[:10], "later ULID should sort after earlier one")
}

func TestValidRejects(t *testing.T) {
	assert.False(t, Valid(""))
	assert.False(t, Valid("short"))
	assert.False(t, Valid("0123456789012345678901234L"), "L is not in the alphabet")
	assert.False(t, Valid("lowercase0123456789012345x"))
}
