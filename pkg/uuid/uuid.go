// Package uuid provides UUID v7 generation.
// UUID v7 identifiers sort by creation time, which keeps SQLite primary-key
// indexes append-mostly for snippets, lessons, and exercises.
package uuid

import (
	"crypto/rand"
	"fmt"
	"time"
)

// UUID is a 128-bit UUID v7 identifier.
type UUID [16]byte

// NewV7 generates a new UUID v7 (RFC 9562):
// 48 bits of millisecond UNIX timestamp, version/variant bits,
// and the remainder filled from crypto/rand.
func NewV7() UUID {
	var u UUID

	now := time.Now().UnixMilli()
	u[0] = byte(now >> 40)
	u[1] = byte(now >> 32)
	u[2] = byte(now >> 24)
	u[3] = byte(now >> 16)
	u[4] = byte(now >> 8)
	u[5] = byte(now)

	// crypto/rand.Read never fails on supported platforms; if it somehow
	// did, the zeroed random section still yields a structurally valid
	// (if guessable) v7 value.
	_, _ = rand.Read(u[6:])

	u[6] = 0x70 | (u[6] & 0x0f) // version 7
	u[8] = 0x80 | (u[8] & 0x3f) // RFC variant

	return u
}

// String renders the UUID in canonical xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx form.
func (u UUID) String() string {
	return fmt.Sprintf("%08x-%04x-%04x-%04x-%012x",
		u[0:4],
		u[4:6],
		u[6:8],
		u[8:10],
		u[10:16],
	)
}
