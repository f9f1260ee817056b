package repository

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// NewID returns a positive 63-bit record id. BigQuery has no auto-increment,
// so ids are drawn from a random UUID. The two halves are folded together so
// the fixed version and variant bits do not reduce the id space.
func NewID() int64 {
	for {
		u := uuid.New()
		v := binary.BigEndian.Uint64(u[:8]) ^ binary.BigEndian.Uint64(u[8:])
		if id := int64(v >> 1); id != 0 {
			return id
		}
	}
}
