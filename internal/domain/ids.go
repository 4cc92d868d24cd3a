package domain

import (
	"time"

	"github.com/google/uuid"
)

// NewID returns a time-ordered (v7) UUID.
func NewID() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// Timestamp normalizes t to UTC at the microsecond precision the database keeps,
// so a value hashes the same before and after a round trip.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// Now is the server clock, normalized like Timestamp.
var Now = func() time.Time {
	return Timestamp(time.Now())
}

func TimestampPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := Timestamp(*t)
	return &v
}
