package domain

import (
	"bytes"
	"database/sql/driver"
	"encoding/hex"
	"fmt"
)

// Digest is a self-describing (multihash framed) content hash.
type Digest []byte

func (d Digest) String() string {
	return hex.EncodeToString(d)
}

func (d Digest) Equal(other Digest) bool {
	return bytes.Equal(d, other)
}

func (d Digest) IsZero() bool {
	return len(d) == 0
}

func (d Digest) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(d)), nil
}

func (d *Digest) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*d = nil
		return nil
	}
	b := make([]byte, hex.DecodedLen(len(text)))
	if _, err := hex.Decode(b, text); err != nil {
		return fmt.Errorf("invalid digest %q: %w", text, err)
	}
	*d = b
	return nil
}

// Value stores the raw digest bytes, NULL when empty.
func (d Digest) Value() (driver.Value, error) {
	if len(d) == 0 {
		return nil, nil
	}
	return []byte(d), nil
}

func (d *Digest) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = nil
	case []byte:
		if len(v) == 0 {
			*d = nil
			return nil
		}
		*d = append(Digest(nil), v...)
	case string:
		*d = append(Digest(nil), v...)
	default:
		return fmt.Errorf("cannot scan %T into Digest", src)
	}
	return nil
}
