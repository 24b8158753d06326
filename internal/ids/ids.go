// Package ids provides monotonic time, identifier generation, and content
// hashing — the "Clock & IDs" component of spec §4 (C1).
package ids

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Clock abstracts wall-clock time so components can be tested with a fixed
// or simulated clock instead of time.Now.
type Clock interface {
	Now() time.Time
}

// SystemClock is the real wall clock.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// New generates a new random identifier (UUIDv4).
func New() string {
	return uuid.New().String()
}

// Canonicalize produces a stable-field-order, numerically-normalized JSON
// encoding of v suitable for content hashing (spec §6). Strings are encoded
// as given: no Unicode (NFC) normalization is applied, so two strings that
// differ only in normalization form produce different hashes.
//
// encoding/json already marshals Go maps with lexicographically sorted
// keys and struct fields in declaration order; Canonicalize additionally
// round-trips through a generic decode so that numeric formatting (e.g.
// trailing zeros) is normalized regardless of how the caller constructed v.
func Canonicalize(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}

	return marshalSorted(generic)
}

// marshalSorted re-marshals a decoded JSON value with map keys sorted, used
// as a second pass to guarantee determinism across Go map iteration order.
func marshalSorted(v any) ([]byte, error) {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf := []byte{'{'}
		for i, k := range keys {
			if i > 0 {
				buf = append(buf, ',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			buf = append(buf, kb...)
			buf = append(buf, ':')
			vb, err := marshalSorted(val[k])
			if err != nil {
				return nil, err
			}
			buf = append(buf, vb...)
		}
		buf = append(buf, '}')
		return buf, nil
	case []any:
		buf := []byte{'['}
		for i, item := range val {
			if i > 0 {
				buf = append(buf, ',')
			}
			ib, err := marshalSorted(item)
			if err != nil {
				return nil, err
			}
			buf = append(buf, ib...)
		}
		buf = append(buf, ']')
		return buf, nil
	default:
		return json.Marshal(val)
	}
}

// ContentHash returns the hex-encoded SHA-256 digest of the canonical form
// of v. Spec §3/§6 permit BLAKE3 or SHA-256; no BLAKE3 implementation is
// available anywhere in the dependency set this module draws from, so
// SHA-256 from the standard library is used (see DESIGN.md).
func ContentHash(v any) (string, error) {
	canon, err := Canonicalize(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:]), nil
}
