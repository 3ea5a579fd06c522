// Package wire frames cached payloads in a small versioned envelope so that
// foreign or corrupt values in a shared keyspace are detected and treated as
// misses instead of being guessed at.
package wire

import (
	"bytes"
	"errors"
)

const version byte = 1

// HeaderLen is magic(4) | ver(1) | codec(1).
const HeaderLen = 6

var (
	ErrCorrupt = errors.New("wire: corrupt or foreign entry")
	magic4     = [...]byte{'S', 'I', 'D', 'X'}
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Encode wraps payload as magic(4) | ver(1) | codec(1) | payload.
func Encode(codecID byte, payload []byte) []byte {
	out := make([]byte, 0, HeaderLen+len(payload))
	out = append(out, magic4[:]...)
	out = append(out, version, codecID)
	out = append(out, payload...)
	return out
}

// Decode validates the envelope and returns the codec id and payload.
// The payload aliases b; callers must not retain it past b's lifetime.
func Decode(b []byte) (codecID byte, payload []byte, err error) {
	if len(b) < HeaderLen || !hasMagic(b) || b[4] != version {
		return 0, nil, ErrCorrupt
	}
	return b[5], b[HeaderLen:], nil
}
