// Package codec defines how cached values are serialized to bytes and back.
//
// Every codec carries a stable one-byte wire id. The cache records that id in
// the entry envelope so a value written with one codec is never fed to
// another: an id mismatch at read time is a hard miss, not a guess.
package codec

// Wire ids. Never reuse or renumber: entries written by old processes may
// still be live in a shared store.
const (
	IDRaw      byte = 1
	IDString   byte = 2
	IDJSON     byte = 3
	IDMsgpack  byte = 4
	IDCBOR     byte = 5
	IDProtobuf byte = 6
)

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)

	// WireID identifies the serialization format in the entry envelope.
	WireID() byte
}
