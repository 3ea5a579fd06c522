package wire

import (
	"bytes"
	"errors"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	payload := []byte(`{"id":1}`)
	b := Encode(3, payload)
	if len(b) != HeaderLen+len(payload) {
		t.Fatalf("encoded length = %d, want %d", len(b), HeaderLen+len(payload))
	}

	id, got, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if id != 3 {
		t.Fatalf("codec id = %d, want 3", id)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload = %q, want %q", got, payload)
	}
}

func TestEmptyPayload(t *testing.T) {
	id, payload, err := Decode(Encode(1, nil))
	if err != nil || id != 1 || len(payload) != 0 {
		t.Fatalf("Decode = (%d, %q, %v)", id, payload, err)
	}
}

func TestRejectsForeignData(t *testing.T) {
	cases := map[string][]byte{
		"empty":           nil,
		"short":           []byte("SID"),
		"no_magic":        []byte(`{"plain":"json"}`),
		"bad_magic":       append([]byte("XXXX"), 1, 3),
		"bad_version":     append([]byte("SIDX"), 99, 3),
		"header_only_bad": []byte("SIDX"),
	}
	for name, b := range cases {
		if _, _, err := Decode(b); !errors.Is(err, ErrCorrupt) {
			t.Errorf("%s: Decode err = %v, want ErrCorrupt", name, err)
		}
	}
}
