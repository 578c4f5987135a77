package types

import (
	"bytes"
	"testing"
)

func TestPubKeyFromBytes(t *testing.T) {
	raw := make([]byte, PubKeySize)
	raw[0] = 0x02
	raw[32] = 0x7f

	pk, err := PubKeyFromBytes(raw)
	if err != nil {
		t.Fatalf("PubKeyFromBytes: %v", err)
	}
	if !bytes.Equal(pk.Bytes(), raw) {
		t.Error("Bytes() should match input")
	}

	if _, err := PubKeyFromBytes(raw[:32]); err == nil {
		t.Error("expected error for 32-byte key")
	}
}

func TestPubKey_ValueEquality(t *testing.T) {
	a := make([]byte, PubKeySize)
	a[0] = 0x03
	b := make([]byte, PubKeySize)
	copy(b, a)

	pa, _ := PubKeyFromBytes(a)
	pb, _ := PubKeyFromBytes(b)
	if pa != pb {
		t.Error("keys with identical material must compare equal")
	}

	b[5] = 0x01
	pc, _ := PubKeyFromBytes(b)
	if pa == pc {
		t.Error("keys with different material must not compare equal")
	}
}

func TestPubKey_JSON(t *testing.T) {
	var pk PubKey
	pk[0] = 0x02
	pk[10] = 0xaa

	data, err := pk.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	var got PubKey
	if err := got.UnmarshalJSON(data); err != nil {
		t.Fatalf("UnmarshalJSON: %v", err)
	}
	if got != pk {
		t.Errorf("roundtrip = %s, want %s", got, pk)
	}

	if err := got.UnmarshalJSON([]byte(`"zz"`)); err == nil {
		t.Error("expected error for invalid hex")
	}
}
