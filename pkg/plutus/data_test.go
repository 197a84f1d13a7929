package plutus

import (
	"bytes"
	"math/big"
	"testing"
)

func TestRoundTripSimpleValues(t *testing.T) {
	cases := []Data{
		NewIntegerInt64(0),
		NewIntegerInt64(23),
		NewIntegerInt64(24),
		NewIntegerInt64(-1),
		NewIntegerInt64(-24),
		NewIntegerInt64(-25),
		NewInteger(new(big.Int).Lsh(big.NewInt(1), 200)),
		NewInteger(new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 200))),
		NewBytes([]byte{}),
		NewBytes(bytes.Repeat([]byte{0xAB}, 64)),
		NewBytes(bytes.Repeat([]byte{0xCD}, 65)),
		NewBytes(bytes.Repeat([]byte{0xEF}, 200)),
		NewList(),
		NewList(NewIntegerInt64(1), NewIntegerInt64(2)),
		NewMap(),
		NewMap(Pair{Key: NewBytes([]byte("k")), Value: NewIntegerInt64(1)}),
		NewConstr(0),
		NewConstr(1, NewBytes([]byte{0x01})),
		NewConstr(6, NewIntegerInt64(1)),
		NewConstr(7, NewIntegerInt64(1)),
		NewConstr(200, NewIntegerInt64(1)),
	}

	for i, want := range cases {
		encoded, err := Encode(want)
		if err != nil {
			t.Fatalf("case %d: encode: %v", i, err)
		}
		got, err := Decode(encoded)
		if err != nil {
			t.Fatalf("case %d: decode: %v", i, err)
		}
		if !Equal(got, want) {
			t.Fatalf("case %d: round-trip mismatch", i)
		}
		// Re-encoding must be byte-identical (canonicity, spec §8 property 3).
		reEncoded, err := Encode(got)
		if err != nil {
			t.Fatalf("case %d: re-encode: %v", i, err)
		}
		if !bytes.Equal(encoded, reEncoded) {
			t.Fatalf("case %d: re-encode not canonical", i)
		}
	}
}

func TestConstrCompactVsLongForm(t *testing.T) {
	compact, err := Encode(NewConstr(0))
	if err != nil {
		t.Fatal(err)
	}
	// Tag 121 (compact constructor 0) encodes as CBOR tag head 0xD8 0x79.
	if compact[0] != 0xD8 || compact[1] != 0x79 {
		t.Fatalf("expected compact constructor tag 121, got % x", compact[:2])
	}

	long, err := Encode(NewConstr(7))
	if err != nil {
		t.Fatal(err)
	}
	// Tag 102 (long form) encodes as CBOR tag head 0xD8 0x66.
	if long[0] != 0xD8 || long[1] != 0x66 {
		t.Fatalf("expected long-form tag 102, got % x", long[:2])
	}
}

func TestDecodeRejectsNonCanonicalInt(t *testing.T) {
	// 0x18 0x05 encodes 5 using the 1-byte-follows form, but 5 < 24 should
	// use the direct form — this must be rejected as non-canonical.
	_, err := Decode([]byte{0x18, 0x05})
	if err == nil {
		t.Fatal("expected error decoding non-canonical integer head")
	}
}

func TestEqualStructural(t *testing.T) {
	a := NewConstr(0, NewIntegerInt64(1), NewBytes([]byte("x")))
	b := NewConstr(0, NewIntegerInt64(1), NewBytes([]byte("x")))
	c := NewConstr(0, NewIntegerInt64(2), NewBytes([]byte("x")))
	if !Equal(a, b) {
		t.Fatal("expected a == b")
	}
	if Equal(a, c) {
		t.Fatal("expected a != c")
	}
}

func TestTooDeepRejected(t *testing.T) {
	d := NewIntegerInt64(1)
	for i := 0; i < maxDepth+10; i++ {
		d = NewList(d)
	}
	if _, err := Encode(d); err != ErrTooDeep {
		t.Fatalf("expected ErrTooDeep, got %v", err)
	}
}
