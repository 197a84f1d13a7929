package plutus

import "golang.org/x/crypto/blake2b"

// Hash returns the blake2b-256 digest of b — the digest algorithm the
// ledger uses for datum hashes (spec §4.1).
func Hash(b []byte) [32]byte {
	return blake2b.Sum256(b)
}

// EncodeDatum is a convenience wrapper combining Encode and Hash, since
// every planner needs "the hash of this datum" at least once (SPEC_FULL §6).
func EncodeDatum(d Data) (encoded []byte, hash [32]byte, err error) {
	encoded, err = Encode(d)
	if err != nil {
		return nil, [32]byte{}, err
	}
	hash = Hash(encoded)
	return encoded, hash, nil
}

// DecodeDatum decodes a datum and returns both the parsed value and its hash.
func DecodeDatum(b []byte) (Data, [32]byte, error) {
	d, err := Decode(b)
	if err != nil {
		return Data{}, [32]byte{}, err
	}
	return d, Hash(b), nil
}
