package scripthash

import "golang.org/x/crypto/blake2b"

// blake2b224 computes a 28-byte (224-bit) blake2b digest — the digest size
// Cardano uses for script hashes and credentials (spec §3).
func blake2b224(b []byte) []byte {
	h, err := blake2b.New(28, nil)
	if err != nil {
		panic(err) // only fails for an invalid key/size, both fixed here
	}
	h.Write(b)
	return h.Sum(nil)
}
