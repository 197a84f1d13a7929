package cardano

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

// Address is a base or enterprise address (spec §3). Holders of a
// programmable token are discriminated by the Stake credential, not the
// Payment credential — every holder's address shares the same
// programmable-logic-base payment script.
type Address struct {
	Network NetworkId
	Payment Credential
	Stake   *Credential // nil for an enterprise address
}

// NewBaseAddress builds a base address (payment + staking credential),
// matching CIP-0019's header-byte layout. Cardano addresses reuse the
// BIP-173 bech32 alphabet/checksum (same as Bitcoin segwit addresses), just
// with a different human-readable part and payload layout, so we reuse the
// teacher's existing bech32 dependency rather than reimplementing it.
func NewBaseAddress(network NetworkId, payment, stake Credential) Address {
	return Address{Network: network, Payment: payment, Stake: &stake}
}

// NewEnterpriseAddress builds a payment-credential-only address, for a key
// or a script credential (spec §4.3 enterprise_address).
func NewEnterpriseAddress(network NetworkId, payment Credential) Address {
	return Address{Network: network, Payment: payment}
}

// header computes the CIP-0019 address header byte.
func (a Address) header() byte {
	var addrType byte
	if a.Stake != nil {
		addrType = 0
		if a.Payment.isScript() {
			addrType |= 1
		}
		if a.Stake.isScript() {
			addrType |= 2
		}
	} else {
		addrType = 6
		if a.Payment.isScript() {
			addrType |= 1
		}
	}
	return (addrType << 4) | a.Network.headerBits()
}

// Bytes returns the raw address payload: header || payment hash [|| stake hash].
func (a Address) Bytes() []byte {
	out := make([]byte, 0, 1+28+28)
	out = append(out, a.header())
	out = append(out, a.Payment.Hash[:]...)
	if a.Stake != nil {
		out = append(out, a.Stake.Hash[:]...)
	}
	return out
}

// Bech32 encodes the address per CIP-0019, using "addr"/"addr_test" as the
// human-readable part depending on network.
func (a Address) Bech32() (string, error) {
	raw := a.Bytes()
	conv, err := bech32.ConvertBits(raw, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("cardano: convert address bits: %w", err)
	}
	encoded, err := bech32.Encode(a.Network.hrp(), conv)
	if err != nil {
		return "", fmt.Errorf("cardano: bech32 encode address: %w", err)
	}
	return encoded, nil
}

// String implements fmt.Stringer, returning the bech32 form or a
// placeholder on encode failure (encode failure cannot happen for
// well-formed Credentials, since both are exactly 28 bytes by construction).
func (a Address) String() string {
	s, err := a.Bech32()
	if err != nil {
		return "<invalid-address>"
	}
	return s
}

// ParseAddress decodes a CIP-0019 bech32 address, the inverse of Bech32.
// Used at the HTTP boundary, where callers name holders/recipients by their
// address string rather than constructing a Credential directly.
func ParseAddress(s string) (Address, error) {
	hrp, data, err := bech32.Decode(s)
	if err != nil {
		return Address{}, fmt.Errorf("cardano: bech32 decode address: %w", err)
	}
	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("cardano: convert address bits: %w", err)
	}
	if len(raw) < 1+28 {
		return Address{}, fmt.Errorf("cardano: address payload too short: %d bytes", len(raw))
	}

	var network NetworkId
	switch hrp {
	case "addr":
		network = Mainnet
	case "addr_test":
		network = Testnet
	default:
		return Address{}, fmt.Errorf("cardano: unrecognized address human-readable part %q", hrp)
	}

	addrType := raw[0] >> 4
	paymentIsScript := addrType&1 != 0
	payment, err := credentialFromHash(raw[1:29], paymentIsScript)
	if err != nil {
		return Address{}, err
	}

	switch {
	case addrType == 6 || addrType == 7: // enterprise
		return NewEnterpriseAddress(network, payment), nil
	case addrType <= 3: // base
		if len(raw) < 1+28+28 {
			return Address{}, fmt.Errorf("cardano: base address payload too short: %d bytes", len(raw))
		}
		stakeIsScript := addrType&2 != 0
		stake, err := credentialFromHash(raw[29:57], stakeIsScript)
		if err != nil {
			return Address{}, err
		}
		return NewBaseAddress(network, payment, stake), nil
	default:
		return Address{}, fmt.Errorf("cardano: unsupported address type %d", addrType)
	}
}

func credentialFromHash(hash []byte, isScript bool) (Credential, error) {
	if isScript {
		return NewScriptHashCredential(hash)
	}
	return NewKeyHashCredential(hash)
}

// ErrNoStakeCredential is returned when a stake credential is required but
// the address is an enterprise (payment-only) address.
var ErrNoStakeCredential = errors.New("cardano: address has no stake credential")

// StakeCredential returns the address's stake credential, if any.
func (a Address) StakeCredential() (Credential, error) {
	if a.Stake == nil {
		return Credential{}, ErrNoStakeCredential
	}
	return *a.Stake, nil
}
