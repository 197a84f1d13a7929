// Package cardano holds the chain primitives shared across the engine:
// network ids, credentials, addresses, outpoints, UTxOs and multi-asset
// values (spec §3). These are plain data types with no chain I/O.
package cardano

import (
	"bytes"
	"fmt"
)

// NetworkId selects mainnet vs testnet address encoding (spec §3).
type NetworkId int

const (
	Testnet NetworkId = 0
	Mainnet NetworkId = 1
)

func (n NetworkId) headerBits() byte {
	if n == Mainnet {
		return 1
	}
	return 0
}

func (n NetworkId) hrp() string {
	if n == Mainnet {
		return "addr"
	}
	return "addr_test"
}

// CredentialKind discriminates a Credential's underlying hash type.
type CredentialKind int

const (
	KeyHashCredential CredentialKind = iota
	ScriptHashCredential
)

// Credential is a 28-byte payment or staking credential (spec §3).
type Credential struct {
	Kind CredentialKind
	Hash [28]byte
}

func NewKeyHashCredential(h []byte) (Credential, error) {
	return newCredential(KeyHashCredential, h)
}

func NewScriptHashCredential(h []byte) (Credential, error) {
	return newCredential(ScriptHashCredential, h)
}

func newCredential(kind CredentialKind, h []byte) (Credential, error) {
	if len(h) != 28 {
		return Credential{}, fmt.Errorf("cardano: credential hash must be 28 bytes, got %d", len(h))
	}
	var c Credential
	c.Kind = kind
	copy(c.Hash[:], h)
	return c, nil
}

func (c Credential) isScript() bool { return c.Kind == ScriptHashCredential }

// Outpoint is a transaction input reference (spec §3). Outpoints have a
// total order: lexicographic on TxHash, then numeric on Index.
type Outpoint struct {
	TxHash [32]byte
	Index  uint32
}

// Compare implements the canonical outpoint ordering used throughout the
// assembler and the planners (lexicographic tx hash, then index).
func Compare(a, b Outpoint) int {
	if c := bytes.Compare(a.TxHash[:], b.TxHash[:]); c != 0 {
		return c
	}
	switch {
	case a.Index < b.Index:
		return -1
	case a.Index > b.Index:
		return 1
	default:
		return 0
	}
}

// PolicyId is a minting script hash (spec §3).
type PolicyId [28]byte

func (p PolicyId) Bytes() []byte { return p[:] }

func (p PolicyId) Hex() string { return fmt.Sprintf("%x", p[:]) }

// Unit pairs a policy with an asset name — a convenience type used
// pervasively by the planners (SPEC_FULL §5).
type Unit struct {
	Policy PolicyId
	Asset  []byte
}

// ScriptVersion enumerates the Plutus language versions (spec §3).
type ScriptVersion int

const (
	V1 ScriptVersion = 1
	V2 ScriptVersion = 2
	V3 ScriptVersion = 3
)

// Script is a versioned, canonically-framed compiled script (spec §3).
type Script struct {
	Version ScriptVersion
	Bytes   []byte // canonical CBOR-wrapped program bytes
}

// Utxo is a resolved unspent transaction output (spec §3).
type Utxo struct {
	Outpoint Outpoint
	Address  Address
	Value    Value
	Datum    *DatumRef
	Script   *Script
}

// DatumRef distinguishes an inline datum from a datum hash reference.
type DatumRef struct {
	Inline []byte // raw encoded PlutusData, when present
	Hash   *[32]byte
}
