// Package blueprint implements the blueprint resolver (spec §4.3, C3): a
// load-once, read-many catalogue of compiled validators, plus the address
// derivations planners need once a validator has been parameterized.
package blueprint

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rawblock/ctoken-engine/pkg/cardano"
)

// ErrValidatorNotFound is returned by Find when title has no catalogue entry
// (spec §4.3, §7 — a config bug, never retried).
var ErrValidatorNotFound = errors.New("blueprint: validator not found")

// Validator is one catalogue entry: a compiled script template plus the
// hash of that template before any parameters are applied (spec §3).
type Validator struct {
	Title               string
	CompiledCode        []byte
	HashUnparameterized [28]byte
}

// Blueprint is a static, immutable validator catalogue (spec §3). A
// Blueprint is built once at startup and shared read-only across requests —
// see SPEC_FULL §7 (concurrency and resource model).
type Blueprint struct {
	Title      string
	Version    string
	validators map[string]Validator
}

// Find looks up a validator by its exact title (spec §4.3). Both the
// protocol blueprint and each substandard blueprint are separate instances
// of this same interface; substandard titles omit the middle segment
// ("transfer.issue.withdraw" rather than "transfer.transfer.issue.withdraw").
func (b *Blueprint) Find(title string) (Validator, error) {
	v, ok := b.validators[title]
	if !ok {
		return Validator{}, fmt.Errorf("%w: %s", ErrValidatorNotFound, title)
	}
	return v, nil
}

// protocolFile mirrors the on-disk blueprint JSON shape (spec §6 "Blueprint
// file format"): preamble metadata plus a validators array keyed by
// compiled_code/hash.
type protocolFile struct {
	Preamble struct {
		Title   string `json:"title"`
		Version string `json:"version"`
	} `json:"preamble"`
	Validators []struct {
		Title        string `json:"title"`
		CompiledCode string `json:"compiled_code"`
		Hash         string `json:"hash"`
	} `json:"validators"`
}

// substandardFile mirrors a substandard blueprint file, which uses the
// shorter script_bytes/script_hash keys (spec §6).
type substandardFile struct {
	Preamble struct {
		Title   string `json:"title"`
		Version string `json:"version"`
	} `json:"preamble"`
	Validators []struct {
		Title       string `json:"title"`
		ScriptBytes string `json:"script_bytes"`
		ScriptHash  string `json:"script_hash"`
	} `json:"validators"`
}

// Load parses a protocol blueprint document (compiled_code/hash keys).
func Load(raw []byte) (*Blueprint, error) {
	var doc protocolFile
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("blueprint: parse document: %w", err)
	}
	b := &Blueprint{
		Title:      doc.Preamble.Title,
		Version:    doc.Preamble.Version,
		validators: make(map[string]Validator, len(doc.Validators)),
	}
	for _, v := range doc.Validators {
		parsed, err := parseValidator(v.Title, v.CompiledCode, v.Hash)
		if err != nil {
			return nil, err
		}
		b.validators[v.Title] = parsed
	}
	return b, nil
}

// LoadSubstandard parses a substandard blueprint document (script_bytes/
// script_hash keys).
func LoadSubstandard(raw []byte) (*Blueprint, error) {
	var doc substandardFile
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("blueprint: parse substandard document: %w", err)
	}
	b := &Blueprint{
		Title:      doc.Preamble.Title,
		Version:    doc.Preamble.Version,
		validators: make(map[string]Validator, len(doc.Validators)),
	}
	for _, v := range doc.Validators {
		parsed, err := parseValidator(v.Title, v.ScriptBytes, v.ScriptHash)
		if err != nil {
			return nil, err
		}
		b.validators[v.Title] = parsed
	}
	return b, nil
}

func parseValidator(title, compiledCodeHex, hashHex string) (Validator, error) {
	code, err := hex.DecodeString(compiledCodeHex)
	if err != nil {
		return Validator{}, fmt.Errorf("blueprint: %s: decode compiled code: %w", title, err)
	}
	hash, err := hex.DecodeString(hashHex)
	if err != nil {
		return Validator{}, fmt.Errorf("blueprint: %s: decode hash: %w", title, err)
	}
	if len(hash) != 28 {
		return Validator{}, fmt.Errorf("blueprint: %s: hash must be 28 bytes, got %d", title, len(hash))
	}
	v := Validator{Title: title, CompiledCode: code}
	copy(v.HashUnparameterized[:], hash)
	return v, nil
}

// EnterpriseAddress derives the payment-script-only address of a
// parameterized validator (spec §4.3).
func EnterpriseAddress(scriptHash cardano.PolicyId, network cardano.NetworkId) (cardano.Address, error) {
	cred, err := cardano.NewScriptHashCredential(scriptHash.Bytes())
	if err != nil {
		return cardano.Address{}, err
	}
	return cardano.NewEnterpriseAddress(network, cred), nil
}

// BaseAddress derives the address of a specific holder of a programmable
// token: the shared programmable-logic-base payment script combined with
// that holder's own staking key hash (spec §4.3).
func BaseAddress(paymentScriptHash cardano.PolicyId, stakeKeyHash []byte, network cardano.NetworkId) (cardano.Address, error) {
	payment, err := cardano.NewScriptHashCredential(paymentScriptHash.Bytes())
	if err != nil {
		return cardano.Address{}, err
	}
	stake, err := cardano.NewKeyHashCredential(stakeKeyHash)
	if err != nil {
		return cardano.Address{}, err
	}
	return cardano.NewBaseAddress(network, payment, stake), nil
}
