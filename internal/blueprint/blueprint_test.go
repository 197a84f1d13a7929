package blueprint

import (
	"encoding/hex"
	"errors"
	"testing"

	"github.com/rawblock/ctoken-engine/pkg/cardano"
)

func sampleProtocolJSON() []byte {
	return []byte(`{
		"preamble": {"title": "protocol", "version": "1.0.0"},
		"validators": [
			{
				"title": "registry_spend.registry_spend.spend",
				"compiled_code": "0102030405",
				"hash": "` + hex.EncodeToString(make([]byte, 28)) + `"
			}
		]
	}`)
}

func sampleSubstandardJSON() []byte {
	return []byte(`{
		"preamble": {"title": "dummy", "version": "1.0.0"},
		"validators": [
			{
				"title": "transfer.issue.withdraw",
				"script_bytes": "aabbcc",
				"script_hash": "` + hex.EncodeToString(make([]byte, 28)) + `"
			}
		]
	}`)
}

func TestLoadAndFindProtocolValidator(t *testing.T) {
	b, err := Load(sampleProtocolJSON())
	if err != nil {
		t.Fatal(err)
	}
	v, err := b.Find("registry_spend.registry_spend.spend")
	if err != nil {
		t.Fatal(err)
	}
	if len(v.CompiledCode) != 5 {
		t.Fatalf("expected 5 decoded bytes, got %d", len(v.CompiledCode))
	}
}

func TestFindMissingValidator(t *testing.T) {
	b, err := Load(sampleProtocolJSON())
	if err != nil {
		t.Fatal(err)
	}
	_, err = b.Find("nonexistent.title.here")
	if !errors.Is(err, ErrValidatorNotFound) {
		t.Fatalf("expected ErrValidatorNotFound, got %v", err)
	}
}

func TestLoadSubstandardUsesShortKeys(t *testing.T) {
	b, err := LoadSubstandard(sampleSubstandardJSON())
	if err != nil {
		t.Fatal(err)
	}
	v, err := b.Find("transfer.issue.withdraw")
	if err != nil {
		t.Fatal(err)
	}
	if len(v.CompiledCode) != 3 {
		t.Fatalf("expected 3 decoded bytes, got %d", len(v.CompiledCode))
	}
}

func TestEnterpriseAddressNoStake(t *testing.T) {
	var hash cardano.PolicyId
	addr, err := EnterpriseAddress(hash, cardano.Testnet)
	if err != nil {
		t.Fatal(err)
	}
	if addr.Stake != nil {
		t.Fatal("expected no stake credential on an enterprise address")
	}
}

func TestBaseAddressHasStake(t *testing.T) {
	var paymentHash cardano.PolicyId
	stakeKeyHash := make([]byte, 28)
	addr, err := BaseAddress(paymentHash, stakeKeyHash, cardano.Mainnet)
	if err != nil {
		t.Fatal(err)
	}
	if addr.Stake == nil {
		t.Fatal("expected a stake credential on a base address")
	}
	if addr.Payment.Kind != cardano.ScriptHashCredential {
		t.Fatal("expected payment credential to be a script hash")
	}
	if addr.Stake.Kind != cardano.KeyHashCredential {
		t.Fatal("expected stake credential to be a key hash")
	}
}
