package planner

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rawblock/ctoken-engine/pkg/cardano"
)

// bootstrapFile mirrors the on-disk ProtocolBootstrap snapshot format: every
// hash/outpoint is hex-encoded, matching the blueprint file convention
// (spec §3 "produced out of scope, consumed read-only here").
type bootstrapFile struct {
	TxHash string `json:"tx_hash"`

	ProtocolParams scriptRefFile `json:"protocol_params"`
	IssuanceParams scriptRefFile `json:"issuance_params"`

	ProgrammableLogicGlobal struct {
		ScriptHash               string `json:"script_hash"`
		ProtocolParamsScriptHash string `json:"protocol_params_script_hash"`
	} `json:"programmable_logic_global"`
	ProgrammableLogicBase struct {
		ScriptHash                        string `json:"script_hash"`
		ProgrammableLogicGlobalScriptHash string `json:"programmable_logic_global_script_hash"`
	} `json:"programmable_logic_base"`
	RegistrySpend struct {
		ScriptHash               string `json:"script_hash"`
		ProtocolParamsScriptHash string `json:"protocol_params_script_hash"`
	} `json:"registry_spend"`
	RegistryMint struct {
		ScriptHash         string `json:"script_hash"`
		TxInput            string `json:"tx_input"`
		IssuanceScriptHash string `json:"issuance_script_hash"`
	} `json:"registry_mint"`
}

type scriptRefFile struct {
	ScriptHash string `json:"script_hash"`
	TxInput    string `json:"tx_input"`
}

// LoadBootstrap reads a ProtocolBootstrap snapshot from path.
func LoadBootstrap(path string) (ProtocolBootstrap, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ProtocolBootstrap{}, fmt.Errorf("bootstrap: read %s: %w", path, err)
	}
	var doc bootstrapFile
	if err := json.Unmarshal(raw, &doc); err != nil {
		return ProtocolBootstrap{}, fmt.Errorf("bootstrap: parse %s: %w", path, err)
	}

	var out ProtocolBootstrap
	if err := decodeHash32(doc.TxHash, out.TxHash[:]); err != nil {
		return ProtocolBootstrap{}, fmt.Errorf("bootstrap: tx_hash: %w", err)
	}

	refs := []struct {
		name string
		src  scriptRefFile
		dst  *ScriptRef
	}{
		{"protocol_params", doc.ProtocolParams, &out.ProtocolParams},
		{"issuance_params", doc.IssuanceParams, &out.IssuanceParams},
	}
	for _, r := range refs {
		hash, err := decodePolicyID(r.src.ScriptHash)
		if err != nil {
			return ProtocolBootstrap{}, fmt.Errorf("bootstrap: %s.script_hash: %w", r.name, err)
		}
		outpoint, err := decodeOutpoint(r.src.TxInput)
		if err != nil {
			return ProtocolBootstrap{}, fmt.Errorf("bootstrap: %s.tx_input: %w", r.name, err)
		}
		r.dst.ScriptHash = hash
		r.dst.TxInput = outpoint
	}

	var err2 error
	if out.ProgrammableLogicGlobal.ScriptHash, err2 = decodePolicyID(doc.ProgrammableLogicGlobal.ScriptHash); err2 != nil {
		return ProtocolBootstrap{}, fmt.Errorf("bootstrap: programmable_logic_global.script_hash: %w", err2)
	}
	if out.ProgrammableLogicGlobal.ProtocolParamsScriptHash, err2 = decodePolicyID(doc.ProgrammableLogicGlobal.ProtocolParamsScriptHash); err2 != nil {
		return ProtocolBootstrap{}, fmt.Errorf("bootstrap: programmable_logic_global.protocol_params_script_hash: %w", err2)
	}
	if out.ProgrammableLogicBase.ScriptHash, err2 = decodePolicyID(doc.ProgrammableLogicBase.ScriptHash); err2 != nil {
		return ProtocolBootstrap{}, fmt.Errorf("bootstrap: programmable_logic_base.script_hash: %w", err2)
	}
	if out.ProgrammableLogicBase.ProgrammableLogicGlobalScriptHash, err2 = decodePolicyID(doc.ProgrammableLogicBase.ProgrammableLogicGlobalScriptHash); err2 != nil {
		return ProtocolBootstrap{}, fmt.Errorf("bootstrap: programmable_logic_base.programmable_logic_global_script_hash: %w", err2)
	}
	if out.RegistrySpend.ScriptHash, err2 = decodePolicyID(doc.RegistrySpend.ScriptHash); err2 != nil {
		return ProtocolBootstrap{}, fmt.Errorf("bootstrap: registry_spend.script_hash: %w", err2)
	}
	if out.RegistrySpend.ProtocolParamsScriptHash, err2 = decodePolicyID(doc.RegistrySpend.ProtocolParamsScriptHash); err2 != nil {
		return ProtocolBootstrap{}, fmt.Errorf("bootstrap: registry_spend.protocol_params_script_hash: %w", err2)
	}
	if out.RegistryMint.ScriptHash, err2 = decodePolicyID(doc.RegistryMint.ScriptHash); err2 != nil {
		return ProtocolBootstrap{}, fmt.Errorf("bootstrap: registry_mint.script_hash: %w", err2)
	}
	if out.RegistryMint.IssuanceScriptHash, err2 = decodePolicyID(doc.RegistryMint.IssuanceScriptHash); err2 != nil {
		return ProtocolBootstrap{}, fmt.Errorf("bootstrap: registry_mint.issuance_script_hash: %w", err2)
	}
	outpoint, err := decodeOutpoint(doc.RegistryMint.TxInput)
	if err != nil {
		return ProtocolBootstrap{}, fmt.Errorf("bootstrap: registry_mint.tx_input: %w", err)
	}
	out.RegistryMint.TxInput = outpoint

	return out, nil
}

func decodeHash32(s string, dst []byte) error {
	b, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	if len(b) != 32 {
		return fmt.Errorf("expected 32 bytes, got %d", len(b))
	}
	copy(dst, b)
	return nil
}

func decodePolicyID(s string) (cardano.PolicyId, error) {
	var out cardano.PolicyId
	b, err := hex.DecodeString(s)
	if err != nil {
		return out, err
	}
	if len(b) != 28 {
		return out, fmt.Errorf("expected 28 bytes, got %d", len(b))
	}
	copy(out[:], b)
	return out, nil
}

// decodeOutpoint parses "tx_hash#index" (the same convention the engine
// uses for engineerr.Error.Outpoint).
func decodeOutpoint(s string) (cardano.Outpoint, error) {
	var out cardano.Outpoint
	hashHex, idx, err := splitOutpoint(s)
	if err != nil {
		return out, err
	}
	if err := decodeHash32(hashHex, out.TxHash[:]); err != nil {
		return out, err
	}
	out.Index = idx
	return out, nil
}

func splitOutpoint(s string) (string, uint32, error) {
	for i := 0; i < len(s); i++ {
		if s[i] == '#' {
			var idx uint32
			if _, err := fmt.Sscanf(s[i+1:], "%d", &idx); err != nil {
				return "", 0, fmt.Errorf("bad outpoint index in %q: %w", s, err)
			}
			return s[:i], idx, nil
		}
	}
	return "", 0, fmt.Errorf("outpoint %q missing '#index' suffix", s)
}
