// Package planner implements the operation planners (spec §4.6, C6): one
// planner per high-level intent (RegisterToken, MintToken, TransferToken,
// InitBlacklist, FreezeAddress, Seize), each consuming the registry/
// blacklist models, the blueprint resolver, a UTxO provider, and producing
// a txspec.Spec for the assembler.
package planner

import "github.com/rawblock/ctoken-engine/pkg/cardano"

// ScriptRef snapshots one component's parameterized script hash plus the
// outpoint that carries its reference UTxO (spec §3 ProtocolBootstrap).
type ScriptRef struct {
	ScriptHash cardano.PolicyId
	TxInput    cardano.Outpoint
}

// ProtocolBootstrap is the once-per-deployment object snapshotting the
// protocol's parameter hashes (spec §3). It is produced out of scope and
// consumed read-only here.
type ProtocolBootstrap struct {
	TxHash [32]byte

	ProtocolParams ScriptRef
	IssuanceParams ScriptRef

	ProgrammableLogicGlobal struct {
		ScriptHash               cardano.PolicyId
		ProtocolParamsScriptHash cardano.PolicyId
	}
	ProgrammableLogicBase struct {
		ScriptHash                        cardano.PolicyId
		ProgrammableLogicGlobalScriptHash cardano.PolicyId
	}
	RegistrySpend struct {
		ScriptHash               cardano.PolicyId
		ProtocolParamsScriptHash cardano.PolicyId
	}
	RegistryMint struct {
		ScriptHash         cardano.PolicyId
		TxInput            cardano.Outpoint
		IssuanceScriptHash cardano.PolicyId
	}
}
